package app

import (
	"errors"
	"testing"
	"time"

	"katalog/internal/katalog"
	"katalog/internal/testutil"
)

type fixedIDs string

func (f fixedIDs) New() string { return string(f) }

var _ katalog.IDGenerator = fixedIDs("")

func TestNewRun(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		wantID string
	}{
		{name: "uuid is shortened", id: "3f2c9a1e-8b7d-4e6f-9a0b-1c2d3e4f5a6b", wantID: "3f2c9a1e"},
		{name: "short id kept", id: "id-1", wantID: "id-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := testutil.FixedClock()
			r := NewRun("scan", "/mnt/usb", fixedIDs(tt.id), clock)

			if r.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", r.ID, tt.wantID)
			}
			if r.Command != "scan" || r.Args != "/mnt/usb" {
				t.Errorf("Command/Args = %q/%q", r.Command, r.Args)
			}
			if r.Status != "success" || r.Failed() {
				t.Errorf("Status = %q, want success", r.Status)
			}
			if !r.StartedAt.Equal(clock.Now()) {
				t.Errorf("StartedAt = %v, want %v", r.StartedAt, clock.Now())
			}
		})
	}
}

func TestRun_Fail(t *testing.T) {
	r := NewRun("search", "", fixedIDs("id"), testutil.FixedClock())

	r.Fail(nil)
	if r.Failed() {
		t.Fatal("Fail(nil) marked the run failed")
	}
	r.Fail(errors.New("boom"))
	if !r.Failed() || r.Status != "error" {
		t.Errorf("Status = %q, want error", r.Status)
	}
	r.Fail(nil)
	if !r.Failed() {
		t.Error("a later Fail(nil) cleared the failure")
	}
}

func TestRun_Elapsed(t *testing.T) {
	clock := testutil.FixedClock()
	r := NewRun("serve", "", fixedIDs("id"), clock)
	clock.Advance(90 * time.Second)
	if got := r.Elapsed(clock.Now()); got != 90*time.Second {
		t.Errorf("Elapsed = %v, want 90s", got)
	}
}
