package main

import (
	"strings"
	"testing"

	"katalog/internal/katalog"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
		{3 << 40, "3.0 TiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestProgressLine(t *testing.T) {
	ev := katalog.Event{
		Kind:      katalog.EventProgress,
		Path:      "/photos/2023/summer/IMG_0001.jpg",
		ScanStats: katalog.ScanStats{Directories: 3, Files: 12, Bytes: 2048},
	}

	t.Run("fits", func(t *testing.T) {
		got := progressLine(ev, 120)
		want := "3 dirs  12 files  2.0 KiB  /photos/2023/summer/IMG_0001.jpg"
		if got != want {
			t.Errorf("progressLine() = %q, want %q", got, want)
		}
	})

	t.Run("path cut from the left", func(t *testing.T) {
		got := progressLine(ev, 50)
		if len(got) > 50 {
			t.Errorf("line is %d wide, want <= 50: %q", len(got), got)
		}
		if !strings.Contains(got, "...") || !strings.HasSuffix(got, "IMG_0001.jpg") {
			t.Errorf("progressLine() = %q", got)
		}
	})

	t.Run("too narrow drops the path", func(t *testing.T) {
		got := progressLine(ev, 20)
		if got != "3 dirs  12 files  2.0 KiB" {
			t.Errorf("progressLine() = %q", got)
		}
	})
}
