package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"katalog/internal/config"
	"katalog/internal/database"
	"katalog/internal/katalog"
	"katalog/internal/testutil"
)

func newTestApp(t *testing.T, command string) (*KatalogApp, *config.Config) {
	t.Helper()
	cfg := config.NewConfig(t.TempDir())
	cfg.Snapshot = config.SnapshotConfig{Type: "memory"}

	a, err := NewKatalogApp(cfg, command, "", Options{
		Clock: testutil.FixedClock(),
		IDs:   testutil.NewStubIDGenerator(),
	})
	if err != nil {
		t.Fatalf("NewKatalogApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, cfg
}

func TestNewKatalogApp(t *testing.T) {
	a, cfg := newTestApp(t, "info")

	info := a.ProjectInfo()
	if !info.OK || info.Path != cfg.Catalog.Path {
		t.Errorf("ProjectInfo() = %+v, want the configured catalog open", info)
	}
	if _, err := os.Stat(cfg.Catalog.Path); err != nil {
		t.Errorf("catalog file not created: %v", err)
	}
	if a.Run().ID != "id-1" || a.Run().Command != "info" {
		t.Errorf("Run() = %+v", a.Run())
	}
}

func TestNewKatalogApp_BadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
	}{
		{"unknown driver", func(cfg *config.Config) { cfg.Catalog.Driver = "postgres" }},
		{"bad ttl", func(cfg *config.Config) { cfg.Service.LabelCacheTTL = "soon" }},
		{"catalog is a directory", func(cfg *config.Config) { cfg.Catalog.Path = cfg.BaseDir }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewConfig(t.TempDir())
			tt.mutate(cfg)
			if a, err := NewKatalogApp(cfg, "info", "", Options{}); err == nil {
				a.Close()
				t.Fatal("NewKatalogApp() succeeded, want error")
			}
		})
	}
}

func TestKatalogApp_ScanSearchBrowse(t *testing.T) {
	a, _ := newTestApp(t, "scan")
	root := testutil.MakeTree(t, map[string]string{
		"music/album/track01.mp3": "not really audio",
		"music/cover.jpg":         "jpg",
		"notes.txt":               "hello",
	})

	var events []katalog.Event
	st, err := a.Scan(context.Background(), root, nil, func(ev katalog.Event) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if st.Status != katalog.StatusFinished || st.Files != 3 || st.Directories != 2 {
		t.Errorf("Scan() status = %+v", st)
	}
	if len(events) == 0 || events[len(events)-1].Kind != katalog.EventFinished {
		t.Fatalf("progress events = %+v", events)
	}

	t.Run("search", func(t *testing.T) {
		got, err := a.Search("track", 0, "", 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].FullPath != "/music/album/track01.mp3" {
			t.Errorf("Search(track) = %+v", got)
		}
		got, err = a.Search("cover", st.VolumeID, "image", 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 {
			t.Errorf("Search(cover, image) = %+v", got)
		}
	})

	t.Run("browse", func(t *testing.T) {
		tests := []struct {
			dir       string
			wantDirs  []string
			wantFiles []string
		}{
			{"/", []string{"music"}, []string{"notes.txt"}},
			{"", []string{"music"}, []string{"notes.txt"}},
			{"music", []string{"album"}, []string{"cover.jpg"}},
			{"/music/album/", nil, []string{"track01.mp3"}},
		}
		for _, tt := range tests {
			dirs, files, err := a.Browse(st.VolumeID, tt.dir)
			if err != nil {
				t.Fatalf("Browse(%q) error = %v", tt.dir, err)
			}
			var gotDirs, gotFiles []string
			for _, d := range dirs {
				gotDirs = append(gotDirs, d.Name)
			}
			for _, f := range files {
				gotFiles = append(gotFiles, f.Name)
			}
			if strings.Join(gotDirs, ",") != strings.Join(tt.wantDirs, ",") ||
				strings.Join(gotFiles, ",") != strings.Join(tt.wantFiles, ",") {
				t.Errorf("Browse(%q) = %v %v, want %v %v", tt.dir, gotDirs, gotFiles, tt.wantDirs, tt.wantFiles)
			}
		}

		if _, _, err := a.Browse(st.VolumeID, "/nope"); !errors.Is(err, katalog.ErrNotFound) {
			t.Errorf("Browse(/nope) error = %v, want ErrNotFound", err)
		}
		if _, _, err := a.Browse(999, "/"); !errors.Is(err, katalog.ErrNotFound) {
			t.Errorf("Browse(unknown volume) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("volumes", func(t *testing.T) {
		if err := a.RenameVolume(st.VolumeID, "Music Disk"); err != nil {
			t.Fatal(err)
		}
		vols, err := a.Volumes()
		if err != nil {
			t.Fatal(err)
		}
		if len(vols) != 1 || vols[0].Label != "Music Disk" {
			t.Errorf("Volumes() = %+v", vols)
		}
		if err := a.DeleteVolume(st.VolumeID); err != nil {
			t.Fatal(err)
		}
		if info := a.ProjectInfo(); info.VolumeCount != 0 || info.FileCount != 0 {
			t.Errorf("ProjectInfo() after delete = %+v", info)
		}
	})
}

func TestKatalogApp_ScanFailureMarksRun(t *testing.T) {
	a, _ := newTestApp(t, "scan")

	st, err := a.Scan(context.Background(), filepath.Join(t.TempDir(), "missing"), nil, nil)
	if err == nil {
		t.Fatal("Scan() of a missing root succeeded")
	}
	if st.Status != katalog.StatusFailed {
		t.Errorf("status = %s, want failed", st.Status)
	}
	if !a.Run().Failed() {
		t.Error("run not marked failed")
	}
}

func TestKatalogApp_ScanOptions(t *testing.T) {
	a, _ := newTestApp(t, "scan")
	root := testutil.MakeTree(t, map[string]string{
		"keep.txt":      "k",
		"skip.log":      "s",
		".hidden/a.txt": "h",
	})

	opts := katalog.DefaultScanOptions()
	opts.ExcludePatterns = []string{"*.log"}
	st, err := a.Scan(context.Background(), root, &opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	if st.Files != 1 {
		t.Errorf("files = %d, want 1 (hidden and excluded skipped)", st.Files)
	}
}

func TestKatalogApp_OpenProject(t *testing.T) {
	a, _ := newTestApp(t, "open")
	other := filepath.Join(t.TempDir(), "nested", "other.katalog")

	info, err := a.OpenProject(other)
	if err != nil {
		t.Fatalf("OpenProject() error = %v", err)
	}
	if !info.OK || info.Path != other {
		t.Errorf("OpenProject() = %+v", info)
	}
}

func TestKatalogApp_Snapshots(t *testing.T) {
	a, _ := newTestApp(t, "snapshot")
	ctx := context.Background()
	root := testutil.MakeTree(t, map[string]string{"a.txt": "a"})
	if _, err := a.Scan(ctx, root, nil, nil); err != nil {
		t.Fatal(err)
	}

	pushed, err := a.PushSnapshot(ctx)
	if err != nil {
		t.Fatalf("PushSnapshot() error = %v", err)
	}
	if !strings.HasPrefix(pushed.Name, "20240115T103000Z-") || !strings.HasSuffix(pushed.Name, ".katalog") {
		t.Errorf("snapshot name = %q", pushed.Name)
	}

	infos, err := a.ListSnapshots(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].Name != pushed.Name {
		t.Fatalf("ListSnapshots() = %+v", infos)
	}

	dest := filepath.Join(t.TempDir(), "restored.katalog")
	if err := a.PullSnapshot(ctx, pushed.Name, dest); err != nil {
		t.Fatalf("PullSnapshot() error = %v", err)
	}
	restored, err := database.OpenCatalog(database.DriverCgo, dest, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer restored.Close()
	stats, err := restored.ProjectStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Volumes != 1 || stats.Files != 1 {
		t.Errorf("restored stats = %+v", stats)
	}

	if err := a.PullSnapshot(ctx, pushed.Name, dest); err == nil {
		t.Error("PullSnapshot() overwrote an existing file")
	}
}

func TestKatalogApp_CloseLogsRun(t *testing.T) {
	cfg := config.NewConfig(t.TempDir())
	a, err := NewKatalogApp(cfg, "volumes", "", Options{IDs: testutil.NewStubIDGenerator()})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.RenameVolume(42, "x"); !errors.Is(err, katalog.ErrNotFound) {
		t.Fatalf("RenameVolume() error = %v, want ErrNotFound", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.LogDir, "katalog.log"))
	if err != nil {
		t.Fatal(err)
	}
	log := string(data)
	if !strings.Contains(log, "\tid-1\tcommand finished\tcommand=volumes\tstatus=error") {
		t.Errorf("log missing the finished record:\n%s", log)
	}
}
