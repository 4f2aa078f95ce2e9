package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"katalog/internal/config"
	"katalog/internal/database"
	"katalog/internal/fs"
	"katalog/internal/katalog"
	"katalog/internal/scanner"
	"katalog/internal/server"
	"katalog/internal/snapshot"
)

// KatalogApp is the application layer between the CLI and katalog.Service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and closes everything on Close.
type KatalogApp struct {
	cfg       *config.Config
	catalog   *database.Catalog
	service   *katalog.Service
	snapshots *snapshot.Snapshotter
	logger    katalog.Logger
	clock     katalog.Clock
	ids       katalog.IDGenerator
	run       *Run
	logFile   *os.File
}

// Options adjusts how the app is built. The zero value logs at info level
// with the real clock and random ids.
type Options struct {
	Verbose bool
	Clock   katalog.Clock
	IDs     katalog.IDGenerator
}

// NewKatalogApp creates a fully wired KatalogApp from the given config and
// opens the configured catalog. command and args identify the CLI
// invocation in the log. The caller must call Close when done.
func NewKatalogApp(cfg *config.Config, command, args string, opts Options) (*KatalogApp, error) {
	clock := opts.Clock
	if clock == nil {
		clock = katalog.RealClock{}
	}
	ids := opts.IDs
	if ids == nil {
		ids = katalog.UUIDGenerator{}
	}

	svcCfg, err := cfg.ServiceConfig()
	if err != nil {
		return nil, fmt.Errorf("reading service config: %w", err)
	}

	run := NewRun(command, args, ids, clock)
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	sl, logFile, err := newLogger(cfg.LogDir, run.ID, level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: sl}

	catalog, err := database.NewCatalogFromConfig(cfg.Catalog, logger, clock)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating catalog: %w", err)
	}

	sc := scanner.New(catalog, fs.NewMIMEClassifier(), fs.NewMediaReader(), logger)
	svc := katalog.NewService(catalog, sc, fs.NewInspector(), logger, clock, svcCfg)

	a := &KatalogApp{
		cfg:     cfg,
		catalog: catalog,
		service: svc,
		logger:  logger,
		clock:   clock,
		ids:     ids,
		run:     run,
		logFile: logFile,
	}

	if !catalog.IsOpen() && cfg.Catalog.Path != "" {
		if _, err := svc.OpenProject(cfg.Catalog.Path); err != nil {
			a.Close()
			return nil, err
		}
	}

	logger.Debug("command started", "command", command, "args", args)
	return a, nil
}

// Service exposes the underlying service, for the HTTP server.
func (a *KatalogApp) Service() *katalog.Service { return a.service }

// Run returns the record of this invocation.
func (a *KatalogApp) Run() *Run { return a.run }

// fail records err against the run and returns it unchanged.
func (a *KatalogApp) fail(err error) error {
	a.run.Fail(err)
	return err
}

// OpenProject resolves rawPath and opens (creating if needed) the catalog
// there in place of the current one.
func (a *KatalogApp) OpenProject(rawPath string) (katalog.ProjectInfo, error) {
	p, err := filepath.Abs(rawPath)
	if err != nil {
		return katalog.ProjectInfo{}, a.fail(fmt.Errorf("resolving path: %w", err))
	}
	info, err := a.service.OpenProject(p)
	return info, a.fail(err)
}

// ProjectInfo describes the open catalog.
func (a *KatalogApp) ProjectInfo() katalog.ProjectInfo {
	return a.service.GetProjectInfo()
}

// Scan resolves rawPath, scans it, and blocks until the job ends. opts nil
// uses the configured scan defaults. progress, if set, receives every event
// of the job. Cancelling ctx cancels the scan; Scan still waits for the job
// to settle and returns its final status.
func (a *KatalogApp) Scan(ctx context.Context, rawPath string, opts *katalog.ScanOptions, progress func(katalog.Event)) (katalog.ScanStatus, error) {
	root, err := filepath.Abs(rawPath)
	if err != nil {
		return katalog.ScanStatus{}, a.fail(fmt.Errorf("resolving path: %w", err))
	}

	// Subscribe before starting so the job's first event is not missed.
	events, unsubscribe := a.service.Subscribe()
	defer unsubscribe()

	var id int64
	if opts != nil {
		id, err = a.service.StartScanWithOptions(root, *opts)
	} else {
		id, err = a.service.StartScan(root)
	}
	if err != nil {
		return katalog.ScanStatus{}, a.fail(err)
	}

	done := ctx.Done()
	for {
		select {
		case <-done:
			a.service.CancelScan(id)
			done = nil
		case ev, ok := <-events:
			if !ok {
				return a.service.GetScanStatus(id), a.fail(katalog.ErrServiceClosed)
			}
			if ev.JobID != id {
				continue
			}
			if progress != nil {
				progress(ev)
			}
			if ev.Kind == katalog.EventFinished {
				st := a.service.GetScanStatus(id)
				return st, a.fail(scanError(st))
			}
		}
	}
}

func scanError(st katalog.ScanStatus) error {
	switch st.Status {
	case katalog.StatusCancelled:
		return katalog.ErrCancelled
	case katalog.StatusFailed:
		return fmt.Errorf("scan of %s failed: %s", st.RootPath, st.Error)
	}
	return nil
}

// Search runs a prefix search. volumeID 0 and an empty fileType search
// everything.
func (a *KatalogApp) Search(query string, volumeID int64, fileType string, limit int) ([]*katalog.FileEntry, error) {
	results, err := a.service.Search(query, volumeID, fileType, limit, 0)
	return results, a.fail(err)
}

func (a *KatalogApp) Volumes() ([]*katalog.Volume, error) {
	vols, err := a.service.ListVolumes()
	return vols, a.fail(err)
}

func (a *KatalogApp) RenameVolume(id int64, label string) error {
	return a.fail(a.service.RenameVolume(id, label))
}

func (a *KatalogApp) DeleteVolume(id int64) error {
	return a.fail(a.service.DeleteVolume(id))
}

// Browse lists the subdirectories and files of dirPath ("/" or "" for the
// root) within a volume.
func (a *KatalogApp) Browse(volumeID int64, dirPath string) ([]*katalog.Directory, []*katalog.FileEntry, error) {
	dirs, files, err := a.browse(volumeID, dirPath)
	return dirs, files, a.fail(err)
}

func (a *KatalogApp) browse(volumeID int64, dirPath string) ([]*katalog.Directory, []*katalog.FileEntry, error) {
	roots, err := a.service.ListDirectories(volumeID, 0)
	if err != nil {
		return nil, nil, err
	}
	if len(roots) == 0 {
		return nil, nil, fmt.Errorf("volume %d has no root directory: %w", volumeID, katalog.ErrNotFound)
	}

	current := roots[0]
	for _, name := range strings.Split(strings.Trim(filepath.ToSlash(dirPath), "/"), "/") {
		if name == "" {
			continue
		}
		children, err := a.service.ListDirectories(volumeID, current.ID)
		if err != nil {
			return nil, nil, err
		}
		var next *katalog.Directory
		for _, d := range children {
			if d.Name == name {
				next = d
				break
			}
		}
		if next == nil {
			return nil, nil, fmt.Errorf("directory %s: %w", dirPath, katalog.ErrNotFound)
		}
		current = next
	}

	dirs, err := a.service.ListDirectories(volumeID, current.ID)
	if err != nil {
		return nil, nil, err
	}
	files, err := a.service.ListFiles(current.ID)
	if err != nil {
		return nil, nil, err
	}
	return dirs, files, nil
}

// Serve runs the HTTP server on the configured address until ctx ends.
func (a *KatalogApp) Serve(ctx context.Context) error {
	srv := server.New(a.cfg.Server.Addr, a.service, a.logger, a.ids)
	go server.WatchScans(ctx, a.service)
	return a.fail(srv.Run(ctx))
}

// snapshotter builds the snapshot sink on first use so commands that never
// touch snapshots do not need sink credentials.
func (a *KatalogApp) snapshotter(ctx context.Context) (*snapshot.Snapshotter, error) {
	if a.snapshots != nil {
		return a.snapshots, nil
	}
	s, err := snapshot.NewFromConfig(ctx, a.cfg.Snapshot, a.logger, a.clock)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot sink: %w", err)
	}
	a.snapshots = s
	return s, nil
}

// PushSnapshot uploads a consistent copy of the open catalog.
func (a *KatalogApp) PushSnapshot(ctx context.Context) (snapshot.Info, error) {
	s, err := a.snapshotter(ctx)
	if err != nil {
		return snapshot.Info{}, a.fail(err)
	}
	info, err := s.Push(ctx, a.service)
	return info, a.fail(err)
}

// ListSnapshots lists stored snapshots, newest first.
func (a *KatalogApp) ListSnapshots(ctx context.Context) ([]snapshot.Info, error) {
	s, err := a.snapshotter(ctx)
	if err != nil {
		return nil, a.fail(err)
	}
	infos, err := s.List(ctx)
	return infos, a.fail(err)
}

// PullSnapshot downloads snapshot name to rawDest, which must not exist.
func (a *KatalogApp) PullSnapshot(ctx context.Context, name, rawDest string) error {
	dest, err := filepath.Abs(rawDest)
	if err != nil {
		return a.fail(fmt.Errorf("resolving path: %w", err))
	}
	s, err := a.snapshotter(ctx)
	if err != nil {
		return a.fail(err)
	}
	return a.fail(s.Pull(ctx, name, dest))
}

// Close cancels outstanding scans, closes the catalog, and logs how the
// run ended.
func (a *KatalogApp) Close() error {
	var firstErr error
	if err := a.service.Close(); err != nil {
		firstErr = fmt.Errorf("closing service: %w", err)
		a.run.Fail(err)
	}

	a.logger.Info("command finished",
		"command", a.run.Command,
		"status", a.run.Status,
		"elapsed", a.run.Elapsed(a.clock.Now()).Round(time.Millisecond).String(),
	)

	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
