// Package scanner walks a directory tree into the catalog store.
package scanner

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync/atomic"

	"katalog/internal/fs"
	"katalog/internal/katalog"
)

// Store is the part of the catalog the scanner writes to.
type Store interface {
	UpsertVolume(v *katalog.Volume) (int64, error)
	UpsertDirectory(d *katalog.Directory) (int64, error)
	UpsertFile(f *katalog.File) (int64, error)
	AddTag(fileID int64, key, value string) error
}

// Scanner implements katalog.Scanner on the local filesystem. One Scanner
// runs one scan at a time; its only state across scans is the cancellation
// flags, reset when a scan starts.
type Scanner struct {
	store      Store
	classifier katalog.Classifier
	media      katalog.MediaTagReader
	logger     katalog.Logger

	state           atomic.Int32
	stop            atomic.Bool
	cancelRequested atomic.Bool
}

var _ katalog.Scanner = (*Scanner)(nil)

// New creates a Scanner. classifier and media may be nil, which disables
// type classification and media tag reading respectively.
func New(store Store, classifier katalog.Classifier, media katalog.MediaTagReader, logger katalog.Logger) *Scanner {
	if logger == nil {
		logger = katalog.NewNopLogger()
	}
	return &Scanner{store: store, classifier: classifier, media: media, logger: logger}
}

// RequestCancel asks the running scan to stop at the next entry.
func (s *Scanner) RequestCancel() {
	s.cancelRequested.Store(true)
	s.stop.Store(true)
}

// CancelRequested reports whether the current or last scan was asked to stop
// through RequestCancel, as opposed to its context or progress callback.
func (s *Scanner) CancelRequested() bool {
	return s.cancelRequested.Load()
}

func (s *Scanner) State() katalog.ScanState {
	return katalog.ScanState(s.state.Load())
}

// pendingDir is a directory whose children are still to be read.
type pendingDir struct {
	abs   string
	rel   string
	depth int // depth of its children; the root's children are at 0
}

// walk is the scan-local state of one Scan call.
type walk struct {
	*Scanner
	ctx      context.Context
	opts     katalog.ScanOptions
	exclude  *fs.ExcludeMatcher
	progress katalog.ProgressFunc
	volumeID int64
	dirIDs   map[string]int64
	visited  map[string]bool
	stats    katalog.ScanStats
}

// Scan walks rootPath depth first, writing vol, a synthesized root
// directory "/" and every admitted entry below it. The root must be an
// existing directory, checked before anything is written. vol.ID is set to
// the stored volume id.
func (s *Scanner) Scan(ctx context.Context, rootPath string, vol *katalog.Volume, opts katalog.ScanOptions, progress katalog.ProgressFunc) (katalog.ScanStats, error) {
	s.stop.Store(false)
	s.cancelRequested.Store(false)
	s.state.Store(int32(katalog.ScanRunning))

	stats, err := s.scan(ctx, rootPath, vol, opts, progress)
	switch {
	case err == nil:
		s.state.Store(int32(katalog.ScanCompleted))
	case errors.Is(err, katalog.ErrCancelled), errors.Is(err, katalog.ErrAborted):
		s.state.Store(int32(katalog.ScanCancelled))
	default:
		s.state.Store(int32(katalog.ScanFailed))
	}
	return stats, err
}

func (s *Scanner) scan(ctx context.Context, rootPath string, vol *katalog.Volume, opts katalog.ScanOptions, progress katalog.ProgressFunc) (katalog.ScanStats, error) {
	root, err := filepath.Abs(rootPath)
	if err != nil {
		return katalog.ScanStats{}, fmt.Errorf("%w: %s: %v", katalog.ErrInvalidRoot, rootPath, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return katalog.ScanStats{}, fmt.Errorf("%w: %v", katalog.ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return katalog.ScanStats{}, fmt.Errorf("%w: %s is not a directory", katalog.ErrInvalidRoot, root)
	}
	d, err := os.Open(root)
	if err != nil {
		return katalog.ScanStats{}, fmt.Errorf("%w: %v", katalog.ErrInvalidRoot, err)
	}
	d.Close()

	patterns := append([]string(nil), opts.ExcludePatterns...)
	fromFile, err := fs.ParseExcludeFile(filepath.Join(root, fs.ExcludeFileName))
	if err != nil {
		s.logger.Warn("ignoring unreadable exclude file", "root", root, "error", err)
	}
	patterns = append(patterns, fromFile...)

	if vol.Label == "" {
		vol.Label = filepath.Base(root)
	}
	if vol.PhysicalHint == "" {
		vol.PhysicalHint = root
	}
	volumeID, err := s.store.UpsertVolume(vol)
	if err != nil {
		return katalog.ScanStats{}, fmt.Errorf("writing volume: %w", err)
	}
	rootID, err := s.store.UpsertDirectory(&katalog.Directory{VolumeID: volumeID, Name: "/", FullPath: "/"})
	if err != nil {
		return katalog.ScanStats{}, fmt.Errorf("writing root directory: %w", err)
	}

	w := &walk{
		Scanner:  s,
		ctx:      ctx,
		opts:     opts,
		exclude:  fs.NewExcludeMatcher(patterns),
		progress: progress,
		volumeID: volumeID,
		dirIDs:   map[string]int64{"/": rootID},
		visited:  make(map[string]bool),
	}
	if opts.FollowSymlinks {
		if real, err := filepath.EvalSymlinks(root); err == nil {
			w.visited[real] = true
		}
	}

	s.logger.Info("scan walking", "root", root, "volume", volumeID, "max_depth", opts.MaxDepth)
	err = w.run(root)
	s.logger.Info("scan walked", "root", root, "directories", w.stats.Directories, "files", w.stats.Files,
		"skipped", w.stats.Skipped, "errors", w.stats.Errors, "error", err)
	return w.stats, err
}

func (w *walk) run(root string) error {
	stack := []pendingDir{{abs: root, rel: "/", depth: 0}}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir.abs)
		if err != nil {
			if dir.rel == "/" {
				return fmt.Errorf("reading root: %w", err)
			}
			w.stats.Errors++
			w.logger.Warn("cannot read directory", "path", dir.abs, "error", err)
			continue
		}

		var children []pendingDir
		for _, e := range entries {
			if err := w.checkStop(); err != nil {
				return err
			}
			child, descend, err := w.visit(dir, e)
			if err != nil {
				return err
			}
			if descend {
				children = append(children, child)
			}
		}
		// Reverse name order on the stack pops children in name order.
		sort.Slice(children, func(i, j int) bool { return children[i].rel > children[j].rel })
		stack = append(stack, children...)
	}
	return nil
}

func (w *walk) checkStop() error {
	if w.stop.Load() || w.ctx.Err() != nil {
		return katalog.ErrCancelled
	}
	return nil
}

// visit processes one entry of dir. It returns the pending directory to
// descend into, if any. Only errors that end the scan are returned; entry
// level failures are counted in stats.
func (w *walk) visit(dir pendingDir, e iofs.DirEntry) (pendingDir, bool, error) {
	name := e.Name()
	abs := filepath.Join(dir.abs, name)
	rel := path.Join(dir.rel, name)

	if fs.IsHidden(name) && !w.opts.IncludeHidden {
		w.stats.Skipped++
		return pendingDir{}, false, nil
	}
	if w.exclude.Match(name, rel) {
		w.stats.Skipped++
		return pendingDir{}, false, nil
	}

	linkInfo, err := os.Lstat(abs)
	if err != nil {
		w.entryError(abs, err)
		return pendingDir{}, false, nil
	}
	info := linkInfo
	if linkInfo.Mode()&iofs.ModeSymlink != 0 {
		if !w.opts.FollowSymlinks {
			w.stats.Skipped++
			return pendingDir{}, false, nil
		}
		if info, err = os.Stat(abs); err != nil {
			w.entryError(abs, err)
			return pendingDir{}, false, nil
		}
	}

	parentID := w.dirIDs[dir.rel]
	switch {
	case info.IsDir():
		if w.opts.FollowSymlinks {
			real, err := filepath.EvalSymlinks(abs)
			if err != nil {
				w.entryError(abs, err)
				return pendingDir{}, false, nil
			}
			if w.visited[real] {
				w.stats.Skipped++
				return pendingDir{}, false, nil
			}
			w.visited[real] = true
		}
		id, err := w.store.UpsertDirectory(&katalog.Directory{
			VolumeID: w.volumeID,
			ParentID: parentID,
			Name:     name,
			FullPath: rel,
		})
		if err != nil {
			return pendingDir{}, false, w.storeError(abs, err)
		}
		w.dirIDs[rel] = id
		w.stats.Directories++
		if err := w.report(rel); err != nil {
			return pendingDir{}, false, err
		}
		if w.opts.MaxDepth < 0 || dir.depth+1 <= w.opts.MaxDepth {
			return pendingDir{abs: abs, rel: rel, depth: dir.depth + 1}, true, nil
		}
		return pendingDir{}, false, nil

	case info.Mode().IsRegular():
		if err := w.file(abs, name, parentID, linkInfo, info); err != nil {
			return pendingDir{}, false, err
		}
		return pendingDir{}, false, w.report(rel)

	default:
		w.stats.Skipped++
		return pendingDir{}, false, nil
	}
}

func (w *walk) file(abs, name string, dirID int64, linkInfo, info iofs.FileInfo) error {
	f := &katalog.File{
		DirectoryID: dirID,
		Name:        name,
		Size:        info.Size(),
		ModTime:     info.ModTime().UTC(),
		ChangeTime:  fs.ChangeTime(info).UTC(),
		Attrs:       fs.Attributes(name, linkInfo, info),
	}
	if w.classifier != nil {
		f.FileType = w.classifier.Classify(name)
	}
	if w.opts.ComputeHashes {
		hash, err := fs.HashFile(w.ctx, abs)
		if err != nil {
			if w.ctx.Err() != nil {
				return katalog.ErrCancelled
			}
			w.entryError(abs, err)
		}
		f.Hash = hash
	}

	fileID, err := w.store.UpsertFile(f)
	if err != nil {
		return w.storeError(abs, err)
	}
	w.stats.Files++
	w.stats.Bytes += f.Size

	if w.opts.ReadMediaTags && w.media != nil && w.media.Supports(name) {
		tags, err := w.media.ReadTags(abs)
		if err != nil {
			w.logger.Debug("no media tags", "path", abs, "error", err)
			return nil
		}
		for _, t := range tags {
			if err := w.store.AddTag(fileID, t.Key, t.Value); err != nil {
				return w.storeError(abs, err)
			}
		}
	}
	return nil
}

// report hands progress to the callback. A false return ends the scan.
func (w *walk) report(rel string) error {
	if w.progress == nil {
		return nil
	}
	if !w.progress(rel, w.stats) {
		if w.cancelRequested.Load() {
			return katalog.ErrCancelled
		}
		return katalog.ErrAborted
	}
	return nil
}

func (w *walk) entryError(abs string, err error) {
	w.stats.Errors++
	w.logger.Warn("skipping entry", "path", abs, "error", err)
}

// storeError ends the scan when the store is gone or the volume was deleted
// under it, and counts anything else against the entry.
func (w *walk) storeError(abs string, err error) error {
	if errors.Is(err, katalog.ErrStoreClosed) {
		return err
	}
	if errors.Is(err, katalog.ErrNotFound) {
		return fmt.Errorf("writing %s: volume %d no longer in catalog: %w", abs, w.volumeID, err)
	}
	w.entryError(abs, err)
	return nil
}
