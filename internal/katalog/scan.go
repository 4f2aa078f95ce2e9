package katalog

import "context"

// ScanOptions controls a single scan. MaxDepth < 0 means unlimited; 0 means
// only the root's immediate children.
type ScanOptions struct {
	MaxDepth        int      `json:"max_depth"`
	FollowSymlinks  bool     `json:"follow_symlinks"`
	IncludeHidden   bool     `json:"include_hidden"`
	ComputeHashes   bool     `json:"compute_hashes"`
	ReadMediaTags   bool     `json:"read_media_tags"`
	ExcludePatterns []string `json:"exclude_patterns,omitempty"`
}

// DefaultScanOptions returns unlimited depth with every optional step off.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{MaxDepth: -1}
}

func (o ScanOptions) isZero() bool {
	return o.MaxDepth == 0 && !o.FollowSymlinks && !o.IncludeHidden &&
		!o.ComputeHashes && !o.ReadMediaTags && len(o.ExcludePatterns) == 0
}

// ScanStats are cumulative counters of a scan.
type ScanStats struct {
	Directories int64 `json:"directories"`
	Files       int64 `json:"files"`
	Bytes       int64 `json:"bytes"`
	Skipped     int64 `json:"skipped"`
	Errors      int64 `json:"errors"`
}

// Processed is the number of entries written to the store.
func (s ScanStats) Processed() int64 { return s.Directories + s.Files }

// ProgressFunc receives the volume-relative path of the entry just processed
// and the cumulative stats. Returning false stops the scan.
type ProgressFunc func(currentPath string, stats ScanStats) bool

// ScanState is the lifecycle of a Scanner.
type ScanState int32

const (
	ScanIdle ScanState = iota
	ScanRunning
	ScanCompleted
	ScanCancelled
	ScanFailed
)

func (s ScanState) String() string {
	switch s {
	case ScanIdle:
		return "idle"
	case ScanRunning:
		return "running"
	case ScanCompleted:
		return "completed"
	case ScanCancelled:
		return "cancelled"
	case ScanFailed:
		return "failed"
	}
	return "unknown"
}

// Scanner walks a root path into the store. Scan returns ErrCancelled when
// cancellation was requested, ErrAborted when the progress callback stopped
// it, and any other error on failure.
type Scanner interface {
	Scan(ctx context.Context, rootPath string, vol *Volume, opts ScanOptions, progress ProgressFunc) (ScanStats, error)
	RequestCancel()
	CancelRequested() bool
	State() ScanState
}
