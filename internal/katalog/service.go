package katalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ServiceConfig holds the values the service reads once at construction.
type ServiceConfig struct {
	// DefaultCatalogPath is opened lazily by StartScan when no catalog is open.
	DefaultCatalogPath string
	// ScanDefaults apply to StartScan. The zero value means
	// DefaultScanOptions.
	ScanDefaults ScanOptions
	// ProgressBatch is the number of processed entries between progress events.
	ProgressBatch  int
	QueueSize      int
	LabelCacheSize int
	LabelCacheTTL  time.Duration
}

// DefaultServiceConfig returns the defaults used when a field is left zero.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ScanDefaults:   DefaultScanOptions(),
		ProgressBatch:  100,
		QueueSize:      16,
		LabelCacheSize: 256,
		LabelCacheTTL:  time.Minute,
	}
}

// Service is the process-level facade over one catalog store and one
// scanner. Scans run as jobs on a single worker goroutine; queries go
// straight to the store and rely on its transactional isolation.
type Service struct {
	store     Store
	scanner   Scanner
	inspector StorageInspector
	logger    Logger
	clock     Clock
	cfg       ServiceConfig
	labels    *labelCache
	events    *broker

	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	queue  chan int64
	closed bool

	mu      sync.Mutex
	jobs    map[int64]*job
	nextID  int64
	running int64
}

// NewService creates a Service and starts its scan worker. The caller must
// call Close when done.
func NewService(store Store, scanner Scanner, inspector StorageInspector, logger Logger, clock Clock, cfg ServiceConfig) *Service {
	defaults := DefaultServiceConfig()
	if cfg.ScanDefaults.isZero() {
		cfg.ScanDefaults = defaults.ScanDefaults
	}
	if cfg.ProgressBatch <= 0 {
		cfg.ProgressBatch = defaults.ProgressBatch
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	if clock == nil {
		clock = RealClock{}
	}

	ctx, stop := context.WithCancel(context.Background())
	s := &Service{
		store:     store,
		scanner:   scanner,
		inspector: inspector,
		logger:    logger,
		clock:     clock,
		cfg:       cfg,
		labels:    newLabelCache(cfg.LabelCacheSize, cfg.LabelCacheTTL),
		events:    newBroker(),
		ctx:       ctx,
		stop:      stop,
		queue:     make(chan int64, cfg.QueueSize),
		jobs:      make(map[int64]*job),
	}

	s.wg.Add(1)
	go s.worker()
	return s
}

// Ping answers "pong".
func (s *Service) Ping() string { return "pong" }

// Subscribe returns a channel of scan events and a function that ends the
// subscription. The channel is closed when the service closes.
func (s *Service) Subscribe() (<-chan Event, func()) {
	return s.events.subscribe()
}

// Close cancels pending and running jobs, waits for the worker, and closes
// the store.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	var cancelled []Event
	for _, j := range s.jobs {
		if j.status == StatusPending {
			j.status = StatusCancelled
			j.err = "scan cancelled"
			cancelled = append(cancelled, finishedEvent(j))
		}
	}
	if s.running != 0 {
		s.scanner.RequestCancel()
	}
	close(s.queue)
	s.mu.Unlock()

	for _, ev := range cancelled {
		s.events.publish(ev)
	}
	s.stop()
	s.wg.Wait()
	s.events.close()

	if err := s.store.Close(); err != nil {
		return fmt.Errorf("closing catalog: %w", err)
	}
	return nil
}

// OpenProject opens (creating if needed) the catalog at path. On failure the
// previously open catalog stays open.
func (s *Service) OpenProject(path string) (ProjectInfo, error) {
	if s.scanActive() {
		return ProjectInfo{}, ErrScanInProgress
	}

	cleaned := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleaned), 0755); err != nil {
		return ProjectInfo{Path: cleaned}, fmt.Errorf("creating catalog directory: %w", err)
	}
	if err := s.store.Open(cleaned); err != nil {
		s.logger.Error("open catalog failed", "path", cleaned, "error", err)
		return ProjectInfo{Path: cleaned}, fmt.Errorf("opening catalog: %w", err)
	}
	s.labels.purge()
	s.logger.Info("catalog opened", "path", cleaned)
	return s.GetProjectInfo(), nil
}

// GetProjectInfo reports the open catalog. OK is false when no catalog is
// open or its stats cannot be read.
func (s *Service) GetProjectInfo() ProjectInfo {
	info := ProjectInfo{Path: s.store.Path()}
	if !s.store.IsOpen() {
		return info
	}
	stats, err := s.store.ProjectStats()
	if err != nil {
		s.logger.Warn("reading project stats", "error", err)
		return info
	}
	info.OK = true
	info.VolumeCount = stats.Volumes
	info.FileCount = stats.Files
	info.TotalBytes = stats.TotalBytes
	return info
}

// StartScan queues a scan of rootPath with the configured scan defaults and
// returns its job id.
func (s *Service) StartScan(rootPath string) (int64, error) {
	return s.StartScanWithOptions(rootPath, s.cfg.ScanDefaults)
}

// StartScanWithOptions queues a scan of rootPath with explicit options.
func (s *Service) StartScanWithOptions(rootPath string, opts ScanOptions) (int64, error) {
	if strings.TrimSpace(rootPath) == "" {
		return 0, fmt.Errorf("%w: empty root path", ErrInvalidArgument)
	}
	root, err := filepath.Abs(rootPath)
	if err != nil {
		return 0, fmt.Errorf("resolving root path: %w", err)
	}
	if s.isClosed() {
		return 0, ErrServiceClosed
	}

	if !s.store.IsOpen() {
		if s.cfg.DefaultCatalogPath == "" {
			return 0, ErrStoreClosed
		}
		if _, err := s.OpenProject(s.cfg.DefaultCatalogPath); err != nil {
			return 0, err
		}
	}

	vol := DescribeVolume(s.inspector, root)
	existing := false
	if vol.FsUUID != "" {
		known, err := s.store.FindVolumeByFsUUID(vol.FsUUID)
		if err != nil {
			s.logger.Warn("looking up volume by fs uuid", "fs_uuid", vol.FsUUID, "error", err)
		}
		if known != nil {
			vol.ID = known.ID
			vol.CreatedAt = known.CreatedAt
			vol.Description = known.Description
			existing = true
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrServiceClosed
	}

	s.nextID++
	j := &job{
		id:       s.nextID,
		rootPath: root,
		volume:   *vol,
		existing: existing,
		opts:     opts,
		status:   StatusPending,
	}
	select {
	case s.queue <- j.id:
	default:
		return 0, ErrQueueFull
	}
	s.jobs[j.id] = j

	s.logger.Info("scan queued", "job", j.id, "root", root, "volume", vol.Label, "existing", existing)
	return j.id, nil
}

// CancelScan marks a pending or running job cancelled. It returns false for
// unknown ids and for jobs that already finished or failed.
func (s *Service) CancelScan(id int64) bool {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	switch j.status {
	case StatusCancelled:
		s.mu.Unlock()
		return true
	case StatusFinished, StatusFailed:
		s.mu.Unlock()
		return false
	}

	wasPending := j.status == StatusPending
	j.status = StatusCancelled
	j.err = "scan cancelled"
	if s.running == id {
		s.scanner.RequestCancel()
		if j.cancel != nil {
			j.cancel()
		}
	}
	var ev Event
	if wasPending {
		ev = finishedEvent(j)
	}
	s.mu.Unlock()

	s.logger.Info("scan cancel requested", "job", id, "pending", wasPending)
	if wasPending {
		s.events.publish(ev)
	}
	return true
}

// GetScanStatus reports a job. Unknown ids report StatusUnknown.
func (s *Service) GetScanStatus(id int64) ScanStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return ScanStatus{JobID: id, Status: StatusUnknown}
	}
	return j.snapshot()
}

// ListJobs returns every job issued by this service, oldest first.
func (s *Service) ListJobs() []ScanStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScanStatus, 0, len(s.jobs))
	for id := int64(1); id <= s.nextID; id++ {
		if j, ok := s.jobs[id]; ok {
			out = append(out, j.snapshot())
		}
	}
	return out
}

func (s *Service) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Service) scanActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.status == StatusPending || j.status == StatusRunning {
			return true
		}
	}
	return false
}

func (s *Service) worker() {
	defer s.wg.Done()
	for id := range s.queue {
		s.runJob(id)
	}
}

func (s *Service) runJob(id int64) {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok || j.status != StatusPending {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	j.cancel = cancel
	j.status = StatusRunning
	s.running = id
	vol := j.volume
	existing := j.existing
	opts := j.opts
	root := j.rootPath
	start := progressEvent(j, "")
	s.mu.Unlock()

	s.logger.Info("scan started", "job", id, "root", root)
	s.events.publish(start)

	if existing {
		if err := s.store.ClearVolumeContents(vol.ID); err != nil {
			s.finish(id, ScanStats{}, fmt.Errorf("clearing volume %d: %w", vol.ID, err))
			return
		}
		s.logger.Info("cleared volume before rescan", "job", id, "volume", vol.ID)
	}
	s.labels.forget(vol.ID)

	// vol.ID is set once the scanner has stored the volume.
	stats, err := s.scanner.Scan(ctx, root, &vol, opts, func(path string, st ScanStats) bool {
		return s.onProgress(id, vol.ID, path, st)
	})

	s.mu.Lock()
	j.volume.ID = vol.ID
	s.mu.Unlock()
	s.finish(id, stats, err)
}

func (s *Service) onProgress(id, volumeID int64, path string, stats ScanStats) bool {
	s.mu.Lock()
	j := s.jobs[id]
	if j.status != StatusRunning {
		s.mu.Unlock()
		return false
	}
	if volumeID > 0 {
		j.volume.ID = volumeID
	}
	j.stats = stats
	var ev Event
	emit := stats.Processed()-j.lastPublished >= int64(s.cfg.ProgressBatch)
	if emit {
		j.lastPublished = stats.Processed()
		ev = progressEvent(j, path)
	}
	s.mu.Unlock()

	if emit {
		s.events.publish(ev)
	}
	return true
}

func (s *Service) finish(id int64, stats ScanStats, scanErr error) {
	s.mu.Lock()
	j := s.jobs[id]
	j.stats = stats
	if !j.status.IsTerminal() {
		switch {
		case scanErr == nil:
			j.status = StatusFinished
		case errors.Is(scanErr, ErrCancelled), errors.Is(scanErr, ErrAborted), s.scanner.CancelRequested():
			j.status = StatusCancelled
			j.err = "scan cancelled"
		default:
			j.status = StatusFailed
			j.err = scanErr.Error()
		}
	}
	s.running = 0
	j.cancel = nil
	ev := finishedEvent(j)
	status := j.status
	s.mu.Unlock()

	switch status {
	case StatusFailed:
		s.logger.Error("scan failed", "job", id, "error", scanErr, "files", stats.Files)
	default:
		s.logger.Info("scan ended", "job", id, "status", string(status),
			"directories", stats.Directories, "files", stats.Files, "bytes", stats.Bytes)
	}
	s.events.publish(ev)
}

func progressEvent(j *job, path string) Event {
	return Event{Kind: EventProgress, JobID: j.id, Path: path, Status: j.status, ScanStats: j.stats}
}

func finishedEvent(j *job) Event {
	return Event{Kind: EventFinished, JobID: j.id, Status: j.status, ScanStats: j.stats}
}
