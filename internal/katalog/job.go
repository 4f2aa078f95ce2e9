package katalog

import "context"

// JobStatus is the lifecycle of a scan job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusFinished  JobStatus = "finished"
	StatusCancelled JobStatus = "cancelled"
	StatusFailed    JobStatus = "failed"
	// StatusUnknown is reported for job ids that were never issued.
	StatusUnknown JobStatus = "unknown"
)

// IsTerminal reports whether the status can no longer change.
func (s JobStatus) IsTerminal() bool {
	return s == StatusFinished || s == StatusCancelled || s == StatusFailed
}

// ScanStatus is the externally visible state of a job.
type ScanStatus struct {
	JobID    int64     `json:"job_id"`
	RootPath string    `json:"root_path,omitempty"`
	VolumeID int64     `json:"volume_id,omitempty"`
	Status   JobStatus `json:"status"`
	ScanStats
	Error string `json:"error,omitempty"`
}

type job struct {
	id       int64
	rootPath string
	volume   Volume
	existing bool
	opts     ScanOptions

	status JobStatus
	stats  ScanStats
	err    string

	cancel        context.CancelFunc
	lastPublished int64
}

func (j *job) snapshot() ScanStatus {
	return ScanStatus{
		JobID:     j.id,
		RootPath:  j.rootPath,
		VolumeID:  j.volume.ID,
		Status:    j.status,
		ScanStats: j.stats,
		Error:     j.err,
	}
}
