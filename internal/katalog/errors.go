package katalog

import "errors"

var (
	// ErrStoreClosed is returned by every store operation while no catalog is open.
	ErrStoreClosed = errors.New("catalog store is not open")
	// ErrSchemaIncompatible is returned when a catalog was written by a newer schema.
	ErrSchemaIncompatible = errors.New("incompatible catalog: newer schema")
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")

	// ErrInvalidRoot is returned when a scan root does not exist or is not a directory.
	ErrInvalidRoot = errors.New("scan root is not a directory")
	// ErrCancelled means the scan stopped because cancellation was requested.
	ErrCancelled = errors.New("scan cancelled")
	// ErrAborted means the scan stopped because its progress callback asked it to.
	ErrAborted = errors.New("scan aborted by progress callback")

	ErrJobNotFound    = errors.New("scan job not found")
	ErrQueueFull      = errors.New("scan queue is full")
	ErrScanInProgress = errors.New("a scan is in progress")
	ErrServiceClosed  = errors.New("service is closed")
)
