//go:build !linux

package fs

import (
	iofs "io/fs"
	"time"
)

// ChangeTime is not tracked on this platform.
func ChangeTime(info iofs.FileInfo) time.Time {
	return time.Time{}
}
