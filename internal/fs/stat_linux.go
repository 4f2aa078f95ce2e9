//go:build linux

package fs

import (
	iofs "io/fs"
	"syscall"
	"time"
)

// ChangeTime returns the inode change time of info, or the zero time when
// the platform stat data is unavailable.
func ChangeTime(info iofs.FileInfo) time.Time {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return time.Time{}
	}
	return time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec)
}
