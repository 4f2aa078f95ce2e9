//go:build linux

package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"katalog/internal/katalog"
)

// Inspector reports filesystem type, UUID, label and capacity for a path
// using statfs, the mount table and udev's /dev/disk links.
type Inspector struct {
	MountInfoPath string
	ByUUIDDir     string
	ByLabelDir    string
}

var _ katalog.StorageInspector = (*Inspector)(nil)

// NewInspector creates an Inspector reading the live system tables.
func NewInspector() *Inspector {
	return &Inspector{
		MountInfoPath: "/proc/self/mountinfo",
		ByUUIDDir:     "/dev/disk/by-uuid",
		ByLabelDir:    "/dev/disk/by-label",
	}
}

// Inspect returns what can be learned about the storage holding path. Only
// a failing statfs is an error; missing mount or udev data leaves fields
// empty.
func (i *Inspector) Inspect(path string) (katalog.StorageInfo, error) {
	var info katalog.StorageInfo

	abs, err := filepath.Abs(path)
	if err != nil {
		return info, fmt.Errorf("resolving %s: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	var st unix.Statfs_t
	if err := unix.Statfs(abs, &st); err != nil {
		return info, fmt.Errorf("statfs %s: %w", abs, err)
	}
	info.TotalBytes = int64(st.Blocks) * int64(st.Bsize)

	f, err := os.Open(i.MountInfoPath)
	if err != nil {
		return info, nil
	}
	defer f.Close()
	mounts, err := parseMountInfo(f)
	if err != nil {
		return info, nil
	}
	m, ok := findMount(mounts, abs)
	if !ok {
		return info, nil
	}
	info.FsType = m.fsType
	info.MountPoint = m.mountPoint

	if strings.HasPrefix(m.source, "/") {
		info.FsUUID = linkNameFor(i.ByUUIDDir, m.source)
		info.DisplayName = unescapeHex(linkNameFor(i.ByLabelDir, m.source))
	}
	return info, nil
}
