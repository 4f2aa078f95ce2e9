package fs

import (
	iofs "io/fs"
	"strings"

	"katalog/internal/katalog"
)

// IsHidden reports whether name is a dot file.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// Attributes derives the catalog attribute bits for an entry. linkInfo is
// the Lstat result and info the followed Stat result; they are the same for
// entries that are not symlinks.
func Attributes(name string, linkInfo, info iofs.FileInfo) uint32 {
	var attrs uint32
	if IsHidden(name) {
		attrs |= katalog.AttrHidden
	}
	if linkInfo != nil && linkInfo.Mode()&iofs.ModeSymlink != 0 {
		attrs |= katalog.AttrSymlink
	}
	if info != nil {
		perm := info.Mode().Perm()
		if !info.IsDir() && perm&0o111 != 0 {
			attrs |= katalog.AttrExecutable
		}
		if perm&0o222 == 0 {
			attrs |= katalog.AttrReadOnly
		}
	}
	return attrs
}
