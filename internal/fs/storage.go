package fs

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// mountEntry is one line of /proc/self/mountinfo.
type mountEntry struct {
	mountPoint string
	fsType     string
	source     string
}

// parseMountInfo reads mountinfo lines:
//
//	36 35 98:0 /mnt1 /mnt2 rw,noatime master:1 - ext3 /dev/root rw,errors=continue
//
// Field 5 is the mount point; after the " - " separator come the filesystem
// type and the mount source.
func parseMountInfo(r io.Reader) ([]mountEntry, error) {
	var out []mountEntry
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		pre, post, ok := strings.Cut(sc.Text(), " - ")
		if !ok {
			continue
		}
		left := strings.Fields(pre)
		right := strings.Fields(post)
		if len(left) < 5 || len(right) < 2 {
			continue
		}
		out = append(out, mountEntry{
			mountPoint: unescapeOctal(left[4]),
			fsType:     right[0],
			source:     unescapeOctal(right[1]),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading mountinfo: %w", err)
	}
	return out, nil
}

// findMount returns the entry with the longest mount point containing path.
// Later entries win ties, matching overmounts.
func findMount(entries []mountEntry, path string) (mountEntry, bool) {
	var (
		best  mountEntry
		found bool
	)
	for _, e := range entries {
		if !within(e.mountPoint, path) {
			continue
		}
		if !found || len(e.mountPoint) >= len(best.mountPoint) {
			best, found = e, true
		}
	}
	return best, found
}

func within(mountPoint, path string) bool {
	if mountPoint == "/" {
		return strings.HasPrefix(path, "/")
	}
	return path == mountPoint || strings.HasPrefix(path, mountPoint+"/")
}

// unescapeOctal decodes the \NNN escapes the kernel uses for spaces and
// other special bytes in mount paths.
func unescapeOctal(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+4 <= len(s) {
			if n, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(n))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// unescapeHex decodes the \xNN escapes udev uses in /dev/disk/by-label names.
func unescapeHex(s string) string {
	if !strings.Contains(s, `\x`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+4 <= len(s) && s[i+1] == 'x' {
			if n, err := strconv.ParseUint(s[i+2:i+4], 16, 8); err == nil {
				b.WriteByte(byte(n))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// linkNameFor returns the name of the entry in dir that resolves to device,
// as found in /dev/disk/by-uuid and /dev/disk/by-label.
func linkNameFor(dir, device string) string {
	want, err := filepath.EvalSymlinks(device)
	if err != nil {
		return ""
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		got, err := filepath.EvalSymlinks(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		if got == want {
			return e.Name()
		}
	}
	return ""
}
