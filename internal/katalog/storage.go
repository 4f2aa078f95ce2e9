package katalog

import "path/filepath"

// StorageInfo is what the storage layer knows about the filesystem holding
// a path. Every field is best-effort and may be empty.
type StorageInfo struct {
	FsType      string
	FsUUID      string
	TotalBytes  int64
	DisplayName string
	MountPoint  string
}

// StorageInspector introspects the storage backing a path.
type StorageInspector interface {
	Inspect(path string) (StorageInfo, error)
}

// Classifier maps a file name to a MIME-like type string.
type Classifier interface {
	Classify(name string) string
}

// MediaTagReader extracts embedded metadata (artist, album, ...) from media
// files as catalog tags.
type MediaTagReader interface {
	Supports(name string) bool
	ReadTags(path string) ([]Tag, error)
}

// DescribeVolume derives a volume descriptor for rootPath. The label is the
// storage display name, else the root's base name, else the root path.
// Introspection failures leave the corresponding fields empty.
func DescribeVolume(inspector StorageInspector, rootPath string) *Volume {
	var info StorageInfo
	if inspector != nil {
		if i, err := inspector.Inspect(rootPath); err == nil {
			info = i
		}
	}

	label := info.DisplayName
	if label == "" {
		base := filepath.Base(rootPath)
		if base != "." && base != string(filepath.Separator) {
			label = base
		}
	}
	if label == "" {
		label = rootPath
	}

	return &Volume{
		Label:        label,
		FsUUID:       info.FsUUID,
		FsType:       info.FsType,
		PhysicalHint: rootPath,
		TotalSize:    info.TotalBytes,
	}
}
