package katalog

import "time"

// Volume is a unit of cataloged storage media. FsUUID is empty when the
// storage layer could not identify the device.
type Volume struct {
	ID           int64     `json:"id"`
	Label        string    `json:"label"`
	Description  string    `json:"description,omitempty"`
	FsUUID       string    `json:"fs_uuid,omitempty"`
	FsType       string    `json:"fs_type,omitempty"`
	PhysicalHint string    `json:"physical_hint,omitempty"`
	TotalSize    int64     `json:"total_size"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Directory is a node of a volume's tree. ParentID is 0 only for the
// volume's root, whose FullPath is "/".
type Directory struct {
	ID       int64  `json:"id"`
	VolumeID int64  `json:"volume_id"`
	ParentID int64  `json:"parent_id,omitempty"`
	Name     string `json:"name"`
	FullPath string `json:"full_path"`
}

// IsRoot reports whether d is the synthetic root of its volume.
func (d *Directory) IsRoot() bool { return d.ParentID == 0 }

// Attribute bits stored in File.Attrs.
const (
	AttrHidden uint32 = 1 << iota
	AttrSymlink
	AttrExecutable
	AttrReadOnly
)

// File is a cataloged regular file. ModTime and ChangeTime are zero when
// unknown.
type File struct {
	ID          int64     `json:"id"`
	DirectoryID int64     `json:"directory_id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"mtime"`
	ChangeTime  time.Time `json:"ctime"`
	FileType    string    `json:"file_type"`
	Hash        string    `json:"hash,omitempty"`
	Attrs       uint32    `json:"attrs"`
}

// FileEntry is a file row joined with its location, as returned by search
// and the flat listings.
type FileEntry struct {
	FileID      int64     `json:"file_id"`
	DirectoryID int64     `json:"directory_id"`
	VolumeID    int64     `json:"volume_id"`
	Name        string    `json:"name"`
	FullPath    string    `json:"full_path"`
	VolumeLabel string    `json:"volume_label"`
	FileType    string    `json:"file_type"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"mtime"`
}

// SearchFilters narrows a search. Zero values disable a filter.
type SearchFilters struct {
	VolumeID int64
	FileType string
}

// ProjectStats aggregates the whole catalog.
type ProjectStats struct {
	Volumes    int64 `json:"volumes"`
	Files      int64 `json:"files"`
	TotalBytes int64 `json:"total_bytes"`
}

// TargetType names what a note is attached to.
type TargetType string

const (
	TargetFile      TargetType = "file"
	TargetDirectory TargetType = "directory"
)

// Valid reports whether t is a known target type.
func (t TargetType) Valid() bool {
	return t == TargetFile || t == TargetDirectory
}

// NoteTarget identifies the row a note is attached to.
type NoteTarget struct {
	Type TargetType
	ID   int64
}

// Tag is a globally deduplicated key/value pair.
type Tag struct {
	ID    int64  `json:"id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// VirtualFolder is a user-curated grouping of files. ParentID is 0 for
// top-level folders.
type VirtualFolder struct {
	ID       int64  `json:"id"`
	ParentID int64  `json:"parent_id,omitempty"`
	Name     string `json:"name"`
}

// ProjectInfo describes the open catalog.
type ProjectInfo struct {
	OK          bool   `json:"ok"`
	Path        string `json:"path"`
	VolumeCount int64  `json:"volume_count"`
	FileCount   int64  `json:"file_count"`
	TotalBytes  int64  `json:"total_bytes"`
}
