package katalog

// Store is the persistent catalog. Every operation fails with
// ErrStoreClosed while no catalog is open. Lookups that find nothing
// return a nil value and a nil error.
type Store interface {
	Open(path string) error
	Close() error
	IsOpen() bool
	Path() string
	LastError() string
	SchemaVersion() (int, error)
	BackupTo(destPath string) error

	UpsertVolume(v *Volume) (int64, error)
	GetVolume(id int64) (*Volume, error)
	FindVolumeByFsUUID(fsUUID string) (*Volume, error)
	ListVolumes() ([]*Volume, error)
	RenameVolume(id int64, label string) error
	DeleteVolume(id int64) error
	ClearVolumeContents(volumeID int64) error

	UpsertDirectory(d *Directory) (int64, error)
	GetDirectory(id int64) (*Directory, error)
	ListDirectories(volumeID, parentID int64) ([]*Directory, error)

	UpsertFile(f *File) (int64, error)
	GetFile(id int64) (*File, error)
	DeleteFile(id int64) error
	ListFilesInDirectory(directoryID int64) ([]*File, error)
	ListAllFiles(volumeID int64) ([]*FileEntry, error)

	ProjectStats() (*ProjectStats, error)
	Search(query string, filters SearchFilters, limit, offset int) ([]*FileEntry, error)

	GetNote(target NoteTarget) (string, error)
	SetNote(target NoteTarget, content string) error

	AddTag(fileID int64, key, value string) error
	RemoveTag(fileID int64, key, value string) error
	TagsForFile(fileID int64) ([]*Tag, error)
	ListTags() ([]*Tag, error)

	CreateVirtualFolder(name string, parentID int64) (int64, error)
	RenameVirtualFolder(id int64, name string) error
	DeleteVirtualFolder(id int64) error
	GetVirtualFolder(id int64) (*VirtualFolder, error)
	ListVirtualFolders(parentID int64) ([]*VirtualFolder, error)
	AddFileToVirtualFolder(folderID, fileID int64) error
	RemoveFileFromVirtualFolder(folderID, fileID int64) error
	ListVirtualFolderItems(folderID int64) ([]*FileEntry, error)
}
