package katalog

import (
	"fmt"
	"path"
)

// Query and mutation facade over the open store.

func (s *Service) ListVolumes() ([]*Volume, error) {
	return s.store.ListVolumes()
}

func (s *Service) GetVolume(id int64) (*Volume, error) {
	return s.store.GetVolume(id)
}

// RenameVolume changes a volume's label.
func (s *Service) RenameVolume(id int64, label string) error {
	if err := s.store.RenameVolume(id, label); err != nil {
		return err
	}
	s.labels.forget(id)
	s.logger.Info("volume renamed", "volume", id, "label", label)
	return nil
}

// DeleteVolume removes a volume and everything cataloged under it. It is
// refused while a job for that volume is pending or running.
func (s *Service) DeleteVolume(id int64) error {
	s.mu.Lock()
	for _, j := range s.jobs {
		if j.volume.ID == id && !j.status.IsTerminal() {
			s.mu.Unlock()
			return ErrScanInProgress
		}
	}
	s.mu.Unlock()

	if err := s.store.DeleteVolume(id); err != nil {
		return err
	}
	s.labels.forget(id)
	s.logger.Info("volume deleted", "volume", id)
	return nil
}

// ListDirectories lists the children of parentID within a volume; parentID
// 0 lists the volume's root-level directories.
func (s *Service) ListDirectories(volumeID, parentID int64) ([]*Directory, error) {
	return s.store.ListDirectories(volumeID, parentID)
}

// ListFiles lists a directory's files decorated with their full path and
// volume label.
func (s *Service) ListFiles(directoryID int64) ([]*FileEntry, error) {
	dir, err := s.store.GetDirectory(directoryID)
	if err != nil {
		return nil, err
	}
	if dir == nil {
		return nil, fmt.Errorf("directory %d: %w", directoryID, ErrNotFound)
	}

	label, err := s.labels.get(dir.VolumeID, s.volumeLabel)
	if err != nil {
		return nil, err
	}

	files, err := s.store.ListFilesInDirectory(directoryID)
	if err != nil {
		return nil, err
	}
	out := make([]*FileEntry, 0, len(files))
	for _, f := range files {
		out = append(out, &FileEntry{
			FileID:      f.ID,
			DirectoryID: f.DirectoryID,
			VolumeID:    dir.VolumeID,
			Name:        f.Name,
			FullPath:    path.Join(dir.FullPath, f.Name),
			VolumeLabel: label,
			FileType:    f.FileType,
			Size:        f.Size,
			ModTime:     f.ModTime,
		})
	}
	return out, nil
}

func (s *Service) volumeLabel(id int64) (string, error) {
	v, err := s.store.GetVolume(id)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", fmt.Errorf("volume %d: %w", id, ErrNotFound)
	}
	return v.Label, nil
}

// ListAllFiles lists every file, optionally restricted to one volume
// (volumeID > 0).
func (s *Service) ListAllFiles(volumeID int64) ([]*FileEntry, error) {
	return s.store.ListAllFiles(volumeID)
}

// GetFile returns a single file row.
func (s *Service) GetFile(id int64) (*File, error) {
	return s.store.GetFile(id)
}

// Search runs a prefix search over file names and paths. volumeID <= 0 and
// an empty fileType disable the respective filter.
func (s *Service) Search(query string, volumeID int64, fileType string, limit, offset int) ([]*FileEntry, error) {
	if volumeID < 0 {
		volumeID = 0
	}
	return s.store.Search(query, SearchFilters{VolumeID: volumeID, FileType: fileType}, limit, offset)
}

// SearchByName searches names and paths across the whole catalog.
func (s *Service) SearchByName(query string, limit, offset int) ([]*FileEntry, error) {
	return s.store.Search(query, SearchFilters{}, limit, offset)
}

func (s *Service) GetNote(target NoteTarget) (string, error) {
	return s.store.GetNote(target)
}

// SetNote stores a note; empty content removes it.
func (s *Service) SetNote(target NoteTarget, content string) error {
	return s.store.SetNote(target, content)
}

func (s *Service) AddTag(fileID int64, key, value string) error {
	return s.store.AddTag(fileID, key, value)
}

func (s *Service) RemoveTag(fileID int64, key, value string) error {
	return s.store.RemoveTag(fileID, key, value)
}

func (s *Service) TagsForFile(fileID int64) ([]*Tag, error) {
	return s.store.TagsForFile(fileID)
}

func (s *Service) ListTags() ([]*Tag, error) {
	return s.store.ListTags()
}

func (s *Service) CreateVirtualFolder(name string, parentID int64) (int64, error) {
	return s.store.CreateVirtualFolder(name, parentID)
}

func (s *Service) RenameVirtualFolder(id int64, name string) error {
	return s.store.RenameVirtualFolder(id, name)
}

func (s *Service) DeleteVirtualFolder(id int64) error {
	return s.store.DeleteVirtualFolder(id)
}

func (s *Service) GetVirtualFolder(id int64) (*VirtualFolder, error) {
	return s.store.GetVirtualFolder(id)
}

func (s *Service) ListVirtualFolders(parentID int64) ([]*VirtualFolder, error) {
	return s.store.ListVirtualFolders(parentID)
}

func (s *Service) AddFileToVirtualFolder(folderID, fileID int64) error {
	return s.store.AddFileToVirtualFolder(folderID, fileID)
}

func (s *Service) RemoveFileFromVirtualFolder(folderID, fileID int64) error {
	return s.store.RemoveFileFromVirtualFolder(folderID, fileID)
}

func (s *Service) ListVirtualFolderItems(folderID int64) ([]*FileEntry, error) {
	return s.store.ListVirtualFolderItems(folderID)
}

// BackupTo writes a consistent copy of the open catalog to destPath.
func (s *Service) BackupTo(destPath string) error {
	return s.store.BackupTo(destPath)
}
