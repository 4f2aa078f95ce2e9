package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"katalog/internal/katalog"
)

type pingResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pingResponse{Reply: s.svc.Ping()})
}

type openProjectRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleOpenProject(w http.ResponseWriter, r *http.Request) {
	var req openProjectRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Path == "" {
		writeError(w, r, badRequest("path is required"))
		return
	}
	info, err := s.svc.OpenProject(req.Path)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleProjectInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.GetProjectInfo())
}

type startScanRequest struct {
	RootPath string               `json:"root_path"`
	Options  *katalog.ScanOptions `json:"options,omitempty"`
}

type startScanResponse struct {
	JobID int64 `json:"job_id"`
}

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	var req startScanRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var (
		id  int64
		err error
	)
	if req.Options != nil {
		id, err = s.svc.StartScanWithOptions(req.RootPath, *req.Options)
	} else {
		id, err = s.svc.StartScan(req.RootPath)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, startScanResponse{JobID: id})
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.ListJobs())
}

func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.GetScanStatus(id))
}

type cancelScanResponse struct {
	Cancelled bool `json:"cancelled"`
}

func (s *Server) handleCancelScan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelScanResponse{Cancelled: s.svc.CancelScan(id)})
}

func (s *Server) handleListVolumes(w http.ResponseWriter, r *http.Request) {
	vols, err := s.svc.ListVolumes()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(vols))
}

func (s *Server) handleGetVolume(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.svc.GetVolume(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if v == nil {
		writeError(w, r, katalog.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type renameRequest struct {
	Label string `json:"label"`
	Name  string `json:"name"`
}

func (s *Server) handleRenameVolume(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req renameRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.RenameVolume(id, req.Label); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.svc.GetVolume(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleDeleteVolume(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.DeleteVolume(id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListDirectories(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	parent, err := queryInt(r, "parent")
	if err != nil {
		writeError(w, r, err)
		return
	}
	dirs, err := s.svc.ListDirectories(id, parent)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(dirs))
}

func (s *Server) handleListVolumeFiles(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	files, err := s.svc.ListAllFiles(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(files))
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	files, err := s.svc.ListFiles(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(files))
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := s.svc.GetFile(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if f == nil {
		writeError(w, r, katalog.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

type pageParams struct {
	limit, offset int
}

func page(r *http.Request) (pageParams, error) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		return pageParams{}, err
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		return pageParams{}, err
	}
	if limit < 0 || offset < 0 {
		return pageParams{}, badRequest("limit and offset must not be negative")
	}
	return pageParams{limit: int(limit), offset: int(offset)}, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	p, err := page(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	volume, err := queryInt(r, "volume")
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	results, err := s.svc.Search(q.Get("q"), volume, q.Get("type"), p.limit, p.offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(results))
}

func (s *Server) handleSearchByName(w http.ResponseWriter, r *http.Request) {
	p, err := page(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	results, err := s.svc.SearchByName(r.URL.Query().Get("q"), p.limit, p.offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(results))
}

type noteBody struct {
	Content string `json:"content"`
}

func noteTarget(r *http.Request) (katalog.NoteTarget, error) {
	t := katalog.TargetType(chi.URLParam(r, "target"))
	if !t.Valid() {
		return katalog.NoteTarget{}, badRequest("invalid note target %q", t)
	}
	id, err := pathID(r, "id")
	if err != nil {
		return katalog.NoteTarget{}, err
	}
	return katalog.NoteTarget{Type: t, ID: id}, nil
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	target, err := noteTarget(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	content, err := s.svc.GetNote(target)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, noteBody{Content: content})
}

func (s *Server) handleSetNote(w http.ResponseWriter, r *http.Request) {
	target, err := noteTarget(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req noteBody
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.SetNote(target, req.Content); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type tagRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (s *Server) handleFileTags(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tags, err := s.svc.TagsForFile(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tags))
}

func (s *Server) handleAddTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req tagRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.AddTag(id, req.Key, req.Value); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	if err := s.svc.RemoveTag(id, q.Get("key"), q.Get("value")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.svc.ListTags()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tags))
}

type createFolderRequest struct {
	Name     string `json:"name"`
	ParentID int64  `json:"parent_id"`
}

type createFolderResponse struct {
	ID int64 `json:"id"`
}

func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	parent, err := queryInt(r, "parent")
	if err != nil {
		writeError(w, r, err)
		return
	}
	folders, err := s.svc.ListVirtualFolders(parent)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(folders))
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := s.svc.CreateVirtualFolder(req.Name, req.ParentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createFolderResponse{ID: id})
}

func (s *Server) handleGetFolder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := s.svc.GetVirtualFolder(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if f == nil {
		writeError(w, r, katalog.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleRenameFolder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req renameRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.RenameVirtualFolder(id, req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.DeleteVirtualFolder(id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFolderItems(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := s.svc.ListVirtualFolderItems(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

func folderItem(r *http.Request) (folderID, fileID int64, err error) {
	if folderID, err = pathID(r, "id"); err != nil {
		return 0, 0, err
	}
	if fileID, err = pathID(r, "fileID"); err != nil {
		return 0, 0, err
	}
	return folderID, fileID, nil
}

func (s *Server) handleAddFolderItem(w http.ResponseWriter, r *http.Request) {
	folderID, fileID, err := folderItem(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.AddFileToVirtualFolder(folderID, fileID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveFolderItem(w http.ResponseWriter, r *http.Request) {
	folderID, fileID, err := folderItem(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.RemoveFileFromVirtualFolder(folderID, fileID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
