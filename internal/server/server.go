// Package server exposes the catalog service over HTTP/JSON.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"katalog/internal/katalog"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP transport over one katalog.Service.
type Server struct {
	svc        *katalog.Service
	logger     katalog.Logger
	router     chi.Router
	httpServer *http.Server
}

// New builds the router. ids generates request ids.
func New(addr string, svc *katalog.Service, logger katalog.Logger, ids katalog.IDGenerator) *Server {
	if logger == nil {
		logger = katalog.NewNopLogger()
	}
	if ids == nil {
		ids = katalog.UUIDGenerator{}
	}
	s := &Server{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(RequestID(ids), RequestLogger(logger), Metrics())
	s.routes(r)
	s.router = r

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes(r chi.Router) {
	r.Get("/ping", s.handlePing)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/events", s.handleEvents)

	r.Route("/project", func(r chi.Router) {
		r.Get("/", s.handleProjectInfo)
		r.Post("/open", s.handleOpenProject)
	})

	r.Route("/scans", func(r chi.Router) {
		r.Get("/", s.handleListScans)
		r.Post("/", s.handleStartScan)
		r.Get("/{id}", s.handleScanStatus)
		r.Delete("/{id}", s.handleCancelScan)
	})

	r.Route("/volumes", func(r chi.Router) {
		r.Get("/", s.handleListVolumes)
		r.Get("/{id}", s.handleGetVolume)
		r.Patch("/{id}", s.handleRenameVolume)
		r.Delete("/{id}", s.handleDeleteVolume)
		r.Get("/{id}/directories", s.handleListDirectories)
		r.Get("/{id}/files", s.handleListVolumeFiles)
	})

	r.Get("/directories/{id}/files", s.handleListFiles)

	r.Route("/files/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetFile)
		r.Get("/tags", s.handleFileTags)
		r.Post("/tags", s.handleAddTag)
		r.Delete("/tags", s.handleRemoveTag)
	})

	r.Get("/search", s.handleSearch)
	r.Get("/search/name", s.handleSearchByName)

	r.Get("/notes/{target}/{id}", s.handleGetNote)
	r.Put("/notes/{target}/{id}", s.handleSetNote)

	r.Get("/tags", s.handleListTags)

	r.Route("/folders", func(r chi.Router) {
		r.Get("/", s.handleListFolders)
		r.Post("/", s.handleCreateFolder)
		r.Get("/{id}", s.handleGetFolder)
		r.Patch("/{id}", s.handleRenameFolder)
		r.Delete("/{id}", s.handleDeleteFolder)
		r.Get("/{id}/items", s.handleFolderItems)
		r.Put("/{id}/items/{fileID}", s.handleAddFolderItem)
		r.Delete("/{id}/items/{fileID}", s.handleRemoveFolderItem)
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully. Request
// contexts derive from ctx so open event streams end with it.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
