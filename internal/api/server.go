// Package api exposes the application over a REST JSON surface.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"ytwatch/internal/backup"
	"ytwatch/internal/ingest"
	"ytwatch/internal/storage"
)

// Rescheduler is notified after a settings update so schedule changes
// take effect without a restart.
type Rescheduler interface {
	Reschedule(ctx context.Context) error
}

// Server wires the service layer to HTTP routes.
type Server struct {
	store   storage.Storage
	ingest  *ingest.Service
	backups *backup.Service
	resched Rescheduler
	log     *slog.Logger
	mux     *http.ServeMux
}

// New creates the HTTP server. resched may be nil when no scheduler
// is running.
func New(store storage.Storage, svc *ingest.Service, backups *backup.Service, resched Rescheduler, log *slog.Logger) *Server {
	s := &Server{
		store:   store,
		ingest:  svc,
		backups: backups,
		resched: resched,
		log:     log,
	}
	s.routes()
	return s
}

// Handler returns the root handler with request logging attached.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

func (s *Server) routes() {
	s.mux = http.NewServeMux()

	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	s.mux.HandleFunc("GET /api/channels", s.handleListChannels)
	s.mux.HandleFunc("POST /api/channels", s.handleAddChannel)
	s.mux.HandleFunc("POST /api/channels/refresh-all", s.handleRefreshAll)
	s.mux.HandleFunc("GET /api/channels/{id}", s.handleGetChannel)
	s.mux.HandleFunc("DELETE /api/channels/{id}", s.handleDeleteChannel)
	s.mux.HandleFunc("POST /api/channels/{id}/refresh", s.handleRefreshChannel)

	s.mux.HandleFunc("GET /api/videos", s.handleListVideos)
	s.mux.HandleFunc("POST /api/videos/bulk-save", s.handleBulkSave)
	s.mux.HandleFunc("POST /api/videos/bulk-discard", s.handleBulkDiscard)
	s.mux.HandleFunc("DELETE /api/videos/discarded", s.handlePurgeDiscarded)
	s.mux.HandleFunc("POST /api/videos/from-url", s.handleAddVideoFromURL)
	s.mux.HandleFunc("POST /api/videos/detect-shorts", s.handleDetectShorts)
	s.mux.HandleFunc("GET /api/videos/{id}", s.handleGetVideo)
	s.mux.HandleFunc("DELETE /api/videos/{id}", s.handleDeleteVideo)
	s.mux.HandleFunc("POST /api/videos/{id}/save", s.handleSaveVideo)
	s.mux.HandleFunc("POST /api/videos/{id}/discard", s.handleDiscardVideo)
	s.mux.HandleFunc("POST /api/videos/{id}/restore", s.handleRestoreVideo)
	s.mux.HandleFunc("POST /api/videos/{id}/detect-short", s.handleDetectShort)

	s.mux.HandleFunc("GET /api/export/channels", s.handleExportChannels)
	s.mux.HandleFunc("GET /api/export/videos", s.handleExportVideos)
	s.mux.HandleFunc("GET /api/export/all", s.handleExportAll)
	s.mux.HandleFunc("POST /api/import/channels", s.handleImportChannels)
	s.mux.HandleFunc("POST /api/import/videos", s.handleImportVideos)
	s.mux.HandleFunc("POST /api/import/video-urls", s.handleImportVideoURLs)
	s.mux.HandleFunc("POST /api/import/playlist", s.handleImportPlaylist)

	s.mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	s.mux.HandleFunc("PUT /api/settings", s.handleUpdateSettings)

	s.mux.HandleFunc("GET /api/backups", s.handleListBackups)
	s.mux.HandleFunc("POST /api/backups/run", s.handleRunBackup)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond).String(),
		)
	})
}
