package api

import (
	"net/http"

	"ytwatch/internal/ingest"
)

func (s *Server) handleExportChannels(w http.ResponseWriter, r *http.Request) {
	exp, err := s.ingest.ExportChannels(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, exp)
}

func (s *Server) handleExportVideos(w http.ResponseWriter, r *http.Request) {
	exp, err := s.ingest.ExportVideos(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, exp)
}

func (s *Server) handleExportAll(w http.ResponseWriter, r *http.Request) {
	exp, err := s.ingest.ExportAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, exp)
}

func (s *Server) handleImportChannels(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channels []ingest.ExportedChannel `json:"channels"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	sum, err := s.ingest.ImportChannels(r.Context(), req.Channels)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleImportVideos(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Videos []ingest.ExportedVideo `json:"videos"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	sum, err := s.ingest.ImportVideos(r.Context(), req.Videos)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleImportVideoURLs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URLs []string `json:"urls"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	sum, err := s.ingest.ImportURLs(r.Context(), req.URLs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleImportPlaylist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	sum, err := s.ingest.ImportPlaylist(r.Context(), req.URL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}
