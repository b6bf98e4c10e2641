package api

import (
	"net/http"

	"ytwatch/internal/backup"
)

type backupListResponse struct {
	Backups        []backup.Info `json:"backups"`
	TotalCount     int           `json:"total_count"`
	TotalSizeBytes int64         `json:"total_size_bytes"`
}

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	infos, err := s.backups.List()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var size int64
	for _, info := range infos {
		size += info.Size
	}
	s.writeJSON(w, http.StatusOK, backupListResponse{
		Backups:        infos,
		TotalCount:     len(infos),
		TotalSizeBytes: size,
	})
}

func (s *Server) handleRunBackup(w http.ResponseWriter, r *http.Request) {
	res, err := s.backups.Run(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}
