package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"ytwatch/internal/model"
	"ytwatch/internal/storage"
)

type videoResponse struct {
	ID                  string     `json:"id"`
	YouTubeVideoID      string     `json:"youtube_video_id"`
	ChannelID           *string    `json:"channel_id"`
	ChannelYouTubeID    string     `json:"channel_youtube_id,omitempty"`
	ChannelName         string     `json:"channel_name,omitempty"`
	ChannelThumbnailURL string     `json:"channel_thumbnail_url,omitempty"`
	Title               string     `json:"title"`
	Description         string     `json:"description,omitempty"`
	ThumbnailURL        string     `json:"thumbnail_url,omitempty"`
	VideoURL            string     `json:"video_url"`
	PublishedAt         time.Time  `json:"published_at"`
	Status              string     `json:"status"`
	SavedAt             *time.Time `json:"saved_at"`
	DiscardedAt         *time.Time `json:"discarded_at"`
	IsShort             bool       `json:"is_short"`
	CreatedAt           time.Time  `json:"created_at"`
}

func videoResponseFrom(v *model.Video) videoResponse {
	return videoResponse{
		ID:                  v.ID,
		YouTubeVideoID:      v.YouTubeID,
		ChannelID:           v.ChannelID,
		ChannelYouTubeID:    v.ChannelYouTubeID,
		ChannelName:         v.ChannelName,
		ChannelThumbnailURL: v.ChannelThumbnailURL,
		Title:               v.Title,
		Description:         v.Description,
		ThumbnailURL:        v.ThumbnailURL,
		VideoURL:            v.VideoURL,
		PublishedAt:         v.PublishedAt,
		Status:              string(v.Status),
		SavedAt:             v.SavedAt,
		DiscardedAt:         v.DiscardedAt,
		IsShort:             v.IsShort,
		CreatedAt:           v.CreatedAt,
	}
}

func videoResponses(vs []model.Video) []videoResponse {
	resp := make([]videoResponse, 0, len(vs))
	for i := range vs {
		resp = append(resp, videoResponseFrom(&vs[i]))
	}
	return resp
}

type videoListResponse struct {
	Videos  []videoResponse `json:"videos"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
	HasMore bool            `json:"has_more"`
}

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := storage.VideoFilter{
		ChannelYouTubeID: q.Get("channel_id"),
		Query:            q.Get("q"),
		Limit:            50,
	}
	if v := q.Get("status"); v != "" {
		st := model.VideoStatus(v)
		if !st.Valid() {
			s.badRequest(w, "invalid status "+strconv.Quote(v))
			return
		}
		f.Status = st
	}
	if v := q.Get("is_short"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.badRequest(w, "invalid is_short "+strconv.Quote(v))
			return
		}
		f.IsShort = &b
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.badRequest(w, "invalid limit "+strconv.Quote(v))
			return
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.badRequest(w, "invalid offset "+strconv.Quote(v))
			return
		}
		f.Offset = n
	}

	videos, total, err := s.ingest.ListVideos(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, videoListResponse{
		Videos:  videoResponses(videos),
		Total:   total,
		Limit:   f.Limit,
		Offset:  f.Offset,
		HasMore: f.Offset+len(videos) < total,
	})
}

func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	v, err := s.ingest.GetVideo(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, videoResponseFrom(v))
}

// videoAction applies a status change and returns the updated video.
func (s *Server) videoAction(w http.ResponseWriter, r *http.Request, act func(context.Context, string) error) {
	id := r.PathValue("id")
	if err := act(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.ingest.GetVideo(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, videoResponseFrom(v))
}

func (s *Server) handleSaveVideo(w http.ResponseWriter, r *http.Request) {
	s.videoAction(w, r, s.ingest.SaveVideo)
}

func (s *Server) handleDiscardVideo(w http.ResponseWriter, r *http.Request) {
	s.videoAction(w, r, s.ingest.DiscardVideo)
}

func (s *Server) handleRestoreVideo(w http.ResponseWriter, r *http.Request) {
	s.videoAction(w, r, s.ingest.RestoreVideo)
}

func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	if err := s.ingest.DeleteVideo(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) bulkStatus(w http.ResponseWriter, r *http.Request, status model.VideoStatus) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	sum, err := s.ingest.BulkSetStatus(r.Context(), req.IDs, status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleBulkSave(w http.ResponseWriter, r *http.Request) {
	s.bulkStatus(w, r, model.StatusSaved)
}

func (s *Server) handleBulkDiscard(w http.ResponseWriter, r *http.Request) {
	s.bulkStatus(w, r, model.StatusDiscarded)
}

func (s *Server) handlePurgeDiscarded(w http.ResponseWriter, r *http.Request) {
	n, err := s.ingest.PurgeDiscarded(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (s *Server) handleAddVideoFromURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if req.URL == "" {
		s.badRequest(w, "url is required")
		return
	}

	v, err := s.ingest.AddVideoFromURL(r.Context(), req.URL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, videoResponseFrom(v))
}

func (s *Server) handleDetectShort(w http.ResponseWriter, r *http.Request) {
	v, err := s.ingest.DetectShortVideo(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, videoResponseFrom(v))
}

func (s *Server) handleDetectShorts(w http.ResponseWriter, r *http.Request) {
	// The body is optional: no ids means every stored video.
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.badRequest(w, err.Error())
		return
	}

	sum, err := s.ingest.DetectShorts(r.Context(), req.IDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}
