package api

import (
	"context"
	"net/http"
	"time"

	"ytwatch/internal/model"
	"ytwatch/internal/storage"
)

type channelResponse struct {
	ID               string     `json:"id"`
	YouTubeChannelID string     `json:"youtube_channel_id"`
	Name             string     `json:"name"`
	YouTubeURL       string     `json:"youtube_url"`
	RSSURL           string     `json:"rss_url"`
	ThumbnailURL     string     `json:"thumbnail_url,omitempty"`
	LastChecked      *time.Time `json:"last_checked"`
	VideoCount       int        `json:"video_count"`
	CreatedAt        time.Time  `json:"created_at"`
}

// toChannelResponse builds the wire form of ch. The video count covers
// inbox and saved videos, not discarded ones.
func (s *Server) toChannelResponse(ctx context.Context, ch *model.Channel) channelResponse {
	count := 0
	for _, st := range []model.VideoStatus{model.StatusInbox, model.StatusSaved} {
		n, err := s.store.CountVideos(ctx, storage.VideoFilter{
			Status:           st,
			ChannelYouTubeID: ch.YouTubeID,
		})
		if err != nil {
			s.log.Error("count videos", "channel_id", ch.ID, "error", err)
			continue
		}
		count += n
	}
	return channelResponse{
		ID:               ch.ID,
		YouTubeChannelID: ch.YouTubeID,
		Name:             ch.Name,
		YouTubeURL:       ch.YouTubeURL,
		RSSURL:           ch.RSSURL,
		ThumbnailURL:     ch.ThumbnailURL,
		LastChecked:      ch.LastChecked,
		VideoCount:       count,
		CreatedAt:        ch.CreatedAt,
	}
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	chs, err := s.ingest.ListChannels(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := make([]channelResponse, 0, len(chs))
	for i := range chs {
		resp = append(resp, s.toChannelResponse(r.Context(), &chs[i]))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddChannel(w http.ResponseWriter, r *http.Request) {
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

	ch, err := s.ingest.AddChannel(r.Context(), req.URL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, s.toChannelResponse(r.Context(), ch))
}

func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	ch, err := s.ingest.GetChannel(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.toChannelResponse(r.Context(), ch))
}

func (s *Server) handleDeleteChannel(w http.ResponseWriter, r *http.Request) {
	if err := s.ingest.DeleteChannel(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefreshChannel(w http.ResponseWriter, r *http.Request) {
	ch, _, err := s.ingest.RefreshChannel(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.toChannelResponse(r.Context(), ch))
}

func (s *Server) handleRefreshAll(w http.ResponseWriter, r *http.Request) {
	sum, err := s.ingest.RefreshAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}
