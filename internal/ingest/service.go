// Package ingest implements the synchronization core: channel
// reconciliation against feed watermarks, fleet-wide refresh, bulk
// import, and export/import of tracked state.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"ytwatch/internal/model"
	"ytwatch/internal/storage"
	"ytwatch/internal/youtube"
)

const (
	// seedFetchLimit is how many videos a freshly added channel pulls
	// into the inbox.
	seedFetchLimit = 15

	// refreshFetchLimit is the candidate window for a refresh run.
	refreshFetchLimit = 50

	// refreshWorkers bounds concurrent feed fetches in a fleet refresh.
	refreshWorkers = 5

	// importWorkers bounds concurrent lookups in a bulk import.
	importWorkers = 10
)

// Source is the outbound YouTube surface the ingest core consumes. The
// timeout applies per request; it is read from settings once per
// operation and passed uniformly to every call in that run.
type Source interface {
	ResolveChannelURL(ctx context.Context, raw string, timeout time.Duration) (string, error)
	FetchChannelInfo(ctx context.Context, channelID string, timeout time.Duration) (*youtube.ChannelInfo, error)
	FetchVideos(ctx context.Context, channelID string, limit int, timeout time.Duration) ([]youtube.VideoInfo, error)
	FetchVideoDetail(ctx context.Context, videoID string, timeout time.Duration) (*youtube.VideoInfo, error)
	ExpandPlaylist(ctx context.Context, rawURL string, timeout time.Duration) ([]string, error)
	DetectShort(ctx context.Context, videoID string, timeout time.Duration) (bool, error)
}

// Service drives ingestion and triage against a Storage and a Source.
type Service struct {
	store storage.Storage
	yt    Source
	log   *slog.Logger
}

// New creates the ingest service.
func New(store storage.Storage, yt Source, log *slog.Logger) *Service {
	return &Service{store: store, yt: yt, log: log}
}

// httpTimeout returns the configured outbound request timeout, falling
// back to the default when settings are unreadable or unset.
func (s *Service) httpTimeout(ctx context.Context) time.Duration {
	set, err := s.store.GetSettings(ctx)
	if err != nil || set.HTTPTimeout <= 0 {
		return time.Duration(model.DefaultHTTPTimeout * float64(time.Second))
	}
	return time.Duration(set.HTTPTimeout * float64(time.Second))
}

// videoFromInfo builds a Video from fetched metadata. When the owning
// channel is tracked, its identity snapshot is embedded so the video
// survives a later channel deletion; otherwise the denormalized fields
// come from the fetch itself and the channel reference stays null.
func videoFromInfo(info youtube.VideoInfo, ch *model.Channel, status model.VideoStatus) *model.Video {
	v := &model.Video{
		YouTubeID:        info.VideoID,
		ChannelYouTubeID: info.ChannelID,
		ChannelName:      info.ChannelName,
		Title:            info.Title,
		Description:      info.Description,
		ThumbnailURL:     info.ThumbnailURL,
		VideoURL:         info.VideoURL,
		PublishedAt:      info.PublishedAt,
		Status:           status,
		IsShort:          info.IsShort,
	}
	if ch != nil {
		v.ChannelID = &ch.ID
		v.ChannelYouTubeID = ch.YouTubeID
		v.ChannelName = ch.Name
		v.ChannelThumbnailURL = ch.ThumbnailURL
	}
	if status == model.StatusSaved {
		now := time.Now().UTC()
		v.SavedAt = &now
	}
	return v
}
