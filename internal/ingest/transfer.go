package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ytwatch/internal/model"
	"ytwatch/internal/storage"
)

// exportVersion marks the export envelope shape. Bump only on breaking
// changes.
const exportVersion = "1.0"

// Export is the portable snapshot envelope.
type Export struct {
	Version    string            `json:"version"`
	ExportedAt time.Time         `json:"exported_at"`
	Channels   []ExportedChannel `json:"channels,omitempty"`
	Videos     []ExportedVideo   `json:"videos,omitempty"`
}

// ExportedChannel is a channel as it appears in an export file.
type ExportedChannel struct {
	YouTubeChannelID string `json:"youtube_channel_id"`
	Name             string `json:"name"`
	YouTubeURL       string `json:"youtube_url"`
	ThumbnailURL     string `json:"thumbnail_url,omitempty"`
}

// ExportedVideo is a saved video as it appears in an export file.
type ExportedVideo struct {
	YouTubeVideoID   string     `json:"youtube_video_id"`
	Title            string     `json:"title"`
	ChannelName      string     `json:"channel_name"`
	ChannelYouTubeID string     `json:"channel_youtube_id"`
	VideoURL         string     `json:"video_url"`
	ThumbnailURL     string     `json:"thumbnail_url,omitempty"`
	Description      string     `json:"description,omitempty"`
	PublishedAt      time.Time  `json:"published_at"`
	SavedAt          *time.Time `json:"saved_at,omitempty"`
	IsShort          bool       `json:"is_short"`
}

// ExportChannels snapshots all tracked channels.
func (s *Service) ExportChannels(ctx context.Context) (*Export, error) {
	channels, err := s.exportedChannels(ctx)
	if err != nil {
		return nil, err
	}
	return &Export{Version: exportVersion, ExportedAt: time.Now().UTC(), Channels: channels}, nil
}

// ExportVideos snapshots all saved videos.
func (s *Service) ExportVideos(ctx context.Context) (*Export, error) {
	videos, err := s.exportedVideos(ctx)
	if err != nil {
		return nil, err
	}
	return &Export{Version: exportVersion, ExportedAt: time.Now().UTC(), Videos: videos}, nil
}

// ExportAll snapshots channels and saved videos in one envelope.
func (s *Service) ExportAll(ctx context.Context) (*Export, error) {
	channels, err := s.exportedChannels(ctx)
	if err != nil {
		return nil, err
	}
	videos, err := s.exportedVideos(ctx)
	if err != nil {
		return nil, err
	}
	return &Export{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Channels:   channels,
		Videos:     videos,
	}, nil
}

func (s *Service) exportedChannels(ctx context.Context) ([]ExportedChannel, error) {
	channels, err := s.store.ListChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	out := make([]ExportedChannel, 0, len(channels))
	for i := range channels {
		ch := &channels[i]
		out = append(out, ExportedChannel{
			YouTubeChannelID: ch.YouTubeID,
			Name:             ch.Name,
			YouTubeURL:       ch.YouTubeURL,
			ThumbnailURL:     ch.ThumbnailURL,
		})
	}
	return out, nil
}

func (s *Service) exportedVideos(ctx context.Context) ([]ExportedVideo, error) {
	videos, err := s.store.ListVideos(ctx, storage.VideoFilter{Status: model.StatusSaved})
	if err != nil {
		return nil, fmt.Errorf("list saved videos: %w", err)
	}
	out := make([]ExportedVideo, 0, len(videos))
	for i := range videos {
		v := &videos[i]
		out = append(out, ExportedVideo{
			YouTubeVideoID:   v.YouTubeID,
			Title:            v.Title,
			ChannelName:      v.ChannelName,
			ChannelYouTubeID: v.ChannelYouTubeID,
			VideoURL:         v.VideoURL,
			ThumbnailURL:     v.ThumbnailURL,
			Description:      v.Description,
			PublishedAt:      v.PublishedAt,
			SavedAt:          v.SavedAt,
			IsShort:          v.IsShort,
		})
	}
	return out, nil
}

// ImportChannels adds each exported channel, skipping ones already
// tracked. Every add fetches live channel info and seeds the inbox the
// same way a manual add does; one channel's failure never stops the
// rest.
func (s *Service) ImportChannels(ctx context.Context, channels []ExportedChannel) (*ImportSummary, error) {
	summary := &ImportSummary{Total: len(channels), Errors: []string{}}
	for _, ec := range channels {
		ref := ec.YouTubeChannelID
		if ref == "" {
			summary.Errors = append(summary.Errors, fmt.Sprintf("channel '%s': missing youtube_channel_id", ec.Name))
			continue
		}
		if _, err := s.AddChannel(ctx, ref); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				summary.Skipped++
				continue
			}
			summary.Errors = append(summary.Errors, fmt.Sprintf("channel %s: %v", ref, err))
			continue
		}
		summary.Imported++
	}

	s.log.Info("channel import complete",
		"total", summary.Total,
		"imported", summary.Imported,
		"skipped", summary.Skipped,
		"errors", len(summary.Errors))
	return summary, nil
}

// ImportVideos imports exported video entries through the bulk engine.
// Entries carry explicit video IDs; metadata is re-fetched live.
func (s *Service) ImportVideos(ctx context.Context, videos []ExportedVideo) (*ImportSummary, error) {
	refs := make([]string, 0, len(videos))
	for i := range videos {
		refs = append(refs, videos[i].YouTubeVideoID)
	}
	return s.importRefs(ctx, refs)
}
