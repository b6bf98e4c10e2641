package ingest

import (
	"context"
	"errors"
	"fmt"

	"ytwatch/internal/model"
	"ytwatch/internal/storage"
	"ytwatch/internal/youtube"
)

// AddChannel starts tracking a channel: resolve the reference to a
// canonical ID, fetch its identity and current feed window, then create
// the channel and seed the inbox in one transaction. The watermark
// starts at the newest fetched video so the next refresh only picks up
// what arrives later; last-checked stays unset until that refresh.
func (s *Service) AddChannel(ctx context.Context, rawURL string) (*model.Channel, error) {
	timeout := s.httpTimeout(ctx)

	channelID, err := s.yt.ResolveChannelURL(ctx, rawURL, timeout)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.GetChannelByYouTubeID(ctx, channelID); err == nil {
		return nil, fmt.Errorf("channel %s: %w", channelID, storage.ErrAlreadyExists)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("check channel %s: %w", channelID, err)
	}

	info, err := s.yt.FetchChannelInfo(ctx, channelID, timeout)
	if err != nil {
		return nil, fmt.Errorf("fetch channel info: %w", err)
	}
	videos, err := s.yt.FetchVideos(ctx, channelID, seedFetchLimit, timeout)
	if err != nil {
		return nil, fmt.Errorf("fetch videos: %w", err)
	}

	ch := &model.Channel{
		YouTubeID:    channelID,
		Name:         info.Name,
		RSSURL:       youtube.FeedURL(channelID),
		YouTubeURL:   youtube.ChannelURL(channelID),
		ThumbnailURL: info.ThumbnailURL,
	}
	if len(videos) > 0 {
		ch.LastVideoID = &videos[0].VideoID
	}

	seeded := 0
	err = s.store.InTx(ctx, func(st storage.Store) error {
		if err := st.CreateChannel(ctx, ch); err != nil {
			return fmt.Errorf("create channel: %w", err)
		}
		for i := range videos {
			exists, err := st.VideoExists(ctx, videos[i].VideoID)
			if err != nil {
				return fmt.Errorf("check video %s: %w", videos[i].VideoID, err)
			}
			if exists {
				continue
			}
			if err := st.CreateVideo(ctx, videoFromInfo(videos[i], ch, model.StatusInbox)); err != nil {
				if errors.Is(err, storage.ErrAlreadyExists) {
					continue
				}
				return fmt.Errorf("create video %s: %w", videos[i].VideoID, err)
			}
			seeded++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("channel added", "channel", ch.Name, "youtube_id", ch.YouTubeID, "seeded", seeded)
	return ch, nil
}

// GetChannel returns a tracked channel by internal ID.
func (s *Service) GetChannel(ctx context.Context, id string) (*model.Channel, error) {
	return s.store.GetChannel(ctx, id)
}

// ListChannels returns all tracked channels, newest first.
func (s *Service) ListChannels(ctx context.Context) ([]model.Channel, error) {
	return s.store.ListChannels(ctx)
}

// DeleteChannel stops tracking a channel. Its videos stay, keeping the
// denormalized channel identity with a null channel reference.
func (s *Service) DeleteChannel(ctx context.Context, id string) error {
	if err := s.store.DeleteChannel(ctx, id); err != nil {
		return err
	}
	s.log.Info("channel deleted", "id", id)
	return nil
}
