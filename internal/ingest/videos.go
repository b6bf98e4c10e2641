package ingest

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"ytwatch/internal/model"
	"ytwatch/internal/storage"
	"ytwatch/internal/youtube"
)

// BulkSummary reports a bulk status change.
type BulkSummary struct {
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}

// ShortsSummary reports a batch short-form reclassification.
type ShortsSummary struct {
	Checked int      `json:"checked"`
	Shorts  int      `json:"shorts"`
	Errors  []string `json:"errors"`
}

// ListVideos returns a filtered page of videos plus the total count
// matching the filter.
func (s *Service) ListVideos(ctx context.Context, f storage.VideoFilter) ([]model.Video, int, error) {
	videos, err := s.store.ListVideos(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	countFilter := f
	countFilter.Limit, countFilter.Offset = 0, 0
	total, err := s.store.CountVideos(ctx, countFilter)
	if err != nil {
		return nil, 0, err
	}
	return videos, total, nil
}

// GetVideo returns a video by internal ID.
func (s *Service) GetVideo(ctx context.Context, id string) (*model.Video, error) {
	return s.store.GetVideo(ctx, id)
}

// SaveVideo moves a video to saved.
func (s *Service) SaveVideo(ctx context.Context, id string) error {
	return s.store.SetVideoStatus(ctx, id, model.StatusSaved)
}

// DiscardVideo moves a video to discarded.
func (s *Service) DiscardVideo(ctx context.Context, id string) error {
	return s.store.SetVideoStatus(ctx, id, model.StatusDiscarded)
}

// RestoreVideo moves a video back to the inbox.
func (s *Service) RestoreVideo(ctx context.Context, id string) error {
	return s.store.SetVideoStatus(ctx, id, model.StatusInbox)
}

// BulkSetStatus applies one status to many videos. A missing video is
// recorded as an error string; the rest proceed, committed together.
func (s *Service) BulkSetStatus(ctx context.Context, ids []string, status model.VideoStatus) (*BulkSummary, error) {
	summary := &BulkSummary{Errors: []string{}}
	err := s.store.InTx(ctx, func(st storage.Store) error {
		for _, id := range ids {
			if err := st.SetVideoStatus(ctx, id, status); err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("video %s: %v", id, err))
				continue
			}
			summary.Updated++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bulk status: %w", err)
	}
	return summary, nil
}

// DeleteVideo removes a video by internal ID.
func (s *Service) DeleteVideo(ctx context.Context, id string) error {
	return s.store.DeleteVideo(ctx, id)
}

// PurgeDiscarded deletes every discarded video and returns the count.
func (s *Service) PurgeDiscarded(ctx context.Context) (int64, error) {
	n, err := s.store.PurgeDiscarded(ctx)
	if err != nil {
		return 0, err
	}
	s.log.Info("discarded videos purged", "count", n)
	return n, nil
}

// AddVideoFromURL saves a single video by URL or bare ID. An existing
// video is re-saved whatever its current status, never duplicated. A
// new video attaches to its channel only when that channel is already
// tracked; a single add never creates channels.
func (s *Service) AddVideoFromURL(ctx context.Context, rawURL string) (*model.Video, error) {
	videoID, err := youtube.ExtractVideoID(rawURL)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.GetVideoByYouTubeID(ctx, videoID); err == nil {
		return s.resave(ctx, videoID)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("lookup video %s: %w", videoID, err)
	}

	timeout := s.httpTimeout(ctx)
	detail, err := s.yt.FetchVideoDetail(ctx, videoID, timeout)
	if err != nil {
		return nil, err
	}
	if youtube.IsShortURL(rawURL) {
		detail.IsShort = true
	}

	var ch *model.Channel
	if detail.ChannelID != "" {
		got, err := s.store.GetChannelByYouTubeID(ctx, detail.ChannelID)
		switch {
		case err == nil:
			ch = got
		case !errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("lookup channel %s: %w", detail.ChannelID, err)
		}
	}

	v := videoFromInfo(*detail, ch, model.StatusSaved)
	if err := s.store.CreateVideo(ctx, v); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			// Lost a race with another writer; same video either way.
			return s.resave(ctx, videoID)
		}
		return nil, fmt.Errorf("create video: %w", err)
	}

	s.log.Info("video added", "video_id", videoID, "title", detail.Title)
	return s.store.GetVideo(ctx, v.ID)
}

// resave marks an existing video saved and returns its fresh state.
func (s *Service) resave(ctx context.Context, videoID string) (*model.Video, error) {
	existing, err := s.store.GetVideoByYouTubeID(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("lookup video %s: %w", videoID, err)
	}
	if err := s.store.SetVideoStatus(ctx, existing.ID, model.StatusSaved); err != nil {
		return nil, fmt.Errorf("save video %s: %w", videoID, err)
	}
	return s.store.GetVideo(ctx, existing.ID)
}

// DetectShortVideo re-probes one video's short-form classification and
// updates the stored flag.
func (s *Service) DetectShortVideo(ctx context.Context, id string) (*model.Video, error) {
	v, err := s.store.GetVideo(ctx, id)
	if err != nil {
		return nil, err
	}

	timeout := s.httpTimeout(ctx)
	short, err := s.yt.DetectShort(ctx, v.YouTubeID, timeout)
	if err != nil {
		return nil, fmt.Errorf("probe shorts for %s: %w", v.YouTubeID, err)
	}
	if short != v.IsShort {
		if err := s.store.SetVideoShort(ctx, id, short); err != nil {
			return nil, err
		}
		v.IsShort = short
	}
	return v, nil
}

// probeResult is one video's outcome from the parallel probe phase.
type probeResult struct {
	isShort bool
	err     error
}

// DetectShorts re-probes short-form classification in bulk. With no IDs
// given every stored video is checked. Probes fan out bounded like an
// import; flag updates happen sequentially in one transaction.
func (s *Service) DetectShorts(ctx context.Context, ids []string) (*ShortsSummary, error) {
	summary := &ShortsSummary{Errors: []string{}}

	var videos []model.Video
	if len(ids) == 0 {
		var err error
		videos, err = s.store.ListVideos(ctx, storage.VideoFilter{})
		if err != nil {
			return nil, fmt.Errorf("list videos: %w", err)
		}
	} else {
		for _, id := range ids {
			v, err := s.store.GetVideo(ctx, id)
			if err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("video %s: %v", id, err))
				continue
			}
			videos = append(videos, *v)
		}
	}
	if len(videos) == 0 {
		return summary, nil
	}

	timeout := s.httpTimeout(ctx)

	results := make([]probeResult, len(videos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(importWorkers)
	for i := range videos {
		g.Go(func() error {
			short, err := s.yt.DetectShort(gctx, videos[i].YouTubeID, timeout)
			results[i] = probeResult{isShort: short, err: err}
			return nil
		})
	}
	_ = g.Wait()

	err := s.store.InTx(ctx, func(st storage.Store) error {
		for i := range results {
			v := &videos[i]
			r := &results[i]
			if r.err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("video %s: %v", v.YouTubeID, r.err))
				continue
			}
			if r.isShort != v.IsShort {
				if err := st.SetVideoShort(ctx, v.ID, r.isShort); err != nil {
					summary.Errors = append(summary.Errors, fmt.Sprintf("video %s: %v", v.YouTubeID, err))
					continue
				}
			}
			summary.Checked++
			if r.isShort {
				summary.Shorts++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply shorts detection: %w", err)
	}

	s.log.Info("shorts detection complete",
		"checked", summary.Checked,
		"shorts", summary.Shorts,
		"errors", len(summary.Errors))
	return summary, nil
}
