package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ytwatch/internal/model"
	"ytwatch/internal/storage"
	"ytwatch/internal/youtube"
)

// ImportSummary aggregates a bulk import run.
type ImportSummary struct {
	Total    int      `json:"total"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// importItem is one reference's outcome from the parallel fetch phase.
type importItem struct {
	ref     string
	video   *youtube.VideoInfo
	channel *youtube.ChannelInfo // nil when the owner is unknown
	err     error
}

// ImportURLs imports a batch of video URLs (or bare video IDs) as saved
// videos.
func (s *Service) ImportURLs(ctx context.Context, urls []string) (*ImportSummary, error) {
	return s.importRefs(ctx, urls)
}

// ImportPlaylist expands a playlist into its member video IDs and
// imports them. A failed expansion yields a summary with a single error
// and zero totals; per-item work never starts.
func (s *Service) ImportPlaylist(ctx context.Context, rawURL string) (*ImportSummary, error) {
	timeout := s.httpTimeout(ctx)
	ids, err := s.yt.ExpandPlaylist(ctx, rawURL, timeout)
	if err != nil {
		s.log.Error("expand playlist", "url", rawURL, "error", err)
		return &ImportSummary{Errors: []string{fmt.Sprintf("%s: expand playlist: %v", rawURL, err)}}, nil
	}
	s.log.Info("playlist expanded", "url", rawURL, "videos", len(ids))
	return s.importRefs(ctx, ids)
}

// importRefs is the two-phase bulk import engine: a bounded parallel
// fetch phase that never touches storage, then a sequential write phase
// inside one transaction.
func (s *Service) importRefs(ctx context.Context, refs []string) (*ImportSummary, error) {
	if len(refs) == 0 {
		return &ImportSummary{Errors: []string{}}, nil
	}

	timeout := s.httpTimeout(ctx)
	items := s.fetchPhase(ctx, refs, timeout)

	summary, err := s.applyImport(ctx, items)
	if err != nil {
		return nil, err
	}

	s.log.Info("import complete",
		"total", summary.Total,
		"imported", summary.Imported,
		"skipped", summary.Skipped,
		"errors", len(summary.Errors))
	return summary, nil
}

// fetchPhase resolves and fetches every reference with a bounded number
// in flight. Each item's outcome lands in its own slot; a failure never
// aborts the batch. Channel info lookups are deduplicated across the
// batch so a channel referenced by many videos is fetched once.
func (s *Service) fetchPhase(ctx context.Context, refs []string, timeout time.Duration) []importItem {
	items := make([]importItem, len(refs))
	cache := newChannelInfoCache()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(importWorkers)
	for i, ref := range refs {
		items[i].ref = ref
		g.Go(func() error {
			videoID, err := youtube.ExtractVideoID(ref)
			if err != nil {
				items[i].err = err
				return nil
			}

			detail, err := s.yt.FetchVideoDetail(gctx, videoID, timeout)
			if err != nil {
				items[i].err = err
				return nil
			}
			if youtube.IsShortURL(ref) {
				detail.IsShort = true
			}
			items[i].video = detail

			if detail.ChannelID != "" {
				info, err := cache.get(gctx, s.yt, detail.ChannelID, timeout)
				if err != nil {
					s.log.Debug("fetch channel info", "channel_id", detail.ChannelID, "error", err)
				} else {
					items[i].channel = info
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return items
}

// applyImport is the sequential write phase. Results are applied in
// original order and committed together.
func (s *Service) applyImport(ctx context.Context, items []importItem) (*ImportSummary, error) {
	summary := &ImportSummary{Total: len(items), Errors: []string{}}

	err := s.store.InTx(ctx, func(st storage.Store) error {
		// Channels resolved or created earlier in this batch; a channel
		// shared by many imported videos is created at most once.
		channels := make(map[string]*model.Channel)

		for i := range items {
			it := &items[i]
			if it.err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", it.ref, it.err))
				continue
			}

			existing, err := st.GetVideoByYouTubeID(ctx, it.video.VideoID)
			switch {
			case err == nil:
				if existing.Status == model.StatusSaved {
					summary.Skipped++
					continue
				}
				if err := st.SetVideoStatus(ctx, existing.ID, model.StatusSaved); err != nil {
					summary.Errors = append(summary.Errors, fmt.Sprintf("%s: save existing: %v", it.ref, err))
					continue
				}
				summary.Imported++
				continue
			case !errors.Is(err, storage.ErrNotFound):
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: lookup: %v", it.ref, err))
				continue
			}

			ch, err := ensureChannel(ctx, st, channels, it)
			if err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: channel: %v", it.ref, err))
				continue
			}

			if err := st.CreateVideo(ctx, videoFromInfo(*it.video, ch, model.StatusSaved)); err != nil {
				if errors.Is(err, storage.ErrAlreadyExists) {
					summary.Skipped++
					continue
				}
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: create: %v", it.ref, err))
				continue
			}
			summary.Imported++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply import: %w", err)
	}
	return summary, nil
}

// ensureChannel finds or creates the owning channel for an imported
// video, memoized for the life of the batch. A channel created here
// starts untracked by reconciliation: null watermark, no inbox seeding;
// its first refresh ingests the feed window. Returns nil when the owner
// is unknown, in which case the video is stored channel-less.
func ensureChannel(ctx context.Context, st storage.Store, channels map[string]*model.Channel, it *importItem) (*model.Channel, error) {
	channelID := it.video.ChannelID
	if channelID == "" {
		return nil, nil
	}
	if ch, ok := channels[channelID]; ok {
		return ch, nil
	}

	ch, err := st.GetChannelByYouTubeID(ctx, channelID)
	if err == nil {
		channels[channelID] = ch
		return ch, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	name, thumbnail := it.video.ChannelName, ""
	if it.channel != nil {
		name, thumbnail = it.channel.Name, it.channel.ThumbnailURL
	}
	ch = &model.Channel{
		YouTubeID:    channelID,
		Name:         name,
		RSSURL:       youtube.FeedURL(channelID),
		YouTubeURL:   youtube.ChannelURL(channelID),
		ThumbnailURL: thumbnail,
	}
	if err := st.CreateChannel(ctx, ch); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return st.GetChannelByYouTubeID(ctx, channelID)
		}
		return nil, err
	}
	channels[channelID] = ch
	return ch, nil
}

// channelInfoCache deduplicates channel info fetches within one import
// batch, including lookups already in flight on sibling goroutines.
type channelInfoCache struct {
	mu      sync.Mutex
	entries map[string]*channelInfoEntry
}

type channelInfoEntry struct {
	once sync.Once
	info *youtube.ChannelInfo
	err  error
}

func newChannelInfoCache() *channelInfoCache {
	return &channelInfoCache{entries: make(map[string]*channelInfoEntry)}
}

func (c *channelInfoCache) get(ctx context.Context, src Source, channelID string, timeout time.Duration) (*youtube.ChannelInfo, error) {
	c.mu.Lock()
	e, ok := c.entries[channelID]
	if !ok {
		e = &channelInfoEntry{}
		c.entries[channelID] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.info, e.err = src.FetchChannelInfo(ctx, channelID, timeout)
	})
	return e.info, e.err
}
