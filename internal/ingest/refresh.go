package ingest

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"ytwatch/internal/model"
	"ytwatch/internal/storage"
	"ytwatch/internal/youtube"
)

// RefreshSummary aggregates a fleet-wide refresh run.
type RefreshSummary struct {
	ChannelsRefreshed int      `json:"channels_refreshed"`
	NewVideos         int      `json:"new_videos_found"`
	Errors            []string `json:"errors"`
}

// RefreshChannel fetches one channel's feed window and reconciles it
// inside a single transaction. Returns the updated channel and the
// number of new videos.
func (s *Service) RefreshChannel(ctx context.Context, id string) (*model.Channel, int, error) {
	ch, err := s.store.GetChannel(ctx, id)
	if err != nil {
		return nil, 0, fmt.Errorf("get channel: %w", err)
	}

	timeout := s.httpTimeout(ctx)
	videos, err := s.yt.FetchVideos(ctx, ch.YouTubeID, refreshFetchLimit, timeout)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch videos for %s: %w", ch.YouTubeID, err)
	}

	var added int
	err = s.store.InTx(ctx, func(st storage.Store) error {
		var rerr error
		added, rerr = reconcile(ctx, st, ch, videos)
		return rerr
	})
	if err != nil {
		return nil, 0, err
	}

	s.log.Info("channel refreshed", "channel", ch.Name, "new_videos", added)
	return ch, added, nil
}

// fetchResult is one channel's outcome from the parallel fetch phase.
type fetchResult struct {
	channel *model.Channel
	videos  []youtube.VideoInfo
	err     error
}

// RefreshAll refreshes every stored channel. Feed fetches fan out with
// a bounded number in flight; all storage writes then happen on one
// goroutine inside one transaction. A channel's failure, in either
// phase, is recorded as an error string and never aborts its siblings.
func (s *Service) RefreshAll(ctx context.Context) (*RefreshSummary, error) {
	channels, err := s.store.ListChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	summary := &RefreshSummary{Errors: []string{}}
	if len(channels) == 0 {
		return summary, nil
	}

	timeout := s.httpTimeout(ctx)

	// Fetch phase. Workers record their outcome in their own slot and
	// return nil so one failure cannot cancel the rest of the group.
	results := make([]fetchResult, len(channels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshWorkers)
	for i := range channels {
		g.Go(func() error {
			ch := &channels[i]
			videos, err := s.yt.FetchVideos(gctx, ch.YouTubeID, refreshFetchLimit, timeout)
			results[i] = fetchResult{channel: ch, videos: videos, err: err}
			return nil
		})
	}
	_ = g.Wait()

	// Write phase: sequential, one commit for the whole fleet.
	err = s.store.InTx(ctx, func(st storage.Store) error {
		for i := range results {
			r := &results[i]
			if r.err != nil {
				summary.Errors = append(summary.Errors, channelError(r.channel, r.err))
				continue
			}
			added, err := reconcile(ctx, st, r.channel, r.videos)
			if err != nil {
				summary.Errors = append(summary.Errors, channelError(r.channel, err))
				continue
			}
			summary.ChannelsRefreshed++
			summary.NewVideos += added
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply refresh: %w", err)
	}

	s.log.Info("fleet refresh complete",
		"channels", summary.ChannelsRefreshed,
		"new_videos", summary.NewVideos,
		"errors", len(summary.Errors))
	return summary, nil
}

func channelError(ch *model.Channel, err error) string {
	return fmt.Sprintf("Channel '%s' (ID: %s): %v", ch.Name, ch.ID, err)
}
