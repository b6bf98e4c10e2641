package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ytwatch/internal/model"
	"ytwatch/internal/storage"
	"ytwatch/internal/youtube"
)

// reconcile walks a newest-first candidate list against the channel's
// watermark and creates the genuinely new videos as inbox items.
//
// Only a watermark match stops the walk. A candidate that already
// exists store-wide (added through another entry point) is skipped but
// scanning continues, so later candidates still get their chance. The
// watermark advances to the first candidate encountered, whether or not
// that candidate itself produced a row. A null watermark means a fresh
// channel: the whole window is evaluated.
//
// The channel's last-checked timestamp is set on every call, including
// when the candidate list is empty. Returns the number of videos added.
func reconcile(ctx context.Context, st storage.Store, ch *model.Channel, candidates []youtube.VideoInfo) (int, error) {
	added := 0
	var newWatermark string

	for i := range candidates {
		cand := &candidates[i]
		if ch.LastVideoID != nil && cand.VideoID == *ch.LastVideoID {
			break
		}
		if newWatermark == "" {
			newWatermark = cand.VideoID
		}

		exists, err := st.VideoExists(ctx, cand.VideoID)
		if err != nil {
			return 0, fmt.Errorf("check video %s: %w", cand.VideoID, err)
		}
		if exists {
			continue
		}

		if err := st.CreateVideo(ctx, videoFromInfo(*cand, ch, model.StatusInbox)); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				continue
			}
			return 0, fmt.Errorf("create video %s: %w", cand.VideoID, err)
		}
		added++
	}

	now := time.Now().UTC()
	ch.LastChecked = &now
	if newWatermark != "" {
		ch.LastVideoID = &newWatermark
	}
	if err := st.UpdateChannel(ctx, ch); err != nil {
		return 0, fmt.Errorf("update channel %s: %w", ch.ID, err)
	}
	return added, nil
}
