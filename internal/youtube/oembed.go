package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// FetchVideoDetail looks up a single video via the oEmbed endpoint.
// oEmbed carries no publish date, so PublishedAt is the lookup time.
// The owning channel ID is resolved from the author URL on a best
// effort basis and may be empty.
func (c *Client) FetchVideoDetail(ctx context.Context, videoID string, timeout time.Duration) (*VideoInfo, error) {
	if !videoIDRe.MatchString(videoID) {
		return nil, fmt.Errorf("video id %q: %w", videoID, ErrInvalidURL)
	}

	watch := WatchURL(videoID)
	endpoint := "https://www.youtube.com/oembed?url=" + url.QueryEscape(watch) + "&format=json"
	body, err := c.get(ctx, endpoint, timeout, maxFeedBytes)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && (se.code == http.StatusBadRequest || se.code == http.StatusNotFound) {
			return nil, fmt.Errorf("video %s: %w", videoID, ErrVideoNotFound)
		}
		return nil, fmt.Errorf("fetch oembed for %s: %w", videoID, err)
	}

	var oe oembedResponse
	if err := json.Unmarshal(body, &oe); err != nil {
		return nil, fmt.Errorf("decode oembed for %s: %w", videoID, err)
	}

	info := &VideoInfo{
		VideoID:      videoID,
		ChannelName:  oe.AuthorName,
		Title:        oe.Title,
		ThumbnailURL: DefaultThumbnailURL(videoID),
		VideoURL:     watch,
		PublishedAt:  time.Now().UTC(),
	}

	if oe.AuthorURL != "" {
		id, err := c.ResolveChannelURL(ctx, oe.AuthorURL, timeout)
		if err != nil {
			c.log.Debug("resolve author url", "url", oe.AuthorURL, "error", err)
		} else {
			info.ChannelID = id
		}
	}

	if short, err := c.DetectShort(ctx, videoID, timeout); err != nil {
		c.log.Debug("detect short", "video_id", videoID, "error", err)
	} else {
		info.IsShort = short
	}

	return info, nil
}
