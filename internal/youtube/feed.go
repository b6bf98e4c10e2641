package youtube

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
)

// FetchChannelInfo returns channel metadata from the channel's RSS
// feed: the name from the feed title, the thumbnail from the newest
// entry when one is present.
func (c *Client) FetchChannelInfo(ctx context.Context, channelID string, timeout time.Duration) (*ChannelInfo, error) {
	feed, err := c.fetchFeed(ctx, channelID, timeout)
	if err != nil {
		return nil, err
	}

	info := &ChannelInfo{
		ChannelID: channelID,
		Name:      feed.Title,
	}
	if len(feed.Items) > 0 {
		info.ThumbnailURL = mediaThumbnail(feed.Items[0])
	}
	return info, nil
}

// FetchVideos returns up to limit videos from the channel's RSS feed in
// feed order, newest first. Entries without a video ID are skipped.
func (c *Client) FetchVideos(ctx context.Context, channelID string, limit int, timeout time.Duration) ([]VideoInfo, error) {
	feed, err := c.fetchFeed(ctx, channelID, timeout)
	if err != nil {
		return nil, err
	}

	items := feed.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	var videos []VideoInfo
	for _, item := range items {
		id := ytVideoID(item)
		if id == "" {
			continue
		}
		v := VideoInfo{
			VideoID:      id,
			ChannelID:    channelID,
			ChannelName:  feed.Title,
			Title:        item.Title,
			Description:  mediaDescription(item),
			ThumbnailURL: mediaThumbnail(item),
			VideoURL:     WatchURL(id),
			PublishedAt:  publishedAt(item),
		}
		if v.ThumbnailURL == "" {
			v.ThumbnailURL = DefaultThumbnailURL(id)
		}
		videos = append(videos, v)
	}
	return videos, nil
}

func (c *Client) fetchFeed(ctx context.Context, channelID string, timeout time.Duration) (*gofeed.Feed, error) {
	body, err := c.get(ctx, FeedURL(channelID), timeout, maxFeedBytes)
	if err != nil {
		return nil, fmt.Errorf("fetch feed for %s: %w", channelID, err)
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed for %s: %w", channelID, err)
	}
	return feed, nil
}

// ytVideoID reads the yt:videoId extension of a feed entry.
func ytVideoID(item *gofeed.Item) string {
	if vals := item.Extensions["yt"]["videoId"]; len(vals) > 0 {
		return vals[0].Value
	}
	return ""
}

// mediaThumbnail reads media:group/media:thumbnail of a feed entry.
func mediaThumbnail(item *gofeed.Item) string {
	for _, g := range item.Extensions["media"]["group"] {
		for _, t := range g.Children["thumbnail"] {
			if url := t.Attrs["url"]; url != "" {
				return url
			}
		}
	}
	return ""
}

// mediaDescription reads media:group/media:description, falling back
// to the entry description.
func mediaDescription(item *gofeed.Item) string {
	for _, g := range item.Extensions["media"]["group"] {
		for _, d := range g.Children["description"] {
			if d.Value != "" {
				return d.Value
			}
		}
	}
	return item.Description
}

func publishedAt(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	return time.Now().UTC()
}
