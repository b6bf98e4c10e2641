package youtube

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidURL reports a reference that matches no known YouTube URL
// shape. It is never retried.
var ErrInvalidURL = errors.New("unrecognized YouTube URL")

var (
	channelIDRe   = regexp.MustCompile(`^UC[A-Za-z0-9_-]{22}$`)
	channelPathRe = regexp.MustCompile(`youtube\.com/channel/(UC[A-Za-z0-9_-]{22})`)
	handleRe      = regexp.MustCompile(`youtube\.com/@([A-Za-z0-9_.-]+)`)
	customPathRe  = regexp.MustCompile(`youtube\.com/c/([A-Za-z0-9_.-]+)`)
	userPathRe    = regexp.MustCompile(`youtube\.com/user/([A-Za-z0-9_.-]+)`)

	videoIDRe   = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	watchRe     = regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]{11})`)
	shortLinkRe = regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`)
	embedRe     = regexp.MustCompile(`youtube\.com/embed/([A-Za-z0-9_-]{11})`)
	legacyVRe   = regexp.MustCompile(`youtube\.com/v/([A-Za-z0-9_-]{11})`)
	shortsRe    = regexp.MustCompile(`youtube\.com/shorts/([A-Za-z0-9_-]{11})`)

	playlistParamRe = regexp.MustCompile(`[?&]list=([A-Za-z0-9_-]+)`)

	shortsPathRe = regexp.MustCompile(`youtube\.com/shorts/`)

	metaChannelIDRe = regexp.MustCompile(`<meta itemprop="channelId" content="(UC[A-Za-z0-9_-]{22})"`)
	pageChannelIDRe = regexp.MustCompile(`UC[A-Za-z0-9_-]{22}`)
	pageVideoIDRe   = regexp.MustCompile(`"videoId":"([A-Za-z0-9_-]{11})"`)
)

// FeedURL returns the RSS feed URL for a channel.
func FeedURL(channelID string) string {
	return "https://www.youtube.com/feeds/videos.xml?channel_id=" + channelID
}

// ChannelURL returns the canonical web URL for a channel.
func ChannelURL(channelID string) string {
	return "https://www.youtube.com/channel/" + channelID
}

// WatchURL returns the canonical watch URL for a video.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// DefaultThumbnailURL returns the static thumbnail for a video, used
// when no thumbnail is present in the source data.
func DefaultThumbnailURL(videoID string) string {
	return fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", videoID)
}

// ExtractVideoID maps a video URL in any known shape, or a bare 11-char
// ID, to the canonical video ID.
func ExtractVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if videoIDRe.MatchString(raw) {
		return raw, nil
	}
	for _, re := range []*regexp.Regexp{watchRe, shortLinkRe, embedRe, legacyVRe, shortsRe} {
		if m := re.FindStringSubmatch(raw); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("video URL %q: %w", raw, ErrInvalidURL)
}

// ExtractPlaylistID maps a playlist URL (playlist page, watch URL with
// a list parameter, or a youtu.be link with one) to the playlist ID.
func ExtractPlaylistID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "youtube.com") || strings.Contains(raw, "youtu.be") {
		if m := playlistParamRe.FindStringSubmatch(raw); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("playlist URL %q: %w", raw, ErrInvalidURL)
}

// IsShortURL reports whether the URL itself already marks the video as
// a short.
func IsShortURL(raw string) bool {
	return shortsPathRe.MatchString(raw)
}

// parseChannelRef splits a channel reference into either a literal
// channel ID or a page URL that must be fetched to resolve one.
func parseChannelRef(raw string) (id, pageURL string, err error) {
	raw = strings.TrimSpace(raw)
	if channelIDRe.MatchString(raw) {
		return raw, "", nil
	}
	if m := channelPathRe.FindStringSubmatch(raw); m != nil {
		return m[1], "", nil
	}
	if m := handleRe.FindStringSubmatch(raw); m != nil {
		return "", "https://www.youtube.com/@" + m[1], nil
	}
	if m := customPathRe.FindStringSubmatch(raw); m != nil {
		return "", "https://www.youtube.com/c/" + m[1], nil
	}
	if m := userPathRe.FindStringSubmatch(raw); m != nil {
		return "", "https://www.youtube.com/user/" + m[1], nil
	}
	return "", "", fmt.Errorf("channel URL %q: %w", raw, ErrInvalidURL)
}
