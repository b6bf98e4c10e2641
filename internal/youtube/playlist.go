package youtube

import (
	"context"
	"fmt"
	"time"
)

// ExpandPlaylist resolves a playlist URL into its member video IDs by
// scanning the playlist page's embedded JSON. Order is preserved and
// duplicates are dropped. An expansion with no videos is an error.
func (c *Client) ExpandPlaylist(ctx context.Context, rawURL string, timeout time.Duration) ([]string, error) {
	playlistID, err := ExtractPlaylistID(rawURL)
	if err != nil {
		return nil, err
	}

	pageURL := "https://www.youtube.com/playlist?list=" + playlistID
	body, err := c.get(ctx, pageURL, timeout, maxPageBytes)
	if err != nil {
		return nil, fmt.Errorf("fetch playlist %s: %w", playlistID, err)
	}

	matches := pageVideoIDRe.FindAllSubmatch(body, -1)
	seen := make(map[string]bool, len(matches))
	var ids []string
	for _, m := range matches {
		id := string(m[1])
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("playlist %s: %w", playlistID, ErrEmptyPlaylist)
	}
	return ids, nil
}
