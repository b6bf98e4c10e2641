package youtube

import (
	"context"
	"fmt"
	"time"
)

// ResolveChannelURL maps a channel reference in any known shape to the
// canonical channel ID. Direct ID forms return without network I/O;
// handle, custom-name, and legacy-user forms fetch the referenced page
// and extract the embedded ID.
func (c *Client) ResolveChannelURL(ctx context.Context, raw string, timeout time.Duration) (string, error) {
	id, pageURL, err := parseChannelRef(raw)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	body, err := c.get(ctx, pageURL, timeout, maxPageBytes)
	if err != nil {
		return "", fmt.Errorf("fetch channel page %s: %w", pageURL, err)
	}

	// The channel ID sits in a meta tag on most channel pages; fall
	// back to scanning the embedded page-state JSON.
	if m := metaChannelIDRe.FindSubmatch(body); m != nil {
		return string(m[1]), nil
	}
	if m := pageChannelIDRe.Find(body); m != nil {
		return string(m), nil
	}
	return "", fmt.Errorf("no channel id in page %s: %w", pageURL, ErrInvalidURL)
}
