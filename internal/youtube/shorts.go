package youtube

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DetectShort probes whether a video is a short. The /shorts/ URL
// serves the page directly for shorts and redirects to /watch for
// regular videos, so the probe client never follows redirects.
func (c *Client) DetectShort(ctx context.Context, videoID string, timeout time.Duration) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("rate limit: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://www.youtube.com/shorts/"+videoID, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.probec.Do(req)
	if err != nil {
		return false, fmt.Errorf("probe shorts: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}
