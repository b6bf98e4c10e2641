// Package youtube talks to YouTube's public surfaces: per-channel RSS
// feeds, the oEmbed endpoint, and plain web pages for everything those
// two cannot answer. No API key is involved anywhere.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

// Sentinel errors. ErrInvalidURL lives in urls.go next to the parsers.
var (
	// ErrVideoNotFound reports that YouTube has no (embeddable) video
	// for the requested ID.
	ErrVideoNotFound = errors.New("video not found")

	// ErrConsentWall reports that a page fetch was redirected to the
	// consent interstitial instead of the real page.
	ErrConsentWall = errors.New("blocked by YouTube consent page")

	// ErrEmptyPlaylist reports a playlist page that yielded no videos.
	ErrEmptyPlaylist = errors.New("playlist has no videos")
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	maxFeedBytes = 5 * 1024 * 1024
	maxPageBytes = 10 * 1024 * 1024

	// Transient failures get this many retries on top of the first try.
	maxFetchRetries = 2
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ChannelInfo is normalized channel metadata.
type ChannelInfo struct {
	ChannelID    string
	Name         string
	ThumbnailURL string
}

// VideoInfo is normalized video metadata from the feed or oEmbed.
type VideoInfo struct {
	VideoID      string
	ChannelID    string
	ChannelName  string
	Title        string
	Description  string
	ThumbnailURL string
	VideoURL     string
	PublishedAt  time.Time
	IsShort      bool
}

// Client fetches and normalizes YouTube data. A shared rate limiter
// smooths request bursts across concurrent callers.
type Client struct {
	httpc     HTTPClient
	probec    HTTPClient // does not follow redirects
	limiter   *rate.Limiter
	log       *slog.Logger
	retryBase time.Duration
}

// New creates a Client with production HTTP transports.
func New(log *slog.Logger) *Client {
	return &Client{
		httpc: &http.Client{},
		probec: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		limiter:   rate.NewLimiter(rate.Limit(5), 10),
		log:       log,
		retryBase: time.Second,
	}
}

// get fetches rawURL with the shared limiter, per-request timeout, and
// bounded retry on transient failures.
func (c *Client) get(ctx context.Context, rawURL string, timeout time.Duration, maxBytes int64) ([]byte, error) {
	var body []byte
	backoff := retry.WithMaxRetries(maxFetchRetries,
		retry.WithCappedDuration(10*time.Second, retry.NewExponential(c.retryBase)))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		b, err := c.fetchOnce(ctx, rawURL, timeout, maxBytes)
		if err != nil {
			if retryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) fetchOnce(ctx context.Context, rawURL string, timeout time.Duration, maxBytes int64) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if isConsentRedirect(resp) {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, ErrConsentWall)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// isConsentRedirect detects the EU consent interstitial, which the
// redirect-following client lands on instead of the requested page.
func isConsentRedirect(resp *http.Response) bool {
	if resp.Request == nil || resp.Request.URL == nil {
		return false
	}
	return strings.Contains(resp.Request.URL.Host, "consent.youtube.com")
}

// statusError is a non-200 response. 5xx and 429 are retryable, the
// rest are not.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	if errors.Is(err, ErrConsentWall) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	// Transport-level failures (refused connection, DNS) surface as
	// *url.Error from the client.
	var ue *url.Error
	return errors.As(err, &ue)
}

// IsUpstream reports whether err describes a failure on YouTube's side
// rather than bad caller input. Not-found and invalid-URL sentinels are
// deliberately excluded.
func IsUpstream(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return true
	}
	if errors.Is(err, ErrConsentWall) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue)
}
