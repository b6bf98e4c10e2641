package youtube

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/time/rate"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error
}

func (m *mockTransport) Do(_ *http.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func loadFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test-only fixture loading
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return string(data)
}

// newTestClient returns a Client with no rate limiting and near-zero
// retry backoff so failure paths stay fast.
func newTestClient() *Client {
	c := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.limiter = rate.NewLimiter(rate.Inf, 0)
	c.retryBase = time.Millisecond
	return c
}

const testChannelID = "UCuAXFkgsw1L7xaCfnd5JJOw"

func TestFetchChannelInfo(t *testing.T) {
	xml := loadFixture(t, "../../testdata/feed.xml")

	tests := []struct {
		name      string
		transport *mockTransport
		want      *ChannelInfo
		wantErr   bool
	}{
		{
			name:      "successful fetch",
			transport: &mockTransport{body: xml, statusCode: 200},
			want: &ChannelInfo{
				ChannelID:    testChannelID,
				Name:         "Tech Talks Weekly",
				ThumbnailURL: "https://i3.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg",
			},
		},
		{
			name:      "http error status",
			transport: &mockTransport{body: "not found", statusCode: 404},
			wantErr:   true,
		},
		{
			name:      "network error",
			transport: &mockTransport{err: io.ErrUnexpectedEOF},
			wantErr:   true,
		},
		{
			name:      "invalid xml",
			transport: &mockTransport{body: "not xml at all", statusCode: 200},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient()
			c.httpc = tt.transport

			got, err := c.FetchChannelInfo(context.Background(), testChannelID, time.Second)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("channel info mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFetchVideos(t *testing.T) {
	xml := loadFixture(t, "../../testdata/feed.xml")

	c := newTestClient()
	c.httpc = &mockTransport{body: xml, statusCode: 200}

	videos, err := c.FetchVideos(context.Background(), testChannelID, 50, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(videos) != 5 {
		t.Fatalf("expected 5 videos, got %d", len(videos))
	}

	want := VideoInfo{
		VideoID:      "dQw4w9WgXcQ",
		ChannelID:    testChannelID,
		ChannelName:  "Tech Talks Weekly",
		Title:        "Modern CI Pipelines",
		Description:  "Building CI pipelines end to end, from commit to deploy.",
		ThumbnailURL: "https://i3.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg",
		VideoURL:     "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		PublishedAt:  time.Date(2025, 6, 5, 10, 0, 0, 0, time.UTC),
	}
	if diff := cmp.Diff(want, videos[0]); diff != "" {
		t.Errorf("first video mismatch (-want +got):\n%s", diff)
	}

	// Feed order is preserved, newest first.
	wantOrder := []string{"dQw4w9WgXcQ", "gYFZ4HYTsZI", "mccyHdidiG8", "jNQXAC9IVRw", "9bZkp7q19f0"}
	var gotOrder []string
	for _, v := range videos {
		gotOrder = append(gotOrder, v.VideoID)
	}
	if diff := cmp.Diff(wantOrder, gotOrder); diff != "" {
		t.Errorf("video order mismatch (-want +got):\n%s", diff)
	}

	// The last entry has no media:group: thumbnail falls back to the
	// static URL.
	last := videos[4]
	if last.ThumbnailURL != "https://i.ytimg.com/vi/9bZkp7q19f0/hqdefault.jpg" {
		t.Errorf("expected fallback thumbnail, got %q", last.ThumbnailURL)
	}
}

func TestFetchVideosLimit(t *testing.T) {
	xml := loadFixture(t, "../../testdata/feed.xml")

	c := newTestClient()
	c.httpc = &mockTransport{body: xml, statusCode: 200}

	videos, err := c.FetchVideos(context.Background(), testChannelID, 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("expected 2 videos, got %d", len(videos))
	}
	if videos[0].VideoID != "dQw4w9WgXcQ" || videos[1].VideoID != "gYFZ4HYTsZI" {
		t.Errorf("expected newest two videos, got %s and %s", videos[0].VideoID, videos[1].VideoID)
	}
}

func TestFetchVideosEmptyFeed(t *testing.T) {
	empty := `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns="http://www.w3.org/2005/Atom">
 <title>Quiet Channel</title>
</feed>`

	c := newTestClient()
	c.httpc = &mockTransport{body: empty, statusCode: 200}

	videos, err := c.FetchVideos(context.Background(), testChannelID, 50, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(videos) != 0 {
		t.Errorf("expected no videos, got %d", len(videos))
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "server error", err: &statusError{code: 502}, want: true},
		{name: "too many requests", err: &statusError{code: 429}, want: true},
		{name: "not found", err: &statusError{code: 404}, want: false},
		{name: "bad request", err: &statusError{code: 400}, want: false},
		{name: "consent wall", err: ErrConsentWall, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "plain error", err: errors.New("parse failure"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryable(tt.err); got != tt.want {
				t.Errorf("retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
