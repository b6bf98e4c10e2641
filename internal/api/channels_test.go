package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ytwatch/internal/ingest"
	"ytwatch/internal/youtube"
)

func TestAddChannelEndpoint(t *testing.T) {
	srv, src, _ := newTestServer(t)
	chID := testChannelID(1)
	u := scriptChannel(src, chID, "Tech Talks Weekly", []youtube.VideoInfo{
		feedVideo(chID, 3), feedVideo(chID, 2), feedVideo(chID, 1),
	})

	w := doRequest(t, srv.Handler(), http.MethodPost, "/api/channels", map[string]string{"url": u})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var ch channelResponse
	decodeJSON(t, w, &ch)
	if ch.YouTubeChannelID != chID {
		t.Errorf("youtube_channel_id = %q, want %q", ch.YouTubeChannelID, chID)
	}
	if ch.Name != "Tech Talks Weekly" {
		t.Errorf("name = %q, want Tech Talks Weekly", ch.Name)
	}
	if ch.VideoCount != 3 {
		t.Errorf("video_count = %d, want 3", ch.VideoCount)
	}

	w = doRequest(t, srv.Handler(), http.MethodGet, "/api/channels", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", w.Code)
	}
	var list []channelResponse
	decodeJSON(t, w, &list)
	if len(list) != 1 || list[0].ID != ch.ID {
		t.Errorf("list = %+v, want the one added channel", list)
	}

	w = doRequest(t, srv.Handler(), http.MethodGet, "/api/channels/"+ch.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", w.Code)
	}
}

func TestAddChannelValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w := doRequest(t, srv.Handler(), http.MethodPost, "/api/channels", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing url: status = %d, want 400", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/channels", strings.NewReader("{not json"))
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", w.Code)
	}
}

func TestAddChannelConflict(t *testing.T) {
	srv, src, _ := newTestServer(t)
	chID := testChannelID(1)
	u := scriptChannel(src, chID, "Tech Talks Weekly", nil)

	if w := doRequest(t, srv.Handler(), http.MethodPost, "/api/channels", map[string]string{"url": u}); w.Code != http.StatusCreated {
		t.Fatalf("first add: status = %d, want 201", w.Code)
	}
	w := doRequest(t, srv.Handler(), http.MethodPost, "/api/channels", map[string]string{"url": u})
	if w.Code != http.StatusConflict {
		t.Fatalf("second add: status = %d, want 409: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	decodeJSON(t, w, &resp)
	if !strings.Contains(resp["error"], "already") {
		t.Errorf("error = %q, want mention of the existing channel", resp["error"])
	}
}

func TestAddChannelBadReference(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w := doRequest(t, srv.Handler(), http.MethodPost, "/api/channels",
		map[string]string{"url": "https://example.com/not-youtube"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDeleteChannelEndpoint(t *testing.T) {
	srv, src, _ := newTestServer(t)
	chID := testChannelID(1)
	u := scriptChannel(src, chID, "Short Lived", []youtube.VideoInfo{feedVideo(chID, 1)})

	w := doRequest(t, srv.Handler(), http.MethodPost, "/api/channels", map[string]string{"url": u})
	var ch channelResponse
	decodeJSON(t, w, &ch)

	w = doRequest(t, srv.Handler(), http.MethodDelete, "/api/channels/"+ch.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", w.Code)
	}
	if w = doRequest(t, srv.Handler(), http.MethodGet, "/api/channels/"+ch.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", w.Code)
	}

	// The seeded video survives with a detached channel reference.
	w = doRequest(t, srv.Handler(), http.MethodGet, "/api/videos?status=inbox", nil)
	var list videoListResponse
	decodeJSON(t, w, &list)
	if len(list.Videos) != 1 {
		t.Fatalf("got %d videos after channel delete, want 1", len(list.Videos))
	}
	if list.Videos[0].ChannelID != nil {
		t.Errorf("channel_id = %q, want null", *list.Videos[0].ChannelID)
	}
	if list.Videos[0].ChannelName != "Short Lived" {
		t.Errorf("channel_name = %q, want Short Lived", list.Videos[0].ChannelName)
	}
}

func TestRefreshChannelEndpoint(t *testing.T) {
	srv, src, _ := newTestServer(t)
	chID := testChannelID(1)
	u := scriptChannel(src, chID, "Tech Talks Weekly", []youtube.VideoInfo{
		feedVideo(chID, 2), feedVideo(chID, 1),
	})

	w := doRequest(t, srv.Handler(), http.MethodPost, "/api/channels", map[string]string{"url": u})
	var ch channelResponse
	decodeJSON(t, w, &ch)

	src.feeds[chID] = []youtube.VideoInfo{feedVideo(chID, 3), feedVideo(chID, 2), feedVideo(chID, 1)}

	w = doRequest(t, srv.Handler(), http.MethodPost, "/api/channels/"+ch.ID+"/refresh", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var refreshed channelResponse
	decodeJSON(t, w, &refreshed)
	if refreshed.VideoCount != 3 {
		t.Errorf("video_count = %d, want 3", refreshed.VideoCount)
	}
	if refreshed.LastChecked == nil {
		t.Error("last_checked not set by refresh")
	}
}

func TestRefreshAllEndpoint(t *testing.T) {
	srv, src, _ := newTestServer(t)
	chA := testChannelID(1)
	chB := testChannelID(2)
	uA := scriptChannel(src, chA, "Channel A", []youtube.VideoInfo{feedVideo(chA, 1)})
	uB := scriptChannel(src, chB, "Channel B", []youtube.VideoInfo{feedVideo(chB, 2)})
	for _, u := range []string{uA, uB} {
		if w := doRequest(t, srv.Handler(), http.MethodPost, "/api/channels", map[string]string{"url": u}); w.Code != http.StatusCreated {
			t.Fatalf("add channel: status = %d, want 201", w.Code)
		}
	}

	src.feeds[chA] = []youtube.VideoInfo{feedVideo(chA, 3), feedVideo(chA, 1)}
	src.feedErrs[chB] = errors.New("boom")

	w := doRequest(t, srv.Handler(), http.MethodPost, "/api/channels/refresh-all", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even with per-channel errors", w.Code)
	}
	var sum ingest.RefreshSummary
	decodeJSON(t, w, &sum)
	if sum.ChannelsRefreshed != 1 {
		t.Errorf("channels_refreshed = %d, want 1", sum.ChannelsRefreshed)
	}
	if sum.NewVideos != 1 {
		t.Errorf("new_videos_found = %d, want 1", sum.NewVideos)
	}
	if len(sum.Errors) != 1 || !strings.Contains(sum.Errors[0], "Channel B") {
		t.Errorf("errors = %v, want one mentioning Channel B", sum.Errors)
	}
}
