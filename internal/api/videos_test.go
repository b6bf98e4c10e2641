package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"ytwatch/internal/ingest"
	"ytwatch/internal/youtube"
)

// seedChannelWithInbox adds one channel whose feed carries n videos,
// newest first.
func seedChannelWithInbox(t *testing.T, srv *Server, src *stubSource, n int) (channelResponse, string) {
	t.Helper()

	chID := testChannelID(1)
	feed := make([]youtube.VideoInfo, 0, n)
	for i := n; i >= 1; i-- {
		feed = append(feed, feedVideo(chID, i))
	}
	u := scriptChannel(src, chID, "Tech Talks Weekly", feed)

	w := doRequest(t, srv.Handler(), http.MethodPost, "/api/channels", map[string]string{"url": u})
	if w.Code != http.StatusCreated {
		t.Fatalf("seed channel: status = %d: %s", w.Code, w.Body.String())
	}
	var ch channelResponse
	decodeJSON(t, w, &ch)
	return ch, chID
}

func listVideos(t *testing.T, srv *Server, query string) videoListResponse {
	t.Helper()

	w := doRequest(t, srv.Handler(), http.MethodGet, "/api/videos"+query, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list videos: status = %d: %s", w.Code, w.Body.String())
	}
	var list videoListResponse
	decodeJSON(t, w, &list)
	return list
}

func TestListVideosEndpoint(t *testing.T) {
	srv, src, _ := newTestServer(t)
	_, chID := seedChannelWithInbox(t, srv, src, 3)

	list := listVideos(t, srv, "?status=inbox")
	if list.Total != 3 || len(list.Videos) != 3 {
		t.Fatalf("total = %d, page = %d, want 3/3", list.Total, len(list.Videos))
	}
	if list.HasMore {
		t.Error("has_more = true on a full page")
	}
	gotOrder := []string{list.Videos[0].YouTubeVideoID, list.Videos[1].YouTubeVideoID, list.Videos[2].YouTubeVideoID}
	wantOrder := []string{testVideoID(3), testVideoID(2), testVideoID(1)}
	if diff := cmp.Diff(wantOrder, gotOrder); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	page := listVideos(t, srv, "?status=inbox&limit=2")
	if len(page.Videos) != 2 || page.Total != 3 || !page.HasMore {
		t.Errorf("limit=2: page = %d, total = %d, has_more = %v", len(page.Videos), page.Total, page.HasMore)
	}
	if page.Limit != 2 || page.Offset != 0 {
		t.Errorf("echoed paging = %d/%d, want 2/0", page.Limit, page.Offset)
	}

	rest := listVideos(t, srv, "?status=inbox&limit=2&offset=2")
	if len(rest.Videos) != 1 || rest.HasMore {
		t.Errorf("offset page = %d videos, has_more = %v, want 1/false", len(rest.Videos), rest.HasMore)
	}

	if byQ := listVideos(t, srv, "?status=inbox&q=Video+2"); byQ.Total != 1 {
		t.Errorf("title search total = %d, want 1", byQ.Total)
	}
	if byCh := listVideos(t, srv, "?channel_id="+chID); byCh.Total != 3 {
		t.Errorf("channel filter total = %d, want 3", byCh.Total)
	}
	if shorts := listVideos(t, srv, "?is_short=true"); shorts.Total != 0 {
		t.Errorf("is_short filter total = %d, want 0", shorts.Total)
	}
}

func TestListVideosValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, query := range []string{
		"?status=weird",
		"?is_short=perhaps",
		"?limit=-1",
		"?offset=x",
	} {
		w := doRequest(t, srv.Handler(), http.MethodGet, "/api/videos"+query, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", query, w.Code)
		}
	}
}

func TestVideoLifecycleEndpoints(t *testing.T) {
	srv, src, _ := newTestServer(t)
	seedChannelWithInbox(t, srv, src, 1)
	id := listVideos(t, srv, "?status=inbox").Videos[0].ID

	w := doRequest(t, srv.Handler(), http.MethodPost, "/api/videos/"+id+"/save", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d: %s", w.Code, w.Body.String())
	}
	var v videoResponse
	decodeJSON(t, w, &v)
	if v.Status != "saved" || v.SavedAt == nil {
		t.Errorf("after save: status = %q, saved_at = %v", v.Status, v.SavedAt)
	}

	w = doRequest(t, srv.Handler(), http.MethodPost, "/api/videos/"+id+"/discard", nil)
	decodeJSON(t, w, &v)
	if v.Status != "discarded" || v.DiscardedAt == nil || v.SavedAt != nil {
		t.Errorf("after discard: status = %q, discarded_at = %v, saved_at = %v", v.Status, v.DiscardedAt, v.SavedAt)
	}

	w = doRequest(t, srv.Handler(), http.MethodPost, "/api/videos/"+id+"/restore", nil)
	decodeJSON(t, w, &v)
	if v.Status != "inbox" || v.SavedAt != nil || v.DiscardedAt != nil {
		t.Errorf("after restore: status = %q, timestamps %v/%v", v.Status, v.SavedAt, v.DiscardedAt)
	}

	if w = doRequest(t, srv.Handler(), http.MethodDelete, "/api/videos/"+id, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", w.Code)
	}
	if w = doRequest(t, srv.Handler(), http.MethodGet, "/api/videos/"+id, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", w.Code)
	}
}

func TestBulkEndpoints(t *testing.T) {
	srv, src, _ := newTestServer(t)
	seedChannelWithInbox(t, srv, src, 3)
	inbox := listVideos(t, srv, "?status=inbox").Videos

	ids := []string{inbox[0].ID, inbox[1].ID, uuid.NewString()}
	w := doRequest(t, srv.Handler(), http.MethodPost, "/api/videos/bulk-save", map[string]any{"ids": ids})
	if w.Code != http.StatusOK {
		t.Fatalf("bulk-save status = %d, want 200 despite per-item errors", w.Code)
	}
	var sum ingest.BulkSummary
	decodeJSON(t, w, &sum)
	if sum.Updated != 2 || len(sum.Errors) != 1 {
		t.Errorf("bulk-save = %+v, want 2 updated and 1 error", sum)
	}
	if got := listVideos(t, srv, "?status=saved").Total; got != 2 {
		t.Errorf("saved total = %d, want 2", got)
	}

	w = doRequest(t, srv.Handler(), http.MethodPost, "/api/videos/bulk-discard",
		map[string]any{"ids": []string{inbox[2].ID}})
	decodeJSON(t, w, &sum)
	if sum.Updated != 1 {
		t.Errorf("bulk-discard updated = %d, want 1", sum.Updated)
	}

	// An empty id list is a no-op batch, not a client error.
	w = doRequest(t, srv.Handler(), http.MethodPost, "/api/videos/bulk-save", map[string]any{"ids": []string{}})
	if w.Code != http.StatusOK {
		t.Fatalf("empty ids: status = %d, want 200", w.Code)
	}
	decodeJSON(t, w, &sum)
	if sum.Updated != 0 || len(sum.Errors) != 0 {
		t.Errorf("empty ids summary = %+v, want zeros", sum)
	}
}

func TestPurgeDiscardedEndpoint(t *testing.T) {
	srv, src, _ := newTestServer(t)
	seedChannelWithInbox(t, srv, src, 3)
	inbox := listVideos(t, srv, "?status=inbox").Videos

	doRequest(t, srv.Handler(), http.MethodPost, "/api/videos/bulk-discard",
		map[string]any{"ids": []string{inbox[0].ID, inbox[1].ID}})

	w := doRequest(t, srv.Handler(), http.MethodDelete, "/api/videos/discarded", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("purge status = %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]int64
	decodeJSON(t, w, &resp)
	if resp["deleted"] != 2 {
		t.Errorf("deleted = %d, want 2", resp["deleted"])
	}
	if got := listVideos(t, srv, "?status=discarded").Total; got != 0 {
		t.Errorf("discarded total after purge = %d, want 0", got)
	}
	if got := listVideos(t, srv, "?status=inbox").Total; got != 1 {
		t.Errorf("inbox total after purge = %d, want 1", got)
	}
}

func TestAddVideoFromURLEndpoint(t *testing.T) {
	srv, src, _ := newTestServer(t)
	vid := testVideoID(77)
	watchURL := "https://www.youtube.com/watch?v=" + vid
	src.details[vid] = youtube.VideoInfo{
		VideoID:     vid,
		ChannelID:   testChannelID(9),
		ChannelName: "Indie Author",
		Title:       "One-off Find",
		VideoURL:    watchURL,
	}

	w := doRequest(t, srv.Handler(), http.MethodPost, "/api/videos/from-url", map[string]string{"url": watchURL})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var v videoResponse
	decodeJSON(t, w, &v)
	if v.Status != "saved" || v.SavedAt == nil {
		t.Errorf("status = %q, saved_at = %v, want saved with timestamp", v.Status, v.SavedAt)
	}
	if v.ChannelID != nil {
		t.Errorf("channel_id = %q, want null for untracked channel", *v.ChannelID)
	}

	// Adding the same video again re-saves the existing row.
	w = doRequest(t, srv.Handler(), http.MethodPost, "/api/videos/from-url", map[string]string{"url": watchURL})
	if w.Code != http.StatusCreated {
		t.Fatalf("repeat status = %d, want 201", w.Code)
	}
	var again videoResponse
	decodeJSON(t, w, &again)
	if again.ID != v.ID {
		t.Errorf("repeat add created a second row: %q vs %q", again.ID, v.ID)
	}

	w = doRequest(t, srv.Handler(), http.MethodPost, "/api/videos/from-url",
		map[string]string{"url": "definitely not a video"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid url: status = %d, want 400", w.Code)
	}
}

func TestDetectShortEndpoints(t *testing.T) {
	srv, src, _ := newTestServer(t)
	seedChannelWithInbox(t, srv, src, 2)
	src.shorts[testVideoID(2)] = true

	var shortID string
	for _, v := range listVideos(t, srv, "?status=inbox").Videos {
		if v.YouTubeVideoID == testVideoID(2) {
			shortID = v.ID
		}
	}
	if shortID == "" {
		t.Fatal("seeded video not found")
	}

	w := doRequest(t, srv.Handler(), http.MethodPost, "/api/videos/"+shortID+"/detect-short", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("detect-short status = %d: %s", w.Code, w.Body.String())
	}
	var v videoResponse
	decodeJSON(t, w, &v)
	if !v.IsShort {
		t.Error("is_short not flipped by probe")
	}

	w = doRequest(t, srv.Handler(), http.MethodPost, "/api/videos/detect-shorts", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("detect-shorts status = %d: %s", w.Code, w.Body.String())
	}
	var sum ingest.ShortsSummary
	decodeJSON(t, w, &sum)
	if sum.Checked != 2 || sum.Shorts != 1 {
		t.Errorf("summary = %+v, want 2 checked and 1 short", sum)
	}

	if got := listVideos(t, srv, "?is_short=true").Total; got != 1 {
		t.Errorf("is_short=true total = %d, want 1", got)
	}
}

func TestVideoNotFoundEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)
	id := uuid.NewString()

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/videos/" + id},
		{http.MethodPost, "/api/videos/" + id + "/save"},
		{http.MethodPost, fmt.Sprintf("/api/videos/%s/restore", id)},
		{http.MethodDelete, "/api/videos/" + id},
	} {
		w := doRequest(t, srv.Handler(), tc.method, tc.path, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s %s: status = %d, want 404", tc.method, tc.path, w.Code)
		}
	}
}
