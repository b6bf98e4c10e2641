package ingest

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ytwatch/internal/model"
	"ytwatch/internal/storage"
	"ytwatch/internal/youtube"
)

func TestExportAll(t *testing.T) {
	svc, src, store := newTestService(t)
	ctx := context.Background()
	chID := testChannelID(1)

	ch := addTestChannel(t, svc, src, chID, "Export Me",
		[]youtube.VideoInfo{feedVideo(chID, 2), feedVideo(chID, 1)})

	// Only saved videos are exported; inbox and discarded stay local.
	inbox, err := store.ListVideos(ctx, storage.VideoFilter{Status: model.StatusInbox})
	if err != nil {
		t.Fatalf("list inbox: %v", err)
	}
	if err := store.SetVideoStatus(ctx, inbox[0].ID, model.StatusSaved); err != nil {
		t.Fatalf("save video: %v", err)
	}
	if err := store.SetVideoStatus(ctx, inbox[1].ID, model.StatusDiscarded); err != nil {
		t.Fatalf("discard video: %v", err)
	}

	export, err := svc.ExportAll(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	if export.Version != "1.0" {
		t.Errorf("version = %q, want 1.0", export.Version)
	}
	if export.ExportedAt.IsZero() {
		t.Error("expected exported_at set")
	}

	wantChannels := []ExportedChannel{{
		YouTubeChannelID: chID,
		Name:             "Export Me",
		YouTubeURL:       youtube.ChannelURL(chID),
		ThumbnailURL:     ch.ThumbnailURL,
	}}
	if diff := cmp.Diff(wantChannels, export.Channels); diff != "" {
		t.Errorf("channels mismatch (-want +got):\n%s", diff)
	}

	if len(export.Videos) != 1 {
		t.Fatalf("videos = %d, want 1 (saved only)", len(export.Videos))
	}
	v := export.Videos[0]
	if v.YouTubeVideoID != inbox[0].YouTubeID {
		t.Errorf("video id = %s, want %s", v.YouTubeVideoID, inbox[0].YouTubeID)
	}
	if v.SavedAt == nil {
		t.Error("expected saved_at in export")
	}
	if v.ChannelYouTubeID != chID {
		t.Errorf("channel youtube id = %s, want %s", v.ChannelYouTubeID, chID)
	}
}

func TestImportChannelsSkipsExisting(t *testing.T) {
	svc, src, store := newTestService(t)
	ctx := context.Background()

	existing := testChannelID(1)
	fresh := testChannelID(2)
	addTestChannel(t, svc, src, existing, "Existing", nil)

	src.info[fresh] = youtube.ChannelInfo{ChannelID: fresh, Name: "Fresh"}
	src.feeds[fresh] = []youtube.VideoInfo{feedVideo(fresh, 1)}

	summary, err := svc.ImportChannels(ctx, []ExportedChannel{
		{YouTubeChannelID: existing, Name: "Existing"},
		{YouTubeChannelID: fresh, Name: "Fresh"},
		{Name: "No ID"},
	})
	if err != nil {
		t.Fatalf("import channels: %v", err)
	}

	if summary.Imported != 1 || summary.Skipped != 1 || len(summary.Errors) != 1 {
		t.Errorf("summary = %+v, want 1 imported, 1 skipped, 1 error", summary)
	}

	channels, err := store.ListChannels(ctx)
	if err != nil {
		t.Fatalf("list channels: %v", err)
	}
	if len(channels) != 2 {
		t.Errorf("channels = %d, want 2", len(channels))
	}

	// The fresh channel was seeded like a manual add.
	if _, err := store.GetVideoByYouTubeID(ctx, testVideoID(1)); err != nil {
		t.Errorf("seed video missing: %v", err)
	}
}

func TestImportVideos(t *testing.T) {
	svc, src, store := newTestService(t)
	ctx := context.Background()

	scriptDetail(src, 1, "", "From Export")
	scriptDetail(src, 2, "", "From Export")

	summary, err := svc.ImportVideos(ctx, []ExportedVideo{
		{YouTubeVideoID: testVideoID(1), Title: "ignored, refetched"},
		{YouTubeVideoID: testVideoID(2)},
	})
	if err != nil {
		t.Fatalf("import videos: %v", err)
	}
	if summary.Imported != 2 {
		t.Errorf("summary = %+v, want 2 imported", summary)
	}

	v, err := store.GetVideoByYouTubeID(ctx, testVideoID(1))
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	// Metadata comes from the live lookup, not the export file.
	if v.Title != "Imported 1" {
		t.Errorf("title = %q, want refetched metadata", v.Title)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	svc, src, _ := newTestService(t)
	ctx := context.Background()
	chID := testChannelID(1)

	addTestChannel(t, svc, src, chID, "Round Trip",
		[]youtube.VideoInfo{feedVideo(chID, 2), feedVideo(chID, 1)})
	scriptDetail(src, 3, chID, "Round Trip")
	if _, err := svc.AddVideoFromURL(ctx, testVideoID(3)); err != nil {
		t.Fatalf("add video: %v", err)
	}

	export, err := svc.ExportAll(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	// Import into a second, empty store fed by the same mock source.
	svc2, src2, store2 := newTestService(t)
	src2.info[chID] = src.info[chID]
	src2.feeds[chID] = src.feeds[chID]
	src2.details = src.details

	chSummary, err := svc2.ImportChannels(ctx, export.Channels)
	if err != nil {
		t.Fatalf("import channels: %v", err)
	}
	if chSummary.Imported != 1 {
		t.Errorf("channel summary = %+v, want 1 imported", chSummary)
	}

	vidSummary, err := svc2.ImportVideos(ctx, export.Videos)
	if err != nil {
		t.Fatalf("import videos: %v", err)
	}
	if vidSummary.Imported+vidSummary.Skipped != len(export.Videos) {
		t.Errorf("video summary = %+v, want all %d accounted for", vidSummary, len(export.Videos))
	}

	channels, err := store2.ListChannels(ctx)
	if err != nil {
		t.Fatalf("list channels: %v", err)
	}
	if len(channels) != 1 || channels[0].YouTubeID != chID {
		t.Errorf("channels = %+v, want the round-tripped channel", channels)
	}
	if _, err := store2.GetVideoByYouTubeID(ctx, testVideoID(3)); err != nil {
		t.Errorf("saved video missing after round trip: %v", err)
	}
}
