package api

import (
	"net/http"
	"strings"
	"testing"

	"ytwatch/internal/backup"
)

func TestBackupEndpoints(t *testing.T) {
	srv, src, _ := newTestServer(t)
	seedChannelWithInbox(t, srv, src, 1)

	w := doRequest(t, srv.Handler(), http.MethodPost, "/api/backups/run", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("run status = %d: %s", w.Code, w.Body.String())
	}
	var res backup.Result
	decodeJSON(t, w, &res)
	if len(res.Files) != 1 || !strings.HasSuffix(res.Files[0], ".json.gz") {
		t.Fatalf("files = %v, want one .json.gz", res.Files)
	}

	w = doRequest(t, srv.Handler(), http.MethodGet, "/api/backups", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list backupListResponse
	decodeJSON(t, w, &list)
	if list.TotalCount != 1 || len(list.Backups) != 1 {
		t.Fatalf("list = %+v, want the one backup", list)
	}
	if list.Backups[0].Name != res.Files[0] {
		t.Errorf("listed %q, want %q", list.Backups[0].Name, res.Files[0])
	}
	if list.TotalSizeBytes <= 0 {
		t.Errorf("total_size_bytes = %d, want > 0", list.TotalSizeBytes)
	}
}
