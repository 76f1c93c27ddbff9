package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matatunos/shareaudit/pkg/shareaudit"
	"github.com/matatunos/shareaudit/pkg/shareaudit/api"
	"github.com/matatunos/shareaudit/pkg/shareaudit/repo/memory"
)

func newAuditServer(t *testing.T) (http.Handler, shareaudit.Service, *memory.Repository) {
	t.Helper()
	repo := memory.New()
	svc, err := shareaudit.New(shareaudit.WithRepository(repo))
	require.NoError(t, err)
	return api.NewAuditHandler(svc).Routes(), svc, repo
}

func TestBeginDownloadEndpoint(t *testing.T) {
	router, _, repo := newAuditServer(t)

	fileID := uuid.New()
	body, _ := json.Marshal(api.BeginDownloadRequest{FileID: fileID.String(), ShareToken: "tok-1"})

	r := httptest.NewRequest(http.MethodPost, "/begin", bytes.NewReader(body))
	r.RemoteAddr = "203.0.113.10:52311"
	r.Header.Set("User-Agent", "TestAgent/1.0")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var resp api.BeginDownloadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.RecordID)

	record, err := repo.GetDownloadAudit(context.Background(), *resp.RecordID)
	require.NoError(t, err)
	assert.Equal(t, fileID, record.FileID)
	assert.Equal(t, "tok-1", record.ShareToken)
	assert.Equal(t, "203.0.113.10:52311", record.IPAddress)
	assert.Equal(t, "TestAgent/1.0", record.UserAgent)
	assert.Equal(t, shareaudit.DownloadStatusPending, record.Status())
}

func TestBeginDownloadRejectsBadFileID(t *testing.T) {
	router, _, _ := newAuditServer(t)

	body := `{"file_id":"not-a-uuid"}`
	r := httptest.NewRequest(http.MethodPost, "/begin", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCompleteDownloadEndpoint(t *testing.T) {
	router, svc, repo := newAuditServer(t)

	recordID := svc.BeginDownload(context.Background(), shareaudit.BeginDownloadRequest{FileID: uuid.New()})
	require.NotNil(t, recordID)

	body, _ := json.Marshal(api.CompleteDownloadRequest{
		RecordID:         recordID.String(),
		BytesTransferred: 512,
		HTTPStatus:       200,
	})
	r := httptest.NewRequest(http.MethodPost, "/complete", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	record, err := repo.GetDownloadAudit(context.Background(), *recordID)
	require.NoError(t, err)
	assert.Equal(t, shareaudit.DownloadStatusCompleted, record.Status())
	assert.Equal(t, int64(512), record.BytesTransferred)
}

func TestCompleteDownloadMissingRecordIDIsOK(t *testing.T) {
	router, _, _ := newAuditServer(t)

	r := httptest.NewRequest(http.MethodPost, "/complete", strings.NewReader(`{"http_status":200}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code, "a missing record id is tolerated as a no-op")
}

func TestQueryDownloadsEndpoint(t *testing.T) {
	router, _, repo := newAuditServer(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.CreateDownloadAudit(ctx, &shareaudit.DownloadAudit{
			ID:        uuid.New(),
			FileID:    uuid.New(),
			IPAddress: "198.51.100.9",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	r := httptest.NewRequest(http.MethodGet, "/?limit=2&ip=198.51.100.9", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var records []*shareaudit.DownloadAudit
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 2)
	assert.True(t, records[0].StartedAt.After(records[1].StartedAt), "most recent first")
}

func TestQueryDownloadsEmptyIsJSONArray(t *testing.T) {
	router, _, _ := newAuditServer(t)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestQueryDownloadsDateRange(t *testing.T) {
	router, _, repo := newAuditServer(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateDownloadAudit(ctx, &shareaudit.DownloadAudit{
		ID: uuid.New(), FileID: uuid.New(),
		StartedAt: time.Date(2024, 6, 1, 23, 59, 0, 0, time.UTC),
	}))
	require.NoError(t, repo.CreateDownloadAudit(ctx, &shareaudit.DownloadAudit{
		ID: uuid.New(), FileID: uuid.New(),
		StartedAt: time.Date(2024, 6, 3, 0, 1, 0, 0, time.UTC),
	}))

	r := httptest.NewRequest(http.MethodGet, "/?from=2024-06-01&to=2024-06-01", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var records []*shareaudit.DownloadAudit
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	assert.Len(t, records, 1, "the to day is inclusive up to its last second")
}
