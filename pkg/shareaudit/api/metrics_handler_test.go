package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matatunos/shareaudit/pkg/shareaudit"
	"github.com/matatunos/shareaudit/pkg/shareaudit/api"
	"github.com/matatunos/shareaudit/pkg/shareaudit/repo/memory"
)

func newMetricsServer(t *testing.T) (http.Handler, *memory.Repository) {
	t.Helper()
	repo := memory.New()
	svc, err := shareaudit.New(shareaudit.WithRepository(repo))
	require.NoError(t, err)
	return api.NewMetricsHandler(svc).Routes(), repo
}

func TestDiskMetricsEndpoint(t *testing.T) {
	router, repo := newMetricsServer(t)

	require.NoError(t, repo.RecordDiskSample(context.Background(), &shareaudit.DiskSample{
		ID:         uuid.New(),
		RecordedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		UsedBytes:  512,
		TotalBytes: 2048,
	}))

	r := httptest.NewRequest(http.MethodGet, "/disk?from=2024-06-01&to=2024-06-01", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var series shareaudit.DiskSeries
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &series))
	require.Len(t, series.Percent, 1)
	assert.Equal(t, 25.0, series.Percent[0])
	assert.Equal(t, "2024-06-01", series.Params.From)
}

func TestDiskMetricsDefaultWindow(t *testing.T) {
	router, _ := newMetricsServer(t)

	r := httptest.NewRequest(http.MethodGet, "/disk", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var series shareaudit.DiskSeries
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &series))
	assert.Equal(t, 168, series.Params.Limit)
}

func TestUploadMetricsEndpoint(t *testing.T) {
	router, repo := newMetricsServer(t)

	require.NoError(t, repo.UpsertUploadDailyStat(context.Background(), &shareaudit.UploadDailyStat{
		Date:           time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
		UploadCount:    4,
		TotalSizeBytes: 4096,
		UniqueUsers:    2,
	}))

	r := httptest.NewRequest(http.MethodGet, "/uploads?from=2024-06-01&to=2024-06-03", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var series shareaudit.UploadSeries
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &series))
	assert.Equal(t, []string{"2024-06-02"}, series.Labels)
	assert.Equal(t, []int64{4}, series.Counts)
}

func TestUploadMetricsMalformedRangeStillSucceeds(t *testing.T) {
	router, _ := newMetricsServer(t)

	r := httptest.NewRequest(http.MethodGet, "/uploads?from=bogus&to=2024-06-03", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code, "a malformed range falls back, it never errors")
	var series shareaudit.UploadSeries
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &series))
	assert.Equal(t, 7, series.Params.Days, "fallback is the rolling week")
}
