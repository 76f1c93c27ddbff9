package shareaudit_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matatunos/shareaudit/pkg/shareaudit"
	"github.com/matatunos/shareaudit/pkg/shareaudit/repo/memory"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func seedUploadStats(t *testing.T, repo *memory.Repository, days []time.Time) {
	t.Helper()
	for i, day := range days {
		stat := &shareaudit.UploadDailyStat{
			Date:           day,
			UploadCount:    int64(i + 1),
			TotalSizeBytes: int64((i + 1) * 1024),
			UniqueUsers:    int64(i%3 + 1),
		}
		require.NoError(t, repo.UpsertUploadDailyStat(context.Background(), stat))
	}
}

func TestUploadSeriesExplicitRange(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	seedUploadStats(t, repo, []time.Time{
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC),
	})

	series, err := svc.UploadSeries(ctx, shareaudit.MetricsQuery{From: "2024-06-01", To: "2024-06-02"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-01", "2024-06-02"}, series.Labels)
	assert.Equal(t, []int64{1, 2}, series.Counts)
	assert.Equal(t, []int64{1024, 2048}, series.Sizes)
	assert.Equal(t, "2024-06-01", series.Params.From)
	assert.Equal(t, "2024-06-02", series.Params.To)
}

func TestUploadSeriesRangeBoundsAreInclusive(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	// A stat stored late on the "to" day must still be inside the window.
	stat := &shareaudit.UploadDailyStat{
		Date:        time.Date(2024, 6, 2, 23, 59, 59, 0, time.UTC),
		UploadCount: 9,
	}
	require.NoError(t, repo.UpsertUploadDailyStat(ctx, stat))

	series, err := svc.UploadSeries(ctx, shareaudit.MetricsQuery{From: "2024-06-02", To: "2024-06-02"})
	require.NoError(t, err)
	require.Len(t, series.Counts, 1)
	assert.Equal(t, int64(9), series.Counts[0])
}

func TestUploadSeriesMalformedRangeFallsBackToRollingWeek(t *testing.T) {
	today := time.Date(2024, 6, 10, 15, 30, 0, 0, time.UTC)
	svc, repo := newTestService(t, shareaudit.WithClock(fixedClock(today)))
	ctx := context.Background()

	seedUploadStats(t, repo, []time.Time{
		time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC),  // day 1 of the 7-day window
		time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), // today
		time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),  // outside
	})

	malformed, err := svc.UploadSeries(ctx, shareaudit.MetricsQuery{From: "06/01/2024", To: "garbage"})
	require.NoError(t, err, "a malformed range is not an error")

	rolling, err := svc.UploadSeries(ctx, shareaudit.MetricsQuery{Days: 7})
	require.NoError(t, err)

	assert.Equal(t, rolling.Labels, malformed.Labels)
	assert.Equal(t, rolling.Counts, malformed.Counts)
	assert.Equal(t, "2024-06-04", func() string {
		// sanity: window start is today-(7-1) = June 4
		return rolling.Params.From
	}())
	assert.Equal(t, "2024-06-10", rolling.Params.To)
	assert.Equal(t, 7, malformed.Params.Days)
}

func TestUploadSeriesRollingWindowStart(t *testing.T) {
	today := time.Date(2024, 6, 10, 0, 0, 1, 0, time.UTC)
	svc, repo := newTestService(t, shareaudit.WithClock(fixedClock(today)))
	ctx := context.Background()

	seedUploadStats(t, repo, []time.Time{
		time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC), // outside a 3-day window
	})

	series, err := svc.UploadSeries(ctx, shareaudit.MetricsQuery{Days: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-08", "2024-06-09", "2024-06-10"}, series.Labels)
}

func TestDiskSeriesDefaultUsesLatestSamples(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 200; i++ {
		sample := &shareaudit.DiskSample{
			ID:         uuid.New(),
			RecordedAt: base.Add(time.Duration(i) * time.Hour),
			UsedBytes:  int64(i),
			TotalBytes: 1000,
		}
		require.NoError(t, repo.RecordDiskSample(ctx, sample))
	}

	series, err := svc.DiskSeries(ctx, shareaudit.MetricsQuery{})
	require.NoError(t, err)
	require.Len(t, series.Used, 168, "default window is the newest 168 samples")
	assert.Equal(t, int64(32), series.Used[0], "oldest retained sample first")
	assert.Equal(t, int64(199), series.Used[167])
	assert.True(t, sort.StringsAreSorted(series.Labels), "labels ascend in time")
	assert.Equal(t, 168, series.Params.Limit)
	assert.Empty(t, series.Params.From)
}

func TestDiskSeriesPercentAndGiB(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	samples := []*shareaudit.DiskSample{
		{ID: uuid.New(), RecordedAt: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), UsedBytes: 50, TotalBytes: 200},
		{ID: uuid.New(), RecordedAt: time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC), UsedBytes: 1 << 30, TotalBytes: 3 << 30},
		{ID: uuid.New(), RecordedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), UsedBytes: 7, TotalBytes: 0},
	}
	for _, sample := range samples {
		require.NoError(t, repo.RecordDiskSample(ctx, sample))
	}

	series, err := svc.DiskSeries(ctx, shareaudit.MetricsQuery{From: "2024-06-01", To: "2024-06-01"})
	require.NoError(t, err)
	require.Len(t, series.Percent, 3)
	assert.Equal(t, 25.0, series.Percent[0])
	assert.Equal(t, 33.3, series.Percent[1], "percent is rounded to one decimal")
	assert.Equal(t, 0.0, series.Percent[2], "zero total is zero percent, not an error")

	assert.Equal(t, 1.0, series.UsedGB[1])
	assert.Equal(t, 3.0, series.TotalGB[1])
	assert.Equal(t, int64(1<<30), series.Used[1], "raw byte values survive alongside the converted ones")
}

func TestDiskSeriesSortsUnorderedStorage(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	times := []time.Time{
		time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC),
	}
	for i, at := range times {
		require.NoError(t, repo.RecordDiskSample(ctx, &shareaudit.DiskSample{
			ID: uuid.New(), RecordedAt: at, UsedBytes: int64(i), TotalBytes: 100,
		}))
	}

	series, err := svc.DiskSeries(ctx, shareaudit.MetricsQuery{From: "2024-06-01", To: "2024-06-01"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2024-06-01 10:00", "2024-06-01 11:00", "2024-06-01 12:00",
	}, series.Labels)
}

func TestDiskSeriesCarriesConfiguredCapacity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpdateSetting(ctx, shareaudit.SettingDiskCapacityGB, "500"))

	series, err := svc.DiskSeries(ctx, shareaudit.MetricsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 500.0, series.CapacityGB)
}

func TestDiskSeriesMalformedRangeFallsBackToDefault(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	require.NoError(t, repo.RecordDiskSample(ctx, &shareaudit.DiskSample{
		ID: uuid.New(), RecordedAt: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), UsedBytes: 1, TotalBytes: 2,
	}))

	series, err := svc.DiskSeries(ctx, shareaudit.MetricsQuery{From: "not-a-date", To: "2024-06-01"})
	require.NoError(t, err)
	assert.Len(t, series.Used, 1)
	assert.Equal(t, 168, series.Params.Limit, "malformed range behaves like no range")
}

func TestUploadSeriesReversedRangeFallsBack(t *testing.T) {
	today := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, shareaudit.WithClock(fixedClock(today)))

	series, err := svc.UploadSeries(context.Background(), shareaudit.MetricsQuery{
		From: "2024-06-09", To: "2024-06-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-06-04", series.Params.From, "from after to means fall back to rolling-7")
	assert.Equal(t, "2024-06-10", series.Params.To)
}
