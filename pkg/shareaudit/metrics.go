package shareaudit

import (
	"context"
	"math"
	"sort"
	"time"
)

// calendarDay is the wire format for explicit metric range bounds.
const calendarDay = "2006-01-02"

// defaultUploadDays is the rolling window used when no explicit range
// is supplied, or when the supplied one is malformed.
const defaultUploadDays = 7

// defaultDiskSampleLimit is the fallback sample count when a disk query
// carries neither an explicit range nor a rolling window: nominally one
// week of hourly samples.
const defaultDiskSampleLimit = 168

const gib = float64(1 << 30)

// DiskSeries is the chart-ready disk usage aggregate. Used and Total
// stay in raw bytes; the *_gb fields carry the presentation-time
// conversion. CapacityGB is the operator-declared logical ceiling,
// independent of the physically reported totals.
type DiskSeries struct {
	Labels     []string      `json:"labels"`
	Used       []int64       `json:"used"`
	Total      []int64       `json:"total"`
	Percent    []float64     `json:"percent"`
	UsedGB     []float64     `json:"used_gb"`
	TotalGB    []float64     `json:"total_gb"`
	CapacityGB float64       `json:"capacity_gb"`
	Params     MetricsParams `json:"_params"`
}

// UploadSeries is the chart-ready per-day upload activity aggregate.
type UploadSeries struct {
	Labels []string      `json:"labels"`
	Counts []int64       `json:"counts"`
	Sizes  []int64       `json:"sizes"`
	Users  []int64       `json:"users"`
	Params MetricsParams `json:"_params"`
}

func (s *service) DiskSeries(ctx context.Context, query MetricsQuery) (*DiskSeries, error) {
	var (
		samples []*DiskSample
		params  MetricsParams
		err     error
	)

	from, to, ok := s.resolveWindow(query)
	if ok {
		samples, err = s.repository.DiskSamplesBetween(ctx, from, to)
		params = MetricsParams{From: from.Format(calendarDay), To: to.Format(calendarDay), Days: query.Days}
	} else {
		samples, err = s.repository.LatestDiskSamples(ctx, defaultDiskSampleLimit)
		params = MetricsParams{Limit: defaultDiskSampleLimit}
	}
	if err != nil {
		return nil, err
	}

	// Consumers render strictly left-to-right time charts; never trust
	// the storage order.
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].RecordedAt.Before(samples[j].RecordedAt)
	})

	series := &DiskSeries{
		Labels:  make([]string, 0, len(samples)),
		Used:    make([]int64, 0, len(samples)),
		Total:   make([]int64, 0, len(samples)),
		Percent: make([]float64, 0, len(samples)),
		UsedGB:  make([]float64, 0, len(samples)),
		TotalGB: make([]float64, 0, len(samples)),
		Params:  params,
	}

	for _, sample := range samples {
		series.Labels = append(series.Labels, sample.RecordedAt.UTC().Format("2006-01-02 15:04"))
		series.Used = append(series.Used, sample.UsedBytes)
		series.Total = append(series.Total, sample.TotalBytes)
		series.Percent = append(series.Percent, usedPercent(sample.UsedBytes, sample.TotalBytes))
		series.UsedGB = append(series.UsedGB, round1(float64(sample.UsedBytes)/gib))
		series.TotalGB = append(series.TotalGB, round1(float64(sample.TotalBytes)/gib))
	}

	if capacity, err := s.FloatSetting(ctx, SettingDiskCapacityGB); err == nil {
		series.CapacityGB = capacity
	}

	return series, nil
}

func (s *service) UploadSeries(ctx context.Context, query MetricsQuery) (*UploadSeries, error) {
	from, to, ok := s.resolveWindow(query)
	if !ok {
		// Deliberate policy: a malformed explicit range silently falls
		// back to the default rolling window instead of failing.
		from, to = s.rollingWindow(defaultUploadDays)
		query.Days = defaultUploadDays
	}

	stats, err := s.repository.UploadStatsBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Date.Before(stats[j].Date)
	})

	series := &UploadSeries{
		Labels: make([]string, 0, len(stats)),
		Counts: make([]int64, 0, len(stats)),
		Sizes:  make([]int64, 0, len(stats)),
		Users:  make([]int64, 0, len(stats)),
		Params: MetricsParams{From: from.Format(calendarDay), To: to.Format(calendarDay), Days: query.Days},
	}

	for _, stat := range stats {
		series.Labels = append(series.Labels, stat.Date.UTC().Format(calendarDay))
		series.Counts = append(series.Counts, stat.UploadCount)
		series.Sizes = append(series.Sizes, stat.TotalSizeBytes)
		series.Users = append(series.Users, stat.UniqueUsers)
	}

	return series, nil
}

// resolveWindow turns a raw metrics query into inclusive day-boundary
// bounds: [from 00:00:00, to 23:59:59]. The third return is false when
// the query supplies neither a usable explicit range nor a rolling
// window length.
func (s *service) resolveWindow(query MetricsQuery) (time.Time, time.Time, bool) {
	if query.From != "" || query.To != "" {
		fromDay, errFrom := time.ParseInLocation(calendarDay, query.From, time.UTC)
		toDay, errTo := time.ParseInLocation(calendarDay, query.To, time.UTC)
		if errFrom == nil && errTo == nil && !fromDay.After(toDay) {
			return dayStart(fromDay), dayEnd(toDay), true
		}
		return time.Time{}, time.Time{}, false
	}

	if query.Days > 0 {
		from, to := s.rollingWindow(query.Days)
		return from, to, true
	}

	return time.Time{}, time.Time{}, false
}

// rollingWindow computes [today - (days-1), today] with inclusive day
// boundaries.
func (s *service) rollingWindow(days int) (time.Time, time.Time) {
	today := s.now().UTC()
	from := dayStart(today.AddDate(0, 0, -(days - 1)))
	return from, dayEnd(today)
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayEnd(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 23, 59, 59, 0, time.UTC)
}

// usedPercent returns used/total as a percentage with one decimal
// digit. A zero total is defined as 0 percent, never a division error.
func usedPercent(used, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(used) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
