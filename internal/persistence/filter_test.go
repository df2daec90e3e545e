package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/telemetry/internal/domain"
)

func TestParseTime(t *testing.T) {
	ts, err := ParseTime("2026-03-14T09:26:53Z")
	require.NoError(t, err)
	require.NotNil(t, ts)
	require.Equal(t, time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC), *ts)

	ts, err = ParseTime("")
	require.NoError(t, err)
	require.Nil(t, ts)

	_, err = ParseTime("yesterday")
	require.Error(t, err)
}

func TestApplyFilterOrdersNewestFirst(t *testing.T) {
	base := time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)
	readings := []domain.Reading{
		{ID: 1, RecordedAt: base.Add(2 * time.Minute)},
		{ID: 2, RecordedAt: base.Add(5 * time.Minute)},
		{ID: 3, RecordedAt: base.Add(1 * time.Minute)},
	}

	out := ApplyFilter(readings, domain.HistoryFilter{Limit: 10})
	require.Equal(t, []int64{2, 1, 3}, ids(out))
}

func TestApplyFilterBreaksTimestampTiesByID(t *testing.T) {
	ts := time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)
	readings := []domain.Reading{
		{ID: 1, RecordedAt: ts},
		{ID: 3, RecordedAt: ts},
		{ID: 2, RecordedAt: ts},
	}

	out := ApplyFilter(readings, domain.HistoryFilter{Limit: 10})
	require.Equal(t, []int64{3, 2, 1}, ids(out))
}

func TestApplyFilterBoundsAndLimit(t *testing.T) {
	base := time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)
	readings := make([]domain.Reading, 0, 10)
	for i := 0; i < 10; i++ {
		readings = append(readings, domain.Reading{
			ID:         int64(i + 1),
			RecordedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	start := base.Add(2 * time.Minute)
	end := base.Add(8 * time.Minute)
	out := ApplyFilter(readings, domain.HistoryFilter{Start: &start, End: &end, Limit: 3})

	require.Equal(t, []int64{9, 8, 7}, ids(out))
}

func ids(readings []domain.Reading) []int64 {
	out := make([]int64, 0, len(readings))
	for _, r := range readings {
		out = append(out, r.ID)
	}
	return out
}
