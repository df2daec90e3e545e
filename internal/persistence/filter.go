// Package persistence contains helpers shared by repository implementations
// and the layers that translate requests into history filters.
package persistence

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"example.com/telemetry/internal/domain"
)

// ParseTime parses an RFC3339 query-string bound. Empty input means the
// bound is absent, not an error.
func ParseTime(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: expected RFC3339", raw)
	}
	utc := ts.UTC()
	return &utc, nil
}

// ApplyFilter narrows readings to the filter's time range, orders them
// newest first (ties broken by greatest ID) and truncates to the limit. Used
// by repositories that hold rows in memory rather than delegating to SQL.
func ApplyFilter(readings []domain.Reading, filter domain.HistoryFilter) []domain.Reading {
	out := make([]domain.Reading, 0, len(readings))
	for _, r := range readings {
		if filter.Start != nil && r.RecordedAt.Before(*filter.Start) {
			continue
		}
		if filter.End != nil && r.RecordedAt.After(*filter.End) {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.After(out[j].RecordedAt)
		}
		return out[i].ID > out[j].ID
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}
