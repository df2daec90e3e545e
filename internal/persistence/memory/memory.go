// Package memory provides an in-memory telemetry store for tests and local
// development.
package memory

import (
	"context"
	"sync"

	"example.com/telemetry/internal/domain"
	"example.com/telemetry/internal/persistence"
)

// Repository keeps readings in per-kind slices guarded by a mutex. Appends
// are atomic with respect to readers; IDs are assigned from a single
// monotonic sequence.
type Repository struct {
	mu       sync.RWMutex
	seq      int64
	readings map[domain.Kind][]domain.Reading
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{readings: make(map[domain.Kind][]domain.Reading)}
}

// Append implements domain.Repository.
func (r *Repository) Append(ctx context.Context, reading domain.Reading) (domain.Reading, error) {
	if err := ctx.Err(); err != nil {
		return domain.Reading{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	reading.ID = r.seq
	r.readings[reading.Kind] = append(r.readings[reading.Kind], reading)
	return reading, nil
}

// Latest implements domain.Repository.
func (r *Repository) Latest(ctx context.Context, kind domain.Kind, deviceID string) (*domain.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *domain.Reading
	for i := range r.readings[kind] {
		candidate := r.readings[kind][i]
		if candidate.DeviceID != deviceID {
			continue
		}
		if latest == nil ||
			candidate.RecordedAt.After(latest.RecordedAt) ||
			(candidate.RecordedAt.Equal(latest.RecordedAt) && candidate.ID > latest.ID) {
			copied := candidate
			latest = &copied
		}
	}
	return latest, nil
}

// History implements domain.Repository.
func (r *Repository) History(ctx context.Context, kind domain.Kind, deviceID string, filter domain.HistoryFilter) ([]domain.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	matched := make([]domain.Reading, 0)
	for _, reading := range r.readings[kind] {
		if reading.DeviceID == deviceID {
			matched = append(matched, reading)
		}
	}
	r.mu.RUnlock()

	return persistence.ApplyFilter(matched, filter), nil
}
