// Package domain defines the telemetry model and the ingest/query services.
package domain

import (
	"context"
	"fmt"
	"time"

	"example.com/telemetry/internal/observability"
)

// Repository captures the persistence operations the services need. Append
// must be atomic: a concurrent reader never observes a partially written
// reading. Latest and History return (nil, nil) / (empty, nil) on a miss.
type Repository interface {
	Append(ctx context.Context, reading Reading) (Reading, error)
	Latest(ctx context.Context, kind Kind, deviceID string) (*Reading, error)
	History(ctx context.Context, kind Kind, deviceID string, filter HistoryFilter) ([]Reading, error)
}

// Limits bounds history query result sizes.
type Limits struct {
	DefaultHistory int
	MaxHistory     int
}

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// Service orchestrates telemetry ingestion and queries against a store.
type Service struct {
	repo   Repository
	limits Limits
	clock  func() time.Time
}

// NewService constructs a Service. Zero limit values fall back to the
// built-in defaults (100 rows, capped at 1000).
func NewService(repo Repository, limits Limits) *Service {
	if limits.DefaultHistory <= 0 {
		limits.DefaultHistory = defaultHistoryLimit
	}
	if limits.MaxHistory <= 0 {
		limits.MaxHistory = maxHistoryLimit
	}
	return &Service{
		repo:   repo,
		limits: limits,
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

// IngestInput captures one validated write from the API or bridge layer.
// AuthenticatedDevice is empty on the legacy unauthenticated path.
type IngestInput struct {
	Kind                Kind
	DeviceID            string
	AuthenticatedDevice string
	RecordedAt          *time.Time

	Motion   *MotionSample
	GPS      *GPSSample
	Location *LocationSample
}

// Ingest binds the payload to a device identity, assigns a timestamp when
// the producer omitted one and appends the reading to the store.
func (s *Service) Ingest(ctx context.Context, input IngestInput) (*Reading, error) {
	if !input.Kind.Valid() {
		return nil, ErrUnknownKind
	}

	if input.AuthenticatedDevice != "" && input.DeviceID != "" && input.DeviceID != input.AuthenticatedDevice {
		return nil, ErrDeviceMismatch
	}

	deviceID := input.DeviceID
	if deviceID == "" {
		deviceID = input.AuthenticatedDevice
	}
	if deviceID == "" {
		return nil, MissingFieldError{Field: "device_id"}
	}

	recordedAt := s.clock()
	if input.RecordedAt != nil && !input.RecordedAt.IsZero() {
		recordedAt = input.RecordedAt.UTC()
	}

	reading := Reading{
		Kind:       input.Kind,
		DeviceID:   deviceID,
		RecordedAt: recordedAt,
		Motion:     input.Motion,
		GPS:        input.GPS,
		Location:   input.Location,
	}
	if err := reading.checkPayload(); err != nil {
		return nil, err
	}

	stored, err := s.repo.Append(ctx, reading)
	if err != nil {
		return nil, fmt.Errorf("append %s reading: %w", input.Kind, err)
	}

	observability.RecordReadingIngested(string(stored.Kind), stored.RecordedAt)
	return &stored, nil
}

// checkPayload verifies that exactly the payload matching Kind is populated.
func (r Reading) checkPayload() error {
	switch r.Kind {
	case KindMotion:
		if r.Motion == nil || r.GPS != nil || r.Location != nil {
			return fmt.Errorf("%w: motion reading payload mismatch", ErrUnknownKind)
		}
	case KindGPS:
		if r.GPS == nil || r.Motion != nil || r.Location != nil {
			return fmt.Errorf("%w: gps reading payload mismatch", ErrUnknownKind)
		}
	case KindLocation:
		if r.Location == nil || r.Motion != nil || r.GPS != nil {
			return fmt.Errorf("%w: location reading payload mismatch", ErrUnknownKind)
		}
	}
	return nil
}

// Latest returns the reading with the greatest RecordedAt for the device and
// kind, ties broken by greatest ID.
func (s *Service) Latest(ctx context.Context, kind Kind, deviceID string) (*Reading, error) {
	if !kind.Valid() {
		return nil, ErrUnknownKind
	}
	if deviceID == "" {
		return nil, MissingFieldError{Field: "device_id"}
	}

	reading, err := s.repo.Latest(ctx, kind, deviceID)
	if err != nil {
		return nil, fmt.Errorf("query latest %s reading: %w", kind, err)
	}
	if reading == nil {
		return nil, ErrNotFound
	}
	return reading, nil
}

// History returns readings for the device and kind, newest first, optionally
// bounded by the filter's time range and truncated to its limit.
func (s *Service) History(ctx context.Context, kind Kind, deviceID string, filter HistoryFilter) ([]Reading, error) {
	if !kind.Valid() {
		return nil, ErrUnknownKind
	}
	if deviceID == "" {
		return nil, MissingFieldError{Field: "device_id"}
	}

	if filter.Limit <= 0 {
		filter.Limit = s.limits.DefaultHistory
	}
	if filter.Limit > s.limits.MaxHistory {
		filter.Limit = s.limits.MaxHistory
	}

	readings, err := s.repo.History(ctx, kind, deviceID, filter)
	if err != nil {
		return nil, fmt.Errorf("query %s history: %w", kind, err)
	}
	if readings == nil {
		readings = []Reading{}
	}
	return readings, nil
}

// Composite returns the latest reading of each requested kind; kinds with no
// readings map to nil. Requesting no kinds means all registered kinds.
func (s *Service) Composite(ctx context.Context, deviceID string, kinds ...Kind) (map[Kind]*Reading, error) {
	if deviceID == "" {
		return nil, MissingFieldError{Field: "device_id"}
	}
	if len(kinds) == 0 {
		kinds = Kinds
	}

	out := make(map[Kind]*Reading, len(kinds))
	for _, kind := range kinds {
		if !kind.Valid() {
			return nil, ErrUnknownKind
		}
		reading, err := s.repo.Latest(ctx, kind, deviceID)
		if err != nil {
			return nil, fmt.Errorf("query latest %s reading: %w", kind, err)
		}
		out[kind] = reading
	}
	return out, nil
}
