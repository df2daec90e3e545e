package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	appended   []Reading
	lastFilter HistoryFilter
	latest     map[Kind]*Reading
	history    []Reading
}

func (s *stubRepo) Append(ctx context.Context, reading Reading) (Reading, error) {
	reading.ID = int64(len(s.appended) + 1)
	s.appended = append(s.appended, reading)
	return reading, nil
}

func (s *stubRepo) Latest(ctx context.Context, kind Kind, deviceID string) (*Reading, error) {
	return s.latest[kind], nil
}

func (s *stubRepo) History(ctx context.Context, kind Kind, deviceID string, filter HistoryFilter) ([]Reading, error) {
	s.lastFilter = filter
	return s.history, nil
}

func motionInput(deviceID string) IngestInput {
	return IngestInput{
		Kind:     KindMotion,
		DeviceID: deviceID,
		Motion:   &MotionSample{AccelerationX: 1, AccelerationY: 2, AccelerationZ: 3, Temperature: 25.5},
	}
}

func TestIngestAssignsServerTimestamp(t *testing.T) {
	repo := &stubRepo{}
	service := NewService(repo, Limits{})
	now := time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC)
	service.clock = func() time.Time { return now }

	stored, err := service.Ingest(context.Background(), motionInput("dev-1"))
	require.NoError(t, err)
	require.Equal(t, now, stored.RecordedAt)
	require.Equal(t, int64(1), stored.ID)
	require.Equal(t, "dev-1", stored.DeviceID)
}

func TestIngestKeepsClientTimestamp(t *testing.T) {
	repo := &stubRepo{}
	service := NewService(repo, Limits{})

	recorded := time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC)
	input := motionInput("dev-1")
	input.RecordedAt = &recorded

	stored, err := service.Ingest(context.Background(), input)
	require.NoError(t, err)
	require.True(t, stored.RecordedAt.Equal(recorded))
}

func TestIngestDeviceMismatchAppendsNothing(t *testing.T) {
	repo := &stubRepo{}
	service := NewService(repo, Limits{})

	input := motionInput("dev-2")
	input.AuthenticatedDevice = "dev-1"

	_, err := service.Ingest(context.Background(), input)
	require.ErrorIs(t, err, ErrDeviceMismatch)
	require.Empty(t, repo.appended)
}

func TestIngestDefaultsDeviceFromToken(t *testing.T) {
	repo := &stubRepo{}
	service := NewService(repo, Limits{})

	input := motionInput("")
	input.AuthenticatedDevice = "dev-1"

	stored, err := service.Ingest(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, "dev-1", stored.DeviceID)
}

func TestIngestRequiresSomeIdentity(t *testing.T) {
	service := NewService(&stubRepo{}, Limits{})

	_, err := service.Ingest(context.Background(), motionInput(""))
	require.Error(t, err)
	require.True(t, IsValidation(err))
	require.Contains(t, err.Error(), "device_id")
}

func TestIngestRejectsUnknownKind(t *testing.T) {
	service := NewService(&stubRepo{}, Limits{})

	_, err := service.Ingest(context.Background(), IngestInput{Kind: Kind("humidity"), DeviceID: "dev-1"})
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestIngestRejectsPayloadKindMismatch(t *testing.T) {
	service := NewService(&stubRepo{}, Limits{})

	input := motionInput("dev-1")
	input.GPS = &GPSSample{Latitude: 1, Longitude: 2}

	_, err := service.Ingest(context.Background(), input)
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestLatestMissReturnsNotFound(t *testing.T) {
	service := NewService(&stubRepo{}, Limits{})

	_, err := service.Latest(context.Background(), KindGPS, "dev-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestHistoryNormalisesLimit(t *testing.T) {
	repo := &stubRepo{}
	service := NewService(repo, Limits{DefaultHistory: 100, MaxHistory: 1000})

	_, err := service.History(context.Background(), KindMotion, "dev-1", HistoryFilter{})
	require.NoError(t, err)
	require.Equal(t, 100, repo.lastFilter.Limit)

	_, err = service.History(context.Background(), KindMotion, "dev-1", HistoryFilter{Limit: 5000})
	require.NoError(t, err)
	require.Equal(t, 1000, repo.lastFilter.Limit)

	_, err = service.History(context.Background(), KindMotion, "dev-1", HistoryFilter{Limit: 7})
	require.NoError(t, err)
	require.Equal(t, 7, repo.lastFilter.Limit)
}

func TestHistoryMissIsEmptyNotNil(t *testing.T) {
	service := NewService(&stubRepo{}, Limits{})

	readings, err := service.History(context.Background(), KindLocation, "dev-1", HistoryFilter{})
	require.NoError(t, err)
	require.NotNil(t, readings)
	require.Empty(t, readings)
}

func TestCompositeReportsMissingKindsAsNil(t *testing.T) {
	motion := Reading{ID: 1, Kind: KindMotion, DeviceID: "dev-1", RecordedAt: time.Now().UTC()}
	repo := &stubRepo{latest: map[Kind]*Reading{KindMotion: &motion}}
	service := NewService(repo, Limits{})

	latest, err := service.Composite(context.Background(), "dev-1")
	require.NoError(t, err)
	require.Len(t, latest, len(Kinds))
	require.NotNil(t, latest[KindMotion])
	require.Nil(t, latest[KindGPS])
	require.Nil(t, latest[KindLocation])
}
