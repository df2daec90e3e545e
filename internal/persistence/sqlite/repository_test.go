package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/telemetry/internal/domain"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()

	repo, err := Open(filepath.Join(t.TempDir(), "telemetry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	require.NoError(t, repo.InitSchema(context.Background()))
	return repo
}

func TestAppendAndLatestPerKind(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	recordedAt := time.Date(2026, time.March, 14, 9, 26, 53, 123456789, time.UTC)
	altitude := 412.5
	voltage := 3.7

	motion, err := repo.Append(ctx, domain.Reading{
		Kind:       domain.KindMotion,
		DeviceID:   "dev-1",
		RecordedAt: recordedAt,
		Motion:     &domain.MotionSample{AccelerationX: 0.1, AccelerationY: -0.2, AccelerationZ: 9.8, Temperature: 25.5},
	})
	require.NoError(t, err)
	require.Positive(t, motion.ID)

	gps, err := repo.Append(ctx, domain.Reading{
		Kind:       domain.KindGPS,
		DeviceID:   "dev-1",
		RecordedAt: recordedAt,
		GPS:        &domain.GPSSample{Latitude: 59.33, Longitude: 18.06, Altitude: &altitude},
	})
	require.NoError(t, err)

	location, err := repo.Append(ctx, domain.Reading{
		Kind:       domain.KindLocation,
		DeviceID:   "dev-1",
		RecordedAt: recordedAt,
		Location:   &domain.LocationSample{Latitude: 59.33, Longitude: 18.06, BatteryVoltage: &voltage, LowBatteryMode: true},
	})
	require.NoError(t, err)

	gotMotion, err := repo.Latest(ctx, domain.KindMotion, "dev-1")
	require.NoError(t, err)
	require.NotNil(t, gotMotion)
	require.Equal(t, motion.ID, gotMotion.ID)
	require.True(t, gotMotion.RecordedAt.Equal(recordedAt))
	require.Equal(t, 25.5, gotMotion.Motion.Temperature)

	gotGPS, err := repo.Latest(ctx, domain.KindGPS, "dev-1")
	require.NoError(t, err)
	require.NotNil(t, gotGPS)
	require.Equal(t, gps.ID, gotGPS.ID)
	require.NotNil(t, gotGPS.GPS.Altitude)
	require.Equal(t, altitude, *gotGPS.GPS.Altitude)

	gotLocation, err := repo.Latest(ctx, domain.KindLocation, "dev-1")
	require.NoError(t, err)
	require.NotNil(t, gotLocation)
	require.Equal(t, location.ID, gotLocation.ID)
	require.NotNil(t, gotLocation.Location.BatteryVoltage)
	require.Equal(t, voltage, *gotLocation.Location.BatteryVoltage)
	require.True(t, gotLocation.Location.LowBatteryMode)
}

func TestOptionalColumnsRoundTripAsNull(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	_, err := repo.Append(ctx, domain.Reading{
		Kind:       domain.KindGPS,
		DeviceID:   "dev-1",
		RecordedAt: time.Now().UTC(),
		GPS:        &domain.GPSSample{Latitude: 1, Longitude: 2},
	})
	require.NoError(t, err)

	got, err := repo.Latest(ctx, domain.KindGPS, "dev-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Nil(t, got.GPS.Altitude)
}

func TestLatestBreaksTimestampTieByID(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	ts := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

	_, err := repo.Append(ctx, domain.Reading{
		Kind: domain.KindMotion, DeviceID: "dev-1", RecordedAt: ts,
		Motion: &domain.MotionSample{Temperature: 1},
	})
	require.NoError(t, err)
	second, err := repo.Append(ctx, domain.Reading{
		Kind: domain.KindMotion, DeviceID: "dev-1", RecordedAt: ts,
		Motion: &domain.MotionSample{Temperature: 2},
	})
	require.NoError(t, err)

	latest, err := repo.Latest(ctx, domain.KindMotion, "dev-1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.Equal(t, second.ID, latest.ID)
}

func TestLatestMissReturnsNil(t *testing.T) {
	repo := openTestRepo(t)

	latest, err := repo.Latest(context.Background(), domain.KindLocation, "ghost")
	require.NoError(t, err)
	require.Nil(t, latest)
}

func TestHistoryOrderingBoundsAndLimit(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)

	// Insert out of chronological order on purpose; the store must sort by
	// recorded_at, not by insertion order.
	offsets := []int{4, 0, 3, 1, 2}
	for _, offset := range offsets {
		_, err := repo.Append(ctx, domain.Reading{
			Kind:       domain.KindLocation,
			DeviceID:   "dev-1",
			RecordedAt: base.Add(time.Duration(offset) * time.Minute),
			Location:   &domain.LocationSample{Latitude: float64(offset), Longitude: 0},
		})
		require.NoError(t, err)
	}
	_, err := repo.Append(ctx, domain.Reading{
		Kind: domain.KindLocation, DeviceID: "dev-2", RecordedAt: base.Add(time.Hour),
		Location: &domain.LocationSample{Latitude: 99, Longitude: 0},
	})
	require.NoError(t, err)

	history, err := repo.History(ctx, domain.KindLocation, "dev-1", domain.HistoryFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, history, 5)
	for i := 1; i < len(history); i++ {
		require.False(t, history[i].RecordedAt.After(history[i-1].RecordedAt))
	}

	start := base.Add(1 * time.Minute)
	end := base.Add(3 * time.Minute)
	bounded, err := repo.History(ctx, domain.KindLocation, "dev-1", domain.HistoryFilter{
		Start: &start, End: &end, Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, bounded, 3)
	require.True(t, bounded[0].RecordedAt.Equal(end))
	require.True(t, bounded[2].RecordedAt.Equal(start))

	limited, err := repo.History(ctx, domain.KindLocation, "dev-1", domain.HistoryFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
}

func TestHistoryEmptyForUnknownDevice(t *testing.T) {
	repo := openTestRepo(t)

	history, err := repo.History(context.Background(), domain.KindMotion, "ghost", domain.HistoryFilter{Limit: 10})
	require.NoError(t, err)
	require.NotNil(t, history)
	require.Empty(t, history)
}
