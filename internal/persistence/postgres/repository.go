// Package postgres provides the pgx-backed telemetry store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/telemetry/internal/domain"
)

// Repository provides Postgres-backed persistence for telemetry readings.
// Each kind has its own append-only table; inserts are single statements, so
// concurrent producers only contend at row level.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Migrate ensures the per-kind tables and their device/time indexes exist.
func (r *Repository) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS motion_readings (
			id BIGSERIAL PRIMARY KEY,
			device_id TEXT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL,
			acceleration_x DOUBLE PRECISION NOT NULL,
			acceleration_y DOUBLE PRECISION NOT NULL,
			acceleration_z DOUBLE PRECISION NOT NULL,
			temperature DOUBLE PRECISION NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_motion_device_time ON motion_readings (device_id, recorded_at DESC, id DESC)`,
		`CREATE TABLE IF NOT EXISTS gps_fixes (
			id BIGSERIAL PRIMARY KEY,
			device_id TEXT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			altitude DOUBLE PRECISION
		)`,
		`CREATE INDEX IF NOT EXISTS idx_gps_device_time ON gps_fixes (device_id, recorded_at DESC, id DESC)`,
		`CREATE TABLE IF NOT EXISTS location_records (
			id BIGSERIAL PRIMARY KEY,
			device_id TEXT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			battery_voltage DOUBLE PRECISION,
			low_battery_mode BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_location_device_time ON location_records (device_id, recorded_at DESC, id DESC)`,
	}

	for _, stmt := range stmts {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Append implements domain.Repository.
func (r *Repository) Append(ctx context.Context, reading domain.Reading) (domain.Reading, error) {
	var row pgx.Row
	switch reading.Kind {
	case domain.KindMotion:
		m := reading.Motion
		row = r.pool.QueryRow(ctx,
			`INSERT INTO motion_readings (device_id, recorded_at, acceleration_x, acceleration_y, acceleration_z, temperature)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			reading.DeviceID, reading.RecordedAt.UTC(), m.AccelerationX, m.AccelerationY, m.AccelerationZ, m.Temperature)
	case domain.KindGPS:
		g := reading.GPS
		row = r.pool.QueryRow(ctx,
			`INSERT INTO gps_fixes (device_id, recorded_at, latitude, longitude, altitude)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			reading.DeviceID, reading.RecordedAt.UTC(), g.Latitude, g.Longitude, g.Altitude)
	case domain.KindLocation:
		l := reading.Location
		row = r.pool.QueryRow(ctx,
			`INSERT INTO location_records (device_id, recorded_at, latitude, longitude, battery_voltage, low_battery_mode)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			reading.DeviceID, reading.RecordedAt.UTC(), l.Latitude, l.Longitude, l.BatteryVoltage, l.LowBatteryMode)
	default:
		return domain.Reading{}, domain.ErrUnknownKind
	}

	if err := row.Scan(&reading.ID); err != nil {
		return domain.Reading{}, fmt.Errorf("insert %s reading: %w", reading.Kind, err)
	}
	reading.RecordedAt = reading.RecordedAt.UTC()
	return reading, nil
}

// Latest implements domain.Repository.
func (r *Repository) Latest(ctx context.Context, kind domain.Kind, deviceID string) (*domain.Reading, error) {
	kq, ok := kindStatements[kind]
	if !ok {
		return nil, domain.ErrUnknownKind
	}

	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE device_id = $1 ORDER BY recorded_at DESC, id DESC LIMIT 1`,
		kq.selectCols, kq.table)

	reading, err := kq.scan(r.pool.QueryRow(ctx, query, deviceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select latest %s reading: %w", kind, err)
	}
	return &reading, nil
}

// History implements domain.Repository.
func (r *Repository) History(ctx context.Context, kind domain.Kind, deviceID string, filter domain.HistoryFilter) ([]domain.Reading, error) {
	kq, ok := kindStatements[kind]
	if !ok {
		return nil, domain.ErrUnknownKind
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE device_id = $1`, kq.selectCols, kq.table)
	args := []any{deviceID}

	if filter.Start != nil {
		args = append(args, filter.Start.UTC())
		query += fmt.Sprintf(` AND recorded_at >= $%d`, len(args))
	}
	if filter.End != nil {
		args = append(args, filter.End.UTC())
		query += fmt.Sprintf(` AND recorded_at <= $%d`, len(args))
	}
	args = append(args, filter.Limit)
	query += fmt.Sprintf(` ORDER BY recorded_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s history: %w", kind, err)
	}
	defer rows.Close()

	results := make([]domain.Reading, 0, filter.Limit)
	for rows.Next() {
		reading, err := kq.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s history row: %w", kind, err)
		}
		results = append(results, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s history: %w", kind, err)
	}
	return results, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

type kindStatement struct {
	table      string
	selectCols string
	scan       func(rowScanner) (domain.Reading, error)
}

var kindStatements = map[domain.Kind]kindStatement{
	domain.KindMotion: {
		table:      "motion_readings",
		selectCols: "id, device_id, recorded_at, acceleration_x, acceleration_y, acceleration_z, temperature",
		scan: func(row rowScanner) (domain.Reading, error) {
			var (
				reading domain.Reading
				sample  domain.MotionSample
			)
			if err := row.Scan(&reading.ID, &reading.DeviceID, &reading.RecordedAt,
				&sample.AccelerationX, &sample.AccelerationY, &sample.AccelerationZ, &sample.Temperature); err != nil {
				return domain.Reading{}, err
			}
			reading.Kind = domain.KindMotion
			reading.RecordedAt = reading.RecordedAt.UTC()
			reading.Motion = &sample
			return reading, nil
		},
	},
	domain.KindGPS: {
		table:      "gps_fixes",
		selectCols: "id, device_id, recorded_at, latitude, longitude, altitude",
		scan: func(row rowScanner) (domain.Reading, error) {
			var (
				reading  domain.Reading
				sample   domain.GPSSample
				altitude sql.NullFloat64
			)
			if err := row.Scan(&reading.ID, &reading.DeviceID, &reading.RecordedAt,
				&sample.Latitude, &sample.Longitude, &altitude); err != nil {
				return domain.Reading{}, err
			}
			if altitude.Valid {
				sample.Altitude = &altitude.Float64
			}
			reading.Kind = domain.KindGPS
			reading.RecordedAt = reading.RecordedAt.UTC()
			reading.GPS = &sample
			return reading, nil
		},
	},
	domain.KindLocation: {
		table:      "location_records",
		selectCols: "id, device_id, recorded_at, latitude, longitude, battery_voltage, low_battery_mode",
		scan: func(row rowScanner) (domain.Reading, error) {
			var (
				reading domain.Reading
				sample  domain.LocationSample
				battery sql.NullFloat64
			)
			if err := row.Scan(&reading.ID, &reading.DeviceID, &reading.RecordedAt,
				&sample.Latitude, &sample.Longitude, &battery, &sample.LowBatteryMode); err != nil {
				return domain.Reading{}, err
			}
			if battery.Valid {
				sample.BatteryVoltage = &battery.Float64
			}
			reading.Kind = domain.KindLocation
			reading.RecordedAt = reading.RecordedAt.UTC()
			reading.Location = &sample
			return reading, nil
		},
	},
}
