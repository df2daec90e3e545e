// Package sqlite provides a SQLite-backed telemetry store for single-node
// deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"example.com/telemetry/internal/domain"
)

// Repository wraps the SQLite database connection and schema lifecycle.
type Repository struct {
	db *sql.DB
}

// Open initializes the database connection, creating directories as needed.
// A single write connection keeps appends serialised without table locks
// leaking into readers.
func Open(path string) (*Repository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &Repository{db: db}, nil
}

// Close releases the underlying database handle.
func (r *Repository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// InitSchema ensures the per-kind append-only tables exist. Timestamps are
// stored as unix nanoseconds so range scans and ordering stay numeric.
func (r *Repository) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS motion_readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL,
			recorded_at INTEGER NOT NULL,
			acceleration_x REAL NOT NULL,
			acceleration_y REAL NOT NULL,
			acceleration_z REAL NOT NULL,
			temperature REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_motion_device_time ON motion_readings(device_id, recorded_at DESC, id DESC);`,
		`CREATE TABLE IF NOT EXISTS gps_fixes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL,
			recorded_at INTEGER NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			altitude REAL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_gps_device_time ON gps_fixes(device_id, recorded_at DESC, id DESC);`,
		`CREATE TABLE IF NOT EXISTS location_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL,
			recorded_at INTEGER NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			battery_voltage REAL,
			low_battery_mode INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_location_device_time ON location_records(device_id, recorded_at DESC, id DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// kindQuery describes the per-kind SQL surface: table, select column list
// and how to scan a row back into a Reading.
type kindQuery struct {
	table      string
	selectCols string
	scan       func(rowScanner) (domain.Reading, error)
}

var kindQueries = map[domain.Kind]kindQuery{
	domain.KindMotion: {
		table:      "motion_readings",
		selectCols: "id, device_id, recorded_at, acceleration_x, acceleration_y, acceleration_z, temperature",
		scan:       scanMotion,
	},
	domain.KindGPS: {
		table:      "gps_fixes",
		selectCols: "id, device_id, recorded_at, latitude, longitude, altitude",
		scan:       scanGPS,
	},
	domain.KindLocation: {
		table:      "location_records",
		selectCols: "id, device_id, recorded_at, latitude, longitude, battery_voltage, low_battery_mode",
		scan:       scanLocation,
	},
}

// Append implements domain.Repository.
func (r *Repository) Append(ctx context.Context, reading domain.Reading) (domain.Reading, error) {
	recordedAt := reading.RecordedAt.UTC().UnixNano()

	var (
		res sql.Result
		err error
	)
	switch reading.Kind {
	case domain.KindMotion:
		m := reading.Motion
		res, err = r.db.ExecContext(ctx,
			`INSERT INTO motion_readings (device_id, recorded_at, acceleration_x, acceleration_y, acceleration_z, temperature)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			reading.DeviceID, recordedAt, m.AccelerationX, m.AccelerationY, m.AccelerationZ, m.Temperature)
	case domain.KindGPS:
		g := reading.GPS
		res, err = r.db.ExecContext(ctx,
			`INSERT INTO gps_fixes (device_id, recorded_at, latitude, longitude, altitude)
			 VALUES (?, ?, ?, ?, ?)`,
			reading.DeviceID, recordedAt, g.Latitude, g.Longitude, nullableFloat(g.Altitude))
	case domain.KindLocation:
		l := reading.Location
		res, err = r.db.ExecContext(ctx,
			`INSERT INTO location_records (device_id, recorded_at, latitude, longitude, battery_voltage, low_battery_mode)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			reading.DeviceID, recordedAt, l.Latitude, l.Longitude, nullableFloat(l.BatteryVoltage), boolToInt(l.LowBatteryMode))
	default:
		return domain.Reading{}, domain.ErrUnknownKind
	}
	if err != nil {
		return domain.Reading{}, fmt.Errorf("insert %s reading: %w", reading.Kind, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.Reading{}, fmt.Errorf("read inserted id: %w", err)
	}

	reading.ID = id
	reading.RecordedAt = reading.RecordedAt.UTC()
	return reading, nil
}

// Latest implements domain.Repository.
func (r *Repository) Latest(ctx context.Context, kind domain.Kind, deviceID string) (*domain.Reading, error) {
	kq, ok := kindQueries[kind]
	if !ok {
		return nil, domain.ErrUnknownKind
	}

	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE device_id = ? ORDER BY recorded_at DESC, id DESC LIMIT 1`,
		kq.selectCols, kq.table)

	reading, err := kq.scan(r.db.QueryRowContext(ctx, query, deviceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select latest %s reading: %w", kind, err)
	}
	return &reading, nil
}

// History implements domain.Repository.
func (r *Repository) History(ctx context.Context, kind domain.Kind, deviceID string, filter domain.HistoryFilter) ([]domain.Reading, error) {
	kq, ok := kindQueries[kind]
	if !ok {
		return nil, domain.ErrUnknownKind
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE device_id = ?`, kq.selectCols, kq.table)
	args := []any{deviceID}

	if filter.Start != nil {
		query += ` AND recorded_at >= ?`
		args = append(args, filter.Start.UTC().UnixNano())
	}
	if filter.End != nil {
		query += ` AND recorded_at <= ?`
		args = append(args, filter.End.UTC().UnixNano())
	}
	query += ` ORDER BY recorded_at DESC, id DESC LIMIT ?`
	args = append(args, filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
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

func scanMotion(row rowScanner) (domain.Reading, error) {
	var (
		reading    domain.Reading
		recordedNs int64
		sample     domain.MotionSample
	)
	if err := row.Scan(&reading.ID, &reading.DeviceID, &recordedNs,
		&sample.AccelerationX, &sample.AccelerationY, &sample.AccelerationZ, &sample.Temperature); err != nil {
		return domain.Reading{}, err
	}
	reading.Kind = domain.KindMotion
	reading.RecordedAt = time.Unix(0, recordedNs).UTC()
	reading.Motion = &sample
	return reading, nil
}

func scanGPS(row rowScanner) (domain.Reading, error) {
	var (
		reading    domain.Reading
		recordedNs int64
		sample     domain.GPSSample
		altitude   sql.NullFloat64
	)
	if err := row.Scan(&reading.ID, &reading.DeviceID, &recordedNs,
		&sample.Latitude, &sample.Longitude, &altitude); err != nil {
		return domain.Reading{}, err
	}
	if altitude.Valid {
		sample.Altitude = &altitude.Float64
	}
	reading.Kind = domain.KindGPS
	reading.RecordedAt = time.Unix(0, recordedNs).UTC()
	reading.GPS = &sample
	return reading, nil
}

func scanLocation(row rowScanner) (domain.Reading, error) {
	var (
		reading    domain.Reading
		recordedNs int64
		sample     domain.LocationSample
		battery    sql.NullFloat64
		lowBattery int
	)
	if err := row.Scan(&reading.ID, &reading.DeviceID, &recordedNs,
		&sample.Latitude, &sample.Longitude, &battery, &lowBattery); err != nil {
		return domain.Reading{}, err
	}
	if battery.Valid {
		sample.BatteryVoltage = &battery.Float64
	}
	sample.LowBatteryMode = lowBattery != 0
	reading.Kind = domain.KindLocation
	reading.RecordedAt = time.Unix(0, recordedNs).UTC()
	reading.Location = &sample
	return reading, nil
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
