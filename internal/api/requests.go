package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"example.com/telemetry/internal/domain"
)

// Request types use pointer fields so absent and zero-valued payload members
// can be told apart; Validate names the first mandatory field that is
// missing. Wrong JSON types are caught at decode time and mapped to the
// offending field.

// AccelerationVector is the nested acceleration payload of a sensor reading.
type AccelerationVector struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

// SensorDataRequest is the payload for POST /sensor-data.
type SensorDataRequest struct {
	DeviceID     string              `json:"device_id"`
	Acceleration *AccelerationVector `json:"acceleration"`
	Temperature  *float64            `json:"temperature"`
	Timestamp    *time.Time          `json:"timestamp,omitempty"`
}

// Validate ensures every mandatory field is present.
func (r SensorDataRequest) Validate() error {
	if r.Acceleration == nil {
		return domain.MissingFieldError{Field: "acceleration"}
	}
	if r.Acceleration.X == nil {
		return domain.MissingFieldError{Field: "acceleration.x"}
	}
	if r.Acceleration.Y == nil {
		return domain.MissingFieldError{Field: "acceleration.y"}
	}
	if r.Acceleration.Z == nil {
		return domain.MissingFieldError{Field: "acceleration.z"}
	}
	if r.Temperature == nil {
		return domain.MissingFieldError{Field: "temperature"}
	}
	return nil
}

// Input converts the request into an ingest input bound to the
// authenticated device (empty on the legacy path).
func (r SensorDataRequest) Input(authenticatedDevice string) domain.IngestInput {
	return domain.IngestInput{
		Kind:                domain.KindMotion,
		DeviceID:            r.DeviceID,
		AuthenticatedDevice: authenticatedDevice,
		RecordedAt:          r.Timestamp,
		Motion: &domain.MotionSample{
			AccelerationX: *r.Acceleration.X,
			AccelerationY: *r.Acceleration.Y,
			AccelerationZ: *r.Acceleration.Z,
			Temperature:   *r.Temperature,
		},
	}
}

// GPSDataRequest is the payload for POST /gps-data.
type GPSDataRequest struct {
	DeviceID  string     `json:"device_id"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Altitude  *float64   `json:"altitude,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Validate ensures every mandatory field is present.
func (r GPSDataRequest) Validate() error {
	if r.Latitude == nil {
		return domain.MissingFieldError{Field: "latitude"}
	}
	if r.Longitude == nil {
		return domain.MissingFieldError{Field: "longitude"}
	}
	return nil
}

// Input converts the request into an ingest input.
func (r GPSDataRequest) Input(authenticatedDevice string) domain.IngestInput {
	return domain.IngestInput{
		Kind:                domain.KindGPS,
		DeviceID:            r.DeviceID,
		AuthenticatedDevice: authenticatedDevice,
		RecordedAt:          r.Timestamp,
		GPS: &domain.GPSSample{
			Latitude:  *r.Latitude,
			Longitude: *r.Longitude,
			Altitude:  r.Altitude,
		},
	}
}

// LocationRequest is the payload for POST /location.
type LocationRequest struct {
	DeviceID       string     `json:"device_id"`
	Latitude       *float64   `json:"latitude"`
	Longitude      *float64   `json:"longitude"`
	BatteryVoltage *float64   `json:"battery_voltage,omitempty"`
	LowBatteryMode *bool      `json:"low_battery_mode,omitempty"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
}

// Validate ensures every mandatory field is present.
func (r LocationRequest) Validate() error {
	if r.Latitude == nil {
		return domain.MissingFieldError{Field: "latitude"}
	}
	if r.Longitude == nil {
		return domain.MissingFieldError{Field: "longitude"}
	}
	return nil
}

// Input converts the request into an ingest input. LowBatteryMode defaults
// to false when the producer omits it.
func (r LocationRequest) Input(authenticatedDevice string) domain.IngestInput {
	lowBattery := false
	if r.LowBatteryMode != nil {
		lowBattery = *r.LowBatteryMode
	}
	return domain.IngestInput{
		Kind:                domain.KindLocation,
		DeviceID:            r.DeviceID,
		AuthenticatedDevice: authenticatedDevice,
		RecordedAt:          r.Timestamp,
		Location: &domain.LocationSample{
			Latitude:       *r.Latitude,
			Longitude:      *r.Longitude,
			BatteryVoltage: r.BatteryVoltage,
			LowBatteryMode: lowBattery,
		},
	}
}

// ErrUnparsableBody marks request bodies that are not valid JSON at all.
var ErrUnparsableBody = errors.New("unable to parse body")

// DecodeBody parses a JSON request body into dst, mapping type mismatches to
// the offending field.
func DecodeBody(body io.Reader, dst any) error {
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return domain.InvalidFieldTypeError{Field: typeErr.Field}
		}
		return fmt.Errorf("%w: %v", ErrUnparsableBody, err)
	}
	return nil
}
