package api

import (
	"time"

	"example.com/telemetry/internal/domain"
)

// AccelerationView mirrors the nested acceleration shape in responses.
type AccelerationView struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// MotionView is the stored representation of a sensor reading. Timestamps
// serialise as RFC3339 UTC.
type MotionView struct {
	ID           int64            `json:"id"`
	DeviceID     string           `json:"device_id"`
	Timestamp    time.Time        `json:"timestamp"`
	Acceleration AccelerationView `json:"acceleration"`
	Temperature  float64          `json:"temperature"`
}

// GPSView is the stored representation of a GPS fix. Altitude stays null
// when the device did not report one.
type GPSView struct {
	ID        int64     `json:"id"`
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  *float64  `json:"altitude"`
}

// LocationView is the stored representation of a location record.
type LocationView struct {
	ID             int64     `json:"id"`
	DeviceID       string    `json:"device_id"`
	Timestamp      time.Time `json:"timestamp"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	BatteryVoltage *float64  `json:"battery_voltage,omitempty"`
	LowBatteryMode bool      `json:"low_battery_mode"`
}

// CompositeView packages the latest reading of each kind served by /data.
type CompositeView struct {
	SensorData *MotionView `json:"sensor_data"`
	GPSData    *GPSView    `json:"gps_data"`
}

func toMotionView(r domain.Reading) MotionView {
	return MotionView{
		ID:        r.ID,
		DeviceID:  r.DeviceID,
		Timestamp: r.RecordedAt,
		Acceleration: AccelerationView{
			X: r.Motion.AccelerationX,
			Y: r.Motion.AccelerationY,
			Z: r.Motion.AccelerationZ,
		},
		Temperature: r.Motion.Temperature,
	}
}

func toGPSView(r domain.Reading) GPSView {
	return GPSView{
		ID:        r.ID,
		DeviceID:  r.DeviceID,
		Timestamp: r.RecordedAt,
		Latitude:  r.GPS.Latitude,
		Longitude: r.GPS.Longitude,
		Altitude:  r.GPS.Altitude,
	}
}

func toLocationView(r domain.Reading) LocationView {
	return LocationView{
		ID:             r.ID,
		DeviceID:       r.DeviceID,
		Timestamp:      r.RecordedAt,
		Latitude:       r.Location.Latitude,
		Longitude:      r.Location.Longitude,
		BatteryVoltage: r.Location.BatteryVoltage,
		LowBatteryMode: r.Location.LowBatteryMode,
	}
}

// toView dispatches on the reading's kind; ingest responses share the query
// views so a stored record always serialises the same way.
func toView(r domain.Reading) any {
	switch r.Kind {
	case domain.KindMotion:
		return toMotionView(r)
	case domain.KindGPS:
		return toGPSView(r)
	case domain.KindLocation:
		return toLocationView(r)
	}
	return nil
}
