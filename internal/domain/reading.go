package domain

import "time"

// Kind identifies the schema variant of a Reading.
type Kind string

const (
	// KindMotion covers acceleration plus temperature samples.
	KindMotion Kind = "motion"
	// KindGPS covers satellite position fixes.
	KindGPS Kind = "gps"
	// KindLocation covers generic location records with battery state.
	KindLocation Kind = "location"
)

// Kinds lists every registered reading kind.
var Kinds = []Kind{KindMotion, KindGPS, KindLocation}

// Valid reports whether k names a registered kind.
func (k Kind) Valid() bool {
	switch k {
	case KindMotion, KindGPS, KindLocation:
		return true
	}
	return false
}

// MotionSample is the payload of a motion/environment reading. All fields
// are mandatory at ingest time.
type MotionSample struct {
	AccelerationX float64
	AccelerationY float64
	AccelerationZ float64
	Temperature   float64
}

// GPSSample is the payload of a GPS fix. Altitude is optional.
type GPSSample struct {
	Latitude  float64
	Longitude float64
	Altitude  *float64
}

// LocationSample is the payload of a generic location record.
type LocationSample struct {
	Latitude       float64
	Longitude      float64
	BatteryVoltage *float64
	LowBatteryMode bool
}

// Reading is one immutable telemetry record for a device. Exactly one of the
// payload fields is set, matching Kind. ID is assigned by the store and its
// order is consistent with insertion order within a kind; RecordedAt drives
// query filtering and ordering but is not assumed unique or monotonic.
type Reading struct {
	ID         int64
	Kind       Kind
	DeviceID   string
	RecordedAt time.Time

	Motion   *MotionSample
	GPS      *GPSSample
	Location *LocationSample
}

// HistoryFilter bounds a history query. Nil time bounds are unbounded; Limit
// is normalised by the service before it reaches a repository.
type HistoryFilter struct {
	Start *time.Time
	End   *time.Time
	Limit int
}
