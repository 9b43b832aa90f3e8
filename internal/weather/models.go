package weather

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/i474232898/weathercrow/internal/common"
)

// Record field names the store and the derived views depend on.
const (
	FieldObservedAt     = "dt"
	FieldTimezoneOffset = "timezone_offset"
	FieldSavedTimestamp = "saved_timestamp"
)

// ErrNotObject is returned when a serialized record is valid JSON but not an object.
var ErrNotObject = errors.New("record is not a JSON object")

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// ConditionFromGroup maps an OpenWeatherMap condition group ("Clear",
// "Clouds", "Rain", ...) to a Condition.
func ConditionFromGroup(group string) Condition {
	switch group {
	case "Clear":
		return ConditionClear
	case "Clouds":
		return ConditionCloudy
	case "Rain", "Drizzle":
		return ConditionRain
	case "Snow":
		return ConditionSnow
	case "Thunderstorm":
		return ConditionStorm
	}
	if common.HasAny(group, "Mist", "Fog", "Haze", "Smoke", "Dust") {
		return ConditionMist
	}
	return ConditionUnknown
}

// Location is the place the device reports weather for.
// Lat/Lon are nil until configured or geocoded.
type Location struct {
	Name string   `json:"name"`
	Lat  *float64 `json:"lat,omitempty"`
	Lon  *float64 `json:"lon,omitempty"`
}

// Key returns a canonical string key for logging.
func (l Location) Key() string {
	if l.Lat != nil && l.Lon != nil {
		return fmt.Sprintf("%s(%.4f,%.4f)", l.Name, *l.Lat, *l.Lon)
	}
	return l.Name
}

// HasCoordinates reports whether both latitude and longitude are set.
func (l Location) HasCoordinates() bool {
	return l.Lat != nil && l.Lon != nil
}

// Snapshot is one persisted weather observation. Fields are kept as raw JSON
// so that whatever the fetcher produced is written back unchanged.
type Snapshot map[string]json.RawMessage

// ParseSnapshot decodes a serialized record. The record must be a JSON object.
func ParseSnapshot(raw []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrNotObject
	}
	return s, nil
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for k, v := range s {
		buf := make(json.RawMessage, len(v))
		copy(buf, v)
		out[k] = buf
	}
	return out
}

// Int64 returns the named field as an integer. Fractional values are
// truncated. ok is false when the field is missing or not a number.
func (s Snapshot) Int64(field string) (int64, bool) {
	raw, ok := s[field]
	if !ok {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return int64(f), true
}

// SetInt64 stores an integer field.
func (s Snapshot) SetInt64(field string, v int64) {
	s[field] = json.RawMessage(fmt.Sprintf("%d", v))
}

// SavedTimestamp returns the device uptime in milliseconds at which the
// snapshot was persisted.
func (s Snapshot) SavedTimestamp() (int64, bool) {
	return s.Int64(FieldSavedTimestamp)
}

// LocalObservedAt returns dt + timezone_offset when both are present.
func (s Snapshot) LocalObservedAt() (int64, bool) {
	dt, ok := s.Int64(FieldObservedAt)
	if !ok {
		return 0, false
	}
	off, ok := s.Int64(FieldTimezoneOffset)
	if !ok {
		return 0, false
	}
	return dt + off, true
}

// ConnectionLogEntry records one attempt to reach the weather API.
// Timestamp is device uptime in milliseconds.
type ConnectionLogEntry struct {
	Timestamp int64  `json:"timestamp"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// NewConnectionLogEntry builds an entry. The error message is kept only for
// failed attempts.
func NewConnectionLogEntry(uptimeMs int64, success bool, errMsg string) ConnectionLogEntry {
	e := ConnectionLogEntry{Timestamp: uptimeMs, Success: success}
	if !success && errMsg != "" {
		e.Error = errMsg
	}
	return e
}

// FailureCounter is the persisted consecutive-failure count.
type FailureCounter struct {
	Count       int   `json:"count"`
	LastUpdated int64 `json:"last_updated"`
}
