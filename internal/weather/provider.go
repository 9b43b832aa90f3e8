package weather

import (
	"context"
)

// Fetcher abstracts a weather data source. Fetch returns one serialized
// weather record, expected (not required) to carry dt and timezone_offset.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, loc Location) ([]byte, error)
}

// Store is the contract the rotating record store satisfies. Writes are
// best-effort and reads degrade to defaults, so none of these return errors
// except Initialize.
type Store interface {
	Initialize() error

	SaveWeatherSnapshot(raw []byte)
	LoadLatestWeatherSnapshot() (Snapshot, bool)
	LoadWeatherHistory() []Snapshot

	LogConnectionAttempt(success bool, errorMessage string)
	LoadConnectionLog() []ConnectionLogEntry

	ConsecutiveFailureCount() int
	SetConsecutiveFailureCount(count int)

	LastConnectionTimestamp() int64
}
