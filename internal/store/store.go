package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"sync"

	"github.com/goccy/go-json"

	"github.com/i474232898/weathercrow/internal/flashfs"
	"github.com/i474232898/weathercrow/internal/weather"
)

// Collection files. Each holds exactly one JSON document.
const (
	WeatherDataFile   = "/weather_data.json"
	ConnectionLogFile = "/connection_log.json"
	FailureCountFile  = "/failure_count.json"
)

// Collection capacities.
const (
	MaxWeatherHistory = 3
	MaxConnectionLog  = 10
)

// RecordStore keeps bounded, newest-first collections on a flat filesystem.
//
// There is no cache: every call loads the file it needs, builds the new
// contents and replaces the whole file. A crash mid-call leaves the last
// fully written file in place, and a torn write is handled by the loaders
// treating unparseable data as empty.
type RecordStore struct {
	fs    flashfs.FS
	clock Clock

	// serializes load-modify-store so concurrent readers never observe a
	// half-applied rotation
	mu sync.Mutex
}

// Option configures a RecordStore.
type Option func(*RecordStore)

// WithClock overrides the uptime source used for saved timestamps.
func WithClock(c Clock) Option {
	return func(s *RecordStore) {
		s.clock = c
	}
}

// New creates a RecordStore on fsys. Call Initialize before use.
func New(fsys flashfs.FS, opts ...Option) *RecordStore {
	s := &RecordStore{
		fs:    fsys,
		clock: NewUptimeClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize mounts the backing filesystem, formatting it if needed.
// Until it succeeds every other operation degrades to its default.
func (s *RecordStore) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.Mount(); err != nil {
		log.Printf("ERROR: store: failed to initialize filesystem: %v", err)
		return fmt.Errorf("%w: %v", ErrMount, err)
	}
	log.Printf("INFO: store: filesystem initialized")
	return nil
}

// SaveWeatherSnapshot prepends raw to the weather history, stamped with the
// current uptime. Failures are logged, never returned.
func (s *RecordStore) SaveWeatherSnapshot(raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.saveWeatherSnapshot(raw); err != nil {
		log.Printf("ERROR: store: failed to save weather data: %v", err)
		return
	}
	log.Printf("store: weather data saved")
}

// LoadLatestWeatherSnapshot returns a copy of the newest snapshot, or false
// when none is stored or the file cannot be parsed.
func (s *RecordStore) LoadLatestWeatherSnapshot() (weather.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.loadLatestWeatherSnapshot()
	if err != nil {
		logReadError("weather data", err)
		return nil, false
	}
	return snap, true
}

// LoadWeatherHistory returns every stored snapshot, newest first.
func (s *RecordStore) LoadWeatherHistory() []weather.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snaps, err := s.loadWeatherHistory()
	if err != nil {
		logReadError("weather history", err)
		return nil
	}
	return snaps
}

// LogConnectionAttempt prepends an attempt to the connection log.
func (s *RecordStore) LogConnectionAttempt(success bool, errorMessage string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.logConnectionAttempt(success, errorMessage); err != nil {
		log.Printf("ERROR: store: failed to log connection attempt: %v", err)
	}
}

// LoadConnectionLog returns the logged attempts, newest first.
func (s *RecordStore) LoadConnectionLog() []weather.ConnectionLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.loadConnectionLog()
	if err != nil {
		logReadError("connection log", err)
		return nil
	}
	return entries
}

// ConsecutiveFailureCount returns the stored count, or 0 when absent or
// unreadable.
func (s *RecordStore) ConsecutiveFailureCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.consecutiveFailureCount()
	if err != nil {
		logReadError("failure count", err)
		return 0
	}
	return n
}

// SetConsecutiveFailureCount replaces the stored count.
func (s *RecordStore) SetConsecutiveFailureCount(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setConsecutiveFailureCount(count); err != nil {
		log.Printf("ERROR: store: failed to update failure count: %v", err)
	}
}

// LastConnectionTimestamp returns dt + timezone_offset of the newest
// snapshot: the local time of the last successful fetch. It is 0 when no
// snapshot is stored or either field is missing.
func (s *RecordStore) LastConnectionTimestamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts, err := s.lastConnectionTimestamp()
	if err != nil {
		logReadError("last connection timestamp", err)
		return 0
	}
	return ts
}

func (s *RecordStore) saveWeatherSnapshot(raw []byte) error {
	prev, err := s.loadHistory(WeatherDataFile)
	if err != nil && !errors.Is(err, ErrNotFound) {
		log.Printf("store: existing weather data unusable, starting fresh: %v", err)
	}

	snap, err := weather.ParseSnapshot(raw)
	if err != nil {
		return fmt.Errorf("%w: new weather record: %v", ErrParse, err)
	}
	snap.SetInt64(weather.FieldSavedTimestamp, s.uptimeMs())

	entry, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("%w: encode weather record: %v", ErrParse, err)
	}

	return s.writeJSON(WeatherDataFile, rotate(json.RawMessage(entry), prev, MaxWeatherHistory))
}

func (s *RecordStore) loadLatestWeatherSnapshot() (weather.Snapshot, error) {
	entries, err := s.loadHistory(WeatherDataFile)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: weather history is empty", ErrNotFound)
	}

	snap, err := weather.ParseSnapshot(entries[0])
	if err != nil {
		return nil, fmt.Errorf("%w: latest weather entry: %v", ErrParse, err)
	}
	return snap, nil
}

func (s *RecordStore) loadWeatherHistory() ([]weather.Snapshot, error) {
	entries, err := s.loadHistory(WeatherDataFile)
	if err != nil {
		return nil, err
	}

	snaps := make([]weather.Snapshot, 0, len(entries))
	for _, e := range entries {
		snap, err := weather.ParseSnapshot(e)
		if err != nil {
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func (s *RecordStore) logConnectionAttempt(success bool, errorMessage string) error {
	prev, err := s.loadHistory(ConnectionLogFile)
	if err != nil && !errors.Is(err, ErrNotFound) {
		log.Printf("store: existing connection log unusable, starting fresh: %v", err)
	}

	entry, err := json.Marshal(weather.NewConnectionLogEntry(s.uptimeMs(), success, errorMessage))
	if err != nil {
		return fmt.Errorf("%w: encode log entry: %v", ErrParse, err)
	}

	return s.writeJSON(ConnectionLogFile, rotate(json.RawMessage(entry), prev, MaxConnectionLog))
}

func (s *RecordStore) loadConnectionLog() ([]weather.ConnectionLogEntry, error) {
	raws, err := s.loadHistory(ConnectionLogFile)
	if err != nil {
		return nil, err
	}

	entries := make([]weather.ConnectionLogEntry, 0, len(raws))
	for _, raw := range raws {
		if !isObject(raw) {
			continue
		}
		var e weather.ConnectionLogEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *RecordStore) consecutiveFailureCount() (int, error) {
	data, err := s.readFile(FailureCountFile)
	if err != nil {
		return 0, err
	}

	var c weather.FailureCounter
	if err := json.Unmarshal(data, &c); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrParse, FailureCountFile, err)
	}
	if c.Count < 0 {
		return 0, nil
	}
	return c.Count, nil
}

func (s *RecordStore) setConsecutiveFailureCount(count int) error {
	if count < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}
	return s.writeJSON(FailureCountFile, weather.FailureCounter{
		Count:       count,
		LastUpdated: s.uptimeMs(),
	})
}

func (s *RecordStore) lastConnectionTimestamp() (int64, error) {
	snap, err := s.loadLatestWeatherSnapshot()
	if err != nil {
		return 0, err
	}
	ts, ok := snap.LocalObservedAt()
	if !ok {
		return 0, nil
	}
	return ts, nil
}

// loadHistory reads a collection file. A document that parses but is not an
// array is reported as ErrParse so callers fall back to an empty history.
func (s *RecordStore) loadHistory(name string) ([]json.RawMessage, error) {
	data, err := s.readFile(name)
	if err != nil {
		return nil, err
	}
	entries, err := decodeHistory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, name, err)
	}
	return entries, nil
}

func (s *RecordStore) readFile(name string) ([]byte, error) {
	data, err := s.fs.ReadFile(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// writeJSON replaces name with the encoding of v in a single write.
func (s *RecordStore) writeJSON(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := s.fs.WriteFile(name, data); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, name, err)
	}
	return nil
}

func (s *RecordStore) uptimeMs() int64 {
	return s.clock.Uptime().Milliseconds()
}

func logReadError(what string, err error) {
	if errors.Is(err, ErrNotFound) {
		return
	}
	log.Printf("store: failed to load %s: %v", what, err)
}
