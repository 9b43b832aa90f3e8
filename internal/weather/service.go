package weather

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxBackoffShift caps RetryDelay at 16x the base interval.
const maxBackoffShift = 4

// Service runs the fetch cycle against the store and exposes the stored
// views to consumers.
type Service struct {
	store    Store
	fetcher  Fetcher
	location Location

	mu           sync.Mutex
	storageReady bool
}

// NewService creates a new Service. storageReady reports whether the caller
// already initialized the store successfully.
func NewService(store Store, fetcher Fetcher, location Location, storageReady bool) *Service {
	return &Service{
		store:        store,
		fetcher:      fetcher,
		location:     location,
		storageReady: storageReady,
	}
}

// RunCycle performs one fetch-and-store pass: fetch a record, persist it,
// log the attempt and update the consecutive-failure counter.
func (s *Service) RunCycle(ctx context.Context) error {
	cycle := uuid.NewString()
	s.ensureStorage(cycle)

	if s.fetcher == nil {
		log.Printf("ERROR: cycle %s: no fetcher configured", cycle)
		return fmt.Errorf("no weather fetcher configured")
	}

	log.Printf("DEBUG: cycle %s: fetching %s via %s", cycle, s.location.Key(), s.fetcher.Name())

	raw, err := s.fetcher.Fetch(ctx, s.location)
	if err != nil {
		failures := s.store.ConsecutiveFailureCount() + 1
		log.Printf("cycle %s: fetch failed for %s (%d consecutive): %v", cycle, s.location.Key(), failures, err)

		s.store.LogConnectionAttempt(false, err.Error())
		s.store.SetConsecutiveFailureCount(failures)
		return err
	}

	s.store.SaveWeatherSnapshot(raw)
	s.store.LogConnectionAttempt(true, "")
	s.store.SetConsecutiveFailureCount(0)

	log.Printf("cycle %s: stored %d byte record for %s", cycle, len(raw), s.location.Key())
	return nil
}

// ensureStorage retries Initialize when the previous mount failed.
func (s *Service) ensureStorage(cycle string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.storageReady {
		return
	}
	if err := s.store.Initialize(); err != nil {
		log.Printf("ERROR: cycle %s: storage still unavailable: %v", cycle, err)
		return
	}
	log.Printf("INFO: cycle %s: storage remounted", cycle)
	s.storageReady = true
}

// StorageReady reports whether the store is mounted.
func (s *Service) StorageReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storageReady
}

// RetryDelay scales base by the persisted consecutive-failure count.
func (s *Service) RetryDelay(base time.Duration) time.Duration {
	n := s.store.ConsecutiveFailureCount()
	if n > maxBackoffShift {
		n = maxBackoffShift
	}
	return base << uint(n)
}

// Location returns the configured location.
func (s *Service) Location() Location {
	return s.location
}

// Latest returns the most recently stored snapshot.
func (s *Service) Latest() (Snapshot, bool) {
	return s.store.LoadLatestWeatherSnapshot()
}

// History returns all stored snapshots, newest first.
func (s *Service) History() []Snapshot {
	return s.store.LoadWeatherHistory()
}

// Current returns a display summary of the latest snapshot.
func (s *Service) Current() (Summary, bool) {
	snap, ok := s.store.LoadLatestWeatherSnapshot()
	if !ok {
		return Summary{}, false
	}
	return Summarize(snap)
}

// ConnectionLog returns up to limit connection attempts, newest first.
// limit <= 0 returns all of them.
func (s *Service) ConnectionLog(limit int) []ConnectionLogEntry {
	entries := s.store.LoadConnectionLog()
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// LastConnectionTimestamp delegates to the underlying store.
func (s *Service) LastConnectionTimestamp() int64 {
	return s.store.LastConnectionTimestamp()
}

// FailureCount delegates to the underlying store.
func (s *Service) FailureCount() int {
	return s.store.ConsecutiveFailureCount()
}

// SetFailureCount delegates to the underlying store.
func (s *Service) SetFailureCount(count int) {
	s.store.SetConsecutiveFailureCount(count)
}
