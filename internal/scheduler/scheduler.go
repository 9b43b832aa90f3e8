package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// Runner is the fetch cycle the scheduler drives.
type Runner interface {
	RunCycle(ctx context.Context) error
	RetryDelay(base time.Duration) time.Duration
}

// Scheduler periodically runs the fetch cycle. Runs never overlap, and after
// failures runs are skipped until the runner's retry delay has elapsed.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	interval  time.Duration
	timeout   time.Duration

	mu      sync.Mutex
	nextRun time.Time
}

// New creates a new Scheduler.
func New(interval time.Duration, runner Runner) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		interval:  interval,
		timeout:   2 * time.Minute,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.interval = 60 * time.Minute
	}

	_, err := s.scheduler.Every(s.interval).Do(s.tick)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) tick() {
	now := time.Now()

	s.mu.Lock()
	if now.Before(s.nextRun) {
		next := s.nextRun
		s.mu.Unlock()
		log.Printf("scheduler: backing off until %s", next.Format(time.RFC3339))
		return
	}
	s.mu.Unlock()

	log.Println("scheduler: running weather fetch cycle")

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.runner.RunCycle(ctx); err != nil {
		log.Printf("scheduler: fetch cycle failed: %v", err)
	} else {
		log.Println("scheduler: completed weather fetch cycle")
	}

	// Allow a little slack so a delay equal to the interval never skips a tick.
	delay := s.runner.RetryDelay(s.interval) - s.interval/10

	s.mu.Lock()
	s.nextRun = now.Add(delay)
	s.mu.Unlock()
}
