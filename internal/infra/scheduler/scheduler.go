package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-file-vault/internal/infra/metrics"
)

// JobFunc is one run of a periodic job.
type JobFunc func(ctx context.Context) error

// Locker serializes a job across replicas; nil runs the job unguarded.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

type job struct {
	name      string
	interval  time.Duration
	first     time.Duration
	timeout   time.Duration
	exclusive bool
	fn        JobFunc
}

// Scheduler runs named jobs on their own tickers, in the manner of a job queue.
type Scheduler struct {
	jobs   []job
	locker Locker
	log    *zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(logger *zerolog.Logger) *Scheduler {
	l := logger.With().Str("component", "scheduler").Logger()
	return &Scheduler{log: &l}
}

// WithLocker enables cross-replica locking for jobs added with Exclusive.
func (s *Scheduler) WithLocker(l Locker) *Scheduler {
	s.locker = l
	return s
}

// Every registers fn to run after first and then every interval. A zero
// first runs the job after one interval. If interval <= 0 it defaults to 1 minute.
func (s *Scheduler) Every(name string, interval, first time.Duration, fn JobFunc) {
	s.add(job{name: name, interval: interval, first: first, fn: fn})
}

// Exclusive is Every for jobs that must not overlap across replicas.
func (s *Scheduler) Exclusive(name string, interval, first time.Duration, fn JobFunc) {
	s.add(job{name: name, interval: interval, first: first, fn: fn, exclusive: true})
}

func (s *Scheduler) add(j job) {
	if j.interval <= 0 {
		j.interval = time.Minute
	}
	if j.first <= 0 {
		j.first = j.interval
	}
	j.timeout = 30 * time.Second
	if j.interval < j.timeout {
		j.timeout = j.interval
	}
	s.jobs = append(s.jobs, j)
}

// Start launches every registered job; calling Start twice has no effect.
func (s *Scheduler) Start(parentCtx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parentCtx)
	s.cancel = cancel
	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, j)
	}
}

func (s *Scheduler) loop(ctx context.Context, j job) {
	defer s.wg.Done()
	s.log.Info().Str("job", j.name).Dur("interval", j.interval).Dur("first", j.first).Msg("job scheduled")

	timer := time.NewTimer(j.first)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.runOnce(ctx, j)
			timer.Reset(j.interval)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, j job) {
	runCtx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	if j.exclusive && s.locker != nil {
		key := "lock:job:" + j.name
		token, err := s.locker.TryLock(runCtx, key, j.timeout)
		if err != nil {
			s.log.Debug().Err(err).Str("job", j.name).Msg("job skipped; lock not acquired")
			return
		}
		defer func() { _ = s.locker.Unlock(context.Background(), key, token) }()
	}

	start := time.Now()
	err := s.safeRun(runCtx, j.fn)
	if err != nil {
		metrics.IncJobRun(j.name, "failed")
		s.log.Error().Err(err).Str("job", j.name).Msg("job failed")
		return
	}
	metrics.IncJobRun(j.name, "completed")
	s.log.Debug().Str("job", j.name).Dur("took", time.Since(start)).Msg("job completed")
}

func (s *Scheduler) safeRun(ctx context.Context, fn JobFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{r}
		}
	}()
	return fn(ctx)
}

type panicError struct{ v any }

func (p panicError) Error() string { return fmt.Sprintf("job panicked: %v", p.v) }

// Stop cancels all jobs and waits for running ones. It is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.log.Info().Msg("scheduler stopped")
}
