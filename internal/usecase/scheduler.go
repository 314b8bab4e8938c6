package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"ChainPulse/internal/domain/repository"
	"ChainPulse/pkg/logger"
)

// Job is a named periodic task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error

	running atomic.Bool
}

// Scheduler runs jobs on independent tickers. A job still running when its
// next tick fires skips that tick instead of overlapping. With a JobLock
// set, a tick also requires the cross-instance lease for the job.
type Scheduler struct {
	jobs    []*Job
	lock    repository.JobLock
	lockTTL time.Duration
	metrics repository.Metrics
	log     *logger.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewScheduler(lock repository.JobLock, lockTTL time.Duration, m repository.Metrics, l *logger.Logger) *Scheduler {
	if m == nil {
		m = repository.NopMetrics{}
	}
	if l == nil {
		l = logger.Nop()
	}
	return &Scheduler{lock: lock, lockTTL: lockTTL, metrics: m, log: l}
}

// Add registers a job. Jobs must be added before Start.
func (s *Scheduler) Add(name string, interval time.Duration, run func(ctx context.Context) error) {
	s.jobs = append(s.jobs, &Job{Name: name, Interval: interval, Run: run})
}

// Jobs returns the registered jobs.
func (s *Scheduler) Jobs() []*Job { return s.jobs }

func (s *Scheduler) Start(ctx context.Context) error {
	if len(s.jobs) == 0 {
		return errors.New("scheduler: no jobs registered")
	}
	ctx, s.cancel = context.WithCancel(ctx)
	for _, j := range s.jobs {
		if j.Interval <= 0 {
			s.log.Warn("job disabled: non-positive interval", logger.String("job", j.Name))
			continue
		}
		s.wg.Add(1)
		go s.loop(ctx, j)
	}
	s.log.Info("scheduler started", logger.Int("jobs", len(s.jobs)))
	return nil
}

// Stop cancels every loop and waits for running iterations to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) loop(ctx context.Context, j *Job) {
	defer s.wg.Done()
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// The iteration runs detached so a slow one never blocks the
			// ticker; the in-flight flag makes the next ticks skip.
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.trigger(ctx, j)
			}()
		}
	}
}

// trigger runs one iteration of j unless one is already in flight. It
// reports whether the iteration ran.
func (s *Scheduler) trigger(ctx context.Context, j *Job) bool {
	if !j.running.CompareAndSwap(false, true) {
		s.log.Debug("job still running, tick skipped", logger.String("job", j.Name))
		s.metrics.RecordError("job_skipped")
		return false
	}
	defer j.running.Store(false)

	if s.lock != nil {
		key := "job:" + j.Name
		ok, err := s.lock.TryLock(ctx, key, s.lockTTL)
		if err != nil {
			s.log.Warn("job lock unavailable", logger.String("job", j.Name), logger.Error(err))
			return false
		}
		if !ok {
			s.log.Debug("job held by another instance", logger.String("job", j.Name))
			return false
		}
		defer func() {
			if err := s.lock.Unlock(context.WithoutCancel(ctx), key); err != nil {
				s.log.Warn("job unlock failed", logger.String("job", j.Name), logger.Error(err))
			}
		}()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("job panicked", logger.String("job", j.Name), logger.Any("panic", r))
			s.metrics.RecordError("job_panic")
		}
	}()
	if err := j.Run(ctx); err != nil {
		s.log.Error("job failed", logger.String("job", j.Name), logger.Error(err))
		s.metrics.RecordError("job")
	}
	s.metrics.RecordLatency("job_"+j.Name, time.Since(start).Seconds())
	return true
}
