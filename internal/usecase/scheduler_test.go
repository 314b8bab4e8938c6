package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeLock struct {
	mu       sync.Mutex
	held     map[string]bool
	unlocked int
}

func (l *fakeLock) TryLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *fakeLock) Unlock(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	l.unlocked++
	return nil
}

func TestTriggerSkipsWhileInFlight(t *testing.T) {
	s := NewScheduler(nil, 0, nil, nil)
	release := make(chan struct{})
	started := make(chan struct{})
	var runs atomic.Int32
	s.Add("scan", time.Minute, func(context.Context) error {
		runs.Add(1)
		close(started)
		<-release
		return nil
	})
	job := s.Jobs()[0]

	done := make(chan bool)
	go func() { done <- s.trigger(context.Background(), job) }()
	<-started

	if s.trigger(context.Background(), job) {
		t.Fatalf("overlapping run was not skipped")
	}
	close(release)
	if !<-done {
		t.Fatalf("first run did not report running")
	}
	if runs.Load() != 1 {
		t.Fatalf("expected 1 run, got %d", runs.Load())
	}
	if job.running.Load() {
		t.Fatalf("in-flight flag not cleared")
	}
}

func TestTriggerRespectsJobLock(t *testing.T) {
	lock := &fakeLock{held: map[string]bool{"job:tvl": true}}
	s := NewScheduler(lock, time.Minute, nil, nil)
	var runs atomic.Int32
	s.Add("tvl", time.Minute, func(context.Context) error { runs.Add(1); return nil })
	job := s.Jobs()[0]

	if s.trigger(context.Background(), job) {
		t.Fatalf("ran while another instance holds the lock")
	}

	_ = lock.Unlock(context.Background(), "job:tvl")
	if !s.trigger(context.Background(), job) || runs.Load() != 1 {
		t.Fatalf("expected run once lock is free")
	}
	if lock.held["job:tvl"] {
		t.Fatalf("lock not released after run")
	}
}

func TestTriggerRecoversPanic(t *testing.T) {
	s := NewScheduler(nil, 0, nil, nil)
	s.Add("boom", time.Minute, func(context.Context) error { panic("boom") })
	job := s.Jobs()[0]

	s.trigger(context.Background(), job)
	if job.running.Load() {
		t.Fatalf("in-flight flag not cleared after panic")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler(nil, 0, nil, nil)
	if err := s.Start(context.Background()); err == nil {
		t.Fatalf("expected error without jobs")
	}

	ran := make(chan struct{}, 1)
	s.Add("tick", 5*time.Millisecond, func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatalf("job never ran")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
