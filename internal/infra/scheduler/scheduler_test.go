//go:build !integration

package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestScheduler_RunsJobsUntilStopped(t *testing.T) {
	logger := zerolog.Nop()
	s := New(&logger)

	var ok, failing atomic.Int32
	s.Every("ok", 10*time.Millisecond, time.Millisecond, func(context.Context) error {
		ok.Add(1)
		return nil
	})
	s.Every("failing", 10*time.Millisecond, time.Millisecond, func(context.Context) error {
		failing.Add(1)
		return errors.New("boom")
	})
	s.Every("panicking", 10*time.Millisecond, time.Millisecond, func(context.Context) error {
		panic("boom")
	})

	s.Start(context.Background())
	s.Start(context.Background()) // no effect
	time.Sleep(60 * time.Millisecond)
	s.Stop()
	s.Stop()

	if ok.Load() < 2 || failing.Load() < 2 {
		t.Fatalf("expected repeated runs, got ok=%d failing=%d", ok.Load(), failing.Load())
	}
	after := ok.Load()
	time.Sleep(30 * time.Millisecond)
	if ok.Load() != after {
		t.Error("job ran after Stop")
	}
}

type denyLocker struct{ calls atomic.Int32 }

func (d *denyLocker) TryLock(context.Context, string, time.Duration) (string, error) {
	d.calls.Add(1)
	return "", errors.New("held")
}
func (d *denyLocker) Unlock(context.Context, string, string) error { return nil }

func TestScheduler_ExclusiveSkipsWhenLocked(t *testing.T) {
	logger := zerolog.Nop()
	locker := &denyLocker{}
	s := New(&logger).WithLocker(locker)

	var runs atomic.Int32
	s.Exclusive("token_refresh", 10*time.Millisecond, time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	})
	s.Start(context.Background())
	time.Sleep(40 * time.Millisecond)
	s.Stop()

	if runs.Load() != 0 {
		t.Errorf("exclusive job must not run without the lock, ran %d times", runs.Load())
	}
	if locker.calls.Load() == 0 {
		t.Error("expected lock attempts")
	}
}
