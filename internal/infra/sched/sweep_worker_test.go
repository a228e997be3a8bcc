package sched

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"media-suite-accounts/internal/domain/model"
)

type stubSessionUC struct {
	calls   int64
	sweepFn func() (int, error)
}

func (s *stubSessionUC) CleanupExpired(context.Context) (int, error) {
	atomic.AddInt64(&s.calls, 1)
	if s.sweepFn != nil {
		return s.sweepFn()
	}
	return 0, nil
}

func (s *stubSessionUC) Create(context.Context, *model.Session) ([]string, error) { return nil, nil }
func (s *stubSessionUC) GetActiveByUser(context.Context, string) (*model.Session, error) {
	return nil, nil
}
func (s *stubSessionUC) GetByToken(context.Context, string) (*model.Session, error) {
	return nil, nil
}
func (s *stubSessionUC) RevokeByToken(context.Context, string) (bool, error) { return false, nil }
func (s *stubSessionUC) RevokeAllForUser(context.Context, string, string) ([]string, error) {
	return nil, nil
}
func (s *stubSessionUC) Extend(context.Context, string, time.Duration) error { return nil }

func TestSweepWorker_Run(t *testing.T) {
	log := zerolog.Nop()
	stub := &stubSessionUC{}
	w := NewSweepWorker(5*time.Millisecond, stub, &log)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	if err := w.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run returned %v, want context.DeadlineExceeded", err)
	}
	if n := atomic.LoadInt64(&stub.calls); n < 2 {
		t.Errorf("sweep ran %d times in 60ms at 5ms cadence, want at least 2", n)
	}
}

func TestSweepWorker_KeepsRunningOnError(t *testing.T) {
	log := zerolog.Nop()
	stub := &stubSessionUC{sweepFn: func() (int, error) { return 0, errors.New("db down") }}
	w := NewSweepWorker(5*time.Millisecond, stub, &log)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	_ = w.Run(ctx)
	if n := atomic.LoadInt64(&stub.calls); n < 2 {
		t.Errorf("worker stopped after an error, ran %d times", n)
	}
}
