package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"media-suite-accounts/internal/infra/metrics"
	"media-suite-accounts/internal/usecase"
)

// SweepWorker periodically removes expired and long-deactivated sessions.
type SweepWorker struct {
	interval  time.Duration
	sessionUC usecase.SessionUseCase
	log       *zerolog.Logger
}

func NewSweepWorker(interval time.Duration, sessionUC usecase.SessionUseCase, logger *zerolog.Logger) *SweepWorker {
	sweepLog := logger.With().Str("component", "SweepWorker").Logger()
	return &SweepWorker{
		interval:  interval,
		sessionUC: sessionUC,
		log:       &sweepLog,
	}
}

func (w *SweepWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting session sweep worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping session sweep worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.sessionUC.CleanupExpired(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("session sweep error")
			}
			if n > 0 {
				metrics.AddSessionsSwept(n)
				w.log.Info().Int("count", n).Msg("sessions swept")
			}
		}
	}
}
