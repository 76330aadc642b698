package reminder

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Worker runs the dispatcher on a fixed interval.
type Worker struct {
	Dispatcher *Dispatcher
	Interval   time.Duration
	Log        zerolog.Logger
}

// Run scans immediately, then on every tick, until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w.Interval <= 0 {
		w.Interval = time.Minute
	}
	log := w.Log.With().Str("component", "reminder-worker").Logger()

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	log.Info().Dur("interval", w.Interval).Msg("Reminder worker started")
	w.scan(ctx, log)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Reminder worker stopped")
			return
		case <-ticker.C:
			w.scan(ctx, log)
		}
	}
}

func (w *Worker) scan(ctx context.Context, log zerolog.Logger) {
	if _, err := w.Dispatcher.ScanOnce(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("Reminder scan failed")
	}
}
