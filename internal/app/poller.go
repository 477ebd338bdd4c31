package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/five82/notechain/internal/apperr"
	"github.com/five82/notechain/internal/wallet"
)

const (
	defaultPollInterval = 30 * time.Second
	maxBackoff          = 5 * time.Minute
)

// Reloader is the part of the controller the poller drives.
type Reloader interface {
	Session() wallet.Session
	Reload(ctx context.Context) error
}

// RunPoller reloads the note list every interval while a session is present,
// backing off exponentially after failures. A zero interval disables
// polling. It blocks until ctx is done.
func RunPoller(ctx context.Context, r Reloader, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		if logger != nil {
			logger.Info("background polling disabled")
		}
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	failures := 0
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if r.Session().Present() {
			err := r.Reload(ctx)
			switch {
			case err == nil:
				failures = 0
			case errors.Is(err, apperr.ErrBusy), ctx.Err() != nil:
			default:
				failures++
				logger.Warn("background reload failed",
					slog.Int("failures", failures),
					slog.String("error", err.Error()))
			}
		}
		timer.Reset(calculateBackoff(failures, interval))
	}
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if base <= 0 {
		base = defaultPollInterval
	}
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
