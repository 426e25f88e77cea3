package minting

import (
	"context"
	"log/slog"
	"time"

	"ustbills/internal/domain"
	"ustbills/internal/store"
)

// Reconciler periodically scans for deposits stuck in Pending. A deposit that
// stays Pending longer than the threshold means the process died between the
// pending insert and the mint outcome; it needs operator attention, never an
// automatic retry (the mint may or may not have happened).
type Reconciler struct {
	deposits  *store.Deposits
	interval  time.Duration
	threshold time.Duration
	logger    *slog.Logger
}

func NewReconciler(deposits *store.Deposits, interval, threshold time.Duration, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{deposits: deposits, interval: interval, threshold: threshold, logger: logger}
}

// Run scans on every tick until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			stuck, err := r.Stuck(ctx, now)
			if err != nil {
				r.logger.ErrorContext(ctx, "deposit reconciliation scan failed", "error", err)
				continue
			}
			for _, d := range stuck {
				r.logger.WarnContext(ctx, "deposit stuck in pending",
					"deposit", d.ID, "principal", string(d.Principal),
					"block", d.BlockIndex, "age_seconds", now.Unix()-d.CreatedAt)
			}
		}
	}
}

// Stuck returns pending deposits older than the threshold at the given time.
func (r *Reconciler) Stuck(ctx context.Context, now time.Time) ([]domain.Deposit, error) {
	pending, err := r.deposits.Pending(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := now.Add(-r.threshold).Unix()
	var stuck []domain.Deposit
	for _, d := range pending {
		if d.CreatedAt <= cutoff {
			stuck = append(stuck, d)
		}
	}
	return stuck, nil
}
