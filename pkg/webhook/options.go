package webhook

import (
	"log/slog"
	"time"
)

// ReconcilerOption configures a Reconciler instance.
type ReconcilerOption func(*Reconciler)

// WithLogger sets the structured logger for dedup and drop decisions.
func WithLogger(log *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if log != nil {
			r.log = log
		}
	}
}

// WithDeduper enables cross-restart event deduplication.
func WithDeduper(d Deduper) ReconcilerOption {
	return func(r *Reconciler) {
		if d != nil {
			r.deduper = d
		}
	}
}

// WithDedupTTL overrides how long processed event IDs are remembered.
func WithDedupTTL(ttl time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}
