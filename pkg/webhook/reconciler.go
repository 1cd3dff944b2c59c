package webhook

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/stackform/bizkit/pkg/payment"
)

// EventParser verifies a raw provider payload and extracts the normalized
// event. Implementations must reject payloads with invalid signatures.
type EventParser interface {
	ParseEvent(payload []byte, signatureHeader string) (*payment.Event, error)
}

// EventApplier reconciles a verified event into local state.
type EventApplier interface {
	ApplyEvent(ctx context.Context, ev payment.Event) error
}

// Deduper remembers event IDs across process restarts. MarkSeen returns
// true when the ID was not seen before within the retention window.
type Deduper interface {
	MarkSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
}

// Reconciler is the inbound webhook pipeline: verify the signature, parse
// the event, optionally deduplicate by event ID, then hand it to the
// applier. Application is idempotent, so deduplication is an optimization
// rather than a correctness requirement.
type Reconciler struct {
	parser  EventParser
	applier EventApplier
	deduper Deduper
	ttl     time.Duration
	log     *slog.Logger
}

// NewReconciler creates a Reconciler. Panics if parser or applier is nil
// to fail fast during initialization.
func NewReconciler(parser EventParser, applier EventApplier, opts ...ReconcilerOption) *Reconciler {
	if parser == nil {
		panic("webhook: EventParser is required")
	}
	if applier == nil {
		panic("webhook: EventApplier is required")
	}

	r := &Reconciler{
		parser:  parser,
		applier: applier,
		ttl:     72 * time.Hour,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle processes one webhook delivery. It returns payment.ErrBadSignature
// for unverifiable payloads and ErrApplyFailed when local reconciliation
// failed and the provider should redeliver. Events the subsystem does not
// consume return nil so the provider stops retrying them.
func (r *Reconciler) Handle(ctx context.Context, payload []byte, signatureHeader string) error {
	if len(payload) == 0 {
		return ErrEmptyPayload
	}

	ev, err := r.parser.ParseEvent(payload, signatureHeader)
	if err != nil {
		return err
	}

	if r.deduper != nil && ev.ID != "" {
		fresh, err := r.deduper.MarkSeen(ctx, ev.ID, r.ttl)
		if err != nil {
			// Reconciliation tolerates replays, so a broken dedup store must
			// not reject deliveries.
			r.log.WarnContext(ctx, "webhook dedup store unavailable, processing anyway",
				slog.String("event_id", ev.ID), slog.Any("error", err))
		} else if !fresh {
			r.log.DebugContext(ctx, "skipping already processed webhook event",
				slog.String("event_id", ev.ID), slog.String("event_type", ev.ProviderType))
			return nil
		}
	}

	if err := r.applier.ApplyEvent(ctx, *ev); err != nil {
		return errors.Join(ErrApplyFailed, err)
	}
	return nil
}
