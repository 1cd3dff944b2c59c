package webhook_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackform/bizkit/pkg/payment"
	"github.com/stackform/bizkit/pkg/webhook"
)

type stubParser struct {
	event *payment.Event
	err   error
	calls int
}

func (p *stubParser) ParseEvent(_ []byte, _ string) (*payment.Event, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.event, nil
}

type stubApplier struct {
	mu     sync.Mutex
	events []payment.Event
	err    error
}

func (a *stubApplier) ApplyEvent(_ context.Context, ev payment.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
	return a.err
}

type memDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (d *memDeduper) MarkSeen(_ context.Context, eventID string, _ time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	if d.seen[eventID] {
		return false, nil
	}
	d.seen[eventID] = true
	return true, nil
}

func testEvent() *payment.Event {
	return &payment.Event{
		ID:             "evt_123",
		Kind:           payment.EventPaymentSucceeded,
		ProviderType:   "invoice.payment_succeeded",
		SubscriptionID: "sub_123",
	}
}

func TestReconciler_Handle(t *testing.T) {
	t.Parallel()

	t.Run("verified event reaches the applier", func(t *testing.T) {
		t.Parallel()
		applier := &stubApplier{}
		rec := webhook.NewReconciler(&stubParser{event: testEvent()}, applier)

		err := rec.Handle(t.Context(), []byte(`{}`), "sig")
		require.NoError(t, err)
		require.Len(t, applier.events, 1)
		assert.Equal(t, "sub_123", applier.events[0].SubscriptionID)
	})

	t.Run("empty payload is rejected", func(t *testing.T) {
		t.Parallel()
		rec := webhook.NewReconciler(&stubParser{event: testEvent()}, &stubApplier{})

		err := rec.Handle(t.Context(), nil, "sig")
		assert.ErrorIs(t, err, webhook.ErrEmptyPayload)
	})

	t.Run("signature failure propagates without touching the applier", func(t *testing.T) {
		t.Parallel()
		applier := &stubApplier{}
		rec := webhook.NewReconciler(&stubParser{err: payment.ErrBadSignature}, applier)

		err := rec.Handle(t.Context(), []byte(`{}`), "bad")
		assert.ErrorIs(t, err, payment.ErrBadSignature)
		assert.Empty(t, applier.events)
	})

	t.Run("apply failure is wrapped for redelivery", func(t *testing.T) {
		t.Parallel()
		applier := &stubApplier{err: errors.New("db down")}
		rec := webhook.NewReconciler(&stubParser{event: testEvent()}, applier)

		err := rec.Handle(t.Context(), []byte(`{}`), "sig")
		assert.ErrorIs(t, err, webhook.ErrApplyFailed)
	})

	t.Run("duplicate event ID is applied only once", func(t *testing.T) {
		t.Parallel()
		applier := &stubApplier{}
		rec := webhook.NewReconciler(&stubParser{event: testEvent()}, applier,
			webhook.WithDeduper(&memDeduper{}))

		require.NoError(t, rec.Handle(t.Context(), []byte(`{}`), "sig"))
		require.NoError(t, rec.Handle(t.Context(), []byte(`{}`), "sig"))
		assert.Len(t, applier.events, 1)
	})

	t.Run("broken dedup store does not block processing", func(t *testing.T) {
		t.Parallel()
		applier := &stubApplier{}
		rec := webhook.NewReconciler(&stubParser{event: testEvent()}, applier,
			webhook.WithDeduper(&memDeduper{err: errors.New("redis down")}))

		require.NoError(t, rec.Handle(t.Context(), []byte(`{}`), "sig"))
		assert.Len(t, applier.events, 1)
	})

	t.Run("events without an ID skip deduplication", func(t *testing.T) {
		t.Parallel()
		ev := testEvent()
		ev.ID = ""
		applier := &stubApplier{}
		rec := webhook.NewReconciler(&stubParser{event: ev}, applier,
			webhook.WithDeduper(&memDeduper{}))

		require.NoError(t, rec.Handle(t.Context(), []byte(`{}`), "sig"))
		require.NoError(t, rec.Handle(t.Context(), []byte(`{}`), "sig"))
		assert.Len(t, applier.events, 2)
	})
}

func TestNewReconciler_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { webhook.NewReconciler(nil, &stubApplier{}) })
	assert.Panics(t, func() { webhook.NewReconciler(&stubParser{}, nil) })
}
