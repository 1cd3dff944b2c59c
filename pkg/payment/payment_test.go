package payment_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/stackform/bizkit/pkg/payment"
)

func TestMinorUnits(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"10.99", 1099},
		{"625", 62500},
		{"0.005", 1}, // half rounds away from zero
		{"0.004", 0},
		{"199.999", 20000},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			d, err := decimal.NewFromString(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, payment.MinorUnits(d))
		})
	}
}

const testSigningSecret = "whsec_test_secret"

func signedPayload(t *testing.T, payload string) (body []byte, header string) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSigningSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func testGateway(t *testing.T) *payment.StripeGateway {
	t.Helper()
	g, err := payment.NewStripeGateway(payment.StripeConfig{
		APIKey:        "sk_test_x",
		WebhookSecret: testSigningSecret,
		ProductID:     "prod_x",
	})
	require.NoError(t, err)
	return g
}

func TestStripeGateway_ParseEvent(t *testing.T) {
	g := testGateway(t)

	t.Run("subscription updated event", func(t *testing.T) {
		body, header := signedPayload(t, fmt.Sprintf(`{
			"id": "evt_1",
			"type": "customer.subscription.updated",
			"data": {"object": {
				"id": "sub_123",
				"status": "active",
				"current_period_start": %d,
				"current_period_end": %d,
				"cancel_at_period_end": true
			}}
		}`, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Unix(), time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC).Unix()))

		ev, err := g.ParseEvent(body, header)
		require.NoError(t, err)
		assert.Equal(t, payment.EventSubscriptionUpdated, ev.Kind)
		assert.Equal(t, "sub_123", ev.SubscriptionID)
		assert.Equal(t, "active", ev.Status)
		assert.True(t, ev.CancelAtPeriodEnd)
		assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), ev.CurrentPeriodEnd)
	})

	t.Run("invoice event resolves subscription reference", func(t *testing.T) {
		body, header := signedPayload(t, `{
			"id": "evt_2",
			"type": "invoice.payment_failed",
			"data": {"object": {"id": "in_1", "status": "open", "subscription": "sub_123"}}
		}`)

		ev, err := g.ParseEvent(body, header)
		require.NoError(t, err)
		assert.Equal(t, payment.EventPaymentFailed, ev.Kind)
		assert.Equal(t, "sub_123", ev.SubscriptionID)
	})

	t.Run("invoice event with nested subscription details", func(t *testing.T) {
		body, header := signedPayload(t, `{
			"id": "evt_3",
			"type": "invoice.payment_succeeded",
			"data": {"object": {"id": "in_2", "parent": {"subscription_details": {"subscription": "sub_456"}}}}
		}`)

		ev, err := g.ParseEvent(body, header)
		require.NoError(t, err)
		assert.Equal(t, "sub_456", ev.SubscriptionID)
	})

	t.Run("unknown event type maps to EventUnknown", func(t *testing.T) {
		body, header := signedPayload(t, `{
			"id": "evt_4",
			"type": "charge.refunded",
			"data": {"object": {"id": "ch_1"}}
		}`)

		ev, err := g.ParseEvent(body, header)
		require.NoError(t, err)
		assert.Equal(t, payment.EventUnknown, ev.Kind)
		assert.Equal(t, "charge.refunded", ev.ProviderType)
	})

	t.Run("accepts events from a different API version", func(t *testing.T) {
		body, header := signedPayload(t, `{
			"id": "evt_6",
			"type": "customer.subscription.updated",
			"api_version": "2020-08-27",
			"data": {"object": {"id": "sub_old", "status": "active"}}
		}`)

		ev, err := g.ParseEvent(body, header)
		require.NoError(t, err)
		assert.Equal(t, "sub_old", ev.SubscriptionID)
	})

	t.Run("invalid signature is rejected before parsing", func(t *testing.T) {
		body, _ := signedPayload(t, `{"id": "evt_5", "type": "invoice.payment_failed", "data": {"object": {}}}`)

		_, err := g.ParseEvent(body, "t=1,v1=deadbeef")
		assert.ErrorIs(t, err, payment.ErrBadSignature)
	})
}
