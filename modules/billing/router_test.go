package billing_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"

	"github.com/stackform/bizkit/modules/billing"
	"github.com/stackform/bizkit/pkg/catalog"
	"github.com/stackform/bizkit/pkg/coupon"
	"github.com/stackform/bizkit/pkg/payment"
	"github.com/stackform/bizkit/pkg/pricing"
	"github.com/stackform/bizkit/pkg/subscription"
	"github.com/stackform/bizkit/pkg/webhook"
)

const signingSecret = "whsec_router_test"

type memStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*subscription.Subscription
}

func (s *memStore) Create(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byID == nil {
		s.byID = make(map[uuid.UUID]*subscription.Subscription)
	}
	for _, existing := range s.byID {
		if existing.TenantID == sub.TenantID && existing.IsCurrent() {
			return subscription.ErrAlreadySubscribed
		}
	}
	cp := *sub
	s.byID[sub.ID] = &cp
	return nil
}

func (s *memStore) Update(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[sub.ID]; !ok {
		return subscription.ErrNotFound
	}
	cp := *sub
	s.byID[sub.ID] = &cp
	return nil
}

func (s *memStore) CurrentByTenant(_ context.Context, tenantID uuid.UUID) (*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.byID {
		if sub.TenantID == tenantID && sub.IsCurrent() {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, subscription.ErrNotFound
}

func (s *memStore) ByProviderSubID(_ context.Context, providerSubID string) (*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.byID {
		if sub.ProviderSubscriptionID == providerSubID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, subscription.ErrNotFound
}

type memTenants struct{}

func (memTenants) BillingProfile(_ context.Context, _ uuid.UUID) (*subscription.BillingProfile, error) {
	return &subscription.BillingProfile{Email: "owner@example.com", Name: "Owner"}, nil
}
func (memTenants) SaveProviderCustomer(_ context.Context, _ uuid.UUID, _, _ string) error { return nil }
func (memTenants) DowngradeToFree(_ context.Context, _ uuid.UUID) error                   { return nil }

type env struct {
	server  *httptest.Server
	gateway *payment.FakeGateway
}

func newEnv(t *testing.T) *env {
	t.Helper()

	cat := catalog.NewInMemCatalog(
		catalog.BasicPlan{
			BasePrice:         catalog.Price{Monthly: decimal.NewFromInt(100), Yearly: decimal.NewFromInt(1000)},
			PricePerUser:      catalog.Price{Monthly: decimal.NewFromInt(10), Yearly: decimal.NewFromInt(100)},
			PricePerWorkspace: catalog.Price{Monthly: decimal.NewFromInt(20), Yearly: decimal.NewFromInt(200)},
		},
		[]catalog.ModulePrice{
			{ID: "crm", Name: "CRM", Price: catalog.Price{Monthly: decimal.NewFromInt(50), Yearly: decimal.NewFromInt(500)}},
		},
		[]catalog.ComboPlan{
			{ID: "suite", Name: "Suite", Price: catalog.Price{Monthly: decimal.NewFromInt(500), Yearly: decimal.NewFromInt(5000)},
				ModuleIDs: []string{"crm"}, Enabled: true},
		},
	)
	coupons := coupon.NewInMemStore(&coupon.Coupon{
		Code: "SAVE20", Type: coupon.TypePercentage, Discount: decimal.NewFromInt(20), Active: true,
	})
	calc := pricing.NewCalculator(cat, coupons)

	gateway := payment.NewFakeGateway()
	subs := subscription.NewService(&memStore{}, memTenants{}, gateway, calc)

	parser, err := payment.NewStripeGateway(payment.StripeConfig{
		APIKey:        "sk_test_x",
		WebhookSecret: signingSecret,
		ProductID:     "prod_x",
	})
	require.NoError(t, err)

	router := billing.Router(billing.RouterOptions{
		Calculator:    calc,
		Subscriptions: subs,
		Webhooks:      webhook.NewReconciler(parser, subs),
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &env{server: server, gateway: gateway}
}

func (e *env) do(t *testing.T, method, path string, tenantID uuid.UUID, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tenantID != uuid.Nil {
		req.Header.Set("X-Tenant-ID", tenantID.String())
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createSubscription(t *testing.T, e *env, tenantID uuid.UUID) map[string]any {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/subscription", tenantID, map[string]any{
		"plan_kind":         "basic",
		"payment_method_id": "pm_1",
		"cycle":             "monthly",
		"users":             5,
		"workspaces":        2,
		"module_ids":        []string{"crm"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[map[string]any](t, resp)
}

func TestRouter_Quotes(t *testing.T) {
	t.Parallel()

	t.Run("basic quote returns itemized breakdown", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		resp := e.do(t, http.MethodPost, "/quotes/basic", uuid.Nil, map[string]any{
			"users": 5, "workspaces": 2, "cycle": "monthly", "module_ids": []string{"crm"},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decode[map[string]any](t, resp)
		assert.Equal(t, "240", body["total"])
		assert.Len(t, body["components"], 4)
	})

	t.Run("combo quote with coupon", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		resp := e.do(t, http.MethodPost, "/quotes/combo", uuid.Nil, map[string]any{
			"combo_id": "suite", "cycle": "monthly", "coupon_code": "SAVE20",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		// (500 + 50) - 20%
		body := decode[map[string]any](t, resp)
		assert.Equal(t, "440", body["total"])
	})

	t.Run("invalid cycle is unprocessable", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		resp := e.do(t, http.MethodPost, "/quotes/basic", uuid.Nil, map[string]any{
			"users": 1, "workspaces": 1, "cycle": "weekly",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("negative quantity is unprocessable", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		resp := e.do(t, http.MethodPost, "/quotes/basic", uuid.Nil, map[string]any{
			"users": -1, "workspaces": 0, "cycle": "monthly",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("unknown combo plan is not found", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		resp := e.do(t, http.MethodPost, "/quotes/combo", uuid.Nil, map[string]any{
			"combo_id": "nope", "cycle": "monthly",
		})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("malformed JSON is a bad request", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		req, err := http.NewRequest(http.MethodPost, e.server.URL+"/quotes/basic", bytes.NewBufferString("{"))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		resp, err := e.server.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRouter_Subscription(t *testing.T) {
	t.Parallel()

	t.Run("create returns the persisted subscription", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		body := createSubscription(t, e, uuid.New())
		assert.Equal(t, "active", body["status"])
		assert.Equal(t, "basic", body["plan_kind"])
		require.NotNil(t, body["last_breakdown"])
	})

	t.Run("missing tenant header is unauthorized", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		resp := e.do(t, http.MethodPost, "/subscription", uuid.Nil, map[string]any{
			"plan_kind": "basic", "payment_method_id": "pm_1", "cycle": "monthly",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("second create conflicts", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		tenantID := uuid.New()
		createSubscription(t, e, tenantID)

		resp := e.do(t, http.MethodPost, "/subscription", tenantID, map[string]any{
			"plan_kind": "basic", "payment_method_id": "pm_2", "cycle": "monthly", "users": 1,
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("provider decline maps to payment required", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		e.gateway.CreateSubErr = fmt.Errorf("%w: card declined", payment.ErrProvider)

		resp := e.do(t, http.MethodPost, "/subscription", uuid.New(), map[string]any{
			"plan_kind": "basic", "payment_method_id": "pm_1", "cycle": "monthly", "users": 1,
		})
		assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	})

	t.Run("unknown plan kind is unprocessable", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		resp := e.do(t, http.MethodPost, "/subscription", uuid.New(), map[string]any{
			"plan_kind": "enterprise", "payment_method_id": "pm_1", "cycle": "monthly",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("get without subscription is not found", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		resp := e.do(t, http.MethodGet, "/subscription", uuid.New(), nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("patch adjusts quantities with proration", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		tenantID := uuid.New()
		createSubscription(t, e, tenantID)

		resp := e.do(t, http.MethodPatch, "/subscription", tenantID, map[string]any{"users": 10})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decode[map[string]any](t, resp)
		assert.EqualValues(t, 10, body["users"])
		assert.EqualValues(t, 2, body["workspaces"])
		assert.Len(t, e.gateway.UpdateCalls, 1)
	})

	t.Run("delete with at_period_end defers cancellation", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		tenantID := uuid.New()
		createSubscription(t, e, tenantID)

		resp := e.do(t, http.MethodDelete, "/subscription?at_period_end=true", tenantID, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decode[map[string]any](t, resp)
		assert.Equal(t, "active", body["status"])
		assert.Equal(t, true, body["cancel_at_period_end"])
	})

	t.Run("delete cancels immediately by default", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		tenantID := uuid.New()
		createSubscription(t, e, tenantID)

		resp := e.do(t, http.MethodDelete, "/subscription", tenantID, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decode[map[string]any](t, resp)
		assert.Equal(t, "canceled", body["status"])
	})

	t.Run("upcoming invoice preview", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		tenantID := uuid.New()
		createSubscription(t, e, tenantID)

		resp := e.do(t, http.MethodGet, "/subscription/upcoming-invoice", tenantID, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decode[map[string]any](t, resp)
		assert.EqualValues(t, 24000, body["amount_due"])
		assert.Equal(t, "USD", body["currency"])
	})
}

func TestRouter_Webhook(t *testing.T) {
	t.Parallel()

	postWebhook := func(t *testing.T, e *env, payload string, sign bool) *http.Response {
		t.Helper()
		signed := stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
			Payload:   []byte(payload),
			Secret:    signingSecret,
			Timestamp: time.Now(),
		})
		req, err := http.NewRequest(http.MethodPost, e.server.URL+"/webhooks/payment", bytes.NewReader(signed.Payload))
		require.NoError(t, err)
		if sign {
			req.Header.Set("Stripe-Signature", signed.Header)
		}
		resp, err := e.server.Client().Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	t.Run("verified event updates local state", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		tenantID := uuid.New()
		createSubscription(t, e, tenantID)

		payload := fmt.Sprintf(`{
			"id": "evt_1",
			"type": "customer.subscription.updated",
			"data": {"object": {"id": %q, "status": "past_due"}}
		}`, "sub_fake_1")

		resp := postWebhook(t, e, payload, true)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		getResp := e.do(t, http.MethodGet, "/subscription", tenantID, nil)
		require.Equal(t, http.StatusOK, getResp.StatusCode)
		body := decode[map[string]any](t, getResp)
		assert.Equal(t, "past_due", body["status"])
	})

	t.Run("missing signature is rejected", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		resp := postWebhook(t, e, `{"id":"evt_2","type":"customer.subscription.updated","data":{"object":{}}}`, false)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("event for unknown subscription is acknowledged", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		payload := `{
			"id": "evt_3",
			"type": "customer.subscription.deleted",
			"data": {"object": {"id": "sub_purged", "status": "canceled"}}
		}`
		resp := postWebhook(t, e, payload, true)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("unconsumed event type is acknowledged", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		payload := `{
			"id": "evt_4",
			"type": "invoice.finalized",
			"data": {"object": {"id": "in_1"}}
		}`
		resp := postWebhook(t, e, payload, true)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
