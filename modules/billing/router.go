// Package billing exposes the billing subsystem over HTTP: price quotes,
// subscription lifecycle operations, and the payment provider webhook.
//
// Tenant identity is resolved per request via TenantResolver, so the module
// plugs into whatever authentication the host application uses.
package billing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stackform/bizkit/pkg/pricing"
	"github.com/stackform/bizkit/pkg/subscription"
	"github.com/stackform/bizkit/pkg/webhook"
)

// TenantResolver extracts the authenticated tenant from the request.
type TenantResolver func(r *http.Request) (uuid.UUID, error)

// HeaderTenantResolver reads the tenant ID from the given header, for
// deployments where an edge proxy already authenticated the caller.
func HeaderTenantResolver(header string) TenantResolver {
	return func(r *http.Request) (uuid.UUID, error) {
		id, err := uuid.Parse(r.Header.Get(header))
		if err != nil {
			return uuid.Nil, ErrUnauthenticated
		}
		return id, nil
	}
}

// RouterOptions configures the billing module router.
type RouterOptions struct {
	Calculator    *pricing.Calculator
	Subscriptions *subscription.Service
	Webhooks      *webhook.Reconciler

	// Tenant resolves the caller's tenant; required for all endpoints
	// except the webhook.
	Tenant TenantResolver

	// SignatureHeader is the header carrying the webhook signature.
	// Defaults to Stripe-Signature.
	SignatureHeader string

	Logger *slog.Logger
}

// Router creates the billing module router.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/billing", billing.Router(billing.RouterOptions{
//	    Calculator:    calc,
//	    Subscriptions: subs,
//	    Webhooks:      reconciler,
//	    Tenant:        billing.HeaderTenantResolver("X-Tenant-ID"),
//	}))
func Router(opts RouterOptions) chi.Router {
	if opts.Calculator == nil {
		panic("billing: pricing.Calculator is required")
	}
	if opts.Subscriptions == nil {
		panic("billing: subscription.Service is required")
	}
	if opts.Tenant == nil {
		opts.Tenant = HeaderTenantResolver("X-Tenant-ID")
	}
	if opts.SignatureHeader == "" {
		opts.SignatureHeader = "Stripe-Signature"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	h := &handlers{
		calc:   opts.Calculator,
		subs:   opts.Subscriptions,
		hooks:  opts.Webhooks,
		tenant: opts.Tenant,
		sigHdr: opts.SignatureHeader,
		log:    opts.Logger,
	}

	r := chi.NewRouter()

	r.Route("/quotes", func(q chi.Router) {
		q.Post("/basic", h.quoteBasic)
		q.Post("/combo", h.quoteCombo)
	})

	r.Route("/subscription", func(s chi.Router) {
		s.Post("/", h.create)
		s.Get("/", h.get)
		s.Patch("/", h.reconfigure)
		s.Delete("/", h.cancel)
		s.Get("/upcoming-invoice", h.upcomingInvoice)
	})

	if opts.Webhooks != nil {
		r.Post("/webhooks/payment", h.handleWebhook)
	}

	return r
}
