package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/invoice"
	"github.com/stripe/stripe-go/v82/paymentmethod"
	"github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeConfig holds Stripe gateway configuration.
type StripeConfig struct {
	APIKey        string `env:"STRIPE_API_KEY,required"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required"`
	// ProductID is the catalog product that ad-hoc recurring prices are
	// created under. Quoted totals are dynamic, so subscriptions use inline
	// price data instead of pre-configured dashboard prices.
	ProductID string `env:"STRIPE_PRODUCT_ID,required"`
}

// StripeGateway implements Gateway over the Stripe API.
type StripeGateway struct {
	config StripeConfig
}

// NewStripeGateway creates a Stripe-backed Gateway.
// The SDK key is process-global, matching Stripe SDK conventions.
func NewStripeGateway(config StripeConfig) (*StripeGateway, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if config.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}
	if config.ProductID == "" {
		return nil, ErrMissingProductID
	}

	stripe.Key = config.APIKey
	return &StripeGateway{config: config}, nil
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx

	c, err := customer.New(params)
	if err != nil {
		return "", classifyStripeError(err)
	}
	return c.ID, nil
}

func (g *StripeGateway) AttachPaymentMethod(ctx context.Context, methodID, customerID string) error {
	params := &stripe.PaymentMethodAttachParams{Customer: stripe.String(customerID)}
	params.Context = ctx

	if _, err := paymentmethod.Attach(methodID, params); err != nil {
		return classifyStripeError(err)
	}
	return nil
}

func (g *StripeGateway) DetachPaymentMethod(ctx context.Context, methodID string) error {
	params := &stripe.PaymentMethodDetachParams{}
	params.Context = ctx

	if _, err := paymentmethod.Detach(methodID, params); err != nil {
		return classifyStripeError(err)
	}
	return nil
}

func (g *StripeGateway) SetDefaultPaymentMethod(ctx context.Context, customerID, methodID string) error {
	params := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(methodID),
		},
	}
	params.Context = ctx

	if _, err := customer.Update(customerID, params); err != nil {
		return classifyStripeError(err)
	}
	return nil
}

func (g *StripeGateway) CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*ProviderSubscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(req.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{PriceData: g.priceData(req.UnitAmountMinor, req.Currency, req.Interval)},
		},
		// Keep the subscription in "incomplete" until the first payment
		// settles; the client secret finishes the payment client-side.
		PaymentBehavior: stripe.String("default_incomplete"),
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	params.Context = ctx
	params.AddExpand("latest_invoice.confirmation_secret")

	sub, err := subscription.New(params)
	if err != nil {
		return nil, classifyStripeError(err)
	}
	return providerSubscription(sub), nil
}

func (g *StripeGateway) UpdateSubscriptionPrice(ctx context.Context, subscriptionID string, unitAmountMinor int64, currency string, interval Interval) error {
	getParams := &stripe.SubscriptionParams{}
	getParams.Context = ctx
	sub, err := subscription.Get(subscriptionID, getParams)
	if err != nil {
		return classifyStripeError(err)
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return fmt.Errorf("%w: subscription %s has no items", ErrProvider, subscriptionID)
	}

	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:        stripe.String(sub.Items.Data[0].ID),
				PriceData: g.priceData(unitAmountMinor, currency, interval),
			},
		},
		ProrationBehavior: stripe.String("create_prorations"),
	}
	params.Context = ctx

	if _, err := subscription.Update(subscriptionID, params); err != nil {
		return classifyStripeError(err)
	}
	return nil
}

func (g *StripeGateway) CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) error {
	if atPeriodEnd {
		params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
		params.Context = ctx
		if _, err := subscription.Update(subscriptionID, params); err != nil {
			return classifyStripeError(err)
		}
		return nil
	}

	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	if _, err := subscription.Cancel(subscriptionID, params); err != nil {
		return classifyStripeError(err)
	}
	return nil
}

func (g *StripeGateway) PreviewUpcomingInvoice(ctx context.Context, subscriptionID string) (*InvoicePreview, error) {
	params := &stripe.InvoiceCreatePreviewParams{Subscription: stripe.String(subscriptionID)}
	params.Context = ctx

	inv, err := invoice.CreatePreview(params)
	if err != nil {
		return nil, classifyStripeError(err)
	}
	return &InvoicePreview{
		Subtotal:  inv.Subtotal,
		Total:     inv.Total,
		AmountDue: inv.AmountDue,
		Currency:  strings.ToUpper(string(inv.Currency)),
	}, nil
}

// ParseEvent verifies the webhook signature with the shared signing secret
// and normalizes the payload. Verification happens before any payload
// parsing; a bad signature never yields a usable event. API version
// mismatches are tolerated: only a handful of stable fields are decoded,
// and rejecting otherwise authentic events would trigger provider
// redelivery storms.
func (g *StripeGateway) ParseEvent(payload []byte, signatureHeader string) (*Event, error) {
	stripeEvent, err := webhook.ConstructEventWithOptions(payload, signatureHeader, g.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, errors.Join(ErrBadSignature, err)
	}

	// Only the fields the reconciler consumes are decoded. For invoice
	// events the subscription reference lives next to the invoice ID.
	var object struct {
		ID           string `json:"id"`
		Status       string `json:"status"`
		Subscription string `json:"subscription"`
		Parent       struct {
			SubscriptionDetails struct {
				Subscription string `json:"subscription"`
			} `json:"subscription_details"`
		} `json:"parent"`
		CurrentPeriodStart int64 `json:"current_period_start"`
		CurrentPeriodEnd   int64 `json:"current_period_end"`
		CancelAtPeriodEnd  bool  `json:"cancel_at_period_end"`
	}
	if err := json.Unmarshal(stripeEvent.Data.Raw, &object); err != nil {
		return nil, fmt.Errorf("%w: malformed event object: %w", ErrProvider, err)
	}

	event := &Event{
		ID:                stripeEvent.ID,
		Kind:              mapStripeEventType(string(stripeEvent.Type)),
		ProviderType:      string(stripeEvent.Type),
		Status:            object.Status,
		CancelAtPeriodEnd: object.CancelAtPeriodEnd,
	}
	if object.CurrentPeriodStart > 0 {
		event.CurrentPeriodStart = time.Unix(object.CurrentPeriodStart, 0).UTC()
	}
	if object.CurrentPeriodEnd > 0 {
		event.CurrentPeriodEnd = time.Unix(object.CurrentPeriodEnd, 0).UTC()
	}

	switch event.Kind {
	case EventPaymentSucceeded, EventPaymentFailed:
		event.SubscriptionID = object.Subscription
		if event.SubscriptionID == "" {
			event.SubscriptionID = object.Parent.SubscriptionDetails.Subscription
		}
	default:
		event.SubscriptionID = object.ID
	}

	return event, nil
}

func (g *StripeGateway) priceData(unitAmountMinor int64, currency string, interval Interval) *stripe.SubscriptionItemPriceDataParams {
	return &stripe.SubscriptionItemPriceDataParams{
		Currency:   stripe.String(strings.ToLower(currency)),
		Product:    stripe.String(g.config.ProductID),
		UnitAmount: stripe.Int64(unitAmountMinor),
		Recurring: &stripe.SubscriptionItemPriceDataRecurringParams{
			Interval: stripe.String(string(interval)),
		},
	}
}

func providerSubscription(sub *stripe.Subscription) *ProviderSubscription {
	ps := &ProviderSubscription{
		ID:     sub.ID,
		Status: string(sub.Status),
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		ps.CurrentPeriodStart = time.Unix(item.CurrentPeriodStart, 0).UTC()
		ps.CurrentPeriodEnd = time.Unix(item.CurrentPeriodEnd, 0).UTC()
	}
	if sub.LatestInvoice != nil && sub.LatestInvoice.ConfirmationSecret != nil {
		ps.ClientSecret = sub.LatestInvoice.ConfirmationSecret.ClientSecret
	}
	return ps
}

func mapStripeEventType(eventType string) EventKind {
	switch eventType {
	case "customer.subscription.updated", "subscription.updated":
		return EventSubscriptionUpdated
	case "customer.subscription.deleted", "subscription.deleted":
		return EventSubscriptionDeleted
	case "invoice.payment_succeeded":
		return EventPaymentSucceeded
	case "invoice.payment_failed":
		return EventPaymentFailed
	default:
		return EventUnknown
	}
}

// classifyStripeError maps SDK failures into the package error taxonomy.
// Attachment races have no stable error code across API versions, so the
// provider message is inspected.
func classifyStripeError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return errors.Join(ErrProvider, err)
	}

	msg := strings.ToLower(stripeErr.Msg)
	switch {
	case strings.Contains(msg, "already been attached") || strings.Contains(msg, "already attached"):
		return fmt.Errorf("%w: %s", ErrAlreadyAttached, stripeErr.Msg)
	case strings.Contains(msg, "not attached"):
		return fmt.Errorf("%w: %s", ErrNotAttached, stripeErr.Msg)
	default:
		return fmt.Errorf("%w: %s", ErrProvider, stripeErr.Msg)
	}
}
