package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Interval is the provider-side billing interval.
type Interval string

const (
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// Gateway abstracts the external payment provider. The lifecycle manager
// treats every identifier returned here as an opaque handle.
//
// None of the mutating calls retry internally: a transport failure is an
// unknown-outcome error that the caller must surface for manual
// reconciliation rather than retry into a double charge.
type Gateway interface {
	// CreateCustomer registers a billing customer and returns its provider ID.
	CreateCustomer(ctx context.Context, email, name string) (string, error)

	// AttachPaymentMethod attaches a payment method to a customer.
	// Fails with ErrAlreadyAttached or ErrNotAttached.
	AttachPaymentMethod(ctx context.Context, methodID, customerID string) error

	// DetachPaymentMethod detaches a payment method from whichever customer
	// holds it. Fails with ErrNotAttached if the method is free.
	DetachPaymentMethod(ctx context.Context, methodID string) error

	// SetDefaultPaymentMethod marks the method as the customer's default
	// for recurring invoices.
	SetDefaultPaymentMethod(ctx context.Context, customerID, methodID string) error

	// CreateSubscription starts a recurring subscription at the given amount.
	CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*ProviderSubscription, error)

	// UpdateSubscriptionPrice changes the recurring amount with proration
	// enabled. This is the only mutation path for a live subscription price.
	UpdateSubscriptionPrice(ctx context.Context, subscriptionID string, unitAmountMinor int64, currency string, interval Interval) error

	// CancelSubscription cancels immediately or at the period boundary.
	CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) error

	// PreviewUpcomingInvoice returns the amounts of the next invoice.
	PreviewUpcomingInvoice(ctx context.Context, subscriptionID string) (*InvoicePreview, error)
}

// CreateSubscriptionRequest carries everything needed to start a provider
// subscription. UnitAmountMinor is in minor currency units; the conversion
// from decimal happened at this boundary already.
type CreateSubscriptionRequest struct {
	CustomerID      string
	UnitAmountMinor int64
	Currency        string
	Interval        Interval
	Description     string
}

// ProviderSubscription is the provider's view of a subscription.
type ProviderSubscription struct {
	ID                 string
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	// ClientSecret completes the initial payment on the client when the
	// provider created the subscription in an incomplete state.
	ClientSecret string
}

// InvoicePreview holds upcoming invoice amounts in minor units.
type InvoicePreview struct {
	Subtotal  int64
	Total     int64
	AmountDue int64
	Currency  string
}

// MinorUnits converts a decimal currency amount to int64 minor units,
// rounding half away from zero. This is the single conversion point in the
// system; everything upstream stays decimal to avoid compounding rounding
// error across additive terms.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
