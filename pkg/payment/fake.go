package payment

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FakeGateway is a test double that records calls and returns configurable
// results. Error fields inject failures; call slices support exact
// call-count assertions.
type FakeGateway struct {
	mu sync.Mutex

	// Customers maps customerID -> email.
	Customers map[string]string
	// Attachments maps methodID -> customerID.
	Attachments map[string]string
	// Defaults maps customerID -> default methodID.
	Defaults map[string]string
	// Subscriptions maps subscriptionID -> last unit amount in minor units.
	Subscriptions map[string]int64

	CustomerCalls   int
	SetDefaultCalls int
	AttachCalls     []string
	DetachCalls     []string
	CreateCalls     []CreateSubscriptionRequest
	UpdateCalls     []string
	CancelCalls     []string
	PreviewCalls    []string

	CreateCustomerErr error
	// AttachErrs is consumed one per Attach call, letting tests fail the
	// first attach and succeed the retry.
	AttachErrs       []error
	DetachErr        error
	SetDefaultErr    error
	CreateSubErr     error
	UpdateSubErr     error
	CancelSubErr     error
	PreviewErr       error

	// SubscriptionStatus is the status reported by CreateSubscription.
	SubscriptionStatus string
	PeriodStart        time.Time
	PeriodEnd          time.Time

	customerSeq int
	subSeq      int
}

// NewFakeGateway creates a FakeGateway ready for use.
func NewFakeGateway() *FakeGateway {
	now := time.Now().UTC().Truncate(time.Second)
	return &FakeGateway{
		Customers:          make(map[string]string),
		Attachments:        make(map[string]string),
		Defaults:           make(map[string]string),
		Subscriptions:      make(map[string]int64),
		SubscriptionStatus: "active",
		PeriodStart:        now,
		PeriodEnd:          now.AddDate(0, 1, 0),
	}
}

func (f *FakeGateway) CreateCustomer(_ context.Context, email, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CustomerCalls++
	if f.CreateCustomerErr != nil {
		return "", f.CreateCustomerErr
	}
	f.customerSeq++
	id := fmt.Sprintf("cus_fake_%d", f.customerSeq)
	f.Customers[id] = email
	return id, nil
}

func (f *FakeGateway) AttachPaymentMethod(_ context.Context, methodID, customerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.AttachCalls = append(f.AttachCalls, methodID)
	if len(f.AttachErrs) > 0 {
		err := f.AttachErrs[0]
		f.AttachErrs = f.AttachErrs[1:]
		if err != nil {
			return err
		}
	}
	f.Attachments[methodID] = customerID
	return nil
}

func (f *FakeGateway) DetachPaymentMethod(_ context.Context, methodID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.DetachCalls = append(f.DetachCalls, methodID)
	if f.DetachErr != nil {
		return f.DetachErr
	}
	delete(f.Attachments, methodID)
	return nil
}

func (f *FakeGateway) SetDefaultPaymentMethod(_ context.Context, customerID, methodID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.SetDefaultCalls++
	if f.SetDefaultErr != nil {
		return f.SetDefaultErr
	}
	f.Defaults[customerID] = methodID
	return nil
}

func (f *FakeGateway) CreateSubscription(_ context.Context, req CreateSubscriptionRequest) (*ProviderSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CreateCalls = append(f.CreateCalls, req)
	if f.CreateSubErr != nil {
		return nil, f.CreateSubErr
	}
	f.subSeq++
	id := fmt.Sprintf("sub_fake_%d", f.subSeq)
	f.Subscriptions[id] = req.UnitAmountMinor
	return &ProviderSubscription{
		ID:                 id,
		Status:             f.SubscriptionStatus,
		CurrentPeriodStart: f.PeriodStart,
		CurrentPeriodEnd:   f.PeriodEnd,
		ClientSecret:       "pi_fake_secret",
	}, nil
}

func (f *FakeGateway) UpdateSubscriptionPrice(_ context.Context, subscriptionID string, unitAmountMinor int64, _ string, _ Interval) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.UpdateCalls = append(f.UpdateCalls, subscriptionID)
	if f.UpdateSubErr != nil {
		return f.UpdateSubErr
	}
	if _, ok := f.Subscriptions[subscriptionID]; !ok {
		return fmt.Errorf("%w: unknown subscription %s", ErrProvider, subscriptionID)
	}
	f.Subscriptions[subscriptionID] = unitAmountMinor
	return nil
}

func (f *FakeGateway) CancelSubscription(_ context.Context, subscriptionID string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CancelCalls = append(f.CancelCalls, subscriptionID)
	if f.CancelSubErr != nil {
		return f.CancelSubErr
	}
	if _, ok := f.Subscriptions[subscriptionID]; !ok {
		return fmt.Errorf("%w: unknown subscription %s", ErrProvider, subscriptionID)
	}
	return nil
}

func (f *FakeGateway) PreviewUpcomingInvoice(_ context.Context, subscriptionID string) (*InvoicePreview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.PreviewCalls = append(f.PreviewCalls, subscriptionID)
	if f.PreviewErr != nil {
		return nil, f.PreviewErr
	}
	amount, ok := f.Subscriptions[subscriptionID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown subscription %s", ErrProvider, subscriptionID)
	}
	return &InvoicePreview{Subtotal: amount, Total: amount, AmountDue: amount, Currency: "USD"}, nil
}

// TotalCalls returns how many gateway calls were made in total, for
// asserting that a rejected request touched the provider zero times.
func (f *FakeGateway) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CustomerCalls + f.SetDefaultCalls + len(f.AttachCalls) + len(f.DetachCalls) +
		len(f.CreateCalls) + len(f.UpdateCalls) + len(f.CancelCalls) + len(f.PreviewCalls)
}
