package subscription

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stackform/bizkit/pkg/catalog"
	"github.com/stackform/bizkit/pkg/payment"
	"github.com/stackform/bizkit/pkg/pricing"
)

// Service is the subscription lifecycle manager. It orchestrates the
// pricing calculator, the payment gateway and the local store so that
// local state changes only land after the corresponding provider call
// succeeded (cancellation flags excepted, see Cancel).
type Service struct {
	store   Store
	tenants TenantDirectory
	gateway payment.Gateway
	calc    *pricing.Calculator
	coupons CouponCounter
	log     *slog.Logger
	locks   tenantLocks
	now     func() time.Time
}

// CouponCounter counts coupon redemptions after successful creation.
type CouponCounter interface {
	IncrementUsage(ctx context.Context, code string) error
}

// NewService creates a lifecycle manager. Panics if a required dependency
// is nil to fail fast during initialization.
func NewService(store Store, tenants TenantDirectory, gateway payment.Gateway, calc *pricing.Calculator, opts ...ServiceOption) *Service {
	if store == nil {
		panic("subscription: Store is required")
	}
	if tenants == nil {
		panic("subscription: TenantDirectory is required")
	}
	if gateway == nil {
		panic("subscription: payment.Gateway is required")
	}
	if calc == nil {
		panic("subscription: pricing.Calculator is required")
	}

	s := &Service{
		store:   store,
		tenants: tenants,
		gateway: gateway,
		calc:    calc,
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlanSelection is the tagged plan variant chosen at the API boundary; the
// caller already knows which flow it invoked.
type PlanSelection struct {
	Kind    pricing.PlanKind
	ComboID string
}

// CreateParams are the inputs for starting a subscription.
type CreateParams struct {
	TenantID        uuid.UUID
	PaymentMethodID string
	Plan            PlanSelection
	Cycle           catalog.BillingCycle
	Users           int64
	Workspaces      int64
	ModuleIDs       []string
	CouponCode      string
}

// Create starts a paid subscription for the tenant. The single-current-
// subscription check runs before any provider call; creation per tenant is
// serialized in-process and the store's uniqueness guarantee is the
// durable backstop.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Subscription, error) {
	if p.TenantID == uuid.Nil {
		return nil, ErrMissingTenantID
	}
	if p.PaymentMethodID == "" {
		return nil, ErrMissingPaymentMethod
	}

	unlock := s.locks.lock(p.TenantID)
	defer unlock()

	if _, err := s.store.CurrentByTenant(ctx, p.TenantID); err == nil {
		return nil, ErrAlreadySubscribed
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	profile, err := s.tenants.BillingProfile(ctx, p.TenantID)
	if err != nil {
		return nil, errors.Join(ErrTenantProfile, err)
	}

	customerID := profile.ProviderCustomerID
	if customerID == "" {
		customerID, err = s.gateway.CreateCustomer(ctx, profile.Email, profile.Name)
		if err != nil {
			return nil, err
		}
	}

	if err := s.attachPaymentMethod(ctx, p.PaymentMethodID, customerID); err != nil {
		return nil, err
	}
	if err := s.gateway.SetDefaultPaymentMethod(ctx, customerID, p.PaymentMethodID); err != nil {
		return nil, err
	}
	// Cache the provider handles on the tenant record. Billing works
	// without the cache, so a failure here must not abort creation.
	if err := s.tenants.SaveProviderCustomer(ctx, p.TenantID, customerID, p.PaymentMethodID); err != nil {
		s.log.WarnContext(ctx, "failed to cache provider customer on tenant",
			slog.Any("tenant_id", p.TenantID), slog.Any("error", err))
	}

	breakdown, err := s.quote(ctx, p.Plan, p.Cycle, p.Users, p.Workspaces, p.ModuleIDs, p.CouponCode)
	if err != nil {
		return nil, err
	}

	ps, err := s.gateway.CreateSubscription(ctx, payment.CreateSubscriptionRequest{
		CustomerID:      customerID,
		UnitAmountMinor: payment.MinorUnits(breakdown.Total),
		Currency:        breakdown.Currency,
		Interval:        intervalFor(p.Cycle),
	})
	if err != nil {
		return nil, err
	}

	status, ok := mapProviderStatus(ps.Status)
	if !ok {
		s.log.WarnContext(ctx, "provider returned unknown subscription status, assuming incomplete",
			slog.String("provider_status", ps.Status), slog.String("provider_sub_id", ps.ID))
		status = StatusIncomplete
	}

	now := s.now().UTC()
	sub := &Subscription{
		ID:                     uuid.New(),
		TenantID:               p.TenantID,
		PlanKind:               p.Plan.Kind,
		ComboID:                p.Plan.ComboID,
		Cycle:                  p.Cycle,
		Users:                  p.Users,
		Workspaces:             p.Workspaces,
		ModuleIDs:              p.ModuleIDs,
		CouponCode:             p.CouponCode,
		ProviderCustomerID:     customerID,
		ProviderSubscriptionID: ps.ID,
		Status:                 status,
		CurrentPeriodStart:     ps.CurrentPeriodStart,
		CurrentPeriodEnd:       ps.CurrentPeriodEnd,
		NextBillingDate:        ps.CurrentPeriodEnd,
		LastBreakdown:          breakdown,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := s.store.Create(ctx, sub); err != nil {
		if errors.Is(err, ErrAlreadySubscribed) {
			// A concurrent creation won the insert race; the provider
			// subscription created above is now orphaned and needs manual
			// reconciliation.
			s.log.ErrorContext(ctx, "subscription insert conflict after provider creation",
				slog.Any("tenant_id", p.TenantID), slog.String("provider_sub_id", ps.ID))
		}
		return nil, err
	}

	if s.coupons != nil && breakdown.Coupon != nil && breakdown.Coupon.Applied {
		if err := s.coupons.IncrementUsage(ctx, breakdown.Coupon.Code); err != nil {
			s.log.WarnContext(ctx, "failed to increment coupon usage",
				slog.String("coupon_code", breakdown.Coupon.Code), slog.Any("error", err))
		}
	}

	return sub, nil
}

// attachPaymentMethod attaches the method, recovering once from the known
// stale-customer race: on AlreadyAttached or NotAttached it detaches
// (swallowing "not attached") and retries the attach exactly once. This is
// the only automatic retry in the billing subsystem.
func (s *Service) attachPaymentMethod(ctx context.Context, methodID, customerID string) error {
	err := s.gateway.AttachPaymentMethod(ctx, methodID, customerID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, payment.ErrAlreadyAttached) && !errors.Is(err, payment.ErrNotAttached) {
		return err
	}

	if derr := s.gateway.DetachPaymentMethod(ctx, methodID); derr != nil && !errors.Is(derr, payment.ErrNotAttached) {
		return derr
	}
	return s.gateway.AttachPaymentMethod(ctx, methodID, customerID)
}

// ReconfigureParams are the changed subscription parameters. Nil fields
// keep the existing values; the billing cycle is fixed for the lifetime of
// a subscription.
type ReconfigureParams struct {
	TenantID   uuid.UUID
	Users      *int64
	Workspaces *int64
	ModuleIDs  []string
	ComboID    *string
	// CouponCode replaces the stored code; an explicit empty string clears it.
	CouponCode *string
}

// Reconfigure changes billing parameters of an active subscription with
// proration, recomputing the quote from merged old and new parameters.
// Rejected while a deferred cancellation is pending to avoid conflicting
// in-flight provider calls.
func (s *Service) Reconfigure(ctx context.Context, p ReconfigureParams) (*Subscription, error) {
	if p.TenantID == uuid.Nil {
		return nil, ErrMissingTenantID
	}

	unlock := s.locks.lock(p.TenantID)
	defer unlock()

	sub, err := s.store.CurrentByTenant(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}
	if !sub.IsActive() {
		return nil, ErrNotActive
	}
	if sub.CancelAtPeriodEnd {
		return nil, ErrCancellationPending
	}

	users, workspaces := sub.Users, sub.Workspaces
	if p.Users != nil {
		users = *p.Users
	}
	if p.Workspaces != nil {
		workspaces = *p.Workspaces
	}
	moduleIDs := sub.ModuleIDs
	if p.ModuleIDs != nil {
		moduleIDs = p.ModuleIDs
	}
	comboID := sub.ComboID
	if p.ComboID != nil {
		comboID = *p.ComboID
	}
	couponCode := sub.CouponCode
	if p.CouponCode != nil {
		couponCode = *p.CouponCode
	}

	plan := PlanSelection{Kind: sub.PlanKind, ComboID: comboID}
	breakdown, err := s.quote(ctx, plan, sub.Cycle, users, workspaces, moduleIDs, couponCode)
	if err != nil {
		return nil, err
	}

	err = s.gateway.UpdateSubscriptionPrice(ctx, sub.ProviderSubscriptionID,
		payment.MinorUnits(breakdown.Total), breakdown.Currency, intervalFor(sub.Cycle))
	if err != nil {
		return nil, err
	}

	sub.Users = users
	sub.Workspaces = workspaces
	sub.ModuleIDs = moduleIDs
	sub.ComboID = comboID
	sub.CouponCode = couponCode
	sub.LastBreakdown = breakdown
	sub.UpdatedAt = s.now().UTC()

	if err := s.store.Update(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Cancel terminates the tenant's subscription. Immediate cancellation
// waits for provider confirmation before touching local state; deferred
// cancellation sets the local flag optimistically since the provider's
// period-end event is authoritative for the final status either way.
func (s *Service) Cancel(ctx context.Context, tenantID uuid.UUID, atPeriodEnd bool) (*Subscription, error) {
	if tenantID == uuid.Nil {
		return nil, ErrMissingTenantID
	}

	unlock := s.locks.lock(tenantID)
	defer unlock()

	sub, err := s.store.CurrentByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()

	if atPeriodEnd {
		sub.CancelAtPeriodEnd = true
		sub.UpdatedAt = now
		if err := s.store.Update(ctx, sub); err != nil {
			return nil, err
		}
		if err := s.gateway.CancelSubscription(ctx, sub.ProviderSubscriptionID, true); err != nil {
			return nil, err
		}
		return sub, nil
	}

	if err := s.gateway.CancelSubscription(ctx, sub.ProviderSubscriptionID, false); err != nil {
		return nil, err
	}

	sub.Status = StatusCanceled
	sub.CancelAtPeriodEnd = false
	sub.CanceledAt = &now
	sub.UpdatedAt = now
	if err := s.store.Update(ctx, sub); err != nil {
		return nil, err
	}
	s.downgradeTenant(ctx, tenantID)

	return sub, nil
}

// Get returns the tenant's current subscription.
func (s *Service) Get(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	return s.store.CurrentByTenant(ctx, tenantID)
}

// PreviewUpcomingInvoice returns the provider's preview of the tenant's
// next invoice.
func (s *Service) PreviewUpcomingInvoice(ctx context.Context, tenantID uuid.UUID) (*payment.InvoicePreview, error) {
	sub, err := s.store.CurrentByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.gateway.PreviewUpcomingInvoice(ctx, sub.ProviderSubscriptionID)
}

// ApplyEvent reconciles a verified provider event into local state. The
// handler is a pure status/period update trusting the provider's own
// fields as latest truth, which makes re-applying an event, or applying an
// older event after a newer one, safe. Events for unknown provider
// subscription IDs are logged and dropped: the provider may replay events
// after local data has been purged.
func (s *Service) ApplyEvent(ctx context.Context, ev payment.Event) error {
	if ev.Kind == payment.EventUnknown {
		s.log.DebugContext(ctx, "ignoring unhandled provider event",
			slog.String("event_type", ev.ProviderType), slog.String("event_id", ev.ID))
		return nil
	}

	sub, err := s.store.ByProviderSubID(ctx, ev.SubscriptionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.log.InfoContext(ctx, "dropping event for unknown provider subscription",
				slog.String("provider_sub_id", ev.SubscriptionID), slog.String("event_type", ev.ProviderType))
			return nil
		}
		return err
	}

	now := s.now().UTC()

	switch ev.Kind {
	case payment.EventSubscriptionUpdated:
		if status, ok := mapProviderStatus(ev.Status); ok {
			s.applyStatus(sub, status, now)
		} else {
			s.log.WarnContext(ctx, "keeping local status for unknown provider status",
				slog.String("provider_status", ev.Status), slog.String("provider_sub_id", ev.SubscriptionID))
		}
		sub.CancelAtPeriodEnd = ev.CancelAtPeriodEnd
		applyPeriods(sub, ev)

	case payment.EventSubscriptionDeleted:
		s.applyStatus(sub, StatusCanceled, now)
		sub.CancelAtPeriodEnd = false
		applyPeriods(sub, ev)

	case payment.EventPaymentSucceeded:
		s.applyStatus(sub, StatusActive, now)
		applyPeriods(sub, ev)

	case payment.EventPaymentFailed:
		s.applyStatus(sub, StatusPastDue, now)
	}

	sub.UpdatedAt = now
	if err := s.store.Update(ctx, sub); err != nil {
		return errors.Join(ErrFailedToPersist, err)
	}

	if sub.Status == StatusCanceled {
		s.downgradeTenant(ctx, sub.TenantID)
	}
	return nil
}

func (s *Service) applyStatus(sub *Subscription, status Status, now time.Time) {
	if status == StatusCanceled && sub.CanceledAt == nil {
		sub.CanceledAt = &now
	}
	sub.Status = status
}

func (s *Service) downgradeTenant(ctx context.Context, tenantID uuid.UUID) {
	if err := s.tenants.DowngradeToFree(ctx, tenantID); err != nil {
		s.log.ErrorContext(ctx, "failed to downgrade tenant to free tier",
			slog.Any("tenant_id", tenantID), slog.Any("error", err))
	}
}

func (s *Service) quote(ctx context.Context, plan PlanSelection, cycle catalog.BillingCycle, users, workspaces int64, moduleIDs []string, couponCode string) (*pricing.Breakdown, error) {
	if plan.Kind == pricing.PlanCombo {
		return s.calc.QuoteCombo(ctx, pricing.ComboQuote{
			ComboID:    plan.ComboID,
			Cycle:      cycle,
			CouponCode: couponCode,
		})
	}
	return s.calc.QuoteBasic(ctx, pricing.BasicQuote{
		Users:      users,
		Workspaces: workspaces,
		Cycle:      cycle,
		ModuleIDs:  moduleIDs,
		CouponCode: couponCode,
	})
}

// applyPeriods copies the provider's period fields when present.
// NextBillingDate tracks the period end.
func applyPeriods(sub *Subscription, ev payment.Event) {
	if !ev.CurrentPeriodStart.IsZero() {
		sub.CurrentPeriodStart = ev.CurrentPeriodStart
	}
	if !ev.CurrentPeriodEnd.IsZero() {
		sub.CurrentPeriodEnd = ev.CurrentPeriodEnd
		sub.NextBillingDate = ev.CurrentPeriodEnd
	}
}

func intervalFor(cycle catalog.BillingCycle) payment.Interval {
	if cycle == catalog.CycleYearly {
		return payment.IntervalYear
	}
	return payment.IntervalMonth
}

// tenantLocks serializes lifecycle operations per tenant ID.
type tenantLocks struct {
	mu sync.Mutex
	m  map[uuid.UUID]*sync.Mutex
}

func (l *tenantLocks) lock(tenantID uuid.UUID) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[uuid.UUID]*sync.Mutex)
	}
	tl, ok := l.m[tenantID]
	if !ok {
		tl = &sync.Mutex{}
		l.m[tenantID] = tl
	}
	l.mu.Unlock()

	tl.Lock()
	return tl.Unlock
}
