package billing

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/stackform/bizkit/pkg/binder"
	"github.com/stackform/bizkit/pkg/catalog"
	"github.com/stackform/bizkit/pkg/pricing"
	"github.com/stackform/bizkit/pkg/subscription"
	"github.com/stackform/bizkit/pkg/webhook"
)

// maxWebhookBody caps webhook payload reads; Stripe events are well under
// this.
const maxWebhookBody = 1 << 20

type handlers struct {
	calc   *pricing.Calculator
	subs   *subscription.Service
	hooks  *webhook.Reconciler
	tenant TenantResolver
	sigHdr string
	log    *slog.Logger
}

type basicQuoteRequest struct {
	Users      int64    `json:"users"`
	Workspaces int64    `json:"workspaces"`
	Cycle      string   `json:"cycle"`
	ModuleIDs  []string `json:"module_ids"`
	CouponCode string   `json:"coupon_code"`
}

func (h *handlers) quoteBasic(w http.ResponseWriter, r *http.Request) {
	var req basicQuoteRequest
	if err := binder.JSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	cycle := catalog.BillingCycle(req.Cycle)
	if !cycle.Valid() {
		h.respondError(w, r, catalog.ErrInvalidCycle)
		return
	}

	breakdown, err := h.calc.QuoteBasic(r.Context(), pricing.BasicQuote{
		Users:      req.Users,
		Workspaces: req.Workspaces,
		Cycle:      cycle,
		ModuleIDs:  req.ModuleIDs,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, breakdown)
}

type comboQuoteRequest struct {
	ComboID    string `json:"combo_id"`
	Cycle      string `json:"cycle"`
	CouponCode string `json:"coupon_code"`
}

func (h *handlers) quoteCombo(w http.ResponseWriter, r *http.Request) {
	var req comboQuoteRequest
	if err := binder.JSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	cycle := catalog.BillingCycle(req.Cycle)
	if !cycle.Valid() {
		h.respondError(w, r, catalog.ErrInvalidCycle)
		return
	}

	breakdown, err := h.calc.QuoteCombo(r.Context(), pricing.ComboQuote{
		ComboID:    req.ComboID,
		Cycle:      cycle,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, breakdown)
}

type createRequest struct {
	PlanKind        string   `json:"plan_kind"`
	ComboID         string   `json:"combo_id"`
	PaymentMethodID string   `json:"payment_method_id"`
	Cycle           string   `json:"cycle"`
	Users           int64    `json:"users"`
	Workspaces      int64    `json:"workspaces"`
	ModuleIDs       []string `json:"module_ids"`
	CouponCode      string   `json:"coupon_code"`
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	tenantID, err := h.tenant(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req createRequest
	if err := binder.JSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	kind := pricing.PlanKind(req.PlanKind)
	if kind != pricing.PlanBasic && kind != pricing.PlanCombo {
		h.respondError(w, r, ErrInvalidPlanKind)
		return
	}
	cycle := catalog.BillingCycle(req.Cycle)
	if !cycle.Valid() {
		h.respondError(w, r, catalog.ErrInvalidCycle)
		return
	}

	sub, err := h.subs.Create(r.Context(), subscription.CreateParams{
		TenantID:        tenantID,
		PaymentMethodID: req.PaymentMethodID,
		Plan:            subscription.PlanSelection{Kind: kind, ComboID: req.ComboID},
		Cycle:           cycle,
		Users:           req.Users,
		Workspaces:      req.Workspaces,
		ModuleIDs:       req.ModuleIDs,
		CouponCode:      req.CouponCode,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toSubscriptionResponse(sub))
}

func (h *handlers) get(w http.ResponseWriter, r *http.Request) {
	tenantID, err := h.tenant(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	sub, err := h.subs.Get(r.Context(), tenantID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

type reconfigureRequest struct {
	Users      *int64   `json:"users"`
	Workspaces *int64   `json:"workspaces"`
	ModuleIDs  []string `json:"module_ids"`
	ComboID    *string  `json:"combo_id"`
	CouponCode *string  `json:"coupon_code"`
}

func (h *handlers) reconfigure(w http.ResponseWriter, r *http.Request) {
	tenantID, err := h.tenant(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req reconfigureRequest
	if err := binder.JSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	sub, err := h.subs.Reconfigure(r.Context(), subscription.ReconfigureParams{
		TenantID:   tenantID,
		Users:      req.Users,
		Workspaces: req.Workspaces,
		ModuleIDs:  req.ModuleIDs,
		ComboID:    req.ComboID,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func (h *handlers) cancel(w http.ResponseWriter, r *http.Request) {
	tenantID, err := h.tenant(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	atPeriodEnd := r.URL.Query().Get("at_period_end") == "true"

	sub, err := h.subs.Cancel(r.Context(), tenantID, atPeriodEnd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

type invoicePreviewResponse struct {
	Subtotal  int64  `json:"subtotal"`
	Total     int64  `json:"total"`
	AmountDue int64  `json:"amount_due"`
	Currency  string `json:"currency"`
}

func (h *handlers) upcomingInvoice(w http.ResponseWriter, r *http.Request) {
	tenantID, err := h.tenant(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	preview, err := h.subs.PreviewUpcomingInvoice(r.Context(), tenantID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, invoicePreviewResponse{
		Subtotal:  preview.Subtotal,
		Total:     preview.Total,
		AmountDue: preview.AmountDue,
		Currency:  preview.Currency,
	})
}

func (h *handlers) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.respondError(w, r, webhook.ErrEmptyPayload)
		return
	}

	if err := h.hooks.Handle(r.Context(), payload, r.Header.Get(h.sigHdr)); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type subscriptionResponse struct {
	ID                 uuid.UUID          `json:"id"`
	PlanKind           pricing.PlanKind   `json:"plan_kind"`
	ComboID            string             `json:"combo_id,omitempty"`
	Cycle              string             `json:"cycle"`
	Users              int64              `json:"users"`
	Workspaces         int64              `json:"workspaces"`
	ModuleIDs          []string           `json:"module_ids,omitempty"`
	CouponCode         string             `json:"coupon_code,omitempty"`
	Status             string             `json:"status"`
	CancelAtPeriodEnd  bool               `json:"cancel_at_period_end"`
	CurrentPeriodStart time.Time          `json:"current_period_start"`
	CurrentPeriodEnd   time.Time          `json:"current_period_end"`
	NextBillingDate    time.Time          `json:"next_billing_date"`
	LastBreakdown      *pricing.Breakdown `json:"last_breakdown,omitempty"`
	CanceledAt         *time.Time         `json:"canceled_at,omitempty"`
}

func toSubscriptionResponse(sub *subscription.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:                 sub.ID,
		PlanKind:           sub.PlanKind,
		ComboID:            sub.ComboID,
		Cycle:              string(sub.Cycle),
		Users:              sub.Users,
		Workspaces:         sub.Workspaces,
		ModuleIDs:          sub.ModuleIDs,
		CouponCode:         sub.CouponCode,
		Status:             string(sub.Status),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		NextBillingDate:    sub.NextBillingDate,
		LastBreakdown:      sub.LastBreakdown,
		CanceledAt:         sub.CanceledAt,
	}
}
