package billing

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/stackform/bizkit/pkg/binder"
	"github.com/stackform/bizkit/pkg/catalog"
	"github.com/stackform/bizkit/pkg/payment"
	"github.com/stackform/bizkit/pkg/pricing"
	"github.com/stackform/bizkit/pkg/subscription"
	"github.com/stackform/bizkit/pkg/webhook"
)

var (
	// ErrUnauthenticated is returned when the tenant cannot be resolved
	// from the request.
	ErrUnauthenticated = errors.New("billing: unauthenticated request")

	// ErrInvalidPlanKind is returned for plan kinds other than basic or combo.
	ErrInvalidPlanKind = errors.New("billing: invalid plan kind")
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors onto HTTP status codes. Client mistakes in
// the payload are 422, malformed requests 400, state conflicts 409, and
// provider-side rejections 402 so callers can distinguish a card decline
// from their own bug.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized

	case errors.Is(err, binder.ErrInvalidJSON),
		errors.Is(err, binder.ErrMissingContentType),
		errors.Is(err, binder.ErrUnsupportedMediaType),
		errors.Is(err, binder.ErrInvalidQuery),
		errors.Is(err, payment.ErrBadSignature),
		errors.Is(err, webhook.ErrEmptyPayload):
		return http.StatusBadRequest

	case errors.Is(err, ErrInvalidPlanKind),
		errors.Is(err, catalog.ErrInvalidCycle),
		errors.Is(err, pricing.ErrInvalidQuantity),
		errors.Is(err, pricing.ErrMissingComboID),
		errors.Is(err, subscription.ErrMissingPaymentMethod),
		errors.Is(err, subscription.ErrMissingTenantID):
		return http.StatusUnprocessableEntity

	case errors.Is(err, catalog.ErrModuleNotFound),
		errors.Is(err, catalog.ErrComboPlanNotFound),
		errors.Is(err, subscription.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, subscription.ErrAlreadySubscribed),
		errors.Is(err, subscription.ErrNotActive),
		errors.Is(err, subscription.ErrCancellationPending):
		return http.StatusConflict

	case errors.Is(err, payment.ErrProvider):
		return http.StatusPaymentRequired

	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "billing request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		respondJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	respondJSON(w, status, errorResponse{Error: err.Error()})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
