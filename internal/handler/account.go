package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/tpln/gateway/internal/handler/dto"
	"github.com/tpln/gateway/internal/service"
)

// StripeSignatureHeader carries the payments webhook signature.
const StripeSignatureHeader = "Stripe-Signature"

// AccountHandler serves the checkout, password and payment webhook functions.
type AccountHandler struct {
	svc          *service.AccountService
	logger       *slog.Logger
	exposeErrors bool
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(svc *service.AccountService, logger *slog.Logger, exposeErrors bool) *AccountHandler {
	return &AccountHandler{
		svc:          svc,
		logger:       logger,
		exposeErrors: exposeErrors,
	}
}

// CheckoutEmail handles GET get-checkout-email?session_id=.
func (h *AccountHandler) CheckoutEmail(w http.ResponseWriter, r *http.Request) {
	email, err := h.svc.CheckoutEmail(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.CheckoutEmailResponse{Email: email})
}

// SetupPassword handles POST setup-password.
func (h *AccountHandler) SetupPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.SetupPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := h.svc.SetupPassword(r.Context(), req.Email, req.Password); err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{
		Success: true,
		Message: "Password created successfully",
	})
}

// CreateCheckoutSession handles POST create-checkout-session.
func (h *AccountHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	res, err := h.svc.CreateCheckoutSession(r.Context(), service.CheckoutInput{
		PlanType:     req.PlanType,
		BillingCycle: req.BillingCycle,
		Origin:       r.Header.Get("Origin"),
		Referer:      r.Header.Get("Referer"),
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("checkout_session_created", "session_id", res.SessionID, "plan", req.PlanType, "cycle", req.BillingCycle)
	writeJSON(w, http.StatusOK, dto.CreateCheckoutResponse{SessionID: res.SessionID, URL: res.URL})
}

// StripeWebhook handles POST stripe-webhook.
func (h *AccountHandler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Unable to read request body")
		return
	}

	res, err := h.svc.HandleWebhook(r.Context(), payload, r.Header.Get(StripeSignatureHeader))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("webhook_handled", "event_id", res.EventID, "event_type", res.EventType, "outcome", res.Outcome)
	writeJSON(w, http.StatusOK, dto.WebhookResponse{
		Received:  true,
		Duplicate: res.Outcome == service.WebhookDuplicate,
	})
}

// handleServiceError maps service errors to HTTP responses.
func (h *AccountHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrPaymentsNotConfigured):
		writeError(w, http.StatusInternalServerError, "STRIPE_NOT_CONFIGURED", "Payments provider is not configured")
	case errors.Is(err, service.ErrIdentityNotConfigured):
		writeError(w, http.StatusInternalServerError, "AUTH_PROVIDER_NOT_CONFIGURED", "Auth provider is not configured")
	case errors.Is(err, service.ErrStorageNotConfigured):
		writeError(w, http.StatusInternalServerError, "DATABASE_NOT_CONFIGURED", "Database is not configured")
	case errors.Is(err, service.ErrSessionIDRequired):
		writeError(w, http.StatusBadRequest, "SESSION_ID_REQUIRED", "session_id is required")
	case errors.Is(err, service.ErrCheckoutEmailNotFound):
		writeError(w, http.StatusNotFound, "EMAIL_NOT_FOUND", "Email not found in checkout session")
	case errors.Is(err, service.ErrCredentialsRequired):
		writeError(w, http.StatusBadRequest, "CREDENTIALS_REQUIRED", "Email and password are required")
	case errors.Is(err, service.ErrPasswordTooShort):
		writeError(w, http.StatusBadRequest, "PASSWORD_TOO_SHORT", "Password must be at least 6 characters")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, service.ErrPlanRequired):
		writeError(w, http.StatusBadRequest, "PLAN_REQUIRED", "planType and billingCycle are required")
	case errors.Is(err, service.ErrInvalidPlan):
		writeError(w, http.StatusBadRequest, "INVALID_PLAN", "Invalid plan or billing cycle")
	case errors.Is(err, service.ErrWebhookSignatureMissing):
		writeError(w, http.StatusBadRequest, "SIGNATURE_MISSING", "Webhook signature missing")
	case errors.Is(err, service.ErrInvalidWebhook):
		h.logger.Warn("webhook_rejected", "error", err)
		writeError(w, http.StatusBadRequest, "INVALID_SIGNATURE", "Webhook signature verification failed")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", internalMessage(err, h.exposeErrors))
	}
}
