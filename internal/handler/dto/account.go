package dto

import "github.com/tpln/gateway/internal/purge"

// CheckoutEmailResponse is returned by get-checkout-email.
type CheckoutEmailResponse struct {
	Email string `json:"email"`
}

// SetupPasswordRequest is the body of setup-password.
type SetupPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SuccessResponse acknowledges a completed operation.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CreateCheckoutRequest is the body of create-checkout-session.
type CreateCheckoutRequest struct {
	PlanType     string `json:"planType"`
	BillingCycle string `json:"billingCycle"`
}

// CreateCheckoutResponse is returned by create-checkout-session.
type CreateCheckoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// WebhookResponse acknowledges a payments webhook.
type WebhookResponse struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate,omitempty"`
}

// PurgeRequest is the body of the admin purge endpoints. Keys holds node names for the
// realtime database and table names for the database.
type PurgeRequest struct {
	Keys   []string `json:"keys,omitempty"`
	Tables []string `json:"tables,omitempty"`
	DryRun bool     `json:"dryRun"`
}

// PurgeResponse reports a purge run.
type PurgeResponse struct {
	Report *purge.Report `json:"report"`
	Error  string        `json:"error,omitempty"`
}
