// Package billing wraps the payments provider: checkout sessions, subscriptions
// and signed webhook events.
package billing

import (
	"context"
	"errors"
	"time"
)

// Event types handled by the webhook.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Checkout metadata keys.
const (
	MetadataPlanType     = "plan_type"
	MetadataBillingCycle = "billing_cycle"
)

var (
	// ErrNotConfigured is returned when no secret key is set.
	ErrNotConfigured = errors.New("payments provider not configured")
	// ErrWebhookNotConfigured is returned when no webhook signing secret is set.
	ErrWebhookNotConfigured = errors.New("webhook secret not configured")
	// ErrInvalidSignature is returned when a webhook payload fails verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrSessionNotFound is returned when a checkout session id is unknown.
	ErrSessionNotFound = errors.New("checkout session not found")
)

// CheckoutSession is the subset of a provider checkout session the gateway uses.
type CheckoutSession struct {
	ID             string
	URL            string
	Email          string
	CustomerID     string
	SubscriptionID string
	Metadata       map[string]string
}

// Subscription is the subset of a provider subscription the gateway stores.
type Subscription struct {
	ID                string
	CustomerID        string
	Status            string
	PeriodStart       time.Time
	PeriodEnd         time.Time
	CancelAtPeriodEnd bool
	Metadata          map[string]string
}

// CheckoutRequest describes a subscription checkout to create.
type CheckoutRequest struct {
	PriceID      string
	PlanType     string
	BillingCycle string
	SuccessURL   string
	CancelURL    string
}

// Event is a verified webhook event. Exactly one of Session or Subscription is set
// for handled types; both are nil otherwise.
type Event struct {
	ID           string
	Type         string
	Session      *CheckoutSession
	Subscription *Subscription
}

// Provider is the payments provider surface used by the account service.
type Provider interface {
	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
}
