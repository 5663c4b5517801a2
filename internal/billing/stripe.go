package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeProvider implements Provider with stripe-go.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

// NewStripe creates a provider for the given secret key. The webhook secret may be empty
// when the gateway does not receive events.
func NewStripe(secretKey, webhookSecret string) (*StripeProvider, error) {
	if secretKey == "" {
		return nil, ErrNotConfigured
	}
	return &StripeProvider{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
	}, nil
}

// GetCheckoutSession retrieves a session by id.
func (p *StripeProvider) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := p.api.CheckoutSessions.Get(id, params)
	if err != nil {
		if isResourceMissing(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("retrieve checkout session: %w", err)
	}
	return sessionFromStripe(s), nil
}

// CreateCheckoutSession creates a subscription-mode checkout session.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				MetadataPlanType:     req.PlanType,
				MetadataBillingCycle: req.BillingCycle,
			},
		},
	}
	params.Context = ctx
	params.AddMetadata(MetadataPlanType, req.PlanType)
	params.AddMetadata(MetadataBillingCycle, req.BillingCycle)

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return sessionFromStripe(s), nil
}

// GetSubscription retrieves a subscription by id.
func (p *StripeProvider) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	s, err := p.api.Subscriptions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve subscription: %w", err)
	}
	return subscriptionFromStripe(s), nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*Event, error) {
	return parseWebhook(payload, signature, p.webhookSecret)
}

func parseWebhook(payload []byte, signature, secret string) (*Event, error) {
	if secret == "" {
		return nil, ErrWebhookNotConfigured
	}

	evt, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: evt.ID, Type: string(evt.Type)}
	if evt.Data == nil {
		return out, nil
	}

	switch out.Type {
	case EventCheckoutCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out.Session = sessionFromStripe(&s)
	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var s stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		out.Subscription = subscriptionFromStripe(&s)
	}
	return out, nil
}

func sessionFromStripe(s *stripe.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:       s.ID,
		URL:      s.URL,
		Email:    s.CustomerEmail,
		Metadata: s.Metadata,
	}
	if out.Email == "" && s.CustomerDetails != nil {
		out.Email = s.CustomerDetails.Email
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Subscription != nil {
		out.SubscriptionID = s.Subscription.ID
	}
	return out
}

func subscriptionFromStripe(s *stripe.Subscription) *Subscription {
	out := &Subscription{
		ID:                s.ID,
		Status:            string(s.Status),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		Metadata:          s.Metadata,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.CurrentPeriodStart > 0 {
		out.PeriodStart = time.Unix(s.CurrentPeriodStart, 0).UTC()
	}
	if s.CurrentPeriodEnd > 0 {
		out.PeriodEnd = time.Unix(s.CurrentPeriodEnd, 0).UTC()
	}
	return out
}

func isResourceMissing(err error) bool {
	var stripeErr *stripe.Error
	return errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing
}
