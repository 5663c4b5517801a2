package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tpln/gateway/internal/auth"
	"github.com/tpln/gateway/internal/billing"
	"github.com/tpln/gateway/internal/identity"
	"github.com/tpln/gateway/internal/model"
	"github.com/tpln/gateway/internal/notify"
	"github.com/tpln/gateway/internal/repository"
)

// Webhook outcomes.
const (
	WebhookProcessed = "processed"
	WebhookIgnored   = "ignored"
	WebhookDuplicate = "duplicate"
	WebhookFailed    = "failed"
)

// WebhookResult describes how an event was handled.
type WebhookResult struct {
	EventID   string
	EventType string
	Outcome   string
}

// HandleWebhook verifies and applies a payments webhook event.
// Each event id is applied at most once when an EventLedger is configured; a failed
// event is forgotten so the provider's retry can apply it.
func (s *AccountService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if s.deps.Payments == nil {
		return nil, ErrPaymentsNotConfigured
	}
	if signature == "" {
		return nil, ErrWebhookSignatureMissing
	}

	evt, err := s.deps.Payments.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, billing.ErrWebhookNotConfigured) {
			return nil, ErrWebhookSignatureMissing
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidWebhook, err)
	}

	res := &WebhookResult{EventID: evt.ID, EventType: evt.Type}
	logger := s.deps.Logger.With("event_id", evt.ID, "event_type", evt.Type)

	if s.deps.Events != nil {
		first, err := s.deps.Events.MarkEventProcessed(ctx, evt.ID, 0)
		if err != nil {
			logger.Warn("event ledger unavailable, processing without dedup", "error", err)
		} else if !first {
			res.Outcome = WebhookDuplicate
			s.deps.Metrics.IncWebhookEvent(evt.Type, res.Outcome)
			logger.Info("duplicate event skipped")
			return res, nil
		}
	}

	outcome, err := s.applyEvent(ctx, evt)
	if err != nil {
		res.Outcome = WebhookFailed
		s.deps.Metrics.IncWebhookEvent(evt.Type, res.Outcome)
		if s.deps.Events != nil {
			if ferr := s.deps.Events.ForgetEvent(ctx, evt.ID); ferr != nil {
				logger.Warn("failed to release event for retry", "error", ferr)
			}
		}
		return res, err
	}

	res.Outcome = outcome
	s.deps.Metrics.IncWebhookEvent(evt.Type, res.Outcome)
	return res, nil
}

func (s *AccountService) applyEvent(ctx context.Context, evt *billing.Event) (string, error) {
	switch evt.Type {
	case billing.EventCheckoutCompleted:
		return s.applyCheckoutCompleted(ctx, evt)
	case billing.EventSubscriptionUpdated, billing.EventSubscriptionDeleted:
		return s.applySubscriptionChange(ctx, evt)
	default:
		s.deps.Logger.Info("unhandled event type", "event_type", evt.Type)
		return WebhookIgnored, nil
	}
}

func (s *AccountService) applyCheckoutCompleted(ctx context.Context, evt *billing.Event) (string, error) {
	logger := s.deps.Logger.With("event_id", evt.ID)
	session := evt.Session
	if session == nil {
		return WebhookIgnored, nil
	}

	plan := session.Metadata[billing.MetadataPlanType]
	cycle := session.Metadata[billing.MetadataBillingCycle]
	if plan == "" || cycle == "" {
		logger.Warn("checkout session missing plan metadata", "session_id", session.ID)
		return WebhookIgnored, nil
	}
	if session.SubscriptionID == "" {
		logger.Warn("checkout session has no subscription", "session_id", session.ID)
		return WebhookIgnored, nil
	}
	if session.Email == "" {
		logger.Warn("checkout session has no customer email", "session_id", session.ID)
		return WebhookIgnored, nil
	}
	if s.deps.Users == nil {
		return "", ErrIdentityNotConfigured
	}
	if s.deps.Subscriptions == nil {
		return "", ErrStorageNotConfigured
	}

	sub, err := s.deps.Payments.GetSubscription(ctx, session.SubscriptionID)
	if err != nil {
		return "", err
	}

	user, err := s.findOrCreateUser(ctx, session.Email, plan)
	if err != nil {
		return "", err
	}

	customerID := session.CustomerID
	if customerID == "" {
		customerID = sub.CustomerID
	}

	record := &model.Subscription{
		UserID:               user.ID,
		StripeCustomerID:     customerID,
		StripeSubscriptionID: session.SubscriptionID,
		PlanType:             model.Plan(plan),
		BillingCycle:         model.BillingCycle(cycle),
		Status:               sub.Status,
		CurrentPeriodStart:   sub.PeriodStart,
		CurrentPeriodEnd:     sub.PeriodEnd,
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
	}
	if err := s.deps.Subscriptions.UpsertSubscription(ctx, record); err != nil {
		return "", err
	}

	logger.Info("subscription recorded", "user_id", user.ID, "subscription_id", session.SubscriptionID, "plan", plan)
	return WebhookProcessed, nil
}

func (s *AccountService) findOrCreateUser(ctx context.Context, email, plan string) (*model.User, error) {
	user, err := s.deps.Users.FindUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, identity.ErrUserNotFound) {
		return nil, err
	}

	tempPassword, err := auth.GeneratePassword(tempPasswordLength)
	if err != nil {
		return nil, err
	}

	user, err = s.deps.Users.CreateUser(ctx, email, tempPassword)
	if err != nil {
		if errors.Is(err, identity.ErrUserExists) {
			return s.deps.Users.FindUserByEmail(ctx, email)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.deps.Logger.Info("user created for subscription", "user_id", user.ID)

	err = s.deps.Mailer.SendWelcome(ctx, notify.Welcome{
		To:           email,
		TempPassword: tempPassword,
		Plan:         plan,
		LoginURL:     s.deps.SiteURL,
	})
	if err != nil {
		// the account exists; the user can still use setup-password
		s.deps.Logger.Error("failed to send welcome email", "user_id", user.ID, "error", err)
	}
	return user, nil
}

func (s *AccountService) applySubscriptionChange(ctx context.Context, evt *billing.Event) (string, error) {
	sub := evt.Subscription
	if sub == nil || sub.ID == "" {
		return WebhookIgnored, nil
	}
	if s.deps.Subscriptions == nil {
		return "", ErrStorageNotConfigured
	}

	status := sub.Status
	if evt.Type == billing.EventSubscriptionDeleted {
		status = model.SubscriptionStatusCanceled
	}

	err := s.deps.Subscriptions.UpdateSubscriptionStatus(ctx, &model.Subscription{
		StripeSubscriptionID: sub.ID,
		Status:               status,
		CurrentPeriodStart:   sub.PeriodStart,
		CurrentPeriodEnd:     sub.PeriodEnd,
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
	})
	if err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			s.deps.Logger.Warn("subscription not tracked", "subscription_id", sub.ID)
			return WebhookIgnored, nil
		}
		return "", err
	}

	s.deps.Logger.Info("subscription updated", "subscription_id", sub.ID, "status", status)
	return WebhookProcessed, nil
}
