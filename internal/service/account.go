package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/tpln/gateway/internal/auth"
	"github.com/tpln/gateway/internal/billing"
	"github.com/tpln/gateway/internal/identity"
	"github.com/tpln/gateway/internal/metrics"
	"github.com/tpln/gateway/internal/model"
	"github.com/tpln/gateway/internal/notify"
)

// Account errors.
var (
	ErrPaymentsNotConfigured   = errors.New("payments provider not configured")
	ErrIdentityNotConfigured   = errors.New("auth provider not configured")
	ErrStorageNotConfigured    = errors.New("database not configured")
	ErrSessionIDRequired       = errors.New("session_id is required")
	ErrCheckoutEmailNotFound   = errors.New("email not found in checkout session")
	ErrCredentialsRequired     = errors.New("email and password are required")
	ErrPasswordTooShort        = fmt.Errorf("password must be at least %d characters", auth.MinPasswordLength)
	ErrUserNotFound            = errors.New("user not found")
	ErrPlanRequired            = errors.New("planType and billingCycle are required")
	ErrInvalidPlan             = errors.New("invalid plan or billing cycle")
	ErrWebhookSignatureMissing = errors.New("webhook signature missing")
	ErrInvalidWebhook          = errors.New("invalid webhook payload")
)

const tempPasswordLength = 16

// UserDirectory is the auth provider's admin surface.
type UserDirectory interface {
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateUser(ctx context.Context, email, password string) (*model.User, error)
	UpdatePassword(ctx context.Context, userID, password string) error
}

// SubscriptionStore persists subscriptions.
type SubscriptionStore interface {
	UpsertSubscription(ctx context.Context, sub *model.Subscription) error
	UpdateSubscriptionStatus(ctx context.Context, sub *model.Subscription) error
}

// EventLedger records processed webhook event ids.
type EventLedger interface {
	MarkEventProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	ForgetEvent(ctx context.Context, eventID string) error
}

// PriceResolver maps a plan and cycle to a provider price id, "" when unset.
type PriceResolver func(plan, cycle string) string

// AccountDeps wires an AccountService. Nil providers disable the operations that need them.
type AccountDeps struct {
	Payments      billing.Provider
	Users         UserDirectory
	Subscriptions SubscriptionStore
	Events        EventLedger
	Mailer        notify.Mailer
	Prices        PriceResolver
	SiteURL       string
	Metrics       metrics.Recorder
	Logger        *slog.Logger
}

// AccountService handles checkout, password setup and payment events.
type AccountService struct {
	deps AccountDeps
}

// NewAccountService creates a new AccountService.
func NewAccountService(deps AccountDeps) *AccountService {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoop()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Mailer == nil {
		deps.Mailer = notify.NewLogMailer(deps.Logger)
	}
	if deps.Prices == nil {
		deps.Prices = func(string, string) string { return "" }
	}
	return &AccountService{deps: deps}
}

// CheckoutEmail returns the customer email of a checkout session.
func (s *AccountService) CheckoutEmail(ctx context.Context, sessionID string) (string, error) {
	if s.deps.Payments == nil {
		return "", ErrPaymentsNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", ErrSessionIDRequired
	}

	session, err := s.deps.Payments.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, billing.ErrSessionNotFound) {
			s.deps.Metrics.IncCheckoutLookup("not_found")
			return "", ErrCheckoutEmailNotFound
		}
		s.deps.Metrics.IncCheckoutLookup("error")
		return "", err
	}

	if session.Email == "" {
		s.deps.Metrics.IncCheckoutLookup("not_found")
		return "", ErrCheckoutEmailNotFound
	}

	s.deps.Metrics.IncCheckoutLookup("found")
	return session.Email, nil
}

// SetupPassword sets the password of an existing user found by email.
func (s *AccountService) SetupPassword(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return ErrCredentialsRequired
	}
	if passwordLength(password) < auth.MinPasswordLength {
		return ErrPasswordTooShort
	}
	if s.deps.Users == nil {
		return ErrIdentityNotConfigured
	}

	user, err := s.deps.Users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			s.deps.Metrics.IncPasswordSetup("not_found")
			return ErrUserNotFound
		}
		s.deps.Metrics.IncPasswordSetup("error")
		return err
	}

	if err := s.deps.Users.UpdatePassword(ctx, user.ID, password); err != nil {
		s.deps.Metrics.IncPasswordSetup("error")
		if errors.Is(err, identity.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	s.deps.Metrics.IncPasswordSetup("success")
	s.deps.Logger.Info("password created", "user_id", user.ID)
	return nil
}

// passwordLength counts UTF-16 code units, the unit browsers and the auth provider use.
func passwordLength(password string) int {
	return len(utf16.Encode([]rune(password)))
}

// CheckoutInput defines input for creating a checkout session.
type CheckoutInput struct {
	PlanType     string
	BillingCycle string
	Origin       string
	Referer      string
}

// CheckoutResult is a created checkout session.
type CheckoutResult struct {
	SessionID string
	URL       string
}

// CreateCheckoutSession starts a subscription checkout for a plan.
func (s *AccountService) CreateCheckoutSession(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if s.deps.Payments == nil {
		return nil, ErrPaymentsNotConfigured
	}
	if input.PlanType == "" || input.BillingCycle == "" {
		return nil, ErrPlanRequired
	}

	plan := model.Plan(input.PlanType)
	cycle := model.BillingCycle(input.BillingCycle)
	if !plan.IsValid() || !cycle.IsValid() {
		return nil, ErrInvalidPlan
	}
	priceID := s.deps.Prices(string(plan), string(cycle))
	if priceID == "" {
		return nil, ErrInvalidPlan
	}

	origin := s.checkoutOrigin(input.Origin, input.Referer)
	session, err := s.deps.Payments.CreateCheckoutSession(ctx, billing.CheckoutRequest{
		PriceID:      priceID,
		PlanType:     string(plan),
		BillingCycle: string(cycle),
		SuccessURL:   origin + "/?success=true&session_id={CHECKOUT_SESSION_ID}&setup_password=true",
		CancelURL:    origin + "/?canceled=true",
	})
	if err != nil {
		return nil, err
	}

	s.deps.Metrics.IncCheckoutSessionCreated()
	return &CheckoutResult{SessionID: session.ID, URL: session.URL}, nil
}

// checkoutOrigin prefers Origin, then the scheme and host of Referer, then the site URL.
func (s *AccountService) checkoutOrigin(origin, referer string) string {
	if o := strings.TrimRight(strings.TrimSpace(origin), "/"); o != "" && o != "null" {
		return o
	}
	if referer != "" {
		if u, err := url.Parse(referer); err == nil && u.Scheme != "" && u.Host != "" {
			return u.Scheme + "://" + u.Host
		}
	}
	return strings.TrimRight(s.deps.SiteURL, "/")
}
