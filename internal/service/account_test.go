package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpln/gateway/internal/billing"
	"github.com/tpln/gateway/internal/identity"
	"github.com/tpln/gateway/internal/metrics"
	"github.com/tpln/gateway/internal/model"
	"github.com/tpln/gateway/internal/notify"
	"github.com/tpln/gateway/internal/repository"
)

type fakePayments struct {
	sessions      map[string]*billing.CheckoutSession
	subscriptions map[string]*billing.Subscription
	event         *billing.Event
	parseErr      error
	created       []billing.CheckoutRequest
}

func (f *fakePayments) GetCheckoutSession(ctx context.Context, id string) (*billing.CheckoutSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, billing.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakePayments) CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutSession, error) {
	f.created = append(f.created, req)
	return &billing.CheckoutSession{ID: "cs_new", URL: "https://checkout.example/cs_new"}, nil
}

func (f *fakePayments) GetSubscription(ctx context.Context, id string) (*billing.Subscription, error) {
	s, ok := f.subscriptions[id]
	if !ok {
		return nil, errors.New("no such subscription")
	}
	return s, nil
}

func (f *fakePayments) ParseWebhook(payload []byte, signature string) (*billing.Event, error) {
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	return f.event, nil
}

type fakeUsers struct {
	users     []model.User
	passwords map[string]string
	createErr error
}

func (f *fakeUsers) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	for i := range f.users {
		if f.users[i].HasEmail(email) {
			return &f.users[i], nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (f *fakeUsers) CreateUser(ctx context.Context, email, password string) (*model.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	u := model.User{ID: "new-user", Email: email}
	f.users = append(f.users, u)
	f.passwords[u.ID] = password
	return &u, nil
}

func (f *fakeUsers) UpdatePassword(ctx context.Context, userID, password string) error {
	f.passwords[userID] = password
	return nil
}

type fakeSubs struct {
	upserted []*model.Subscription
	updated  []*model.Subscription
	missing  bool
}

func (f *fakeSubs) UpsertSubscription(ctx context.Context, sub *model.Subscription) error {
	f.upserted = append(f.upserted, sub)
	return nil
}

func (f *fakeSubs) UpdateSubscriptionStatus(ctx context.Context, sub *model.Subscription) error {
	if f.missing {
		return repository.ErrSubscriptionNotFound
	}
	f.updated = append(f.updated, sub)
	return nil
}

type fakeLedger struct {
	seen      map[string]bool
	forgotten []string
}

func (f *fakeLedger) MarkEventProcessed(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if f.seen[id] {
		return false, nil
	}
	f.seen[id] = true
	return true, nil
}

func (f *fakeLedger) ForgetEvent(ctx context.Context, id string) error {
	delete(f.seen, id)
	f.forgotten = append(f.forgotten, id)
	return nil
}

type fakeMailer struct {
	sent []notify.Welcome
}

func (f *fakeMailer) SendWelcome(ctx context.Context, msg notify.Welcome) error {
	f.sent = append(f.sent, msg)
	return nil
}

type accountFixture struct {
	svc      *AccountService
	payments *fakePayments
	users    *fakeUsers
	subs     *fakeSubs
	ledger   *fakeLedger
	mailer   *fakeMailer
	metrics  *metrics.InMemoryRecorder
}

func newAccountFixture() *accountFixture {
	f := &accountFixture{
		payments: &fakePayments{
			sessions:      map[string]*billing.CheckoutSession{},
			subscriptions: map[string]*billing.Subscription{},
		},
		users:   &fakeUsers{passwords: map[string]string{}},
		subs:    &fakeSubs{},
		ledger:  &fakeLedger{seen: map[string]bool{}},
		mailer:  &fakeMailer{},
		metrics: metrics.NewInMemory(),
	}
	f.svc = NewAccountService(AccountDeps{
		Payments:      f.payments,
		Users:         f.users,
		Subscriptions: f.subs,
		Events:        f.ledger,
		Mailer:        f.mailer,
		Prices: func(plan, cycle string) string {
			if plan == "premium" && cycle == "monthly" {
				return "price_pm"
			}
			return ""
		},
		SiteURL: "https://site.example",
		Metrics: f.metrics,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

func TestCheckoutEmail(t *testing.T) {
	f := newAccountFixture()
	f.payments.sessions["cs_1"] = &billing.CheckoutSession{ID: "cs_1", Email: "buyer@example.com"}
	f.payments.sessions["cs_2"] = &billing.CheckoutSession{ID: "cs_2"}
	ctx := context.Background()

	email, err := f.svc.CheckoutEmail(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", email)

	_, err = f.svc.CheckoutEmail(ctx, "")
	assert.ErrorIs(t, err, ErrSessionIDRequired)

	_, err = f.svc.CheckoutEmail(ctx, "cs_2")
	assert.ErrorIs(t, err, ErrCheckoutEmailNotFound)

	_, err = f.svc.CheckoutEmail(ctx, "cs_missing")
	assert.ErrorIs(t, err, ErrCheckoutEmailNotFound)

	snap := f.metrics.Snapshot()
	assert.EqualValues(t, 1, snap.CheckoutLookups["found"])
	assert.EqualValues(t, 2, snap.CheckoutLookups["not_found"])
}

func TestCheckoutEmail_NotConfigured(t *testing.T) {
	svc := NewAccountService(AccountDeps{})
	_, err := svc.CheckoutEmail(context.Background(), "cs_1")
	assert.ErrorIs(t, err, ErrPaymentsNotConfigured)
}

func TestSetupPassword(t *testing.T) {
	f := newAccountFixture()
	f.users.users = []model.User{{ID: "u1", Email: "Trader@Example.com"}}
	ctx := context.Background()

	require.NoError(t, f.svc.SetupPassword(ctx, "trader@example.com", "secret1"))
	assert.Equal(t, "secret1", f.users.passwords["u1"])

	assert.ErrorIs(t, f.svc.SetupPassword(ctx, "", "secret1"), ErrCredentialsRequired)
	assert.ErrorIs(t, f.svc.SetupPassword(ctx, "trader@example.com", ""), ErrCredentialsRequired)
	assert.ErrorIs(t, f.svc.SetupPassword(ctx, "trader@example.com", "12345"), ErrPasswordTooShort)
	assert.ErrorIs(t, f.svc.SetupPassword(ctx, "nobody@example.com", "secret1"), ErrUserNotFound)

	snap := f.metrics.Snapshot()
	assert.EqualValues(t, 1, snap.PasswordSetups["success"])
	assert.EqualValues(t, 1, snap.PasswordSetups["not_found"])
}

func TestSetupPassword_LengthInCharacters(t *testing.T) {
	f := newAccountFixture()
	f.users.users = []model.User{{ID: "u1", Email: "trader@example.com"}}
	ctx := context.Background()

	// 6 bytes, 3 characters.
	assert.ErrorIs(t, f.svc.SetupPassword(ctx, "trader@example.com", "ééé"), ErrPasswordTooShort)
	// Astral characters count twice, as in the browser.
	require.NoError(t, f.svc.SetupPassword(ctx, "trader@example.com", "😀😀😀"))
	require.NoError(t, f.svc.SetupPassword(ctx, "trader@example.com", "élodie"))
	assert.Equal(t, "élodie", f.users.passwords["u1"])
}

func TestPasswordLength(t *testing.T) {
	tests := map[string]int{"": 0, "abc": 3, "ééé": 3, "😀": 2, "a😀b": 4}
	for in, want := range tests {
		assert.Equal(t, want, passwordLength(in), in)
	}
}

func TestCreateCheckoutSession(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()

	res, err := f.svc.CreateCheckoutSession(ctx, CheckoutInput{PlanType: "premium", BillingCycle: "monthly", Origin: "https://app.example/"})
	require.NoError(t, err)
	assert.Equal(t, &CheckoutResult{SessionID: "cs_new", URL: "https://checkout.example/cs_new"}, res)

	require.Len(t, f.payments.created, 1)
	req := f.payments.created[0]
	assert.Equal(t, "price_pm", req.PriceID)
	assert.Equal(t, "https://app.example/?success=true&session_id={CHECKOUT_SESSION_ID}&setup_password=true", req.SuccessURL)
	assert.Equal(t, "https://app.example/?canceled=true", req.CancelURL)

	_, err = f.svc.CreateCheckoutSession(ctx, CheckoutInput{PlanType: "premium"})
	assert.ErrorIs(t, err, ErrPlanRequired)
	_, err = f.svc.CreateCheckoutSession(ctx, CheckoutInput{PlanType: "gold", BillingCycle: "monthly"})
	assert.ErrorIs(t, err, ErrInvalidPlan)
	_, err = f.svc.CreateCheckoutSession(ctx, CheckoutInput{PlanType: "basic", BillingCycle: "yearly"})
	assert.ErrorIs(t, err, ErrInvalidPlan, "unconfigured price")
}

func TestCheckoutOrigin(t *testing.T) {
	f := newAccountFixture()

	assert.Equal(t, "https://a.example", f.svc.checkoutOrigin("https://a.example", "https://b.example/page"))
	assert.Equal(t, "https://b.example", f.svc.checkoutOrigin("", "https://b.example/page?x=1"))
	assert.Equal(t, "https://site.example", f.svc.checkoutOrigin("null", "not a url"))
}

func checkoutEvent(id string) *billing.Event {
	return &billing.Event{
		ID:   id,
		Type: billing.EventCheckoutCompleted,
		Session: &billing.CheckoutSession{
			ID:             "cs_1",
			Email:          "buyer@example.com",
			CustomerID:     "cus_1",
			SubscriptionID: "sub_1",
			Metadata:       map[string]string{"plan_type": "premium", "billing_cycle": "yearly"},
		},
	}
}

func TestHandleWebhook_CheckoutCreatesUser(t *testing.T) {
	f := newAccountFixture()
	f.payments.event = checkoutEvent("evt_1")
	f.payments.subscriptions["sub_1"] = &billing.Subscription{ID: "sub_1", Status: "active", CancelAtPeriodEnd: false}

	res, err := f.svc.HandleWebhook(context.Background(), []byte("{}"), "t=1,v1=x")
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, res.Outcome)

	require.Len(t, f.users.users, 1)
	assert.Equal(t, "buyer@example.com", f.users.users[0].Email)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, f.users.passwords["new-user"], f.mailer.sent[0].TempPassword)
	assert.Len(t, f.mailer.sent[0].TempPassword, tempPasswordLength)

	require.Len(t, f.subs.upserted, 1)
	sub := f.subs.upserted[0]
	assert.Equal(t, "new-user", sub.UserID)
	assert.Equal(t, "sub_1", sub.StripeSubscriptionID)
	assert.Equal(t, model.PlanPremium, sub.PlanType)
	assert.Equal(t, model.CycleYearly, sub.BillingCycle)
	assert.Equal(t, "active", sub.Status)
}

func TestHandleWebhook_ExistingUserGetsNoEmail(t *testing.T) {
	f := newAccountFixture()
	f.users.users = []model.User{{ID: "u1", Email: "BUYER@example.com"}}
	f.payments.event = checkoutEvent("evt_1")
	f.payments.subscriptions["sub_1"] = &billing.Subscription{ID: "sub_1", Status: "active"}

	_, err := f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig")
	require.NoError(t, err)

	assert.Empty(t, f.mailer.sent)
	require.Len(t, f.subs.upserted, 1)
	assert.Equal(t, "u1", f.subs.upserted[0].UserID)
}

func TestHandleWebhook_Duplicate(t *testing.T) {
	f := newAccountFixture()
	f.payments.event = checkoutEvent("evt_1")
	f.payments.subscriptions["sub_1"] = &billing.Subscription{ID: "sub_1", Status: "active"}

	_, err := f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig")
	require.NoError(t, err)

	res, err := f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig")
	require.NoError(t, err)
	assert.Equal(t, WebhookDuplicate, res.Outcome)
	assert.Len(t, f.subs.upserted, 1)
}

func TestHandleWebhook_FailureReleasesEvent(t *testing.T) {
	f := newAccountFixture()
	f.payments.event = checkoutEvent("evt_1")
	f.payments.subscriptions["sub_1"] = &billing.Subscription{ID: "sub_1", Status: "active"}
	f.users.createErr = errors.New("provider down")

	res, err := f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig")
	require.Error(t, err)
	assert.Equal(t, WebhookFailed, res.Outcome)
	assert.Equal(t, []string{"evt_1"}, f.ledger.forgotten)
	assert.False(t, f.ledger.seen["evt_1"])
}

func TestHandleWebhook_IncompleteCheckoutIgnored(t *testing.T) {
	f := newAccountFixture()
	evt := checkoutEvent("evt_1")
	evt.Session.Metadata = nil
	f.payments.event = evt

	res, err := f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig")
	require.NoError(t, err)
	assert.Equal(t, WebhookIgnored, res.Outcome)
	assert.Empty(t, f.subs.upserted)
}

func TestHandleWebhook_SubscriptionDeleted(t *testing.T) {
	f := newAccountFixture()
	end := time.Unix(1702592000, 0).UTC()
	f.payments.event = &billing.Event{
		ID:           "evt_2",
		Type:         billing.EventSubscriptionDeleted,
		Subscription: &billing.Subscription{ID: "sub_1", Status: "active", PeriodEnd: end, CancelAtPeriodEnd: true},
	}

	res, err := f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig")
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, res.Outcome)

	require.Len(t, f.subs.updated, 1)
	assert.Equal(t, model.SubscriptionStatusCanceled, f.subs.updated[0].Status)
	assert.Equal(t, end, f.subs.updated[0].CurrentPeriodEnd)
	assert.True(t, f.subs.updated[0].CancelAtPeriodEnd)
}

func TestHandleWebhook_UntrackedSubscriptionIgnored(t *testing.T) {
	f := newAccountFixture()
	f.subs.missing = true
	f.payments.event = &billing.Event{
		ID:           "evt_3",
		Type:         billing.EventSubscriptionUpdated,
		Subscription: &billing.Subscription{ID: "sub_x", Status: "past_due"},
	}

	res, err := f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig")
	require.NoError(t, err)
	assert.Equal(t, WebhookIgnored, res.Outcome)
}

func TestHandleWebhook_Rejections(t *testing.T) {
	f := newAccountFixture()

	_, err := f.svc.HandleWebhook(context.Background(), []byte("{}"), "")
	assert.ErrorIs(t, err, ErrWebhookSignatureMissing)

	f.payments.parseErr = billing.ErrWebhookNotConfigured
	_, err = f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig")
	assert.ErrorIs(t, err, ErrWebhookSignatureMissing)

	f.payments.parseErr = billing.ErrInvalidSignature
	_, err = f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig")
	assert.ErrorIs(t, err, ErrInvalidWebhook)
}

func TestHandleWebhook_UnhandledType(t *testing.T) {
	f := newAccountFixture()
	f.payments.event = &billing.Event{ID: "evt_4", Type: "invoice.paid"}

	res, err := f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig")
	require.NoError(t, err)
	assert.Equal(t, WebhookIgnored, res.Outcome)
	assert.EqualValues(t, 1, f.metrics.Snapshot().WebhookEvents["invoice.paid/ignored"])
}
