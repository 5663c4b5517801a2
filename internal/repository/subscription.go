package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"

	"github.com/tpln/gateway/internal/model"
)

// ErrSubscriptionNotFound is returned when no row matches a provider subscription id.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// UpsertSubscription inserts or updates a subscription keyed by its provider id.
// A new row gets a ULID; an existing row keeps its id and user.
func (r *Repository) UpsertSubscription(ctx context.Context, sub *model.Subscription) error {
	if sub.StripeSubscriptionID == "" {
		return errors.New("stripe subscription id is required")
	}
	if sub.ID == "" {
		sub.ID = ulid.Make().String()
	}

	query := `
		INSERT INTO subscriptions (
			id, user_id, stripe_customer_id, stripe_subscription_id, plan_type, billing_cycle,
			status, current_period_start, current_period_end, cancel_at_period_end, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (stripe_subscription_id) DO UPDATE SET
			stripe_customer_id   = EXCLUDED.stripe_customer_id,
			plan_type            = EXCLUDED.plan_type,
			billing_cycle        = EXCLUDED.billing_cycle,
			status               = EXCLUDED.status,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end   = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			updated_at           = NOW()
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		sub.ID,
		sub.UserID,
		sub.StripeCustomerID,
		sub.StripeSubscriptionID,
		string(sub.PlanType),
		string(sub.BillingCycle),
		sub.Status,
		nullTime(sub.CurrentPeriodStart),
		nullTime(sub.CurrentPeriodEnd),
		sub.CancelAtPeriodEnd,
	).Scan(&sub.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

// UpdateSubscriptionStatus updates status and period fields for a provider subscription id.
func (r *Repository) UpdateSubscriptionStatus(ctx context.Context, sub *model.Subscription) error {
	query := `
		UPDATE subscriptions
		SET status = $2,
			current_period_start = COALESCE($3, current_period_start),
			current_period_end = COALESCE($4, current_period_end),
			cancel_at_period_end = $5,
			updated_at = NOW()
		WHERE stripe_subscription_id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		sub.StripeSubscriptionID,
		sub.Status,
		nullTime(sub.CurrentPeriodStart),
		nullTime(sub.CurrentPeriodEnd),
		sub.CancelAtPeriodEnd,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// GetSubscriptionByStripeID retrieves a subscription by its provider id.
func (r *Repository) GetSubscriptionByStripeID(ctx context.Context, stripeID string) (*model.Subscription, error) {
	query := `
		SELECT id, user_id, stripe_customer_id, stripe_subscription_id, plan_type, billing_cycle,
			status, current_period_start, current_period_end, cancel_at_period_end
		FROM subscriptions
		WHERE stripe_subscription_id = $1
	`

	var (
		sub         model.Subscription
		plan, cycle string
		start, end  *time.Time
	)
	err := r.pool.QueryRow(ctx, query, stripeID).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.StripeCustomerID,
		&sub.StripeSubscriptionID,
		&plan,
		&cycle,
		&sub.Status,
		&start,
		&end,
		&sub.CancelAtPeriodEnd,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	sub.PlanType = model.Plan(plan)
	sub.BillingCycle = model.BillingCycle(cycle)
	if start != nil {
		sub.CurrentPeriodStart = *start
	}
	if end != nil {
		sub.CurrentPeriodEnd = *end
	}
	return &sub, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
