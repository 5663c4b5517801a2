package model

import (
	"slices"
	"time"
)

// Plan identifies a subscription offering.
type Plan string

const (
	PlanBasic   Plan = "basic"
	PlanPremium Plan = "premium"
	PlanJournal Plan = "journal"
)

// ValidPlans contains all sellable plans.
var ValidPlans = []Plan{PlanBasic, PlanPremium, PlanJournal}

// IsValid checks if the plan is sellable.
func (p Plan) IsValid() bool {
	return slices.Contains(ValidPlans, p)
}

// BillingCycle is the recurrence of a subscription.
type BillingCycle string

const (
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

// IsValid checks if the billing cycle is supported.
func (c BillingCycle) IsValid() bool {
	return c == CycleMonthly || c == CycleYearly
}

// SubscriptionStatusCanceled is stored when the provider deletes a subscription.
const SubscriptionStatusCanceled = "canceled"

// Subscription mirrors a payments-provider subscription for a platform user.
type Subscription struct {
	ID                   string       `json:"id"`
	UserID               string       `json:"user_id"`
	StripeCustomerID     string       `json:"stripe_customer_id"`
	StripeSubscriptionID string       `json:"stripe_subscription_id"`
	PlanType             Plan         `json:"plan_type"`
	BillingCycle         BillingCycle `json:"billing_cycle"`
	Status               string       `json:"status"`
	CurrentPeriodStart   time.Time    `json:"current_period_start"`
	CurrentPeriodEnd     time.Time    `json:"current_period_end"`
	CancelAtPeriodEnd    bool         `json:"cancel_at_period_end"`
}

// IsActive reports whether the subscription grants access.
func (s *Subscription) IsActive() bool {
	return s.Status == "active" || s.Status == "trialing"
}
