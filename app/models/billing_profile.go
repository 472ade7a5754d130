package models

import "time"

// Subscription statuses stored on a billing profile. These are the local
// canonical states, not raw provider states.
const (
	SubscriptionStatusTrial    = "trial"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

const (
	PlanMonthly = "monthly"
	PlanAnnual  = "annual"
)

// BillingProfile holds the canonical billing state for one user. It is
// written exclusively by the billing reconciler; the Stripe customer and
// subscription references, once set, are only cleared by an administrative
// reset or a subscription.deleted event.
type BillingProfile struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	UserID               uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	Status               string     `gorm:"type:varchar(32);not null;default:'trial';index" json:"status"`
	Plan                 string     `gorm:"type:varchar(16);default:null" json:"plan,omitempty"`
	StripeCustomerID     string     `gorm:"type:varchar(191);default:null;index" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string     `gorm:"type:varchar(191);default:null" json:"stripe_subscription_id,omitempty"`
	TrialStartDate       *time.Time `gorm:"type:timestamp;default:null" json:"trial_start_date,omitempty"`
	TrialEndDate         *time.Time `gorm:"type:timestamp;default:null" json:"trial_end_date,omitempty"`
	TrialReminderSentAt  *time.Time `gorm:"type:timestamp;default:null" json:"-"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTrialing reports whether the profile is in an authoritative trial window.
// TrialEndDate only carries meaning while the status is trial.
func (p *BillingProfile) IsTrialing(now time.Time) bool {
	if p == nil || p.Status != SubscriptionStatusTrial || p.TrialEndDate == nil {
		return false
	}
	return now.Before(*p.TrialEndDate)
}
