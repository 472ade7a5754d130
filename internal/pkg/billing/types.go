package billing

import "strings"

// EventKind discriminates the provider event types this service reacts to.
type EventKind string

const (
	EventCheckoutCompleted   EventKind = "checkout.session.completed"
	EventSubscriptionUpdated EventKind = "customer.subscription.updated"
	EventSubscriptionDeleted EventKind = "customer.subscription.deleted"
	// EventIgnored marks any provider event type outside the handled set.
	// Such events are acknowledged and dropped, never interpreted.
	EventIgnored EventKind = "ignored"
)

// Event is a verified, decoded provider event. Exactly one of Checkout or
// Subscription is populated for the handled kinds; ignored events carry only
// the raw type tag.
type Event struct {
	Kind         EventKind
	Type         string
	ID           string
	Checkout     *CheckoutSession
	Subscription *Subscription
}

// CheckoutSession is a minimal representation of a Stripe checkout session,
// from either a webhook payload or an API fetch.
type CheckoutSession struct {
	ID                string            `json:"id"`
	Mode              string            `json:"mode"`
	Status            string            `json:"status"`
	Customer          string            `json:"customer"`
	Subscription      string            `json:"subscription"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

// IsComplete reports whether the hosted checkout flow finished.
func (cs *CheckoutSession) IsComplete() bool {
	return cs != nil && strings.EqualFold(strings.TrimSpace(cs.Status), "complete")
}

// Subscription is a minimal representation of a Stripe subscription.
type Subscription struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	Status            string `json:"status"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	TrialStart        int64  `json:"trial_start"`
	TrialEnd          int64  `json:"trial_end"`
	Items             struct {
		Data []struct {
			Price struct {
				ID        string `json:"id"`
				Recurring struct {
					Interval string `json:"interval"`
				} `json:"recurring"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

// FirstPriceInterval returns the recurring interval of the first priced item,
// or "" when the event carries no price data.
func (s *Subscription) FirstPriceInterval() string {
	for _, item := range s.Items.Data {
		if interval := strings.TrimSpace(item.Price.Recurring.Interval); interval != "" {
			return interval
		}
	}
	return ""
}
