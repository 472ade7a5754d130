package billing

import (
	"strings"
	"time"

	"github.com/MarcoHauser/LancerDesk/app/models"
)

// MapSubscriptionStatus maps a provider subscription status to the local
// canonical billing status. Anything outside the known set counts as
// canceled.
func MapSubscriptionStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "trialing":
		return models.SubscriptionStatusTrial
	case "active":
		return models.SubscriptionStatusActive
	case "past_due":
		return models.SubscriptionStatusPastDue
	default:
		return models.SubscriptionStatusCanceled
	}
}

// mapCheckoutStatus maps a freshly checked-out subscription's status. Unlike
// updates, an unrecognized status is stored as the provider reports it
// rather than collapsed to canceled.
func mapCheckoutStatus(status string) string {
	switch s := strings.ToLower(strings.TrimSpace(status)); s {
	case "trialing":
		return models.SubscriptionStatusTrial
	case "active":
		return models.SubscriptionStatusActive
	default:
		return s
	}
}

// MapPlanInterval maps a recurring price interval to a plan identifier:
// yearly prices are the annual plan, everything else bills monthly.
func MapPlanInterval(interval string) string {
	if strings.ToLower(strings.TrimSpace(interval)) == "year" {
		return models.PlanAnnual
	}
	return models.PlanMonthly
}

// unixTime converts a provider epoch timestamp to *time.Time, nil when unset.
func unixTime(ts int64) *time.Time {
	if ts <= 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
