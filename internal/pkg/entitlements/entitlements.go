package entitlements

import (
	"github.com/MarcoHauser/LancerDesk/app/models"
)

// CanUseWorkspace reports whether a billing status still grants access to
// the paid workspace features (uploads, client emails). Past-due accounts
// keep access during the dunning window; only canceled accounts are locked
// out.
func CanUseWorkspace(status string) bool {
	switch status {
	case models.SubscriptionStatusTrial, models.SubscriptionStatusActive, models.SubscriptionStatusPastDue:
		return true
	default:
		return false
	}
}

// ForProfile evaluates a billing profile, treating a missing profile as a
// fresh trial account.
func ForProfile(profile *models.BillingProfile) bool {
	if profile == nil {
		return true
	}
	return CanUseWorkspace(profile.Status)
}
