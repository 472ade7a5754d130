package billing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/MarcoHauser/LancerDesk/app/models"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/mail"
)

var (
	// ErrUserMismatch means a checkout session's embedded user reference
	// does not belong to the caller. Hard authorization failure, never a
	// silent skip.
	ErrUserMismatch = errors.New("checkout session does not belong to this user")
	// ErrSessionNotComplete means the hosted checkout flow has not finished.
	ErrSessionNotComplete = errors.New("checkout session is not complete")
	// ErrMissingUserReference means the session carries no usable user id.
	ErrMissingUserReference = errors.New("checkout session has no user reference")
)

// How far ahead of trial expiry the reminder sweep notifies users.
const trialReminderHorizon = 3 * 24 * time.Hour

// SubscriptionFetcher retrieves subscription detail from the payment
// provider. Satisfied by *Client; tests substitute a fake.
type SubscriptionFetcher interface {
	GetSubscription(id string) (*Subscription, error)
}

// Service reconciles provider subscription lifecycle events into local
// billing profiles. It is the single writer of billing state: handlers feed
// it verified events, and re-delivery of the same event converges to the
// same profile because every write recomputes the full target state from
// the provider's data.
type Service struct {
	repo   Repository
	stripe SubscriptionFetcher
	mailer mail.Mailer
	now    func() time.Time
}

// NewService creates a billing service from injected dependencies. stripe
// and mailer may be nil for flows that do not need them.
func NewService(repo Repository, stripe SubscriptionFetcher, mailer mail.Mailer) *Service {
	return &Service{repo: repo, stripe: stripe, mailer: mailer, now: time.Now}
}

// UserIDFromSession extracts the embedded user reference from a checkout
// session. The id is written redundantly as client_reference_id and as
// metadata; either is accepted.
func UserIDFromSession(cs *CheckoutSession) (uint, error) {
	ref := strings.TrimSpace(cs.ClientReferenceID)
	if ref == "" && cs.Metadata != nil {
		ref = strings.TrimSpace(cs.Metadata["user_id"])
	}
	if ref == "" {
		return 0, ErrMissingUserReference
	}
	id, err := strconv.ParseUint(ref, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad reference %q", ErrMissingUserReference, ref)
	}
	return uint(id), nil
}

// ApplyCheckoutCompletedForUser verifies the session belongs to userID and
// applies it. Used by the post-checkout fallback sync, where the caller is
// an authenticated browser rather than the provider.
func (s *Service) ApplyCheckoutCompletedForUser(ctx context.Context, userID uint, cs *CheckoutSession) error {
	sessionUserID, err := UserIDFromSession(cs)
	if err != nil {
		return err
	}
	if sessionUserID != userID {
		return ErrUserMismatch
	}
	return s.ApplyCheckoutCompleted(ctx, cs)
}

// ApplyCheckoutCompleted reconciles a completed checkout session into the
// owning user's billing profile and marks onboarding complete. Applying the
// same session any number of times converges to the same record: the target
// state is recomputed from the provider each time and written as a whole.
func (s *Service) ApplyCheckoutCompleted(ctx context.Context, cs *CheckoutSession) error {
	userID, err := UserIDFromSession(cs)
	if err != nil {
		return err
	}

	profile, err := s.repo.GetProfileByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup billing profile: %w", err)
	}
	if profile == nil {
		profile = &models.BillingProfile{UserID: userID}
	}

	if customerID := strings.TrimSpace(cs.Customer); customerID != "" {
		profile.StripeCustomerID = customerID
	}

	if subID := strings.TrimSpace(cs.Subscription); subID != "" {
		if s.stripe == nil {
			return errors.New("subscription fetcher not configured")
		}
		sub, err := s.stripe.GetSubscription(subID)
		if err != nil {
			return fmt.Errorf("fetch subscription %s: %w", subID, err)
		}
		profile.StripeSubscriptionID = subID
		profile.Plan = MapPlanInterval(sub.FirstPriceInterval())
		profile.Status = mapCheckoutStatus(sub.Status)
		if ts := unixTime(sub.TrialStart); ts != nil {
			profile.TrialStartDate = ts
		}
		if te := unixTime(sub.TrialEnd); te != nil {
			profile.TrialEndDate = te
		}
	} else {
		// One-time setup without a subscription: the account is simply
		// active on the default plan.
		profile.Status = models.SubscriptionStatusActive
		if profile.Plan == "" {
			profile.Plan = models.PlanMonthly
		}
	}

	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return fmt.Errorf("upsert billing profile: %w", err)
	}
	if err := s.repo.SetOnboardingCompleted(ctx, userID); err != nil {
		return fmt.Errorf("mark onboarding complete: %w", err)
	}
	return nil
}

// ApplySubscriptionUpdated syncs a subscription change into the profile
// linked to the event's customer id. A customer with no local profile is a
// no-op: the webhook has no user context, and unlinked provider customers
// are expected.
func (s *Service) ApplySubscriptionUpdated(ctx context.Context, sub *Subscription) error {
	customerID := strings.TrimSpace(sub.Customer)
	if customerID == "" {
		return errors.New("subscription event missing customer id")
	}

	profile, err := s.repo.GetProfileByCustomerID(ctx, customerID)
	if err != nil {
		return fmt.Errorf("lookup billing profile by customer: %w", err)
	}
	if profile == nil {
		log.Printf("billing: subscription %s for unknown customer %s ignored", sub.ID, customerID)
		return nil
	}

	profile.Status = MapSubscriptionStatus(sub.Status)
	if subID := strings.TrimSpace(sub.ID); subID != "" {
		profile.StripeSubscriptionID = subID
	}
	if interval := sub.FirstPriceInterval(); interval != "" {
		profile.Plan = MapPlanInterval(interval)
	}
	if te := unixTime(sub.TrialEnd); te != nil {
		profile.TrialEndDate = te
	}
	// Never clobber a known trial start with absence.
	if ts := unixTime(sub.TrialStart); ts != nil {
		profile.TrialStartDate = ts
	}

	return s.repo.SaveProfile(ctx, profile)
}

// ApplySubscriptionDeleted cancels the profile linked to the event's
// customer id. The subscription reference is cleared; the customer
// reference is kept so a re-subscription reuses the same customer.
func (s *Service) ApplySubscriptionDeleted(ctx context.Context, sub *Subscription) error {
	customerID := strings.TrimSpace(sub.Customer)
	if customerID == "" {
		return errors.New("subscription event missing customer id")
	}

	profile, err := s.repo.GetProfileByCustomerID(ctx, customerID)
	if err != nil {
		return fmt.Errorf("lookup billing profile by customer: %w", err)
	}
	if profile == nil {
		log.Printf("billing: deletion of %s for unknown customer %s ignored", sub.ID, customerID)
		return nil
	}

	profile.Status = models.SubscriptionStatusCanceled
	profile.StripeSubscriptionID = ""

	return s.repo.SaveProfile(ctx, profile)
}

// ResetBillingProfile is the administrative escape hatch for test/support
// flows: back to trial, external references and plan cleared. It is never
// driven by provider events.
func (s *Service) ResetBillingProfile(ctx context.Context, userID uint) error {
	profile, err := s.repo.GetProfileByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup billing profile: %w", err)
	}
	if profile == nil {
		return nil
	}

	profile.Status = models.SubscriptionStatusTrial
	profile.Plan = ""
	profile.StripeCustomerID = ""
	profile.StripeSubscriptionID = ""

	return s.repo.SaveProfile(ctx, profile)
}

// SendTrialReminders mails every user whose trial ends within the reminder
// horizon and has not been reminded yet. Returns how many reminders went
// out and how many candidates were found.
func (s *Service) SendTrialReminders(ctx context.Context) (sent int, total int, err error) {
	if s.mailer == nil {
		return 0, 0, errors.New("mailer not configured")
	}

	now := s.now()
	targets, err := s.repo.ListTrialReminderTargets(ctx, now, now.Add(trialReminderHorizon))
	if err != nil {
		return 0, 0, fmt.Errorf("list trial reminder targets: %w", err)
	}

	for _, target := range targets {
		if strings.TrimSpace(target.Email) == "" {
			continue
		}
		// The query filters on trial status, but a webhook may have moved
		// the profile on since; re-check before mailing.
		if !target.Profile.IsTrialing(now) {
			continue
		}
		subject := "Your trial is ending soon"
		body := trialReminderBody(target.Name, target.Profile.TrialEndDate)
		if mailErr := s.mailer.Send(target.Email, subject, body); mailErr != nil {
			log.Printf("billing: trial reminder to %s failed: %v", target.Email, mailErr)
			continue
		}
		if markErr := s.repo.MarkTrialReminderSent(ctx, target.Profile.ID, now); markErr != nil {
			log.Printf("billing: marking reminder for profile %d failed: %v", target.Profile.ID, markErr)
		}
		sent++
	}
	return sent, len(targets), nil
}

func trialReminderBody(name string, trialEnd *time.Time) string {
	endText := "soon"
	if trialEnd != nil {
		endText = "on " + trialEnd.Format("January 2, 2006")
	}
	if strings.TrimSpace(name) == "" {
		name = "there"
	}
	return fmt.Sprintf(
		"<p>Hi %s,</p><p>Your trial ends %s. Add a payment method to keep access to your clients, invoices and reviews.</p>",
		name, endText,
	)
}
