package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/MarcoHauser/LancerDesk/internal/pkg/billing"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/env"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/usercontext"
)

// BillingController handles checkout, portal, webhook and fallback-sync
// endpoints. All billing state writes go through the billing service.
type BillingController struct {
	svc    *billing.Service
	repo   billing.Repository
	stripe *billing.Client
}

// NewBillingController creates a billing controller from injected
// dependencies. stripe may be nil when the provider is not configured; the
// affected endpoints then fail with a 5xx at first use.
func NewBillingController(svc *billing.Service, repo billing.Repository, stripeClient *billing.Client) *BillingController {
	return &BillingController{svc: svc, repo: repo, stripe: stripeClient}
}

// HandleCreateCheckoutSession starts a hosted subscription checkout and
// returns its URL.
func (bc *BillingController) HandleCreateCheckoutSession(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	if !user.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	var req struct {
		PriceID    string `json:"price_id"`
		SuccessURL string `json:"success_url"`
		CancelURL  string `json:"cancel_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Invalid JSON body"})
	}
	if strings.TrimSpace(req.PriceID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "price_id is required"})
	}
	if bc.stripe == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "billing_not_configured", "message": "Payment provider is not configured"})
	}

	baseURL := publicBaseURL()
	successURL := strings.TrimSpace(req.SuccessURL)
	if successURL == "" {
		successURL = baseURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}"
	}
	cancelURL := strings.TrimSpace(req.CancelURL)
	if cancelURL == "" {
		cancelURL = baseURL + "/billing/canceled"
	}

	url, err := bc.stripe.CreateCheckoutSession(user.UserID, req.PriceID, successURL, cancelURL)
	if err != nil {
		fiberlog.Errorf("create checkout session for user %d: %v", user.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "checkout_failed", "message": "Could not start checkout"})
	}

	return c.JSON(fiber.Map{"url": url})
}

// HandleCreatePortalSession opens the provider's billing portal for the
// user's existing customer record.
func (bc *BillingController) HandleCreatePortalSession(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	if !user.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	var req struct {
		ReturnURL string `json:"return_url"`
	}
	// Body is optional here.
	_ = c.BodyParser(&req)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	profile, err := bc.repo.GetProfileByUserID(ctx, user.UserID)
	if err != nil {
		fiberlog.Errorf("load billing profile for user %d: %v", user.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load billing profile"})
	}
	if profile == nil || strings.TrimSpace(profile.StripeCustomerID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no_billing_account", "message": "No billing account exists for this user"})
	}
	if bc.stripe == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "billing_not_configured", "message": "Payment provider is not configured"})
	}

	returnURL := strings.TrimSpace(req.ReturnURL)
	if returnURL == "" {
		returnURL = publicBaseURL() + "/settings/billing"
	}

	url, err := bc.stripe.CreatePortalSession(profile.StripeCustomerID, returnURL)
	if err != nil {
		fiberlog.Errorf("create portal session for user %d: %v", user.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "portal_failed", "message": "Could not open billing portal"})
	}

	return c.JSON(fiber.Map{"url": url})
}

// HandleCheckoutSync is the post-checkout fallback used when the success
// redirect arrives before (or instead of) the webhook. It re-fetches the
// session from the provider and runs the same reconciliation the webhook
// would.
func (bc *BillingController) HandleCheckoutSync(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	if !user.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Invalid JSON body"})
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "session_id is required"})
	}
	if bc.stripe == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "billing_not_configured", "message": "Payment provider is not configured"})
	}

	session, err := bc.stripe.GetCheckoutSession(req.SessionID)
	if err != nil {
		fiberlog.Errorf("fetch checkout session %s: %v", req.SessionID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "session_fetch_failed", "message": "Could not load checkout session"})
	}
	if !session.IsComplete() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "session_not_complete", "message": "Checkout has not completed"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := bc.svc.ApplyCheckoutCompletedForUser(ctx, user.UserID, session); err != nil {
		switch {
		case errors.Is(err, billing.ErrUserMismatch):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Checkout session belongs to a different user"})
		case errors.Is(err, billing.ErrMissingUserReference):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_session", "message": "Checkout session has no user reference"})
		default:
			fiberlog.Errorf("checkout sync for user %d: %v", user.UserID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "sync_failed", "message": "Could not synchronize billing state"})
		}
	}

	return c.JSON(fiber.Map{"ok": true})
}

// HandleStripeWebhook verifies and applies provider lifecycle events.
// Reconciliation failures return 500 so the provider retries the delivery.
func (bc *BillingController) HandleStripeWebhook(c *fiber.Ctx) error {
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")
	if secret == "" {
		fiberlog.Error("STRIPE_WEBHOOK_SECRET not set; rejecting webhook")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_not_configured"})
	}

	rawBody := append([]byte(nil), c.BodyRaw()...)
	event, err := billing.VerifyWebhook(rawBody, c.Get("Stripe-Signature"), secret)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	switch event.Kind {
	case billing.EventCheckoutCompleted:
		err = bc.svc.ApplyCheckoutCompleted(ctx, event.Checkout)
	case billing.EventSubscriptionUpdated:
		err = bc.svc.ApplySubscriptionUpdated(ctx, event.Subscription)
	case billing.EventSubscriptionDeleted:
		err = bc.svc.ApplySubscriptionDeleted(ctx, event.Subscription)
	default:
		// Unknown event types are acknowledged so the provider stops
		// redelivering them.
		fiberlog.Debugf("ignoring webhook event type %s", event.Type)
	}
	if err != nil {
		fiberlog.Errorf("webhook %s (%s): %v", event.ID, event.Type, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "reconcile_failed"})
	}

	return c.JSON(fiber.Map{"received": true})
}

// HandleTrialReminderSweep runs the trial expiry reminder sweep. Intended to
// be triggered by a scheduler, not end users.
func (bc *BillingController) HandleTrialReminderSweep(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sent, total, err := bc.svc.SendTrialReminders(ctx)
	if err != nil {
		fiberlog.Errorf("trial reminder sweep: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "sweep_failed", "message": "Trial reminder sweep failed"})
	}
	return c.JSON(fiber.Map{"sent": sent, "total": total})
}
