package controllers

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"

	"github.com/MarcoHauser/LancerDesk/app/models"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/billing"
)

const webhookTestSecret = "whsec_handler_test"

type fakeSubFetcher struct {
	sub *billing.Subscription
	err error
}

func (f *fakeSubFetcher) GetSubscription(string) (*billing.Subscription, error) {
	return f.sub, f.err
}

type billingFixture struct {
	app  *fiber.App
	repo *memBillingRepo
}

func newBillingFixture(t *testing.T, fetcher billing.SubscriptionFetcher, userID uint) *billingFixture {
	t.Helper()
	repo := newMemBillingRepo()
	svc := billing.NewService(repo, fetcher, nil)
	ctrl := NewBillingController(svc, repo, nil)

	app := fiber.New()
	app.Post("/api/v1/billing/webhook", ctrl.HandleStripeWebhook)
	if userID != 0 {
		asUser(app, userID, "tester")
	}
	app.Post("/api/v1/billing/checkout", ctrl.HandleCreateCheckoutSession)
	app.Post("/api/v1/billing/portal", ctrl.HandleCreatePortalSession)
	app.Post("/api/v1/billing/checkout/sync", ctrl.HandleCheckoutSync)
	return &billingFixture{app: app, repo: repo}
}

func postWebhook(t *testing.T, app *fiber.App, payload []byte, header string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/billing/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if header != "" {
		req.Header.Set("Stripe-Signature", header)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func signWith(t *testing.T, payload, secret string) ([]byte, string) {
	t.Helper()
	signed := stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return signed.Payload, signed.Header
}

const checkoutCompletedPayload = `{
	"id": "evt_checkout_1",
	"object": "event",
	"type": "checkout.session.completed",
	"data": {
		"object": {
			"id": "cs_test_1",
			"mode": "subscription",
			"status": "complete",
			"customer": "cus_abc",
			"subscription": "sub_abc",
			"client_reference_id": "42"
		}
	}
}`

func trialingAnnualSub() *billing.Subscription {
	sub := &billing.Subscription{
		ID:         "sub_abc",
		Customer:   "cus_abc",
		Status:     "trialing",
		TrialStart: time.Now().Unix(),
		TrialEnd:   time.Now().Add(14 * 24 * time.Hour).Unix(),
	}
	sub.Items.Data = make([]struct {
		Price struct {
			ID        string `json:"id"`
			Recurring struct {
				Interval string `json:"interval"`
			} `json:"recurring"`
		} `json:"price"`
	}, 1)
	sub.Items.Data[0].Price.ID = "price_annual"
	sub.Items.Data[0].Price.Recurring.Interval = "year"
	return sub
}

func TestWebhookCheckoutCompletedCreatesProfile(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", webhookTestSecret)
	f := newBillingFixture(t, &fakeSubFetcher{sub: trialingAnnualSub()}, 0)

	payload, header := signWith(t, checkoutCompletedPayload, webhookTestSecret)
	resp := postWebhook(t, f.app, payload, header)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["received"])

	profile := f.repo.profiles[42]
	require.NotNil(t, profile)
	assert.Equal(t, "cus_abc", profile.StripeCustomerID)
	assert.Equal(t, "sub_abc", profile.StripeSubscriptionID)
	assert.Equal(t, models.SubscriptionStatusTrial, profile.Status)
	assert.Equal(t, models.PlanAnnual, profile.Plan)
	require.NotNil(t, profile.TrialEndDate)
	assert.True(t, f.repo.onboarded[42])
}

func TestWebhookInvalidSignatureRejected(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", webhookTestSecret)
	f := newBillingFixture(t, &fakeSubFetcher{sub: trialingAnnualSub()}, 0)

	payload, header := signWith(t, checkoutCompletedPayload, "whsec_wrong_secret")
	resp := postWebhook(t, f.app, payload, header)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "invalid_signature", body["error"])
	assert.Zero(t, f.repo.upserts)
}

func TestWebhookMissingSignatureRejected(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", webhookTestSecret)
	f := newBillingFixture(t, nil, 0)

	resp := postWebhook(t, f.app, []byte(checkoutCompletedPayload), "")

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, f.repo.upserts)
}

func TestWebhookWithoutConfiguredSecretFails(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")
	f := newBillingFixture(t, nil, 0)

	payload, header := signWith(t, checkoutCompletedPayload, webhookTestSecret)
	resp := postWebhook(t, f.app, payload, header)

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "webhook_not_configured", body["error"])
}

func TestWebhookUnknownEventAcknowledged(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", webhookTestSecret)
	f := newBillingFixture(t, nil, 0)

	payload, header := signWith(t, `{
		"id": "evt_other",
		"object": "event",
		"type": "invoice.paid",
		"data": {"object": {"id": "in_1"}}
	}`, webhookTestSecret)
	resp := postWebhook(t, f.app, payload, header)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["received"])
	assert.Zero(t, f.repo.upserts)
}

func TestWebhookSubscriptionDeletedCancelsProfile(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", webhookTestSecret)
	f := newBillingFixture(t, nil, 0)
	f.repo.profiles[42] = &models.BillingProfile{
		UserID:               42,
		StripeCustomerID:     "cus_abc",
		StripeSubscriptionID: "sub_abc",
		Status:               models.SubscriptionStatusActive,
		Plan:                 models.PlanMonthly,
	}

	payload, header := signWith(t, `{
		"id": "evt_del_1",
		"object": "event",
		"type": "customer.subscription.deleted",
		"data": {
			"object": {
				"id": "sub_abc",
				"customer": "cus_abc",
				"status": "canceled"
			}
		}
	}`, webhookTestSecret)
	resp := postWebhook(t, f.app, payload, header)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	profile := f.repo.profiles[42]
	require.NotNil(t, profile)
	assert.Equal(t, models.SubscriptionStatusCanceled, profile.Status)
	assert.Empty(t, profile.StripeSubscriptionID)
	// The customer link survives cancellation for re-subscription.
	assert.Equal(t, "cus_abc", profile.StripeCustomerID)
}

func TestWebhookReconcileFailureReturns500(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", webhookTestSecret)
	f := newBillingFixture(t, &fakeSubFetcher{err: errors.New("provider down")}, 0)

	payload, header := signWith(t, checkoutCompletedPayload, webhookTestSecret)
	resp := postWebhook(t, f.app, payload, header)

	// 500 tells the provider to retry the delivery.
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "reconcile_failed", body["error"])
}

func TestWebhookRedeliveryConverges(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", webhookTestSecret)
	f := newBillingFixture(t, &fakeSubFetcher{sub: trialingAnnualSub()}, 0)

	payload, header := signWith(t, checkoutCompletedPayload, webhookTestSecret)
	for i := 0; i < 3; i++ {
		resp := postWebhook(t, f.app, payload, header)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	profile := f.repo.profiles[42]
	require.NotNil(t, profile)
	assert.Equal(t, models.SubscriptionStatusTrial, profile.Status)
	assert.Equal(t, "sub_abc", profile.StripeSubscriptionID)
}

func TestBillingEndpointsRequireAuth(t *testing.T) {
	f := newBillingFixture(t, nil, 0)

	for _, path := range []string{
		"/api/v1/billing/checkout",
		"/api/v1/billing/portal",
		"/api/v1/billing/checkout/sync",
	} {
		resp := postJSON(t, f.app, path, fiber.Map{})
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestCheckoutRequiresPriceID(t *testing.T) {
	f := newBillingFixture(t, nil, 7)
	resp := postJSON(t, f.app, "/api/v1/billing/checkout", fiber.Map{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCheckoutWithoutProviderConfigured(t *testing.T) {
	f := newBillingFixture(t, nil, 7)
	resp := postJSON(t, f.app, "/api/v1/billing/checkout", fiber.Map{"price_id": "price_monthly"})
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "billing_not_configured", body["error"])
}

func TestPortalWithoutBillingAccount(t *testing.T) {
	f := newBillingFixture(t, nil, 7)
	resp := postJSON(t, f.app, "/api/v1/billing/portal", fiber.Map{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "no_billing_account", body["error"])
}

func TestCheckoutSyncRequiresSessionID(t *testing.T) {
	f := newBillingFixture(t, nil, 7)
	resp := postJSON(t, f.app, "/api/v1/billing/checkout/sync", fiber.Map{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
