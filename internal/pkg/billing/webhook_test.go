package billing

import (
	"errors"
	"testing"
	"time"

	stripewebhook "github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func signPayload(t *testing.T, payload string) (body []byte, header string) {
	t.Helper()

	signed := stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return signed.Payload, signed.Header
}

func TestVerifyWebhookDecodesCheckoutCompleted(t *testing.T) {
	payload := `{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_1",
				"mode": "subscription",
				"status": "complete",
				"customer": "cus_123",
				"subscription": "sub_456",
				"client_reference_id": "42",
				"metadata": {"user_id": "42"}
			}
		}
	}`
	body, header := signPayload(t, payload)

	event, err := VerifyWebhook(body, header, testWebhookSecret)
	if err != nil {
		t.Fatalf("VerifyWebhook() error: %v", err)
	}
	if event.Kind != EventCheckoutCompleted {
		t.Fatalf("event kind = %q, want checkout completed", event.Kind)
	}
	if event.Checkout == nil || event.Checkout.ID != "cs_test_1" {
		t.Fatalf("checkout session not decoded: %+v", event.Checkout)
	}
	if event.Checkout.ClientReferenceID != "42" || event.Checkout.Customer != "cus_123" {
		t.Fatalf("checkout fields = %+v", event.Checkout)
	}
	if !event.Checkout.IsComplete() {
		t.Fatalf("expected session to report complete")
	}
}

func TestVerifyWebhookDecodesSubscriptionEvents(t *testing.T) {
	payload := `{
		"id": "evt_2",
		"object": "event",
		"type": "customer.subscription.updated",
		"data": {
			"object": {
				"id": "sub_1",
				"customer": "cus_9",
				"status": "trialing",
				"trial_start": 1760000000,
				"trial_end": 1761300000,
				"items": {"data": [{"price": {"id": "price_annual", "recurring": {"interval": "year"}}}]}
			}
		}
	}`
	body, header := signPayload(t, payload)

	event, err := VerifyWebhook(body, header, testWebhookSecret)
	if err != nil {
		t.Fatalf("VerifyWebhook() error: %v", err)
	}
	if event.Kind != EventSubscriptionUpdated {
		t.Fatalf("event kind = %q", event.Kind)
	}
	sub := event.Subscription
	if sub == nil || sub.ID != "sub_1" || sub.Customer != "cus_9" {
		t.Fatalf("subscription not decoded: %+v", sub)
	}
	if sub.FirstPriceInterval() != "year" {
		t.Fatalf("interval = %q, want year", sub.FirstPriceInterval())
	}
	if sub.TrialEnd != 1761300000 {
		t.Fatalf("trial end = %d", sub.TrialEnd)
	}
}

func TestVerifyWebhookRejectsBadSignature(t *testing.T) {
	payload := `{"id":"evt_3","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`
	body, header := signPayload(t, payload)

	// Tamper with the body after signing.
	tampered := append([]byte(nil), body...)
	tampered[len(tampered)-2] = ' '

	if _, err := VerifyWebhook(tampered, header, testWebhookSecret); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("error = %v, want ErrInvalidSignature", err)
	}
	if _, err := VerifyWebhook(body, "t=1,v1=deadbeef", testWebhookSecret); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("error = %v, want ErrInvalidSignature for junk header", err)
	}
	if _, err := VerifyWebhook(body, header, "whsec_other"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("error = %v, want ErrInvalidSignature for wrong secret", err)
	}
}

func TestVerifyWebhookRejectsMalformedNestedObject(t *testing.T) {
	// Valid envelope and signature, but the nested object cannot decode
	// into a checkout session.
	payload := `{"id":"evt_4","object":"event","type":"checkout.session.completed","data":{"object":["not","a","session"]}}`
	body, header := signPayload(t, payload)

	if _, err := VerifyWebhook(body, header, testWebhookSecret); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("error = %v, want ErrMalformedPayload", err)
	}
}

func TestVerifyWebhookIgnoresUnknownTypes(t *testing.T) {
	payload := `{"id":"evt_5","object":"event","type":"invoice.payment_succeeded","data":{"object":{"id":"in_1"}}}`
	body, header := signPayload(t, payload)

	event, err := VerifyWebhook(body, header, testWebhookSecret)
	if err != nil {
		t.Fatalf("VerifyWebhook() error: %v", err)
	}
	if event.Kind != EventIgnored {
		t.Fatalf("event kind = %q, want ignored", event.Kind)
	}
	if event.Type != "invoice.payment_succeeded" {
		t.Fatalf("raw type = %q", event.Type)
	}
	if event.Checkout != nil || event.Subscription != nil {
		t.Fatalf("ignored event should not carry decoded objects")
	}
}

func TestVerifyWebhookRequiresSecret(t *testing.T) {
	if _, err := VerifyWebhook([]byte("{}"), "t=1,v1=aa", "  "); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
