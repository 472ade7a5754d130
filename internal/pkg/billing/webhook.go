package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82/webhook"
)

var (
	// ErrInvalidSignature means the payload did not verify against the
	// webhook secret. The request must be rejected without touching state.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrMalformedPayload means the signature verified but the event body
	// could not be decoded into a known envelope.
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

// VerifyWebhook authenticates a raw provider payload against the signature
// header and decodes it into a typed event. The payload must be the exact
// bytes received on the wire; signatures are computed over the raw body, so
// verifying a re-serialized JSON document can never succeed.
func VerifyWebhook(payload []byte, signatureHeader, secret string) (*Event, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("webhook secret is required")
	}

	stripeEvent, err := webhook.ConstructEventWithOptions(payload, signatureHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	event := &Event{
		Type: string(stripeEvent.Type),
		ID:   stripeEvent.ID,
	}

	switch stripeEvent.Type {
	case "checkout.session.completed":
		var session CheckoutSession
		if err := json.Unmarshal(stripeEvent.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("%w: decode checkout.session: %v", ErrMalformedPayload, err)
		}
		event.Kind = EventCheckoutCompleted
		event.Checkout = &session

	case "customer.subscription.updated":
		var sub Subscription
		if err := json.Unmarshal(stripeEvent.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: decode subscription: %v", ErrMalformedPayload, err)
		}
		event.Kind = EventSubscriptionUpdated
		event.Subscription = &sub

	case "customer.subscription.deleted":
		var sub Subscription
		if err := json.Unmarshal(stripeEvent.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: decode subscription: %v", ErrMalformedPayload, err)
		}
		event.Kind = EventSubscriptionDeleted
		event.Subscription = &sub

	default:
		event.Kind = EventIgnored
	}

	return event, nil
}
