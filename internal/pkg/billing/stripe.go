package billing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MarcoHauser/LancerDesk/internal/pkg/env"
	stripelib "github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	stripesub "github.com/stripe/stripe-go/v82/subscription"
)

// ErrStripeNotConfigured means the Stripe secret key is missing. This is a
// deploy-time misconfiguration and fails at construction, not mid-request.
var ErrStripeNotConfigured = errors.New("stripe secret key not configured")

// Client wraps the Stripe API calls this service needs. The SDK functions
// are injected so tests can run without network access.
type Client struct {
	createCheckoutSession func(params *stripelib.CheckoutSessionParams) (*stripelib.CheckoutSession, error)
	createPortalSession   func(params *stripelib.BillingPortalSessionParams) (*stripelib.BillingPortalSession, error)
	getCheckoutSession    func(id string, params *stripelib.CheckoutSessionParams) (*stripelib.CheckoutSession, error)
	getSubscription       func(id string, params *stripelib.SubscriptionParams) (*stripelib.Subscription, error)
}

// NewClientFromEnv builds a Stripe client from STRIPE_SECRET_KEY.
func NewClientFromEnv() (*Client, error) {
	key := strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", ""))
	if key == "" {
		return nil, ErrStripeNotConfigured
	}
	stripelib.Key = key
	return &Client{
		createCheckoutSession: checkoutsession.New,
		createPortalSession:   portalsession.New,
		getCheckoutSession:    checkoutsession.Get,
		getSubscription:       stripesub.Get,
	}, nil
}

// CreateCheckoutSession requests a hosted checkout URL for the given price.
// The user id is embedded both as client_reference_id and as metadata so
// the reconciler can use either.
func (c *Client) CreateCheckoutSession(userID uint, priceID, successURL, cancelURL string) (string, error) {
	if strings.TrimSpace(priceID) == "" {
		return "", errors.New("price id is required")
	}

	userRef := strconv.FormatUint(uint64(userID), 10)
	params := &stripelib.CheckoutSessionParams{
		Mode:              stripelib.String(string(stripelib.CheckoutSessionModeSubscription)),
		SuccessURL:        stripelib.String(successURL),
		CancelURL:         stripelib.String(cancelURL),
		ClientReferenceID: stripelib.String(userRef),
		LineItems: []*stripelib.CheckoutSessionLineItemParams{
			{
				Price:    stripelib.String(priceID),
				Quantity: stripelib.Int64(1),
			},
		},
		Metadata: map[string]string{
			"user_id": userRef,
		},
	}

	session, err := c.createCheckoutSession(params)
	if err != nil {
		return "", err
	}
	if session == nil || strings.TrimSpace(session.URL) == "" {
		return "", fmt.Errorf("stripe returned empty checkout URL")
	}
	return strings.TrimSpace(session.URL), nil
}

// CreatePortalSession requests a hosted billing-portal URL for an existing
// Stripe customer.
func (c *Client) CreatePortalSession(customerID, returnURL string) (string, error) {
	if strings.TrimSpace(customerID) == "" {
		return "", errors.New("customer id is required")
	}

	params := &stripelib.BillingPortalSessionParams{
		Customer: stripelib.String(customerID),
	}
	if strings.TrimSpace(returnURL) != "" {
		params.ReturnURL = stripelib.String(returnURL)
	}

	session, err := c.createPortalSession(params)
	if err != nil {
		return "", err
	}
	if session == nil || strings.TrimSpace(session.URL) == "" {
		return "", fmt.Errorf("stripe returned empty portal URL")
	}
	return strings.TrimSpace(session.URL), nil
}

// GetCheckoutSession fetches a checkout session by id, reduced to the local
// representation.
func (c *Client) GetCheckoutSession(id string) (*CheckoutSession, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("session id is required")
	}

	session, err := c.getCheckoutSession(id, nil)
	if err != nil {
		return nil, err
	}

	cs := &CheckoutSession{
		ID:                session.ID,
		Mode:              string(session.Mode),
		Status:            string(session.Status),
		ClientReferenceID: session.ClientReferenceID,
		Metadata:          session.Metadata,
	}
	if session.Customer != nil {
		cs.Customer = session.Customer.ID
	}
	if session.Subscription != nil {
		cs.Subscription = session.Subscription.ID
	}
	return cs, nil
}

// GetSubscription fetches subscription detail by id, reduced to the local
// representation.
func (c *Client) GetSubscription(id string) (*Subscription, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("subscription id is required")
	}

	sub, err := c.getSubscription(id, nil)
	if err != nil {
		return nil, err
	}

	local := &Subscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		TrialStart:        sub.TrialStart,
		TrialEnd:          sub.TrialEnd,
		Metadata:          sub.Metadata,
	}
	if sub.Customer != nil {
		local.Customer = sub.Customer.ID
	}
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item == nil || item.Price == nil {
				continue
			}
			entry := struct {
				Price struct {
					ID        string `json:"id"`
					Recurring struct {
						Interval string `json:"interval"`
					} `json:"recurring"`
				} `json:"price"`
			}{}
			entry.Price.ID = item.Price.ID
			if item.Price.Recurring != nil {
				entry.Price.Recurring.Interval = string(item.Price.Recurring.Interval)
			}
			local.Items.Data = append(local.Items.Data, entry)
		}
	}
	return local, nil
}
