package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// StripeProvider implements Provider against the Stripe API.
type StripeProvider struct {
	api *client.API
}

func NewStripeProvider(secretKey string) (*StripeProvider, error) {
	return newStripeProvider(secretKey, nil)
}

// newStripeProvider uses backends when set, otherwise the default Stripe endpoints.
func newStripeProvider(secretKey string, backends *stripe.Backends) (*StripeProvider, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is not set")
	}
	sc := &client.API{}
	sc.Init(secretKey, backends)
	return &StripeProvider{api: sc}, nil
}

func (p *StripeProvider) FindCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Limit = stripe.Int64(1)
	params.Context = ctx
	it := p.api.Customers.List(params)
	if it.Next() {
		c := it.Customer()
		return &Customer{ID: c.ID, Email: c.Email}, nil
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return nil, nil
}

func (p *StripeProvider) LatestActiveSubscription(ctx context.Context, customerID string) (*Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Limit = stripe.Int64(1)
	params.Context = ctx
	it := p.api.Subscriptions.List(params)
	if !it.Next() {
		if err := it.Err(); err != nil {
			return nil, fmt.Errorf("list subscriptions: %w", err)
		}
		return nil, nil
	}
	return fromStripeSubscription(it.Subscription())
}

// fromStripeSubscription reads product and period data from the first item.
// Since the 2025-03-31 API version, billing periods live on subscription items.
func fromStripeSubscription(s *stripe.Subscription) (*Subscription, error) {
	if s == nil || s.Items == nil || len(s.Items.Data) == 0 {
		return nil, errors.New("subscription has no items")
	}
	item := s.Items.Data[0]
	if item.Price == nil || item.Price.Product == nil {
		return nil, fmt.Errorf("subscription %s item has no price product", s.ID)
	}
	out := &Subscription{
		ID:                 s.ID,
		ProductID:          item.Price.Product.ID,
		PriceID:            item.Price.ID,
		CurrentPeriodStart: time.Unix(item.CurrentPeriodStart, 0).UTC(),
		CurrentPeriodEnd:   time.Unix(item.CurrentPeriodEnd, 0).UTC(),
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	return out, nil
}
