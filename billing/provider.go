// Package billing is the payment-provider boundary. The rest of the module only
// sees customers and their active subscription; provider SDK types stay here.
package billing

import (
	"context"
	"time"
)

// Customer is the provider's customer record for an email address.
type Customer struct {
	ID    string
	Email string
}

// Subscription is the provider's view of a customer's active subscription.
type Subscription struct {
	ID                 string
	CustomerID         string
	ProductID          string
	PriceID            string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
}

// Provider queries the authoritative payment state.
//
// Both lookups return (nil, nil) when nothing matches; errors are reserved for
// transport or decoding failures.
type Provider interface {
	FindCustomerByEmail(ctx context.Context, email string) (*Customer, error)
	// LatestActiveSubscription returns the most recent subscription in active status.
	LatestActiveSubscription(ctx context.Context, customerID string) (*Subscription, error)
}
