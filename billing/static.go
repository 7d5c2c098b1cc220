package billing

import (
	"context"
	"strings"
	"sync"
)

// StaticProvider is an in-memory Provider for local development and tests.
type StaticProvider struct {
	mu            sync.RWMutex
	customers     map[string]Customer // by lowercased email
	subscriptions map[string]Subscription
	// Err, when set, is returned from every lookup.
	Err error
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		customers:     map[string]Customer{},
		subscriptions: map[string]Subscription{},
	}
}

// AddCustomer registers a customer and returns it.
func (p *StaticProvider) AddCustomer(id, email string) Customer {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := Customer{ID: id, Email: email}
	p.customers[strings.ToLower(email)] = c
	return c
}

// SetActiveSubscription replaces the active subscription for sub.CustomerID.
func (p *StaticProvider) SetActiveSubscription(sub Subscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscriptions[sub.CustomerID] = sub
}

// CancelSubscription removes the active subscription for customerID.
func (p *StaticProvider) CancelSubscription(customerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.subscriptions, customerID)
}

func (p *StaticProvider) FindCustomerByEmail(_ context.Context, email string) (*Customer, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.customers[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (p *StaticProvider) LatestActiveSubscription(_ context.Context, customerID string) (*Subscription, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.subscriptions[customerID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}
