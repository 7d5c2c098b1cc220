package entitlements

import "time"

// Meets reports whether current satisfies a requirement of required.
// Unknown tiers on either side never grant access.
func Meets(current, required Tier) bool {
	c, r := rank(current), rank(required)
	if c < 0 || r < 0 {
		return false
	}
	return c >= r
}

// Status is the caller-facing result of an entitlement check.
type Status struct {
	Subscribed        bool       `json:"subscribed"`
	Tier              Tier       `json:"tier"`
	SubscriptionEnd   *time.Time `json:"subscription_end"`
	CancelAtPeriodEnd *bool      `json:"cancel_at_period_end,omitempty"`
}

// FreeStatus is the status of a caller with no paid subscription.
func FreeStatus() Status {
	return Status{Subscribed: false, Tier: TierFree}
}

// Meets applies Meets to the status tier.
func (s Status) Meets(required Tier) bool { return Meets(s.Tier, required) }
