package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/PaulFidika/nekokit/entitlements"
	pgstore "github.com/PaulFidika/nekokit/storage/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// StatusActive is the only row status that grants a paid entitlement.
const StatusActive = "active"

// Record is the locally cached subscription state of one user.
type Record struct {
	UserID               uuid.UUID
	Tier                 entitlements.Tier
	Status               string
	StripeCustomerID     *string
	StripeSubscriptionID *string
	CurrentPeriodStart   *time.Time
	CurrentPeriodEnd     *time.Time
	CancelAtPeriodEnd    bool
	UpdatedAt            time.Time
}

// Free returns the record for a user with no paid subscription.
func Free(userID uuid.UUID, customerID *string) Record {
	return Record{UserID: userID, Tier: entitlements.TierFree, Status: StatusActive, StripeCustomerID: customerID}
}

// Entitlement converts the record to the caller-facing entitlement status.
func (r Record) Entitlement() entitlements.Status {
	if r.StripeSubscriptionID == nil || r.Status != StatusActive {
		return entitlements.Status{Subscribed: false, Tier: r.Tier}
	}
	cancel := r.CancelAtPeriodEnd
	return entitlements.Status{
		Subscribed:        true,
		Tier:              r.Tier,
		SubscriptionEnd:   r.CurrentPeriodEnd,
		CancelAtPeriodEnd: &cancel,
	}
}

// Store persists one subscription row per user.
type Store struct {
	db pgstore.DB
}

func NewStore(db pgstore.DB) *Store { return &Store{db: db} }

const upsertSQL = `INSERT INTO subscriptions
	(user_id, plan, status, stripe_customer_id, stripe_subscription_id, current_period_start, current_period_end, cancel_at_period_end, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
ON CONFLICT (user_id) DO UPDATE SET
	plan = EXCLUDED.plan,
	status = EXCLUDED.status,
	stripe_customer_id = EXCLUDED.stripe_customer_id,
	stripe_subscription_id = EXCLUDED.stripe_subscription_id,
	current_period_start = EXCLUDED.current_period_start,
	current_period_end = EXCLUDED.current_period_end,
	cancel_at_period_end = EXCLUDED.cancel_at_period_end,
	updated_at = NOW()`

// Upsert writes r keyed by user id. Repeated calls with the same record converge.
func (s *Store) Upsert(ctx context.Context, r Record) error {
	_, err := s.db.Exec(ctx, upsertSQL,
		r.UserID, string(r.Tier), r.Status, r.StripeCustomerID, r.StripeSubscriptionID,
		r.CurrentPeriodStart, r.CurrentPeriodEnd, r.CancelAtPeriodEnd)
	return err
}

// Get returns the record for userID, or nil when none exists.
func (s *Store) Get(ctx context.Context, userID uuid.UUID) (*Record, error) {
	var r Record
	var plan string
	err := s.db.QueryRow(ctx, `SELECT user_id, plan, status, stripe_customer_id, stripe_subscription_id,
		current_period_start, current_period_end, cancel_at_period_end, updated_at
		FROM subscriptions WHERE user_id=$1`, userID).Scan(
		&r.UserID, &plan, &r.Status, &r.StripeCustomerID, &r.StripeSubscriptionID,
		&r.CurrentPeriodStart, &r.CurrentPeriodEnd, &r.CancelAtPeriodEnd, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Tier = entitlements.Normalize(plan)
	return &r, nil
}
