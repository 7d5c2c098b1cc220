package core

import (
	"context"
	"strconv"

	"github.com/PaulFidika/nekokit/entitlements"
	"github.com/PaulFidika/nekokit/identity"
	"github.com/PaulFidika/nekokit/metrics"
	"github.com/PaulFidika/nekokit/subscriptions"
	"github.com/sirupsen/logrus"
)

// CheckSubscription authenticates the caller, reconciles their subscription
// with the payment provider and returns the resulting status.
func (s *Service) CheckSubscription(ctx context.Context, authorization string) (entitlements.Status, error) {
	log := s.log.WithField("function", "check-subscription")
	log.Debug("function started")

	u, err := s.Authenticate(ctx, authorization)
	if err != nil {
		return s.checkFailed(log, err)
	}
	if u.Email == "" || !u.EmailVerified {
		return s.checkFailed(log, unauthorized("User not authenticated or email not available", nil))
	}
	log = log.WithField("user_id", u.ID.String())
	log.Info("user authenticated")

	st, err := s.Reconcile(ctx, u)
	if err != nil {
		return s.checkFailed(log, err)
	}
	metrics.EntitlementChecks.WithLabelValues(string(st.Tier), strconv.FormatBool(st.Subscribed)).Inc()
	return st, nil
}

func (s *Service) checkFailed(log logrus.FieldLogger, err error) (entitlements.Status, error) {
	kind := "unknown"
	if k := KindOf(err); k != nil {
		kind = k.Error()
	}
	metrics.EntitlementCheckFailures.WithLabelValues(kind).Inc()
	log.WithError(err).Warn("check failed")
	return entitlements.Status{}, err
}

// Reconcile maps the provider's view of u onto a persisted subscription record.
// The upsert is keyed by user id, so repeated or concurrent calls converge.
func (s *Service) Reconcile(ctx context.Context, u *identity.User) (entitlements.Status, error) {
	log := s.log.WithFields(logrus.Fields{"function": "check-subscription", "user_id": u.ID.String()})

	cust, err := s.billing.FindCustomerByEmail(ctx, u.Email)
	if err != nil {
		return entitlements.Status{}, upstream("customer lookup failed", err)
	}
	if cust == nil {
		log.Info("no payment customer found, returning free tier")
		return s.persist(ctx, subscriptions.Free(u.ID, nil))
	}
	log = log.WithField("customer_id", cust.ID)
	customerID := cust.ID

	sub, err := s.billing.LatestActiveSubscription(ctx, cust.ID)
	if err != nil {
		return entitlements.Status{}, upstream("subscription lookup failed", err)
	}
	if sub == nil {
		log.Info("no active subscription found, returning free tier")
		return s.persist(ctx, subscriptions.Free(u.ID, &customerID))
	}

	tier := s.registry.ResolveTierFromProductID(sub.ProductID)
	subID := sub.ID
	start, end := sub.CurrentPeriodStart, sub.CurrentPeriodEnd
	log.WithFields(logrus.Fields{
		"subscription_id": sub.ID,
		"product_id":      sub.ProductID,
		"tier":            tier,
		"period_end":      end,
	}).Info("active subscription found")

	return s.persist(ctx, subscriptions.Record{
		UserID:               u.ID,
		Tier:                 tier,
		Status:               subscriptions.StatusActive,
		StripeCustomerID:     &customerID,
		StripeSubscriptionID: &subID,
		CurrentPeriodStart:   &start,
		CurrentPeriodEnd:     &end,
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
	})
}

func (s *Service) persist(ctx context.Context, rec subscriptions.Record) (entitlements.Status, error) {
	if err := s.subs.Upsert(ctx, rec); err != nil {
		return entitlements.Status{}, persistence("subscription upsert failed", err)
	}
	st := rec.Entitlement()
	s.cachePut(ctx, rec.UserID.String(), st)
	return st, nil
}
