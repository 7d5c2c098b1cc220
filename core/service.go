// Package core holds the server-side operations: entitlement reconciliation
// against the payment provider, the account deletion cascade, and orphan sweeps.
package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/PaulFidika/nekokit/billing"
	"github.com/PaulFidika/nekokit/entitlements"
	"github.com/PaulFidika/nekokit/identity"
	jwtkit "github.com/PaulFidika/nekokit/jwt"
	"github.com/PaulFidika/nekokit/subscriptions"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*jwtkit.Claims, error)
}

// Identities is the identity store as used by the service.
type Identities interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
	HasRole(ctx context.Context, id uuid.UUID, role string) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteOwnedRows(ctx context.Context, table string, id uuid.UUID) (int64, error)
	PurgeTx(ctx context.Context, id uuid.UUID) (map[string]int64, error)
	CountOrphans(ctx context.Context, table string) (int64, error)
	DeleteOrphans(ctx context.Context, table string) (int64, error)
}

// Subscriptions persists reconciled subscription records.
type Subscriptions interface {
	Upsert(ctx context.Context, r subscriptions.Record) error
	Get(ctx context.Context, userID uuid.UUID) (*subscriptions.Record, error)
}

// StatusCache holds the last reconciled status per user. Implementations
// must tolerate concurrent use; entries are advisory.
type StatusCache interface {
	Get(ctx context.Context, userID string) (entitlements.Status, bool, error)
	Put(ctx context.Context, userID string, st entitlements.Status) error
	Del(ctx context.Context, userID string) error
}

const (
	// UserRole is the role claim on end-user access tokens.
	UserRole = "authenticated"
	// AdminRole is the user_roles entry granting admin access.
	AdminRole = "admin"
)

type Options struct {
	// TransactionalCascade runs account deletion in one database transaction
	// instead of the per-table best-effort cascade.
	TransactionalCascade bool
}

type Service struct {
	opts     Options
	verifier TokenVerifier
	users    Identities
	subs     Subscriptions
	billing  billing.Provider
	registry *entitlements.Registry
	cache    StatusCache
	log      logrus.FieldLogger
}

func NewService(opts Options, verifier TokenVerifier, users Identities, subs Subscriptions, provider billing.Provider, log logrus.FieldLogger) *Service {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Service{
		opts:     opts,
		verifier: verifier,
		users:    users,
		subs:     subs,
		billing:  provider,
		registry: entitlements.Default(),
		log:      log,
	}
}

// WithCache attaches a status cache.
func (s *Service) WithCache(c StatusCache) *Service {
	s.cache = c
	return s
}

// WithRegistry overrides the product registry.
func (s *Service) WithRegistry(r *entitlements.Registry) *Service {
	if r != nil {
		s.registry = r
	}
	return s
}

// Authenticate resolves a bearer credential to an existing identity.
// The header value may carry the "Bearer " prefix.
func (s *Service) Authenticate(ctx context.Context, authorization string) (*identity.User, error) {
	token := strings.TrimSpace(authorization)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return nil, unauthorized("No authorization header provided", nil)
	}
	claims, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return nil, unauthorized("Authentication error", err)
	}
	if claims.Role != "" && claims.Role != UserRole {
		return nil, unauthorized("Authentication error", fmt.Errorf("token role %q is not a user session", claims.Role))
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, unauthorized("Authentication error", err)
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, persistence("identity lookup failed", err)
	}
	if u == nil {
		return nil, unauthorized("User not authenticated", nil)
	}
	return u, nil
}

// IsAdmin reports whether the user holds the admin role.
func (s *Service) IsAdmin(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := s.users.HasRole(ctx, id, AdminRole)
	if err != nil {
		return false, persistence("role lookup failed", err)
	}
	return ok, nil
}

// CurrentStatus returns the cached entitlement status without contacting the
// payment provider. Users with no record are free.
func (s *Service) CurrentStatus(ctx context.Context, userID uuid.UUID) (entitlements.Status, error) {
	key := userID.String()
	if s.cache != nil {
		st, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.WithError(err).WithField("user_id", key).Warn("status cache read failed")
		} else if ok {
			return st, nil
		}
	}
	rec, err := s.subs.Get(ctx, userID)
	if err != nil {
		return entitlements.Status{}, persistence("read subscription", err)
	}
	st := entitlements.FreeStatus()
	if rec != nil {
		st = rec.Entitlement()
	}
	s.cachePut(ctx, key, st)
	return st, nil
}

func (s *Service) cachePut(ctx context.Context, userID string, st entitlements.Status) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, userID, st); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("status cache write failed")
	}
}

func (s *Service) cacheDel(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, userID); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("status cache delete failed")
	}
}
