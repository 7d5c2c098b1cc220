// Package seeding creates and removes fixture users for end-to-end tests.
// It is gated behind an explicit environment flag and a shared secret; the gate
// guards against accidental use in production, not against an attacker.
package seeding

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/PaulFidika/nekokit/core"
	"github.com/PaulFidika/nekokit/entitlements"
	"github.com/PaulFidika/nekokit/identity"
	"github.com/PaulFidika/nekokit/password"
	"github.com/PaulFidika/nekokit/subscriptions"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	ActionSeed    = "seed"
	ActionCleanup = "cleanup"

	StatusCreated = "created"
	StatusExists  = "exists"
	StatusDeleted = "deleted"
	StatusError   = "error"
)

// Gate decides whether a seeding request may run.
type Gate struct {
	Enabled   bool
	SecretKey string
}

// Check returns a forbidden error when seeding is disabled, regardless of key,
// and an unauthorized error when the key does not match.
func (g Gate) Check(seedKey string) error {
	if !g.Enabled {
		return core.Forbidden("Test seeding is disabled in this environment")
	}
	if g.SecretKey == "" || subtle.ConstantTimeCompare([]byte(seedKey), []byte(g.SecretKey)) != 1 {
		return core.Unauthorized("Invalid seed key")
	}
	return nil
}

// Result is the per-user outcome of a seed or cleanup run.
type Result struct {
	Email  string `json:"email"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type Identities interface {
	GetByEmail(ctx context.Context, email string) (*identity.User, error)
	Create(ctx context.Context, email, passwordHash, fullName string, emailVerified bool) (uuid.UUID, error)
	GrantRole(ctx context.Context, id uuid.UUID, role string) error
}

type Data interface {
	UpdateProfile(ctx context.Context, id uuid.UUID, u TestUser) error
	UpsertProgress(ctx context.Context, id uuid.UUID, p ProgressStep, now time.Time) error
	ReplaceTasks(ctx context.Context, id uuid.UUID, tasks []Task) error
	UpsertStreak(ctx context.Context, id uuid.UUID, st Streak, day time.Time) error
}

// Eraser removes a user and everything they own.
type Eraser interface {
	EraseUser(ctx context.Context, id uuid.UUID) (*core.DeletionReport, error)
}

type Seeder struct {
	users  Identities
	data   Data
	subs   core.Subscriptions
	eraser Eraser
	now    func() time.Time
	log    logrus.FieldLogger
}

func NewSeeder(users Identities, data Data, subs core.Subscriptions, eraser Eraser, log logrus.FieldLogger) *Seeder {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Seeder{users: users, data: data, subs: subs, eraser: eraser, now: time.Now, log: log.WithField("function", "seed-test-data")}
}

// Seed creates missing fixture users and resets their side-data. A failure on
// one user is recorded and the run moves on to the next.
func (s *Seeder) Seed(ctx context.Context) []Result {
	results := make([]Result, 0, len(TestUsers))
	for _, tu := range TestUsers {
		status, err := s.seedOne(ctx, tu)
		if err != nil {
			s.log.WithError(err).WithField("email", tu.Email).Warn("seed failed")
			results = append(results, Result{Email: tu.Email, Status: StatusError, Error: err.Error()})
			continue
		}
		results = append(results, Result{Email: tu.Email, Status: status})
	}
	return results
}

func (s *Seeder) seedOne(ctx context.Context, tu TestUser) (string, error) {
	existing, err := s.users.GetByEmail(ctx, tu.Email)
	if err != nil {
		return "", fmt.Errorf("lookup: %w", err)
	}
	status := StatusExists
	var id uuid.UUID
	if existing != nil {
		id = existing.ID
	} else {
		if err := password.Validate(tu.Password); err != nil {
			return "", err
		}
		hash, err := password.Hash(tu.Password)
		if err != nil {
			return "", err
		}
		id, err = s.users.Create(ctx, tu.Email, hash, tu.FullName, true)
		if err != nil {
			return "", fmt.Errorf("create user: %w", err)
		}
		status = StatusCreated
	}

	log := s.log.WithField("email", tu.Email)
	now := s.now().UTC()
	if err := s.data.UpdateProfile(ctx, id, tu); err != nil {
		log.WithError(err).Warn("profile update failed")
	}
	if tu.Tier != entitlements.TierFree {
		end := now.Add(30 * 24 * time.Hour)
		rec := subscriptions.Record{UserID: id, Tier: tu.Tier, Status: subscriptions.StatusActive, CurrentPeriodStart: &now, CurrentPeriodEnd: &end}
		if err := s.subs.Upsert(ctx, rec); err != nil {
			log.WithError(err).Warn("subscription update failed")
		}
	}
	if tu.IsAdmin {
		if err := s.users.GrantRole(ctx, id, core.AdminRole); err != nil {
			log.WithError(err).Warn("role update failed")
		}
	}
	if tu.OnboardingCompleted && tu.Tier != entitlements.TierFree {
		for _, p := range sampleProgress {
			if err := s.data.UpsertProgress(ctx, id, p, now); err != nil {
				log.WithError(err).Warn("progress update failed")
			}
		}
	}
	if tu.OnboardingCompleted {
		if err := s.data.ReplaceTasks(ctx, id, sampleTasks); err != nil {
			log.WithError(err).Warn("task update failed")
		}
	}
	if err := s.data.UpsertStreak(ctx, id, streakFor(tu), now); err != nil {
		log.WithError(err).Warn("streak update failed")
	}
	return status, nil
}

// Cleanup erases every fixture user that exists.
func (s *Seeder) Cleanup(ctx context.Context) []Result {
	var results []Result
	for _, tu := range TestUsers {
		u, err := s.users.GetByEmail(ctx, tu.Email)
		if err != nil {
			results = append(results, Result{Email: tu.Email, Status: StatusError, Error: err.Error()})
			continue
		}
		if u == nil {
			continue
		}
		if _, err := s.eraser.EraseUser(ctx, u.ID); err != nil {
			results = append(results, Result{Email: tu.Email, Status: StatusError, Error: err.Error()})
			continue
		}
		results = append(results, Result{Email: tu.Email, Status: StatusDeleted})
	}
	return results
}
