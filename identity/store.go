package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pgstore "github.com/PaulFidika/nekokit/storage/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CascadeTables lists user-owned tables in deletion order: dependents first,
// then subscriptions, profiles and roles. The identity row itself is removed last.
var CascadeTables = []string{
	"user_achievements",
	"user_tasks",
	"user_streaks",
	"tradelines",
	"credit_scores",
	"digital_cv",
	"dashboard_layouts",
	"progress",
	"support_tickets",
	"promo_code_redemptions",
	"subscriptions",
	"profiles",
	"user_roles",
}

var cascadeSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(CascadeTables))
	for _, t := range CascadeTables {
		m[t] = struct{}{}
	}
	return m
}()

// ErrUnknownTable is returned for tables outside CascadeTables.
var ErrUnknownTable = errors.New("identity: table not in cascade list")

// Store provides identity lookups/mutations against the users schema.
type Store struct {
	db     pgstore.DB
	schema string
}

func NewStore(db pgstore.DB, schema string) *Store {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "auth"
	}
	return &Store{db: db, schema: s}
}

func (s *Store) usersTable() string { return s.schema + ".users" }

type User struct {
	ID            uuid.UUID
	Email         string
	EmailVerified bool
}

// GetByID returns nil when the identity does not exist.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var u User
	err := s.db.QueryRow(ctx, `SELECT id, email, email_verified FROM `+s.usersTable()+` WHERE id=$1 LIMIT 1`, id).
		Scan(&u.ID, &u.Email, &u.EmailVerified)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns nil when no identity uses email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}
	var u User
	err := s.db.QueryRow(ctx, `SELECT id, email, email_verified FROM `+s.usersTable()+` WHERE lower(email)=lower($1) LIMIT 1`, email).
		Scan(&u.ID, &u.Email, &u.EmailVerified)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts an identity together with its profile, free subscription and
// default role, in one transaction.
func (s *Store) Create(ctx context.Context, email, passwordHash, fullName string, emailVerified bool) (uuid.UUID, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	if err := s.createTx(ctx, tx, id, email, passwordHash, fullName, emailVerified); err != nil {
		_ = tx.Rollback(ctx)
		return uuid.Nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (s *Store) createTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, email, passwordHash, fullName string, emailVerified bool) error {
	if _, err := tx.Exec(ctx, `INSERT INTO `+s.usersTable()+` (id, email, password_hash, email_verified, created_at, updated_at) VALUES ($1, $2, $3, $4, NOW(), NOW())`,
		id, email, passwordHash, emailVerified); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO profiles (user_id, full_name) VALUES ($1, $2)`, id, fullName); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO subscriptions (user_id, plan, status) VALUES ($1, 'free', 'active')`, id); err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role) VALUES ($1, 'user')`, id); err != nil {
		return fmt.Errorf("insert role: %w", err)
	}
	return nil
}

// Delete removes the identity row.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM `+s.usersTable()+` WHERE id=$1`, id)
	return err
}

// HasRole reports whether the user holds role.
func (s *Store) HasRole(ctx context.Context, id uuid.UUID, role string) (bool, error) {
	var ok bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id=$1 AND role=$2)`, id, role).Scan(&ok)
	return ok, err
}

// GrantRole is idempotent.
func (s *Store) GrantRole(ctx context.Context, id uuid.UUID, role string) error {
	_, err := s.db.Exec(ctx, `INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT (user_id, role) DO NOTHING`, id, role)
	return err
}

// DeleteOwnedRows removes every row of table owned by id.
func (s *Store) DeleteOwnedRows(ctx context.Context, table string, id uuid.UUID) (int64, error) {
	if _, ok := cascadeSet[table]; !ok {
		return 0, ErrUnknownTable
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM `+table+` WHERE user_id=$1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// PurgeTx deletes all owned rows and the identity in a single transaction.
// Any failure rolls the whole purge back.
func (s *Store) PurgeTx(ctx context.Context, id uuid.UUID) (map[string]int64, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	out, err := s.purgeTx(ctx, tx, id)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) purgeTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (map[string]int64, error) {
	out := make(map[string]int64, len(CascadeTables))
	for _, table := range CascadeTables {
		tag, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE user_id=$1`, id)
		if err != nil {
			return nil, fmt.Errorf("delete from %s: %w", table, err)
		}
		out[table] = tag.RowsAffected()
	}
	if _, err := tx.Exec(ctx, `DELETE FROM `+s.usersTable()+` WHERE id=$1`, id); err != nil {
		return nil, fmt.Errorf("delete identity: %w", err)
	}
	return out, nil
}

// CountOrphans counts rows of table whose owner no longer exists.
func (s *Store) CountOrphans(ctx context.Context, table string) (int64, error) {
	if _, ok := cascadeSet[table]; !ok {
		return 0, ErrUnknownTable
	}
	var n int64
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM `+table+` t WHERE NOT EXISTS (SELECT 1 FROM `+s.usersTable()+` u WHERE u.id = t.user_id)`).Scan(&n)
	return n, err
}

// DeleteOrphans removes rows of table whose owner no longer exists.
func (s *Store) DeleteOrphans(ctx context.Context, table string) (int64, error) {
	if _, ok := cascadeSet[table]; !ok {
		return 0, ErrUnknownTable
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM `+table+` t WHERE NOT EXISTS (SELECT 1 FROM `+s.usersTable()+` u WHERE u.id = t.user_id)`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
