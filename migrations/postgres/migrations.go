// Package migrations holds the embedded SQL schema and a bun/migrate runner.
package migrations

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/migrate"
)

//go:embed *.sql
var migrationFS embed.FS

// FS exposes the embedded SQL for external runners.
var FS = migrationFS

// Migrations is a bun/migrate registry for this module.
var Migrations = migrate.NewMigrations()

func init() {
	if err := Migrations.Discover(migrationFS); err != nil {
		panic(fmt.Sprintf("migrations: %v", err))
	}
}

// Migrator wraps a bun migrator over an existing pgx pool.
type Migrator struct {
	db *bun.DB
	m  *migrate.Migrator
}

func NewMigrator(pool *pgxpool.Pool) *Migrator {
	db := bun.NewDB(stdlib.OpenDBFromPool(pool), pgdialect.New())
	return &Migrator{db: db, m: migrate.NewMigrator(db, Migrations)}
}

// Up applies all pending migrations under the migration lock and returns the
// names applied.
func (x *Migrator) Up(ctx context.Context) ([]string, error) {
	if err := x.m.Init(ctx); err != nil {
		return nil, fmt.Errorf("init migration tables: %w", err)
	}
	if err := x.m.Lock(ctx); err != nil {
		return nil, err
	}
	defer x.m.Unlock(ctx) //nolint:errcheck

	group, err := x.m.Migrate(ctx)
	if err != nil {
		return nil, err
	}
	return names(group), nil
}

// Down rolls back the last applied group.
func (x *Migrator) Down(ctx context.Context) ([]string, error) {
	if err := x.m.Lock(ctx); err != nil {
		return nil, err
	}
	defer x.m.Unlock(ctx) //nolint:errcheck

	group, err := x.m.Rollback(ctx)
	if err != nil {
		return nil, err
	}
	return names(group), nil
}

// Pending lists migrations not yet applied.
func (x *Migrator) Pending(ctx context.Context) ([]string, error) {
	if err := x.m.Init(ctx); err != nil {
		return nil, err
	}
	ms, err := x.m.MigrationsWithStatus(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range ms.Unapplied() {
		out = append(out, m.Name)
	}
	return out, nil
}

// Close releases the database/sql handle; the pool stays open.
func (x *Migrator) Close() error { return x.db.Close() }

func names(g *migrate.MigrationGroup) []string {
	if g == nil || g.IsZero() {
		return nil
	}
	out := make([]string, 0, len(g.Migrations))
	for _, m := range g.Migrations {
		out = append(out, m.Name)
	}
	return out
}
