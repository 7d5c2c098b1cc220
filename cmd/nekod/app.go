package main

import (
	"context"
	"fmt"

	"github.com/PaulFidika/nekokit/billing"
	"github.com/PaulFidika/nekokit/config"
	"github.com/PaulFidika/nekokit/core"
	"github.com/PaulFidika/nekokit/identity"
	jwtkit "github.com/PaulFidika/nekokit/jwt"
	"github.com/PaulFidika/nekokit/logging"
	pgstore "github.com/PaulFidika/nekokit/storage/postgres"
	"github.com/PaulFidika/nekokit/subscriptions"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// app is the shared wiring for subcommands.
type app struct {
	cfg   *config.Config
	log   *logrus.Logger
	pool  *pgxpool.Pool
	users *identity.Store
	subs  *subscriptions.Store
}

func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	pool, err := pgstore.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &app{
		cfg:   cfg,
		log:   log,
		pool:  pool,
		users: identity.NewStore(pool, cfg.IdentitySchema),
		subs:  subscriptions.NewStore(pool),
	}, nil
}

func (a *app) Close() { a.pool.Close() }

// service builds core.Service. verifier and provider may be nil for
// maintenance commands that never authenticate or reconcile.
func (a *app) service(verifier core.TokenVerifier, provider billing.Provider) *core.Service {
	return core.NewService(core.Options{TransactionalCascade: a.cfg.DeleteCascadeTransactional},
		verifier, a.users, a.subs, provider, a.log)
}

func (a *app) remoteVerifier(ctx context.Context) (*jwtkit.Verifier, error) {
	return jwtkit.NewRemoteVerifier(ctx, a.cfg.AuthJWKSURL, a.cfg.AuthIssuer, a.cfg.AuthAudience, 0)
}
