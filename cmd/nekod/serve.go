package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	authgin "github.com/PaulFidika/nekokit/adapters/gin"
	"github.com/PaulFidika/nekokit/adapters/ginutil"
	"github.com/PaulFidika/nekokit/billing"
	"github.com/PaulFidika/nekokit/entitlements"
	"github.com/PaulFidika/nekokit/jobs"
	memorylimiter "github.com/PaulFidika/nekokit/ratelimit/memory"
	redislimiter "github.com/PaulFidika/nekokit/ratelimit/redis"
	"github.com/PaulFidika/nekokit/seeding"
	memorystore "github.com/PaulFidika/nekokit/storage/memory"
	redisstore "github.com/PaulFidika/nekokit/storage/redis"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and the orphan sweep schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func runServe(ctx context.Context) error {
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.cfg.ValidateServe(); err != nil {
		return err
	}
	log := a.log

	if dups := entitlements.Default().Duplicates(); len(dups) > 0 {
		log.WithField("product_ids", dups).Warn("product ids mapped to more than one tier; first match wins")
	}

	verifier, err := a.remoteVerifier(ctx)
	if err != nil {
		return err
	}
	provider, err := billing.NewStripeProvider(a.cfg.StripeSecretKey)
	if err != nil {
		return err
	}
	svc := a.service(verifier, provider)

	var limiter ginutil.RateLimiter
	if a.cfg.RedisURL != "" {
		opts, err := redis.ParseURL(a.cfg.RedisURL)
		if err != nil {
			return err
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		svc.WithCache(redisstore.NewStatusCache(rdb, "", a.cfg.StatusCacheTTL))
		limiter = redislimiter.New(rdb, redisLimits(a.cfg.RateLimit, a.cfg.RateWindow))
		log.Info("using redis for status cache and rate limits")
	} else {
		cache := memorystore.NewStatusCache(a.cfg.StatusCacheTTL)
		defer cache.Close()
		svc.WithCache(cache)
		limiter = memorylimiter.New(memoryLimits(a.cfg.RateLimit, a.cfg.RateWindow))
		log.Info("REDIS_URL not set; using in-memory status cache and rate limits")
	}

	seeder := seeding.NewSeeder(a.users, seeding.NewStore(a.pool), a.subs, svc, log)
	gate := seeding.Gate{Enabled: a.cfg.SeedingEnabled(), SecretKey: a.cfg.SeedSecretKey}
	if gate.Enabled {
		log.Warn("test data seeding is enabled")
	}

	sched, err := jobs.New(a.cfg.OrphanSweepSchedule, svc, log)
	if err != nil {
		return err
	}
	sched.Start()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr: a.cfg.Addr,
		Handler: authgin.NewRouter(authgin.Deps{
			Service: svc,
			Seeder:  seeder,
			Gate:    gate,
			Limiter: limiter,
			Log:     log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	sched.Stop(shutdownCtx)
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func redisLimits(n int, window time.Duration) map[string]redislimiter.Limit {
	return map[string]redislimiter.Limit{
		"default":                   {Limit: n, Window: window},
		ginutil.RLDeleteAccount:     {Limit: 5, Window: window},
		ginutil.RLSeedTestData:      {Limit: 5, Window: window},
		ginutil.RLCheckSubscription: {Limit: n, Window: window},
	}
}

func memoryLimits(n int, window time.Duration) map[string]memorylimiter.Limit {
	out := map[string]memorylimiter.Limit{}
	for k, v := range redisLimits(n, window) {
		out[k] = memorylimiter.Limit{Limit: v.Limit, Window: v.Window}
	}
	return out
}
