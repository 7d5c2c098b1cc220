// Package ginutil holds the small response and rate-limit helpers shared by
// the gin handlers.
package ginutil

import (
	"context"
	"errors"
	"net/http"

	"github.com/PaulFidika/nekokit/core"
	"github.com/gin-gonic/gin"
)

// Rate-limit bucket names.
const (
	RLCheckSubscription = "check_subscription"
	RLDeleteAccount     = "delete_account"
	RLSeedTestData      = "seed_test_data"
	RLEntitlementsGet   = "entitlements_get"
)

// RateLimiter is satisfied by ratelimit/redis and ratelimit/memory.
type RateLimiter interface {
	Allow(ctx context.Context, bucket, key string) (bool, error)
}

// AllowNamed checks bucket for the authenticated user, falling back to the
// client IP. A nil limiter allows everything; limiter errors fail open.
func AllowNamed(c *gin.Context, rl RateLimiter, bucket string) bool {
	if rl == nil {
		return true
	}
	key := c.ClientIP()
	if v, ok := c.Get(UserIDKey); ok {
		if s, _ := v.(string); s != "" {
			key = s
		}
	}
	ok, err := rl.Allow(c.Request.Context(), bucket, key)
	if err != nil {
		return true
	}
	return ok
}

// UserIDKey is the gin context key holding the authenticated user id.
const UserIDKey = "auth.user_id"

func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

func Unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

func ServerErr(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func TooMany(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
}

// StatusFor maps a core error kind to an HTTP status. fallback is used for
// upstream, persistence, and unclassified errors.
func StatusFor(err error, fallback int) int {
	switch core.KindOf(err) {
	case core.ErrUnauthorized:
		return http.StatusUnauthorized
	case core.ErrBadRequest:
		return http.StatusBadRequest
	case core.ErrForbidden:
		return http.StatusForbidden
	}
	return fallback
}

// Message returns the caller-facing message of a core error. Upstream and
// persistence failures carry their cause; the other kinds keep the fixed text
// clients match on.
func Message(err error) string {
	var ce *core.Error
	if !errors.As(err, &ce) {
		return err.Error()
	}
	switch core.KindOf(ce) {
	case core.ErrUpstream, core.ErrPersistence:
		return ce.Error()
	}
	return ce.Msg
}

// Fail answers with StatusFor(err, fallback) and an {error} body.
func Fail(c *gin.Context, err error, fallback int) {
	c.AbortWithStatusJSON(StatusFor(err, fallback), gin.H{"error": Message(err)})
}
