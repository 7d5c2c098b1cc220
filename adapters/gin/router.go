package authgin

import (
	"net/http"

	"github.com/PaulFidika/nekokit/adapters/gin/handlers"
	"github.com/PaulFidika/nekokit/adapters/ginutil"
	"github.com/PaulFidika/nekokit/core"
	"github.com/PaulFidika/nekokit/entitlements"
	"github.com/PaulFidika/nekokit/seeding"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators mounted by NewRouter. Seeder may be nil, in which
// case the seeding endpoint is not registered.
type Deps struct {
	Service *core.Service
	Seeder  *seeding.Seeder
	Gate    seeding.Gate
	Limiter ginutil.RateLimiter
	Log     logrus.FieldLogger
}

// NewRouter builds the HTTP surface.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Log), CORS())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	fn := r.Group("/functions/v1")
	fn.POST("/check-subscription", handlers.HandleCheckSubscriptionPOST(d.Service, d.Limiter))
	fn.POST("/delete-account", handlers.HandleDeleteAccountPOST(d.Service, d.Limiter))
	if d.Seeder != nil {
		fn.POST("/seed-test-data", handlers.HandleSeedTestDataPOST(d.Seeder, d.Gate, d.Limiter))
	}

	v1 := r.Group("/v1", AuthRequired(d.Service))
	v1.GET("/entitlements/:tier", handlers.HandleEntitlementGET(d.Service, d.Limiter))
	v1.GET("/me", handleMeGET(d.Service))
	// Paid-only surface; clients gate the same routes with the Resolver.
	for _, p := range entitlements.Plans {
		if p.Tier == entitlements.TierFree {
			continue
		}
		tier := p.Tier
		v1.GET("/gates/"+string(tier), RequireTier(d.Service, tier), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"allowed": true, "required": tier})
		})
	}
	return r
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		c.Next()
		log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
		}).Debug("request")
	}
}
