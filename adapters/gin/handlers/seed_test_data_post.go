package handlers

import (
	"net/http"

	"github.com/PaulFidika/nekokit/adapters/ginutil"
	"github.com/PaulFidika/nekokit/core"
	"github.com/PaulFidika/nekokit/metrics"
	"github.com/PaulFidika/nekokit/seeding"
	"github.com/gin-gonic/gin"
)

func HandleSeedTestDataPOST(seeder *seeding.Seeder, gate seeding.Gate, rl ginutil.RateLimiter) gin.HandlerFunc {
	type seedReq struct {
		Action  string `json:"action"`
		SeedKey string `json:"seed_key"`
	}
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLSeedTestData) {
			ginutil.TooMany(c)
			return
		}
		var req seedReq
		_ = c.ShouldBindJSON(&req)

		if err := gate.Check(req.SeedKey); err != nil {
			metrics.SeedRuns.WithLabelValues(actionLabel(req.Action), "rejected").Inc()
			ginutil.Fail(c, err, http.StatusForbidden)
			return
		}

		switch req.Action {
		case seeding.ActionSeed:
			results := seeder.Seed(c.Request.Context())
			metrics.SeedRuns.WithLabelValues(req.Action, "ok").Inc()
			c.JSON(http.StatusOK, gin.H{
				"success":    true,
				"message":    "Test data seeded successfully",
				"results":    results,
				"test_users": seeding.TestUsers,
			})
		case seeding.ActionCleanup:
			results := seeder.Cleanup(c.Request.Context())
			metrics.SeedRuns.WithLabelValues(req.Action, "ok").Inc()
			c.JSON(http.StatusOK, gin.H{
				"success": true,
				"message": "Test data cleaned up successfully",
				"results": results,
			})
		default:
			metrics.SeedRuns.WithLabelValues("invalid", "rejected").Inc()
			ginutil.Fail(c, core.BadRequest("Invalid action. Use 'seed' or 'cleanup'"), http.StatusBadRequest)
		}
	}
}

func actionLabel(action string) string {
	switch action {
	case seeding.ActionSeed, seeding.ActionCleanup:
		return action
	}
	return "invalid"
}
