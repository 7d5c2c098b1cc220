package handlers

import (
	"net/http"

	"github.com/PaulFidika/nekokit/adapters/ginutil"
	"github.com/PaulFidika/nekokit/core"
	"github.com/gin-gonic/gin"
)

// HandleCheckSubscriptionPOST reconciles the caller against the payment
// provider and returns the entitlement snapshot.
func HandleCheckSubscriptionPOST(svc *core.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLCheckSubscription) {
			ginutil.TooMany(c)
			return
		}
		st, err := svc.CheckSubscription(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			ginutil.Fail(c, err, http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}
