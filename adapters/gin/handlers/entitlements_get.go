package handlers

import (
	"net/http"

	"github.com/PaulFidika/nekokit/adapters/ginutil"
	"github.com/PaulFidika/nekokit/core"
	"github.com/PaulFidika/nekokit/entitlements"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HandleEntitlementGET answers whether the caller's last known tier meets
// the tier in the path. It reads cached state only.
func HandleEntitlementGET(svc *core.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLEntitlementsGet) {
			ginutil.TooMany(c)
			return
		}
		required := entitlements.Tier(c.Param("tier"))
		if !required.Valid() {
			ginutil.BadRequest(c, "unknown_tier")
			return
		}
		uid, err := uuid.Parse(c.GetString(ginutil.UserIDKey))
		if err != nil {
			ginutil.Unauthorized(c, "User not authenticated")
			return
		}
		st, err := svc.CurrentStatus(c.Request.Context(), uid)
		if err != nil {
			ginutil.ServerErr(c, "entitlement_lookup_failed")
			return
		}
		c.JSON(http.StatusOK, gin.H{"tier": st.Tier, "required": required, "allowed": st.Meets(required)})
	}
}
