package authgin

import (
	"net/http"
	"strings"

	"github.com/PaulFidika/nekokit/adapters/ginutil"
	"github.com/PaulFidika/nekokit/core"
	"github.com/PaulFidika/nekokit/entitlements"
	"github.com/PaulFidika/nekokit/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxUser  = "auth.user"
	ctxEmail = "auth.email"
)

// AuthRequired resolves the bearer token to an existing identity or aborts
// with 401.
func AuthRequired(svc *core.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := svc.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			ginutil.Fail(c, err, http.StatusInternalServerError)
			return
		}
		c.Set(ginutil.UserIDKey, u.ID.String())
		c.Set(ctxEmail, u.Email)
		c.Set(ctxUser, u)
		c.Next()
	}
}

// RequireTier aborts with 403 unless the caller's current status meets
// required. It must run after AuthRequired.
func RequireTier(svc *core.Service, required entitlements.Tier) gin.HandlerFunc {
	return func(c *gin.Context) {
		uv, ok := CurrentUser(c)
		if !ok {
			ginutil.Unauthorized(c, "User not authenticated")
			return
		}
		st, err := svc.CurrentStatus(c.Request.Context(), uv.ID)
		if err != nil {
			ginutil.ServerErr(c, "entitlement_lookup_failed")
			return
		}
		if !st.Meets(required) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "tier_required", "required": required, "tier": st.Tier})
			return
		}
		c.Next()
	}
}

var corsAllowHeaders = strings.Join([]string{"authorization", "x-client-info", "apikey", "content-type"}, ", ")

// CORS allows any origin and answers preflight requests with 204.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func userFromGin(c *gin.Context) (*identity.User, bool) {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*identity.User)
	return u, ok && u != nil && u.ID != uuid.Nil
}
