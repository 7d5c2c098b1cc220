package authgin

import (
	"net/http"

	"github.com/PaulFidika/nekokit/adapters/ginutil"
	"github.com/PaulFidika/nekokit/core"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserView is the authenticated caller as seen by handlers.
type UserView struct {
	ID            uuid.UUID `json:"user_id"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	IsAdmin       bool      `json:"is_admin"`
}

// CurrentUser returns the caller resolved by AuthRequired. ok is false when
// the middleware did not run or authentication failed. IsAdmin is not filled.
func CurrentUser(c *gin.Context) (UserView, bool) {
	u, ok := userFromGin(c)
	if !ok {
		return UserView{}, false
	}
	return UserView{ID: u.ID, Email: u.Email, EmailVerified: u.EmailVerified}, true
}

// handleMeGET returns the caller with the admin role resolved from user_roles.
func handleMeGET(svc *core.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		uv, ok := CurrentUser(c)
		if !ok {
			ginutil.Unauthorized(c, "User not authenticated")
			return
		}
		admin, err := svc.IsAdmin(c.Request.Context(), uv.ID)
		if err != nil {
			ginutil.Fail(c, err, http.StatusInternalServerError)
			return
		}
		uv.IsAdmin = admin
		c.JSON(http.StatusOK, uv)
	}
}
