package handlers

import (
	"net/http"

	"github.com/PaulFidika/nekokit/adapters/ginutil"
	"github.com/PaulFidika/nekokit/core"
	"github.com/gin-gonic/gin"
)

func HandleDeleteAccountPOST(svc *core.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	type deleteReq struct {
		ConfirmEmail string `json:"confirmEmail"`
	}
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLDeleteAccount) {
			ginutil.TooMany(c)
			return
		}
		// A missing or malformed body leaves confirmEmail empty, which never
		// matches; authentication is still checked first.
		var req deleteReq
		_ = c.ShouldBindJSON(&req)

		if _, err := svc.DeleteAccount(c.Request.Context(), c.GetHeader("Authorization"), req.ConfirmEmail); err != nil {
			ginutil.Fail(c, err, http.StatusBadRequest)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": core.DeletedMessage})
	}
}
