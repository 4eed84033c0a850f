package middlewares

import (
	"context"
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/esteira_backend/utils"
	"github.com/gin-gonic/gin"
)

type authString string

const authKey = authString("auth")

// AuthMiddleware validates the bearer token when one is present and
// threads the operator identity through the request context. Routes that
// require a session call RequireAuth on top of this.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")

		if auth == "" {
			c.Next()
			return
		}

		bearer := "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		auth = auth[len(bearer):]

		validate, err := utils.JwtValidate(auth)
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		customClaim, _ := validate.Claims.(*utils.JwtCustomClaim)

		ctx := context.WithValue(c.Request.Context(), authKey, customClaim)
		ctx = utils.SetOperatorIdInContext(ctx, customClaim.ID)
		ctx = utils.SetOperatorNameInContext(ctx, customClaim.Name)
		ctx = utils.SetIsAdminInContext(ctx, customClaim.Role == "admin")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAuth rejects requests that carry no validated claim.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CtxValue(c.Request.Context()) == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin gates operator management endpoints.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claim := CtxValue(c.Request.Context())
		if claim == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		if claim.Role != "admin" {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func CtxValue(ctx context.Context) *utils.JwtCustomClaim {
	raw, _ := ctx.Value(authKey).(*utils.JwtCustomClaim)
	return raw
}
