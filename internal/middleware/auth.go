package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/careerlink/jobrec/internal/services"
)

// Identity resolves an optional bearer token to a user id and stores it in
// the request context. It never aborts: an absent or invalid token means an
// anonymous caller, who still gets population-level recommendations.
func Identity(auth services.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if userID := auth.ResolveIdentity(c.Request.Context(), token); userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	}
}

// RequireAuth aborts anonymous requests. Used for interaction recording and
// the admin surface.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get("user_id"); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "a valid bearer token is required",
				},
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
