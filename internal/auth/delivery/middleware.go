package delivery

import (
	"net/http"
	"strings"

	"worksync-backend/internal/auth/usecase"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware accepts a Bearer token, or an access_token query parameter
// for clients such as EventSource that cannot set headers. It stores "user",
// "userID" and "sessionID" in the context.
func AuthMiddleware(authUsecase usecase.AuthUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("access_token")
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
				c.Abort()
				return
			}
			token = parts[1]
		}
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		session, err := authUsecase.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("user", session.User)
		c.Set("userID", session.User.ID)
		c.Set("sessionID", session.SessionID)
		c.Next()
	}
}
