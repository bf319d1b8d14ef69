package middleware

import (
	"net/http"
	"strings"

	"anoa.com/folio/pkg/token"
	"github.com/gin-gonic/gin"
)

// TokenHeader is the header clients send the session token in.
const TokenHeader = "x-auth-token"

type AuthMiddleware struct {
	tokens *token.Manager
}

func NewAuthMiddleware(tokens *token.Manager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not Authorized!"})
			return
		}

		identity, err := m.tokens.Verify(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not Authorized!"})
			return
		}

		c.Set(token.ContextKey, identity)
		c.Next()
	}
}

// extractToken prefers x-auth-token and falls back to "Authorization: Bearer".
func extractToken(c *gin.Context) string {
	if t := strings.TrimSpace(c.GetHeader(TokenHeader)); t != "" {
		return t
	}

	parts := strings.Fields(c.GetHeader("Authorization"))
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}
