package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CookieName is the cookie carrying the auth token.
const CookieName = "cooplook_token"

// userKey is the gin context key the middleware stores the user name under.
const userKey = "auth_user"

// Middleware rejects requests without a valid token cookie.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(CookieName)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		name, err := s.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		c.Set(userKey, name)
		c.Next()
	}
}

// UserName returns the authenticated user name set by Middleware.
func UserName(c *gin.Context) string {
	name, _ := c.Get(userKey)
	s, _ := name.(string)
	return s
}

// SetTokenCookie attaches a token to the response.
func (s *Service) SetTokenCookie(c *gin.Context, token string) {
	c.SetCookie(CookieName, token, int(s.tokenTTL.Seconds()), "/", "", false, true)
}

// ClearTokenCookie expires the token cookie.
func (s *Service) ClearTokenCookie(c *gin.Context) {
	c.SetCookie(CookieName, "", -1, "/", "", false, true)
}
