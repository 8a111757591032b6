package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jobpal/jobpal-server/internal/auth"
)

const sessionKey = "session"

// authMiddleware parses the bearer token and stores the session on the
// request context. Requests without a valid token never reach a handler.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				ResponseCode: "401",
				Message:      "missing bearer token",
			})
			return
		}

		session, err := s.tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			s.logger.Error("Token rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				ResponseCode: "401",
				Message:      "invalid session token",
			})
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// sessionFrom retrieves the session stored by authMiddleware.
func sessionFrom(c *gin.Context) *auth.Session {
	if v, ok := c.Get(sessionKey); ok {
		if session, ok := v.(*auth.Session); ok {
			return session
		}
	}
	return nil
}
