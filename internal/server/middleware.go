package server

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/smartkeys/keyserver/pkg/log"
	"go.uber.org/zap"
)

const contextUserIDKey = "user_id"

// AuthRequired gates owner endpoints behind a valid session from the
// external auth provider.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		userID, err := s.sessions.Authenticate(token)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextUserIDKey, userID)
		c.Next()
	}
}

// RateLimit throttles an endpoint per client IP. A limiter backend outage
// fails open.
func (s *Server) RateLimit(endpoint string, allow func(ctx context.Context, clientIP string) (bool, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		allowed, err := allow(ctx, c.ClientIP())
		if err != nil {
			log.L(ctx).Warn("rate limiter unavailable, allowing request",
				zap.String("endpoint", endpoint),
				zap.Error(err),
			)
			c.Next()
			return
		}
		if s.metrics != nil {
			s.metrics.RecordRateLimit(ctx, endpoint, allowed)
		}
		if !allowed {
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func currentUserID(c *gin.Context) string {
	return c.GetString(contextUserIDKey)
}
