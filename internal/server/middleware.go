package server

import (
	"math"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/invoicebook/internal/observability/logger"
	"github.com/smallbiznis/invoicebook/internal/ownercontext"
	"go.uber.org/zap"
)

// HeaderUserID carries the authenticated user, set by the fronting gateway.
const (
	HeaderUserID     = "X-User-ID"
	contextUserIDKey = "user_id"
)

// OwnerContext scopes the request to the user named in HeaderUserID.
func OwnerContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		ownerID, err := snowflake.ParseString(raw)
		if err != nil || ownerID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextUserIDKey, ownerID.String())
		c.Request = c.Request.WithContext(ownercontext.WithOwnerID(c.Request.Context(), ownerID))
		c.Next()
	}
}

// OwnerRateLimit throttles each owner through the shared token bucket. It is a
// no-op when no limiter is configured.
func (s *Server) OwnerRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		res, err := s.limiter.AllowOwner(ctx, ownerID.String())
		if err != nil {
			s.metrics.RecordRateLimit("error")
			logger.FromContext(ctx).Warn("owner rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			s.metrics.RecordRateLimit("denied")
			seconds := int(math.Ceil(res.RetryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			AbortWithError(c, ErrRateLimited)
			return
		}

		s.metrics.RecordRateLimit("allowed")
		c.Next()
	}
}
