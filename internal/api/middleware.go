package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"gestistock/internal/models"
	"gestistock/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

const actorKey = "actor"

// requestLogger tags the request context with a request scoped logger and
// logs every request once it completes
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)

		logger := util.GetLogger().With(zap.String("request_id", requestID))
		c.Request = c.Request.WithContext(util.WithLogger(c.Request.Context(), logger))

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// rateLimit throttles each client IP to the formatted rate, e.g. "300-M"
func rateLimit(formatted string) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", formatted, err)
	}

	instance := limiter.New(memory.NewStore(), rate)
	return mgin.NewMiddleware(instance,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			fail(c, http.StatusTooManyRequests, "too many requests")
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			util.LoggerFrom(c.Request.Context()).Error("Rate limiter failed", zap.Error(err))
			fail(c, http.StatusInternalServerError, "internal server error")
		}),
	), nil
}

// authenticate requires a valid bearer token and stores the actor on the context
func (h *Handler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			fail(c, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := h.tokens.Parse(token)
		if err != nil {
			fail(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		c.Set(actorKey, claims.Actor())
		c.Next()
	}
}

// requireRoles rejects actors whose role is not listed
func requireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorFrom(c)
		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		fail(c, http.StatusForbidden, "role "+actor.Role+" is not allowed to perform this action")
	}
}

func actorFrom(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(models.Actor); ok {
			return actor
		}
	}
	return models.Actor{}
}
