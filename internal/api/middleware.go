package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/finsent/internal/logger"
)

const HeaderRequestID = "X-Request-ID"

const maxRequestIDLen = 128

// RequestID echoes a client supplied X-Request-ID or assigns a new one, and
// attaches a logger carrying it to the request context.
func RequestID(log logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			req := c.Request()
			id := req.Header.Get(HeaderRequestID)
			if id == "" || len(id) > maxRequestIDLen {
				id = uuid.NewString()
			}
			c.Response().Header().Set(HeaderRequestID, id)
			ctx := logger.WithContext(req.Context(), log.With("request_id", id))
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}
