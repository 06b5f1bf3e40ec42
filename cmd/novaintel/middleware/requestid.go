package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
)

// requestIDKey is the echo context key the request ID is stored under.
const requestIDKey = "request_id"

// RequestID tags every request with an X-Request-ID, keeping the client's
// value when one was sent.
//
// Usage:
//
//	e := echo.New()
//	e.Use(middleware.RequestID())
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Set(requestIDKey, id)
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			return next(c)
		}
	}
}

// GetRequestID retrieves the request ID from the echo context.
// Returns empty string if not set.
func GetRequestID(c echo.Context) string {
	id := c.Get(requestIDKey)
	if id == nil {
		return ""
	}
	return id.(string)
}

// RequestLogger writes one structured line per request through the service
// logger, so HTTP access logs share the format of everything else.
func RequestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			start := time.Now()
			if err = next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			log.Info("http request",
				"request_id", GetRequestID(c),
				"method", req.Method,
				"path", req.URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return err
		}
	}
}
