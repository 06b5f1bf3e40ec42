package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/config"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/ratelimit"
)

// Limiter is the slice of ratelimit.Limiter the middleware uses.
type Limiter interface {
	CheckGlobal(ctx context.Context, limit int64, windowSec int) (*ratelimit.Result, error)
	CheckProject(ctx context.Context, projectID string, limit int64, windowSec int) (*ratelimit.Result, error)
	CheckClient(ctx context.Context, addr string, limit int64, windowSec int) (*ratelimit.Result, error)
}

// RateLimit rejects API requests once the caller's window is spent. Routes
// outside /api/v1 are never limited. The per-caller window is keyed by the
// project route param when present, the client address otherwise. Limiter
// failures let traffic through.
func RateLimit(limiter Limiter, cfg config.RateLimitConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limiter == nil || !strings.HasPrefix(c.Path(), "/api/v1") {
				return next(c)
			}
			ctx := c.Request().Context()

			if res, err := limiter.CheckGlobal(ctx, cfg.GlobalPerWindow, cfg.WindowSeconds); err == nil && !res.Allowed {
				return tooManyRequests(c, "service request limit reached", res)
			}

			var (
				res *ratelimit.Result
				err error
			)
			if projectID := c.Param("projectID"); projectID != "" {
				res, err = limiter.CheckProject(ctx, projectID, cfg.ProjectPerWindow, cfg.WindowSeconds)
			} else {
				res, err = limiter.CheckClient(ctx, c.RealIP(), cfg.ProjectPerWindow, cfg.WindowSeconds)
			}
			if err != nil {
				return next(c)
			}
			if !res.Allowed {
				return tooManyRequests(c, "request limit reached for this caller", res)
			}
			return next(c)
		}
	}
}

func tooManyRequests(c echo.Context, msg string, res *ratelimit.Result) error {
	return c.JSON(http.StatusTooManyRequests, map[string]any{
		"error":               msg,
		"limit":               res.Limit,
		"retry_after_seconds": res.RetryAfterSeconds,
	})
}
