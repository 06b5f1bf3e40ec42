package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/cmd/novaintel/container"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/cmd/novaintel/middleware"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/cmd/novaintel/routes"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/bootstrap"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/db"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/ratelimit"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/repository"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/server"
)

const serviceName = "novaintel"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bootstrap common components (config, logger, DB, Redis, cache,
	// telemetry) and apply the schema before anything touches the tables.
	components, err := bootstrap.Setup(ctx, serviceName,
		bootstrap.WithDBInitHook(func(database *db.DB) error {
			return repository.EnsureSchema(ctx, database)
		}))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to bootstrap %s: %v\n", serviceName, err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	// Initialize service container (singleton pattern, all services created once)
	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize service container: %v\n", err)
		os.Exit(1)
	}

	startEventFanout(ctx, serviceContainer)

	e := setupEcho(components, serviceContainer)
	registerRoutes(e, serviceContainer)

	// Blocks until SIGTERM, then drains in-flight requests.
	if err := server.New(serviceName, components.Config.Service.Port, e, components.Logger).Start(); err != nil {
		components.Logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// startEventFanout runs the WebSocket hub and, when Redis is configured,
// the cross-replica event bridge.
func startEventFanout(ctx context.Context, c *container.Container) {
	go c.Hub.Run(ctx)
	if c.Bridge != nil {
		go func() {
			if err := c.Bridge.Run(ctx); err != nil {
				c.Components.Logger.Error("event bridge stopped", "error", err)
			}
		}()
	}
}

// setupEcho initializes the Echo server with middleware and the
// operational endpoints.
func setupEcho(components *bootstrap.Components, c *container.Container) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(components.Logger))
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	if cfg := components.Config.RateLimit; cfg.Enabled {
		if components.Redis == nil {
			components.Logger.Warn("rate limiting enabled but redis is not, skipping")
		} else {
			limiter := ratelimit.New(components.Redis, components.Logger)
			e.Use(middleware.RateLimit(limiter, cfg))
		}
	}

	e.GET("/healthz", func(ec echo.Context) error {
		if err := components.Health(ec.Request().Context()); err != nil {
			return ec.JSON(http.StatusServiceUnavailable, map[string]any{
				"status": "degraded",
				"error":  err.Error(),
			})
		}
		return ec.JSON(http.StatusOK, map[string]any{
			"status":  "ok",
			"service": serviceName,
		})
	})
	e.GET("/metrics", echo.WrapHandler(c.Metrics.Handler()))

	return e
}

// registerRoutes registers all application routes using the service container.
func registerRoutes(e *echo.Echo, c *container.Container) {
	routes.RegisterWorkflowRoutes(e, c)
	routes.RegisterRetrievalRoutes(e, c)
	routes.RegisterChatRoutes(e, c)
	routes.RegisterEventRoutes(e, c)
}
