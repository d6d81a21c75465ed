package bootstrap

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/voxtype/voxtype/internal/health"
	"github.com/voxtype/voxtype/internal/history"
	"github.com/voxtype/voxtype/internal/metrics"
	"github.com/voxtype/voxtype/internal/stream"
)

func NewEchoServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(health.RateLimiter(health.DefaultRateLimiterConfig()))
	return e
}

func ProvideHealthHandler(cfg *Config, coordinator *stream.Coordinator, store *history.Store, recorder *history.Recorder, db *gorm.DB, m *metrics.Metrics) *health.Handler {
	return health.NewHandler(coordinator, store, recorder, db, m, cfg.Version)
}

func RegisterRoutes(e *echo.Echo, h *health.Handler) {
	h.Register(e)
}

func StartServer(lc fx.Lifecycle, e *echo.Echo, cfg *Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := e.Start(cfg.ServerAddr); err != nil && err != http.ErrServerClosed {
					e.Logger.Fatal(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}

var ServerModule = fx.Options(
	fx.Provide(
		NewEchoServer,
		ProvideHealthHandler,
	),
	fx.Invoke(
		RegisterRoutes,
		StartServer,
	),
)

func Run() {
	fx.New(
		fx.Provide(LoadConfig),
		InfrastructureModule,
		PipelineModule,
		ServerModule,
	).Run()
}
