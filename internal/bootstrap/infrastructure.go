package bootstrap

import (
	"log/slog"
	"os"

	"go.uber.org/fx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/voxtype/voxtype/internal/history"
	"github.com/voxtype/voxtype/internal/metrics"
)

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

func ProvideDatabase(cfg *Config) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

func ProvideMetrics() *metrics.Metrics {
	return metrics.New()
}

func ProvideHistoryStore(db *gorm.DB) *history.Store {
	return history.NewStore(db)
}

func RunMigrations(store *history.Store) error {
	return store.Migrate()
}

var InfrastructureModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideDatabase,
		ProvideMetrics,
		ProvideHistoryStore,
	),
	fx.Invoke(RunMigrations),
)
