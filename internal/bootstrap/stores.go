package bootstrap

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/EduardoFdeM/pitchai-backend/internal/call"
)

func ProvideCallStore(db *gorm.DB) *call.Store {
	return call.NewStore(db)
}

func ProvideCallMetricsStore(redisClient *redis.Client) *call.MetricsStore {
	return call.NewMetricsStore(redisClient)
}

// RunMigrations migrates the schema and closes calls left active by a
// previous run; capture cannot have survived a restart.
func RunMigrations(callStore *call.Store, logger *slog.Logger) error {
	if err := callStore.Migrate(); err != nil {
		return err
	}
	closed, err := callStore.CloseStale(context.Background())
	if err != nil {
		return err
	}
	if closed > 0 {
		logger.Warn("closed stale calls from previous run", "count", closed)
	}
	return nil
}

var StoresModule = fx.Options(
	fx.Provide(
		ProvideCallStore,
		ProvideCallMetricsStore,
	),
	fx.Invoke(RunMigrations),
)
