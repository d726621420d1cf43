package bootstrap

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/EduardoFdeM/pitchai-backend/internal/gateway"
)

func ProvideHub(lc fx.Lifecycle, logger *slog.Logger) *gateway.Hub {
	hub := gateway.NewHub(logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			hub.CloseAll()
			return nil
		},
	})
	return hub
}

func ProvideBridge(lc fx.Lifecycle, redisClient *redis.Client, hub *gateway.Hub, logger *slog.Logger) *gateway.Bridge {
	bridge := gateway.NewBridge(redisClient, hub, logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			bridge.Close()
			return nil
		},
	})
	return bridge
}

func ProvideEventSink(lc fx.Lifecycle, hub *gateway.Hub, bridge *gateway.Bridge, logger *slog.Logger) *gateway.Sink {
	sink := gateway.NewSink(hub, bridge, logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sink.Close()
			return nil
		},
	})
	return sink
}

func ProvideGatewayHandler(hub *gateway.Hub, bridge *gateway.Bridge, logger *slog.Logger) *gateway.Handler {
	return gateway.NewHandler(hub, bridge, logger)
}

var GatewayModule = fx.Options(
	fx.Provide(
		ProvideHub,
		ProvideBridge,
		ProvideEventSink,
		ProvideGatewayHandler,
	),
)
