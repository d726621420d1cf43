package bootstrap

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/fx"

	"github.com/EduardoFdeM/pitchai-backend/docs"
	"github.com/EduardoFdeM/pitchai-backend/internal/call"
	"github.com/EduardoFdeM/pitchai-backend/internal/gateway"
	"github.com/EduardoFdeM/pitchai-backend/internal/model"
)

type HandlerParams struct {
	fx.In

	CallHandler    *call.Handler
	GatewayHandler *gateway.Handler
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	api := e.Group("/v1")

	callsGroup := api.Group("/calls")
	params.CallHandler.RegisterRoutes(callsGroup)
	params.GatewayHandler.RegisterRoutes(callsGroup)

	api.GET("/models", params.CallHandler.ListModels)

	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/asyncapi.yaml", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "application/yaml", docs.AsyncAPISpec)
	})
}

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

func ProvideCallHandler(manager *call.Manager, store *call.Store, resolver *model.Resolver, logger *slog.Logger) *call.Handler {
	return call.NewHandler(manager, store, resolver, logger)
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideCallHandler,
	),
	fx.Invoke(RegisterRoutes),
)
