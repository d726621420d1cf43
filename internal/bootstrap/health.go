package bootstrap

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/EduardoFdeM/pitchai-backend/internal/call"
	"github.com/EduardoFdeM/pitchai-backend/internal/gateway"
	"github.com/EduardoFdeM/pitchai-backend/internal/health"
	"github.com/EduardoFdeM/pitchai-backend/internal/model"
)

const version = "1.0.0"

func ProvideHealthHandler(
	db *gorm.DB,
	redis *redis.Client,
	resolver *model.Resolver,
	manager *call.Manager,
	hub *gateway.Hub,
) *health.Handler {
	return health.NewHandler(db, redis, resolver, manager, hub, version)
}

func metricsMiddleware(h *health.Handler) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h.IncrementRequests()
			h.IncrementConnections()
			defer h.DecrementConnections()
			return next(c)
		}
	}
}

func RegisterHealthRoutes(e *echo.Echo, h *health.Handler) {
	e.Use(metricsMiddleware(h))
	h.RegisterRoutes(e)
}

var HealthModule = fx.Options(
	fx.Provide(ProvideHealthHandler),
	fx.Invoke(RegisterHealthRoutes),
)
