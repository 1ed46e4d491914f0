package babies

import (
	"github.com/labstack/echo/v4"
	"github.com/nestlogapp/nestlog/pkg/auth"
	"github.com/nestlogapp/nestlog/pkg/users"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers all baby routes and returns the service so the
// sync endpoints can share its access checks.
func RegisterRoutes(e *echo.Echo, db *bun.DB, userService *users.Service, authMiddleware *auth.Middleware) *Service {
	babyService := NewService(db)

	h := &handler{
		babyService: babyService,
		userService: userService,
	}

	babies := e.Group("/babies")
	babies.Use(authMiddleware.Authenticate)

	babies.GET("", h.list)
	babies.POST("", h.create)
	babies.GET("/:id", h.retrieve)
	babies.POST("/:id/caregivers", h.grantAccess)
	babies.DELETE("/:id/caregivers/:userId", h.revokeAccess)

	return babyService
}
