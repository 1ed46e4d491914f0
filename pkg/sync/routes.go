package sync

import (
	"github.com/labstack/echo/v4"
	"github.com/nestlogapp/nestlog/pkg/auth"
	"github.com/nestlogapp/nestlog/pkg/babies"
	"github.com/nestlogapp/nestlog/pkg/users"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers all sync routes.
func RegisterRoutes(e *echo.Echo, db *bun.DB, userService *users.Service, babyService *babies.Service, authMiddleware *auth.Middleware) {
	h := &handler{
		syncService: NewService(db, babyService),
		userService: userService,
	}

	g := e.Group("/sync")
	g.Use(authMiddleware.Authenticate)

	g.POST("/push", h.push)
	g.GET("/pull", h.pull)
	g.GET("/status", h.status)
}
