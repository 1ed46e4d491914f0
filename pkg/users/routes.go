package users

import (
	"github.com/labstack/echo/v4"
	"github.com/nestlogapp/nestlog/pkg/auth"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers all user routes and returns the service for
// other packages to resolve callers with.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware) *Service {
	userService := NewService(db)

	h := &handler{
		userService: userService,
	}

	users := e.Group("/users")
	users.Use(authMiddleware.Authenticate)

	users.POST("/register", h.register)
	users.GET("/me", h.me)

	return userService
}
