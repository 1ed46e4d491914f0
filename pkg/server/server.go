package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nestlogapp/nestlog/pkg/auth"
	"github.com/nestlogapp/nestlog/pkg/babies"
	"github.com/nestlogapp/nestlog/pkg/binder"
	"github.com/nestlogapp/nestlog/pkg/config"
	"github.com/nestlogapp/nestlog/pkg/errcodes"
	"github.com/nestlogapp/nestlog/pkg/sync"
	"github.com/nestlogapp/nestlog/pkg/users"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"
)

func New(cfg *config.Config, db *bun.DB) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	authService := auth.NewService(cfg.JWTSecret)
	authMiddleware := auth.NewMiddleware(authService)

	userService := users.RegisterRoutes(e, db, authMiddleware)
	babyService := babies.RegisterRoutes(e, db, userService, authMiddleware)
	sync.RegisterRoutes(e, db, userService, babyService, authMiddleware)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
