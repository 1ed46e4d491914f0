package users

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nestlogapp/nestlog/pkg/auth"
	"github.com/nestlogapp/nestlog/pkg/errcodes"
	"github.com/pkg/errors"
)

type handler struct {
	userService *Service
}

func (h *handler) register(c echo.Context) error {
	ctx := c.Request().Context()

	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	params := RegisterPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.userService.Register(ctx, RegisterOptions{
		Identity:    identity,
		DisplayName: params.DisplayName,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, user)
}

func (h *handler) me(c echo.Context) error {
	ctx := c.Request().Context()

	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	user, err := h.userService.ResolveByIdentity(ctx, identity)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, user)
}
