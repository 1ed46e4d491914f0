package babies

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/nestlogapp/nestlog/pkg/auth"
	"github.com/nestlogapp/nestlog/pkg/errcodes"
	"github.com/nestlogapp/nestlog/pkg/models"
	"github.com/nestlogapp/nestlog/pkg/users"
	"github.com/pkg/errors"
)

type handler struct {
	babyService *Service
	userService *users.Service
}

func (h *handler) caller(c echo.Context) (*models.User, error) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return nil, errcodes.Unauthorized("Authentication required")
	}
	return h.userService.ResolveByIdentity(c.Request().Context(), identity)
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := h.caller(c)
	if err != nil {
		return err
	}

	params := CreateBabyPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	baby, err := h.babyService.Create(ctx, user, CreateOptions{
		Name:      params.Name,
		Birthdate: params.Birthdate,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, baby)
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := h.caller(c)
	if err != nil {
		return err
	}

	babies, err := h.babyService.List(ctx, user.ID)
	if err != nil {
		return err
	}

	resp := struct {
		Babies []*models.Baby `json:"babies"`
	}{babies}

	return c.JSON(http.StatusOK, resp)
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := h.caller(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errcodes.NotFound("Baby")
	}

	role, err := h.babyService.AccessLevel(ctx, user.ID, id)
	if err != nil {
		return err
	}
	if role == "" {
		return errcodes.Forbidden("Access denied to this baby")
	}

	baby, err := h.babyService.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, baby)
}

func (h *handler) grantAccess(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := h.caller(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errcodes.NotFound("Baby")
	}

	role, err := h.babyService.AccessLevel(ctx, user.ID, id)
	if err != nil {
		return err
	}
	if role != models.RoleOwner {
		return errcodes.Forbidden("Only the baby's owner can manage caregivers")
	}

	params := GrantAccessPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// The grantee must have a local record already.
	if _, err := h.userService.Retrieve(ctx, params.UserID); err != nil {
		return err
	}

	caregiver, err := h.babyService.GrantAccess(ctx, id, params.UserID, params.Role)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, caregiver)
}

func (h *handler) revokeAccess(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := h.caller(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errcodes.NotFound("Baby")
	}

	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		return errcodes.NotFound("User")
	}

	role, err := h.babyService.AccessLevel(ctx, user.ID, id)
	if err != nil {
		return err
	}
	if role != models.RoleOwner {
		return errcodes.Forbidden("Only the baby's owner can manage caregivers")
	}
	if userID == user.ID {
		return errcodes.ValidationError("You cannot revoke your own access")
	}

	if err := h.babyService.RevokeAccess(ctx, id, userID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Access revoked"})
}
