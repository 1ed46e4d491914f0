package sync

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
	syncService *Service
	userService *users.Service
}

// caller resolves the authenticated identity to its local user record. A
// missing record is the one request-level 404 the sync endpoints produce.
func (h *handler) caller(c echo.Context) (*models.User, error) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return nil, errcodes.Unauthorized("Authentication required")
	}
	return h.userService.ResolveByIdentity(c.Request().Context(), identity)
}

func (h *handler) push(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := h.caller(c)
	if err != nil {
		return err
	}

	params := PushPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}
	if params.Mutations == nil {
		return errcodes.BadRequest("mutations is required")
	}

	mutations := make([]Mutation, 0, len(params.Mutations))
	for _, m := range params.Mutations {
		mutations = append(mutations, Mutation{
			MutationID: m.MutationID,
			EntityType: m.EntityType,
			EntityID:   m.EntityID,
			Op:         m.Op,
			Payload:    m.Payload,
		})
	}

	results, newCursor, err := h.syncService.Push(ctx, user, mutations)
	if err != nil {
		return err
	}

	resp := struct {
		Results   []MutationResult `json:"results"`
		NewCursor *int64           `json:"newCursor"`
	}{results, newCursor}

	return c.JSON(http.StatusOK, resp)
}

func (h *handler) pull(c echo.Context) error {
	ctx := c.Request().Context()

	babyID, err := requiredBabyID(c)
	if err != nil {
		return err
	}

	user, err := h.caller(c)
	if err != nil {
		return err
	}

	since := optionalInt64(c, "since")
	limit := int(optionalInt64(c, "limit"))

	page, err := h.syncService.Pull(ctx, user, babyID, since, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, page)
}

func (h *handler) status(c echo.Context) error {
	ctx := c.Request().Context()

	babyID, err := requiredBabyID(c)
	if err != nil {
		return err
	}

	user, err := h.caller(c)
	if err != nil {
		return err
	}

	status, err := h.syncService.Status(ctx, user, babyID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, status)
}

func requiredBabyID(c echo.Context) (int64, error) {
	raw := c.QueryParam("babyId")
	if raw == "" {
		return 0, errcodes.BadRequest("babyId is required")
	}
	babyID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errcodes.BadRequest("babyId must be numeric")
	}
	return babyID, nil
}

// optionalInt64 parses an optional numeric query parameter, treating absent
// or malformed values as 0 so the service applies its defaults.
func optionalInt64(c echo.Context, name string) int64 {
	v, err := strconv.ParseInt(c.QueryParam(name), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
