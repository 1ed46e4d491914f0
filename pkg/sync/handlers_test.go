package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/nestlogapp/nestlog/pkg/auth"
	"github.com/nestlogapp/nestlog/pkg/binder"
	"github.com/nestlogapp/nestlog/pkg/entities"
	"github.com/nestlogapp/nestlog/pkg/errcodes"
	"github.com/nestlogapp/nestlog/pkg/models"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret"

type apiEnv struct {
	*testEnv
	echo *echo.Echo
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	env := newTestEnv(t)

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.Use(logger.Middleware())
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	authMiddleware := auth.NewMiddleware(auth.NewService(testJWTSecret))
	RegisterRoutes(e, env.db, env.userService, env.babyService, authMiddleware)

	return &apiEnv{testEnv: env, echo: e}
}

func bearerToken(t *testing.T, identity string) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: identity,
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

func (e *apiEnv) request(t *testing.T, method, target, identity string, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if identity != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken(t, identity))
	}

	rec := httptest.NewRecorder()
	e.echo.ServeHTTP(rec, req)
	return rec
}

func pushBody(t *testing.T, mutations []Mutation) []byte {
	t.Helper()

	wire := make([]map[string]interface{}, 0, len(mutations))
	for _, m := range mutations {
		wire = append(wire, map[string]interface{}{
			"mutationId": m.MutationID,
			"entityType": m.EntityType,
			"entityId":   m.EntityID,
			"op":         m.Op,
			"payload":    json.RawMessage(m.Payload),
		})
	}
	body, err := json.Marshal(map[string]interface{}{"mutations": wire})
	require.NoError(t, err)
	return body
}

func TestPushEndpoint(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)

	owner := env.createUser(t, "owner@test")
	baby := env.createBaby(t, owner)

	m := createMutation(t, baby.ID, "first bottle")
	rec := env.request(t, http.MethodPost, "/sync/push", "owner@test", pushBody(t, []Mutation{m}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Results []struct {
			MutationID string `json:"mutationId"`
			Status     string `json:"status"`
		} `json:"results"`
		NewCursor *int64 `json:"newCursor"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.Results, 1)
	assert.Equal(t, m.MutationID, resp.Results[0].MutationID)
	assert.Equal(t, StatusSuccess, resp.Results[0].Status)
	require.NotNil(t, resp.NewCursor)
	assert.Positive(t, *resp.NewCursor)
}

func TestPushEndpointUnauthenticated(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)

	rec := env.request(t, http.MethodPost, "/sync/push", "", []byte(`{"mutations":[]}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPushEndpointMissingMutations(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	env.createUser(t, "owner@test")

	// a body without the mutations batch is a bad request, not a
	// validation failure
	rec := env.request(t, http.MethodPost, "/sync/push", "owner@test", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "mutations is required")

	// an explicit empty batch is fine and returns no results
	rec = env.request(t, http.MethodPost, "/sync/push", "owner@test", []byte(`{"mutations":[]}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Results   []json.RawMessage `json:"results"`
		NewCursor *int64            `json:"newCursor"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Results)
	assert.Nil(t, resp.NewCursor)
}

func TestPushEndpointUnknownUser(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)

	// valid token, but the identity was never registered
	rec := env.request(t, http.MethodPost, "/sync/push", "ghost@test", []byte(`{"mutations":[]}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "User not found")
}

func TestPullEndpoint(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	ctx := context.Background()

	owner := env.createUser(t, "owner@test")
	baby := env.createBaby(t, owner)

	m := createMutation(t, baby.ID, "pulled")
	_, _, err := env.syncService.Push(ctx, owner, []Mutation{m})
	require.NoError(t, err)

	target := fmt.Sprintf("/sync/pull?babyId=%d&since=0", baby.ID)
	rec := env.request(t, http.MethodGet, target, "owner@test", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var page struct {
		Changes []struct {
			Type string `json:"type"`
			Op   string `json:"op"`
			ID   string `json:"id"`
		} `json:"changes"`
		NextCursor int64 `json:"nextCursor"`
		HasMore    bool  `json:"hasMore"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))

	require.Len(t, page.Changes, 1)
	assert.Equal(t, entities.TypeFeedLog, page.Changes[0].Type)
	assert.Equal(t, models.OpCreate, page.Changes[0].Op)
	assert.Equal(t, m.EntityID, page.Changes[0].ID)
	assert.Positive(t, page.NextCursor)
	assert.False(t, page.HasMore)
}

func TestPullEndpointValidation(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	env.createUser(t, "owner@test")

	rec := env.request(t, http.MethodGet, "/sync/pull", "owner@test", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "babyId is required")

	rec = env.request(t, http.MethodGet, "/sync/pull?babyId=abc", "owner@test", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "babyId must be numeric")
}

func TestPullEndpointForbidden(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)

	owner := env.createUser(t, "owner@test")
	baby := env.createBaby(t, owner)
	env.createUser(t, "stranger@test")

	target := fmt.Sprintf("/sync/pull?babyId=%d", baby.ID)
	rec := env.request(t, http.MethodGet, target, "stranger@test", nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Access denied to this baby")
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	ctx := context.Background()

	owner := env.createUser(t, "owner@test")
	baby := env.createBaby(t, owner)

	_, _, err := env.syncService.Push(ctx, owner, []Mutation{createMutation(t, baby.ID, "x")})
	require.NoError(t, err)

	target := fmt.Sprintf("/sync/status?babyId=%d", baby.ID)
	rec := env.request(t, http.MethodGet, target, "owner@test", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var status struct {
		BabyID        int64  `json:"babyId"`
		EventCount    int    `json:"eventCount"`
		LatestEventID *int64 `json:"latestEventId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))

	assert.Equal(t, baby.ID, status.BabyID)
	assert.Equal(t, 1, status.EventCount)
	require.NotNil(t, status.LatestEventID)
}
