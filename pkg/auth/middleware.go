package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/nestlogapp/nestlog/pkg/errcodes"
)

const identityKey = "identity"

// Middleware provides authentication middleware.
type Middleware struct {
	authService *Service
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{
		authService: authService,
	}
}

// Authenticate extracts and validates the bearer token from the
// Authorization header and stores the external identity on the context.
// Requests without a valid token get a 401.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			return errcodes.Unauthorized("Authentication required")
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return errcodes.Unauthorized("Authentication required")
		}

		identity, err := m.authService.ValidateToken(token)
		if err != nil {
			return errcodes.Unauthorized("Invalid or expired token")
		}

		c.Set(identityKey, identity)

		return next(c)
	}
}

// IdentityFromContext retrieves the external identity set by Authenticate.
func IdentityFromContext(c echo.Context) (string, bool) {
	identity, ok := c.Get(identityKey).(string)
	return identity, ok && identity != ""
}
