package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmehdipour/officer-portal/internal/service/auth"
	echo "github.com/labstack/echo/v4"
)

const (
	ctxClaims    = "claims"
	ctxOfficer   = "officer"
	ctxOfficerID = "officer_id"

	suspendedMessage = "Your account is suspended. Please recharge to activate it."
)

type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// OfficerLoader returns the officer behind a token, or auth.ErrSuspended.
type OfficerLoader interface {
	ActiveOfficer(ctx context.Context, id string) (*model.Officer, error)
}

// ClaimsFromCtx returns the claims stored by RequireAdmin or RequireOfficer.
func ClaimsFromCtx(c echo.Context) (*auth.Claims, bool) {
	cl, ok := c.Get(ctxClaims).(*auth.Claims)
	return cl, ok
}

// OfficerFromCtx returns the officer loaded by RequireOfficer.
func OfficerFromCtx(c echo.Context) (*model.Officer, bool) {
	o, ok := c.Get(ctxOfficer).(*model.Officer)
	return o, ok
}

func bearer(c echo.Context) string {
	h := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func authenticate(c echo.Context, p TokenParser, kind string) (*auth.Claims, error) {
	token := bearer(c)
	if token == "" {
		return nil, c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
	}
	cl, err := p.Parse(token)
	if err != nil || cl.Kind != kind {
		return nil, c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
	}
	return cl, nil
}

// RequireAdmin accepts admin-console tokens. With roles given, only those roles pass.
func RequireAdmin(p TokenParser, roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cl, err := authenticate(c, p, auth.KindAdmin)
			if cl == nil {
				return err
			}
			c.Set(ctxClaims, cl)
			if len(roles) > 0 && !slices.Contains(roles, cl.Role) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "insufficient role"})
			}
			return next(c)
		}
	}
}

// RequireRole narrows a route inside a RequireAdmin group.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cl, ok := ClaimsFromCtx(c)
			if !ok || !slices.Contains(roles, cl.Role) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "insufficient role"})
			}
			return next(c)
		}
	}
}

// RequireOfficer accepts officer tokens and reloads the officer on every
// request so a suspension takes effect before the token expires.
func RequireOfficer(p TokenParser, officers OfficerLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cl, err := authenticate(c, p, auth.KindOfficer)
			if cl == nil {
				return err
			}

			o, err := officers.ActiveOfficer(c.Request().Context(), cl.Subject)
			switch {
			case errors.Is(err, auth.ErrSuspended):
				return c.JSON(http.StatusForbidden, map[string]string{"error": suspendedMessage})
			case errors.Is(err, auth.ErrInvalidToken):
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
			case err != nil:
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "auth error"})
			}

			c.Set(ctxClaims, cl)
			c.Set(ctxOfficer, o)
			c.Set(ctxOfficerID, o.ID)
			return next(c)
		}
	}
}
