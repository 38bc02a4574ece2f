package http

import (
	"net/http"
	"strings"

	"github.com/jmehdipour/officer-portal/internal/http/middleware"
	"github.com/jmehdipour/officer-portal/internal/service/auth"
	"github.com/labstack/echo/v4"
)

type adminLoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func adminLoginHandler(authSvc *auth.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req adminLoginReq
		if err := c.Bind(&req); err != nil {
			return bindError(c)
		}
		if strings.TrimSpace(req.Email) == "" || req.Password == "" {
			return errJSON(c, http.StatusBadRequest, "email and password are required")
		}

		sess, err := authSvc.AdminLogin(c.Request().Context(), req.Email, req.Password)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, sess)
	}
}

// officerLoginReq takes the identifier under any of its usual names.
type officerLoginReq struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Mobile     string `json:"mobile"`
	Password   string `json:"password"`
}

func (r officerLoginReq) id() string {
	for _, v := range []string{r.Identifier, r.Email, r.Mobile} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func officerLoginHandler(authSvc *auth.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req officerLoginReq
		if err := c.Bind(&req); err != nil {
			return bindError(c)
		}
		if req.id() == "" || req.Password == "" {
			return errJSON(c, http.StatusBadRequest, "identifier and password are required")
		}

		sess, err := authSvc.OfficerLogin(c.Request().Context(), req.id(), req.Password)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, sess)
	}
}

func adminMeHandler(authSvc *auth.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		cl, ok := middleware.ClaimsFromCtx(c)
		if !ok {
			return errJSON(c, http.StatusUnauthorized, "unauthorized")
		}
		a, err := authSvc.Admin(c.Request().Context(), cl.Subject)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, a)
	}
}

func officerMeHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		o, ok := middleware.OfficerFromCtx(c)
		if !ok {
			return errJSON(c, http.StatusUnauthorized, "unauthorized")
		}
		return c.JSON(http.StatusOK, o)
	}
}
