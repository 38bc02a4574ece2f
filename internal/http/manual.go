package http

import (
	"net/http"
	"strings"

	"github.com/jmehdipour/officer-portal/internal/http/middleware"
	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmehdipour/officer-portal/internal/service/manual"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

func createManualRequestHandler(manualSvc *manual.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		o, ok := middleware.OfficerFromCtx(c)
		if !ok {
			return errJSON(c, http.StatusUnauthorized, "unauthorized")
		}
		var req manual.CreateInput
		if err := c.Bind(&req); err != nil {
			return bindError(c)
		}
		m, err := manualSvc.Create(c.Request().Context(), o.ID, req)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusCreated, m)
	}
}

func listManualRequestsHandler(manualSvc *manual.Service, own bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		officerID := ""
		if own {
			o, ok := middleware.OfficerFromCtx(c)
			if !ok {
				return errJSON(c, http.StatusUnauthorized, "unauthorized")
			}
			officerID = o.ID
		}
		status := model.ReviewStatus(strings.TrimSpace(c.QueryParam("status")))

		rows, err := manualSvc.List(c.Request().Context(), officerID, status)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"count": len(rows), "results": rows})
	}
}

type approveManualReq struct {
	Credits  decimal.Decimal `json:"credits"`
	Response string          `json:"response"`
}

func approveManualRequestHandler(manualSvc *manual.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		cl, ok := middleware.ClaimsFromCtx(c)
		if !ok {
			return errJSON(c, http.StatusUnauthorized, "unauthorized")
		}
		var req approveManualReq
		if err := c.Bind(&req); err != nil {
			return bindError(c)
		}
		m, err := manualSvc.Approve(c.Request().Context(), c.Param("id"), cl.Subject, req.Credits, req.Response)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, m)
	}
}

type rejectReq struct {
	Response string `json:"response"`
	Reason   string `json:"reason"`
}

func (r rejectReq) text() string {
	if r.Response != "" {
		return r.Response
	}
	return r.Reason
}

func rejectManualRequestHandler(manualSvc *manual.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		cl, ok := middleware.ClaimsFromCtx(c)
		if !ok {
			return errJSON(c, http.StatusUnauthorized, "unauthorized")
		}
		var req rejectReq
		if err := c.Bind(&req); err != nil {
			return bindError(c)
		}
		m, err := manualSvc.Reject(c.Request().Context(), c.Param("id"), cl.Subject, req.text())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, m)
	}
}
