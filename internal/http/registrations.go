package http

import (
	"net/http"
	"strings"

	"github.com/jmehdipour/officer-portal/internal/http/middleware"
	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmehdipour/officer-portal/internal/service/registration"
	"github.com/labstack/echo/v4"
)

func submitRegistrationHandler(regSvc *registration.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req registration.Form
		if err := c.Bind(&req); err != nil {
			return bindError(c)
		}
		r, err := regSvc.Submit(c.Request().Context(), req)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusCreated, r)
	}
}

func listRegistrationsHandler(regSvc *registration.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		status := model.ReviewStatus(strings.TrimSpace(c.QueryParam("status")))
		rows, err := regSvc.List(c.Request().Context(), status)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"count": len(rows), "results": rows})
	}
}

func approveRegistrationHandler(regSvc *registration.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		cl, ok := middleware.ClaimsFromCtx(c)
		if !ok {
			return errJSON(c, http.StatusUnauthorized, "unauthorized")
		}
		var req registration.ApproveInput
		if err := c.Bind(&req); err != nil {
			return bindError(c)
		}
		o, err := regSvc.Approve(c.Request().Context(), c.Param("id"), cl.Subject, req)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"officer": o, "status": model.ReviewApproved})
	}
}

func rejectRegistrationHandler(regSvc *registration.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		cl, ok := middleware.ClaimsFromCtx(c)
		if !ok {
			return errJSON(c, http.StatusUnauthorized, "unauthorized")
		}
		var req rejectReq
		if err := c.Bind(&req); err != nil {
			return bindError(c)
		}
		reason := req.Reason
		if reason == "" {
			reason = req.Response
		}
		r, err := regSvc.Reject(c.Request().Context(), c.Param("id"), cl.Subject, reason)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, r)
	}
}
