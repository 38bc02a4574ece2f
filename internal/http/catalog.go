package http

import (
	"net/http"
	"strings"

	"github.com/jmehdipour/officer-portal/internal/service/catalog"
	"github.com/labstack/echo/v4"
)

// ---- Rate plans ----

type createPlanReq struct {
	catalog.PlanInput
	APISettings []catalog.PlanAPIInput `json:"api_settings"`
}

type updatePlanReq struct {
	catalog.PlanPatch
	APISettings *[]catalog.PlanAPIInput `json:"api_settings"`
}

func listPlansHandler(catalogSvc *catalog.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		rows, err := catalogSvc.ListPlans(c.Request().Context())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"count": len(rows), "results": rows})
	}
}

func createPlanHandler(catalogSvc *catalog.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createPlanReq
		if err := c.Bind(&req); err != nil {
			return bindError(c)
		}
		p, err := catalogSvc.CreatePlan(c.Request().Context(), req.PlanInput, req.APISettings)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusCreated, p)
	}
}

func updatePlanHandler(catalogSvc *catalog.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req updatePlanReq
		if err := c.Bind(&req); err != nil {
			return bindError(c)
		}
		p, err := catalogSvc.UpdatePlan(c.Request().Context(), c.Param("id"), req.PlanPatch, req.APISettings)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, p)
	}
}

func deletePlanHandler(catalogSvc *catalog.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := catalogSvc.DeletePlan(c.Request().Context(), c.Param("id")); err != nil {
			return respondError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func listPlanAPIsHandler(catalogSvc *catalog.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		rows, err := catalogSvc.ListPlanAPIs(c.Request().Context(), strings.TrimSpace(c.QueryParam("plan_id")))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"count": len(rows), "results": rows})
	}
}

// ---- API catalog ----

func listAPIsHandler(catalogSvc *catalog.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		rows, err := catalogSvc.ListAPIs(c.Request().Context())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"count": len(rows), "results": rows})
	}
}

func createAPIHandler(catalogSvc *catalog.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req catalog.APIInput
		if err := c.Bind(&req); err != nil {
			return bindError(c)
		}
		a, err := catalogSvc.CreateAPI(c.Request().Context(), req)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusCreated, a.Masked())
	}
}

func updateAPIHandler(catalogSvc *catalog.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req catalog.APIPatch
		if err := c.Bind(&req); err != nil {
			return bindError(c)
		}
		a, err := catalogSvc.UpdateAPI(c.Request().Context(), c.Param("id"), req)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, a.Masked())
	}
}

func deleteAPIHandler(catalogSvc *catalog.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := catalogSvc.DeleteAPI(c.Request().Context(), c.Param("id")); err != nil {
			return respondError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
