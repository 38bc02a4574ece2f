package http

import (
	"net/http"
	"strings"

	"github.com/jmehdipour/officer-portal/internal/service/credits"
	"github.com/labstack/echo/v4"
)

func listOfficersHandler(creditsSvc *credits.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		rows, err := creditsSvc.ListOfficers(c.Request().Context())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"count": len(rows), "results": rows})
	}
}

func getOfficerHandler(creditsSvc *credits.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		o, err := creditsSvc.GetOfficer(c.Request().Context(), c.Param("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, o)
	}
}

func createOfficerHandler(creditsSvc *credits.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req credits.NewOfficer
		if err := c.Bind(&req); err != nil {
			return bindError(c)
		}
		o, err := creditsSvc.AddOfficer(c.Request().Context(), req)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusCreated, o)
	}
}

func updateOfficerHandler(creditsSvc *credits.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req credits.OfficerPatch
		if err := c.Bind(&req); err != nil {
			return bindError(c)
		}
		o, outcome, err := creditsSvc.UpdateOfficer(c.Request().Context(), c.Param("id"), req)
		if err != nil {
			return respondError(c, err)
		}

		resp := map[string]any{"officer": o, "message": "Officer updated successfully."}
		if outcome != nil {
			resp["plan_expiry"] = outcome
			resp["message"] = "Officer updated successfully. " + outcome.Message
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func deleteOfficerHandler(creditsSvc *credits.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := creditsSvc.DeleteOfficer(c.Request().Context(), c.Param("id")); err != nil {
			return respondError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func renewOfficerHandler(creditsSvc *credits.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		res, err := creditsSvc.RenewPlan(c.Request().Context(), c.Param("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

// ---- Ledger ----

func listTransactionsHandler(creditsSvc *credits.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, offset := page(c, 100, 1000)
		officerID := strings.TrimSpace(c.QueryParam("officer_id"))

		rows, err := creditsSvc.ListTransactions(c.Request().Context(), officerID, limit, offset)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(rows),
			"results": rows,
		})
	}
}

func addTransactionHandler(creditsSvc *credits.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req credits.TransactionInput
		if err := c.Bind(&req); err != nil {
			return bindError(c)
		}
		if req.IdempotencyKey == "" {
			req.IdempotencyKey = c.Request().Header.Get("Idempotency-Key")
		}

		res, err := creditsSvc.AddTransaction(c.Request().Context(), req)
		if err != nil {
			return respondError(c, err)
		}
		if res.Idempotent {
			return c.JSON(http.StatusOK, res)
		}
		return c.JSON(http.StatusCreated, res)
	}
}
