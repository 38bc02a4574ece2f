package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jmehdipour/officer-portal/internal/http/middleware"
	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmehdipour/officer-portal/internal/service/credits"
	"github.com/jmehdipour/officer-portal/internal/service/lookup"
	"github.com/labstack/echo/v4"
)

func listLookupsHandler(lookupSvc *lookup.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		o, ok := middleware.OfficerFromCtx(c)
		if !ok {
			return errJSON(c, http.StatusUnauthorized, "unauthorized")
		}
		rows, err := lookupSvc.ListLookups(c.Request().Context(), o.ID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"count": len(rows), "results": rows})
	}
}

func runLookupHandler(lookupSvc *lookup.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		o, ok := middleware.OfficerFromCtx(c)
		if !ok {
			return errJSON(c, http.StatusUnauthorized, "unauthorized")
		}
		// body only: path params would otherwise land in the map
		in := lookup.Input{}
		if err := (&echo.DefaultBinder{}).BindBody(c, &in); err != nil {
			return bindError(c)
		}

		res, err := lookupSvc.Run(c.Request().Context(), o.ID, c.Param("key"), in)
		if err != nil {
			// a failed vendor call is still recorded; hand back the history row
			if errors.Is(err, lookup.ErrLookupFailed) && res != nil {
				return c.JSON(http.StatusBadGateway, map[string]any{
					"error":  strings.TrimPrefix(err.Error(), lookup.ErrLookupFailed.Error()+": "),
					"result": res,
				})
			}
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func queryFilter(c echo.Context) model.QueryFilter {
	limit, offset := page(c, 100, 1000)
	f := model.QueryFilter{
		Category: strings.TrimSpace(c.QueryParam("category")),
		Limit:    limit,
		Offset:   offset,
	}
	if st := model.QueryStatus(strings.TrimSpace(c.QueryParam("status"))); st.Valid() {
		f.Status = st
	}
	return f
}

func listQueriesHandler(lookupSvc *lookup.Service, own bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		f := queryFilter(c)
		if own {
			o, ok := middleware.OfficerFromCtx(c)
			if !ok {
				return errJSON(c, http.StatusUnauthorized, "unauthorized")
			}
			f.OfficerID = o.ID
		} else {
			f.OfficerID = strings.TrimSpace(c.QueryParam("officer_id"))
		}

		rows, err := lookupSvc.ListQueries(c.Request().Context(), f)
		if err != nil {
			return respondError(c, err)
		}
		if rows == nil {
			rows = []model.Query{}
		}
		return c.JSON(http.StatusOK, map[string]any{
			"limit":   f.Limit,
			"offset":  f.Offset,
			"count":   len(rows),
			"results": rows,
		})
	}
}

func officerTransactionsHandler(creditsSvc *credits.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		o, ok := middleware.OfficerFromCtx(c)
		if !ok {
			return errJSON(c, http.StatusUnauthorized, "unauthorized")
		}
		limit, offset := page(c, 100, 1000)
		rows, err := creditsSvc.ListTransactions(c.Request().Context(), o.ID, limit, offset)
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
