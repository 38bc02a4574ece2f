package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmehdipour/officer-portal/internal/repository"
	"github.com/jmehdipour/officer-portal/internal/service/reports"
	"github.com/jmehdipour/officer-portal/internal/service/stats"
	echo "github.com/labstack/echo/v4"
)

func listQueryEventsHandler(reportsSvc *reports.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, offset := page(c, 50, 1000)

		f := repository.QueryEventsFilter{
			OfficerID: strings.TrimSpace(c.QueryParam("officer_id")),
			Category:  strings.TrimSpace(c.QueryParam("category")),
			Limit:     limit,
			Offset:    offset,
		}
		if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
			if st := model.QueryStatus(raw); st.Valid() {
				f.Status = string(st)
			}
		}

		events, err := reportsSvc.ListQueryEvents(c.Request().Context(), f)
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(events),
			"results": events,
		})
	}
}

// parseDay accepts RFC 3339 or a bare date.
func parseDay(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation(time.DateOnly, raw, time.Local); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func categoryUsageHandler(reportsSvc *reports.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		from, ok := parseDay(c.QueryParam("from"))
		if !ok {
			return errJSON(c, http.StatusBadRequest, "invalid from")
		}
		to, ok := parseDay(c.QueryParam("to"))
		if !ok {
			return errJSON(c, http.StatusBadRequest, "invalid to")
		}

		rows, err := reportsSvc.CategoryUsage(c.Request().Context(), from, to)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"count": len(rows), "results": rows})
	}
}

func dashboardStatsHandler(statsSvc *stats.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := statsSvc.Dashboard(c.Request().Context())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, s)
	}
}
