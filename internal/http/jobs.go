package http

import (
	"net/http"

	"github.com/jmehdipour/officer-portal/internal/scheduler"
	"github.com/labstack/echo/v4"
)

func resetExpiredCreditsHandler(resetter scheduler.CreditResetter) echo.HandlerFunc {
	return func(c echo.Context) error {
		report, err := scheduler.ResetExpiredCredits(c.Request().Context(), resetter)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, report)
	}
}
