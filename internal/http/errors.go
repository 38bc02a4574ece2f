package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/jmehdipour/officer-portal/internal/service/auth"
	"github.com/jmehdipour/officer-portal/internal/service/catalog"
	"github.com/jmehdipour/officer-portal/internal/service/credits"
	"github.com/jmehdipour/officer-portal/internal/service/lookup"
	"github.com/jmehdipour/officer-portal/internal/service/manual"
	"github.com/jmehdipour/officer-portal/internal/service/notification"
	"github.com/jmehdipour/officer-portal/internal/service/registration"
	"github.com/jmehdipour/officer-portal/internal/service/reports"
	"github.com/labstack/echo/v4"
)

func errJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

// detail drops a sentinel's "<sentinel>: " prefix so clients see the specific reason.
func detail(err, sentinel error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
		return rest
	}
	return msg
}

// matchAny returns the first target err matches, or nil.
func matchAny(err error, targets ...error) error {
	for _, t := range targets {
		if errors.Is(err, t) {
			return t
		}
	}
	return nil
}

// respondError maps service errors to HTTP statuses. Anything unknown is a 500.
func respondError(c echo.Context, err error) error {
	var short *credits.InsufficientError
	if errors.As(err, &short) {
		return c.JSON(http.StatusPaymentRequired, map[string]any{
			"error":       "insufficient_credits",
			"description": short.Error(),
			"required":    short.Required,
			"available":   short.Available,
		})
	}

	if t := matchAny(err,
		credits.ErrInvalidInput, credits.ErrNegativeCredits,
		catalog.ErrInvalidInput,
		lookup.ErrInvalidInput,
		manual.ErrInvalidInput,
		registration.ErrInvalidInput,
		notification.ErrInvalidInput,
		reports.ErrInvalidRange,
	); t != nil {
		return errJSON(c, http.StatusBadRequest, detail(err, t))
	}

	if t := matchAny(err,
		credits.ErrOfficerNotFound, credits.ErrPlanNotFound,
		catalog.ErrAPINotFound, catalog.ErrPlanNotFound, catalog.ErrOfficerNotFound,
		manual.ErrNotFound,
		registration.ErrNotFound,
		lookup.ErrUnknownLookup,
	); t != nil {
		return errJSON(c, http.StatusNotFound, detail(err, t))
	}

	if t := matchAny(err,
		credits.ErrDuplicateOfficer, credits.ErrNoPlan,
		catalog.ErrDuplicateAPI, catalog.ErrDuplicatePlan,
		manual.ErrNotPending,
		registration.ErrNotPending, registration.ErrDuplicate,
	); t != nil {
		return errJSON(c, http.StatusConflict, err.Error())
	}

	switch {
	case errors.Is(err, credits.ErrInsufficientCredits):
		return errJSON(c, http.StatusPaymentRequired, "insufficient_credits")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return errJSON(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, auth.ErrInvalidToken):
		return errJSON(c, http.StatusUnauthorized, "invalid or expired token")
	case errors.Is(err, auth.ErrSuspended), errors.Is(err, lookup.ErrOfficerSuspended):
		return errJSON(c, http.StatusForbidden, "Your account is suspended. Please recharge to activate it.")
	case errors.Is(err, auth.ErrTooManyAttempts):
		return errJSON(c, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, lookup.ErrServiceUnavailable), errors.Is(err, reports.ErrUnavailable):
		return errJSON(c, http.StatusServiceUnavailable, detail(err, lookup.ErrServiceUnavailable))
	case errors.Is(err, lookup.ErrLookupFailed):
		return errJSON(c, http.StatusBadGateway, detail(err, lookup.ErrLookupFailed))
	}

	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return errJSON(c, http.StatusInternalServerError, "db error")
}

func bindError(c echo.Context) error {
	return errJSON(c, http.StatusBadRequest, "bad request")
}

// page reads limit/offset with the same bounds for every listing.
func page(c echo.Context, def, max int) (int, int) {
	limit, offset := def, 0
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= max {
			limit = n
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
