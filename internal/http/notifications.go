package http

import (
	"net/http"

	"github.com/jmehdipour/officer-portal/internal/http/middleware"
	"github.com/jmehdipour/officer-portal/internal/service/notification"
	"github.com/labstack/echo/v4"
)

// recipient resolves whose inbox a request touches: nil is the admin console.
type recipient func(c echo.Context) (*string, bool)

func adminInbox(echo.Context) (*string, bool) { return nil, true }

func officerInbox(c echo.Context) (*string, bool) {
	o, ok := middleware.OfficerFromCtx(c)
	if !ok {
		return nil, false
	}
	id := o.ID
	return &id, true
}

func listNotificationsHandler(svc *notification.Service, who recipient) echo.HandlerFunc {
	return func(c echo.Context) error {
		to, ok := who(c)
		if !ok {
			return errJSON(c, http.StatusUnauthorized, "unauthorized")
		}
		limit, _ := page(c, 50, 500)
		inbox, err := svc.List(c.Request().Context(), to, limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, inbox)
	}
}

func markNotificationReadHandler(svc *notification.Service, who recipient) echo.HandlerFunc {
	return func(c echo.Context) error {
		to, ok := who(c)
		if !ok {
			return errJSON(c, http.StatusUnauthorized, "unauthorized")
		}
		if err := svc.MarkRead(c.Request().Context(), to, c.Param("id")); err != nil {
			return respondError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func markAllNotificationsReadHandler(svc *notification.Service, who recipient) echo.HandlerFunc {
	return func(c echo.Context) error {
		to, ok := who(c)
		if !ok {
			return errJSON(c, http.StatusUnauthorized, "unauthorized")
		}
		n, err := svc.MarkAllRead(c.Request().Context(), to)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]int64{"updated": n})
	}
}

func clearNotificationsHandler(svc *notification.Service, who recipient) echo.HandlerFunc {
	return func(c echo.Context) error {
		to, ok := who(c)
		if !ok {
			return errJSON(c, http.StatusUnauthorized, "unauthorized")
		}
		n, err := svc.Clear(c.Request().Context(), to)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]int64{"deleted": n})
	}
}
