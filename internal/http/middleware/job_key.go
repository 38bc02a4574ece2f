package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
)

const HeaderJobKey = "X-Job-Key"

// JobKeyMiddleware authenticates external schedulers by the X-Job-Key header.
// With no keys configured every request is refused.
func JobKeyMiddleware(keys []string) echo.MiddlewareFunc {
	allowed := make([][]byte, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			allowed = append(allowed, []byte(k))
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := strings.TrimSpace(c.Request().Header.Get(HeaderJobKey))
			if key == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing job key"})
			}
			for _, a := range allowed {
				if subtle.ConstantTimeCompare(a, []byte(key)) == 1 {
					return next(c)
				}
			}
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid job key"})
		}
	}
}
