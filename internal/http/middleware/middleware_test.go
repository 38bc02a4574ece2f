package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmehdipour/officer-portal/internal/service/auth"
	echo "github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeParser map[string]*auth.Claims

func (f fakeParser) Parse(token string) (*auth.Claims, error) {
	if c, ok := f[token]; ok {
		return c, nil
	}
	return nil, auth.ErrInvalidToken
}

type fakeOfficers func(id string) (*model.Officer, error)

func (f fakeOfficers) ActiveOfficer(_ context.Context, id string) (*model.Officer, error) { return f(id) }

var tokens = fakeParser{
	"admin":   {Subject: "a1", Kind: auth.KindAdmin, Role: model.RoleAdmin},
	"mod":     {Subject: "a2", Kind: auth.KindAdmin, Role: model.RoleModerator},
	"officer": {Subject: "o1", Kind: auth.KindOfficer},
	"gone":    {Subject: "o2", Kind: auth.KindOfficer},
}

func serve(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func ok(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

func TestRequireAdmin(t *testing.T) {
	e := echo.New()
	e.GET("/x", ok, RequireAdmin(tokens), RequireRole(model.RoleAdmin))

	assert.Equal(t, http.StatusUnauthorized, serve(e, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, "junk").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, "officer").Code, "officer token on admin route")
	assert.Equal(t, http.StatusForbidden, serve(e, "mod").Code)
	assert.Equal(t, http.StatusNoContent, serve(e, "admin").Code)
}

func TestRequireOfficer(t *testing.T) {
	suspended := false
	loader := fakeOfficers(func(id string) (*model.Officer, error) {
		if id == "o2" {
			return nil, auth.ErrInvalidToken
		}
		if suspended {
			return nil, auth.ErrSuspended
		}
		return &model.Officer{ID: id}, nil
	})

	e := echo.New()
	e.GET("/x", func(c echo.Context) error {
		o, found := OfficerFromCtx(c)
		require.True(t, found)
		return c.String(http.StatusOK, o.ID)
	}, RequireOfficer(tokens, loader))

	rec := serve(e, "officer")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "o1", rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(e, "admin").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, "gone").Code)

	suspended = true
	rec = serve(e, "officer")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "recharge")
}

func TestRateLimitPerOfficer(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	mw := RateLimitMiddleware(RateLimitConfig{
		Redis: rdb, RPS: 2, Window: time.Second, RetryAfterHint: true,
		Now: func() time.Time { return now },
	})

	e := echo.New()
	e.GET("/x", ok, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(ctxOfficerID, c.QueryParam("o"))
			return next(c)
		}
	}, mw)

	call := func(officer string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x?o="+officer, nil))
		return rec
	}

	assert.Equal(t, http.StatusNoContent, call("o1").Code)
	assert.Equal(t, http.StatusNoContent, call("o1").Code)
	rec := call("o1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusNoContent, call("o2").Code)

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusNoContent, call("o1").Code)
}

func TestRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	e := echo.New()
	e.GET("/x", ok, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(ctxOfficerID, "o1")
			return next(c)
		}
	}, RateLimitMiddleware(RateLimitConfig{Redis: rdb, RPS: 1}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestJobKey(t *testing.T) {
	e := echo.New()
	e.POST("/x", ok, JobKeyMiddleware([]string{" k1 ", ""}))

	call := func(key string) int {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		if key != "" {
			req.Header.Set(HeaderJobKey, key)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, call("k1"))
	assert.Equal(t, http.StatusUnauthorized, call("k2"))
	assert.Equal(t, http.StatusUnauthorized, call(""))
}
