package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/ttrnecka/rebbl-stock-market/internal/domain"
	"github.com/ttrnecka/rebbl-stock-market/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeLookup map[int64]*domain.User

func (f fakeLookup) ByExternalID(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func decode(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, 423, StatusFor(domain.ErrMarketClosed))
	assert.Equal(t, 409, StatusFor(&domain.ShareCapExceededError{Code: "FOO", Max: 10}))
	assert.Equal(t, 404, StatusFor(fmt.Errorf("lookup: %w", domain.ErrStockNotFound)))
	assert.Equal(t, 418, StatusFor(fiber.NewError(418, "teapot")))
	assert.Equal(t, 500, StatusFor(errors.New("boom")))
}

func TestErrorHandler(t *testing.T) {
	rdb, _ := testutil.Redis(t)
	app := fiber.New(fiber.Config{ErrorHandler: NewErrorHandler(rdb)})
	app.Get("/closed", func(c *fiber.Ctx) error { return domain.ErrMarketClosed })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("db exploded") })

	resp, err := app.Test(httptest.NewRequest("GET", "/closed", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusLocked, resp.StatusCode)
	out := decode(t, resp.Body)
	assert.Equal(t, "error", out["status"])
	assert.Equal(t, "Market is closed!!!", out["error"].(map[string]interface{})["message"])

	resp, err = app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
	out = decode(t, resp.Body)
	assert.Equal(t, "Internal Server Error", out["error"].(map[string]interface{})["message"])

	entries, err := rdb.LRange(context.Background(), KeyErrorLog, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0], "db exploded")
}

func TestIdentify(t *testing.T) {
	active := &domain.User{ID: uuid.New(), ExternalID: 7, Name: "alice"}
	gone := &domain.User{ID: uuid.New(), ExternalID: 8, Name: "bob", Deleted: true}
	app := fiber.New()
	app.Use(Identify(fakeLookup{7: active, 8: gone}))
	app.Get("/open", func(c *fiber.Ctx) error {
		if u := CurrentUser(c); u != nil {
			return c.SendString(u.Name)
		}
		return c.SendString("anonymous")
	})
	app.Get("/me", RequireUser(), func(c *fiber.Ctx) error {
		return c.SendString(CurrentUser(c).Name)
	})

	cases := []struct {
		path, header string
		code         int
		body         string
	}{
		{"/open", "", 200, "anonymous"},
		{"/open", "7", 200, "alice"},
		{"/open", "99", 200, "anonymous"},
		{"/open", "abc", 400, ""},
		{"/me", "", 401, ""},
		{"/me", "7", 200, "alice"},
		{"/me", "8", 403, ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", tc.path, nil)
		if tc.header != "" {
			req.Header.Set(CoachIDHeader, tc.header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tc.code, resp.StatusCode, "%s %s", tc.path, tc.header)
		if tc.body != "" {
			b, _ := io.ReadAll(resp.Body)
			assert.Equal(t, tc.body, string(b))
		}
	}
}

func TestRequireAdmin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	app := fiber.New()
	app.Post("/admin", RequireAdmin(string(hash)), func(c *fiber.Ctx) error { return c.SendStatus(204) })
	app.Post("/locked", RequireAdmin(""), func(c *fiber.Ctx) error { return c.SendStatus(204) })

	for key, code := range map[string]int{"": 403, "wrong": 403, "s3cret": 204} {
		req := httptest.NewRequest("POST", "/admin", nil)
		if key != "" {
			req.Header.Set(AdminKeyHeader, key)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, code, resp.StatusCode, key)
	}

	req := httptest.NewRequest("POST", "/locked", nil)
	req.Header.Set(AdminKeyHeader, "s3cret")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestTracing(t *testing.T) {
	app := fiber.New()
	app.Use(Tracing(), RouteLogger())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(GetTraceID(c)) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	generated := resp.Header.Get(traceIDHeader)
	_, err = uuid.Parse(generated)
	assert.NoError(t, err)

	known := uuid.NewString()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(traceIDHeader, known)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, known, resp.Header.Get(traceIDHeader))
	b, _ := io.ReadAll(resp.Body)
	assert.Equal(t, known, string(b))
}

func TestTracing_ContextLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	app := fiber.New()
	app.Use(Tracing())
	app.Get("/", func(c *fiber.Ctx) error {
		log.Ctx(c.UserContext()).Info().Msg("inside")
		return nil
	})
	known := uuid.NewString()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(traceIDHeader, known)
	_, err := app.Test(req)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"trace_id":"`+known+`"`)
}

func TestHealthMarker(t *testing.T) {
	rdb, mr := testutil.Redis(t)
	app := fiber.New(fiber.Config{ErrorHandler: NewErrorHandler(nil)})
	app.Use(HealthMarker(rdb))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/fail", func(c *fiber.Ctx) error { return errors.New("boom") })
	app.Get("/health/json", func(c *fiber.Ctx) error { return c.SendString("{}") })

	for _, p := range []string{"/ok", "/ok", "/fail", "/health/json"} {
		_, err := app.Test(httptest.NewRequest("GET", p, nil))
		require.NoError(t, err)
	}
	total, err := mr.Get(KeyReqTotal)
	require.NoError(t, err)
	assert.Equal(t, "3", total)
	errs, err := mr.Get(KeyReqErrors)
	require.NoError(t, err)
	assert.Equal(t, "1", errs)
}

func TestHealthMarker_NoRedis(t *testing.T) {
	app := fiber.New()
	app.Use(HealthMarker(nil))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
