package response

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopes(t *testing.T) {
	app := fiber.New()
	app.Get("/list", func(c *fiber.Ctx) error { return List(c, "Stocks", []string{"a", "b"}, 2) })
	app.Get("/created", func(c *fiber.Ctx) error { return SuccessCreated(c, "Created", fiber.Map{"id": 1}, nil) })
	app.Get("/bad", func(c *fiber.Ctx) error { return BadRequest(c, "nope") })

	resp, err := app.Test(httptest.NewRequest("GET", "/list", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	var list map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Equal(t, "success", list["status"])
	assert.Equal(t, float64(2), list["metadata"].(map[string]interface{})["count"])

	resp, err = app.Test(httptest.NewRequest("GET", "/created", nil))
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/bad", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
	var bad ErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&bad))
	assert.Equal(t, "error", bad.Status)
	assert.Equal(t, "nope", bad.Error.Message)
	assert.Equal(t, 400, bad.Error.StatusCode)
}
