package requests

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	reqsvc "deedshare-backend/internal/application/requests"
	"deedshare-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRequestHandlers(t *testing.T) *Handlers {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Property{}, &domain.OwnershipStake{},
		&domain.TokenizationRequest{}, &domain.LedgerEvent{},
	))
	return &Handlers{Service: &reqsvc.Service{DB: db}}
}

func sessionUser(address, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id": uuid.New().String(),
			"address": address,
			"role":    role,
		})
		return c.Next()
	}
}

func TestCreateRequest_NoWallet(t *testing.T) {
	h := setupRequestHandlers(t)
	app := fiber.New()
	app.Use(sessionUser("", domain.RoleUser))
	app.Post("/create-request", h.CreateRequest)

	body, _ := json.Marshal(map[string]interface{}{"name": "House"})
	req := httptest.NewRequest("POST", "/create-request", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestCreateRequest_MissingFields(t *testing.T) {
	h := setupRequestHandlers(t)
	app := fiber.New()
	app.Use(sessionUser("0xaaa", domain.RoleUser))
	app.Post("/create-request", h.CreateRequest)

	body, _ := json.Marshal(map[string]interface{}{})
	req := httptest.NewRequest("POST", "/create-request", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestCreateRequest_BadSplit(t *testing.T) {
	h := setupRequestHandlers(t)
	app := fiber.New()
	app.Use(sessionUser("0xaaa", domain.RoleUser))
	app.Post("/create-request", h.CreateRequest)

	body, _ := json.Marshal(map[string]interface{}{
		"name": "House",
		"owners": []map[string]interface{}{
			{"address": "0xaaa", "basis_points": 9000},
		},
	})
	req := httptest.NewRequest("POST", "/create-request", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestRequestLifecycleOverHTTP(t *testing.T) {
	h := setupRequestHandlers(t)
	app := fiber.New()
	app.Use(sessionUser("0xaaa", domain.RoleAdmin))
	app.Post("/create-request", h.CreateRequest)
	app.Post("/:request_id/approve", h.ApproveRequest)
	app.Get("/:request_id", h.GetRequest)

	body, _ := json.Marshal(map[string]interface{}{
		"name":      "Lakeview Duplex",
		"image_url": "https://example.com/house.png",
		"owners": []map[string]interface{}{
			{"address": "0xAAA", "basis_points": 6000},
			{"address": "0xBBB", "basis_points": 4000},
		},
	})
	req := httptest.NewRequest("POST", "/create-request", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	b, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	data, _ := out["data"].(map[string]interface{})
	require.NotNil(t, data)
	assert.Equal(t, "pending", data["status"])
	requestID := int(data["request_id"].(float64))

	req = httptest.NewRequest("POST", "/1/approve", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	req = httptest.NewRequest("GET", "/1", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	b, _ = io.ReadAll(resp.Body)
	out = map[string]interface{}{}
	require.NoError(t, json.Unmarshal(b, &out))
	data, _ = out["data"].(map[string]interface{})
	assert.Equal(t, "approved", data["status"])
	assert.Equal(t, 1, requestID)
}

func TestApproveRequest_NonAdmin(t *testing.T) {
	h := setupRequestHandlers(t)
	app := fiber.New()
	app.Use(sessionUser("0xaaa", domain.RoleUser))
	app.Post("/create-request", h.CreateRequest)
	app.Post("/:request_id/approve", h.ApproveRequest)

	body, _ := json.Marshal(map[string]interface{}{
		"name": "House",
		"owners": []map[string]interface{}{
			{"address": "0xaaa", "basis_points": 10000},
		},
	})
	req := httptest.NewRequest("POST", "/create-request", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)

	req = httptest.NewRequest("POST", "/1/approve", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestApproveRequest_Unknown(t *testing.T) {
	h := setupRequestHandlers(t)
	app := fiber.New()
	app.Use(sessionUser("0xadmin", domain.RoleAdmin))
	app.Post("/:request_id/approve", h.ApproveRequest)

	req := httptest.NewRequest("POST", "/42/approve", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	req = httptest.NewRequest("POST", "/notanumber/approve", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}
