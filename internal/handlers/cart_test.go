package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hectorcoro13/El-parche-plotter/internal/config"
	"github.com/hectorcoro13/El-parche-plotter/internal/middleware"
	"github.com/hectorcoro13/El-parche-plotter/internal/models"
	"github.com/hectorcoro13/El-parche-plotter/internal/utils"
)

type cartHarness struct {
	app   *fiber.App
	db    *gorm.DB
	cfg   *config.Config
	user  models.User
	token string
}

func newCartHarness(t *testing.T) *cartHarness {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "cart.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Category{}, &models.Product{},
		&models.Cart{}, &models.CartItem{},
	))

	user := models.User{Name: "Ana", Email: "ana@example.com"}
	require.NoError(t, db.Create(&user).Error)

	cfg := &config.Config{JWTSecret: "test-secret", TokenExpires: time.Hour}
	token, err := utils.GenerateToken(cfg.JWTSecret, user.ID, cfg.TokenExpires)
	require.NoError(t, err)

	app := fiber.New()
	handler := NewCartHandler(db)
	cart := app.Group("/cart", middleware.AuthMiddleware(db, cfg))
	cart.Get("/", handler.GetCart)
	cart.Post("/add", handler.AddToCart)
	cart.Post("/decrease", handler.DecreaseItem)
	cart.Delete("/clear", handler.ClearCart)
	cart.Post("/sync", handler.SyncCart)

	return &cartHarness{app: app, db: db, cfg: cfg, user: user, token: token}
}

func (h *cartHarness) createProduct(t *testing.T, name string, price float64, stock int) models.Product {
	t.Helper()
	p := models.Product{Name: name, Price: price, Stock: stock}
	require.NoError(t, h.db.Create(&p).Error)
	return p
}

func (h *cartHarness) request(t *testing.T, method, target, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (h *cartHarness) cartItems(t *testing.T) []models.CartItem {
	t.Helper()
	var cart models.Cart
	require.NoError(t, h.db.Preload("Items").Where("user_id = ?", h.user.ID).First(&cart).Error)
	return cart.Items
}

func TestAddToCartEnforcesStockCap(t *testing.T) {
	h := newCartHarness(t)
	p := h.createProduct(t, "Plotter A1", 15000, 2)

	resp := h.request(t, fiber.MethodPost, "/cart/add", h.token,
		fiber.Map{"productId": p.ID, "quantity": 2})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = h.request(t, fiber.MethodPost, "/cart/add", h.token,
		fiber.Map{"productId": p.ID, "quantity": 1})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	items := h.cartItems(t)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestAddToCartRejectsZeroStockProduct(t *testing.T) {
	h := newCartHarness(t)
	p := h.createProduct(t, "Agotado", 9000, 0)

	resp := h.request(t, fiber.MethodPost, "/cart/add", h.token,
		fiber.Map{"productId": p.ID})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Empty(t, h.cartItems(t))
}

func TestAddToCartUnknownProduct(t *testing.T) {
	h := newCartHarness(t)

	resp := h.request(t, fiber.MethodPost, "/cart/add", h.token,
		fiber.Map{"productId": uuid.New()})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = h.request(t, fiber.MethodPost, "/cart/add", h.token,
		fiber.Map{"productId": "not-a-uuid"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestDecreaseRemovesOnlyThatLine(t *testing.T) {
	h := newCartHarness(t)
	a := h.createProduct(t, "Primero", 100, 5)
	b := h.createProduct(t, "Segundo", 200, 5)

	h.request(t, fiber.MethodPost, "/cart/add", h.token, fiber.Map{"productId": a.ID})
	h.request(t, fiber.MethodPost, "/cart/add", h.token, fiber.Map{"productId": b.ID, "quantity": 2})

	// At quantity 1 the line disappears; the other line is untouched.
	resp := h.request(t, fiber.MethodPost, "/cart/decrease", h.token, fiber.Map{"productId": a.ID})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	items := h.cartItems(t)
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity)

	// Above quantity 1 it just decrements.
	resp = h.request(t, fiber.MethodPost, "/cart/decrease", h.token, fiber.Map{"productId": b.ID})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	items = h.cartItems(t)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)

	// Absent products are a no-op, not an error.
	resp = h.request(t, fiber.MethodPost, "/cart/decrease", h.token, fiber.Map{"productId": uuid.New()})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, h.cartItems(t), 1)
}

func TestSyncCartCapsAndDrops(t *testing.T) {
	h := newCartHarness(t)
	a := h.createProduct(t, "En stock", 100, 3)
	b := h.createProduct(t, "Agotado", 200, 0)

	resp := h.request(t, fiber.MethodPost, "/cart/sync", h.token, fiber.Map{
		"items": []fiber.Map{
			{"productId": a.ID, "quantity": 5},         // capped at stock
			{"productId": a.ID, "quantity": 1},         // duplicate, dropped
			{"productId": b.ID, "quantity": 1},         // zero stock, dropped
			{"productId": uuid.New(), "quantity": 1},   // unknown, dropped
			{"productId": "not-a-uuid", "quantity": 1}, // garbage, dropped
		},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	items := h.cartItems(t)
	require.Len(t, items, 1)
	assert.Equal(t, a.ID, items[0].ProductID)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestSyncCartReplacesExistingItems(t *testing.T) {
	h := newCartHarness(t)
	a := h.createProduct(t, "Viejo", 100, 5)
	b := h.createProduct(t, "Nuevo", 200, 5)

	h.request(t, fiber.MethodPost, "/cart/add", h.token, fiber.Map{"productId": a.ID})

	resp := h.request(t, fiber.MethodPost, "/cart/sync", h.token, fiber.Map{
		"items": []fiber.Map{{"productId": b.ID, "quantity": 2}},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	items := h.cartItems(t)
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ProductID)
}

func TestClearCartEmptiesServerCart(t *testing.T) {
	h := newCartHarness(t)
	a := h.createProduct(t, "Plotter", 100, 5)
	h.request(t, fiber.MethodPost, "/cart/add", h.token, fiber.Map{"productId": a.ID})

	resp := h.request(t, fiber.MethodDelete, "/cart/clear", h.token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, h.cartItems(t))
}

func TestCartEndpointsFailClosed(t *testing.T) {
	h := newCartHarness(t)

	// No token, garbage token, and a token for a blocked account all 401.
	resp := h.request(t, fiber.MethodGet, "/cart/", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = h.request(t, fiber.MethodGet, "/cart/", "not-a-token", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	require.NoError(t, h.db.Model(&h.user).Update("is_blocked", true).Error)
	resp = h.request(t, fiber.MethodGet, "/cart/", h.token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestGetCartReturnsEmptyList(t *testing.T) {
	h := newCartHarness(t)

	resp := h.request(t, fiber.MethodGet, "/cart/", h.token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Success bool `json:"success"`
		Data    struct {
			Items []models.CartItem `json:"items"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.True(t, payload.Success)
	assert.NotNil(t, payload.Data.Items)
	assert.Empty(t, payload.Data.Items)
}
