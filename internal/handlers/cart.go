package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hectorcoro13/El-parche-plotter/internal/middleware"
	"github.com/hectorcoro13/El-parche-plotter/internal/models"
)

// CartHandler manages the server-side cart of an authenticated user. Guests
// never reach these endpoints; their cart lives on the client and arrives
// here through Sync at the first login.
type CartHandler struct {
	db *gorm.DB
}

// NewCartHandler constructs a CartHandler.
func NewCartHandler(db *gorm.DB) *CartHandler {
	return &CartHandler{db: db}
}

// loadOrCreateCart fetches the user's cart with items, creating an empty one
// on first use.
func (h *CartHandler) loadOrCreateCart(userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := h.db.Preload("Items").Where("user_id = ?", userID).First(&cart).Error
	if err == gorm.ErrRecordNotFound {
		cart = models.Cart{UserID: userID}
		if err := h.db.Create(&cart).Error; err != nil {
			return nil, err
		}
		return &cart, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func cartPayload(cart *models.Cart) fiber.Map {
	items := cart.Items
	if items == nil {
		items = []models.CartItem{}
	}
	return fiber.Map{"items": items}
}

// GetCart returns the authenticated user's cart. An empty cart is a valid
// response, not an error.
func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	cart, err := h.loadOrCreateCart(userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": cartPayload(cart)})
}

type addToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// AddToCart increments the matching line item or inserts a new one at the
// requested quantity. The catalog stock is the hard cap: a request that would
// exceed it is rejected with no state change.
func (h *CartHandler) AddToCart(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req addToCartRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid productId")
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	cart, err := h.loadOrCreateCart(userID)
	if err != nil {
		return err
	}

	// The stock check and the write happen in one transaction so two
	// concurrent adds for the same line cannot both pass the cap.
	err = h.db.Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, "id = ?", productID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fiber.NewError(fiber.StatusNotFound, "product not found")
			}
			return err
		}

		var item models.CartItem
		err := tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&item).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			if product.Stock <= 0 {
				return fiber.NewError(fiber.StatusConflict, "product out of stock")
			}
			if req.Quantity > product.Stock {
				return fiber.NewError(fiber.StatusConflict, "insufficient stock")
			}
			item = models.CartItem{
				CartID:    cart.ID,
				ProductID: product.ID,
				Name:      product.Name,
				Price:     product.Price,
				Quantity:  req.Quantity,
				ImgURL:    product.ImgURL,
				Stock:     product.Stock,
			}
			if item.ImgURL == "" {
				item.ImgURL = models.NoImage
			}
			return tx.Create(&item).Error
		case err != nil:
			return err
		default:
			if item.Quantity+req.Quantity > product.Stock {
				return fiber.NewError(fiber.StatusConflict, "insufficient stock")
			}
			item.Quantity += req.Quantity
			item.Stock = product.Stock
			return tx.Save(&item).Error
		}
	})
	if err != nil {
		return err
	}

	cart, err = h.loadOrCreateCart(userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": cartPayload(cart)})
}

type decreaseRequest struct {
	ProductID string `json:"productId"`
}

// DecreaseItem lowers the matching line's quantity by one, removing the line
// when it is already at one. Unknown products are a no-op.
func (h *CartHandler) DecreaseItem(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req decreaseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid productId")
	}

	cart, err := h.loadOrCreateCart(userID)
	if err != nil {
		return err
	}

	var item models.CartItem
	err = h.db.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&item).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		// Absent product: nothing to do.
	case err != nil:
		return err
	case item.Quantity > 1:
		item.Quantity--
		if err := h.db.Save(&item).Error; err != nil {
			return err
		}
	default:
		if err := h.db.Delete(&item).Error; err != nil {
			return err
		}
	}

	cart, err = h.loadOrCreateCart(userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": cartPayload(cart)})
}

// ClearCart empties the server-side cart. Called on checkout completion;
// an explicit logout on the client must NOT call this, so the cart survives
// for the next session.
func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	cart, err := h.loadOrCreateCart(userID)
	if err != nil {
		return err
	}

	if err := h.db.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"items": []models.CartItem{}}})
}

type syncItemRequest struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	ImgURL    string  `json:"imgUrl"`
}

type syncCartRequest struct {
	Items []syncItemRequest `json:"items"`
}

// SyncCart bulk-replaces the server cart with the client's item list, used at
// the guest-to-authenticated transition. Quantities are capped at current
// stock and unknown products are dropped; the response is the accepted cart.
func (h *CartHandler) SyncCart(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req syncCartRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	cart, err := h.loadOrCreateCart(userID)
	if err != nil {
		return err
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}

		seen := map[uuid.UUID]bool{}
		for _, in := range req.Items {
			productID, err := uuid.Parse(in.ProductID)
			if err != nil || seen[productID] {
				continue
			}

			var product models.Product
			if err := tx.First(&product, "id = ?", productID).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					continue
				}
				return err
			}
			if product.Stock <= 0 {
				continue
			}

			quantity := in.Quantity
			if quantity <= 0 {
				quantity = 1
			}
			if quantity > product.Stock {
				quantity = product.Stock
			}

			item := models.CartItem{
				CartID:    cart.ID,
				ProductID: product.ID,
				Name:      product.Name,
				Price:     product.Price,
				Quantity:  quantity,
				ImgURL:    product.ImgURL,
				Stock:     product.Stock,
			}
			if item.ImgURL == "" {
				item.ImgURL = models.NoImage
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			seen[productID] = true
		}
		return nil
	})
	if err != nil {
		return err
	}

	cart, err = h.loadOrCreateCart(userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": cartPayload(cart)})
}
