package handlers

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hectorcoro13/El-parche-plotter/internal/middleware"
	"github.com/hectorcoro13/El-parche-plotter/internal/models"
	"github.com/hectorcoro13/El-parche-plotter/internal/services"
	"github.com/hectorcoro13/El-parche-plotter/internal/utils"
)

// OrderHandler manages order endpoints.
type OrderHandler struct {
	db       *gorm.DB
	telegram *services.TelegramService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(db *gorm.DB, telegram *services.TelegramService) *OrderHandler {
	return &OrderHandler{db: db, telegram: telegram}
}

type createOrderRequest struct {
	PaymentID string `json:"payment_id"`
}

// CreateOrder places an order for the authenticated user. The server-side
// cart is the source of truth: items and prices come from it, stock is
// re-checked and decremented in the same transaction, and the cart is emptied
// once the order exists.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var cart models.Cart
	if err := h.db.Preload("Items").Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusBadRequest, "cart is empty")
		}
		return err
	}
	if len(cart.Items) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "cart is empty")
	}

	order := models.Order{
		UserID:      userID,
		OrderNumber: generateOrderNumber(),
		Status:      "paid",
		PlacedAt:    time.Now(),
		Currency:    "COP",
		PaymentID:   req.PaymentID,
	}
	if order.PaymentID == "" {
		order.Status = "pending"
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		var total float64
		for _, line := range cart.Items {
			var product models.Product
			if err := tx.First(&product, "id = ?", line.ProductID).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return fiber.NewError(fiber.StatusConflict,
						fmt.Sprintf("product %s is no longer available", line.Name))
				}
				return err
			}
			if product.Stock < line.Quantity {
				return fiber.NewError(fiber.StatusConflict,
					fmt.Sprintf("insufficient stock for %s", product.Name))
			}

			if err := tx.Model(&product).
				Update("stock", gorm.Expr("stock - ?", line.Quantity)).Error; err != nil {
				return err
			}

			item := models.OrderItem{
				ProductID:   &line.ProductID,
				ProductName: line.Name,
				Quantity:    line.Quantity,
				UnitPrice:   line.Price,
				LineTotal:   line.Price * float64(line.Quantity),
			}
			total += item.LineTotal
			order.Items = append(order.Items, item)
		}

		order.TotalAmount = total
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		return tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error
	})
	if err != nil {
		return err
	}

	go h.notifyNewOrder(order, userID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":           order.ID,
			"order_number": order.OrderNumber,
			"status":       order.Status,
			"placed_at":    order.PlacedAt,
			"total":        order.TotalAmount,
			"currency":     order.Currency,
		},
	})
}

// notifyNewOrder sends the admin Telegram notification. Best-effort: failures
// are logged and never affect the order.
func (h *OrderHandler) notifyNewOrder(order models.Order, userID uuid.UUID) {
	if h.telegram == nil {
		return
	}

	userName := "Sin nombre"
	userEmail := ""
	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err == nil {
		if user.Name != "" {
			userName = user.Name
		}
		userEmail = user.Email
	}

	items := make([]services.OrderItemNotification, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, services.OrderItemNotification{
			Name:     it.ProductName,
			Quantity: it.Quantity,
			Price:    it.UnitPrice,
		})
	}

	notification := services.OrderNotification{
		OrderNumber: order.OrderNumber,
		Items:       items,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
		UserName:    userName,
		UserEmail:   userEmail,
		Status:      order.Status,
	}

	if err := h.telegram.NotifyNewOrder(notification); err != nil {
		log.Printf("[Order] Telegram notification failed for %s: %v", order.OrderNumber, err)
	}
}

// ListOrders returns orders for the authenticated user.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	query := h.db.Where("user_id = ?", userID).Model(&models.Order{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.Preload("Items").
		Order("placed_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       orders,
		"pagination": pg.Meta(total),
	})
}

// GetOrder returns a single order belonging to the authenticated user.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.db.Preload("Items").
		First(&order, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

// generateOrderNumber builds the human-readable order reference. The date
// keeps it sortable in the back office; the uuid fragment keeps it unique
// under the order_number index so a checkout never fails on a collision.
func generateOrderNumber() string {
	ref := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return fmt.Sprintf("EPP-%s-%s", time.Now().Format("20060102"), ref[:10])
}
