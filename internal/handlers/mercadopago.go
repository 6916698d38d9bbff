package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/hectorcoro13/El-parche-plotter/internal/middleware"
	"github.com/hectorcoro13/El-parche-plotter/internal/models"
	"github.com/hectorcoro13/El-parche-plotter/internal/services"
)

// MercadoPagoHandler exposes checkout-preference creation and the payment
// webhook for Mercado Pago.
type MercadoPagoHandler struct {
	db *gorm.DB
	mp *services.MercadoPagoService
}

// NewMercadoPagoHandler constructs MercadoPagoHandler.
func NewMercadoPagoHandler(db *gorm.DB, mp *services.MercadoPagoService) *MercadoPagoHandler {
	return &MercadoPagoHandler{db: db, mp: mp}
}

type preferenceItemRequest struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type createPreferenceRequest struct {
	Items []preferenceItemRequest `json:"items"`
}

// CreatePreference builds a Mercado Pago checkout preference for the user's
// items. Prices are taken from the catalog, not from the request.
func (h *MercadoPagoHandler) CreatePreference(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createPreferenceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Items) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no items to pay for")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		return err
	}

	items := make([]services.PreferenceItem, 0, len(req.Items))
	for _, in := range req.Items {
		var product models.Product
		if err := h.db.First(&product, "id = ?", in.ID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fiber.NewError(fiber.StatusBadRequest, "unknown product in items")
			}
			return err
		}
		quantity := in.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		items = append(items, services.PreferenceItem{
			ID:         product.ID.String(),
			Title:      product.Name,
			Quantity:   quantity,
			UnitPrice:  product.Price,
			CurrencyID: "COP",
		})
	}

	pref, err := h.mp.CreatePreference(c.Context(), services.PreferenceRequest{
		Items:             items,
		PayerEmail:        user.Email,
		ExternalReference: userID.String(),
	})
	if err != nil {
		log.Printf("[MercadoPago] create preference failed: %v", err)
		return fiber.NewError(fiber.StatusBadGateway, "payment provider unavailable")
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"preferenceId": pref.ID,
	})
}

// Webhook receives Mercado Pago payment notifications and reconciles order
// status. Always answers 200 so the provider stops retrying; failures are
// logged and picked up on the next notification.
func (h *MercadoPagoHandler) Webhook(c *fiber.Ctx) error {
	paymentID := c.Query("data.id")
	if paymentID == "" {
		paymentID = c.Query("id")
	}
	if c.Query("type") != "payment" && c.Query("topic") != "payment" {
		return c.SendStatus(fiber.StatusOK)
	}
	if paymentID == "" {
		return c.SendStatus(fiber.StatusOK)
	}

	payment, err := h.mp.GetPayment(c.Context(), paymentID)
	if err != nil {
		log.Printf("[MercadoPago] payment lookup failed for %s: %v", paymentID, err)
		return c.SendStatus(fiber.StatusOK)
	}

	if payment.Status != "approved" {
		return c.SendStatus(fiber.StatusOK)
	}

	if err := h.db.Model(&models.Order{}).
		Where("payment_id = ? AND status = ?", paymentID, "pending").
		Update("status", "paid").Error; err != nil {
		log.Printf("[MercadoPago] order update failed for payment %s: %v", paymentID, err)
	}

	return c.SendStatus(fiber.StatusOK)
}
