package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hectorcoro13/El-parche-plotter/internal/middleware"
	"github.com/hectorcoro13/El-parche-plotter/internal/models"
	"github.com/hectorcoro13/El-parche-plotter/internal/utils"
)

// UserHandler manages profile and admin user endpoints.
type UserHandler struct {
	db *gorm.DB
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

// userPayload renders a user for API responses. Profile completeness is
// derived here rather than read from a column.
func userPayload(u *models.User) fiber.Map {
	return fiber.Map{
		"id":                   u.ID,
		"name":                 u.Name,
		"email":                u.Email,
		"isAdmin":              u.IsAdmin,
		"isBlocked":            u.IsBlocked,
		"imageProfile":         u.ImageProfile,
		"phone":                u.Phone,
		"address":              u.Address,
		"city":                 u.City,
		"identificationType":   u.IdentificationType,
		"identificationNumber": u.IdentificationNumber,
		"isProfileComplete":    u.ProfileComplete(),
		"created_at":           u.CreatedAt,
	}
}

// GetUser returns a user profile. Users may read only themselves; admins may
// read anyone.
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	currentID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	if id != currentID {
		var current models.User
		if err := h.db.Select("id, is_admin").First(&current, "id = ?", currentID).Error; err != nil {
			return err
		}
		if !current.IsAdmin {
			return fiber.NewError(fiber.StatusForbidden, "cannot read another user's profile")
		}
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": userPayload(&user)})
}

type updateUserRequest struct {
	Name                 *string `json:"name"`
	Phone                *string `json:"phone"`
	Address              *string `json:"address"`
	City                 *string `json:"city"`
	IdentificationType   *string `json:"identificationType"`
	IdentificationNumber *string `json:"identificationNumber"`
}

// UpdateUser applies a partial profile update and returns the fresh profile.
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	currentID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	if id != currentID {
		return fiber.NewError(fiber.StatusForbidden, "cannot update another user's profile")
	}

	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.IdentificationType != nil {
		updates["identification_type"] = *req.IdentificationType
	}
	if req.IdentificationNumber != nil {
		updates["identification_number"] = *req.IdentificationNumber
	}
	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}
	updates["updated_at"] = time.Now()

	if err := h.db.Model(&models.User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return err
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", id).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": userPayload(&user)})
}

// ListUsers returns all registered users with pagination and search (admin).
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.User{})

	if search := c.Query("search"); search != "" {
		query = query.Where("name ILIKE ? OR email ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var users []models.User
	if err := query.Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&users).Error; err != nil {
		return err
	}

	result := make([]fiber.Map, len(users))
	for i := range users {
		result[i] = userPayload(&users[i])
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       result,
		"pagination": pg.Meta(total),
	})
}

// BlockUser toggles the blocked flag on an account (admin). Blocked users fail
// authentication on their next request.
func (h *UserHandler) BlockUser(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}

	if user.IsAdmin {
		return fiber.NewError(fiber.StatusForbidden, "cannot block an administrator")
	}

	user.IsBlocked = !user.IsBlocked
	if err := h.db.Model(&user).Update("is_blocked", user.IsBlocked).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":        user.ID,
			"isBlocked": user.IsBlocked,
		},
	})
}
