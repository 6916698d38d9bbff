package handlers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hectorcoro13/El-parche-plotter/internal/config"
	"github.com/hectorcoro13/El-parche-plotter/internal/middleware"
	"github.com/hectorcoro13/El-parche-plotter/internal/models"
)

// FileHandler stores uploaded images under the configured directory and
// writes the public URL back onto the owning record.
type FileHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

// NewFileHandler constructs FileHandler.
func NewFileHandler(db *gorm.DB, cfg *config.Config) *FileHandler {
	return &FileHandler{db: db, cfg: cfg}
}

var allowedImageExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// UploadProductImage attaches an image to a product (admin).
func (h *FileHandler) UploadProductImage(c *fiber.Ctx) error {
	productID, err := uuid.Parse(c.Params("productId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}

	var product models.Product
	if err := h.db.First(&product, "id = ?", productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	url, err := h.saveUpload(c, "products", productID.String())
	if err != nil {
		return err
	}

	if err := h.db.Model(&product).Update("img_url", url).Error; err != nil {
		return err
	}
	product.ImgURL = url

	return c.JSON(fiber.Map{"success": true, "data": product})
}

// UploadProfileImage attaches an avatar to the authenticated user's profile
// and returns the fresh profile.
func (h *FileHandler) UploadProfileImage(c *fiber.Ctx) error {
	currentID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}
	if userID != currentID {
		return fiber.NewError(fiber.StatusForbidden, "cannot change another user's picture")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		return err
	}

	url, err := h.saveUpload(c, "profiles", userID.String())
	if err != nil {
		return err
	}

	if err := h.db.Model(&user).Update("image_profile", url).Error; err != nil {
		return err
	}
	user.ImageProfile = url

	return c.JSON(fiber.Map{"success": true, "data": userPayload(&user)})
}

// saveUpload validates and stores the multipart "file" part, returning the
// public URL.
func (h *FileHandler) saveUpload(c *fiber.Ctx, kind, owner string) (string, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "file is required")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedImageExt[ext] {
		return "", fiber.NewError(fiber.StatusBadRequest, "unsupported image type")
	}
	if fileHeader.Size > 5<<20 {
		return "", fiber.NewError(fiber.StatusBadRequest, "image larger than 5MB")
	}

	dir := filepath.Join(h.cfg.UploadDir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s%s", owner, ext)
	if err := c.SaveFile(fileHeader, filepath.Join(dir, name)); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/uploads/%s/%s", h.cfg.PublicBaseURL, kind, name), nil
}
