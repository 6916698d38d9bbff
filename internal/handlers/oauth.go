package handlers

import (
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hectorcoro13/El-parche-plotter/internal/config"
	"github.com/hectorcoro13/El-parche-plotter/internal/models"
	"github.com/hectorcoro13/El-parche-plotter/internal/services"
	"github.com/hectorcoro13/El-parche-plotter/internal/utils"
)

const (
	oauthStateCookie   = "oauth_state"
	oauthSessionCookie = "auth_session"
)

// OAuthHandler implements the Auth0 login flow: browser redirect, callback
// exchange, and the profile endpoint the frontend polls after the redirect
// lands. Every failure path ends unauthenticated; a half-completed exchange
// never produces a session.
type OAuthHandler struct {
	db    *gorm.DB
	cfg   *config.Config
	auth0 *services.Auth0Service
}

// NewOAuthHandler constructs an OAuthHandler.
func NewOAuthHandler(db *gorm.DB, cfg *config.Config, auth0 *services.Auth0Service) *OAuthHandler {
	return &OAuthHandler{db: db, cfg: cfg, auth0: auth0}
}

// Login redirects the browser to the Auth0 authorize page with a state nonce
// pinned in a short-lived cookie.
func (h *OAuthHandler) Login(c *fiber.Ctx) error {
	if !h.auth0.Configured() {
		return fiber.NewError(fiber.StatusServiceUnavailable, "social login is not configured")
	}

	state := uuid.NewString()
	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		HTTPOnly: true,
		SameSite: "Lax",
		Expires:  time.Now().Add(10 * time.Minute),
	})

	return c.Redirect(h.auth0.AuthorizeURL(state), fiber.StatusTemporaryRedirect)
}

// Callback receives the Auth0 redirect, verifies the state nonce, exchanges
// the code, upserts the user, and sends the browser back to the frontend with
// a session cookie set.
func (h *OAuthHandler) Callback(c *fiber.Ctx) error {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" || state != c.Cookies(oauthStateCookie) {
		return h.failToFrontend(c, "invalid state")
	}
	c.ClearCookie(oauthStateCookie)

	profile, err := h.auth0.Exchange(c.Context(), code)
	if err != nil {
		log.Printf("[OAuth] code exchange failed: %v", err)
		return h.failToFrontend(c, "exchange failed")
	}

	email := strings.ToLower(strings.TrimSpace(profile.Email))
	if email == "" {
		return h.failToFrontend(c, "provider returned no email")
	}

	var user models.User
	err = h.db.Where("email = ?", email).First(&user).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		user = models.User{
			Name:         profile.Name,
			Email:        email,
			ImageProfile: profile.Picture,
			AuthProvider: "auth0",
		}
		if err := h.db.Create(&user).Error; err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		// Refresh picture/name from the provider, keep user-edited fields.
		updates := map[string]interface{}{}
		if user.ImageProfile == "" && profile.Picture != "" {
			updates["image_profile"] = profile.Picture
		}
		if user.Name == "" && profile.Name != "" {
			updates["name"] = profile.Name
		}
		if len(updates) > 0 {
			if err := h.db.Model(&user).Updates(updates).Error; err != nil {
				return err
			}
		}
	}

	if user.IsBlocked {
		return h.failToFrontend(c, "account blocked")
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenExpires)
	if err != nil {
		return h.failToFrontend(c, "token generation failed")
	}

	c.Cookie(&fiber.Cookie{
		Name:     oauthSessionCookie,
		Value:    token,
		HTTPOnly: true,
		SameSite: "Lax",
		Expires:  time.Now().Add(h.cfg.TokenExpires),
	})

	return c.Redirect(h.cfg.FrontendURL+"/callback", fiber.StatusTemporaryRedirect)
}

// Profile exchanges the session cookie for a bearer token plus a fresh user
// profile. The frontend calls this from its /callback page.
func (h *OAuthHandler) Profile(c *fiber.Ctx) error {
	token := c.Cookies(oauthSessionCookie)
	if token == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "no session")
	}

	userID, err := utils.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		c.ClearCookie(oauthSessionCookie)
		return fiber.NewError(fiber.StatusUnauthorized, "invalid session")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		c.ClearCookie(oauthSessionCookie)
		return fiber.NewError(fiber.StatusUnauthorized, "invalid session")
	}
	if user.IsBlocked {
		c.ClearCookie(oauthSessionCookie)
		return fiber.NewError(fiber.StatusUnauthorized, "account blocked")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"token":   token,
		"user":    userPayload(&user),
	})
}

func (h *OAuthHandler) failToFrontend(c *fiber.Ctx, reason string) error {
	log.Printf("[OAuth] login failed: %s", reason)
	return c.Redirect(h.cfg.FrontendURL+"/?auth_error=1", fiber.StatusTemporaryRedirect)
}
