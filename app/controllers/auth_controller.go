package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/MarcoHauser/LancerDesk/app/models"
	"github.com/MarcoHauser/LancerDesk/app/repository"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/database"
)

// AuthController covers account creation and API key retrieval. The API is
// key-authenticated, so register and login are the only unauthenticated
// account endpoints and both return a fresh raw key exactly once.
type AuthController struct {
	users repository.UserRepository
}

// NewAuthController creates an auth controller from injected dependencies.
func NewAuthController(users repository.UserRepository) *AuthController {
	return &AuthController{users: users}
}

// HandleRegister creates a user account and issues its first API key.
func (ac *AuthController) HandleRegister(c *fiber.Ctx) error {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Invalid JSON body"})
	}

	user, err := models.CreateUser(strings.TrimSpace(req.Name), strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	user.Status = models.STATUS_ACTIVE

	if _, err := ac.users.GetByEmail(user.Email); err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "email_taken", "message": "An account with this email already exists"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to check email"})
	}

	if err := ac.users.Create(user); err != nil {
		fiberlog.Errorf("create user %s: %v", user.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to create account"})
	}

	rawKey, err := ac.issueKey(user.ID)
	if err != nil {
		fiberlog.Errorf("issue api key for user %d: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to issue API key"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"user":    fiber.Map{"id": user.ID, "name": user.Name, "email": user.Email},
		"api_key": rawKey,
	})
}

// HandleLogin verifies credentials and rotates the account's API key. The
// previous key stops working immediately.
func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Invalid JSON body"})
	}

	user, err := ac.users.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid credentials"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Login failed"})
	}
	if !models.CheckPasswordHash(req.Password, user.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid credentials"})
	}
	if user.Status != models.STATUS_ACTIVE {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "User inactive"})
	}

	rawKey, err := ac.issueKey(user.ID)
	if err != nil {
		fiberlog.Errorf("rotate api key for user %d: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to issue API key"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    fiber.Map{"id": user.ID, "name": user.Name, "email": user.Email},
		"api_key": rawKey,
	})
}

func (ac *AuthController) issueKey(userID uint) (string, error) {
	db := database.GetDB()
	if db == nil {
		return "", errors.New("database unavailable")
	}
	settings, err := models.GetOrCreateUserSettings(db, userID)
	if err != nil {
		return "", err
	}
	if settings.HasActiveAPIKey() {
		settings.RevokeAPIKey()
	}
	rawKey, err := settings.IssueAPIKey()
	if err != nil {
		return "", err
	}
	if err := db.Save(settings).Error; err != nil {
		return "", err
	}
	return rawKey, nil
}
