package controllers

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/MarcoHauser/LancerDesk/app/models"
	"github.com/MarcoHauser/LancerDesk/app/repository"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/usercontext"
)

// ClientController manages the freelancer's client records.
type ClientController struct {
	clients  repository.ClientRepository
	validate *validator.Validate
}

// NewClientController creates a client controller from injected dependencies.
func NewClientController(clients repository.ClientRepository) *ClientController {
	return &ClientController{clients: clients, validate: validator.New()}
}

// HandleCreateClient creates a client record for the authenticated user.
func (cc *ClientController) HandleCreateClient(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	if !user.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	var req struct {
		Name        string `json:"name"`
		Email       string `json:"email"`
		CompanyName string `json:"company_name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Invalid JSON body"})
	}

	client := &models.Client{
		UserID:      user.UserID,
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		CompanyName: strings.TrimSpace(req.CompanyName),
	}
	if err := cc.validate.Struct(client); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	if err := cc.clients.Create(client); err != nil {
		fiberlog.Errorf("create client for user %d: %v", user.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to create client"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "client": client})
}
