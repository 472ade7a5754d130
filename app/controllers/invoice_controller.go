package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/MarcoHauser/LancerDesk/app/models"
	"github.com/MarcoHauser/LancerDesk/app/repository"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/shortener"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/usercontext"
)

// InvoiceController manages minimal invoice records. Amount calculation and
// document rendering happen outside this service; the record only carries
// what the mail flow needs.
type InvoiceController struct {
	invoices repository.InvoiceRepository
	clients  repository.ClientRepository
}

// NewInvoiceController creates an invoice controller from injected dependencies.
func NewInvoiceController(invoices repository.InvoiceRepository, clients repository.ClientRepository) *InvoiceController {
	return &InvoiceController{invoices: invoices, clients: clients}
}

// HandleCreateInvoice creates a draft invoice for one of the user's clients.
func (ic *InvoiceController) HandleCreateInvoice(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	if !user.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	var req struct {
		ClientID   uint   `json:"client_id"`
		Number     string `json:"number"`
		TotalCents int64  `json:"total_cents"`
		Currency   string `json:"currency"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Invalid JSON body"})
	}
	if req.ClientID == 0 || strings.TrimSpace(req.Number) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "client_id and number are required"})
	}
	if req.TotalCents < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "total_cents must not be negative"})
	}

	if _, err := ic.clients.GetByIDForUser(req.ClientID, user.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Unknown client"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load client"})
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "EUR"
	}

	publicToken, err := shortener.GenerateSecureSlug(12)
	if err != nil {
		fiberlog.Errorf("generate invoice token: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to create invoice"})
	}

	invoice := &models.Invoice{
		UserID:      user.UserID,
		ClientID:    req.ClientID,
		Number:      strings.TrimSpace(req.Number),
		TotalCents:  req.TotalCents,
		Currency:    currency,
		Status:      models.InvoiceStatusDraft,
		PublicToken: publicToken,
	}
	if err := ic.invoices.Create(invoice); err != nil {
		fiberlog.Errorf("create invoice for user %d: %v", user.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to create invoice"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "invoice": invoice})
}
