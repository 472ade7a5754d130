package controllers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/MarcoHauser/LancerDesk/app/models"
	"github.com/MarcoHauser/LancerDesk/app/repository"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/billing"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/constants"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/entitlements"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/env"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/mail"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/ratelimit"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/shortener"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/usercontext"
)

// EmailController sends invoice and review share links to clients.
type EmailController struct {
	invoices repository.InvoiceRepository
	reviews  repository.ReviewRepository
	clients  repository.ClientRepository
	billing  billing.Repository
	mailer   mail.Mailer
	limiter  *ratelimit.Service
	buckets  ratelimit.Buckets
}

// NewEmailController creates an email controller from injected dependencies.
func NewEmailController(invoices repository.InvoiceRepository, reviews repository.ReviewRepository, clients repository.ClientRepository, billingRepo billing.Repository, mailer mail.Mailer, limiter *ratelimit.Service, buckets ratelimit.Buckets) *EmailController {
	return &EmailController{
		invoices: invoices,
		reviews:  reviews,
		clients:  clients,
		billing:  billingRepo,
		mailer:   mailer,
		limiter:  limiter,
		buckets:  buckets,
	}
}

// requireWorkspaceAccess blocks canceled accounts from sending client mail.
func (ec *EmailController) requireWorkspaceAccess(c *fiber.Ctx, userID uint) (bool, error) {
	profile, err := ec.billing.GetProfileByUserID(c.Context(), userID)
	if err != nil {
		fiberlog.Errorf("load billing profile for user %d: %v", userID, err)
		return false, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load billing profile"})
	}
	if !entitlements.ForProfile(profile) {
		return false, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "subscription_required", "message": "Your subscription has ended"})
	}
	return true, nil
}

// HandleSendInvoiceEmail mails the public invoice link to the invoice's
// client and marks the invoice sent.
func (ec *EmailController) HandleSendInvoiceEmail(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	if !user.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	invoiceID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || invoiceID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "invalid invoice id"})
	}

	if ok, err := ec.requireWorkspaceAccess(c, user.UserID); !ok {
		return err
	}

	if ok, err := applyRateLimit(c, ec.limiter, ec.buckets.InvoiceEmail, userIDKey(user.UserID)); !ok {
		return err
	}

	invoice, err := ec.invoices.GetByIDForUser(uint(invoiceID), user.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Invoice not found"})
		}
		fiberlog.Errorf("load invoice %d: %v", invoiceID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load invoice"})
	}
	if strings.TrimSpace(invoice.Client.Email) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "client_missing_email", "message": "The invoice's client has no email address"})
	}

	if invoice.PublicToken == "" {
		token, err := shortener.GenerateSecureSlug(12)
		if err != nil {
			fiberlog.Errorf("generate invoice token: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to prepare invoice link"})
		}
		invoice.PublicToken = token
		if err := ec.invoices.Update(invoice); err != nil {
			fiberlog.Errorf("persist public token for invoice %d: %v", invoice.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to prepare invoice link"})
		}
	}

	link := publicBaseURL() + constants.PublicInvoicePath + invoice.PublicToken
	subject := fmt.Sprintf("Invoice %s from %s", invoice.Number, user.Username)
	body := fmt.Sprintf("Hello %s,\r\n\r\nplease find your invoice %s here:\r\n%s\r\n\r\nBest regards\r\n%s\r\n",
		invoice.Client.Name, invoice.Number, link, user.Username)

	if err := ec.mailer.Send(invoice.Client.Email, subject, body); err != nil {
		fiberlog.Errorf("send invoice %d to %s: %v", invoice.ID, invoice.Client.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "mail_failed", "message": "Failed to send invoice email"})
	}

	if invoice.Status == models.InvoiceStatusDraft {
		if err := ec.invoices.MarkSent(invoice.ID); err != nil {
			fiberlog.Errorf("mark invoice %d sent: %v", invoice.ID, err)
		}
	}

	return c.JSON(fiber.Map{"success": true})
}

// HandleSendReviewEmail mails the share link of a review request to its
// client.
func (ec *EmailController) HandleSendReviewEmail(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	if !user.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	reviewID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || reviewID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "invalid review request id"})
	}

	if ok, err := ec.requireWorkspaceAccess(c, user.UserID); !ok {
		return err
	}

	if ok, err := applyRateLimit(c, ec.limiter, ec.buckets.ReviewRequestEmail, userIDKey(user.UserID)); !ok {
		return err
	}

	review, err := ec.reviews.GetByIDForUser(uint(reviewID), user.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Review request not found"})
		}
		fiberlog.Errorf("load review %d: %v", reviewID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load review request"})
	}

	client, err := ec.clients.GetByIDForUser(review.ClientID, user.UserID)
	if err != nil || strings.TrimSpace(client.Email) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "client_missing_email", "message": "The review request's client has no email address"})
	}

	link := publicBaseURL() + constants.PublicReviewPath + review.ShareToken
	subject := fmt.Sprintf("Please review: %s", review.Title)
	body := fmt.Sprintf("Hello %s,\r\n\r\n%s asked you to review \"%s\". Open the link below to view the files and leave feedback:\r\n%s\r\n\r\nBest regards\r\n%s\r\n",
		client.Name, user.Username, review.Title, link, user.Username)

	if err := ec.mailer.Send(client.Email, subject, body); err != nil {
		fiberlog.Errorf("send review %d to %s: %v", review.ID, client.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "mail_failed", "message": "Failed to send review email"})
	}

	return c.JSON(fiber.Map{"success": true})
}

func publicBaseURL() string {
	return strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", "http://localhost:8080"), "/")
}
