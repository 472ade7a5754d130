package controllers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MarcoHauser/LancerDesk/app/models"
	"github.com/MarcoHauser/LancerDesk/app/repository"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/cache"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/metrics/counter"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/ratelimit"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/usercontext"
)

const reviewTokenCacheTTL = 10 * time.Minute

// ReviewController serves the public, token-addressed review endpoints and
// the authenticated review request creation. Public endpoints never leak
// whether a token exists beyond a generic not-found message.
type ReviewController struct {
	reviews  repository.ReviewRepository
	clients  repository.ClientRepository
	limiter  *ratelimit.Service
	buckets  ratelimit.Buckets
	validate *validator.Validate
}

// NewReviewController creates a review controller from injected dependencies.
func NewReviewController(reviews repository.ReviewRepository, clients repository.ClientRepository, limiter *ratelimit.Service, buckets ratelimit.Buckets) *ReviewController {
	return &ReviewController{
		reviews:  reviews,
		clients:  clients,
		limiter:  limiter,
		buckets:  buckets,
		validate: validator.New(),
	}
}

// HandleCreateReviewRequest creates a review request with a fresh share token.
func (rc *ReviewController) HandleCreateReviewRequest(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	if !user.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	var req struct {
		ClientID    uint   `json:"client_id"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Invalid JSON body"})
	}

	if req.ClientID != 0 {
		if _, err := rc.clients.GetByIDForUser(req.ClientID, user.UserID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Unknown client"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load client"})
		}
	}

	review := &models.ReviewRequest{
		UserID:      user.UserID,
		ClientID:    req.ClientID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		ShareToken:  uuid.NewString(),
		Status:      models.ReviewStatusPending,
	}
	if err := rc.validate.Struct(review); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	if err := rc.reviews.Create(review); err != nil {
		fiberlog.Errorf("create review request for user %d: %v", user.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to create review request"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":     true,
		"request":     review,
		"share_token": review.ShareToken,
	})
}

// HandlePublicReviewFetch resolves a share token to its review request with
// files and comments. Invalid tokens get the same generic 404 regardless of
// why they failed.
func (rc *ReviewController) HandlePublicReviewFetch(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "token is required"})
	}
	token := strings.TrimSpace(req.Token)

	if ok, err := applyRateLimit(c, rc.limiter, rc.buckets.ReviewFetch, token); !ok {
		return err
	}

	review, err := rc.resolveShareToken(token)
	if err != nil {
		return rc.invalidLink(c, err)
	}

	if err := counter.AddReviewView(review.ID); err != nil {
		fiberlog.Debugf("count review view: %v", err)
	}

	files, err := rc.reviews.ListFiles(review.ID)
	if err != nil {
		fiberlog.Errorf("list files for review %d: %v", review.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load review"})
	}
	comments, err := rc.reviews.ListComments(review.ID)
	if err != nil {
		fiberlog.Errorf("list comments for review %d: %v", review.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load review"})
	}

	return c.JSON(fiber.Map{
		"request":  review,
		"files":    files,
		"comments": comments,
	})
}

type publicCommentRequest struct {
	Token          string   `json:"token" validate:"required"`
	ReviewFileID   *uint    `json:"review_file_id"`
	Content        string   `json:"content" validate:"required,min=1,max=2000"`
	CommenterName  string   `json:"commenter_name" validate:"required,min=1,max=150"`
	CommenterEmail string   `json:"commenter_email" validate:"required,email,max=200"`
	XPosition      *float64 `json:"x_position"`
	YPosition      *float64 `json:"y_position"`
}

// HandlePublicReviewComment records reviewer feedback on a review request.
func (rc *ReviewController) HandlePublicReviewComment(c *fiber.Ctx) error {
	var req publicCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Invalid JSON body"})
	}
	req.Token = strings.TrimSpace(req.Token)
	req.CommenterEmail = strings.ToLower(strings.TrimSpace(req.CommenterEmail))
	if err := rc.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	if ok, err := applyRateLimit(c, rc.limiter, rc.buckets.Comment, req.CommenterEmail, req.Token); !ok {
		return err
	}

	review, err := rc.resolveShareToken(req.Token)
	if err != nil {
		return rc.invalidLink(c, err)
	}

	if req.ReviewFileID != nil {
		if _, err := rc.reviews.GetFile(review.ID, *req.ReviewFileID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Unknown file"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load file"})
		}
	}

	comment := &models.ReviewComment{
		ReviewRequestID: review.ID,
		ReviewFileID:    req.ReviewFileID,
		Content:         req.Content,
		CommenterName:   strings.TrimSpace(req.CommenterName),
		CommenterEmail:  req.CommenterEmail,
		XPosition:       req.XPosition,
		YPosition:       req.YPosition,
	}
	if err := rc.reviews.AddComment(comment); err != nil {
		fiberlog.Errorf("add comment to review %d: %v", review.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to save comment"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "comment": comment})
}

type publicStatusRequest struct {
	Token          string `json:"token" validate:"required"`
	Status         string `json:"status" validate:"required,oneof=approved rejected"`
	CommenterName  string `json:"commenter_name" validate:"required,min=1,max=150"`
	CommenterEmail string `json:"commenter_email" validate:"required,email,max=200"`
}

// HandlePublicReviewStatus records an approve or reject decision.
func (rc *ReviewController) HandlePublicReviewStatus(c *fiber.Ctx) error {
	var req publicStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Invalid JSON body"})
	}
	req.Token = strings.TrimSpace(req.Token)
	req.CommenterEmail = strings.ToLower(strings.TrimSpace(req.CommenterEmail))
	if err := rc.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	if ok, err := applyRateLimit(c, rc.limiter, rc.buckets.StatusChange, req.CommenterEmail, req.Token); !ok {
		return err
	}

	review, err := rc.resolveShareToken(req.Token)
	if err != nil {
		return rc.invalidLink(c, err)
	}

	if err := rc.reviews.UpdateStatus(review.ID, req.Status, strings.TrimSpace(req.CommenterName), req.CommenterEmail); err != nil {
		fiberlog.Errorf("update status of review %d: %v", review.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to update status"})
	}

	return c.JSON(fiber.Map{"success": true, "status": req.Status})
}

// resolveShareToken resolves a token to its review request, using the cache
// to keep hot share links off the database.
func (rc *ReviewController) resolveShareToken(token string) (*models.ReviewRequest, error) {
	cacheKey := "review:token:" + token
	if id, err := cache.GetUint(cacheKey); err == nil && id > 0 {
		if review, err := rc.reviews.GetByID(uint(id)); err == nil {
			return review, nil
		}
		// Stale cache entry; fall through to the database and refresh.
		_ = cache.Delete(cacheKey)
	}

	review, err := rc.reviews.GetByShareToken(token)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(cacheKey, strconv.FormatUint(uint64(review.ID), 10), reviewTokenCacheTTL); err != nil {
		fiberlog.Debugf("cache share token: %v", err)
	}
	return review, nil
}

// invalidLink answers every failed token resolution identically so callers
// cannot probe which tokens exist.
func (rc *ReviewController) invalidLink(c *fiber.Ctx, err error) error {
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		fiberlog.Errorf("resolve share token: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load review"})
	}
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "This review link is invalid or has expired"})
}
