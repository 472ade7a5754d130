package controllers

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MarcoHauser/LancerDesk/app/models"
	"github.com/MarcoHauser/LancerDesk/app/repository"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/billing"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/entitlements"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/ratelimit"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/storage"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/upload"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/usercontext"
)

// UploadController accepts review deliverable uploads into object storage.
type UploadController struct {
	reviews repository.ReviewRepository
	billing billing.Repository
	store   storage.Uploader
	limiter *ratelimit.Service
	buckets ratelimit.Buckets
}

// NewUploadController creates an upload controller from injected dependencies.
func NewUploadController(reviews repository.ReviewRepository, billingRepo billing.Repository, store storage.Uploader, limiter *ratelimit.Service, buckets ratelimit.Buckets) *UploadController {
	return &UploadController{reviews: reviews, billing: billingRepo, store: store, limiter: limiter, buckets: buckets}
}

// HandleReviewFileUpload stores a multipart file for a review request the
// caller owns. Validation covers size ceiling, extension and MIME whitelist,
// and a content sniff against the declared type.
func (uc *UploadController) HandleReviewFileUpload(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	if !user.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	if uc.store == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "storage_not_configured", "message": "Object storage is not configured"})
	}

	profile, err := uc.billing.GetProfileByUserID(c.Context(), user.UserID)
	if err != nil {
		fiberlog.Errorf("load billing profile for user %d: %v", user.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load billing profile"})
	}
	if !entitlements.ForProfile(profile) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "subscription_required", "message": "Your subscription has ended"})
	}

	if ok, err := applyRateLimit(c, uc.limiter, uc.buckets.Upload, userIDKey(user.UserID)); !ok {
		return err
	}

	reviewID, err := strconv.ParseUint(strings.TrimSpace(c.FormValue("review_request_id")), 10, 64)
	if err != nil || reviewID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "review_request_id is required"})
	}

	review, err := uc.reviews.GetByID(uint(reviewID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Review request not found"})
		}
		fiberlog.Errorf("load review %d: %v", reviewID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load review request"})
	}
	if review.UserID != user.UserID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Review request belongs to another user"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "file is required"})
	}

	src, err := fileHeader.Open()
	if err != nil {
		fiberlog.Errorf("open uploaded file: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to read upload"})
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		fiberlog.Errorf("read uploaded file head: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to read upload"})
	}

	declaredType := fileHeader.Header.Get("Content-Type")
	detectedType, err := upload.ValidateReviewFile(fileHeader.Filename, declaredType, fileHeader.Size, head[:n])
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrFileTooLarge):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file_too_large", "message": err.Error()})
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unsupported_file", "message": err.Error()})
		}
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		fiberlog.Errorf("rewind uploaded file: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to read upload"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	key := storage.ObjectKey(review.ID, uuid.NewString(), ext)
	if err := uc.store.Put(ctx, key, src, detectedType); err != nil {
		fiberlog.Errorf("store review file %s: %v", key, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "storage_failed", "message": "Failed to store file"})
	}

	file := &models.ReviewFile{
		ReviewRequestID: review.ID,
		FileName:        filepath.Base(fileHeader.Filename),
		FileSize:        fileHeader.Size,
		ContentType:     detectedType,
		StorageKey:      key,
	}
	if err := uc.reviews.AddFile(file); err != nil {
		fiberlog.Errorf("persist review file %s: %v", key, err)
		// The row is the source of truth; remove the orphaned binary so a
		// retry does not leave unreferenced objects behind.
		if delErr := uc.store.Delete(ctx, key); delErr != nil {
			fiberlog.Errorf("remove orphaned object %s: %v", key, delErr)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to save file record"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "file": file})
}
