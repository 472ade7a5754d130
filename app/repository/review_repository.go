package repository

import (
	"strings"
	"time"

	"github.com/MarcoHauser/LancerDesk/app/models"
	"gorm.io/gorm"
)

// reviewRepository implements the ReviewRepository interface
type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository creates a new review repository instance
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(review *models.ReviewRequest) error {
	return r.db.Create(review).Error
}

func (r *reviewRepository) GetByID(id uint) (*models.ReviewRequest, error) {
	var review models.ReviewRequest
	if err := r.db.First(&review, id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// GetByIDForUser retrieves a review request only if it belongs to the given user.
func (r *reviewRepository) GetByIDForUser(id, userID uint) (*models.ReviewRequest, error) {
	var review models.ReviewRequest
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// GetByShareToken resolves the public share token to its review request.
func (r *reviewRepository) GetByShareToken(token string) (*models.ReviewRequest, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var review models.ReviewRequest
	err := r.db.Preload("Client").Where("share_token = ?", trimmed).First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) ListByUser(userID uint) ([]models.ReviewRequest, error) {
	var reviews []models.ReviewRequest
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&reviews).Error
	return reviews, err
}

// UpdateStatus records an approve or reject decision with reviewer identity.
func (r *reviewRepository) UpdateStatus(id uint, status, reviewerName, reviewerEmail string) error {
	now := time.Now()
	return r.db.Model(&models.ReviewRequest{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            status,
			"reviewer_name":     reviewerName,
			"reviewer_email":    reviewerEmail,
			"status_changed_at": now,
		}).Error
}

func (r *reviewRepository) AddFile(file *models.ReviewFile) error {
	return r.db.Create(file).Error
}

func (r *reviewRepository) ListFiles(reviewRequestID uint) ([]models.ReviewFile, error) {
	var files []models.ReviewFile
	err := r.db.Where("review_request_id = ?", reviewRequestID).
		Order("created_at ASC").Find(&files).Error
	return files, err
}

// GetFile retrieves a file scoped to its review request so callers cannot
// reach across requests with a guessed file ID.
func (r *reviewRepository) GetFile(reviewRequestID, fileID uint) (*models.ReviewFile, error) {
	var file models.ReviewFile
	err := r.db.Where("id = ? AND review_request_id = ?", fileID, reviewRequestID).
		First(&file).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *reviewRepository) AddComment(comment *models.ReviewComment) error {
	return r.db.Create(comment).Error
}

func (r *reviewRepository) ListComments(reviewRequestID uint) ([]models.ReviewComment, error) {
	var comments []models.ReviewComment
	err := r.db.Where("review_request_id = ?", reviewRequestID).
		Order("created_at ASC").Find(&comments).Error
	return comments, err
}
