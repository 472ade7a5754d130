package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/MarcoHauser/LancerDesk/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the rate limit service.
type Repository interface {
	// GetCurrent returns the counter row for key whose window_start is not
	// before windowStart, or nil when no current-window row exists. Rows
	// from earlier windows are treated as absent.
	GetCurrent(ctx context.Context, key string, windowStart time.Time) (*models.RateLimit, error)
	// Create inserts a fresh row with count=1. Returns false without error
	// when a concurrent caller created the row first.
	Create(ctx context.Context, key string, windowStart time.Time) (bool, error)
	// Increment bumps the counter by one in a single conditional statement,
	// refusing to pass max. Returns whether a row was updated.
	Increment(ctx context.Context, key string, windowStart time.Time, max int) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a rate limit repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetCurrent(ctx context.Context, key string, windowStart time.Time) (*models.RateLimit, error) {
	var row models.RateLimit
	err := r.db.WithContext(ctx).
		Where("`key` = ? AND window_start >= ?", key, windowStart).
		Order("window_start DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *gormRepository) Create(ctx context.Context, key string, windowStart time.Time) (bool, error) {
	row := models.RateLimit{Key: key, Count: 1, WindowStart: windowStart}
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "key"},
			{Name: "window_start"},
		},
		DoNothing: true,
	}).Create(&row)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) Increment(ctx context.Context, key string, windowStart time.Time, max int) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.RateLimit{}).
		Where("`key` = ? AND window_start >= ? AND count < ?", key, windowStart, max).
		UpdateColumn("count", gorm.Expr("count + 1"))
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
