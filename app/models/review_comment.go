package models

import (
	"time"

	"gorm.io/gorm"
)

// ReviewComment is feedback left by an anonymous reviewer on a review
// request, optionally pinned to a position on a specific file.
type ReviewComment struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	ReviewRequestID uint           `gorm:"not null;index" json:"review_request_id"`
	ReviewFileID    *uint          `gorm:"index" json:"review_file_id,omitempty"`
	Content         string         `gorm:"type:text;not null" json:"content" validate:"required,min=1,max=2000"`
	CommenterName   string         `gorm:"type:varchar(150);not null" json:"commenter_name" validate:"required,min=1,max=150"`
	CommenterEmail  string         `gorm:"type:varchar(200);not null" json:"commenter_email" validate:"required,email,max=200"`
	XPosition       *float64       `json:"x_position,omitempty"`
	YPosition       *float64       `json:"y_position,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}
