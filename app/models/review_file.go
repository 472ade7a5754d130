package models

import (
	"time"

	"gorm.io/gorm"
)

// ReviewFile is an uploaded deliverable attached to a review request. The
// binary lives in object storage under StorageKey.
type ReviewFile struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	ReviewRequestID uint           `gorm:"not null;index" json:"review_request_id"`
	FileName        string         `gorm:"type:varchar(255);not null" json:"file_name"`
	FileSize        int64          `gorm:"not null" json:"file_size"`
	ContentType     string         `gorm:"type:varchar(100);not null" json:"content_type"`
	StorageKey      string         `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}
