package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"
)

// ReviewRequest is a client-facing review of deliverables, reachable through
// an opaque share token without authentication.
type ReviewRequest struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	UserID          uint           `gorm:"not null;index" json:"user_id"`
	ClientID        uint           `gorm:"index" json:"client_id"`
	Client          Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Title           string         `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=1,max=200"`
	Description     string         `gorm:"type:text" json:"description"`
	ShareToken      string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	Status          string         `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	ViewCount       int64          `gorm:"not null;default:0" json:"view_count"`
	ReviewerName    string         `gorm:"type:varchar(150)" json:"reviewer_name,omitempty"`
	ReviewerEmail   string         `gorm:"type:varchar(200)" json:"reviewer_email,omitempty"`
	StatusChangedAt *time.Time     `gorm:"type:timestamp;default:null" json:"status_changed_at,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}
