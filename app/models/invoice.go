package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	InvoiceStatusDraft   = "draft"
	InvoiceStatusSent    = "sent"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusOverdue = "overdue"
)

// Invoice is a thin record used by the invoice mail flow. Amount handling
// happens elsewhere; only the total is stored here.
type Invoice struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	ClientID    uint           `gorm:"not null;index" json:"client_id"`
	Client      Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Number      string         `gorm:"type:varchar(50);not null" json:"number"`
	TotalCents  int64          `gorm:"not null;default:0" json:"total_cents"`
	Currency    string         `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	Status      string         `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	PublicToken string         `gorm:"type:varchar(64);index" json:"-"`
	DueAt       *time.Time     `gorm:"type:timestamp;default:null" json:"due_at,omitempty"`
	SentAt      *time.Time     `gorm:"type:timestamp;default:null" json:"sent_at,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
