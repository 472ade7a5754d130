package models

import (
	"time"

	"gorm.io/gorm"
)

// Client is a freelancer's customer. Kept minimal: invoices and review
// requests only need a name and a mail recipient.
type Client struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	User        User           `gorm:"foreignKey:UserID" json:"-"`
	Name        string         `gorm:"type:varchar(200);not null" json:"name" validate:"required,min=1,max=200"`
	Email       string         `gorm:"type:varchar(200)" json:"email" validate:"omitempty,email,max=200"`
	CompanyName string         `gorm:"type:varchar(200)" json:"company_name" validate:"max=200"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
