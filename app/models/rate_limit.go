package models

import "time"

// RateLimit is one sliding-window counter row. At most one row per
// (key, window_start) pair represents the current window; rows from past
// windows are inert and may be garbage-collected out of band.
type RateLimit struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Key         string    `gorm:"type:varchar(255);not null;index:ux_rate_limits_key_window,unique,priority:1" json:"key"`
	Count       int       `gorm:"not null;default:0" json:"count"`
	WindowStart time.Time `gorm:"not null;index:ux_rate_limits_key_window,unique,priority:2" json:"window_start"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
