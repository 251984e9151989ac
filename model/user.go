package model

import "time"

// User is created on first contact and never mutated afterwards.
type User struct {
	TelegramID int64     `gorm:"primaryKey"`
	JoinedAt   time.Time `gorm:"not null"`
}
