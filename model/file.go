// Package model defines database models
package model

import "time"

type MediaKind string

const (
	KindDocument MediaKind = "document"
	KindPhoto    MediaKind = "photo"
	KindVideo    MediaKind = "video"
)

// File is one shared file. The token is the only way to reach it and
// never changes once assigned.
type File struct {
	Token string `gorm:"primaryKey"`

	// Telegram file reference used for delivery. These can go stale on
	// Telegram's side, in which case FileURL still resolves
	FileID  string
	FileURL string

	OwnerID    int64     `gorm:"index"`
	Kind       MediaKind `gorm:"not null"`
	UploadedAt time.Time `gorm:"index;not null"`
}
