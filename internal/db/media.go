package db

import "gorm.io/gorm"

// MediaItem 定义相册中的媒体条目
type MediaItem struct {
	gorm.Model
	UserID      string   `gorm:"size:36;not null;index"`
	Title       string
	Description string
	URL         string   `gorm:"not null"`
	Kind        string   `gorm:"size:16;default:image"` // image, video
	Width       int
	Height      int
	Tags        []string `gorm:"type:text;serializer:json"`
	ViewCount   int      `gorm:"not null;default:0"`
	IsFavorite  bool     `gorm:"not null;default:false"`
	Source      string   `gorm:"size:16;default:local"` // local, remote
}
