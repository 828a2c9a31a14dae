package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Media is a file uploaded through the CMS (images, brochures).
type Media struct {
	ID        string    `gorm:"primaryKey;type:uuid;not null" json:"id"`
	FileName  string    `gorm:"column:file_name;not null" json:"fileName"`
	Key       string    `gorm:"column:object_key;not null;uniqueIndex" json:"key"`
	URL       string    `gorm:"column:url;not null" json:"url"`
	MimeType  string    `gorm:"column:mime_type" json:"mimeType"`
	Size      int64     `gorm:"column:size_bytes" json:"size"`
	AltText   string    `gorm:"column:alt_text" json:"altText"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Media) TableName() string {
	return "cms_media"
}

func (m *Media) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}
