package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Username  string    `gorm:"uniqueIndex;not null"`
	Password  string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

type ContentModel struct {
	ID               int64  `gorm:"primaryKey;autoIncrement"`
	OwnerID          int64  `gorm:"not null;index"`
	Title            string `gorm:"not null"`
	Description      string
	Platform         string         `gorm:"not null;index"`
	ContentType      string         `gorm:"not null"`
	Brief            string         `gorm:"type:text"`
	GeneratedContent string         `gorm:"type:text;not null"`
	Images           datatypes.JSON `gorm:"type:jsonb"`
	Metadata         datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt        time.Time      `gorm:"not null;index"`
}

type TemplateModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"not null"`
	Platform    string `gorm:"not null;index"`
	ContentType string `gorm:"not null"`
	Template    string `gorm:"type:text;not null"`
	Description string
}
