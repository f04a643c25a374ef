package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("release_not_found")

// Release is a published desktop build.
type Release struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	Version     string       `gorm:"type:text;not null;uniqueIndex:ux_releases_version"`
	Notes       string       `gorm:"type:text;not null"`
	FilePath    string       `gorm:"column:file_path;type:text;not null"`
	SHA256      string       `gorm:"column:sha256;type:text;not null"`
	IsLatest    bool         `gorm:"column:is_latest;not null;default:false"`
	PublishedAt time.Time    `gorm:"column:published_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Release) TableName() string { return "releases" }

// Response is the updater-facing view of a release, with the resolved
// download URL.
type Response struct {
	ID          snowflake.ID `json:"id"`
	Version     string       `json:"version"`
	Notes       string       `json:"notes"`
	SHA256      string       `json:"sha256"`
	PublishedAt time.Time    `json:"published_at"`
	URL         string       `json:"url"`
}

type Service interface {
	Latest(ctx context.Context) (*Response, error)
}

type Repository interface {
	FindLatest(ctx context.Context, db *gorm.DB) (*Release, error)
}
