package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusActive  = "active"
	StatusRevoked = "revoked"
)

const (
	SourceStripe = "stripe"
	SourceTest   = "test"
	SourceDev    = "dev"
	SourceManual = "manual"
)

// License is a purchased or granted right to use the product.
type License struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	LicenseKey string       `gorm:"column:license_key;type:text;not null;uniqueIndex:ux_licenses_license_key"`
	UserID     string       `gorm:"column:user_id;type:text;not null"`
	Status     string       `gorm:"type:text;not null;default:active"`
	Source     string       `gorm:"type:text;not null"`
	ExternalID *string      `gorm:"column:external_id;type:text;uniqueIndex:ux_licenses_external_id"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (License) TableName() string { return "licenses" }

// Activation binds exactly one device to a license. The unique index on
// license_id is the one-device-per-license policy.
type Activation struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	LicenseID   snowflake.ID `gorm:"column:license_id;not null;uniqueIndex:ux_activations_license_id"`
	DeviceID    string       `gorm:"column:device_id;type:text;not null"`
	DeviceName  *string      `gorm:"column:device_name;type:text"`
	ActivatedAt time.Time    `gorm:"column:activated_at;not null;default:CURRENT_TIMESTAMP"`
	LastSeenAt  time.Time    `gorm:"column:last_seen_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Activation) TableName() string { return "activations" }
