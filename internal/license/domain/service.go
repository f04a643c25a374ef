package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ActivationResult is the signed payload returned by Activate. Field order
// and names are part of the desktop client contract: the client verifies the
// HMAC over the exact bytes of this document.
type ActivationResult struct {
	OK            bool   `json:"ok"`
	Bound         bool   `json:"bound"`
	DeviceID      string `json:"device_id"`
	LicenseStatus string `json:"license_status"`
}

// VerifyResult is the signed payload returned by Verify.
type VerifyResult struct {
	OK     bool    `json:"ok"`
	Reason *string `json:"reason"`
}

// ActivationInfo is the activation sub-resource in owner-facing listings.
type ActivationInfo struct {
	DeviceID    string    `json:"device_id"`
	DeviceName  *string   `json:"device_name"`
	ActivatedAt time.Time `json:"activated_at"`
}

// Response is the owner-facing view of a license.
type Response struct {
	ID         snowflake.ID    `json:"id"`
	LicenseKey string          `json:"license_key"`
	Status     string          `json:"status"`
	Source     string          `json:"source"`
	CreatedAt  time.Time       `json:"created_at"`
	Activation *ActivationInfo `json:"activation"`
}

// IssueRequest carries everything needed to create a license from a paid
// event. ExternalID is the idempotency key.
type IssueRequest struct {
	UserID     string
	ExternalID string
	Source     string
}

// Service is the license lifecycle engine.
type Service interface {
	Issue(ctx context.Context, req IssueRequest) (*License, error)
	Activate(ctx context.Context, licenseKey, deviceID string, deviceName *string) (*ActivationResult, error)
	Verify(ctx context.Context, licenseKey, deviceID string) (*VerifyResult, error)
	Revoke(ctx context.Context, licenseID snowflake.ID, userID string) error
	Unbind(ctx context.Context, licenseID snowflake.ID, userID string) error
	CreateTest(ctx context.Context, userID string) (*Response, error)
	Delete(ctx context.Context, licenseID snowflake.ID, userID string) error
	List(ctx context.Context, userID string) ([]Response, error)
}

// Repository is the persistence contract for the two license tables.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, license *License) error
	FindByKey(ctx context.Context, db *gorm.DB, licenseKey string) (*License, error)
	FindByKeyFold(ctx context.Context, db *gorm.DB, licenseKey string) (*License, error)
	FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*License, error)
	FindByIDForUser(ctx context.Context, db *gorm.DB, id snowflake.ID, userID string) (*License, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]License, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string, updatedAt time.Time) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	InsertActivation(ctx context.Context, db *gorm.DB, activation *Activation) error
	FindActivation(ctx context.Context, db *gorm.DB, licenseID snowflake.ID) (*Activation, error)
	FindActivations(ctx context.Context, db *gorm.DB, licenseIDs []snowflake.ID) ([]Activation, error)
	TouchActivation(ctx context.Context, db *gorm.DB, id snowflake.ID, deviceName *string, seenAt time.Time) error
	DeleteActivation(ctx context.Context, db *gorm.DB, licenseID snowflake.ID) error
}
