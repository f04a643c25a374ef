package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smartkeys/keyserver/internal/license/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, license *domain.License) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO licenses (
			id, license_key, user_id, status, source, external_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		license.ID,
		license.LicenseKey,
		license.UserID,
		license.Status,
		license.Source,
		license.ExternalID,
		license.CreatedAt,
		license.UpdatedAt,
	).Error
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, licenseKey string) (*domain.License, error) {
	return r.findOne(ctx, db, `license_key = ?`, licenseKey)
}

// FindByKeyFold matches the key case-insensitively. Activation is forgiving
// about hand-typed keys; verification is not.
func (r *repo) FindByKeyFold(ctx context.Context, db *gorm.DB, licenseKey string) (*domain.License, error) {
	return r.findOne(ctx, db, `UPPER(license_key) = UPPER(?)`, licenseKey)
}

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*domain.License, error) {
	return r.findOne(ctx, db, `external_id = ?`, externalID)
}

func (r *repo) FindByIDForUser(ctx context.Context, db *gorm.DB, id snowflake.ID, userID string) (*domain.License, error) {
	return r.findOne(ctx, db, `id = ? AND user_id = ?`, id, userID)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, args ...any) (*domain.License, error) {
	var item domain.License
	err := db.WithContext(ctx).Raw(
		`SELECT id, license_key, user_id, status, source, external_id, created_at, updated_at
		 FROM licenses
		 WHERE `+where+`
		 LIMIT 1`,
		args...,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.License, error) {
	var items []domain.License
	err := db.WithContext(ctx).Raw(
		`SELECT id, license_key, user_id, status, source, external_id, created_at, updated_at
		 FROM licenses
		 WHERE user_id = ?
		 ORDER BY created_at DESC`,
		userID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE licenses SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		updatedAt,
		id,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM licenses WHERE id = ?`,
		id,
	).Error
}

func (r *repo) InsertActivation(ctx context.Context, db *gorm.DB, activation *domain.Activation) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO activations (
			id, license_id, device_id, device_name, activated_at, last_seen_at
		) VALUES (?, ?, ?, ?, ?, ?)`,
		activation.ID,
		activation.LicenseID,
		activation.DeviceID,
		activation.DeviceName,
		activation.ActivatedAt,
		activation.LastSeenAt,
	).Error
}

func (r *repo) FindActivation(ctx context.Context, db *gorm.DB, licenseID snowflake.ID) (*domain.Activation, error) {
	var item domain.Activation
	err := db.WithContext(ctx).Raw(
		`SELECT id, license_id, device_id, device_name, activated_at, last_seen_at
		 FROM activations
		 WHERE license_id = ?
		 LIMIT 1`,
		licenseID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindActivations(ctx context.Context, db *gorm.DB, licenseIDs []snowflake.ID) ([]domain.Activation, error) {
	if len(licenseIDs) == 0 {
		return nil, nil
	}
	var items []domain.Activation
	err := db.WithContext(ctx).Raw(
		`SELECT id, license_id, device_id, device_name, activated_at, last_seen_at
		 FROM activations
		 WHERE license_id IN ?`,
		licenseIDs,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) TouchActivation(ctx context.Context, db *gorm.DB, id snowflake.ID, deviceName *string, seenAt time.Time) error {
	if deviceName == nil {
		return db.WithContext(ctx).Exec(
			`UPDATE activations SET last_seen_at = ? WHERE id = ?`,
			seenAt,
			id,
		).Error
	}
	return db.WithContext(ctx).Exec(
		`UPDATE activations SET last_seen_at = ?, device_name = ? WHERE id = ?`,
		seenAt,
		deviceName,
		id,
	).Error
}

func (r *repo) DeleteActivation(ctx context.Context, db *gorm.DB, licenseID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM activations WHERE license_id = ?`,
		licenseID,
	).Error
}
