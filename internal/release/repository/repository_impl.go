package repository

import (
	"context"

	"github.com/smartkeys/keyserver/internal/release/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindLatest(ctx context.Context, db *gorm.DB) (*domain.Release, error) {
	var item domain.Release
	err := db.WithContext(ctx).Raw(
		`SELECT id, version, notes, file_path, sha256, is_latest, published_at
		 FROM releases
		 WHERE is_latest = ?
		 LIMIT 1`,
		true,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}
