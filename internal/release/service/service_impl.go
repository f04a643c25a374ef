package service

import (
	"context"
	"strings"

	"github.com/smartkeys/keyserver/internal/config"
	"github.com/smartkeys/keyserver/internal/release/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
	Cfg  config.Config
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	baseURL string
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("release.service"),
		repo:    p.Repo,
		baseURL: strings.TrimRight(p.Cfg.ReleaseBaseURL, "/"),
	}
}

// Latest returns the currently published desktop build for the updater feed.
func (s *Service) Latest(ctx context.Context) (*domain.Response, error) {
	release, err := s.repo.FindLatest(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if release == nil {
		return nil, domain.ErrNotFound
	}

	return &domain.Response{
		ID:          release.ID,
		Version:     release.Version,
		Notes:       release.Notes,
		SHA256:      release.SHA256,
		PublishedAt: release.PublishedAt,
		URL:         s.publicURL(release.FilePath),
	}, nil
}

func (s *Service) publicURL(filePath string) string {
	path := strings.TrimLeft(filePath, "/")
	if s.baseURL == "" {
		return "/" + path
	}
	return s.baseURL + "/" + path
}
