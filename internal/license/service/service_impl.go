package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smartkeys/keyserver/internal/config"
	"github.com/smartkeys/keyserver/internal/license/domain"
	obsmetrics "github.com/smartkeys/keyserver/internal/observability/metrics"
	"github.com/smartkeys/keyserver/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// keyInsertAttempts bounds the retry loop around key generation. A collision
// in the 32^20 keyspace is nearly impossible; hitting the bound twice in a
// row means something else is wrong with the store.
const keyInsertAttempts = 3

const reasonNotActivated = "not_activated_or_mismatch"

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Cfg     config.Config
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	cfg     config.Config
	metrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("license.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		cfg:     p.Cfg,
		metrics: p.Metrics,
	}
}

// Issue creates an active license for a paid event. It is idempotent on
// external_id: redelivered events return the already-issued license. The
// unique index on licenses.external_id closes the race between two
// concurrent deliveries; the loser of the insert re-reads the winner's row.
func (s *Service) Issue(ctx context.Context, req domain.IssueRequest) (*domain.License, error) {
	userID := strings.TrimSpace(req.UserID)
	externalID := strings.TrimSpace(req.ExternalID)
	source := strings.ToLower(strings.TrimSpace(req.Source))
	if externalID == "" || source == "" {
		return nil, domain.ErrInvalidRequest
	}
	if uuid.Validate(userID) != nil {
		return nil, domain.ErrInvalidUser
	}

	existing, err := s.repo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.log.Info("license already issued, skipping",
			zap.String("external_id", externalID),
			zap.Int64("license_id", int64(existing.ID)),
		)
		return existing, nil
	}

	for attempt := 0; attempt < keyInsertAttempts; attempt++ {
		key, err := domain.GenerateKey()
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		license := &domain.License{
			ID:         s.genID.Generate(),
			LicenseKey: key,
			UserID:     userID,
			Status:     domain.StatusActive,
			Source:     source,
			ExternalID: &externalID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		insErr := s.repo.Insert(ctx, s.db, license)
		if insErr == nil {
			s.log.Info("license issued",
				zap.Int64("license_id", int64(license.ID)),
				zap.String("source", source),
				zap.String("external_id", externalID),
			)
			if s.metrics != nil {
				s.metrics.RecordIssued(ctx, source)
			}
			return license, nil
		}
		if !db.IsDuplicateKeyErr(insErr) {
			return nil, insErr
		}

		// The violated index is either external_id (concurrent delivery
		// won) or license_key (collision). Re-read to tell them apart.
		winner, err := s.repo.FindByExternalID(ctx, s.db, externalID)
		if err != nil {
			return nil, err
		}
		if winner != nil {
			return winner, nil
		}
		s.log.Warn("license key collision, retrying", zap.Int("attempt", attempt+1))
	}

	return nil, fmt.Errorf("license key generation exhausted %d attempts", keyInsertAttempts)
}

// Activate binds a device to a license, or refreshes the binding for the
// already-bound device. Two concurrent first-time activations race on the
// insert; the unique index on activations.license_id picks exactly one
// winner and the loser classifies the committed row. Do not replace this
// with a read-then-write.
func (s *Service) Activate(ctx context.Context, licenseKey, deviceID string, deviceName *string) (*domain.ActivationResult, error) {
	licenseKey = strings.TrimSpace(licenseKey)
	deviceID = strings.TrimSpace(deviceID)
	if licenseKey == "" || deviceID == "" {
		return nil, domain.ErrInvalidRequest
	}
	// A key that fails the format check cannot exist in the store.
	if !domain.ValidKeyFormat(licenseKey) {
		return nil, domain.ErrNotFound
	}

	lic, err := s.repo.FindByKeyFold(ctx, s.db, licenseKey)
	if err != nil {
		return nil, err
	}
	if lic == nil {
		return nil, domain.ErrNotFound
	}
	if lic.Status != domain.StatusActive {
		return nil, domain.ErrInactive
	}

	now := time.Now().UTC()
	activation := &domain.Activation{
		ID:          s.genID.Generate(),
		LicenseID:   lic.ID,
		DeviceID:    deviceID,
		DeviceName:  deviceName,
		ActivatedAt: now,
		LastSeenAt:  now,
	}

	insErr := s.repo.InsertActivation(ctx, s.db, activation)
	switch {
	case insErr == nil:
		s.log.Info("license activated",
			zap.Int64("license_id", int64(lic.ID)),
			zap.String("device_id", deviceID),
		)
		if s.metrics != nil {
			s.metrics.RecordActivation(ctx, "bound")
		}
	case db.IsDuplicateKeyErr(insErr):
		existing, err := s.repo.FindActivation(ctx, s.db, lic.ID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("activation missing after unique violation for license %d", lic.ID)
		}
		if existing.DeviceID != deviceID {
			s.log.Warn("activation device mismatch",
				zap.Int64("license_id", int64(lic.ID)),
				zap.String("requested_device", deviceID),
			)
			if s.metrics != nil {
				s.metrics.RecordActivation(ctx, "mismatch")
			}
			return nil, &domain.DeviceMismatchError{BoundDeviceID: existing.DeviceID}
		}
		// Same device checking in again; refresh the heartbeat.
		if err := s.repo.TouchActivation(ctx, s.db, existing.ID, deviceName, now); err != nil {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.RecordActivation(ctx, "heartbeat")
		}
	default:
		return nil, insErr
	}

	return &domain.ActivationResult{
		OK:            true,
		Bound:         true,
		DeviceID:      deviceID,
		LicenseStatus: domain.StatusActive,
	}, nil
}

// Verify is a read-only binding check. A failed verification is an expected
// outcome for the desktop client, not an exceptional one.
func (s *Service) Verify(ctx context.Context, licenseKey, deviceID string) (*domain.VerifyResult, error) {
	licenseKey = strings.TrimSpace(licenseKey)
	deviceID = strings.TrimSpace(deviceID)
	if licenseKey == "" || deviceID == "" {
		return nil, domain.ErrInvalidRequest
	}

	lic, err := s.repo.FindByKey(ctx, s.db, licenseKey)
	if err != nil {
		return nil, err
	}
	if lic == nil {
		return nil, domain.ErrNotFound
	}
	if lic.Status != domain.StatusActive {
		return nil, domain.ErrInactive
	}

	activation, err := s.repo.FindActivation(ctx, s.db, lic.ID)
	if err != nil {
		return nil, err
	}

	ok := activation != nil && activation.DeviceID == deviceID
	result := &domain.VerifyResult{OK: ok}
	if !ok {
		reason := reasonNotActivated
		result.Reason = &reason
	}
	return result, nil
}

// Revoke flips an owned, active license to revoked. There is no un-revoke.
func (s *Service) Revoke(ctx context.Context, licenseID snowflake.ID, userID string) error {
	lic, err := s.ownedLicense(ctx, licenseID, userID)
	if err != nil {
		return err
	}
	if lic.Status != domain.StatusActive {
		return domain.ErrInactive
	}

	if err := s.repo.UpdateStatus(ctx, s.db, lic.ID, domain.StatusRevoked, time.Now().UTC()); err != nil {
		return err
	}
	s.log.Info("license revoked", zap.Int64("license_id", int64(lic.ID)))
	return nil
}

// Unbind releases the current device binding so a new device can activate.
func (s *Service) Unbind(ctx context.Context, licenseID snowflake.ID, userID string) error {
	lic, err := s.ownedLicense(ctx, licenseID, userID)
	if err != nil {
		return err
	}
	if lic.Status != domain.StatusActive {
		return domain.ErrInactive
	}

	if err := s.repo.DeleteActivation(ctx, s.db, lic.ID); err != nil {
		return err
	}
	s.log.Info("license unbound", zap.Int64("license_id", int64(lic.ID)))
	return nil
}

// CreateTest issues a test-source license for the calling user.
func (s *Service) CreateTest(ctx context.Context, userID string) (*domain.Response, error) {
	userID = strings.TrimSpace(userID)
	if uuid.Validate(userID) != nil {
		return nil, domain.ErrInvalidUser
	}

	for attempt := 0; attempt < keyInsertAttempts; attempt++ {
		key, err := domain.GenerateKey()
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		license := &domain.License{
			ID:         s.genID.Generate(),
			LicenseKey: key,
			UserID:     userID,
			Status:     domain.StatusActive,
			Source:     domain.SourceTest,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		insErr := s.repo.Insert(ctx, s.db, license)
		if insErr == nil {
			resp := toResponse(license, nil)
			return &resp, nil
		}
		if !db.IsDuplicateKeyErr(insErr) {
			return nil, insErr
		}
	}

	return nil, fmt.Errorf("license key generation exhausted %d attempts", keyInsertAttempts)
}

// Delete removes a test license and, via the cascading foreign key, its
// activation. Gated to non-production environments and source=test.
func (s *Service) Delete(ctx context.Context, licenseID snowflake.ID, userID string) error {
	if s.cfg.IsProduction() {
		return domain.ErrDeleteDisabled
	}

	lic, err := s.ownedLicense(ctx, licenseID, userID)
	if err != nil {
		return err
	}
	if lic.Source != domain.SourceTest {
		return domain.ErrWrongSource
	}

	if err := s.repo.Delete(ctx, s.db, lic.ID); err != nil {
		return err
	}
	s.log.Info("test license deleted", zap.Int64("license_id", int64(lic.ID)))
	return nil
}

// List returns the caller's licenses, newest first, with the bound device.
func (s *Service) List(ctx context.Context, userID string) ([]domain.Response, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}

	licenses, err := s.repo.ListByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]snowflake.ID, 0, len(licenses))
	for i := range licenses {
		ids = append(ids, licenses[i].ID)
	}
	activations, err := s.repo.FindActivations(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	byLicense := make(map[snowflake.ID]*domain.Activation, len(activations))
	for i := range activations {
		byLicense[activations[i].LicenseID] = &activations[i]
	}

	resp := make([]domain.Response, 0, len(licenses))
	for i := range licenses {
		resp = append(resp, toResponse(&licenses[i], byLicense[licenses[i].ID]))
	}
	return resp, nil
}

func (s *Service) ownedLicense(ctx context.Context, licenseID snowflake.ID, userID string) (*domain.License, error) {
	userID = strings.TrimSpace(userID)
	if licenseID == 0 || userID == "" {
		return nil, domain.ErrInvalidRequest
	}

	lic, err := s.repo.FindByIDForUser(ctx, s.db, licenseID, userID)
	if err != nil {
		return nil, err
	}
	if lic == nil {
		// Not-owned and not-found are deliberately indistinguishable.
		return nil, domain.ErrNotFound
	}
	return lic, nil
}

func toResponse(license *domain.License, activation *domain.Activation) domain.Response {
	resp := domain.Response{
		ID:         license.ID,
		LicenseKey: license.LicenseKey,
		Status:     license.Status,
		Source:     license.Source,
		CreatedAt:  license.CreatedAt,
	}
	if activation != nil {
		resp.Activation = &domain.ActivationInfo{
			DeviceID:    activation.DeviceID,
			DeviceName:  activation.DeviceName,
			ActivatedAt: activation.ActivatedAt,
		}
	}
	return resp
}
