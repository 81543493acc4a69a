package consent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"xs2a-consent-engine/pkg/clock"
	"xs2a-consent-engine/pkg/errutil"
	"xs2a-consent-engine/pkg/repository"
	"xs2a-consent-engine/services/profile"
	"xs2a-consent-engine/services/protection"
)

type Service struct {
	db         *gorm.DB
	repo       repository.Repository[Consent]
	node       *snowflake.Node
	protection *protection.Service
	profile    profile.AspspProfile
	clock      clock.Clock
}

type ServiceParams struct {
	fx.In
	DB         *gorm.DB
	Node       *snowflake.Node
	Protection *protection.Service
	Profile    profile.AspspProfile
	Clock      clock.Clock
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:         p.DB,
		repo:       repository.ProvideStore[Consent](p.DB),
		node:       p.Node,
		protection: p.Protection,
		profile:    p.Profile,
		clock:      p.Clock,
	}
}

type CreateRequest struct {
	Type                   Type
	RecurringIndicator     bool
	FrequencyPerDay        int
	ValidUntil             time.Time
	PsuID                  string
	PsuData                json.RawMessage
	TppAuthorisationNumber string
	TppInfo                json.RawMessage
	Payload                []byte
}

type CreateResponse struct {
	ProtectedID string
	Status      Status
}

// CreateConsent intakes a new consent or payment record in RECEIVED state
// and returns its protected identifier. The internal and external ids
// never leave the process.
func (s *Service) CreateConsent(ctx context.Context, req CreateRequest) (*CreateResponse, error) {
	externalID := uuid.NewString()

	protected := s.protection.EncryptID(externalID)
	if !protected.Ok() {
		return nil, errutil.Internal("failed to protect consent identifier")
	}

	now := s.clock.Now()
	record := &Consent{
		InternalID:             s.node.Generate().Int64(),
		ExternalID:             externalID,
		Type:                   req.Type,
		Status:                 StatusReceived,
		RecurringIndicator:     req.RecurringIndicator,
		TppFrequencyPerDay:     req.FrequencyPerDay,
		FrequencyPerDay:        EffectiveFrequency(req.FrequencyPerDay, s.profile.MaxFrequencyPerDay()),
		ValidUntil:             req.ValidUntil,
		CreatedAt:              now,
		StatusChangedAt:        now,
		PsuID:                  req.PsuID,
		PsuData:                datatypes.JSON(req.PsuData),
		TppAuthorisationNumber: req.TppAuthorisationNumber,
		TppInfo:                datatypes.JSON(req.TppInfo),
	}

	if len(req.Payload) > 0 {
		encrypted := s.protection.EncryptPayload(protected.Value(), req.Payload)
		if !encrypted.Ok() {
			return nil, errutil.Internal("failed to protect consent payload")
		}
		record.EncryptedPayload = encrypted.Value()
	}

	if err := s.repo.Create(ctx, record); err != nil {
		zap.L().Error("failed to create consent", zap.Error(err))
		return nil, errutil.Internal("failed to create consent", errutil.WithErr(err))
	}

	return &CreateResponse{
		ProtectedID: protected.Value(),
		Status:      record.Status,
	}, nil
}

// Resolve maps a protected identifier onto its record. Malformed input and
// cryptographic failures both surface as "unknown consent" so no crypto
// detail leaks to the TPP.
func (s *Service) Resolve(ctx context.Context, protectedID string) (*Consent, error) {
	res := s.protection.DecryptID(protectedID)
	if !res.Ok() {
		return nil, errutil.NotFound("consent not found",
			errutil.WithTppMessage(ErrorTypeFor(TypeAis), errutil.CodeConsentUnknown400))
	}

	record, err := s.repo.FindOne(ctx, &Consent{ExternalID: res.Value()})
	if err != nil {
		zap.L().Error("failed to load consent", zap.Error(err))
		return nil, errutil.Internal("failed to load consent", errutil.WithErr(err))
	}
	if record == nil {
		return nil, errutil.NotFound("consent not found",
			errutil.WithTppMessage(ErrorTypeFor(TypeAis), errutil.CodeConsentUnknown400))
	}
	return record, nil
}

func (s *Service) GetStatus(ctx context.Context, protectedID string) (Status, error) {
	record, err := s.Resolve(ctx, protectedID)
	if err != nil {
		return "", err
	}
	return record.Status, nil
}

// GetPayload decrypts the opaque bank-side payload stored with the record.
func (s *Service) GetPayload(ctx context.Context, protectedID string) ([]byte, error) {
	record, err := s.Resolve(ctx, protectedID)
	if err != nil {
		return nil, err
	}
	if len(record.EncryptedPayload) == 0 {
		return nil, nil
	}

	plain := s.protection.DecryptPayload(protectedID, record.EncryptedPayload)
	if !plain.Ok() {
		return nil, errutil.NotFound("consent not found",
			errutil.WithTppMessage(ErrorTypeFor(record.Type), errutil.CodeConsentUnknown400))
	}
	return plain.Value(), nil
}

// UpdateStatus applies one state-machine transition. The update is
// conditional on the previously loaded status so a concurrent sweep and a
// concurrent PSU update cannot race to an inconsistent
// (status, statusChangedAt) pair.
func (s *Service) UpdateStatus(ctx context.Context, protectedID string, target Status) error {
	if target == "" {
		return ErrStatusRequired
	}

	record, err := s.Resolve(ctx, protectedID)
	if err != nil {
		return err
	}
	return s.transition(ctx, record, target)
}

func (s *Service) transition(ctx context.Context, record *Consent, target Status) error {
	if record.Status == target {
		return nil
	}
	if record.Status.Finalised() {
		return errutil.UnprocessableEntity("consent is in a finalised state",
			errutil.WithTppMessage(ErrorTypeFor(record.Type), errutil.CodeStatusInvalid))
	}

	now := s.clock.Now()
	res := s.db.WithContext(ctx).Model(&Consent{}).
		Where("internal_id = ? AND consent_status = ?", record.InternalID, record.Status).
		Updates(map[string]any{"consent_status": target, "status_changed_at": now})
	if res.Error != nil {
		zap.L().Error("failed to update consent status", zap.Error(res.Error))
		return errutil.Internal("failed to update consent status", errutil.WithErr(res.Error))
	}
	if res.RowsAffected == 0 {
		return errutil.Conflict("consent status changed concurrently")
	}

	record.Status = target
	record.StatusChangedAt = now
	return nil
}

// Confirm marks the record authorised after SCA completion: VALID, or
// PARTIALLY_AUTHORISED when the bank requires multiple PSUs to sign. A
// newly VALID recurring AIS consent supersedes the TPP's older consents
// for the same PSU.
func (s *Service) Confirm(ctx context.Context, protectedID string, allAuthorisationsDone bool) error {
	record, err := s.Resolve(ctx, protectedID)
	if err != nil {
		return err
	}

	target := StatusValid
	if s.profile.MultilevelScaEnabled() && !allAuthorisationsDone {
		target = StatusPartiallyAuthorised
	}
	if err := s.transition(ctx, record, target); err != nil {
		return err
	}

	if target == StatusValid && record.Type == TypeAis && record.RecurringIndicator {
		if err := s.terminateOldConsents(ctx, record); err != nil {
			zap.L().Error("failed to terminate superseded consents", zap.Error(err))
			return errutil.Internal("failed to terminate superseded consents", errutil.WithErr(err))
		}
	}
	return nil
}

// terminateOldConsents closes prior AIS consents of the same TPP and PSU:
// not-yet-confirmed ones are rejected, previously valid ones are
// terminated.
func (s *Service) terminateOldConsents(ctx context.Context, newConsent *Consent) error {
	now := s.clock.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		base := func() *gorm.DB {
			return tx.Model(&Consent{}).
				Where("consent_type = ?", TypeAis).
				Where("tpp_authorisation_number = ?", newConsent.TppAuthorisationNumber).
				Where("psu_id = ?", newConsent.PsuID).
				Where("internal_id <> ?", newConsent.InternalID)
		}

		if err := base().
			Where("consent_status IN ?", []Status{StatusReceived, StatusPartiallyAuthorised}).
			Updates(map[string]any{"consent_status": StatusRejected, "status_changed_at": now}).Error; err != nil {
			return err
		}

		return base().
			Where("consent_status = ?", StatusValid).
			Updates(map[string]any{"consent_status": StatusTerminatedByTpp, "status_changed_at": now}).Error
	})
}

// RecordUsage appends one (date, resource) usage entry, enforcing the
// effective daily access frequency.
func (s *Service) RecordUsage(ctx context.Context, protectedID, resource string) error {
	record, err := s.Resolve(ctx, protectedID)
	if err != nil {
		return err
	}
	if record.Status.Finalised() {
		return errutil.UnprocessableEntity("consent is in a finalised state",
			errutil.WithTppMessage(ErrorTypeFor(record.Type), errutil.CodeStatusInvalid))
	}

	now := s.clock.Now()
	today := startOfDay(now)

	var usedToday int64
	if err := s.db.WithContext(ctx).Model(&Usage{}).
		Where("consent_internal_id = ? AND usage_date >= ?", record.InternalID, today).
		Count(&usedToday).Error; err != nil {
		return errutil.Internal("failed to count consent usages", errutil.WithErr(err))
	}
	if usedToday >= int64(record.FrequencyPerDay) {
		return errutil.New(errutil.StatusTooManyRequests, "daily access frequency exceeded",
			errutil.WithTppMessage(ErrorTypeFor(record.Type), errutil.CodeAccessExceeded))
	}

	usage := &Usage{
		ConsentInternalID: record.InternalID,
		UsageDate:         today,
		Resource:          resource,
	}
	if err := s.db.WithContext(ctx).Create(usage).Error; err != nil {
		return errutil.Internal("failed to record consent usage", errutil.WithErr(err))
	}
	return nil
}

// RevokeByPsu closes the consent on the PSU's initiative.
func (s *Service) RevokeByPsu(ctx context.Context, protectedID string) error {
	return s.UpdateStatus(ctx, protectedID, StatusRevokedByPsu)
}

// TerminateByTpp closes the consent on the TPP's initiative.
func (s *Service) TerminateByTpp(ctx context.Context, protectedID string) error {
	return s.UpdateStatus(ctx, protectedID, StatusTerminatedByTpp)
}

// TerminateByAspsp closes the consent on the bank's initiative.
func (s *Service) TerminateByAspsp(ctx context.Context, protectedID string) error {
	return s.UpdateStatus(ctx, protectedID, StatusTerminatedByAspsp)
}

// Reject closes a consent that failed authorisation.
func (s *Service) Reject(ctx context.Context, protectedID string) error {
	return s.UpdateStatus(ctx, protectedID, StatusRejected)
}

// ErrorTypeFor maps a consent type to the service segment reported in
// TPP error messages.
func ErrorTypeFor(t Type) errutil.ErrorType {
	switch t {
	case TypePis:
		return errutil.ErrorTypePIS400
	case TypePiisAspsp, TypePiisTpp:
		return errutil.ErrorTypePIIS400
	default:
		return errutil.ErrorTypeAIS400
	}
}
