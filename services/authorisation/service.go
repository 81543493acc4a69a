package authorisation

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"xs2a-consent-engine/pkg/clock"
	"xs2a-consent-engine/pkg/errutil"
	"xs2a-consent-engine/pkg/repository"
	"xs2a-consent-engine/services/consent"
	"xs2a-consent-engine/services/profile"
)

type Service struct {
	db       *gorm.DB
	repo     repository.Repository[Authorisation]
	consents *consent.Service
	profile  profile.AspspProfile
	clock    clock.Clock
	strategy ScaStrategy

	stageCheck      StageCheckValidator
	statusChecker   StatusChecker
	statusValidator *StatusValidator
	psuChecker      PsuDataChecker
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Consents *consent.Service
	Profile  profile.AspspProfile
	Clock    clock.Clock
	Strategy ScaStrategy
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:              p.DB,
		repo:            repository.ProvideStore[Authorisation](p.DB),
		consents:        p.Consents,
		profile:         p.Profile,
		clock:           p.Clock,
		strategy:        p.Strategy,
		statusValidator: NewStatusValidator(p.Profile),
	}
}

type CreateAuthorisationRequest struct {
	ConsentID string // protected identifier
	Type      Type
	PsuID     string
}

type CreateAuthorisationResponse struct {
	AuthorisationID string
	ScaStatus       ScaStatus
	RedirectLink    string
	PsuMessage      string
}

// CreateAuthorisation opens a new SCA session for a consent or payment.
// It refuses when the parent record is finalised or when this PSU already
// finalised an authorisation of the same type.
func (s *Service) CreateAuthorisation(ctx context.Context, req CreateAuthorisationRequest) (*CreateAuthorisationResponse, error) {
	record, err := s.consents.Resolve(ctx, req.ConsentID)
	if err != nil {
		return nil, err
	}
	if record.Status.Finalised() {
		return nil, errutil.UnprocessableEntity("consent is in a finalised state",
			errutil.WithTppMessage(ErrorTypeFor(req.Type), errutil.CodeStatusInvalid))
	}

	existing, err := s.repo.Find(ctx, &Authorisation{ConsentInternalID: record.InternalID})
	if err != nil {
		zap.L().Error("failed to load authorisations", zap.Error(err))
		return nil, errutil.Internal("failed to load authorisations", errutil.WithErr(err))
	}
	if s.statusChecker.IsFinalised(req.PsuID, existing, req.Type) {
		return nil, errutil.UnprocessableEntity("authorisation already finalised for this PSU",
			errutil.WithTppMessage(ErrorTypeFor(req.Type), errutil.CodeStatusInvalid))
	}

	now := s.clock.Now()
	auth := &Authorisation{
		ConsentInternalID: record.InternalID,
		Type:              req.Type,
		ScaStatus:         ScaStatusReceived,
		PsuID:             req.PsuID,
		CreatedAt:         now,
		StatusChangedAt:   now,
	}

	start, err := s.strategy.StartAuthorisation(ctx, auth)
	if err != nil {
		return nil, err
	}
	if start.ScaStatus != "" {
		auth.ScaStatus = start.ScaStatus
	}

	if err := s.repo.Create(ctx, auth); err != nil {
		zap.L().Error("failed to create authorisation", zap.Error(err))
		return nil, errutil.Internal("failed to create authorisation", errutil.WithErr(err))
	}

	return &CreateAuthorisationResponse{
		AuthorisationID: auth.ID,
		ScaStatus:       auth.ScaStatus,
		RedirectLink:    start.RedirectLink,
		PsuMessage:      start.PsuMessage,
	}, nil
}

// GetAuthorisation loads one authorisation under its parent record. An id
// that does not belong to the resolved record is reported unknown, not
// forbidden, so existence does not leak across consents.
func (s *Service) GetAuthorisation(ctx context.Context, consentID, authorisationID string) (*Authorisation, error) {
	record, err := s.consents.Resolve(ctx, consentID)
	if err != nil {
		return nil, err
	}

	auth, err := s.repo.FindOne(ctx, &Authorisation{ID: authorisationID})
	if err != nil {
		zap.L().Error("failed to load authorisation", zap.Error(err))
		return nil, errutil.Internal("failed to load authorisation", errutil.WithErr(err))
	}
	if auth == nil || auth.ConsentInternalID != record.InternalID {
		return nil, errutil.NotFound("authorisation not found",
			errutil.WithTppMessage(consent.ErrorTypeFor(record.Type), errutil.CodeResourceUnknown403))
	}
	return auth, nil
}

// UpdateAuthorisation applies one SCA update: terminal guard, stage
// check, PSU check, then the approach strategy. The resulting status must
// move strictly forward and is persisted conditionally on the loaded one,
// so a concurrent sweep or PSU cannot race the transition.
func (s *Service) UpdateAuthorisation(ctx context.Context, consentID, authorisationID string, req UpdateRequest) (*UpdateResult, error) {
	auth, err := s.GetAuthorisation(ctx, consentID, authorisationID)
	if err != nil {
		return nil, err
	}

	if auth.ScaStatus.IsFinalised() {
		res := s.statusValidator.Validate(auth.ScaStatus, req.ConfirmationCode != "", auth.Type)
		code := errutil.CodeStatusInvalid
		if !res.Valid {
			code = res.Code
		}
		return nil, errutil.UnprocessableEntity("authorisation is in a terminal state",
			errutil.WithTppMessage(ErrorTypeFor(auth.Type), code))
	}

	if res := s.stageCheck.Validate(req, auth.ScaStatus, auth.Type); !res.Valid {
		return nil, errutil.BadRequest("request does not match the current SCA stage",
			errutil.WithTppMessage(res.ErrorType, res.Code))
	}

	if s.psuChecker.IsPsuDataWrong(s.profile.MultilevelScaEnabled(), auth.PsuID, req.PsuID) {
		return nil, errutil.Unauthorized("PSU credentials do not match this authorisation",
			errutil.WithTppMessage(ErrorTypeFor(auth.Type), errutil.CodePsuCredentialsInvalid))
	}

	update, err := s.strategy.ApplyUpdate(ctx, auth, req)
	if err != nil {
		return nil, err
	}

	if err := s.persistTransition(ctx, auth, update.ScaStatus, req); err != nil {
		return nil, err
	}

	if auth.ScaStatus == ScaStatusFinalised || auth.ScaStatus == ScaStatusExempted {
		if err := s.confirmParent(ctx, consentID, auth); err != nil {
			return nil, err
		}
	}
	return update, nil
}

// CompleteRedirect closes a redirect-approach authorisation when the
// ASPSP callback arrives.
func (s *Service) CompleteRedirect(ctx context.Context, consentID, authorisationID string, success bool) error {
	return s.complete(ctx, consentID, authorisationID, success)
}

// CompleteDecoupled closes a decoupled-approach authorisation when the
// out-of-band confirmation arrives.
func (s *Service) CompleteDecoupled(ctx context.Context, consentID, authorisationID string, success bool) error {
	return s.complete(ctx, consentID, authorisationID, success)
}

func (s *Service) complete(ctx context.Context, consentID, authorisationID string, success bool) error {
	auth, err := s.GetAuthorisation(ctx, consentID, authorisationID)
	if err != nil {
		return err
	}
	if auth.ScaStatus.IsFinalised() {
		return errutil.UnprocessableEntity("authorisation is in a terminal state",
			errutil.WithTppMessage(ErrorTypeFor(auth.Type), errutil.CodeStatusInvalid))
	}

	target := ScaStatusFinalised
	if !success {
		target = ScaStatusFailed
	}
	if err := s.persistTransition(ctx, auth, target, UpdateRequest{}); err != nil {
		return err
	}
	if target == ScaStatusFinalised {
		return s.confirmParent(ctx, consentID, auth)
	}
	return nil
}

func (s *Service) persistTransition(ctx context.Context, auth *Authorisation, target ScaStatus, req UpdateRequest) error {
	if target == "" || target == auth.ScaStatus {
		return s.persistAuxiliary(ctx, auth, req)
	}
	if !auth.ScaStatus.CanTransitionTo(target) {
		return errutil.UnprocessableEntity("SCA status may not move backwards",
			errutil.WithTppMessage(ErrorTypeFor(auth.Type), errutil.CodeStatusInvalid))
	}

	now := s.clock.Now()
	updates := map[string]any{"sca_status": target, "status_changed_at": now}
	if req.AuthenticationMethodID != "" {
		updates["chosen_sca_method"] = req.AuthenticationMethodID
	}
	if req.ConfirmationCode != "" {
		updates["confirmation_code"] = req.ConfirmationCode
	}

	res := s.db.WithContext(ctx).Model(&Authorisation{}).
		Where("id = ? AND sca_status = ?", auth.ID, auth.ScaStatus).
		Updates(updates)
	if res.Error != nil {
		zap.L().Error("failed to update authorisation status", zap.Error(res.Error))
		return errutil.Internal("failed to update authorisation status", errutil.WithErr(res.Error))
	}
	if res.RowsAffected == 0 {
		return errutil.Conflict("authorisation status changed concurrently")
	}

	auth.ScaStatus = target
	auth.StatusChangedAt = now
	if req.AuthenticationMethodID != "" {
		auth.ChosenScaMethod = req.AuthenticationMethodID
	}
	if req.ConfirmationCode != "" {
		auth.ConfirmationCode = req.ConfirmationCode
	}
	return nil
}

// persistAuxiliary stores method selection and confirmation data carried
// by an update that leaves the SCA status where it is.
func (s *Service) persistAuxiliary(ctx context.Context, auth *Authorisation, req UpdateRequest) error {
	updates := map[string]any{}
	if req.AuthenticationMethodID != "" {
		updates["chosen_sca_method"] = req.AuthenticationMethodID
	}
	if req.ConfirmationCode != "" {
		updates["confirmation_code"] = req.ConfirmationCode
	}
	if len(updates) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Model(&Authorisation{}).
		Where("id = ?", auth.ID).
		Updates(updates).Error
	if err != nil {
		zap.L().Error("failed to update authorisation", zap.Error(err))
		return errutil.Internal("failed to update authorisation", errutil.WithErr(err))
	}

	if req.AuthenticationMethodID != "" {
		auth.ChosenScaMethod = req.AuthenticationMethodID
	}
	if req.ConfirmationCode != "" {
		auth.ConfirmationCode = req.ConfirmationCode
	}
	return nil
}

// confirmParent moves the parent record forward once an authorisation
// finalises. The record turns VALID only when every PSU signed; until
// then it stays PARTIALLY_AUTHORISED.
func (s *Service) confirmParent(ctx context.Context, consentID string, auth *Authorisation) error {
	var open int64
	err := s.db.WithContext(ctx).Model(&Authorisation{}).
		Where("consent_internal_id = ?", auth.ConsentInternalID).
		Where("sca_status NOT IN ?", FinalisedScaStatuses).
		Count(&open).Error
	if err != nil {
		zap.L().Error("failed to count open authorisations", zap.Error(err))
		return errutil.Internal("failed to count open authorisations", errutil.WithErr(err))
	}
	return s.consents.Confirm(ctx, consentID, open == 0)
}

// FailAllOpen marks every open authorisation of the given records FAILED.
// Runs inside the caller's transaction; the unconfirmed-SCA sweep uses it
// when rejecting abandoned payments.
func (s *Service) FailAllOpen(ctx context.Context, tx *gorm.DB, consentInternalIDs []int64) error {
	if len(consentInternalIDs) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Model(&Authorisation{}).
		Where("consent_internal_id IN ?", consentInternalIDs).
		Where("sca_status NOT IN ?", FinalisedScaStatuses).
		Updates(map[string]any{"sca_status": ScaStatusFailed, "status_changed_at": s.clock.Now()}).Error
}
