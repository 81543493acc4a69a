package authorisation

import (
	"xs2a-consent-engine/pkg/errutil"
	"xs2a-consent-engine/services/profile"
)

// UpdateRequest carries the fields a TPP may submit while walking the SCA
// flow. Which field is required depends on the current stage.
type UpdateRequest struct {
	PsuID                  string
	Password               string
	AuthenticationMethodID string
	ScaAuthenticationData  string
	ConfirmationCode       string
	AccessToken            string
}

// ValidationResult is the typed outcome of the stage and status
// validators. An invalid result carries everything the boundary needs to
// build a protocol-correct error envelope.
type ValidationResult struct {
	Valid     bool
	ErrorType errutil.ErrorType
	Code      errutil.MessageCode
}

func valid() ValidationResult {
	return ValidationResult{Valid: true}
}

func invalid(t Type, code errutil.MessageCode) ValidationResult {
	return ValidationResult{ErrorType: ErrorTypeFor(t), Code: code}
}

// StageCheckValidator rejects an update whose fields do not match what the
// current SCA stage expects.
type StageCheckValidator struct{}

func (StageCheckValidator) Validate(req UpdateRequest, status ScaStatus, authType Type) ValidationResult {
	switch status {
	case ScaStatusReceived:
		if req.PsuID == "" {
			return invalid(authType, errutil.CodeServiceInvalid400)
		}
	case ScaStatusPsuIdentified:
		if req.Password == "" {
			return invalid(authType, errutil.CodeServiceInvalid400)
		}
	case ScaStatusPsuAuthenticated:
		if req.AuthenticationMethodID == "" {
			return invalid(authType, errutil.CodeServiceInvalid400)
		}
	case ScaStatusScaMethodSelected:
		if req.ScaAuthenticationData == "" {
			return invalid(authType, errutil.CodeServiceInvalid400)
		}
	}
	// Terminal statuses carry no field requirement here; the status
	// validator guards them.
	return valid()
}

// StatusChecker answers whether a PSU already finalised an authorisation
// of the given type, guarding against duplicate or late attempts.
type StatusChecker struct{}

func (StatusChecker) IsFinalised(psuID string, auths []*Authorisation, authType Type) bool {
	for _, a := range auths {
		if a.PsuID != psuID || a.Type != authType {
			continue
		}
		if a.ScaStatus == ScaStatusFinalised || a.ScaStatus == ScaStatusExempted {
			return true
		}
	}
	return false
}

// StatusValidator distinguishes "SCA failed because the confirmation code
// was wrong" from "this authorisation session is simply dead".
type StatusValidator struct {
	profile profile.AspspProfile
}

func NewStatusValidator(p profile.AspspProfile) *StatusValidator {
	return &StatusValidator{profile: p}
}

func (v *StatusValidator) Validate(status ScaStatus, confirmationCodeReceived bool, authType Type) ValidationResult {
	if status != ScaStatusFailed {
		return valid()
	}
	if v.profile.AuthorisationConfirmationRequestMandated() && confirmationCodeReceived {
		return invalid(authType, errutil.CodeScaInvalid)
	}
	return invalid(authType, errutil.CodeStatusInvalid)
}

// PsuDataChecker prevents one PSU from hijacking another PSU's in-flight
// authorisation. Under multilevel SCA several PSUs legitimately authorise
// the same record, so the check is bypassed.
type PsuDataChecker struct{}

func (PsuDataChecker) IsPsuDataWrong(multilevelSca bool, storedPsuID, requestPsuID string) bool {
	if multilevelSca {
		return false
	}
	if storedPsuID == "" || requestPsuID == "" {
		return false
	}
	return storedPsuID != requestPsuID
}
