package authorisation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"xs2a-consent-engine/pkg/errutil"
)

// ScaStatus is the state of one SCA authorisation.
type ScaStatus string

const (
	ScaStatusReceived          ScaStatus = "RECEIVED"
	ScaStatusPsuIdentified     ScaStatus = "PSUIDENTIFIED"
	ScaStatusPsuAuthenticated  ScaStatus = "PSUAUTHENTICATED"
	ScaStatusScaMethodSelected ScaStatus = "SCAMETHODSELECTED"
	ScaStatusFinalised         ScaStatus = "FINALISED"
	ScaStatusFailed            ScaStatus = "FAILED"
	ScaStatusExempted          ScaStatus = "EXEMPTED"
)

// IsFinalised reports whether the status is terminal. A terminal
// authorisation is never mutated again.
func (s ScaStatus) IsFinalised() bool {
	switch s {
	case ScaStatusFinalised, ScaStatusFailed, ScaStatusExempted:
		return true
	default:
		return false
	}
}

func (s ScaStatus) String() string {
	return string(s)
}

// FinalisedScaStatuses lists every terminal SCA status, for bulk queries.
var FinalisedScaStatuses = []ScaStatus{
	ScaStatusFinalised,
	ScaStatusFailed,
	ScaStatusExempted,
}

// scaStageOrder ranks the statuses along the SCA flow. All terminal
// statuses share the last rank: any open stage may jump straight to
// FINALISED, FAILED or EXEMPTED.
var scaStageOrder = map[ScaStatus]int{
	ScaStatusReceived:          0,
	ScaStatusPsuIdentified:     1,
	ScaStatusPsuAuthenticated:  2,
	ScaStatusScaMethodSelected: 3,
	ScaStatusFinalised:         4,
	ScaStatusFailed:            4,
	ScaStatusExempted:          4,
}

// CanTransitionTo enforces the strict forward ordering of the SCA state
// machine: no backward transitions, no leaving a terminal state. Staying
// on the same stage is allowed so repeated updates stay idempotent.
func (s ScaStatus) CanTransitionTo(next ScaStatus) bool {
	if s.IsFinalised() {
		return false
	}
	from, ok := scaStageOrder[s]
	if !ok {
		return false
	}
	to, ok := scaStageOrder[next]
	if !ok {
		return false
	}
	return to >= from
}

// Type distinguishes what the authorisation signs off.
type Type string

const (
	TypeAis             Type = "AIS"
	TypePis             Type = "PIS"
	TypePisCancellation Type = "PIS_CANCELLATION"
	TypePiis            Type = "PIIS"
)

// ErrorTypeFor resolves the service-specific error envelope for an
// authorisation type.
func ErrorTypeFor(t Type) errutil.ErrorType {
	switch t {
	case TypePis, TypePisCancellation:
		return errutil.ErrorTypePIS400
	case TypePiis:
		return errutil.ErrorTypePIIS400
	default:
		return errutil.ErrorTypeAIS400
	}
}

// Authorisation is one PSU's SCA session for a consent or payment. A
// record may hold several: under multilevel SCA every required PSU signs
// with an authorisation of their own.
type Authorisation struct {
	ID                string    `gorm:"column:id;primaryKey"`
	ConsentInternalID int64     `gorm:"column:consent_internal_id;index"`
	Type              Type      `gorm:"column:authorisation_type;index"`
	ScaStatus         ScaStatus `gorm:"column:sca_status;index"`
	PsuID             string    `gorm:"column:psu_id"`
	ChosenScaMethod   string    `gorm:"column:chosen_sca_method"`
	ConfirmationCode  string    `gorm:"column:confirmation_code"`
	RedirectURI       string    `gorm:"column:redirect_uri"`
	RedirectExpiresAt time.Time `gorm:"column:redirect_expires_at"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	StatusChangedAt   time.Time `gorm:"column:status_changed_at"`

	previousStatus ScaStatus `gorm:"-"`
}

func (Authorisation) TableName() string {
	return "authorisations"
}

func (a *Authorisation) AfterFind(tx *gorm.DB) error {
	a.previousStatus = a.ScaStatus
	return nil
}

func (a *Authorisation) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.ScaStatus == "" {
		a.ScaStatus = ScaStatusReceived
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if a.StatusChangedAt.IsZero() {
		a.StatusChangedAt = a.CreatedAt
	}
	return nil
}

func (a *Authorisation) BeforeSave(tx *gorm.DB) error {
	if a.previousStatus != "" && a.ScaStatus != a.previousStatus {
		a.StatusChangedAt = time.Now()
		a.previousStatus = a.ScaStatus
	}
	return nil
}
