package consent

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Status is the lifecycle state of a consent or payment record.
type Status string

const (
	StatusReceived            Status = "RECEIVED"
	StatusPartiallyAuthorised Status = "PARTIALLY_AUTHORISED"
	StatusValid               Status = "VALID"
	StatusRejected            Status = "REJECTED"
	StatusRevokedByPsu        Status = "REVOKED_BY_PSU"
	StatusExpired             Status = "EXPIRED"
	StatusTerminatedByTpp     Status = "TERMINATED_BY_TPP"
	StatusTerminatedByAspsp   Status = "TERMINATED_BY_ASPSP"
)

// Finalised statuses are terminal: a finalised record is never mutated and
// never physically deleted.
func (s Status) Finalised() bool {
	switch s {
	case StatusRejected, StatusRevokedByPsu, StatusExpired, StatusTerminatedByTpp, StatusTerminatedByAspsp:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}

// FinalisedStatuses lists every terminal status, for sweep queries.
var FinalisedStatuses = []Status{
	StatusRejected,
	StatusRevokedByPsu,
	StatusExpired,
	StatusTerminatedByTpp,
	StatusTerminatedByAspsp,
}

// Type distinguishes the consent subtypes and payments, which share the
// record, the identifier-encryption contract and the status vocabulary.
type Type string

const (
	TypeAis       Type = "AIS"
	TypePiisAspsp Type = "PIIS_ASPSP"
	TypePiisTpp   Type = "PIIS_TPP"
	TypePis       Type = "PIS"
)

// ErrStatusRequired rejects a persist with an unset status. Callers must
// always supply a concrete status; silently storing an empty one would
// corrupt the state machine.
var ErrStatusRequired = errors.New("consent: status must be set before persisting")

// Consent is the persistent consent/payment record. InternalID is
// sequential and never exposed; ExternalID is a UUID that only ever leaves
// the process wrapped by the protection service.
type Consent struct {
	InternalID             int64          `gorm:"column:internal_id;primaryKey"`
	ExternalID             string         `gorm:"column:external_id;uniqueIndex"`
	Type                   Type           `gorm:"column:consent_type;index"`
	Status                 Status         `gorm:"column:consent_status;index"`
	RecurringIndicator     bool           `gorm:"column:recurring_indicator"`
	TppFrequencyPerDay     int            `gorm:"column:tpp_frequency_per_day"`
	FrequencyPerDay        int            `gorm:"column:frequency_per_day"`
	ValidUntil             time.Time      `gorm:"column:valid_until"`
	CreatedAt              time.Time      `gorm:"column:created_at"`
	StatusChangedAt        time.Time      `gorm:"column:status_changed_at"`
	EncryptedPayload       []byte         `gorm:"column:encrypted_payload"`
	PsuID                  string         `gorm:"column:psu_id;index"`
	PsuData                datatypes.JSON `gorm:"column:psu_data"`
	TppAuthorisationNumber string         `gorm:"column:tpp_authorisation_number;index"`
	TppInfo                datatypes.JSON `gorm:"column:tpp_info"`
	Usages                 []Usage        `gorm:"foreignKey:ConsentInternalID"`

	// previousStatus remembers the status as loaded so a persist bumps
	// StatusChangedAt only on a real change.
	previousStatus Status `gorm:"-"`
}

func (Consent) TableName() string {
	return "consents"
}

func (c *Consent) AfterFind(tx *gorm.DB) error {
	c.previousStatus = c.Status
	return nil
}

func (c *Consent) BeforeCreate(tx *gorm.DB) error {
	if c.Status == "" {
		return ErrStatusRequired
	}
	if c.ExternalID == "" {
		c.ExternalID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	// Invariant: StatusChangedAt equals CreatedAt until the first real
	// status change.
	if c.StatusChangedAt.IsZero() {
		c.StatusChangedAt = c.CreatedAt
	}
	return nil
}

func (c *Consent) BeforeSave(tx *gorm.DB) error {
	if c.Status == "" {
		return ErrStatusRequired
	}
	if c.previousStatus != "" && c.Status != c.previousStatus {
		c.StatusChangedAt = time.Now()
		c.previousStatus = c.Status
	}
	return nil
}

// Usage is one append-only (date, resource) entry recorded every time a
// consent is exercised.
type Usage struct {
	ID                int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ConsentInternalID int64     `gorm:"column:consent_internal_id;index"`
	UsageDate         time.Time `gorm:"column:usage_date"`
	Resource          string    `gorm:"column:resource"`
}

func (Usage) TableName() string {
	return "consent_usages"
}
