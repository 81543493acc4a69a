package errutil

// MessageCode is the TPP-facing PSD2 message error code carried inside the
// error envelope of a rejected request.
type MessageCode string

const (
	CodeFormatError           MessageCode = "FORMAT_ERROR"
	CodeServiceInvalid400     MessageCode = "SERVICE_INVALID_400"
	CodeStatusInvalid         MessageCode = "STATUS_INVALID"
	CodeScaInvalid            MessageCode = "SCA_INVALID"
	CodePsuCredentialsInvalid MessageCode = "PSU_CREDENTIALS_INVALID"
	CodeConsentUnknown400     MessageCode = "CONSENT_UNKNOWN_400"
	CodeAccessExceeded        MessageCode = "ACCESS_EXCEEDED"
	CodeResourceUnknown403    MessageCode = "RESOURCE_UNKNOWN_403"
)

// ErrorType selects the service-specific error envelope (the PSD2 wire
// format differs between account-information, payment-initiation and
// funds-confirmation responses).
type ErrorType string

const (
	ErrorTypeAIS400  ErrorType = "AIS_400"
	ErrorTypePIS400  ErrorType = "PIS_400"
	ErrorTypePIIS400 ErrorType = "PIIS_400"
)
