package sca

// Approach is the bank-wide SCA interaction style. It is a process-level
// setting: the selector resolves it once at startup, never per request.
type Approach string

const (
	ApproachRedirect  Approach = "REDIRECT"
	ApproachDecoupled Approach = "DECOUPLED"
	ApproachEmbedded  Approach = "EMBEDDED"
	ApproachOauth     Approach = "OAUTH"
)

func (a Approach) String() string {
	return string(a)
}
