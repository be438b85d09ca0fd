package registry

import "errors"

// Sentinel errors returned by registry operations. Operations wrap them with
// context; use errors.Is to test.
var (
	// ErrUnknownRecord indicates the id was never minted or has been killed.
	ErrUnknownRecord = errors.New("unknown record")

	// ErrInvalidTokenID indicates the zero sentinel (or, for kill, a missing
	// record) where a real id is required.
	ErrInvalidTokenID = errors.New("invalid token id")

	// ErrInvalidReceiverTokenID indicates a bad kill receiver.
	ErrInvalidReceiverTokenID = errors.New("invalid receiver token id")

	// ErrInvalidRecipient indicates a mint to the administrator or an empty identity.
	ErrInvalidRecipient = errors.New("invalid recipient")

	ErrNotOwner       = errors.New("caller is not the record owner")
	ErrLockNotExpired = errors.New("lock period has not elapsed")
	ErrNotLocked      = errors.New("record is not locked")
	ErrBurnDisabled   = errors.New("explicit burning of records is disabled")

	ErrInvalidDuration        = errors.New("lock duration must be positive")
	ErrInsufficientExperience = errors.New("insufficient experience for next rank")
	ErrMaxRank                = errors.New("record is at maximum rank")
	ErrExperienceOverflow     = errors.New("experience overflow")

	// ErrEpochRegressed indicates a call carrying an epoch older than one
	// already observed.
	ErrEpochRegressed = errors.New("epoch regressed")
)

// Outcome case names. These appear in journal entries, scenario files and
// CLI output, so they must stay stable.
const (
	CaseSuccess                = "Success"
	CaseUnknownRecord          = "UnknownRecord"
	CaseInvalidTokenID         = "InvalidTokenId"
	CaseInvalidReceiverTokenID = "InvalidReceiverTokenId"
	CaseInvalidRecipient       = "InvalidRecipient"
	CaseNotOwner               = "NotOwner"
	CaseLockNotExpired         = "LockNotExpired"
	CaseNotLocked              = "NotLocked"
	CaseBurnDisabled           = "BurnDisabled"
	CaseInvalidDuration        = "InvalidDuration"
	CaseInsufficientExperience = "InsufficientExperience"
	CaseMaxRank                = "MaxRank"
	CaseExperienceOverflow     = "ExperienceOverflow"
	CaseEpochRegressed         = "EpochRegressed"
)

var caseTable = []struct {
	err  error
	name string
}{
	{ErrUnknownRecord, CaseUnknownRecord},
	{ErrInvalidTokenID, CaseInvalidTokenID},
	{ErrInvalidReceiverTokenID, CaseInvalidReceiverTokenID},
	{ErrInvalidRecipient, CaseInvalidRecipient},
	{ErrNotOwner, CaseNotOwner},
	{ErrLockNotExpired, CaseLockNotExpired},
	{ErrNotLocked, CaseNotLocked},
	{ErrBurnDisabled, CaseBurnDisabled},
	{ErrInvalidDuration, CaseInvalidDuration},
	{ErrInsufficientExperience, CaseInsufficientExperience},
	{ErrMaxRank, CaseMaxRank},
	{ErrExperienceOverflow, CaseExperienceOverflow},
	{ErrEpochRegressed, CaseEpochRegressed},
}

// Case maps an operation error to its outcome case name.
// Returns CaseSuccess for nil and ok=false for errors that are not
// registry failures.
func Case(err error) (name string, ok bool) {
	if err == nil {
		return CaseSuccess, true
	}
	for _, c := range caseTable {
		if errors.Is(err, c.err) {
			return c.name, true
		}
	}
	return "", false
}

// Cases returns every failure case name in declaration order.
func Cases() []string {
	names := make([]string, len(caseTable))
	for i, c := range caseTable {
		names[i] = c.name
	}
	return names
}
