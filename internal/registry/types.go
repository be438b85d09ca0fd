package registry

// TokenID identifies an Asset Record. Zero is the sentinel "no record" value.
type TokenID uint64

// Identity is an opaque holder identity supplied by the caller's environment.
type Identity string

// Epoch is a tick of the externally advancing Epoch Counter.
type Epoch uint64

// Env is the per-call environment: who is calling and at which epoch.
// The registry never advances Epoch itself.
type Env struct {
	Caller Identity
	Epoch  Epoch
}

// LockState is the unambiguous view of Record.Locked.
type LockState int

const (
	Available LockState = iota
	Locked
)

func (s LockState) String() string {
	switch s {
	case Available:
		return "available"
	case Locked:
		return "locked"
	default:
		return "unknown"
	}
}

// Record is one Asset Record.
type Record struct {
	ID    TokenID
	Owner Identity
	Name  string

	// Locked is inverted: true = available, false = locked.
	Locked bool

	// LockStartEpoch is meaningless while Locked is true.
	LockStartEpoch Epoch
	DaysToLock     uint64
	Experience     uint64
	Rank           uint64
}

// State reports the lock state without the inverted flag.
func (r Record) State() LockState {
	if r.Locked {
		return Available
	}
	return Locked
}

// Collection holds the immutable identity of a registry instance.
type Collection struct {
	Name          string
	Symbol        string
	BaseURI       string
	Administrator Identity
}
