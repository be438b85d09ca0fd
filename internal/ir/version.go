package ir

// Version constants recorded in the store meta table.
const (
	// JournalVersion is the journal entry schema version.
	JournalVersion = "1"

	// EngineVersion is the rankvault engine version.
	EngineVersion = "0.1.0"
)
