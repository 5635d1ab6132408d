package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

// SchemaVersion is stamped into every persisted attempt payload.
const SchemaVersion = "3.0"

// Transport metadata keys, stripped before anything touches the draft cache.
var MetadataKeys = []string{"page", "toolId", "clientId", "action", "token"}

// LabelFieldSuffix marks display-only fields excluded from scoring.
const LabelFieldSuffix = "_label"
