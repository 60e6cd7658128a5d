package ir

// Version constants for the model schema and engine.
const (
	// IRVersion is the model schema version.
	IRVersion = "1"

	// EngineVersion is the arachne engine version.
	EngineVersion = "0.1.0"
)
