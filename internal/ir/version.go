package ir

// Version constants recorded with every stored run.
const (
	// IRVersion is the program model version.
	IRVersion = "1"

	// EngineVersion is the simulation engine version.
	EngineVersion = "0.1.0"
)
