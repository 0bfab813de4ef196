package ir

// Version constants for the snapshot format and the tool.
const (
	// SnapshotVersion is the serialized query snapshot format version.
	SnapshotVersion = "1"

	// ToolVersion is the aqlkit version.
	ToolVersion = "0.1.0"
)
