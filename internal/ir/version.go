package ir

// Version constants for the record encoding and the tool.
const (
	// EncodingVersion is the version of the canonical record encoding.
	// Bump it when EncodeRecord output changes shape.
	EncodingVersion = "1"

	// ToolVersion is the cloudrec version.
	ToolVersion = "0.1.0"
)
