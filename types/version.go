package types

// Version is the canonical project version, reported by the version
// command and unrelated to the wire frame types' own TraceFrameType/
// OutputFrameType discriminants.
const Version = "0.1.0"
