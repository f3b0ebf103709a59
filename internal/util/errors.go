package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrNotFound indicates a required resource was not found
	ErrNotFound = errors.New("not found")

	// ErrNoCandidates indicates no source offers the required fact;
	// the district is skipped, never the whole run
	ErrNoCandidates = errors.New("no candidate sources")

	// ErrUnmappedDistrict indicates a state-native id with no crosswalk entry
	ErrUnmappedDistrict = errors.New("unmapped district identifier")

	// ErrRunNotOpen indicates an attempt to finalize a run twice
	ErrRunNotOpen = errors.New("run not open")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)
