package rca

import "errors"

// Sentinel errors surfaced to the service layer. Every other problem the
// engine encounters is absorbed, logged and reflected as absence in the
// result.
var (
	// ErrNoData rejects an analyze call with an empty metric set.
	ErrNoData = errors.New("no metric data to analyze")

	// ErrInvalidThreshold rejects configuration values outside (0,1].
	ErrInvalidThreshold = errors.New("threshold must be in (0,1]")
)
