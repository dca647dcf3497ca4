package markers

import "errors"

// Sentinel kinds for marker errors.
var (
	ErrInvalidDirection = errors.New("invalid marker direction")
	ErrMarkerRetired    = errors.New("marker is retired")
)
