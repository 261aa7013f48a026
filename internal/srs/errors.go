package srs

import "errors"

// Sentinel errors for the srs package. Check with errors.Is.
var (
	ErrInvalidParams = errors.New("srs: invalid scheduler parameters")
	ErrCardDeleted   = errors.New("srs: cannot review a soft-deleted card")
)
