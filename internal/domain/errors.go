package domain

import "errors"

// Sentinel errors for the domain package. Check with errors.Is.
var (
	ErrInvalidState = errors.New("domain: invalid card state")
	ErrInvalidGrade = errors.New("domain: invalid grade")
)
