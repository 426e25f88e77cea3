package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and external clients return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in its region
// - ErrConflict: key already present where the operation requires absence
// - ErrInvalidState: entity in wrong state for the requested transition
// - ErrUnavailable: external service or resource temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
