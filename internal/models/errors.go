package models

import "errors"

// Sentinel errors surfaced to callers. Everything else in the taxonomy
// (missing calibration, insufficient data) degrades into markers inside
// an otherwise complete KPISnapshot.
var (
	// ErrSourceUnavailable means the usage source could not be read or
	// returned malformed data within its timeout. Recoverable; the
	// previous snapshot remains authoritative.
	ErrSourceUnavailable = errors.New("usage source unavailable")

	// ErrInvalidCalibration means a calibration write was rejected
	// before persisting; the prior calibration remains in effect.
	ErrInvalidCalibration = errors.New("invalid calibration")
)
