package reservoir

import "errors"

// Precondition violations. The package panics with these rather than
// returning them: a caller that trips one has a bug, not a recoverable
// runtime condition.
var (
	ErrZeroCapacity    = errors.New("reservoir: capacity must be > 0")
	ErrNegativeAlpha   = errors.New("reservoir: alpha must be >= 0")
	ErrNilSource       = errors.New("reservoir: rng source must not be nil")
	ErrZeroBatch       = errors.New("reservoir: n_provided must be > 0")
	ErrOverflow        = errors.New("reservoir: grand total would overflow")
	ErrImportNotEmpty  = errors.New("reservoir: import requires an empty reservoir")
	ErrCorruptSnapshot = errors.New("reservoir: corrupt checkpoint")
)

