package state

import "errors"

// Container-level rejections. Like the engine's validation errors, these
// reject the enclosing operation before any mutation.
var (
	ErrAlreadyInstantiated = errors.New("pool already instantiated")
	ErrNotInstantiated     = errors.New("pool not instantiated")
	ErrUnknownFundRequest  = errors.New("unknown fund request")
	ErrInvalidFundStatus   = errors.New("invalid fund status")
)

// IsRejection reports whether err rejects one operation without poisoning
// the stream.
func IsRejection(err error) bool {
	return errors.Is(err, ErrAlreadyInstantiated) ||
		errors.Is(err, ErrNotInstantiated) ||
		errors.Is(err, ErrUnknownFundRequest) ||
		errors.Is(err, ErrInvalidFundStatus)
}
