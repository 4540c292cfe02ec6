package pool

import (
	"errors"

	"swapPool/internal/amount"
)

// Validation failures: detected before any mutation, the whole operation is
// rejected.
var (
	ErrInvalidPair           = errors.New("invalid token pair")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrMinimumNotMet         = errors.New("minimum amount not met")
	ErrUnauthorized          = errors.New("unauthorized")
)

// ErrDivisionByZero is an arithmetic failure alongside the checked-amount
// errors from the amount package.
var ErrDivisionByZero = errors.New("division by zero")

// IsValidation reports whether err is a precondition failure the caller can
// correct (degenerate pair, zero amount, insufficient balance or liquidity).
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidPair) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientLiquidity) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrMinimumNotMet) ||
		errors.Is(err, ErrUnauthorized)
}

// IsArithmetic reports whether err is an overflow, underflow, or invalid
// division on a checked path.
func IsArithmetic(err error) bool {
	return errors.Is(err, amount.ErrOverflow) ||
		errors.Is(err, amount.ErrUnderflow) ||
		errors.Is(err, ErrDivisionByZero)
}
