package grid

import (
	"errors"
	"fmt"
)

// AddressErrorCode categorizes address validation failures.
type AddressErrorCode string

const (
	// ErrCodeMalformedAddress indicates an identifier that is not R-<n> / C-<n>.
	ErrCodeMalformedAddress AddressErrorCode = "MALFORMED_ADDRESS"

	// ErrCodeOutOfBounds indicates a row or column outside [0,100).
	ErrCodeOutOfBounds AddressErrorCode = "OUT_OF_BOUNDS"
)

// Sentinels for errors.Is matching against an *AddressError.
var (
	ErrMalformedAddress = errors.New("malformed address")
	ErrOutOfBounds      = errors.New("address out of bounds")
)

// AddressError reports an invalid coordinate or identifier.
// It is fatal to the single offending edit, never to the session.
type AddressError struct {
	Code AddressErrorCode

	// Input is the offending identifier or "row,col" pair.
	Input string

	Message string
}

// Error implements the error interface.
func (e *AddressError) Error() string {
	return fmt.Sprintf("%s: %s (input=%q)", e.Code, e.Message, e.Input)
}

// Is lets errors.Is match the package sentinels.
func (e *AddressError) Is(target error) bool {
	switch target {
	case ErrMalformedAddress:
		return e.Code == ErrCodeMalformedAddress
	case ErrOutOfBounds:
		return e.Code == ErrCodeOutOfBounds
	}
	return false
}

// IsAddressError returns true if err is or wraps an *AddressError.
func IsAddressError(err error) bool {
	var ae *AddressError
	return errors.As(err, &ae)
}

func malformed(input, msg string) *AddressError {
	return &AddressError{Code: ErrCodeMalformedAddress, Input: input, Message: msg}
}

func outOfBounds(input string, limit int) *AddressError {
	return &AddressError{
		Code:    ErrCodeOutOfBounds,
		Input:   input,
		Message: fmt.Sprintf("index must be in [0,%d)", limit),
	}
}
