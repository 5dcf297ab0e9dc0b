package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrRateLimited     = errors.New("too many requests, try again later")
	ErrOTPNotFound     = errors.New("no verification code found, request a new one")
	ErrOTPExpired      = errors.New("verification code expired, request a new one")
	ErrTooManyAttempts = errors.New("too many failed attempts, request a new code")
	ErrInvalidOTP      = errors.New("invalid verification code")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrTokenRevoked       = errors.New("token has been revoked")

	ErrNotFound        = errors.New("not found")
	ErrInvalidStatus   = errors.New("invalid submission status")
	ErrInvalidPosition = errors.New("invalid advertisement position")
	ErrInvalidInput    = errors.New("invalid input")

	ErrFileTooLarge    = errors.New("file exceeds the maximum upload size")
	ErrUnsupportedType = errors.New("file type not allowed")
)

// InvalidOTPError is returned for a wrong code that still has attempts left.
type InvalidOTPError struct {
	Remaining int
}

func (e *InvalidOTPError) Error() string {
	return fmt.Sprintf("invalid verification code, %d attempts remaining", e.Remaining)
}

func (e *InvalidOTPError) Is(target error) bool {
	return target == ErrInvalidOTP
}
