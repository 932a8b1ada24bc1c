// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Domain errors. The HTTP boundary maps these onto status codes so callers
// can tell validation, authentication, and ledger failures apart.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrWalletAlreadyExists = errors.New("wallet already exists")
	ErrInvalidMnemonic     = errors.New("invalid mnemonic")
	ErrInvalidAddress      = errors.New("invalid recipient address")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrSessionNotFound     = errors.New("invalid or expired session")
	ErrNodeUnavailable     = errors.New("ledger node unavailable")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrTokenNotFound       = errors.New("native token not found")
	ErrAddressNotFound     = errors.New("address not found")
)

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
