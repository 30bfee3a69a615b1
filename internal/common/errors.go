// Package common defines shared constants and sentinel errors used across
// classmint components. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Validation errors raised at issuance.
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidAmount = fmt.Errorf("%w: amount must be a positive number of minor units", ErrInvalidInput)
	ErrInvalidExpiry = fmt.Errorf("%w: expiry must be in the future", ErrInvalidInput)

	// Redemption errors.
	ErrBadSignature   = errors.New("bad token signature")
	ErrUnknownToken   = errors.New("unknown token")
	ErrTokenInactive  = errors.New("token inactive")
	ErrTokenExpired   = errors.New("token expired")
	ErrAlreadyClaimed = errors.New("token already claimed")

	// Ledger errors.
	ErrLedgerIntegrityBroken = errors.New("ledger integrity broken")

	// ErrStorageFailure wraps any error coming from durable storage.
	ErrStorageFailure = errors.New("storage failure")

	// Admin auth errors.
	ErrorUnauthorized     = errors.New("unauthorized")
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrAccessTokenExpired = errors.New("access token expired")

	// ErrExportDisabled is returned when no object storage is configured.
	ErrExportDisabled = errors.New("ledger export disabled")
)

// IntegrityError identifies the first block whose chain hash does not match.
type IntegrityError struct {
	BlockID  int64
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("ledger integrity broken at block %d", e.BlockID)
}

// Unwrap makes errors.Is(err, ErrLedgerIntegrityBroken) hold.
func (e *IntegrityError) Unwrap() error { return ErrLedgerIntegrityBroken }

// StorageError wraps err as a storage failure for the named operation.
// A nil err stays nil.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageFailure) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, err)
}
