package registry

import "errors"

var (
	// ErrAlreadyRegistered is returned when a register call targets an
	// asset id that is already present in the ledger.
	ErrAlreadyRegistered = errors.New("asset already registered")

	// ErrNotFound is returned when an operation targets an asset id with
	// no ledger entry.
	ErrNotFound = errors.New("asset not found")

	// ErrUnauthorized is returned when the caller lacks the privilege the
	// operation requires (admin for verify, current owner for transfer).
	ErrUnauthorized = errors.New("caller not authorized")
)
