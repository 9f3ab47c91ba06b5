package domain

import "errors"

// Ledger error taxonomy. Validation errors are always detected before any
// mutation; callers never need to compensate for them.
var (
	// ErrNotFound indicates a referenced user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates malformed or missing input, such as a
	// non-positive amount.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidOperation indicates a semantically nonsensical request,
	// such as a self-transfer.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrInsufficientFunds indicates the sender's balance cannot cover the
	// requested amount. Reserve accounts are exempt.
	ErrInsufficientFunds = errors.New("insufficient funds")
)
