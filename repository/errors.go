package repository

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned when a conditional create finds an
	// existing record with the same key.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrInsufficientStock is returned when a reservation would push
	// available below zero.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvariantViolation is returned when a ledger commit finds less
	// reserved than requested. It indicates a prior bug, not user error.
	ErrInvariantViolation = errors.New("inventory invariant violation")

	// ErrStatusConflict is returned when a conditional order status
	// transition finds the order in an unexpected state.
	ErrStatusConflict = errors.New("order status conflict")

	// ErrInvalidCursor is returned for pagination cursors that cannot
	// be decoded.
	ErrInvalidCursor = errors.New("invalid cursor")
)
