// services/errors.go
package services

import "errors"

// Typed failures surfaced by the ledger service. Controllers map these to
// HTTP statuses; the sync client maps statuses back to the same types so
// both sides classify failures identically.

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

type AuthError struct {
	Msg string
}

func (e *AuthError) Error() string { return e.Msg }

// ConflictError is reserved for optimistic-concurrency use; the balance is
// always server-computed so normal flow never produces one.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
