package claims

import (
	"errors"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotFound       = errors.New("entity not found")
	ErrAlreadyClaimed = errors.New("entity is already claimed")
	ErrRaceLost       = errors.New("entity was claimed by another user")
	ErrNotEligible    = errors.New("not eligible to claim")
)

// NotEligibleError lleva el motivo legible que devuelve la política.
type NotEligibleError struct {
	Reason string
}

func (e *NotEligibleError) Error() string {
	return e.Reason
}

func (e *NotEligibleError) Unwrap() error {
	return ErrNotEligible
}
