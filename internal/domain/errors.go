package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrBadRequest    = errors.New("bad request")
	ErrNotVerified   = errors.New("email not verified")
	ErrExpired       = errors.New("code expired")
	ErrMismatch      = errors.New("code mismatch")
	ErrInvalidEmail  = errors.New("invalid institutional email")
	ErrQuotaExceeded = errors.New("submission quota exceeded")
	ErrStorage       = errors.New("storage failure")
	ErrDelivery      = errors.New("delivery failure")
)
