package model

import "errors"

var (
	// Item related errors
	ErrItemNotFound          = errors.New("item not found")
	ErrItemAlreadyRegistered = errors.New("item already registered")
	ErrInvalidTransition     = errors.New("invalid transition")
	ErrMissingLocation       = errors.New("drop-off location is required")
	ErrInvalidQRCode         = errors.New("invalid qr code")

	// Location related errors
	ErrLocationNotFound = errors.New("location not found")

	// User related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token related errors
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")

	// Permission/Access related errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
