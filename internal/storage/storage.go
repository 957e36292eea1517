package storage

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrTokenMismatch is returned by RotateRefreshToken when the stored
	// refresh token is no longer the one the caller presented.
	ErrTokenMismatch = errors.New("refresh token mismatch")
)
