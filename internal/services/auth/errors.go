package auth

import "errors"

// Kind classifies a failure for transports. Every error returned by Auth
// carries exactly one Kind; anything unclassified is KindInternal.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error pairs a user-facing message with its Kind.
type Error struct {
	Kind Kind
	msg  string
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

var (
	ErrMissingFields      = newError(KindValidation, "all fields are required")
	ErrMissingLogin       = newError(KindValidation, "username or email is required")
	ErrMissingPassword    = newError(KindValidation, "password is required")
	ErrPasswordTooLong    = newError(KindValidation, "password is too long")
	ErrUserAlreadyExists  = newError(KindConflict, "user with this email or username already exists")
	ErrUserNotFound       = newError(KindNotFound, "user does not exist")
	ErrInvalidCredentials = newError(KindUnauthorized, "invalid user credentials")

	ErrTokenMissing     = newError(KindUnauthorized, "unauthorized request")
	ErrTokenInvalid     = newError(KindUnauthorized, "invalid access token")
	ErrTokenExpired     = newError(KindUnauthorized, "access token expired")
	ErrIdentityNotFound = newError(KindUnauthorized, "invalid access token: user not found")

	// ErrInvalidRefreshToken covers every refresh failure: absent, bad
	// signature, expired, unknown user, already rotated or cleared.
	ErrInvalidRefreshToken = newError(KindUnauthorized, "invalid or expired refresh token")
)

// KindOf returns the Kind carried by err, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the user-facing message for err. Internal failures get a
// generic message so store or crypto details never leak.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.msg
	}
	return "internal server error"
}
