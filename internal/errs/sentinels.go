// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrBadRequest indicates malformed client input (e.g. unparsable orderBy).
	ErrBadRequest = errors.New("bad request")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates failed authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated actor denied by policy.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")
)

// Token validation failures. All of them unwrap to ErrUnauthorized.
var (
	ErrTokenExpired   = &Error{Kind: ErrUnauthorized, Msg: "token expired"}
	ErrTokenMalformed = &Error{Kind: ErrUnauthorized, Msg: "token malformed"}
	ErrBadSignature   = &Error{Kind: ErrUnauthorized, Msg: "token signature invalid"}
)

// Error binds a sentinel kind to a message that is safe to show to clients.
type Error struct {
	Kind error
	Msg  string
}

// New returns an error of the given kind carrying a client-facing message.
func New(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func (e *Error) Error() string { return e.Msg }

// Unwrap exposes the kind to errors.Is.
func (e *Error) Unwrap() error { return e.Kind }

// Message returns the client-facing message of err, or "" if it carries none.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return ""
}

// IsInvalidToken reports whether err is one of the token validation failures.
func IsInvalidToken(err error) bool {
	return errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrBadSignature)
}
