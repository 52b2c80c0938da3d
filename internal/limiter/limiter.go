// Package limiter throttles sign-in attempts per account and client address.
package limiter

import (
	"context"
	"crypto/sha256"
	"strings"
	"time"
)

// Key identifies one throttling bucket.
type Key struct {
	Email  string // lowercased
	IPHash []byte
}

// NewKey normalizes the email and hashes the client address.
func NewKey(email, ip string) Key {
	h := sha256.Sum256([]byte(ip))
	return Key{Email: strings.ToLower(strings.TrimSpace(email)), IPHash: h[:]}
}

// Limiter controls sign-in attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether an attempt may proceed and, if not, how long to wait.
	Allow(ctx context.Context, k Key) (bool, time.Duration, error)
	// Success clears the failure history of k.
	Success(ctx context.Context, k Key) error
	// Failure records a failed attempt and reports whether k is now blocked.
	Failure(ctx context.Context, k Key) (bool, time.Duration, error)
}

// Nop never blocks.
type Nop struct{}

func (Nop) Allow(context.Context, Key) (bool, time.Duration, error)   { return true, 0, nil }
func (Nop) Success(context.Context, Key) error                        { return nil }
func (Nop) Failure(context.Context, Key) (bool, time.Duration, error) { return false, 0, nil }
