// Package service contains the application services behind the HTTP boundary.
// Every operation on a protected resource takes the acting model.Identity
// explicitly and evaluates the policy before it mutates anything.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/gofrs/uuid/v5"

	pkgcrypto "github.com/and161185/orgdesk/internal/crypto"
	"github.com/and161185/orgdesk/internal/errs"
	"github.com/and161185/orgdesk/internal/limiter"
	"github.com/and161185/orgdesk/internal/model"
	"github.com/and161185/orgdesk/internal/repository"
	"github.com/and161185/orgdesk/internal/token"
)

// ErrInvalidCredentials is the single answer for unknown email and wrong password.
var ErrInvalidCredentials = errs.New(errs.ErrUnauthorized, "invalid credentials")

// AuthService defines sign-in, sign-up and request authentication.
type AuthService interface {
	// Verify checks an email/password pair. ok is false for both unknown
	// email and wrong password; err is reserved for storage failures.
	Verify(ctx context.Context, email, password string) (id model.Identity, ok bool, err error)
	// SignIn applies rate limiting, verifies credentials and issues a token.
	SignIn(ctx context.Context, email, password, ip string) (model.Tokens, error)
	// SignUp registers an active member account and issues a token.
	SignUp(ctx context.Context, in SignUpInput) (model.Tokens, error)
	// Authenticate validates a bearer token and resolves the current account.
	Authenticate(ctx context.Context, raw string) (model.Identity, error)
}

// TokenService issues and validates access tokens.
type TokenService interface {
	Issue(id model.Identity) (model.Tokens, error)
	Validate(raw string) (token.Payload, error)
}

// SignUpInput is the self-registration payload.
type SignUpInput struct {
	Name     string
	Email    string
	Password string
}

type AuthServiceImpl struct {
	users  repository.UserRepository
	tokens TokenService
	lim    limiter.Limiter
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, tokens TokenService, lim limiter.Limiter) *AuthServiceImpl {
	if lim == nil {
		lim = limiter.Nop{}
	}
	return &AuthServiceImpl{users: users, tokens: tokens, lim: lim}
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Verify looks the account up by email and compares the password. A missing
// account still pays for one bcrypt comparison.
func (s *AuthServiceImpl) Verify(ctx context.Context, email, password string) (model.Identity, bool, error) {
	u, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	switch {
	case errors.Is(err, errs.ErrNotFound):
		pkgcrypto.BurnCompare(password)
		return model.Identity{}, false, nil
	case err != nil:
		return model.Identity{}, false, err
	}
	if !pkgcrypto.VerifyPassword(password, u.PwdHash) {
		return model.Identity{}, false, nil
	}
	return u.Identity(), true, nil
}

// SignIn authenticates with rate limiting by (email, ip). The token is only
// returned for active accounts.
func (s *AuthServiceImpl) SignIn(ctx context.Context, email, password, ip string) (model.Tokens, error) {
	key := limiter.NewKey(email, ip)

	allowed, _, err := s.lim.Allow(ctx, key)
	if err != nil {
		return model.Tokens{}, err
	}
	if !allowed {
		return model.Tokens{}, errs.New(errs.ErrRateLimited, "too many sign-in attempts, try later")
	}

	id, ok, err := s.Verify(ctx, email, password)
	if err != nil {
		return model.Tokens{}, err
	}
	if !ok {
		if blocked, _, ferr := s.lim.Failure(ctx, key); ferr == nil && blocked {
			return model.Tokens{}, errs.New(errs.ErrRateLimited, "too many sign-in attempts, try later")
		}
		return model.Tokens{}, ErrInvalidCredentials
	}

	// Success: reset counters (best-effort).
	_ = s.lim.Success(ctx, key)

	tok, err := s.tokens.Issue(id)
	if err != nil {
		return model.Tokens{}, err
	}
	if !id.Active {
		return model.Tokens{}, errs.New(errs.ErrUnauthorized, "account is inactive")
	}
	return tok, nil
}

// SignUp creates an active member with the given credentials.
func (s *AuthServiceImpl) SignUp(ctx context.Context, in SignUpInput) (model.Tokens, error) {
	u, err := newUser(in.Name, in.Email, in.Password, model.RoleMember, true)
	if err != nil {
		return model.Tokens{}, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		return model.Tokens{}, err
	}
	return s.tokens.Issue(u.Identity())
}

// Authenticate turns a bearer token into the identity of the account as it
// is stored now. Token failures keep their typed reason.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, raw string) (model.Identity, error) {
	p, err := s.tokens.Validate(raw)
	if err != nil {
		return model.Identity{}, err
	}
	u, err := s.users.GetByID(ctx, p.Subject)
	if errors.Is(err, errs.ErrNotFound) {
		return model.Identity{}, errs.New(errs.ErrUnauthorized, "account no longer exists")
	}
	if err != nil {
		return model.Identity{}, err
	}
	return u.Identity(), nil
}

func newUser(name, email, password string, role model.Role, active bool) (*model.User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	return &model.User{
		ID:      id,
		Name:    strings.TrimSpace(name),
		Email:   NormalizeEmail(email),
		PwdHash: hash,
		Role:    role,
		Active:  active,
	}, nil
}

func hashPassword(password string) (string, error) {
	hash, err := pkgcrypto.HashPassword(password)
	switch {
	case errors.Is(err, pkgcrypto.ErrEmptyPassword):
		return "", errs.New(errs.ErrBadRequest, "password is required")
	case err != nil:
		return "", errs.New(errs.ErrBadRequest, "password cannot be used")
	}
	return hash, nil
}
