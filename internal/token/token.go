// Package token issues and validates the signed identity tokens (HS256 JWT).
package token

import (
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/orgdesk/internal/errs"
	"github.com/and161185/orgdesk/internal/model"
)

// Lifetime is the fixed validity window of every issued token.
const Lifetime = 7 * 24 * time.Hour

// ErrNoSecret is returned when the service is built without a signing key.
var ErrNoSecret = errors.New("token: empty signing secret")

// Claims is the signed payload: {sub, email, iat, exp}.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Payload is the verified content of a token.
type Payload struct {
	Subject   uuid.UUID
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Service signs and verifies tokens with a process-wide secret.
type Service struct {
	secret []byte
	now    func() time.Time
}

// NewService builds a token service. The secret is copied and never mutated.
func NewService(secret []byte) (*Service, error) {
	if len(secret) == 0 {
		return nil, ErrNoSecret
	}
	return &Service{secret: append([]byte(nil), secret...), now: time.Now}, nil
}

// Issue creates a signed token for the identity valid for Lifetime.
func (s *Service) Issue(id model.Identity) (model.Tokens, error) {
	now := s.now()
	exp := now.Add(Lifetime)
	claims := Claims{
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: signed, ExpiresAt: exp}, nil
}

// Validate verifies signature and expiry. Failures are errs.ErrTokenExpired,
// errs.ErrBadSignature or errs.ErrTokenMalformed.
func (s *Service) Validate(raw string) (Payload, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	},
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return Payload{}, errs.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return Payload{}, errs.ErrBadSignature
	default:
		return Payload{}, errs.ErrTokenMalformed
	}

	sub, err := uuid.FromString(claims.Subject)
	if err != nil {
		return Payload{}, errs.ErrTokenMalformed
	}
	p := Payload{Subject: sub, Email: claims.Email}
	if claims.IssuedAt != nil {
		p.IssuedAt = claims.IssuedAt.Time
	}
	p.ExpiresAt = claims.ExpiresAt.Time
	return p, nil
}
