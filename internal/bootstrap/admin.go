// Package bootstrap prepares state the service expects before it starts serving.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/orgdesk/internal/crypto"
	"github.com/and161185/orgdesk/internal/errs"
	"github.com/and161185/orgdesk/internal/model"
)

// Users is the part of the user repository bootstrap needs.
type Users interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
}

// EnsureAdmin creates an active admin account for email if none exists.
// An existing account with that email is left untouched.
func EnsureAdmin(ctx context.Context, users Users, email, password string, log *zap.Logger) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return errors.New("admin bootstrap: email and password are required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	existing, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != model.RoleAdmin {
			log.Warn("bootstrap admin email belongs to a non-admin account", zap.String("user_id", existing.ID.String()))
		}
		return nil
	case !errors.Is(err, errs.ErrNotFound):
		return fmt.Errorf("bootstrap lookup user: %w", err)
	}

	hash, err := pkgcrypto.HashPassword(password)
	if err != nil {
		return fmt.Errorf("bootstrap hash password: %w", err)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("bootstrap user id: %w", err)
	}
	u := &model.User{
		ID:      id,
		Name:    "Admin",
		Email:   email,
		PwdHash: hash,
		Role:    model.RoleAdmin,
		Active:  true,
	}
	if err := users.Create(ctx, u); err != nil {
		// Lost a race with another instance.
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil
		}
		return fmt.Errorf("bootstrap create user: %w", err)
	}

	log.Info("bootstrap admin user created",
		zap.String("email", u.Email),
		zap.String("user_id", u.ID.String()),
	)
	return nil
}
