// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/orgdesk/internal/model"
	"github.com/and161185/orgdesk/internal/pagination"
)

// UserSort lists the orderable user fields. Ties fall back to creation time, then id.
var UserSort = pagination.Sortable{
	Fields:   []string{"name", "email", "role", "active", "createdAt", "updatedAt"},
	Tiebreak: []pagination.Order{{Field: "createdAt", Dir: pagination.Asc}, {Field: "id", Dir: pagination.Asc}},
}

// UserRepository provides CRUD access for accounts.
type UserRepository interface {
	// Create inserts a new user; a taken email yields errs.ErrAlreadyExists.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by email, compared case-insensitively.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// Update stores name, email, password hash, role and active flag of u.
	Update(ctx context.Context, u *model.User) error
	// SetPhoto replaces the stored attachment reference; nil clears it.
	SetPhoto(ctx context.Context, id uuid.UUID, photo *string) error
	// Delete removes the user. Organizations created by the user go with it.
	Delete(ctx context.Context, id uuid.UUID) error
	// OwnedOrganizationPhotos lists the photo references of organizations
	// created by the user, i.e. the attachments a Delete leaves unreferenced.
	OwnedOrganizationPhotos(ctx context.Context, id uuid.UUID) ([]string, error)

	pagination.Source[model.User, model.UserFilter]
}
