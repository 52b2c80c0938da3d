package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/orgdesk/internal/model"
	"github.com/and161185/orgdesk/internal/pagination"
)

// OrganizationSort lists the orderable organization fields.
var OrganizationSort = pagination.Sortable{
	Fields:   []string{"name", "active", "createdAt", "updatedAt"},
	Tiebreak: []pagination.Order{{Field: "createdAt", Dir: pagination.Asc}, {Field: "id", Dir: pagination.Asc}},
}

// OrganizationRepository stores organizations and their worker memberships.
type OrganizationRepository interface {
	Create(ctx context.Context, o *model.Organization) error
	// GetByID loads an organization with its creator and workers.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Organization, error)
	// Update stores name and active flag of o.
	Update(ctx context.Context, o *model.Organization) error
	SetPhoto(ctx context.Context, id uuid.UUID, photo *string) error
	Delete(ctx context.Context, id uuid.UUID) error
	// AddMembers links users as workers, skipping existing links. Returns the number added.
	AddMembers(ctx context.Context, orgID uuid.UUID, userIDs []uuid.UUID) (int64, error)
	// RemoveMembers unlinks users. Returns the number removed.
	RemoveMembers(ctx context.Context, orgID uuid.UUID, userIDs []uuid.UUID) (int64, error)

	pagination.Source[model.Organization, model.OrganizationFilter]
}
