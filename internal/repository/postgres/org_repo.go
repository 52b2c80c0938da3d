package postgres

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/orgdesk/internal/errs"
	"github.com/and161185/orgdesk/internal/model"
	"github.com/and161185/orgdesk/internal/pagination"
)

// OrganizationRepo implements OrganizationRepository using PostgreSQL.
type OrganizationRepo struct {
	db *DB
	q  querier
}

// NewOrganizationRepo constructs an organization repository.
func NewOrganizationRepo(db *DB) *OrganizationRepo {
	return &OrganizationRepo{db: db, q: db.Pool}
}

const orgSelect = `
SELECT o.id, o.name, o.active, o.photo, o.created_by_id, o.created_at, o.updated_at,
       u.id, u.name, u.email, u.role, u.active, u.photo, u.created_at, u.updated_at
FROM organizations o
JOIN users u ON u.id = o.created_by_id`

var orgOrderCols = map[string]string{
	"name":      "o.name",
	"active":    "o.active",
	"createdAt": "o.created_at",
	"updatedAt": "o.updated_at",
	"id":        "o.id",
}

func scanUserView(dest *model.UserView) []any {
	return []any{&dest.ID, &dest.Name, &dest.Email, (*string)(&dest.Role), &dest.Active, &dest.Photo, &dest.CreatedAt, &dest.UpdatedAt}
}

func scanOrganization(row pgx.Row) (*model.Organization, error) {
	var (
		o       model.Organization
		creator model.UserView
	)
	dest := append([]any{&o.ID, &o.Name, &o.Active, &o.Photo, &o.CreatedByID, &o.CreatedAt, &o.UpdatedAt}, scanUserView(&creator)...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	o.CreatedBy = &creator
	return &o, nil
}

// Create inserts a new organization row and fills the timestamps.
func (r *OrganizationRepo) Create(ctx context.Context, o *model.Organization) error {
	const q = `
INSERT INTO organizations (id, name, active, photo, created_by_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at, updated_at`
	err := r.q.QueryRow(ctx, q, o.ID, o.Name, o.Active, o.Photo, o.CreatedByID).Scan(&o.CreatedAt, &o.UpdatedAt)
	if isForeignKeyViolation(err) {
		return errs.New(errs.ErrNotFound, "creator not found")
	}
	return err
}

// GetByID loads an organization with its creator and workers.
func (r *OrganizationRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	o, err := scanOrganization(r.q.QueryRow(ctx, orgSelect+` WHERE o.id=$1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	if o.Workers, err = r.members(ctx, id); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrganizationRepo) members(ctx context.Context, orgID uuid.UUID) ([]model.Membership, error) {
	const q = `
SELECT m.organization_id, m.user_id, m.created_at,
       u.id, u.name, u.email, u.role, u.active, u.photo, u.created_at, u.updated_at
FROM organization_members m
JOIN users u ON u.id = m.user_id
WHERE m.organization_id=$1
ORDER BY m.created_at, m.user_id`
	rows, err := r.q.Query(ctx, q, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Membership{}
	for rows.Next() {
		var (
			m model.Membership
			u model.UserView
		)
		dest := append([]any{&m.OrganizationID, &m.UserID, &m.CreatedAt}, scanUserView(&u)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		m.User = &u
		out = append(out, m)
	}
	return out, rows.Err()
}

// Update writes name and active flag and refreshes updated_at.
func (r *OrganizationRepo) Update(ctx context.Context, o *model.Organization) error {
	const q = `
UPDATE organizations
SET name=$2, active=$3, updated_at=now()
WHERE id=$1
RETURNING updated_at`
	return notFound(r.q.QueryRow(ctx, q, o.ID, o.Name, o.Active).Scan(&o.UpdatedAt))
}

// SetPhoto replaces the photo reference.
func (r *OrganizationRepo) SetPhoto(ctx context.Context, id uuid.UUID, photo *string) error {
	tag, err := r.q.Exec(ctx, `UPDATE organizations SET photo=$2, updated_at=now() WHERE id=$1`, id, photo)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes an organization; memberships cascade.
func (r *OrganizationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM organizations WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// AddMembers links users as workers. Existing links are left untouched.
func (r *OrganizationRepo) AddMembers(ctx context.Context, orgID uuid.UUID, userIDs []uuid.UUID) (int64, error) {
	const q = `
INSERT INTO organization_members (organization_id, user_id)
SELECT $1, unnest($2::uuid[])
ON CONFLICT (organization_id, user_id) DO NOTHING`
	tag, err := r.q.Exec(ctx, q, orgID, userIDs)
	if isForeignKeyViolation(err) {
		return 0, errs.New(errs.ErrNotFound, "organization or user not found")
	}
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RemoveMembers unlinks the given users.
func (r *OrganizationRepo) RemoveMembers(ctx context.Context, orgID uuid.UUID, userIDs []uuid.UUID) (int64, error) {
	const q = `DELETE FROM organization_members WHERE organization_id=$1 AND user_id = ANY($2::uuid[])`
	tag, err := r.q.Exec(ctx, q, orgID, userIDs)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func orgWhere(q pagination.Query[model.OrganizationFilter]) *where {
	w := &where{}
	f := q.Filter
	if f.OwnerID != uuid.Nil {
		w.add("o.created_by_id = " + w.arg(f.OwnerID))
	}
	if f.WorkerID != uuid.Nil {
		exists := "EXISTS"
		if !f.IsWorker {
			exists = "NOT EXISTS"
		}
		w.add(fmt.Sprintf("%s (SELECT 1 FROM organization_members m WHERE m.organization_id = o.id AND m.user_id = %s)", exists, w.arg(f.WorkerID)))
	}
	if q.Search != "" {
		w.add("o.name ILIKE " + w.arg(containsPattern(q.Search)))
	}
	return w
}

// Count returns the number of organizations matching filter and search.
func (r *OrganizationRepo) Count(ctx context.Context, q pagination.Query[model.OrganizationFilter]) (int64, error) {
	w := orgWhere(q)
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM organizations o`+w.String(), w.args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// List returns one ordered window of organizations with their creators.
func (r *OrganizationRepo) List(ctx context.Context, q pagination.Query[model.OrganizationFilter]) ([]model.Organization, error) {
	order, err := orderClause(q.OrderBy, orgOrderCols)
	if err != nil {
		return nil, err
	}
	w := orgWhere(q)
	sql := orgSelect + w.String() + order +
		fmt.Sprintf(" LIMIT %s OFFSET %s", w.arg(q.Limit), w.arg(q.Offset))

	rows, err := r.q.Query(ctx, sql, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// Snapshot runs fn with a repository bound to one read-only transaction.
func (r *OrganizationRepo) Snapshot(ctx context.Context, fn func(context.Context, pagination.Source[model.Organization, model.OrganizationFilter]) error) error {
	return r.db.snapshot(ctx, func(q querier) error {
		return fn(ctx, &OrganizationRepo{db: r.db, q: q})
	})
}
