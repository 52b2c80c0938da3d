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

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct {
	db *DB
	q  querier
}

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db, q: db.Pool} }

const userCols = `id, name, email, pwd_hash, role, active, photo, created_at, updated_at`

var userOrderCols = map[string]string{
	"name":      "name",
	"email":     "email",
	"role":      "role",
	"active":    "active",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"id":        "id",
}

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u    model.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PwdHash, &role, &u.Active, &u.Photo, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	return &u, nil
}

// Create inserts a new user row and fills the timestamps.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, name, email, pwd_hash, role, active, photo)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at, updated_at`
	err := r.q.QueryRow(ctx, q, u.ID, u.Name, u.Email, u.PwdHash, string(u.Role), u.Active, u.Photo).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.New(errs.ErrAlreadyExists, "email already in use")
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id=$1`
	u, err := scanUser(r.q.QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// GetByEmail selects a user by email, ignoring case.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE lower(email)=lower($1)`
	u, err := scanUser(r.q.QueryRow(ctx, q, email))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// Update writes the mutable columns and refreshes updated_at.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	const q = `
UPDATE users
SET name=$2, email=$3, pwd_hash=$4, role=$5, active=$6, updated_at=now()
WHERE id=$1
RETURNING updated_at`
	err := r.q.QueryRow(ctx, q, u.ID, u.Name, u.Email, u.PwdHash, string(u.Role), u.Active).Scan(&u.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.New(errs.ErrAlreadyExists, "email already in use")
	}
	return notFound(err)
}

// SetPhoto replaces the photo reference.
func (r *UserRepo) SetPhoto(ctx context.Context, id uuid.UUID, photo *string) error {
	const q = `UPDATE users SET photo=$2, updated_at=now() WHERE id=$1`
	tag, err := r.q.Exec(ctx, q, id, photo)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes a user row; owned organizations and memberships cascade.
func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// OwnedOrganizationPhotos returns the non-null photos of organizations created by id.
func (r *UserRepo) OwnedOrganizationPhotos(ctx context.Context, id uuid.UUID) ([]string, error) {
	const q = `SELECT photo FROM organizations WHERE created_by_id=$1 AND photo IS NOT NULL ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func userWhere(q pagination.Query[model.UserFilter]) *where {
	w := &where{}
	if q.Filter.ExcludeID != uuid.Nil {
		w.add("id <> " + w.arg(q.Filter.ExcludeID))
	}
	if q.Search != "" {
		p := w.arg(containsPattern(q.Search))
		w.add(fmt.Sprintf("(email ILIKE %s OR name ILIKE %s)", p, p))
	}
	return w
}

// Count returns the number of users matching filter and search.
func (r *UserRepo) Count(ctx context.Context, q pagination.Query[model.UserFilter]) (int64, error) {
	w := userWhere(q)
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM users`+w.String(), w.args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// List returns one ordered window of users.
func (r *UserRepo) List(ctx context.Context, q pagination.Query[model.UserFilter]) ([]model.User, error) {
	order, err := orderClause(q.OrderBy, userOrderCols)
	if err != nil {
		return nil, err
	}
	w := userWhere(q)
	sql := `SELECT ` + userCols + ` FROM users` + w.String() + order +
		fmt.Sprintf(" LIMIT %s OFFSET %s", w.arg(q.Limit), w.arg(q.Offset))

	rows, err := r.q.Query(ctx, sql, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// Snapshot runs fn with a repository bound to one read-only transaction.
func (r *UserRepo) Snapshot(ctx context.Context, fn func(context.Context, pagination.Source[model.User, model.UserFilter]) error) error {
	return r.db.snapshot(ctx, func(q querier) error {
		return fn(ctx, &UserRepo{db: r.db, q: q})
	})
}
