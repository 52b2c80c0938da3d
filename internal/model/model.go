// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Role is the two-tier authorization role of an account.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r == RoleMember || r == RoleAdmin }

// Tokens collects an issued access token.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// User is the stored account (credential record plus profile).
// PwdHash never leaves the service boundary; use Identity or UserView outward.
type User struct {
	ID        uuid.UUID // PK
	Name      string
	Email     string // unique, case-insensitive
	PwdHash   string // bcrypt
	Role      Role
	Active    bool
	Photo     *string // attachment location, nil when none
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity is the authenticated actor projected from a User.
type Identity struct {
	ID     uuid.UUID
	Email  string
	Role   Role
	Active bool
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// Identity projects the user into an Identity, dropping the password hash.
func (u User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email, Role: u.Role, Active: u.Active}
}

// UserView is the externally visible shape of a user.
type UserView struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Active    bool      `json:"active"`
	Photo     *string   `json:"photo"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// View strips the password hash.
func (u User) View() UserView {
	return UserView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Active:    u.Active,
		Photo:     u.Photo,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// UserPatch lists optional profile changes; nil means "leave as is".
type UserPatch struct {
	Name     *string
	Email    *string
	Password *string
	Active   *bool
}

// UserFilter narrows user listings.
type UserFilter struct {
	ExcludeID uuid.UUID // uuid.Nil disables
}

// Organization is an ownable resource created by a user.
type Organization struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Active      bool         `json:"active"`
	Photo       *string      `json:"photo"`
	CreatedByID uuid.UUID    `json:"createdById"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	CreatedBy   *UserView    `json:"createdBy,omitempty"` // admin-only
	Workers     []Membership `json:"workers,omitempty"`   // admin-only
}

// OwnerID returns the creator of the organization.
func (o Organization) OwnerID() uuid.UUID { return o.CreatedByID }

// Membership links a user to an organization as a worker.
type Membership struct {
	OrganizationID uuid.UUID `json:"organizationId"`
	UserID         uuid.UUID `json:"userId"`
	User           *UserView `json:"user,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// OrganizationPatch lists optional organization changes.
type OrganizationPatch struct {
	Name   *string
	Active *bool
}

// OrganizationFilter narrows organization listings.
type OrganizationFilter struct {
	OwnerID  uuid.UUID // uuid.Nil disables
	WorkerID uuid.UUID // uuid.Nil disables
	// IsWorker selects organizations where WorkerID is (true) or is not (false) a worker.
	IsWorker bool
}
