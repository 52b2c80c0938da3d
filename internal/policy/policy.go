// Package policy holds the authorization decisions. Every function is a pure
// function of its arguments; callers must check before mutating and fail with
// errs.ErrForbidden when the answer is false.
package policy

import (
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/orgdesk/internal/model"
)

// Ownable is a resource with a creator.
type Ownable interface {
	OwnerID() uuid.UUID
}

// CanManageUsers reports whether the identity may create, list or delete users.
func CanManageUsers(id model.Identity) bool {
	return id.IsAdmin()
}

// CanViewOwnProfile reports whether the identity may read or edit the profile targetID.
func CanViewOwnProfile(id model.Identity, targetID uuid.UUID) bool {
	return targetID == id.ID || id.IsAdmin()
}

// CanMutateResource reports whether the identity may change or delete r.
func CanMutateResource(id model.Identity, r Ownable) bool {
	return id.IsAdmin() || r.OwnerID() == id.ID
}

// CanSetActive reports whether the identity may toggle an "active" flag.
func CanSetActive(id model.Identity) bool {
	return id.IsAdmin()
}

// FilterVisibleFields returns a copy of o without admin-only relations
// unless the identity is an admin.
func FilterVisibleFields(o model.Organization, id model.Identity) model.Organization {
	if id.IsAdmin() {
		return o
	}
	o.CreatedBy = nil
	o.Workers = nil
	return o
}
