package service

import (
	"context"
	"errors"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/orgdesk/internal/attachment"
	"github.com/and161185/orgdesk/internal/errs"
	"github.com/and161185/orgdesk/internal/model"
	"github.com/and161185/orgdesk/internal/pagination"
	"github.com/and161185/orgdesk/internal/policy"
	"github.com/and161185/orgdesk/internal/repository"
)

// UserService manages accounts on behalf of an authenticated actor.
type UserService interface {
	Create(ctx context.Context, actor model.Identity, in CreateUserInput) (model.UserView, error)
	// List pages through all accounts except the actor's own.
	List(ctx context.Context, actor model.Identity, req pagination.Request) (pagination.Result[model.UserView], error)
	Get(ctx context.Context, actor model.Identity, id uuid.UUID) (model.UserView, error)
	Update(ctx context.Context, actor model.Identity, id uuid.UUID, p model.UserPatch) (model.UserView, error)
	Delete(ctx context.Context, actor model.Identity, id uuid.UUID) error
	UploadAvatar(ctx context.Context, actor model.Identity, id uuid.UUID, f attachment.File) (model.UserView, error)
	DeleteAvatar(ctx context.Context, actor model.Identity, id uuid.UUID) (model.UserView, error)
}

// CreateUserInput is the admin account-creation payload.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Active   *bool // defaults to true
	Role     model.Role
}

type UserServiceImpl struct {
	users repository.UserRepository
	att   *attachment.Lifecycle
}

// NewUserService constructs UserService.
func NewUserService(users repository.UserRepository, att *attachment.Lifecycle) *UserServiceImpl {
	return &UserServiceImpl{users: users, att: att}
}

var (
	errManageUsers = errs.New(errs.ErrForbidden, "only admins can manage users")
	errOtherUser   = errs.New(errs.ErrForbidden, "you are not allowed to access this user")
)

// Create adds an account. Admin only.
func (s *UserServiceImpl) Create(ctx context.Context, actor model.Identity, in CreateUserInput) (model.UserView, error) {
	if !policy.CanManageUsers(actor) {
		return model.UserView{}, errManageUsers
	}
	role := in.Role
	if role == "" {
		role = model.RoleMember
	}
	if !role.Valid() {
		return model.UserView{}, errs.New(errs.ErrBadRequest, "unknown role")
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	u, err := newUser(in.Name, in.Email, in.Password, role, active)
	if err != nil {
		return model.UserView{}, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		return model.UserView{}, err
	}
	return u.View(), nil
}

// List returns a page of accounts. Admin only.
func (s *UserServiceImpl) List(ctx context.Context, actor model.Identity, req pagination.Request) (pagination.Result[model.UserView], error) {
	if !policy.CanManageUsers(actor) {
		return pagination.Result[model.UserView]{}, errManageUsers
	}
	res, err := pagination.Fetch[model.User, model.UserFilter](ctx, s.users, req, model.UserFilter{ExcludeID: actor.ID}, repository.UserSort)
	if err != nil {
		return pagination.Result[model.UserView]{}, err
	}
	return pagination.Map(res, model.User.View), nil
}

// Get returns one account. Self or admin.
func (s *UserServiceImpl) Get(ctx context.Context, actor model.Identity, id uuid.UUID) (model.UserView, error) {
	u, err := s.load(ctx, actor, id)
	if err != nil {
		return model.UserView{}, err
	}
	return u.View(), nil
}

// Update applies p. Non-admins cannot toggle the active flag; the field is dropped for them.
func (s *UserServiceImpl) Update(ctx context.Context, actor model.Identity, id uuid.UUID, p model.UserPatch) (model.UserView, error) {
	u, err := s.load(ctx, actor, id)
	if err != nil {
		return model.UserView{}, err
	}
	if !policy.CanSetActive(actor) {
		p.Active = nil
	}

	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return model.UserView{}, errs.New(errs.ErrBadRequest, "name cannot be empty")
		}
		u.Name = name
	}
	if p.Email != nil {
		if email := NormalizeEmail(*p.Email); email != strings.ToLower(u.Email) {
			switch other, err := s.users.GetByEmail(ctx, email); {
			case err == nil && other.ID != u.ID:
				return model.UserView{}, errs.New(errs.ErrAlreadyExists, "email already in use")
			case err != nil && !errors.Is(err, errs.ErrNotFound):
				return model.UserView{}, err
			}
			u.Email = email
		}
	}
	if p.Password != nil {
		hash, err := hashPassword(*p.Password)
		if err != nil {
			return model.UserView{}, err
		}
		u.PwdHash = hash
	}
	if p.Active != nil {
		u.Active = *p.Active
	}

	if err := s.users.Update(ctx, u); err != nil {
		return model.UserView{}, err
	}
	return u.View(), nil
}

// Delete removes an account, its photo and the photos of the organizations
// it created. Admin only.
func (s *UserServiceImpl) Delete(ctx context.Context, actor model.Identity, id uuid.UUID) error {
	if !policy.CanManageUsers(actor) {
		return errManageUsers
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	// Owned organizations cascade with the row; collect their photos first.
	orgPhotos, err := s.users.OwnedOrganizationPhotos(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	noop := func(context.Context) error { return nil }
	if u.Photo != nil {
		_, _ = s.att.Remove(ctx, attachment.KindUser, u.Photo, noop)
	}
	for i := range orgPhotos {
		_, _ = s.att.Remove(ctx, attachment.KindOrganization, &orgPhotos[i], noop)
	}
	return nil
}

// UploadAvatar replaces the account photo. Self or admin.
func (s *UserServiceImpl) UploadAvatar(ctx context.Context, actor model.Identity, id uuid.UUID, f attachment.File) (model.UserView, error) {
	u, err := s.load(ctx, actor, id)
	if err != nil {
		return model.UserView{}, err
	}
	_, err = s.att.Replace(ctx, attachment.KindUser, u.ID, f, func(ctx context.Context, loc string) error {
		if err := s.users.SetPhoto(ctx, u.ID, &loc); err != nil {
			return err
		}
		u.Photo = &loc
		return nil
	})
	if err != nil {
		return model.UserView{}, err
	}
	return u.View(), nil
}

// DeleteAvatar removes the account photo. Self or admin; no-op without a photo.
func (s *UserServiceImpl) DeleteAvatar(ctx context.Context, actor model.Identity, id uuid.UUID) (model.UserView, error) {
	u, err := s.load(ctx, actor, id)
	if err != nil {
		return model.UserView{}, err
	}
	_, err = s.att.Remove(ctx, attachment.KindUser, u.Photo, func(ctx context.Context) error {
		if err := s.users.SetPhoto(ctx, u.ID, nil); err != nil {
			return err
		}
		u.Photo = nil
		return nil
	})
	if err != nil {
		return model.UserView{}, err
	}
	return u.View(), nil
}

// load checks self-or-admin before touching storage.
func (s *UserServiceImpl) load(ctx context.Context, actor model.Identity, id uuid.UUID) (*model.User, error) {
	if !policy.CanViewOwnProfile(actor, id) {
		return nil, errOtherUser
	}
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.New(errs.ErrNotFound, "user not found")
	}
	return u, err
}
