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

// OrganizationService manages organizations on behalf of an authenticated actor.
// Returned organizations are already filtered for the actor.
type OrganizationService interface {
	Create(ctx context.Context, actor model.Identity, in CreateOrganizationInput) (model.Organization, error)
	List(ctx context.Context, actor model.Identity, req pagination.Request, f OrganizationListFilter) (pagination.Result[model.Organization], error)
	Get(ctx context.Context, actor model.Identity, id uuid.UUID) (model.Organization, error)
	Update(ctx context.Context, actor model.Identity, id uuid.UUID, p model.OrganizationPatch) (model.Organization, error)
	Delete(ctx context.Context, actor model.Identity, id uuid.UUID) error
	UploadAvatar(ctx context.Context, actor model.Identity, id uuid.UUID, f attachment.File) (model.Organization, error)
	DeleteAvatar(ctx context.Context, actor model.Identity, id uuid.UUID) (model.Organization, error)
	AddUsers(ctx context.Context, actor model.Identity, id uuid.UUID, userIDs []uuid.UUID) (model.Organization, error)
	RemoveUsers(ctx context.Context, actor model.Identity, id uuid.UUID, userIDs []uuid.UUID) (model.Organization, error)
}

// CreateOrganizationInput is the creation payload.
type CreateOrganizationInput struct {
	Name   string
	Active *bool // admin only
}

// OrganizationListFilter holds the caller-relative list filters.
type OrganizationListFilter struct {
	MeOwner bool
	MeWork  *bool // nil: any; true: actor is a worker; false: actor is not
}

type OrganizationServiceImpl struct {
	orgs repository.OrganizationRepository
	att  *attachment.Lifecycle
}

// NewOrganizationService constructs OrganizationService.
func NewOrganizationService(orgs repository.OrganizationRepository, att *attachment.Lifecycle) *OrganizationServiceImpl {
	return &OrganizationServiceImpl{orgs: orgs, att: att}
}

var errNotOwner = errs.New(errs.ErrForbidden, "you are not allowed to modify this organization")

// Create records the actor as creator. Only admins may set the active flag.
func (s *OrganizationServiceImpl) Create(ctx context.Context, actor model.Identity, in CreateOrganizationInput) (model.Organization, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Organization{}, errs.New(errs.ErrBadRequest, "name is required")
	}
	id, err := uuid.NewV4()
	if err != nil {
		return model.Organization{}, err
	}
	o := &model.Organization{ID: id, Name: name, CreatedByID: actor.ID}
	if in.Active != nil && policy.CanSetActive(actor) {
		o.Active = *in.Active
	}
	if err := s.orgs.Create(ctx, o); err != nil {
		return model.Organization{}, err
	}
	return s.view(ctx, actor, o.ID)
}

// List pages through organizations.
func (s *OrganizationServiceImpl) List(ctx context.Context, actor model.Identity, req pagination.Request, f OrganizationListFilter) (pagination.Result[model.Organization], error) {
	var filter model.OrganizationFilter
	if f.MeOwner {
		filter.OwnerID = actor.ID
	}
	if f.MeWork != nil {
		filter.WorkerID = actor.ID
		filter.IsWorker = *f.MeWork
	}
	res, err := pagination.Fetch[model.Organization, model.OrganizationFilter](ctx, s.orgs, req, filter, repository.OrganizationSort)
	if err != nil {
		return pagination.Result[model.Organization]{}, err
	}
	return pagination.Map(res, func(o model.Organization) model.Organization {
		return policy.FilterVisibleFields(o, actor)
	}), nil
}

// Get returns one organization.
func (s *OrganizationServiceImpl) Get(ctx context.Context, actor model.Identity, id uuid.UUID) (model.Organization, error) {
	return s.view(ctx, actor, id)
}

// Update applies p. Creator or admin; only admins may change active.
func (s *OrganizationServiceImpl) Update(ctx context.Context, actor model.Identity, id uuid.UUID, p model.OrganizationPatch) (model.Organization, error) {
	o, err := s.loadForMutation(ctx, actor, id)
	if err != nil {
		return model.Organization{}, err
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return model.Organization{}, errs.New(errs.ErrBadRequest, "name cannot be empty")
		}
		o.Name = name
	}
	if p.Active != nil && policy.CanSetActive(actor) {
		o.Active = *p.Active
	}
	if err := s.orgs.Update(ctx, o); err != nil {
		return model.Organization{}, err
	}
	return policy.FilterVisibleFields(*o, actor), nil
}

// Delete removes an organization and its photo. Creator or admin.
func (s *OrganizationServiceImpl) Delete(ctx context.Context, actor model.Identity, id uuid.UUID) error {
	o, err := s.loadForMutation(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.orgs.Delete(ctx, o.ID); err != nil {
		return err
	}
	if o.Photo != nil {
		_, _ = s.att.Remove(ctx, attachment.KindOrganization, o.Photo, func(context.Context) error { return nil })
	}
	return nil
}

// UploadAvatar replaces the organization photo. Creator or admin.
func (s *OrganizationServiceImpl) UploadAvatar(ctx context.Context, actor model.Identity, id uuid.UUID, f attachment.File) (model.Organization, error) {
	o, err := s.loadForMutation(ctx, actor, id)
	if err != nil {
		return model.Organization{}, err
	}
	_, err = s.att.Replace(ctx, attachment.KindOrganization, o.ID, f, func(ctx context.Context, loc string) error {
		if err := s.orgs.SetPhoto(ctx, o.ID, &loc); err != nil {
			return err
		}
		o.Photo = &loc
		return nil
	})
	if err != nil {
		return model.Organization{}, err
	}
	return policy.FilterVisibleFields(*o, actor), nil
}

// DeleteAvatar removes the organization photo. Creator or admin.
func (s *OrganizationServiceImpl) DeleteAvatar(ctx context.Context, actor model.Identity, id uuid.UUID) (model.Organization, error) {
	o, err := s.loadForMutation(ctx, actor, id)
	if err != nil {
		return model.Organization{}, err
	}
	_, err = s.att.Remove(ctx, attachment.KindOrganization, o.Photo, func(ctx context.Context) error {
		if err := s.orgs.SetPhoto(ctx, o.ID, nil); err != nil {
			return err
		}
		o.Photo = nil
		return nil
	})
	if err != nil {
		return model.Organization{}, err
	}
	return policy.FilterVisibleFields(*o, actor), nil
}

// AddUsers links workers. Creator or admin.
func (s *OrganizationServiceImpl) AddUsers(ctx context.Context, actor model.Identity, id uuid.UUID, userIDs []uuid.UUID) (model.Organization, error) {
	ids, err := distinctIDs(userIDs)
	if err != nil {
		return model.Organization{}, err
	}
	if _, err := s.loadForMutation(ctx, actor, id); err != nil {
		return model.Organization{}, err
	}
	if _, err := s.orgs.AddMembers(ctx, id, ids); err != nil {
		return model.Organization{}, err
	}
	return s.view(ctx, actor, id)
}

// RemoveUsers unlinks workers. Creator or admin.
func (s *OrganizationServiceImpl) RemoveUsers(ctx context.Context, actor model.Identity, id uuid.UUID, userIDs []uuid.UUID) (model.Organization, error) {
	ids, err := distinctIDs(userIDs)
	if err != nil {
		return model.Organization{}, err
	}
	if _, err := s.loadForMutation(ctx, actor, id); err != nil {
		return model.Organization{}, err
	}
	if _, err := s.orgs.RemoveMembers(ctx, id, ids); err != nil {
		return model.Organization{}, err
	}
	return s.view(ctx, actor, id)
}

func (s *OrganizationServiceImpl) load(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	o, err := s.orgs.GetByID(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.New(errs.ErrNotFound, "organization not found")
	}
	return o, err
}

func (s *OrganizationServiceImpl) loadForMutation(ctx context.Context, actor model.Identity, id uuid.UUID) (*model.Organization, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanMutateResource(actor, o) {
		return nil, errNotOwner
	}
	return o, nil
}

func (s *OrganizationServiceImpl) view(ctx context.Context, actor model.Identity, id uuid.UUID) (model.Organization, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return model.Organization{}, err
	}
	return policy.FilterVisibleFields(*o, actor), nil
}

func distinctIDs(in []uuid.UUID) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool, len(in))
	out := make([]uuid.UUID, 0, len(in))
	for _, id := range in {
		if id == uuid.Nil {
			return nil, errs.New(errs.ErrBadRequest, "userIds must not contain a nil id")
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil, errs.New(errs.ErrBadRequest, "userIds must contain at least one id")
	}
	return out, nil
}
