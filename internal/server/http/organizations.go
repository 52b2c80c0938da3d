package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/orgdesk/internal/model"
	"github.com/and161185/orgdesk/internal/pagination"
	"github.com/and161185/orgdesk/internal/service"
)

type createOrganizationRequest struct {
	Name   string `json:"name"`
	Active *bool  `json:"active"`
}

func (r createOrganizationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
	)
}

type updateOrganizationRequest struct {
	Name   *string `json:"name"`
	Active *bool   `json:"active"`
}

func (r updateOrganizationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(1, 200)),
	)
}

type membersRequest struct {
	UserIDs []uuid.UUID `json:"userIds"`
}

func (r membersRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserIDs, validation.Required),
	)
}

// CreateOrganization handles POST /organization.
func (h *Handler) CreateOrganization(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req createOrganizationRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	o, err := h.orgs.Create(c.Request.Context(), actor, service.CreateOrganizationInput{Name: req.Name, Active: req.Active})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// ListOrganizations handles GET /organization?meOwner=&meWork=.
func (h *Handler) ListOrganizations(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	req, err := pagination.Parse(c.Request.URL.Query())
	if err != nil {
		h.fail(c, err)
		return
	}
	meOwner, err := queryBool(c, "meOwner")
	if err != nil {
		h.fail(c, err)
		return
	}
	meWork, err := queryBool(c, "meWork")
	if err != nil {
		h.fail(c, err)
		return
	}
	f := service.OrganizationListFilter{MeOwner: meOwner != nil && *meOwner, MeWork: meWork}
	page, err := h.orgs.List(c.Request.Context(), actor, req, f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetOrganization handles GET /organization/:id.
func (h *Handler) GetOrganization(c *gin.Context) {
	h.withOrg(c, func(actor model.Identity, id uuid.UUID) (model.Organization, error) {
		return h.orgs.Get(c.Request.Context(), actor, id)
	})
}

// UpdateOrganization handles PATCH /organization/:id.
func (h *Handler) UpdateOrganization(c *gin.Context) {
	var req updateOrganizationRequest
	h.withOrg(c, func(actor model.Identity, id uuid.UUID) (model.Organization, error) {
		if err := bind(c, &req); err != nil {
			return model.Organization{}, err
		}
		return h.orgs.Update(c.Request.Context(), actor, id, model.OrganizationPatch{Name: req.Name, Active: req.Active})
	})
}

// DeleteOrganization handles DELETE /organization/:id.
func (h *Handler) DeleteOrganization(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, err := pathID(c, actor, false)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.orgs.Delete(c.Request.Context(), actor, id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadOrganizationAvatar handles POST /organization/avatar/:id.
func (h *Handler) UploadOrganizationAvatar(c *gin.Context) {
	h.withOrg(c, func(actor model.Identity, id uuid.UUID) (model.Organization, error) {
		f, done, err := h.uploadedFile(c)
		if err != nil {
			return model.Organization{}, err
		}
		defer done()
		return h.orgs.UploadAvatar(c.Request.Context(), actor, id, f)
	})
}

// DeleteOrganizationAvatar handles DELETE /organization/avatar/:id.
func (h *Handler) DeleteOrganizationAvatar(c *gin.Context) {
	h.withOrg(c, func(actor model.Identity, id uuid.UUID) (model.Organization, error) {
		return h.orgs.DeleteAvatar(c.Request.Context(), actor, id)
	})
}

// AddOrganizationUsers handles POST /organization/add-users/:id.
func (h *Handler) AddOrganizationUsers(c *gin.Context) {
	var req membersRequest
	h.withOrg(c, func(actor model.Identity, id uuid.UUID) (model.Organization, error) {
		if err := bind(c, &req); err != nil {
			return model.Organization{}, err
		}
		return h.orgs.AddUsers(c.Request.Context(), actor, id, req.UserIDs)
	})
}

// RemoveOrganizationUsers handles DELETE /organization/remove-users/:id.
func (h *Handler) RemoveOrganizationUsers(c *gin.Context) {
	var req membersRequest
	h.withOrg(c, func(actor model.Identity, id uuid.UUID) (model.Organization, error) {
		if err := bind(c, &req); err != nil {
			return model.Organization{}, err
		}
		return h.orgs.RemoveUsers(c.Request.Context(), actor, id, req.UserIDs)
	})
}

// withOrg resolves the actor and :id, runs fn and writes the organization.
func (h *Handler) withOrg(c *gin.Context, fn func(actor model.Identity, id uuid.UUID) (model.Organization, error)) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, err := pathID(c, actor, false)
	if err != nil {
		h.fail(c, err)
		return
	}
	o, err := fn(actor, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
