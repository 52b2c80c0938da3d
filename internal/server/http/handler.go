// Package httpserver is the HTTP boundary: routing, authentication gate,
// request validation and error mapping on top of the service layer.
package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/orgdesk/internal/attachment"
	"github.com/and161185/orgdesk/internal/errs"
	"github.com/and161185/orgdesk/internal/model"
	"github.com/and161185/orgdesk/internal/service"
)

// DefaultMaxUpload bounds attachment uploads when no limit is configured.
const DefaultMaxUpload int64 = 5 << 20

// uploadField is the multipart field carrying the attachment.
const uploadField = "file"

// Handler implements the REST endpoints.
type Handler struct {
	auth      service.AuthService
	users     service.UserService
	orgs      service.OrganizationService
	log       *zap.Logger
	maxUpload int64
}

// NewHandler builds a Handler. maxUpload <= 0 selects DefaultMaxUpload.
func NewHandler(auth service.AuthService, users service.UserService, orgs service.OrganizationService, log *zap.Logger, maxUpload int64) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &Handler{auth: auth, users: users, orgs: orgs, log: log, maxUpload: maxUpload}
}

func (h *Handler) fail(c *gin.Context, err error) {
	abortWithError(c, h.log, err)
}

// actor returns the identity set by the gate. A protected handler reached
// without one is a wiring bug.
func (h *Handler) actor(c *gin.Context) (model.Identity, bool) {
	id, ok := IdentityFromCtx(c.Request.Context())
	if !ok {
		h.fail(c, errs.New(errs.ErrUnauthorized, "authentication required"))
	}
	return id, ok
}

// bind decodes a JSON body and runs its ozzo rules.
func bind(c *gin.Context, dst validation.Validatable) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errs.New(errs.ErrBadRequest, "request body is required")
		}
		return errs.New(errs.ErrBadRequest, "invalid JSON body")
	}
	return validate(dst)
}

func validate(v validation.Validatable) error {
	err := v.Validate()
	if err == nil {
		return nil
	}
	var ierr validation.InternalError
	if errors.As(err, &ierr) {
		return fmt.Errorf("validate: %w", ierr.InternalError())
	}
	return errs.New(errs.ErrBadRequest, err.Error())
}

// pathID parses the :id parameter. "me" resolves to the caller when allowMe.
func pathID(c *gin.Context, actor model.Identity, allowMe bool) (uuid.UUID, error) {
	raw := c.Param("id")
	if allowMe && raw == "me" {
		return actor.ID, nil
	}
	id, err := uuid.FromString(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errs.New(errs.ErrBadRequest, "invalid id")
	}
	return id, nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(c *gin.Context, name string) (*bool, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errs.New(errs.ErrBadRequest, name+" must be true or false")
	}
	return &v, nil
}

// uploadedFile reads the single multipart attachment within the size limit.
func (h *Handler) uploadedFile(c *gin.Context) (attachment.File, func(), error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+(1<<20))
	fh, err := c.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return attachment.File{}, nil, errs.New(errs.ErrBadRequest, fmt.Sprintf("file exceeds %d bytes", h.maxUpload))
		}
		return attachment.File{}, nil, errs.New(errs.ErrBadRequest, "multipart field \""+uploadField+"\" is required")
	}
	if fh.Size > h.maxUpload {
		return attachment.File{}, nil, errs.New(errs.ErrBadRequest, fmt.Sprintf("file exceeds %d bytes", h.maxUpload))
	}
	body, err := fh.Open()
	if err != nil {
		return attachment.File{}, nil, fmt.Errorf("open upload: %w", err)
	}
	f := attachment.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        body,
	}
	return f, func() { _ = body.Close() }, nil
}

// Healthz is the public liveness probe.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
