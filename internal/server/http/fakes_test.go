package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/and161185/orgdesk/internal/attachment"
	"github.com/and161185/orgdesk/internal/errs"
	"github.com/and161185/orgdesk/internal/model"
	"github.com/and161185/orgdesk/internal/pagination"
	"github.com/and161185/orgdesk/internal/service"
)

const (
	adminToken  = "admin-token"
	memberToken = "member-token"
)

var (
	admin  = model.Identity{ID: uuid.Must(uuid.NewV4()), Email: "root@x.io", Role: model.RoleAdmin, Active: true}
	member = model.Identity{ID: uuid.Must(uuid.NewV4()), Email: "m@x.io", Role: model.RoleMember, Active: true}
)

type fakeAuth struct {
	tokens    map[string]model.Identity
	authErr   error
	authPanic bool
	err     error

	signInEmail string
	signInIP    string
	signUp      service.SignUpInput
}

func (f *fakeAuth) Verify(context.Context, string, string) (model.Identity, bool, error) {
	return model.Identity{}, false, nil
}

func (f *fakeAuth) SignIn(_ context.Context, email, _ string, ip string) (model.Tokens, error) {
	f.signInEmail, f.signInIP = email, ip
	if f.err != nil {
		return model.Tokens{}, f.err
	}
	return model.Tokens{AccessToken: "signed-" + email}, nil
}

func (f *fakeAuth) SignUp(_ context.Context, in service.SignUpInput) (model.Tokens, error) {
	f.signUp = in
	if f.err != nil {
		return model.Tokens{}, f.err
	}
	return model.Tokens{AccessToken: "signed-" + in.Email}, nil
}

func (f *fakeAuth) Authenticate(_ context.Context, raw string) (model.Identity, error) {
	if f.authPanic {
		panic("authenticate exploded")
	}
	if f.authErr != nil {
		return model.Identity{}, f.authErr
	}
	id, ok := f.tokens[raw]
	if !ok {
		return model.Identity{}, errs.ErrTokenMalformed
	}
	return id, nil
}

type upload struct {
	name        string
	contentType string
	size        int64
	body        []byte
}

type fakeUsers struct {
	calls  int
	err    error
	actor  model.Identity
	id     uuid.UUID
	req    pagination.Request
	create service.CreateUserInput
	patch  model.UserPatch
	file   upload
}

func (f *fakeUsers) record(actor model.Identity, id uuid.UUID) (model.UserView, error) {
	f.calls++
	f.actor, f.id = actor, id
	if f.err != nil {
		return model.UserView{}, f.err
	}
	return model.UserView{ID: id, Email: "u@x.io", Role: model.RoleMember}, nil
}

func (f *fakeUsers) Create(_ context.Context, actor model.Identity, in service.CreateUserInput) (model.UserView, error) {
	f.create = in
	return f.record(actor, uuid.Must(uuid.NewV4()))
}

func (f *fakeUsers) List(_ context.Context, actor model.Identity, req pagination.Request) (pagination.Result[model.UserView], error) {
	f.req = req
	u, err := f.record(actor, uuid.Nil)
	if err != nil {
		return pagination.Result[model.UserView]{}, err
	}
	return pagination.Result[model.UserView]{Items: []model.UserView{u}, Page: req.Page, Limit: req.Limit, Total: 1}, nil
}

func (f *fakeUsers) Get(_ context.Context, actor model.Identity, id uuid.UUID) (model.UserView, error) {
	return f.record(actor, id)
}

func (f *fakeUsers) Update(_ context.Context, actor model.Identity, id uuid.UUID, p model.UserPatch) (model.UserView, error) {
	f.patch = p
	return f.record(actor, id)
}

func (f *fakeUsers) Delete(_ context.Context, actor model.Identity, id uuid.UUID) error {
	_, err := f.record(actor, id)
	return err
}

func (f *fakeUsers) UploadAvatar(_ context.Context, actor model.Identity, id uuid.UUID, file attachment.File) (model.UserView, error) {
	b, _ := io.ReadAll(file.Body)
	f.file = upload{name: file.Name, contentType: file.ContentType, size: file.Size, body: b}
	return f.record(actor, id)
}

func (f *fakeUsers) DeleteAvatar(_ context.Context, actor model.Identity, id uuid.UUID) (model.UserView, error) {
	return f.record(actor, id)
}

type fakeOrgs struct {
	calls   int
	err     error
	actor   model.Identity
	id      uuid.UUID
	req     pagination.Request
	filter  service.OrganizationListFilter
	create  service.CreateOrganizationInput
	patch   model.OrganizationPatch
	userIDs []uuid.UUID
	file    upload
}

func (f *fakeOrgs) record(actor model.Identity, id uuid.UUID) (model.Organization, error) {
	f.calls++
	f.actor, f.id = actor, id
	if f.err != nil {
		return model.Organization{}, f.err
	}
	return model.Organization{ID: id, Name: "acme", CreatedByID: actor.ID}, nil
}

func (f *fakeOrgs) Create(_ context.Context, actor model.Identity, in service.CreateOrganizationInput) (model.Organization, error) {
	f.create = in
	return f.record(actor, uuid.Must(uuid.NewV4()))
}

func (f *fakeOrgs) List(_ context.Context, actor model.Identity, req pagination.Request, lf service.OrganizationListFilter) (pagination.Result[model.Organization], error) {
	f.req, f.filter = req, lf
	if _, err := f.record(actor, uuid.Nil); err != nil {
		return pagination.Result[model.Organization]{}, err
	}
	return pagination.Result[model.Organization]{Items: []model.Organization{}, Page: req.Page, Limit: req.Limit}, nil
}

func (f *fakeOrgs) Get(_ context.Context, actor model.Identity, id uuid.UUID) (model.Organization, error) {
	return f.record(actor, id)
}

func (f *fakeOrgs) Update(_ context.Context, actor model.Identity, id uuid.UUID, p model.OrganizationPatch) (model.Organization, error) {
	f.patch = p
	return f.record(actor, id)
}

func (f *fakeOrgs) Delete(_ context.Context, actor model.Identity, id uuid.UUID) error {
	_, err := f.record(actor, id)
	return err
}

func (f *fakeOrgs) UploadAvatar(_ context.Context, actor model.Identity, id uuid.UUID, file attachment.File) (model.Organization, error) {
	b, _ := io.ReadAll(file.Body)
	f.file = upload{name: file.Name, contentType: file.ContentType, size: file.Size, body: b}
	return f.record(actor, id)
}

func (f *fakeOrgs) DeleteAvatar(_ context.Context, actor model.Identity, id uuid.UUID) (model.Organization, error) {
	return f.record(actor, id)
}

func (f *fakeOrgs) AddUsers(_ context.Context, actor model.Identity, id uuid.UUID, userIDs []uuid.UUID) (model.Organization, error) {
	f.userIDs = userIDs
	return f.record(actor, id)
}

func (f *fakeOrgs) RemoveUsers(_ context.Context, actor model.Identity, id uuid.UUID, userIDs []uuid.UUID) (model.Organization, error) {
	f.userIDs = userIDs
	return f.record(actor, id)
}

type testEnv struct {
	router *gin.Engine
	auth   *fakeAuth
	users  *fakeUsers
	orgs   *fakeOrgs
	logs   *observer.ObservedLogs
}

const testMaxUpload = 16

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)

	e := &testEnv{
		auth:  &fakeAuth{tokens: map[string]model.Identity{adminToken: admin, memberToken: member}},
		users: &fakeUsers{},
		orgs:  &fakeOrgs{},
		logs:  logs,
	}
	h := NewHandler(e.auth, e.users, e.orgs, log, testMaxUpload)
	e.router = NewRouter(h, log)
	return e
}

func (e *testEnv) do(method, target, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doJSON(method, target, token string, payload any) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	}
	return e.do(method, target, token, body, "application/json")
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var out errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, w.Code, "body: %s", w.Body.String())
}
