package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"

	pkgcrypto "github.com/and161185/orgdesk/internal/crypto"
	"github.com/and161185/orgdesk/internal/errs"
	"github.com/and161185/orgdesk/internal/limiter"
	"github.com/and161185/orgdesk/internal/model"
	"github.com/and161185/orgdesk/internal/pagination"
	"github.com/and161185/orgdesk/internal/repository"
	"github.com/and161185/orgdesk/internal/token"
)

type fakeUsers struct {
	byID map[uuid.UUID]*model.User
	// orgPhotos holds photos of organizations created by a user.
	orgPhotos map[uuid.UUID][]string

	createErr error
	getErr    error
	clock     time.Time
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[uuid.UUID]*model.User{}, clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeUsers) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeUsers) emailTaken(email string, except uuid.UUID) bool {
	for _, u := range f.byID {
		if u.ID != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.emailTaken(u.Email, uuid.Nil) {
		return errs.New(errs.ErrAlreadyExists, "email already in use")
	}
	u.CreatedAt = f.tick()
	u.UpdatedAt = u.CreatedAt
	cpy := *u
	f.byID[u.ID] = &cpy
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) Update(_ context.Context, u *model.User) error {
	if _, ok := f.byID[u.ID]; !ok {
		return errs.ErrNotFound
	}
	if f.emailTaken(u.Email, u.ID) {
		return errs.New(errs.ErrAlreadyExists, "email already in use")
	}
	u.UpdatedAt = f.tick()
	c := *u
	f.byID[u.ID] = &c
	return nil
}

func (f *fakeUsers) SetPhoto(_ context.Context, id uuid.UUID, photo *string) error {
	u, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.Photo = photo
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byID, id)
	delete(f.orgPhotos, id)
	return nil
}

func (f *fakeUsers) OwnedOrganizationPhotos(_ context.Context, id uuid.UUID) ([]string, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return append([]string(nil), f.orgPhotos[id]...), nil
}

func (f *fakeUsers) match(q pagination.Query[model.UserFilter]) []model.User {
	var out []model.User
	s := strings.ToLower(q.Search)
	for _, u := range f.byID {
		if u.ID == q.Filter.ExcludeID {
			continue
		}
		if s != "" && !strings.Contains(strings.ToLower(u.Email), s) && !strings.Contains(strings.ToLower(u.Name), s) {
			continue
		}
		out = append(out, *u)
	}
	// Creation order, then id: the tie-breaker every real query appends.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (f *fakeUsers) Count(_ context.Context, q pagination.Query[model.UserFilter]) (int64, error) {
	return int64(len(f.match(q))), nil
}

func (f *fakeUsers) List(_ context.Context, q pagination.Query[model.UserFilter]) ([]model.User, error) {
	return pagination.Window(f.match(q), q.Offset, q.Limit), nil
}

type fakeOrgs struct {
	byID    map[uuid.UUID]*model.Organization
	members map[uuid.UUID]map[uuid.UUID]bool
	users   *fakeUsers
	clock   time.Time

	lastFilter model.OrganizationFilter
}

var _ repository.OrganizationRepository = (*fakeOrgs)(nil)

func newFakeOrgs(users *fakeUsers) *fakeOrgs {
	return &fakeOrgs{
		byID:    map[uuid.UUID]*model.Organization{},
		members: map[uuid.UUID]map[uuid.UUID]bool{},
		users:   users,
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeOrgs) Create(_ context.Context, o *model.Organization) error {
	if _, ok := f.users.byID[o.CreatedByID]; !ok {
		return errs.New(errs.ErrNotFound, "creator not found")
	}
	f.clock = f.clock.Add(time.Second)
	o.CreatedAt, o.UpdatedAt = f.clock, f.clock
	c := *o
	f.byID[o.ID] = &c
	f.members[o.ID] = map[uuid.UUID]bool{}
	return nil
}

func (f *fakeOrgs) hydrate(o model.Organization) model.Organization {
	if u, ok := f.users.byID[o.CreatedByID]; ok {
		v := u.View()
		o.CreatedBy = &v
	}
	o.Workers = []model.Membership{}
	for uid := range f.members[o.ID] {
		m := model.Membership{OrganizationID: o.ID, UserID: uid}
		if u, ok := f.users.byID[uid]; ok {
			v := u.View()
			m.User = &v
		}
		o.Workers = append(o.Workers, m)
	}
	return o
}

func (f *fakeOrgs) GetByID(_ context.Context, id uuid.UUID) (*model.Organization, error) {
	o, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	h := f.hydrate(*o)
	return &h, nil
}

func (f *fakeOrgs) Update(_ context.Context, o *model.Organization) error {
	cur, ok := f.byID[o.ID]
	if !ok {
		return errs.ErrNotFound
	}
	cur.Name, cur.Active = o.Name, o.Active
	return nil
}

func (f *fakeOrgs) SetPhoto(_ context.Context, id uuid.UUID, photo *string) error {
	o, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	o.Photo = photo
	return nil
}

func (f *fakeOrgs) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byID, id)
	delete(f.members, id)
	return nil
}

func (f *fakeOrgs) AddMembers(_ context.Context, orgID uuid.UUID, userIDs []uuid.UUID) (int64, error) {
	var n int64
	for _, id := range userIDs {
		if _, ok := f.users.byID[id]; !ok {
			return 0, errs.New(errs.ErrNotFound, "organization or user not found")
		}
	}
	for _, id := range userIDs {
		if !f.members[orgID][id] {
			f.members[orgID][id] = true
			n++
		}
	}
	return n, nil
}

func (f *fakeOrgs) RemoveMembers(_ context.Context, orgID uuid.UUID, userIDs []uuid.UUID) (int64, error) {
	var n int64
	for _, id := range userIDs {
		if f.members[orgID][id] {
			delete(f.members[orgID], id)
			n++
		}
	}
	return n, nil
}

func (f *fakeOrgs) match(q pagination.Query[model.OrganizationFilter]) []model.Organization {
	f.lastFilter = q.Filter
	var out []model.Organization
	for _, o := range f.byID {
		if q.Filter.OwnerID != uuid.Nil && o.CreatedByID != q.Filter.OwnerID {
			continue
		}
		if q.Filter.WorkerID != uuid.Nil && f.members[o.ID][q.Filter.WorkerID] != q.Filter.IsWorker {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(o.Name), strings.ToLower(q.Search)) {
			continue
		}
		out = append(out, f.hydrate(*o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (f *fakeOrgs) Count(_ context.Context, q pagination.Query[model.OrganizationFilter]) (int64, error) {
	return int64(len(f.match(q))), nil
}

func (f *fakeOrgs) List(_ context.Context, q pagination.Query[model.OrganizationFilter]) ([]model.Organization, error) {
	return pagination.Window(f.match(q), q.Offset, q.Limit), nil
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	allowCalls   int
	failureCalls int
	successCalls int
	lastKey      limiter.Key
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(_ context.Context, k limiter.Key) (bool, time.Duration, error) {
	l.allowCalls++
	l.lastKey = k
	return l.allowOK, 0, l.allowErr
}

func (l *fakeLimiter) Success(context.Context, limiter.Key) error {
	l.successCalls++
	return nil
}

func (l *fakeLimiter) Failure(context.Context, limiter.Key) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

type memStore struct {
	objects   map[string][]byte
	uploadErr error
	removeErr error
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (m *memStore) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.objects[key] = b
	return "https://files.test/" + key, nil
}

func (m *memStore) Remove(_ context.Context, key string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	delete(m.objects, key)
	return nil
}

func newTokens(t *testing.T) *token.Service {
	t.Helper()
	ts, err := token.NewService([]byte("test-secret"))
	if err != nil {
		t.Fatalf("token.NewService: %v", err)
	}
	return ts
}

// seedUser stores an account with the given password and returns it.
func seedUser(t *testing.T, users *fakeUsers, email, password string, role model.Role, active bool) *model.User {
	t.Helper()
	hash, err := pkgcrypto.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := &model.User{ID: uuid.Must(uuid.NewV4()), Name: strings.Split(email, "@")[0], Email: email, PwdHash: hash, Role: role, Active: active}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("seed %s: %v", email, err)
	}
	return u
}
