package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/cloudgames-users/internal/application"
	"github.com/oksasatya/cloudgames-users/internal/application/apptest"
	"github.com/oksasatya/cloudgames-users/internal/domain/entity"
	"github.com/oksasatya/cloudgames-users/internal/domain/event"
	"github.com/oksasatya/cloudgames-users/internal/domain/repository"
	"github.com/oksasatya/cloudgames-users/internal/infrastructure/eventstore"
	"github.com/oksasatya/cloudgames-users/pkg/helpers"
	"github.com/oksasatya/cloudgames-users/pkg/mailer"
	"github.com/oksasatya/cloudgames-users/pkg/metrics"
)

type mockIndex struct{ mock.Mock }

func (m *mockIndex) Index(_ context.Context, u *entity.User) error {
	return m.Called(u.ID()).Error(0)
}

func (m *mockIndex) Search(_ context.Context, q string, size int) ([]string, error) {
	args := m.Called(q, size)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

type mockJobs struct{ mock.Mock }

func (m *mockJobs) PublishJSON(_ context.Context, body any) error {
	return m.Called(body).Error(0)
}

type failingLog struct{ err error }

func (l failingLog) Append(event.Fact) (string, error)      { return "", l.err }
func (l failingLog) Query(string) []repository.StoredRecord { return []repository.StoredRecord{} }

type fixture struct {
	svc     *application.Service
	repo    *apptest.UserRepo
	store   *eventstore.MemoryStore
	tokens  *helpers.JWTManager
	metrics *metrics.Collectors
}

func newFixture(t *testing.T, index application.UserIndex, jobs application.JobPublisher) *fixture {
	t.Helper()
	var opts []apptest.Option
	if index != nil {
		opts = append(opts, apptest.WithIndex(index))
	}
	if jobs != nil {
		opts = append(opts, apptest.WithJobs(jobs))
	}
	env := apptest.NewEnv(t, opts...)
	return &fixture{svc: env.Service, repo: env.Repo, store: env.Store, tokens: env.Tokens, metrics: env.Metrics}
}

func TestUserLifecycle(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, "Ana", "ana@x.com", "Secret12!")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID())
	assert.Nil(t, u.UpdatedAt())
	assert.Equal(t, entity.RoleUser, u.Role())

	recs := f.store.Query(u.ID())
	require.Len(t, recs, 1)
	assert.Equal(t, event.TypeUserCreated, recs[0].FactType)

	updated, err := f.svc.UpdateUser(ctx, application.Actor{ID: u.ID(), Role: entity.RoleUser}, u.ID(), "Ana Silva", "ana@x.com")
	require.NoError(t, err)
	require.NotNil(t, updated.UpdatedAt())
	assert.True(t, updated.UpdatedAt().After(updated.CreatedAt()))
	assert.Equal(t, "Ana Silva", updated.Name())

	recs = f.store.Query(u.ID())
	require.Len(t, recs, 2)
	assert.Equal(t, event.TypeUserCreated, recs[0].FactType)
	assert.Equal(t, event.TypeUserUpdated, recs[1].FactType)
	assert.Less(t, recs[0].Sequence, recs[1].Sequence)

	assert.True(t, updated.ValidatePassword(f.svc.Hasher, "Secret12!"))
	assert.False(t, updated.ValidatePassword(f.svc.Hasher, "wrong"))
}

func TestRegister_EmailTaken(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "Ana", "ana@x.com", "Secret12!")
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, "Other", "ana@x.com", "Secret12!")
	assert.ErrorIs(t, err, application.ErrEmailTaken)
	assert.Equal(t, 1, f.store.Len())
}

func TestRegister_RepositoryError(t *testing.T) {
	f := newFixture(t, nil, nil)
	boom := errors.New("db down")
	f.repo.Err = boom

	_, err := f.svc.Register(context.Background(), "Ana", "ana@x.com", "Secret12!")
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, f.store.Len())
}

func TestRegister_AppendFailureKeepsSavedUser(t *testing.T) {
	f := newFixture(t, nil, nil)
	boom := errors.New("log unavailable")
	f.svc.Log = failingLog{err: boom}
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "Ana", "ana@x.com", "Secret12!")
	assert.ErrorIs(t, err, boom)

	saved, err := f.repo.FindByEmail(ctx, "ana@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana", saved.Name())

	_, err = f.svc.Register(ctx, "Ana", "ana@x.com", "Secret12!")
	assert.ErrorIs(t, err, application.ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	jobs := &mockJobs{}
	jobs.On("PublishJSON", mock.Anything).Return(nil)
	f := newFixture(t, nil, jobs)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, "Ana", "ana@x.com", "Secret12!")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "ana@x.com", "wrong")
	assert.ErrorIs(t, err, application.ErrInvalidCredentials)

	res, err := f.svc.Login(ctx, "ana@x.com", "Secret12!")
	require.NoError(t, err)
	assert.Equal(t, u.ID(), res.User.ID())
	assert.True(t, res.ExpiresAt.After(time.Now()))

	claims, err := f.tokens.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID(), claims.UserID())
	assert.Equal(t, "User", claims.Role)

	recs := f.store.Query(u.ID())
	require.Len(t, recs, 3)
	first, err := apptest.DecodeFact(recs[1])
	require.NoError(t, err)
	second, err := apptest.DecodeFact(recs[2])
	require.NoError(t, err)
	assert.False(t, first.(event.UserLoggedIn).Success)
	assert.True(t, second.(event.UserLoggedIn).Success)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LoginAttempts.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LoginAttempts.WithLabelValues("failure")))

	var templates []string
	for _, c := range jobs.Calls {
		templates = append(templates, c.Arguments.Get(0).(mailer.EmailJob).Template)
	}
	assert.Equal(t, []string{mailer.TemplateWelcome, mailer.TemplateLoginNotification}, templates)
}

func TestLogin_UnknownEmail(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, err := f.svc.Login(context.Background(), "ghost@x.com", "whatever")
	assert.ErrorIs(t, err, application.ErrInvalidCredentials)
	assert.Zero(t, f.store.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LoginAttempts.WithLabelValues("unknown_user")))
}

func TestUpdateUser_Access(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	ana, err := f.svc.Register(ctx, "Ana", "ana@x.com", "Secret12!")
	require.NoError(t, err)
	bo, err := f.svc.Register(ctx, "Bo", "bo@x.com", "Secret12!")
	require.NoError(t, err)

	_, err = f.svc.UpdateUser(ctx, application.Actor{ID: bo.ID(), Role: entity.RoleUser}, ana.ID(), "Hacked", "ana@x.com")
	assert.ErrorIs(t, err, application.ErrForbidden)
	assert.Len(t, f.store.Query(ana.ID()), 1)

	_, err = f.svc.UpdateUser(ctx, application.Actor{ID: "admin", Role: entity.RoleAdmin}, ana.ID(), "Ana S", "ana@x.com")
	require.NoError(t, err)

	_, err = f.svc.UpdateUser(ctx, application.Actor{ID: ana.ID(), Role: entity.RoleUser}, ana.ID(), "Ana", "bo@x.com")
	assert.ErrorIs(t, err, application.ErrEmailTaken)

	_, err = f.svc.UpdateUser(ctx, application.Actor{ID: "admin", Role: entity.RoleAdmin}, "missing", "x", "x@x.com")
	assert.ErrorIs(t, err, application.ErrUserNotFound)
}

func TestEvents_Access(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	ana, err := f.svc.Register(ctx, "Ana", "ana@x.com", "Secret12!")
	require.NoError(t, err)

	recs, err := f.svc.Events(ctx, application.Actor{ID: ana.ID(), Role: entity.RoleUser}, ana.ID())
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	_, err = f.svc.Events(ctx, application.Actor{ID: "someone", Role: entity.RoleUser}, ana.ID())
	assert.ErrorIs(t, err, application.ErrForbidden)

	recs, err = f.svc.Events(ctx, application.Actor{ID: "admin", Role: entity.RoleAdmin}, "unknown")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestEnsureAdmin(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	_, err := f.svc.EnsureAdmin(ctx, "Admin", "admin@x.com", "")
	assert.Error(t, err)

	created, err := f.svc.EnsureAdmin(ctx, "Admin", "admin@x.com", "Adm1n!pass")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.svc.EnsureAdmin(ctx, "Admin", "admin2@x.com", "Adm1n!pass")
	require.NoError(t, err)
	assert.False(t, created)

	admin, err := f.repo.FindByEmail(ctx, "admin@x.com")
	require.NoError(t, err)
	assert.True(t, admin.Role().IsAdmin())
}

func TestSearchUsers(t *testing.T) {
	idx := &mockIndex{}
	idx.On("Index", mock.Anything).Return(nil)
	f := newFixture(t, idx, nil)
	ctx := context.Background()

	ana, err := f.svc.Register(ctx, "Ana", "ana@x.com", "Secret12!")
	require.NoError(t, err)
	idx.AssertCalled(t, "Index", ana.ID())

	idx.On("Search", "ana", 10).Return([]string{"stale-id", ana.ID()}, nil)
	got, err := f.svc.SearchUsers(ctx, "ana", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ana.ID(), got[0].ID())
}

func TestSearchUsers_IndexFailureDoesNotBlockWrites(t *testing.T) {
	idx := &mockIndex{}
	idx.On("Index", mock.Anything).Return(errors.New("es down"))
	idx.On("Search", "x", 5).Return(nil, errors.New("es down"))
	f := newFixture(t, idx, nil)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "Ana", "ana@x.com", "Secret12!")
	require.NoError(t, err)

	_, err = f.svc.SearchUsers(ctx, "x", 5)
	assert.Error(t, err)
}

func TestSearchUsers_NoIndex(t *testing.T) {
	f := newFixture(t, nil, nil)
	got, err := f.svc.SearchUsers(context.Background(), "ana", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
