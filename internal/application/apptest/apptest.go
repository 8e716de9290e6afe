// Package apptest provides in-memory collaborators for tests of the user service
// and the layers above it.
package apptest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/cloudgames-users/internal/application"
	"github.com/oksasatya/cloudgames-users/internal/domain/entity"
	"github.com/oksasatya/cloudgames-users/internal/domain/event"
	repo "github.com/oksasatya/cloudgames-users/internal/domain/repository"
	"github.com/oksasatya/cloudgames-users/internal/infrastructure/eventstore"
	"github.com/oksasatya/cloudgames-users/pkg/helpers"
	"github.com/oksasatya/cloudgames-users/pkg/metrics"
)

// UserRepo is an in-memory repository.UserRepository keyed by id.
type UserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
	// Err, when set, is returned by every lookup.
	Err error
}

func NewUserRepo() *UserRepo { return &UserRepo{users: map[string]*entity.User{}} }

func (r *UserRepo) FindByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return u, nil
}

func (r *UserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	for _, u := range r.users {
		if u.Email() == email {
			return u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *UserRepo) Save(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, other := range r.users {
		if id != u.ID() && other.Email() == u.Email() {
			return repo.ErrDuplicateEmail
		}
	}
	r.users[u.ID()] = u
	return nil
}

func (r *UserRepo) ExistsAdmin(context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Role().IsAdmin() {
			return true, nil
		}
	}
	return false, nil
}

func (r *UserRepo) List(context.Context) ([]*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().Before(out[j].CreatedAt()) })
	return out, nil
}

var _ repo.UserRepository = (*UserRepo)(nil)

// Env is a fully wired service over in-memory storage.
type Env struct {
	Service *application.Service
	Repo    *UserRepo
	Store   *eventstore.MemoryStore
	Tokens  *helpers.JWTManager
	Metrics *metrics.Collectors
	Logger  *logrus.Logger
}

// Option customizes NewEnv.
type Option func(*options)

type options struct {
	index application.UserIndex
	jobs  application.JobPublisher
}

func WithIndex(ix application.UserIndex) Option   { return func(o *options) { o.index = ix } }
func WithJobs(j application.JobPublisher) Option { return func(o *options) { o.jobs = j } }

// NewEnv builds a service with a cheap bcrypt cost and a discarded log.
func NewEnv(t *testing.T, opts ...Option) *Env {
	t.Helper()
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	m := metrics.New(prometheus.NewRegistry())
	store := eventstore.NewMemoryStore(logger, m)
	tokens, err := helpers.NewJWTManager("test-key", "cloudgames", "cloudgames-api", time.Hour)
	require.NoError(t, err)
	r := NewUserRepo()
	svc := application.NewService(r, store, helpers.NewBcryptHasher(bcrypt.MinCost, 4), tokens, o.index, o.jobs, logger, m)
	return &Env{Service: svc, Repo: r, Store: store, Tokens: tokens, Metrics: m, Logger: logger}
}

// Token issues an access token for u.
func (e *Env) Token(t *testing.T, u *entity.User) string {
	t.Helper()
	tok, _, err := e.Tokens.GenerateToken(u)
	require.NoError(t, err)
	return tok
}

// DecodeFact turns a stored record back into its fact.
func DecodeFact(rec repo.StoredRecord) (event.Fact, error) {
	var f event.Fact
	var err error
	switch rec.FactType {
	case event.TypeUserCreated:
		var c event.UserCreated
		err = json.Unmarshal(rec.Payload, &c)
		f = c
	case event.TypeUserUpdated:
		var u event.UserUpdated
		err = json.Unmarshal(rec.Payload, &u)
		f = u
	case event.TypeUserLoggedIn:
		var l event.UserLoggedIn
		err = json.Unmarshal(rec.Payload, &l)
		f = l
	default:
		return nil, fmt.Errorf("unknown fact type %q", rec.FactType)
	}
	return f, err
}
