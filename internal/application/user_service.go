package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/cloudgames-users/internal/domain/entity"
	"github.com/oksasatya/cloudgames-users/internal/domain/event"
	repo "github.com/oksasatya/cloudgames-users/internal/domain/repository"
	"github.com/oksasatya/cloudgames-users/pkg/mailer"
	"github.com/oksasatya/cloudgames-users/pkg/metrics"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrForbidden          = errors.New("forbidden")
)

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	GenerateToken(u *entity.User) (string, time.Time, error)
}

// UserIndex keeps a searchable copy of user profiles. Search returns matching user ids.
type UserIndex interface {
	Index(ctx context.Context, u *entity.User) error
	Search(ctx context.Context, q string, size int) ([]string, error)
}

// JobPublisher enqueues background jobs such as notification emails.
type JobPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role entity.Role
}

func (a Actor) canAccess(userID string) bool {
	return a.ID == userID || a.Role.IsAdmin()
}

type Service struct {
	Repo    repo.UserRepository
	Log     repo.EventLog
	Hasher  entity.PasswordHasher
	Tokens  TokenIssuer
	Index   UserIndex    // optional
	Jobs    JobPublisher // optional
	Logger  *logrus.Logger
	Metrics *metrics.Collectors // optional

	now func() time.Time
}

func NewService(r repo.UserRepository, events repo.EventLog, hasher entity.PasswordHasher, tokens TokenIssuer, index UserIndex, jobs JobPublisher, logger *logrus.Logger, m *metrics.Collectors) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		Repo:    r,
		Log:     events,
		Hasher:  hasher,
		Tokens:  tokens,
		Index:   index,
		Jobs:    jobs,
		Logger:  logger,
		Metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	User      *entity.User
	Token     string
	ExpiresAt time.Time
}

// Register creates a regular user, persists it and records UserCreated.
func (s *Service) Register(ctx context.Context, name, email, password string) (*entity.User, error) {
	return s.create(ctx, name, email, password, entity.RoleUser)
}

func (s *Service) create(ctx context.Context, name, email, password string, role entity.Role) (*entity.User, error) {
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}
	u, err := entity.NewUser(s.Hasher, name, email, password, role)
	if err != nil {
		return nil, err
	}
	// The user is saved before its fact is appended so the log never holds a fact
	// for a user that does not exist. A failed append leaves the saved user in place.
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	if _, err := s.Log.Append(event.Created(u)); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID()).Error("append UserCreated failed; user already saved")
		return nil, err
	}
	s.index(ctx, u)
	s.notify(ctx, mailer.EmailJob{
		To:       u.Email(),
		Template: mailer.TemplateWelcome,
		Data:     map[string]any{"Name": u.Name()},
	})
	s.Logger.WithFields(logrus.Fields{"user_id": u.ID(), "role": u.Role()}).Info("user created")
	return u, nil
}

// Login verifies the credentials and issues a fresh access token.
// A UserLoggedIn fact is recorded for every attempt against a known email.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.Repo.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		s.Metrics.Login("unknown_user")
		s.Logger.WithField("email", email).Warn("login for unknown email")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok := u.ValidatePassword(s.Hasher, password)
	if _, err := s.Log.Append(event.LoggedIn(u, ok, s.now())); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID()).Error("append UserLoggedIn failed")
		return nil, err
	}
	if !ok {
		s.Metrics.Login("failure")
		s.Logger.WithField("user_id", u.ID()).Warn("login failed")
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.Tokens.GenerateToken(u)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID()).Error("generate access token failed")
		return nil, err
	}
	s.Metrics.Login("success")
	s.notify(ctx, mailer.EmailJob{
		To:       u.Email(),
		Template: mailer.TemplateLoginNotification,
		Data:     map[string]any{"Name": u.Name(), "Time": s.now().Format(time.RFC1123)},
	})
	s.Logger.WithField("user_id", u.ID()).Info("login succeeded")
	return &LoginResult{User: u, Token: token, ExpiresAt: exp}, nil
}

// GetUser returns the user with id.
func (s *Service) GetUser(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Repo.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *Service) ListUsers(ctx context.Context) ([]*entity.User, error) {
	return s.Repo.List(ctx)
}

// UpdateUser changes name and email. Only the user or an admin may do so.
func (s *Service) UpdateUser(ctx context.Context, actor Actor, id, name, email string) (*entity.User, error) {
	if !actor.canAccess(id) {
		s.Logger.WithFields(logrus.Fields{"actor_id": actor.ID, "user_id": id}).Warn("update denied")
		return nil, ErrForbidden
	}
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if email != u.Email() {
		if err := s.ensureEmailFree(ctx, email, u.ID()); err != nil {
			return nil, err
		}
	}
	u.Update(name, email)
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	if _, err := s.Log.Append(event.Updated(u)); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID()).Error("append UserUpdated failed")
		return nil, err
	}
	s.index(ctx, u)
	s.Logger.WithFields(logrus.Fields{"user_id": u.ID(), "actor_id": actor.ID}).Info("user updated")
	return u, nil
}

// SearchUsers looks users up by name or email through the search index.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]*entity.User, error) {
	if s.Index == nil {
		return []*entity.User{}, nil
	}
	ids, err := s.Index.Search(ctx, q, size)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.User, 0, len(ids))
	for _, id := range ids {
		u, err := s.Repo.FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			// index lags behind the repository; skip stale hits
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// Events returns the audit records of one user.
func (s *Service) Events(_ context.Context, actor Actor, subjectID string) ([]repo.StoredRecord, error) {
	if !actor.canAccess(subjectID) {
		return nil, ErrForbidden
	}
	return s.Log.Query(subjectID), nil
}

// EnsureAdmin creates an administrator when none exists. It reports whether one was created.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	exists, err := s.Repo.ExistsAdmin(ctx)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if password == "" {
		return false, errors.New("admin password is required to seed an administrator")
	}
	if _, err := s.create(ctx, name, email, password, entity.RoleAdmin); err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	return true, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email, ownerID string) error {
	existing, err := s.Repo.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID() != ownerID:
		return ErrEmailTaken
	}
	return nil
}

func (s *Service) save(ctx context.Context, u *entity.User) error {
	err := s.Repo.Save(ctx, u)
	if errors.Is(err, repo.ErrDuplicateEmail) {
		return ErrEmailTaken
	}
	return err
}

func (s *Service) index(ctx context.Context, u *entity.User) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Index(ctx, u); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID()).Warn("search index failed")
	}
}

func (s *Service) notify(ctx context.Context, job mailer.EmailJob) {
	if s.Jobs == nil {
		return
	}
	if err := s.Jobs.PublishJSON(ctx, job); err != nil {
		s.Logger.WithError(err).WithField("template", job.Template).Warn("failed to publish email job")
	}
}
