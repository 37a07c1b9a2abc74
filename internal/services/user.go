package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/recipe-app/apiserver/internal/store"
	"github.com/recipe-app/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordMinLength is used when no positive minimum is configured.
const DefaultPasswordMinLength = 5

// passwordHashCost is lowered by tests.
var passwordHashCost = bcrypt.DefaultCost

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
}

// ProfileUpdate carries the fields a user may change on their own account.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Email    *string
	Name     *string
	Password *string
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo              UserRepository
	events            *Events
	passwordMinLength int
}

func NewUserService(repo UserRepository, events *Events, passwordMinLength int) *UserService {
	if passwordMinLength < 1 {
		passwordMinLength = DefaultPasswordMinLength
	}
	return &UserService{repo: repo, events: events, passwordMinLength: passwordMinLength}
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateUser stores a new active user. The email is normalized before the
// uniqueness check. An empty password leaves the account without a usable
// password.
func (s *UserService) CreateUser(ctx context.Context, email, password, name string) (types.User, error) {
	return s.create(ctx, types.User{
		Email:    email,
		Name:     strings.TrimSpace(name),
		IsActive: true,
	}, password)
}

// CreateSuperuser stores a new user with staff and superuser flags set.
func (s *UserService) CreateSuperuser(ctx context.Context, email, password string) (types.User, error) {
	return s.create(ctx, types.User{
		Email:       email,
		IsActive:    true,
		IsStaff:     true,
		IsSuperuser: true,
	}, password)
}

// Register is the public signup path: it enforces the password policy
// before creating the user.
func (s *UserService) Register(ctx context.Context, email, password, name string) (types.User, error) {
	if err := s.validatePassword(password); err != nil {
		return types.User{}, err
	}
	return s.CreateUser(ctx, email, password, name)
}

// UpdateProfile applies a partial update to the user's own account.
func (s *UserService) UpdateProfile(ctx context.Context, userID int, update ProfileUpdate) (types.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return types.User{}, err
	}

	if update.Email != nil {
		email := NormalizeEmail(*update.Email)
		if email == "" {
			return types.User{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
		}
		user.Email = email
	}
	if update.Name != nil {
		user.Name = strings.TrimSpace(*update.Name)
	}
	if update.Password != nil {
		if err := s.validatePassword(*update.Password); err != nil {
			return types.User{}, err
		}
		hash, err := hashPassword(*update.Password)
		if err != nil {
			return types.User{}, err
		}
		user.PasswordHash = hash
	}

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return types.User{}, mapDuplicate(err, "email already registered")
	}
	return updated, nil
}

// CheckPassword reports whether candidate matches the user's password.
func (s *UserService) CheckPassword(user types.User, candidate string) bool {
	return checkPassword(user.PasswordHash, candidate)
}

func (s *UserService) create(ctx context.Context, user types.User, password string) (types.User, error) {
	user.Email = NormalizeEmail(user.Email)
	if user.Email == "" {
		return types.User{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	if password != "" {
		hash, err := hashPassword(password)
		if err != nil {
			return types.User{}, err
		}
		user.PasswordHash = hash
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return types.User{}, mapDuplicate(err, "email already registered")
	}

	s.events.Emit(ctx, Event{Type: EventUserCreated, UserID: created.ID})
	return created, nil
}

func (s *UserService) validatePassword(password string) error {
	if len(password) < s.passwordMinLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, s.passwordMinLength)
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(hash, candidate string) bool {
	if hash == "" || candidate == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}

func mapDuplicate(err error, message string) error {
	if errors.Is(err, store.ErrDuplicate) {
		return fmt.Errorf("%w: %s", ErrDuplicateEntity, message)
	}
	return err
}
