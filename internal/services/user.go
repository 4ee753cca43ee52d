package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopfront/apiserver/internal/apperror"
	"github.com/shopfront/apiserver/internal/auth"
	"github.com/shopfront/apiserver/internal/listing"
	"github.com/shopfront/apiserver/internal/store"
	"github.com/shopfront/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	List(ctx context.Context, p listing.Params) ([]types.User, int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, id uuid.UUID, mutate func(*types.User) error) (types.User, error)
	Delete(ctx context.Context, id uuid.UUID) (types.User, error)
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// SignupInput is the payload for creating an account.
type SignupInput struct {
	Username    string
	Email       string
	Password    string
	FirstName   string
	LastName    string
	ImgURL      string
	Address     string
	PhoneNumber string
	BirthDate   *time.Time
}

// UserPatch holds the fields to change; nil fields are left as they are.
// IsAdmin and IsBanned may only be set by administrators.
type UserPatch struct {
	Username    *string
	Email       *string
	Password    *string
	FirstName   *string
	LastName    *string
	ImgURL      *string
	Address     *string
	PhoneNumber *string
	BirthDate   *time.Time
	IsAdmin     *bool
	IsBanned    *bool
}

// LoginResult carries a fresh token and the authenticated user.
type LoginResult struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

// UserService encapsulates account use-cases.
type UserService struct {
	repo   UserRepository
	tokens *auth.TokenIssuer
}

func NewUserService(repo UserRepository, tokens *auth.TokenIssuer) *UserService {
	return &UserService{repo: repo, tokens: tokens}
}

// List pages through customer accounts; administrators are not listed.
func (s *UserService) List(ctx context.Context, p listing.Params) (listing.Page[types.User], error) {
	p = p.Normalize()
	items, total, err := s.repo.List(ctx, p)
	if err != nil {
		return listing.Page[types.User]{}, storeError(err, "users", "list")
	}
	return listing.Page[types.User]{Items: items, TotalCount: total, PageNumber: p.PageNumber, PageSize: p.PageSize}, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	return user, storeError(err, "user", "load")
}

func (s *UserService) Signup(ctx context.Context, in SignupInput) (types.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	switch {
	case username == "":
		return types.User{}, apperror.Validation("username is required")
	case email == "":
		return types.User{}, apperror.Validation("email is required")
	case in.Password == "":
		return types.User{}, apperror.Validation("password is required")
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return types.User{}, apperror.Conflict("email is already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, storeError(err, "user", "check")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return types.User{}, apperror.Internal("failed to create user", err)
	}

	created, err := s.repo.Create(ctx, types.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		ImgURL:       strings.TrimSpace(in.ImgURL),
		Address:      strings.TrimSpace(in.Address),
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		BirthDate:    in.BirthDate,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return types.User{}, apperror.Conflict("email is already registered")
	}
	return created, storeError(err, "user", "create")
}

// Login verifies credentials by email and issues a token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, apperror.Unauthorized("invalid credentials")
		}
		return LoginResult{}, storeError(err, "user", "authenticate")
	}
	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		return LoginResult{}, apperror.Unauthorized("invalid credentials")
	}

	token, err := s.tokens.Issue(user.ID, user.IsAdmin, user.IsBanned)
	if err != nil {
		return LoginResult{}, apperror.Internal("failed to create token", err)
	}
	return LoginResult{Token: token, User: user}, nil
}

// Update applies patch to the account id. Users may update themselves;
// administrators may update anyone and change role flags.
func (s *UserService) Update(ctx context.Context, actor Actor, id uuid.UUID, patch UserPatch) (types.User, error) {
	if !actor.IsAdmin && actor.UserID != id {
		return types.User{}, apperror.Forbidden("you may only update your own account")
	}
	if !actor.IsAdmin && (patch.IsAdmin != nil || patch.IsBanned != nil) {
		return types.User{}, apperror.Forbidden("admin access required to change roles")
	}
	switch {
	case patch.Username != nil && strings.TrimSpace(*patch.Username) == "":
		return types.User{}, apperror.Validation("username must not be empty")
	case patch.Email != nil && strings.TrimSpace(*patch.Email) == "":
		return types.User{}, apperror.Validation("email must not be empty")
	case patch.Password != nil && *patch.Password == "":
		return types.User{}, apperror.Validation("password must not be empty")
	}

	var passwordHash string
	if patch.Password != nil {
		hash, err := auth.HashPassword(*patch.Password)
		if err != nil {
			return types.User{}, apperror.Internal("failed to update user", err)
		}
		passwordHash = hash
	}

	updated, err := s.repo.Update(ctx, id, func(u *types.User) error {
		setString(&u.Username, patch.Username)
		if patch.Email != nil {
			u.Email = strings.ToLower(strings.TrimSpace(*patch.Email))
		}
		setString(&u.FirstName, patch.FirstName)
		setString(&u.LastName, patch.LastName)
		setString(&u.ImgURL, patch.ImgURL)
		setString(&u.Address, patch.Address)
		setString(&u.PhoneNumber, patch.PhoneNumber)
		if patch.BirthDate != nil {
			birth := *patch.BirthDate
			u.BirthDate = &birth
		}
		if passwordHash != "" {
			u.PasswordHash = passwordHash
		}
		if patch.IsAdmin != nil {
			u.IsAdmin = *patch.IsAdmin
		}
		if patch.IsBanned != nil {
			u.IsBanned = *patch.IsBanned
		}
		return nil
	})
	if errors.Is(err, store.ErrDuplicate) {
		return types.User{}, apperror.Conflict("email is already registered")
	}
	return updated, storeError(err, "user", "update")
}

// ToggleBan flips the banned flag of the account id.
func (s *UserService) ToggleBan(ctx context.Context, id uuid.UUID) (types.User, error) {
	updated, err := s.repo.Update(ctx, id, func(u *types.User) error {
		u.IsBanned = !u.IsBanned
		return nil
	})
	return updated, storeError(err, "user", "update")
}

func (s *UserService) Delete(ctx context.Context, id uuid.UUID) (types.User, error) {
	removed, err := s.repo.Delete(ctx, id)
	return removed, storeError(err, "user", "delete")
}

func setString(dst *string, value *string) {
	if value != nil {
		*dst = strings.TrimSpace(*value)
	}
}
