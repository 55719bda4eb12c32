package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/adhunt/internal/domain/entity"
	"github.com/oksasatya/adhunt/internal/domain/errs"
	"github.com/oksasatya/adhunt/internal/domain/policy"
	repo "github.com/oksasatya/adhunt/internal/domain/repository"
	"github.com/oksasatya/adhunt/pkg/helpers"
)

const (
	msgEmailTaken = "user with this email already exists"
	msgPhoneTaken = "user with this phone number already exists"
)

// IdentityService registers users, issues tokens and edits profiles. Redis
// is optional; without it sessions are not tracked and any valid token is
// accepted.
type IdentityService struct {
	Repo   repo.UserRepository
	JWT    *helpers.JWTManager
	Redis  *redis.Client
	Logger *logrus.Logger
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

func NewIdentityService(repo repo.UserRepository, jwt *helpers.JWTManager, rdb *redis.Client, logger *logrus.Logger) *IdentityService {
	return &IdentityService{Repo: repo, JWT: jwt, Redis: rdb, Logger: logger}
}

type RegisterInput struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	MiddleName string
	Phone      string
}

// NormalizeEmail trims the address and lowercases its domain part.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return email
	}
	return email[:at] + strings.ToLower(email[at:])
}

// Register creates a user with role user and logs them in.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (*entity.User, TokenPair, error) {
	u := &entity.User{
		Email:      NormalizeEmail(in.Email),
		Phone:      strings.TrimSpace(in.Phone),
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		MiddleName: strings.TrimSpace(in.MiddleName),
		Role:       entity.RoleUser,
	}

	if err := s.checkUnique(ctx, u, ""); err != nil {
		return nil, TokenPair{}, err
	}
	if problems := CheckPassword(in.Password, attributesOf(u)); len(problems) > 0 {
		return nil, TokenPair{}, errs.WithFields(errs.ErrPasswordPolicy, errs.Field("password", strings.Join(problems, "; ")))
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	if err := s.Repo.Create(ctx, u); err != nil {
		return nil, TokenPair{}, uniqueFieldError(err)
	}
	if s.Logger != nil {
		s.Logger.WithField("user_id", u.ID).Info("user registered")
	}

	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// checkUnique reports every taken field at once; the store constraint
// remains the final guard.
func (s *IdentityService) checkUnique(ctx context.Context, u *entity.User, excludeID string) error {
	fields := errs.FieldErrors{}
	var sentinel error
	taken, err := s.Repo.EmailTaken(ctx, u.Email, excludeID)
	if err != nil {
		return err
	}
	if taken {
		fields.Add("email", msgEmailTaken)
		sentinel = errs.ErrDuplicateEmail
	}
	taken, err = s.Repo.PhoneTaken(ctx, u.Phone, excludeID)
	if err != nil {
		return err
	}
	if taken {
		fields.Add("phone_number", msgPhoneTaken)
		if sentinel == nil {
			sentinel = errs.ErrDuplicatePhone
		}
	}
	if sentinel != nil {
		return errs.WithFields(sentinel, fields)
	}
	return nil
}

// uniqueFieldError attaches field details to a uniqueness violation raised
// by the store.
func uniqueFieldError(err error) error {
	switch {
	case errors.Is(err, errs.ErrDuplicateEmail):
		return errs.WithFields(errs.ErrDuplicateEmail, errs.Field("email", msgEmailTaken))
	case errors.Is(err, errs.ErrDuplicatePhone):
		return errs.WithFields(errs.ErrDuplicatePhone, errs.Field("phone_number", msgPhoneTaken))
	default:
		return err
	}
}

func attributesOf(u *entity.User) PasswordAttributes {
	return PasswordAttributes{Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, MiddleName: u.MiddleName}
}

// Authenticate validates email/password and returns the user without issuing tokens.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.Repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrInvalidCredential
		}
		return nil, err
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, password) {
		return nil, errs.ErrInvalidCredential
	}
	return u, nil
}

func (s *IdentityService) Login(ctx context.Context, email, password string) (*entity.User, TokenPair, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// IssueTokens generates access/refresh tokens and records the session in Redis.
func (s *IdentityService) IssueTokens(ctx context.Context, u *entity.User) (TokenPair, error) {
	sid := uuid.NewString()
	access, aexp, err := s.JWT.GenerateAccessToken(u.ID, sid, u.Role.String())
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate access token failed")
		}
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(u.ID, sid, u.Role.String())
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate refresh token failed")
		}
		return TokenPair{}, err
	}

	if s.Redis != nil {
		if rErr := helpers.StoreSession(ctx, s.Redis, u.ID, sid, s.JWT.RefreshTTL); rErr != nil && s.Logger != nil {
			s.Logger.WithError(rErr).WithField("user_id", u.ID).Warn("store session failed")
		}
	}

	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

// Refresh rotates the session and both tokens.
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, errs.ErrInvalidCredential
	}
	if !s.sessionLive(ctx, claims.UserID, claims.SessionID) {
		return TokenPair{}, errs.ErrInvalidCredential
	}
	u, err := s.Repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return TokenPair{}, errs.ErrInvalidCredential
		}
		return TokenPair{}, err
	}
	return s.IssueTokens(ctx, u)
}

// Logout ends the user's session.
func (s *IdentityService) Logout(ctx context.Context, userID string) error {
	if s.Redis == nil || userID == "" {
		return nil
	}
	return helpers.DeleteSession(ctx, s.Redis, userID)
}

func (s *IdentityService) sessionLive(ctx context.Context, userID, sid string) bool {
	if s.Redis == nil {
		return true
	}
	current, err := helpers.SessionID(ctx, s.Redis, userID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", userID).Warn("session lookup failed")
		}
		return false
	}
	return current != "" && current == sid
}

// ActorForClaims resolves an access token's claims to an actor. The role is
// read from the stored user, not from the token.
func (s *IdentityService) ActorForClaims(ctx context.Context, claims *helpers.Claims) (policy.Actor, error) {
	if claims == nil || !s.sessionLive(ctx, claims.UserID, claims.SessionID) {
		return policy.Anonymous(), errs.ErrUnauthorized
	}
	return s.ResolveActor(ctx, claims.UserID)
}

func (s *IdentityService) ResolveActor(ctx context.Context, userID string) (policy.Actor, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return policy.Anonymous(), errs.ErrUnauthorized
		}
		return policy.Anonymous(), err
	}
	return policy.ActorFor(u), nil
}

func (s *IdentityService) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	return s.Repo.GetByID(ctx, userID)
}

// UpdateProfileInput is a partial update; nil fields are left unchanged.
// Role is not editable.
type UpdateProfileInput struct {
	Email      *string
	Phone      *string
	FirstName  *string
	LastName   *string
	MiddleName *string
}

func (s *IdentityService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	fields := errs.FieldErrors{}
	set := func(dst *string, v *string, field string, required bool) {
		if v == nil {
			return
		}
		t := strings.TrimSpace(*v)
		if required && t == "" {
			fields.Add(field, "may not be blank")
			return
		}
		*dst = t
	}
	set(&u.FirstName, in.FirstName, "first_name", true)
	set(&u.LastName, in.LastName, "last_name", true)
	set(&u.MiddleName, in.MiddleName, "middle_name", false)
	set(&u.Phone, in.Phone, "phone_number", true)
	if in.Email != nil {
		e := NormalizeEmail(*in.Email)
		in.Email = &e
	}
	set(&u.Email, in.Email, "email", true)
	if err := fields.OrNil(); err != nil {
		return nil, err
	}

	if err := s.checkUnique(ctx, u, u.ID); err != nil {
		return nil, err
	}
	if err := s.Repo.Update(ctx, u); err != nil {
		return nil, uniqueFieldError(err)
	}
	return u, nil
}

// ChangePassword verifies old, applies the policy to new and stores the hash.
func (s *IdentityService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword, confirm string) error {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, oldPassword) {
		return errs.WithFields(errs.ErrInvalidCredential, errs.Field("old_password", "current password is incorrect"))
	}
	if problems := CheckPassword(newPassword, attributesOf(u)); len(problems) > 0 {
		return errs.WithFields(errs.ErrPasswordPolicy, errs.Field("new_password", strings.Join(problems, "; ")))
	}
	if newPassword != confirm {
		return errs.WithFields(errs.ErrPasswordMismatch, errs.Field("confirm_password", "passwords do not match"))
	}
	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Repo.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.WithField("user_id", u.ID).Info("password changed")
	}
	return nil
}

// EnsureModerator creates a moderator account, or promotes the existing
// account with that email. It is the only path that writes a role.
func (s *IdentityService) EnsureModerator(ctx context.Context, in RegisterInput) (*entity.User, bool, error) {
	existing, err := s.Repo.GetByEmail(ctx, NormalizeEmail(in.Email))
	switch {
	case err == nil:
		if existing.Role != entity.RoleModerator {
			if err := s.Repo.SetRole(ctx, existing.ID, entity.RoleModerator); err != nil {
				return nil, false, err
			}
			existing.Role = entity.RoleModerator
		}
		return existing, false, nil
	case !errors.Is(err, errs.ErrNotFound):
		return nil, false, err
	}

	u, _, err := s.Register(ctx, in)
	if err != nil {
		return nil, false, err
	}
	if err := s.Repo.SetRole(ctx, u.ID, entity.RoleModerator); err != nil {
		return nil, false, err
	}
	u.Role = entity.RoleModerator
	return u, true, nil
}
