package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/surajM3157/myAPI/internal/domain"
	"github.com/surajM3157/myAPI/internal/repository"
	"github.com/surajM3157/myAPI/pkg/config"
	"github.com/surajM3157/myAPI/pkg/crypto"
	jwtpkg "github.com/surajM3157/myAPI/pkg/jwt"
)

// ErrInvalidCredentials is returned when the password does not match the
// stored hash. It deliberately carries no detail about which part failed.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// ErrResetTokenInvalid covers unknown, consumed and expired reset tokens
// alike so callers cannot probe token state.
var ErrResetTokenInvalid = errors.New("auth: invalid or expired reset token")

// Service handles registration, login and the credential lifecycle.
type Service struct {
	users    repository.UserRepository
	sequence repository.SequenceRepository
	logger   *slog.Logger
	cfg      config.APIConfig
	now      func() time.Time
}

// New constructs a Service.
func New(users repository.UserRepository, sequence repository.SequenceRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, sequence: sequence, logger: logger, cfg: cfg, now: time.Now}
}

// Register creates an account with a freshly allocated sequential identity.
// The email pre-check avoids burning sequence values on obvious duplicates;
// the unique index remains the authoritative guard against the race.
func (s Service) Register(ctx context.Context, name, email string, age int, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, repository.ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	id, err := s.sequence.NextUserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate user id: %w", err)
	}
	user := &domain.User{
		ID:           id,
		Name:         name,
		Email:        email,
		Age:          age,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login authenticates credentials and issues a fresh session token. The
// new token supersedes the stored one; tokens already held elsewhere stay
// verifiable until their own expiry since verification is self-contained.
func (s Service) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, "", err
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	token, err := jwtpkg.GenerateToken(user.ID, s.cfg.JWTSecret, s.cfg.SessionTokenTTL)
	if err != nil {
		return nil, "", fmt.Errorf("issue session token: %w", err)
	}
	if err := s.users.SetSessionToken(ctx, user.ID, token); err != nil {
		return nil, "", err
	}
	user.SessionToken = &token
	s.logger.Info("user logged in", "user_id", user.ID)
	return user, token, nil
}

// Authorize validates a bearer token and resolves the owning account.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, errors.New("token required")
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ForgotPassword stores a one-time recovery token on the account and
// returns it together with its expiry. Delivery is in-band: in a real
// deployment the token would go out by email instead.
func (s Service) ForgotPassword(ctx context.Context, email string) (string, time.Time, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", time.Time{}, err
	}
	token, err := crypto.NewResetToken()
	if err != nil {
		return "", time.Time{}, err
	}
	expires := s.now().Add(s.cfg.ResetTokenTTL).UTC()
	if err := s.users.SetResetToken(ctx, user.ID, token, expires); err != nil {
		return "", time.Time{}, err
	}
	s.logger.Info("reset token issued", "user_id", user.ID, "expires_at", expires)
	return token, expires, nil
}

// ResetPassword consumes a recovery token and replaces the credential
// hash. The token clears in the same statement that writes the new hash,
// so a consumed or expired token can never be presented again.
func (s Service) ResetPassword(ctx context.Context, token, newPassword string) (*domain.User, error) {
	user, err := s.users.GetUserByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrResetTokenInvalid
		}
		return nil, err
	}
	if !user.ResetTokenValid(s.now()) {
		return nil, ErrResetTokenInvalid
	}
	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	user.ResetToken = nil
	user.ResetTokenExpires = nil
	s.logger.Info("password reset completed", "user_id", user.ID)
	return user, nil
}
