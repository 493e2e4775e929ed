package user

import (
	"context"
	"strings"

	"log/slog"

	"github.com/surajM3157/myAPI/internal/domain"
	"github.com/surajM3157/myAPI/internal/repository"
)

// Service exposes account lookup and administration.
type Service struct {
	users    repository.UserRepository
	sequence repository.SequenceRepository
	logger   *slog.Logger
}

// New constructs a Service.
func New(users repository.UserRepository, sequence repository.SequenceRepository, logger *slog.Logger) Service {
	return Service{users: users, sequence: sequence, logger: logger}
}

// List returns every account.
func (s Service) List(ctx context.Context) ([]domain.User, error) {
	return s.users.ListUsers(ctx)
}

// GetByEmail looks up an account by email.
func (s Service) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
}

// GetByID looks up an account by sequential identity.
func (s Service) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// Update replaces name, email and age. Identity and credentials are not
// touched here; password changes go through the reset flow.
func (s Service) Update(ctx context.Context, id int64, name, email string, age int) (*domain.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Name = name
	user.Email = strings.TrimSpace(email)
	user.Age = age
	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user updated", "user_id", user.ID)
	return user, nil
}

// Delete removes a single account. Its identity is never reused.
func (s Service) Delete(ctx context.Context, id int64) error {
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", "user_id", id)
	return nil
}

// DeleteAll wipes every account and resets the identity counter so the
// next registration starts at 1 again.
func (s Service) DeleteAll(ctx context.Context) (int64, error) {
	count, err := s.users.DeleteAllUsers(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.sequence.ResetUserID(ctx); err != nil {
		return count, err
	}
	s.logger.Info("all users deleted", "count", count)
	return count, nil
}
