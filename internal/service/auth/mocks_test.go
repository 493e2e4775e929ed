package auth

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/surajM3157/myAPI/internal/domain"
	"github.com/surajM3157/myAPI/internal/repository"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type userRepoMock struct {
	createFunc          func(ctx context.Context, user *domain.User) error
	getByEmailFunc      func(ctx context.Context, email string) (*domain.User, error)
	getByIDFunc         func(ctx context.Context, id int64) (*domain.User, error)
	getByResetTokenFunc func(ctx context.Context, token string) (*domain.User, error)
	listFunc            func(ctx context.Context) ([]domain.User, error)
	updateProfileFunc   func(ctx context.Context, user *domain.User) error
	setSessionTokenFunc func(ctx context.Context, id int64, token string) error
	setResetTokenFunc   func(ctx context.Context, id int64, token string, expires time.Time) error
	updatePasswordFunc  func(ctx context.Context, id int64, hash []byte) error
	deleteFunc          func(ctx context.Context, id int64) error
	deleteAllFunc       func(ctx context.Context) (int64, error)
}

func (m *userRepoMock) CreateUser(ctx context.Context, user *domain.User) error {
	if m.createFunc == nil {
		return nil
	}
	return m.createFunc(ctx, user)
}

func (m *userRepoMock) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.getByEmailFunc == nil {
		return nil, repository.ErrNotFound
	}
	return m.getByEmailFunc(ctx, email)
}

func (m *userRepoMock) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	if m.getByIDFunc == nil {
		return nil, repository.ErrNotFound
	}
	return m.getByIDFunc(ctx, id)
}

func (m *userRepoMock) GetUserByResetToken(ctx context.Context, token string) (*domain.User, error) {
	if m.getByResetTokenFunc == nil {
		return nil, repository.ErrNotFound
	}
	return m.getByResetTokenFunc(ctx, token)
}

func (m *userRepoMock) ListUsers(ctx context.Context) ([]domain.User, error) {
	if m.listFunc == nil {
		return nil, nil
	}
	return m.listFunc(ctx)
}

func (m *userRepoMock) UpdateProfile(ctx context.Context, user *domain.User) error {
	if m.updateProfileFunc == nil {
		return nil
	}
	return m.updateProfileFunc(ctx, user)
}

func (m *userRepoMock) SetSessionToken(ctx context.Context, id int64, token string) error {
	if m.setSessionTokenFunc == nil {
		return nil
	}
	return m.setSessionTokenFunc(ctx, id, token)
}

func (m *userRepoMock) SetResetToken(ctx context.Context, id int64, token string, expires time.Time) error {
	if m.setResetTokenFunc == nil {
		return nil
	}
	return m.setResetTokenFunc(ctx, id, token, expires)
}

func (m *userRepoMock) UpdatePassword(ctx context.Context, id int64, hash []byte) error {
	if m.updatePasswordFunc == nil {
		return nil
	}
	return m.updatePasswordFunc(ctx, id, hash)
}

func (m *userRepoMock) DeleteUser(ctx context.Context, id int64) error {
	if m.deleteFunc == nil {
		return nil
	}
	return m.deleteFunc(ctx, id)
}

func (m *userRepoMock) DeleteAllUsers(ctx context.Context) (int64, error) {
	if m.deleteAllFunc == nil {
		return 0, nil
	}
	return m.deleteAllFunc(ctx)
}

type sequenceRepoMock struct {
	nextFunc  func(ctx context.Context) (int64, error)
	resetFunc func(ctx context.Context) error
}

func (m *sequenceRepoMock) NextUserID(ctx context.Context) (int64, error) {
	if m.nextFunc == nil {
		return 1, nil
	}
	return m.nextFunc(ctx)
}

func (m *sequenceRepoMock) ResetUserID(ctx context.Context) error {
	if m.resetFunc == nil {
		return nil
	}
	return m.resetFunc(ctx)
}
