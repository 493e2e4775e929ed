package repository

import (
	"context"
	"time"

	"github.com/surajM3157/myAPI/internal/domain"
)

// UserRepository persists user accounts. Identity and password hash never
// change through UpdateProfile; they go through dedicated methods.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByResetToken(ctx context.Context, token string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateProfile(ctx context.Context, user *domain.User) error
	SetSessionToken(ctx context.Context, id int64, token string) error
	SetResetToken(ctx context.Context, id int64, token string, expires time.Time) error
	UpdatePassword(ctx context.Context, id int64, hash []byte) error
	DeleteUser(ctx context.Context, id int64) error
	DeleteAllUsers(ctx context.Context) (int64, error)
}

// SequenceRepository allocates sequential user identities. NextUserID is
// an atomic increment-and-fetch at the store, so it stays correct across
// concurrent registrations and multiple API instances.
type SequenceRepository interface {
	NextUserID(ctx context.Context) (int64, error)
	ResetUserID(ctx context.Context) error
}
