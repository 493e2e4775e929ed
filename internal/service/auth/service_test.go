package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/surajM3157/myAPI/internal/domain"
	"github.com/surajM3157/myAPI/internal/repository"
	"github.com/surajM3157/myAPI/pkg/config"
	"github.com/surajM3157/myAPI/pkg/crypto"
	jwtpkg "github.com/surajM3157/myAPI/pkg/jwt"
)

func testConfig() config.APIConfig {
	return config.APIConfig{
		JWTSecret:       "unit-test-secret",
		SessionTokenTTL: 24 * time.Hour,
		ResetTokenTTL:   time.Hour,
	}
}

func TestRegisterAllocatesSequentialIdentity(t *testing.T) {
	var created *domain.User
	users := &userRepoMock{
		createFunc: func(_ context.Context, user *domain.User) error {
			created = user
			return nil
		},
	}
	sequence := &sequenceRepoMock{
		nextFunc: func(_ context.Context) (int64, error) { return 7, nil },
	}
	svc := New(users, sequence, newLogger(), testConfig())

	user, err := svc.Register(context.Background(), "Asha", "asha@x.com", 30, "secret1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != 7 {
		t.Fatalf("expected allocated id 7, got %d", user.ID)
	}
	if created == nil {
		t.Fatalf("expected user persisted")
	}
	if err := crypto.ComparePassword(created.PasswordHash, "secret1"); err != nil {
		t.Fatalf("expected stored hash to verify: %v", err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	users := &userRepoMock{
		getByEmailFunc: func(_ context.Context, email string) (*domain.User, error) {
			return &domain.User{ID: 1, Email: email}, nil
		},
	}
	sequence := &sequenceRepoMock{
		nextFunc: func(_ context.Context) (int64, error) {
			t.Fatalf("sequence must not advance for duplicate email")
			return 0, nil
		},
	}
	svc := New(users, sequence, newLogger(), testConfig())

	if _, err := svc.Register(context.Background(), "Asha", "asha@x.com", 30, "secret1"); !errors.Is(err, repository.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestRegisterSurfacesStoreUniquenessRace(t *testing.T) {
	users := &userRepoMock{
		createFunc: func(_ context.Context, _ *domain.User) error {
			return repository.ErrDuplicateEmail
		},
	}
	svc := New(users, &sequenceRepoMock{}, newLogger(), testConfig())

	if _, err := svc.Register(context.Background(), "Asha", "asha@x.com", 30, "secret1"); !errors.Is(err, repository.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail from store, got %v", err)
	}
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	hash, err := crypto.HashPassword("secret1")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	var stored string
	users := &userRepoMock{
		getByEmailFunc: func(_ context.Context, email string) (*domain.User, error) {
			return &domain.User{ID: 3, Email: email, PasswordHash: hash}, nil
		},
		setSessionTokenFunc: func(_ context.Context, id int64, token string) error {
			if id != 3 {
				t.Fatalf("unexpected user id: %d", id)
			}
			stored = token
			return nil
		},
	}
	svc := New(users, &sequenceRepoMock{}, newLogger(), testConfig())

	_, token, err := svc.Login(context.Background(), "asha@x.com", "secret1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" || token != stored {
		t.Fatalf("expected issued token to be persisted")
	}
	claims, err := jwtpkg.Parse(token, "unit-test-secret")
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if claims.UserID != 3 {
		t.Fatalf("unexpected claims user id: %d", claims.UserID)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := New(&userRepoMock{}, &sequenceRepoMock{}, newLogger(), testConfig())
	if _, _, err := svc.Login(context.Background(), "nobody@x.com", "secret1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	hash, err := crypto.HashPassword("secret1")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	users := &userRepoMock{
		getByEmailFunc: func(_ context.Context, email string) (*domain.User, error) {
			return &domain.User{ID: 3, Email: email, PasswordHash: hash}, nil
		},
	}
	svc := New(users, &sequenceRepoMock{}, newLogger(), testConfig())

	if _, _, err := svc.Login(context.Background(), "asha@x.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthorizeResolvesAccount(t *testing.T) {
	users := &userRepoMock{
		getByIDFunc: func(_ context.Context, id int64) (*domain.User, error) {
			return &domain.User{ID: id, Email: "asha@x.com"}, nil
		},
	}
	svc := New(users, &sequenceRepoMock{}, newLogger(), testConfig())

	token, err := jwtpkg.GenerateToken(9, "unit-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	user, err := svc.Authorize(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != 9 {
		t.Fatalf("unexpected user id: %d", user.ID)
	}
}

func TestAuthorizeRejectsBadToken(t *testing.T) {
	svc := New(&userRepoMock{}, &sequenceRepoMock{}, newLogger(), testConfig())
	if _, err := svc.Authorize(context.Background(), "garbage"); err == nil {
		t.Fatalf("expected parse failure")
	}
	if _, err := svc.Authorize(context.Background(), "  "); err == nil {
		t.Fatalf("expected empty token rejection")
	}
}

func TestForgotPasswordStoresOpaqueToken(t *testing.T) {
	var (
		storedToken   string
		storedExpires time.Time
	)
	users := &userRepoMock{
		getByEmailFunc: func(_ context.Context, email string) (*domain.User, error) {
			return &domain.User{ID: 5, Email: email}, nil
		},
		setResetTokenFunc: func(_ context.Context, id int64, token string, expires time.Time) error {
			storedToken = token
			storedExpires = expires
			return nil
		},
	}
	svc := New(users, &sequenceRepoMock{}, newLogger(), testConfig())
	svc.now = func() time.Time { return time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC) }

	token, expires, err := svc.ForgotPassword(context.Background(), "asha@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != storedToken {
		t.Fatalf("expected returned token to match stored token")
	}
	if len(token) != 64 {
		t.Fatalf("expected 256-bit hex token, got %d chars", len(token))
	}
	want := time.Date(2025, time.March, 1, 13, 0, 0, 0, time.UTC)
	if !expires.Equal(want) || !storedExpires.Equal(want) {
		t.Fatalf("expected expiry one hour out, got %v", expires)
	}
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	svc := New(&userRepoMock{}, &sequenceRepoMock{}, newLogger(), testConfig())
	if _, _, err := svc.ForgotPassword(context.Background(), "nobody@x.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResetPasswordConsumesToken(t *testing.T) {
	token := "reset-token"
	expires := time.Now().Add(30 * time.Minute)
	var newHash []byte
	users := &userRepoMock{
		getByResetTokenFunc: func(_ context.Context, got string) (*domain.User, error) {
			if got != token {
				t.Fatalf("unexpected token lookup: %s", got)
			}
			return &domain.User{ID: 5, ResetToken: &token, ResetTokenExpires: &expires}, nil
		},
		updatePasswordFunc: func(_ context.Context, id int64, hash []byte) error {
			if id != 5 {
				t.Fatalf("unexpected user id: %d", id)
			}
			newHash = hash
			return nil
		},
	}
	svc := New(users, &sequenceRepoMock{}, newLogger(), testConfig())

	user, err := svc.ResetPassword(context.Background(), token, "fresh-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := crypto.ComparePassword(newHash, "fresh-secret"); err != nil {
		t.Fatalf("expected new hash to verify: %v", err)
	}
	if user.ResetToken != nil || user.ResetTokenExpires != nil {
		t.Fatalf("expected reset token cleared on returned account")
	}
}

func TestResetPasswordRejectsExpiredToken(t *testing.T) {
	token := "reset-token"
	expires := time.Now().Add(-time.Second)
	users := &userRepoMock{
		getByResetTokenFunc: func(_ context.Context, _ string) (*domain.User, error) {
			return &domain.User{ID: 5, ResetToken: &token, ResetTokenExpires: &expires}, nil
		},
		updatePasswordFunc: func(_ context.Context, _ int64, _ []byte) error {
			t.Fatalf("expired token must not update password")
			return nil
		},
	}
	svc := New(users, &sequenceRepoMock{}, newLogger(), testConfig())

	if _, err := svc.ResetPassword(context.Background(), token, "fresh-secret"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid, got %v", err)
	}
}

func TestResetPasswordRejectsUnknownToken(t *testing.T) {
	svc := New(&userRepoMock{}, &sequenceRepoMock{}, newLogger(), testConfig())
	if _, err := svc.ResetPassword(context.Background(), "never-issued", "fresh-secret"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid, got %v", err)
	}
}
