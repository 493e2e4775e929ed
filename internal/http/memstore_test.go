package httpx

import (
	"context"
	"sync"
	"time"

	"github.com/surajM3157/myAPI/internal/domain"
	"github.com/surajM3157/myAPI/internal/repository"
)

// memStore is an in-memory stand-in for the postgres repository. It keeps
// the same contracts: email uniqueness enforced at insert, atomic
// increment-and-fetch identity allocation.
type memStore struct {
	mu      sync.Mutex
	users   map[int64]*domain.User
	counter int64
}

func newMemStore() *memStore {
	return &memStore{users: make(map[int64]*domain.User)}
}

var (
	_ repository.UserRepository     = (*memStore)(nil)
	_ repository.SequenceRepository = (*memStore)(nil)
)

func (s *memStore) clone(u *domain.User) *domain.User {
	copied := *u
	return &copied
}

func (s *memStore) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = s.clone(user)
	return nil
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return s.clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.clone(u), nil
}

func (s *memStore) GetUserByResetToken(_ context.Context, token string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ResetToken != nil && *u.ResetToken == token {
			return s.clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, nil
}

func (s *memStore) UpdateProfile(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, other := range s.users {
		if id != user.ID && other.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	existing.Name = user.Name
	existing.Email = user.Email
	existing.Age = user.Age
	existing.UpdatedAt = time.Now().UTC()
	user.UpdatedAt = existing.UpdatedAt
	return nil
}

func (s *memStore) SetSessionToken(_ context.Context, id int64, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.SessionToken = &token
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memStore) SetResetToken(_ context.Context, id int64, token string, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.ResetToken = &token
	u.ResetTokenExpires = &expires
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memStore) UpdatePassword(_ context.Context, id int64, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	u.ResetToken = nil
	u.ResetTokenExpires = nil
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memStore) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *memStore) DeleteAllUsers(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := int64(len(s.users))
	s.users = make(map[int64]*domain.User)
	return count, nil
}

func (s *memStore) NextUserID(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	return s.counter, nil
}

func (s *memStore) ResetUserID(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter = 0
	return nil
}
