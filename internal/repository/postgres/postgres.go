package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/surajM3157/myAPI/internal/domain"
	"github.com/surajM3157/myAPI/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository     = (*Repository)(nil)
	_ repository.SequenceRepository = (*Repository)(nil)
)

const userColumns = `id, name, email, age, password_hash, session_token, reset_token, reset_token_expires, created_at, updated_at`

// CreateUser inserts a user. The unique index on email is the
// authoritative duplicate guard; violations map to ErrDuplicateEmail.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (id, name, email, age, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Age,
		user.PasswordHash,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// GetUserByEmail fetches a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

// GetUserByID retrieves a user by sequential identity.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetUserByResetToken finds the account holding a pending reset token.
func (r *Repository) GetUserByResetToken(ctx context.Context, token string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE reset_token = $1`
	return r.scanUser(r.pool.QueryRow(ctx, query, token))
}

// ListUsers returns all accounts ordered by identity.
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// UpdateProfile mutates name, email and age only.
func (r *Repository) UpdateProfile(ctx context.Context, user *domain.User) error {
	const query = `UPDATE users
		SET name = $2, email = $3, age = $4, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query, user.ID, user.Name, user.Email, user.Age).Scan(&user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrDuplicateEmail
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return err
	}
	return nil
}

// SetSessionToken overwrites the stored session token. Previously issued
// tokens keep verifying until their own expiry; only the stored value
// visible through self-lookup changes.
func (r *Repository) SetSessionToken(ctx context.Context, id int64, token string) error {
	const query = `UPDATE users SET session_token = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetResetToken stores a pending recovery token and its expiry.
func (r *Repository) SetResetToken(ctx context.Context, id int64, token string, expires time.Time) error {
	const query = `UPDATE users SET reset_token = $2, reset_token_expires = $3, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, token, expires.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpdatePassword writes a new credential hash and clears any pending
// reset token in the same statement, making consumption one-time.
func (r *Repository) UpdatePassword(ctx context.Context, id int64, hash []byte) error {
	const query = `UPDATE users
		SET password_hash = $2, reset_token = NULL, reset_token_expires = NULL, updated_at = NOW()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteUser removes an account by identity.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	const query = `DELETE FROM users WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteAllUsers wipes every account and reports how many were removed.
func (r *Repository) DeleteAllUsers(ctx context.Context) (int64, error) {
	const query = `DELETE FROM users`
	tag, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const userSequence = "user_id"

// NextUserID performs an atomic increment-and-fetch on the user identity
// counter, creating it at 1 on first use. The upsert keeps allocation
// safe under concurrent registrations and across API instances.
func (r *Repository) NextUserID(ctx context.Context) (int64, error) {
	const query = `INSERT INTO sequences (name, last_value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET last_value = sequences.last_value + 1
		RETURNING last_value`
	var next int64
	if err := r.pool.QueryRow(ctx, query, userSequence).Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

// ResetUserID sets the identity counter back to zero. Used only after a
// bulk delete-all so fresh registrations start at 1 again.
func (r *Repository) ResetUserID(ctx context.Context) error {
	const query = `INSERT INTO sequences (name, last_value) VALUES ($1, 0)
		ON CONFLICT (name) DO UPDATE SET last_value = 0`
	_, err := r.pool.Exec(ctx, query, userSequence)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanUser(row rowScanner) (*domain.User, error) {
	user, err := scanUserRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func scanUserRow(row rowScanner) (*domain.User, error) {
	var (
		u            domain.User
		sessionToken sql.NullString
		resetToken   sql.NullString
		resetExpires sql.NullTime
	)
	if err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Age,
		&u.PasswordHash,
		&sessionToken,
		&resetToken,
		&resetExpires,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if sessionToken.Valid {
		value := sessionToken.String
		u.SessionToken = &value
	}
	if resetToken.Valid {
		value := resetToken.String
		u.ResetToken = &value
	}
	if resetExpires.Valid {
		value := resetExpires.Time.UTC()
		u.ResetTokenExpires = &value
	}
	return &u, nil
}
