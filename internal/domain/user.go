package domain

import "time"

// User represents one registered account. ID is the sequential identity
// assigned at registration, distinct from any storage-internal key.
type User struct {
	ID                int64
	Name              string
	Email             string
	Age               int
	PasswordHash      []byte
	SessionToken      *string
	ResetToken        *string
	ResetTokenExpires *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ResetTokenValid reports whether the stored reset token matches and has
// not expired at the given instant. An expired token counts as absent
// even when the row still carries it.
func (u *User) ResetTokenValid(now time.Time) bool {
	if u.ResetToken == nil || u.ResetTokenExpires == nil {
		return false
	}
	return now.Before(*u.ResetTokenExpires)
}
