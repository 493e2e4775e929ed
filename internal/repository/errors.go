package repository

import "errors"

// ErrNotFound indicates an entity was not located.
var ErrNotFound = errors.New("repository: not found")

// ErrDuplicateEmail indicates the email unique constraint rejected a write.
var ErrDuplicateEmail = errors.New("repository: email already exists")
