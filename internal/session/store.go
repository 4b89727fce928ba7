// Package session keeps the per-login state: remote bearer token, profile and
// display preferences.
package session

import (
	"context"
	"errors"

	"school_tracker/internal/models"
)

var ErrNotFound = errors.New("session not found")

// Store is the session lifecycle. Init persists a new session and assigns its
// id; Clear is idempotent.
type Store interface {
	Init(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Update(ctx context.Context, s *models.Session) error
	Clear(ctx context.Context, id string) error
}
