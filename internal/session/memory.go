package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"school_tracker/internal/models"
)

// MemoryStore keeps sessions in process; used in mock-data mode and tests.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]models.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]models.Session{}}
}

func (m *MemoryStore) Init(_ context.Context, sess *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	sess.ID = uuid.NewString()
	sess.CreatedAt, sess.UpdatedAt = now, now
	m.sessions[sess.ID] = *sess
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &sess, nil
}

func (m *MemoryStore) Update(_ context.Context, sess *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[sess.ID]
	if !ok {
		return ErrNotFound
	}
	cur.MockData = sess.MockData
	cur.APIBaseURL = sess.APIBaseURL
	cur.UpdatedAt = time.Now()
	m.sessions[sess.ID] = cur
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
