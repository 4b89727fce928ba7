package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"school_tracker/internal/models"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Init(ctx context.Context, sess *models.Session) error {
	sess.ID = uuid.NewString()
	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, id string) (*models.Session, error) {
	var sess models.Session
	err := s.db.WithContext(ctx).First(&sess, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &sess, nil
}

func (s *GormStore) Update(ctx context.Context, sess *models.Session) error {
	res := s.db.WithContext(ctx).Model(&models.Session{}).Where("id = ?", sess.ID).
		Updates(map[string]any{
			"mock_data":    sess.MockData,
			"api_base_url": sess.APIBaseURL,
		})
	if res.Error != nil {
		return fmt.Errorf("update session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Clear(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&models.Session{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
