package session

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"school_tracker/internal/models"
)

func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()

	sess := &models.Session{Token: "remote-token"}
	require.NoError(t, sess.SetProfile(models.User{ID: "5", Name: "Mary Achieng", Role: "PARENT"}))
	require.NoError(t, store.Init(ctx, sess))
	require.NotEmpty(t, sess.ID)

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "remote-token", got.Token)
	assert.Equal(t, models.RoleParent, got.Role)
	u, err := got.User()
	require.NoError(t, err)
	assert.Equal(t, "Mary Achieng", u.Name)

	got.MockData = true
	got.APIBaseURL = "http://staging.example/api"
	require.NoError(t, store.Update(ctx, got))
	got, err = store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.MockData)
	assert.Equal(t, "http://staging.example/api", got.APIBaseURL)

	require.NoError(t, store.Clear(ctx, sess.ID))
	require.NoError(t, store.Clear(ctx, sess.ID))
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Update(ctx, got), ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestGormStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Session{}))
	exerciseStore(t, NewGormStore(db))
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	sess := &models.Session{Token: "a"}
	require.NoError(t, store.Init(context.Background(), sess))

	got, err := store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	got.Token = "mutated"

	again, err := store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", again.Token)
}
