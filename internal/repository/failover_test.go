package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"stolik/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenRepository always fails, simulating a dead redis.
type brokenRepository struct{}

var errBroken = errors.New("connection refused")

func (brokenRepository) GetSession(ctx context.Context, sessionID string) (*models.FormSession, error) {
	return nil, errBroken
}

func (brokenRepository) SetSession(ctx context.Context, session *models.FormSession) error {
	return errBroken
}

func (brokenRepository) ClearSession(ctx context.Context, sessionID string) error {
	return errBroken
}

func (brokenRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return false, errBroken
}

func TestFailoverFallsBackToMemory(t *testing.T) {
	logger := zerolog.New(io.Discard)
	fallback := NewMemoryStateRepository(time.Hour)
	repo := NewFailoverStateRepository(brokenRepository{}, fallback, &logger)
	ctx := context.Background()

	session := &models.FormSession{
		SessionID: "abc",
		Values:    map[string]string{models.FieldFullName: "Test User"},
	}

	require.NoError(t, repo.SetSession(ctx, session))

	got, err := repo.GetSession(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Test User", got.Value(models.FieldFullName))

	require.NoError(t, repo.ClearSession(ctx, "abc"))
	got, err = repo.GetSession(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFailoverRateLimitFallsBack(t *testing.T) {
	logger := zerolog.New(io.Discard)
	fallback := NewMemoryStateRepository(time.Hour)
	repo := NewFailoverStateRepository(brokenRepository{}, fallback, &logger)
	ctx := context.Background()

	allowed, err := repo.CheckRateLimit(ctx, "client", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = repo.CheckRateLimit(ctx, "client", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestFailoverPrefersHealthyPrimary(t *testing.T) {
	logger := zerolog.New(io.Discard)
	primary := NewMemoryStateRepository(time.Hour)
	fallback := NewMemoryStateRepository(time.Hour)
	repo := NewFailoverStateRepository(primary, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, repo.SetSession(ctx, &models.FormSession{SessionID: "abc"}))

	// Запись ушла в primary, fallback не тронут
	got, err := primary.GetSession(ctx, "abc")
	require.NoError(t, err)
	assert.NotNil(t, got)

	got, err = fallback.GetSession(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, got)
}
