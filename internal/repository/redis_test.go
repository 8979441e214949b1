package repository

import (
	"context"
	"testing"
	"time"

	"stolik/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisRepo(t *testing.T) (*RedisStateRepository, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStateRepository(client, time.Hour), s
}

func TestRedisStateRepository(t *testing.T) {
	repo, _ := newTestRedisRepo(t)
	ctx := context.Background()

	t.Run("SetAndGetSession", func(t *testing.T) {
		session := &models.FormSession{
			SessionID: "abc",
			Values:    map[string]string{models.FieldGuests: "2"},
			Confirmed: &models.Confirmation{
				Booking: models.BookingRequest{
					FullName: "Test User",
					Guests:   2,
					Date:     "2025-09-10",
					Time:     "19:00",
				},
				ConfirmedAt: time.Now().UTC(),
			},
		}

		require.NoError(t, repo.SetSession(ctx, session))

		got, err := repo.GetSession(ctx, "abc")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "2", got.Value(models.FieldGuests))
		require.NotNil(t, got.Confirmed)
		assert.Equal(t, "2 guests on 2025-09-10 at 19:00", got.Confirmed.Summary())
	})

	t.Run("GetNonExistentSession", func(t *testing.T) {
		got, err := repo.GetSession(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ClearSession", func(t *testing.T) {
		require.NoError(t, repo.SetSession(ctx, &models.FormSession{SessionID: "gone"}))
		require.NoError(t, repo.ClearSession(ctx, "gone"))

		got, err := repo.GetSession(ctx, "gone")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestRedisSessionTTL(t *testing.T) {
	repo, s := newTestRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetSession(ctx, &models.FormSession{SessionID: "short"}))

	s.FastForward(2 * time.Hour)

	got, err := repo.GetSession(ctx, "short")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCheckRateLimit(t *testing.T) {
	repo, s := newTestRedisRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := repo.CheckRateLimit(ctx, "client", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := repo.CheckRateLimit(ctx, "client", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	s.FastForward(2 * time.Minute)

	allowed, err = repo.CheckRateLimit(ctx, "client", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisNilClient(t *testing.T) {
	repo := NewRedisStateRepository(nil, time.Hour)
	ctx := context.Background()

	_, err := repo.GetSession(ctx, "abc")
	assert.Error(t, err)

	err = repo.SetSession(ctx, &models.FormSession{SessionID: "abc"})
	assert.Error(t, err)
}
