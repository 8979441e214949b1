package repository

import (
	"context"
	"sync/atomic"
	"time"

	"stolik/internal/domain"
	"stolik/internal/models"

	"github.com/rs/zerolog"
)

// FailoverStateRepository serves from the primary repository (redis) and
// falls back to the in-memory one when the primary errors. Recovery is
// retried after a minute.
type FailoverStateRepository struct {
	primary   domain.StateRepository
	fallback  domain.StateRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverStateRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck = time.Now()
}

func (r *FailoverStateRepository) GetSession(ctx context.Context, sessionID string) (*models.FormSession, error) {
	if !r.isDown.Load() {
		session, err := r.primary.GetSession(ctx, sessionID)
		if err == nil {
			return session, nil
		}
		r.markDown(err)
	}

	// Пробуем восстановиться через минуту
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		session, err := r.primary.GetSession(ctx, sessionID)
		if err == nil {
			r.isDown.Store(false)
			return session, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.GetSession(ctx, sessionID)
}

func (r *FailoverStateRepository) SetSession(ctx context.Context, session *models.FormSession) error {
	if !r.isDown.Load() {
		err := r.primary.SetSession(ctx, session)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.SetSession(ctx, session)
}

func (r *FailoverStateRepository) ClearSession(ctx context.Context, sessionID string) error {
	if !r.isDown.Load() {
		err := r.primary.ClearSession(ctx, sessionID)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.ClearSession(ctx, sessionID)
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.markDown(err)
	}

	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
