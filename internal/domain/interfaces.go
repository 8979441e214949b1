package domain

import (
	"context"
	"time"

	"stolik/internal/models"
)

// StateRepository stores per-visitor form sessions keyed by an opaque
// session ID. Implementations: redis, in-memory, failover wrapper.
type StateRepository interface {
	GetSession(ctx context.Context, sessionID string) (*models.FormSession, error)
	SetSession(ctx context.Context, session *models.FormSession) error
	ClearSession(ctx context.Context, sessionID string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
