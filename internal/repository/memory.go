package repository

import (
	"context"
	"sync"
	"time"

	"stolik/internal/models"
)

// MemoryStateRepository keeps form sessions in process memory. Used as the
// failover target when redis is down and as the only repository when redis
// is not configured.
type MemoryStateRepository struct {
	sessions sync.Map
	ttl      time.Duration

	// rateLimits защищён мьютексом: инкремент счётчика это
	// read-modify-write, sync.Map его не атомизирует.
	mu         sync.Mutex
	rateLimits map[string]*rateLimitEntry
}

type sessionEntry struct {
	session   *models.FormSession
	expiresAt time.Time
}

func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	return &MemoryStateRepository{
		ttl:        ttl,
		rateLimits: make(map[string]*rateLimitEntry),
	}
}

func (r *MemoryStateRepository) GetSession(ctx context.Context, sessionID string) (*models.FormSession, error) {
	val, ok := r.sessions.Load(sessionID)
	if !ok {
		return nil, nil
	}
	entry := val.(*sessionEntry)
	if r.ttl > 0 && time.Now().After(entry.expiresAt) {
		r.sessions.Delete(sessionID)
		return nil, nil
	}
	return entry.session, nil
}

func (r *MemoryStateRepository) SetSession(ctx context.Context, session *models.FormSession) error {
	r.sessions.Store(session.SessionID, &sessionEntry{
		session:   session,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemoryStateRepository) ClearSession(ctx context.Context, sessionID string) error {
	r.sessions.Delete(sessionID)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
		r.rateLimits[key] = entry
	} else {
		entry.count++
	}

	return entry.count <= limit, nil
}
