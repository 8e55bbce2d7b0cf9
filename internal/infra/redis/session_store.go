package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"timed-quiz-service/internal/app"
)

// SessionStore is a Redis-aware implementation of SessionRepository.
// Notes:
//   - It still keeps a local in-memory map of sessions because the state
//     machine mutates under its own mutex in-process.
//   - Redis marks session liveness with a TTL roughly matching the quiz
//     duration, so abandoned attempts leave no permanent keys behind.
//   - For true distribution you'd serialize session snapshots here as well.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Key()] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(session.Key()), "1", s.ttl).Err()
}

func (s *SessionStore) Get(key string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[key]
	return session, ok
}

func (s *SessionStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[key]; !ok {
		return
	}
	delete(s.sessions, key)
	_ = s.client.Del(context.Background(), s.key(key)).Err()
}

func (s *SessionStore) key(sessionKey string) string {
	return "quiz:session:" + sessionKey
}
