package playback

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/displacement"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("playback session not found")

// Session pairs one controller with the lock that serialises its callers.
type Session struct {
	ID      string
	Created time.Time

	mu   sync.Mutex
	ctrl *Controller
}

// Store keeps a bounded set of live sessions, evicting the least recently
// used one when full.
type Store struct {
	cache *lru.Cache[string, *Session]
	log   *zap.Logger
}

func NewStore(size int, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cache, err := lru.NewWithEvict(size, func(id string, _ *Session) {
		log.Info("playback session evicted", zap.String("session", id))
	})
	if err != nil {
		return nil, fmt.Errorf("session cache: %w", err)
	}
	return &Store{cache: cache, log: log}, nil
}

// Open builds a fresh engine and controller for ds, which must already be
// free of validation errors, and returns the new session id. A non-nil init
// sees the controller before the session is published, so it cannot be
// evicted first.
func (s *Store) Open(ds *floor.Dataset, init func(*Controller)) string {
	sess := &Session{
		ID:      uuid.NewString(),
		Created: time.Now(),
		ctrl:    New(displacement.New(ds)),
	}
	if init != nil {
		init(sess.ctrl)
	}
	s.cache.Add(sess.ID, sess)
	s.log.Info("playback session opened",
		zap.String("session", sess.ID),
		zap.Int("nodes", len(ds.Nodes)),
		zap.Int("modes", len(ds.ModeShapes)))
	return sess.ID
}

// Reload discards the session's engine and controller and attaches new
// ones built from ds. Nothing derived from the previous dataset survives.
func (s *Store) Reload(id string, ds *floor.Dataset) error {
	sess, ok := s.cache.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	ctrl := New(displacement.New(ds))
	sess.mu.Lock()
	sess.ctrl = ctrl
	sess.mu.Unlock()
	s.log.Info("playback session reloaded", zap.String("session", id))
	return nil
}

// Do runs fn with exclusive access to the session's controller.
func (s *Store) Do(id string, fn func(*Controller) error) error {
	sess, ok := s.cache.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return fn(sess.ctrl)
}

func (s *Store) Close(id string) bool {
	return s.cache.Remove(id)
}

func (s *Store) Len() int {
	return s.cache.Len()
}
