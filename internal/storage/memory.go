package storage

import (
	"context"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/xaenox/jobpost-bot/internal/models"
)

// MemoryStorage keeps conversations in process. Conversations idle for
// longer than idleTimeout and completion markers older than completedTTL
// are evicted by the cache janitor.
type MemoryStorage struct {
	conversations *cache.Cache
	completed     *cache.Cache
}

func NewMemoryStorage(idleTimeout, completedTTL time.Duration) *MemoryStorage {
	return &MemoryStorage{
		conversations: cache.New(idleTimeout, cleanupInterval(idleTimeout)),
		completed:     cache.New(completedTTL, cleanupInterval(completedTTL)),
	}
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 10 * time.Minute
	}
	if ttl < time.Minute {
		return ttl
	}
	return ttl / 2
}

func key(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

func (s *MemoryStorage) GetConversation(_ context.Context, chatID int64) (*models.Conversation, error) {
	if x, found := s.conversations.Get(key(chatID)); found {
		return x.(*models.Conversation).Clone(), nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) SaveConversation(_ context.Context, conv *models.Conversation) error {
	conv.UpdatedAt = time.Now()
	s.conversations.Set(key(conv.ChatID), conv.Clone(), cache.DefaultExpiration)
	return nil
}

func (s *MemoryStorage) DeleteConversation(_ context.Context, chatID int64) error {
	s.conversations.Delete(key(chatID))
	return nil
}

func (s *MemoryStorage) MarkCompleted(_ context.Context, chatID int64) error {
	s.completed.Set(key(chatID), true, cache.DefaultExpiration)
	return nil
}

func (s *MemoryStorage) RecentlyCompleted(_ context.Context, chatID int64) (bool, error) {
	_, found := s.completed.Get(key(chatID))
	return found, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
