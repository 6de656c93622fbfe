package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xaenox/jobpost-bot/internal/models"
)

const (
	conversationPrefix = "jobpost:conversation:"
	completedPrefix    = "jobpost:completed:"
)

// RedisStorage keeps conversations as JSON documents so state survives
// restarts. Key TTLs provide idle eviction and marker expiry.
type RedisStorage struct {
	rdb          *redis.Client
	idleTimeout  time.Duration
	completedTTL time.Duration
}

// NewRedisStorage connects to redisURL and checks the connection.
func NewRedisStorage(ctx context.Context, redisURL string, idleTimeout, completedTTL time.Duration) (*RedisStorage, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisStorageWithClient(rdb, idleTimeout, completedTTL), nil
}

func NewRedisStorageWithClient(rdb *redis.Client, idleTimeout, completedTTL time.Duration) *RedisStorage {
	return &RedisStorage{rdb: rdb, idleTimeout: idleTimeout, completedTTL: completedTTL}
}

func (s *RedisStorage) GetConversation(ctx context.Context, chatID int64) (*models.Conversation, error) {
	data, err := s.rdb.Get(ctx, conversationPrefix+key(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation %d: %w", chatID, err)
	}

	var conv models.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, &CorruptError{ChatID: chatID, Raw: string(data), Err: err}
	}
	return &conv, nil
}

func (s *RedisStorage) SaveConversation(ctx context.Context, conv *models.Conversation) error {
	conv.UpdatedAt = time.Now()
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("encode conversation %d: %w", conv.ChatID, err)
	}
	if err := s.rdb.Set(ctx, conversationPrefix+key(conv.ChatID), data, s.idleTimeout).Err(); err != nil {
		return fmt.Errorf("save conversation %d: %w", conv.ChatID, err)
	}
	return nil
}

func (s *RedisStorage) DeleteConversation(ctx context.Context, chatID int64) error {
	if err := s.rdb.Del(ctx, conversationPrefix+key(chatID)).Err(); err != nil {
		return fmt.Errorf("delete conversation %d: %w", chatID, err)
	}
	return nil
}

func (s *RedisStorage) MarkCompleted(ctx context.Context, chatID int64) error {
	if err := s.rdb.Set(ctx, completedPrefix+key(chatID), 1, s.completedTTL).Err(); err != nil {
		return fmt.Errorf("mark completed %d: %w", chatID, err)
	}
	return nil
}

func (s *RedisStorage) RecentlyCompleted(ctx context.Context, chatID int64) (bool, error) {
	n, err := s.rdb.Exists(ctx, completedPrefix+key(chatID)).Result()
	if err != nil {
		return false, fmt.Errorf("check completed %d: %w", chatID, err)
	}
	return n > 0, nil
}

func (s *RedisStorage) Close() error {
	return s.rdb.Close()
}
