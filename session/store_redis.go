package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	sessionKeyPrefix = "portal:session:"
	minTTL           = time.Minute
)

// RedisStore keeps sessions in redis, expiring with the session.
type RedisStore struct {
	client *redis.Client
	logger *logrus.Entry
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		logger: logrus.WithField("component", "session_store"),
	}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session from redis: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		r.logger.WithError(err).WithField("sessionID", id).Warn("Failed to unmarshal session, discarding it")
		r.client.Del(ctx, sessionKey(id))
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := time.Until(s.ExpiresAt)
	if ttl < minTTL {
		ttl = minTTL
	}
	if err := r.client.Set(ctx, sessionKey(s.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session to redis: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	return nil
}
