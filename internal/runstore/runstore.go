// Package runstore keeps the last run and a capped run history in Redis.
package runstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/similarweb-ingest/internal/domain"
	"github.com/ignite/similarweb-ingest/internal/pkg/logger"
)

const (
	keyLastRun = "similarweb:runs:last"
	keyHistory = "similarweb:runs:history"
)

// Store is a Redis-backed run record store.
type Store struct {
	redis       *redis.Client
	historySize int
}

// New wraps an existing client. historySize caps the history list.
func New(client *redis.Client, historySize int) *Store {
	if historySize <= 0 {
		historySize = 50
	}
	return &Store{redis: client, historySize: historySize}
}

// NewFromURL connects to Redis and verifies the connection.
func NewFromURL(ctx context.Context, redisURL string, historySize int) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("runstore: connected to redis", "addr", opts.Addr)
	return New(client, historySize), nil
}

// Save records rec as the last run and pushes it onto the history.
func (s *Store) Save(ctx context.Context, rec domain.RunRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding run record: %w", err)
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, keyLastRun, data, 0)
	pipe.LPush(ctx, keyHistory, data)
	pipe.LTrim(ctx, keyHistory, 0, int64(s.historySize-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving run %s: %w", rec.RunID, err)
	}
	return nil
}

// Last returns the most recent run, or nil when none has been recorded.
func (s *Store) Last(ctx context.Context) (*domain.RunRecord, error) {
	data, err := s.redis.Get(ctx, keyLastRun).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading last run: %w", err)
	}

	var rec domain.RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding last run: %w", err)
	}
	return &rec, nil
}

// List returns up to limit runs, newest first. Undecodable entries are skipped.
func (s *Store) List(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 || limit > s.historySize {
		limit = s.historySize
	}

	items, err := s.redis.LRange(ctx, keyHistory, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading run history: %w", err)
	}

	runs := make([]domain.RunRecord, 0, len(items))
	for _, item := range items {
		var rec domain.RunRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			logger.Warn("runstore: skipping malformed history entry", "error", err)
			continue
		}
		runs = append(runs, rec)
	}
	return runs, nil
}

// Ping checks the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.redis.Close()
}
