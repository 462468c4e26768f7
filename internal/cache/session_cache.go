// Package cache is the redis-backed fast lane for session reads: the
// candidate-facing exam paper and per-candidate deadlines. PostgreSQL
// stays the source of truth; every read path here has a DB fallback in
// its caller.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/certiq/certiq-backend/internal/config"
	"github.com/certiq/certiq-backend/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrMiss reports that a key was absent.
var ErrMiss = errors.New("cache miss")

// SessionCache stores exam papers and candidate deadlines in redis.
type SessionCache struct {
	rdb *redis.Client
}

// NewSessionCache creates a new SessionCache.
func NewSessionCache(rdb *redis.Client) *SessionCache {
	return &SessionCache{rdb: rdb}
}

// GetPaper retrieves a cached exam paper. Returns ErrMiss when not cached.
func (c *SessionCache) GetPaper(ctx context.Context, examID uuid.UUID) (*model.ExamPaper, error) {
	data, err := c.rdb.Get(ctx, config.CacheKey.ExamPaperKey(examID.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get paper: %w", err)
	}

	var paper model.ExamPaper
	if err := json.Unmarshal(data, &paper); err != nil {
		return nil, fmt.Errorf("unmarshal paper: %w", err)
	}
	return &paper, nil
}

// SetPaper caches an exam paper until the exam closes.
func (c *SessionCache) SetPaper(ctx context.Context, paper *model.ExamPaper, ttl time.Duration) error {
	data, err := json.Marshal(paper)
	if err != nil {
		return fmt.Errorf("marshal paper: %w", err)
	}
	return c.rdb.Set(ctx, config.CacheKey.ExamPaperKey(paper.ExamID.String()), data, ttl).Err()
}

// SetDeadline caches a candidate's effective deadline as a unix timestamp.
func (c *SessionCache) SetDeadline(ctx context.Context, examID, accountID uuid.UUID, deadline time.Time) error {
	key := config.CacheKey.CandidateDeadlineKey(examID.String(), accountID.String())
	return c.rdb.Set(ctx, key, deadline.Unix(), 0).Err()
}

// GetDeadline retrieves a candidate's cached deadline. Returns ErrMiss
// when not cached (evicted or written before this node joined).
func (c *SessionCache) GetDeadline(ctx context.Context, examID, accountID uuid.UUID) (time.Time, error) {
	key := config.CacheKey.CandidateDeadlineKey(examID.String(), accountID.String())
	unix, err := c.rdb.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, ErrMiss
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get deadline: %w", err)
	}
	return time.Unix(unix, 0).UTC(), nil
}
