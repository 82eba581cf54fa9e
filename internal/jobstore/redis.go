package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxUpdateAttempts = 10

// RedisStore 基于 Redis 的任务存储，多实例共享并按 TTL 自动过期
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore 创建 Redis 任务存储
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "polyva"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(id string) string {
	return fmt.Sprintf("%s:gen:job:%s", s.prefix, id)
}

// Save 写入或覆盖任务，每次写入刷新 TTL
func (s *RedisStore) Save(ctx context.Context, job *Job) error {
	if job == nil || strings.TrimSpace(job.ID) == "" {
		return ErrNotFound
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(job.ID), payload, s.expiration()).Err()
}

// Update 以 WATCH 乐观事务完成读取-修改-写回，键被并发修改时重试
func (s *RedisStore) Update(ctx context.Context, id string, fn func(job *Job) error) (*Job, error) {
	key := s.key(id)
	var updated *Job
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var job Job
		if err := json.Unmarshal(raw, &job); err != nil {
			return fmt.Errorf("decode generation job failed: %w", err)
		}
		if err := fn(&job); err != nil {
			return err
		}
		payload, err := json.Marshal(&job)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.expiration())
			return nil
		})
		if err == nil {
			updated = &job
		}
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("update generation job %s: too many concurrent writers", id)
}

func (s *RedisStore) expiration() time.Duration {
	if s.ttl < 0 {
		return 0
	}
	return s.ttl
}

// Get 读取任务
func (s *RedisStore) Get(ctx context.Context, id string) (*Job, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("decode generation job failed: %w", err)
	}
	return &job, nil
}

// Delete 删除任务
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}
