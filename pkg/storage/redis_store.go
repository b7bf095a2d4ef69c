package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/z-wentao/scriptsync/pkg/models"
)

const (
	keyPrefix = "scriptsync:job:"
	indexKey  = "scriptsync:jobs:index"
)

// RedisJobStore Redis 任务存储
// 多个 API / Worker 进程共享任务状态；任务数据带 TTL，过期即丢弃
type RedisJobStore struct {
	client *redis.Client
	ttl    time.Duration // 数据过期时间
	ctx    context.Context
}

// NewRedisJobStore 创建 Redis 任务存储
func NewRedisJobStore(addr, password string, db int, ttl time.Duration) (*RedisJobStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,     // Redis 地址，如 "localhost:6379"
		Password: password, // 密码，无密码留空
		DB:       db,       // 数据库编号，默认 0
	})

	// 测试连接
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}

	return &RedisJobStore{
		client: client,
		ttl:    ttl,
		ctx:    ctx,
	}, nil
}

// jobKey 生成 Redis key，格式: "scriptsync:job:{jobID}"
func jobKey(jobID string) string {
	return keyPrefix + jobID
}

// Save 保存任务到 Redis
func (rs *RedisJobStore) Save(job *models.SubtitleJob) error {
	// 1. 序列化为 JSON
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("序列化任务失败: %w", err)
	}

	// 2. 任务数据与索引在同一个事务中写入
	// 索引使用 Sorted Set，score 为创建时间戳
	_, err = rs.client.TxPipelined(rs.ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(rs.ctx, jobKey(job.JobID), data, rs.ttl)
		pipe.ZAdd(rs.ctx, indexKey, redis.Z{
			Score:  float64(job.CreatedAt.UnixNano()),
			Member: job.JobID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("保存到 Redis 失败: %w", err)
	}

	return nil
}

// Get 从 Redis 获取任务
func (rs *RedisJobStore) Get(jobID string) (*models.SubtitleJob, error) {
	data, err := rs.client.Get(rs.ctx, jobKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("从 Redis 获取失败: %w", err)
	}

	var job models.SubtitleJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("反序列化任务失败: %w", err)
	}

	return &job, nil
}

// Update 更新任务
// 使用 WATCH 乐观锁，避免多个 Worker 同时更新时相互覆盖
func (rs *RedisJobStore) Update(jobID string, updateFn func(*models.SubtitleJob)) error {
	key := jobKey(jobID)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(rs.ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", ErrNotFound, jobID)
		}
		if err != nil {
			return fmt.Errorf("从 Redis 获取失败: %w", err)
		}

		var job models.SubtitleJob
		if err := json.Unmarshal(data, &job); err != nil {
			return fmt.Errorf("反序列化任务失败: %w", err)
		}

		updateFn(&job)

		updated, err := json.Marshal(&job)
		if err != nil {
			return fmt.Errorf("序列化任务失败: %w", err)
		}

		_, err = tx.TxPipelined(rs.ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(rs.ctx, key, updated, rs.ttl)
			return nil
		})
		return err
	}

	// 冲突时重试几次
	for i := 0; i < 5; i++ {
		err := rs.client.Watch(rs.ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}

	return fmt.Errorf("更新任务冲突次数过多: %s", jobID)
}

// List 列出所有任务
func (rs *RedisJobStore) List() ([]*models.SubtitleJob, error) {
	// 1. 从索引获取所有 JobID（按时间倒序）
	jobIDs, err := rs.client.ZRevRange(rs.ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("获取任务索引失败: %w", err)
	}

	// 2. 逐个获取任务详情
	jobs := make([]*models.SubtitleJob, 0, len(jobIDs))
	for _, jobID := range jobIDs {
		job, err := rs.Get(jobID)
		if err != nil {
			// 任务已过期，同时从索引中删除
			if errors.Is(err, ErrNotFound) {
				rs.client.ZRem(rs.ctx, indexKey, jobID)
			}
			continue
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

// Delete 删除任务
func (rs *RedisJobStore) Delete(jobID string) error {
	deleted, err := rs.client.Del(rs.ctx, jobKey(jobID)).Result()
	if err != nil {
		return fmt.Errorf("删除任务失败: %w", err)
	}

	rs.client.ZRem(rs.ctx, indexKey, jobID)

	if deleted == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}

	return nil
}

// Close 关闭 Redis 连接
func (rs *RedisJobStore) Close() error {
	return rs.client.Close()
}
