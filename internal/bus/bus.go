// Package bus is the Redis command bus between the API/CLI producers
// and the worker pool. Pending jobs live in a priority-scored sorted
// set; job state and results are JSON values with a 24h TTL.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

const (
	queuePending    = "sharingan:queue:pending"
	queueProcessing = "sharingan:queue:processing"
	queueFailed     = "sharingan:queue:failed"
	jobPrefix       = "sharingan:job:"
	resultPrefix    = "sharingan:result:"
	workerPrefix    = "sharingan:worker:"

	jobTTL = 24 * time.Hour
)

type redisBus struct {
	client *redis.Client
	cfg    config.RedisConfig
}

// NewRedisBus connects to Redis and verifies it with a ping.
func NewRedisBus(cfg config.RedisConfig) (core.CommandBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisBus{client: client, cfg: cfg}, nil
}

func (b *redisBus) Push(ctx context.Context, job *types.Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	job.Status = types.JobStatusPending
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	// Lower scores pop first. Unprioritized jobs score by submission
	// time, so they run FIFO after anything with an explicit priority.
	score := float64(job.Priority)
	if job.Priority == 0 {
		score = float64(time.Now().Unix())
	}

	pipe := b.client.Pipeline()
	pipe.Set(ctx, jobPrefix+job.ID, data, jobTTL)
	pipe.ZAdd(ctx, queuePending, redis.Z{Score: score, Member: job.ID})
	_, err = pipe.Exec(ctx)
	return err
}

func (b *redisBus) Pop(ctx context.Context, workerID string) (*types.Job, error) {
	result := b.client.ZPopMin(ctx, queuePending, 1)
	if err := result.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrNoJob
		}
		return nil, err
	}
	members := result.Val()
	if len(members) == 0 {
		return nil, core.ErrNoJob
	}
	jobID := members[0].Member.(string)

	job, err := b.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	job.Status = types.JobStatusProcessing
	job.UpdatedAt = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := b.client.Pipeline()
	pipe.Set(ctx, jobPrefix+jobID, data, jobTTL)
	pipe.HSet(ctx, queueProcessing, jobID, workerID)
	pipe.Set(ctx, workerPrefix+workerID+":current", jobID, time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		// Put the job back so it is not lost to a half-applied pop.
		b.client.ZAdd(ctx, queuePending, redis.Z{
			Score:  float64(job.Priority),
			Member: jobID,
		})
		return nil, fmt.Errorf("failed to update job status: %w", err)
	}

	return job, nil
}

func (b *redisBus) Complete(ctx context.Context, jobID string, result *types.ToolResult) error {
	job, err := b.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	job.Status = types.JobStatusCompleted
	job.UpdatedAt = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	workerID, _ := b.client.HGet(ctx, queueProcessing, jobID).Result()

	pipe := b.client.Pipeline()
	pipe.Set(ctx, jobPrefix+jobID, data, jobTTL)
	if result != nil {
		resultData, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		pipe.Set(ctx, resultPrefix+jobID, resultData, jobTTL)
	}
	pipe.HDel(ctx, queueProcessing, jobID)
	if workerID != "" {
		pipe.Del(ctx, workerPrefix+workerID+":current")
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (b *redisBus) Fail(ctx context.Context, jobID string, reason string) error {
	job, err := b.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	job.Status = types.JobStatusFailed
	job.Error = reason
	job.UpdatedAt = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	workerID, _ := b.client.HGet(ctx, queueProcessing, jobID).Result()

	pipe := b.client.Pipeline()
	pipe.Set(ctx, jobPrefix+jobID, data, jobTTL)
	pipe.HDel(ctx, queueProcessing, jobID)
	pipe.ZAdd(ctx, queueFailed, redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: jobID,
	})
	if workerID != "" {
		pipe.Del(ctx, workerPrefix+workerID+":current")
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (b *redisBus) Retry(ctx context.Context, jobID string) error {
	job, err := b.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	job.Status = types.JobStatusPending
	job.Retries++
	job.UpdatedAt = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	// Each retry lowers the score, so retried jobs cut ahead instead of
	// starving behind a full queue.
	pipe := b.client.Pipeline()
	pipe.Set(ctx, jobPrefix+jobID, data, jobTTL)
	pipe.ZRem(ctx, queueFailed, jobID)
	pipe.HDel(ctx, queueProcessing, jobID)
	pipe.ZAdd(ctx, queuePending, redis.Z{
		Score:  float64(job.Priority - job.Retries*10),
		Member: jobID,
	})
	_, err = pipe.Exec(ctx)
	return err
}

func (b *redisBus) GetStatus(ctx context.Context, jobID string) (*types.Job, error) {
	return b.getJob(ctx, jobID)
}

func (b *redisBus) GetResult(ctx context.Context, jobID string) (*types.ToolResult, error) {
	data, err := b.client.Get(ctx, resultPrefix+jobID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	var result types.ToolResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &result, nil
}

func (b *redisBus) GetPending(ctx context.Context) ([]*types.Job, error) {
	jobIDs, err := b.client.ZRange(ctx, queuePending, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending jobs: %w", err)
	}

	jobs := make([]*types.Job, 0, len(jobIDs))
	for _, jobID := range jobIDs {
		job, err := b.getJob(ctx, jobID)
		if err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (b *redisBus) Stats(ctx context.Context) (*types.QueueStats, error) {
	pipe := b.client.Pipeline()
	pending := pipe.ZCard(ctx, queuePending)
	processing := pipe.HLen(ctx, queueProcessing)
	failed := pipe.ZCard(ctx, queueFailed)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to read queue stats: %w", err)
	}

	return &types.QueueStats{
		Pending:    pending.Val(),
		Processing: processing.Val(),
		Failed:     failed.Val(),
	}, nil
}

func (b *redisBus) Close() error {
	return b.client.Close()
}

func (b *redisBus) getJob(ctx context.Context, jobID string) (*types.Job, error) {
	data, err := b.client.Get(ctx, jobPrefix+jobID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job data: %w", err)
	}

	var job types.Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}
