package bus

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

// newTestBus needs a live Redis; tests skip without one. DB 15 is
// flushed before every test.
func newTestBus(t *testing.T) *redisBus {
	t.Helper()

	addr := os.Getenv("SHARINGAN_TEST_REDIS")
	if addr == "" {
		t.Skip("set SHARINGAN_TEST_REDIS to a Redis address to run bus tests")
	}

	b, err := NewRedisBus(config.RedisConfig{
		Addr:         addr,
		DB:           15,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	require.NoError(t, err)

	rb := b.(*redisBus)
	require.NoError(t, rb.client.FlushDB(context.Background()).Err())
	t.Cleanup(func() { rb.Close() })
	return rb
}

func TestPushPopComplete(t *testing.T) {
	ctx := context.Background()
	b := newTestBus(t)

	job := &types.Job{
		Type:      "scan",
		Tool:      "nmap",
		Operation: "quick",
		Target:    "10.0.0.1",
		Priority:  5,
	}
	require.NoError(t, b.Push(ctx, job))
	require.NotEmpty(t, job.ID)

	popped, err := b.Pop(ctx, "worker-1")
	require.NoError(t, err)
	assert.Equal(t, job.ID, popped.ID)
	assert.Equal(t, types.JobStatusProcessing, popped.Status)
	assert.Equal(t, "nmap", popped.Tool)

	status, err := b.GetStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusProcessing, status.Status)

	result := &types.ToolResult{
		Tool:      "nmap",
		Operation: "quick",
		Target:    "10.0.0.1",
		Success:   true,
		Output:    "1 host up",
	}
	require.NoError(t, b.Complete(ctx, job.ID, result))

	status, err = b.GetStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusCompleted, status.Status)

	got, err := b.GetResult(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, got.Success)
	assert.Equal(t, "1 host up", got.Output)

	_, err = b.Pop(ctx, "worker-1")
	assert.True(t, errors.Is(err, core.ErrNoJob))
}

func TestPopOrder(t *testing.T) {
	ctx := context.Background()
	b := newTestBus(t)

	low := &types.Job{Tool: "nikto", Priority: 20}
	high := &types.Job{Tool: "nmap", Priority: 10}
	require.NoError(t, b.Push(ctx, low))
	require.NoError(t, b.Push(ctx, high))

	first, err := b.Pop(ctx, "w")
	require.NoError(t, err)
	assert.Equal(t, high.ID, first.ID)

	second, err := b.Pop(ctx, "w")
	require.NoError(t, err)
	assert.Equal(t, low.ID, second.ID)
}

func TestRetryThenFail(t *testing.T) {
	ctx := context.Background()
	b := newTestBus(t)

	job := &types.Job{Tool: "gobuster", Operation: "dir", Priority: 50}
	require.NoError(t, b.Push(ctx, job))

	_, err := b.Pop(ctx, "w")
	require.NoError(t, err)

	require.NoError(t, b.Retry(ctx, job.ID))
	status, err := b.GetStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusPending, status.Status)
	assert.Equal(t, 1, status.Retries)

	// Retried job is pending again and pops with a lowered score.
	popped, err := b.Pop(ctx, "w")
	require.NoError(t, err)
	assert.Equal(t, job.ID, popped.ID)

	require.NoError(t, b.Fail(ctx, job.ID, "connection refused"))
	status, err = b.GetStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusFailed, status.Status)
	assert.Equal(t, "connection refused", status.Error)

	pending, err := b.GetPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	b := newTestBus(t)

	require.NoError(t, b.Push(ctx, &types.Job{Tool: "nmap", Priority: 1}))
	require.NoError(t, b.Push(ctx, &types.Job{Tool: "nikto", Priority: 2}))

	stats, err := b.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(0), stats.Processing)

	_, err = b.Pop(ctx, "w")
	require.NoError(t, err)

	stats, err = b.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.Processing)
}

func TestGetStatus_Missing(t *testing.T) {
	b := newTestBus(t)
	_, err := b.GetStatus(context.Background(), "no-such-job")
	assert.True(t, errors.Is(err, core.ErrJobNotFound))
}
