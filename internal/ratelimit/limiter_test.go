package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimiter(t *testing.T) {
	cfg := DefaultConfig()
	l := NewLimiter(cfg)
	require.NotNil(t, l)

	stats := l.GetStats()
	assert.Equal(t, cfg.BurstSize, stats.BurstSize)
	assert.Equal(t, cfg.MinDelay, stats.RequestDelay)
	assert.Equal(t, 0, stats.TrackedHosts)
}

func TestWait_EnforcesMinDelay(t *testing.T) {
	l := NewLimiter(Config{
		RequestsPerSecond: 1000,
		BurstSize:         1000,
		MinDelay:          80 * time.Millisecond,
	})

	ctx := context.Background()
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "10.0.0.1"))
	require.NoError(t, l.Wait(ctx, "10.0.0.1"))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestWait_IndependentTargets(t *testing.T) {
	l := NewLimiter(Config{
		RequestsPerSecond: 1000,
		BurstSize:         1000,
		MinDelay:          500 * time.Millisecond,
	})

	// The min delay is per host, so different targets do not wait on
	// each other.
	ctx := context.Background()
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "10.0.0.1"))
	require.NoError(t, l.Wait(ctx, "10.0.0.2"))
	require.NoError(t, l.Wait(ctx, "10.0.0.3"))
	assert.Less(t, time.Since(start), 400*time.Millisecond)

	assert.Equal(t, 3, l.GetStats().TrackedHosts)
}

func TestWait_ContextCanceledDuringDelay(t *testing.T) {
	l := NewLimiter(Config{
		RequestsPerSecond: 1000,
		BurstSize:         1000,
		MinDelay:          5 * time.Second,
	})

	require.NoError(t, l.Wait(context.Background(), "10.0.0.1"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, "10.0.0.1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWait_ContextAlreadyCanceled(t *testing.T) {
	l := NewLimiter(Config{RequestsPerSecond: 1, BurstSize: 1})
	require.NoError(t, l.Wait(context.Background(), "10.0.0.1"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, l.Wait(ctx, "10.0.0.1"))
}

func TestAllow_Burst(t *testing.T) {
	l := NewLimiter(Config{RequestsPerSecond: 10, BurstSize: 2, MinDelay: 10 * time.Millisecond})

	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow(), "third request should exceed the burst")

	// A token replenishes at 10 rps.
	time.Sleep(150 * time.Millisecond)
	assert.True(t, l.Allow())
}

func TestSetLimit_PerTarget(t *testing.T) {
	l := NewLimiter(Config{RequestsPerSecond: 1000, BurstSize: 1})
	l.SetLimit("slow.example.com", 1)

	require.NoError(t, l.Wait(context.Background(), "slow.example.com"))

	// The dedicated limit is drained, so the next wait cannot finish
	// inside the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.Error(t, l.Wait(ctx, "slow.example.com"))

	// Other targets only see the global limit.
	require.NoError(t, l.Wait(context.Background(), "fast.example.com"))
}

func TestSetGlobalLimit(t *testing.T) {
	l := NewLimiter(Config{RequestsPerSecond: 1000, BurstSize: 1})
	l.SetGlobalLimit(1)

	require.True(t, l.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.Error(t, l.Wait(ctx, "10.0.0.1"))
}

func TestReset(t *testing.T) {
	l := NewLimiter(Config{RequestsPerSecond: 100, BurstSize: 10, MinDelay: 10 * time.Millisecond})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "10.0.0.1"))
	require.NoError(t, l.Wait(ctx, "10.0.0.2"))
	require.Equal(t, 2, l.GetStats().TrackedHosts)

	l.Reset()
	assert.Equal(t, 0, l.GetStats().TrackedHosts)
}

func TestConfigPresets(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"default", DefaultConfig()},
		{"aggressive", AggressiveConfig()},
		{"conservative", ConservativeConfig()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := NewLimiter(tt.cfg).GetStats()
			assert.Equal(t, tt.cfg.BurstSize, stats.BurstSize)
			assert.Equal(t, tt.cfg.MinDelay, stats.RequestDelay)
		})
	}

	assert.Greater(t, AggressiveConfig().RequestsPerSecond, DefaultConfig().RequestsPerSecond)
	assert.Greater(t, DefaultConfig().RequestsPerSecond, ConservativeConfig().RequestsPerSecond)
}
