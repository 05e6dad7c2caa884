package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/logger"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

func newTestStore(t *testing.T) core.ResultStore {
	t.Helper()

	log, err := logger.New(config.LoggerConfig{Level: "error", Format: "console"})
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Driver:          "sqlite",
		DSN:             filepath.Join(t.TempDir(), "results.db"),
		MaxConnections:  4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	}

	store, err := NewStore(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newScan(tool, target string, status types.ScanStatus) *types.ScanRecord {
	return &types.ScanRecord{
		ID:        uuid.New().String(),
		Tool:      tool,
		Operation: "scan",
		Target:    target,
		Status:    status,
		CreatedAt: time.Now(),
	}
}

func TestSaveAndGetScan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	scan := newScan("nmap", "10.0.0.1", types.ScanStatusPending)
	require.NoError(t, store.SaveScan(ctx, scan))

	got, err := store.GetScan(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, scan.ID, got.ID)
	assert.Equal(t, "nmap", got.Tool)
	assert.Equal(t, "10.0.0.1", got.Target)
	assert.Equal(t, types.ScanStatusPending, got.Status)
	assert.Nil(t, got.StartedAt)
	assert.WithinDuration(t, scan.CreatedAt, got.CreatedAt, time.Second)
}

func TestGetScan_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetScan(context.Background(), "no-such-scan")
	assert.ErrorIs(t, err, core.ErrScanNotFound)
}

func TestUpdateScan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	scan := newScan("nikto", "https://example.com", types.ScanStatusRunning)
	started := time.Now()
	scan.StartedAt = &started
	require.NoError(t, store.SaveScan(ctx, scan))

	completed := time.Now()
	scan.Status = types.ScanStatusCompleted
	scan.Output = "+ Server: nginx"
	scan.CompletedAt = &completed
	require.NoError(t, store.UpdateScan(ctx, scan))

	got, err := store.GetScan(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ScanStatusCompleted, got.Status)
	assert.Equal(t, "+ Server: nginx", got.Output)
	require.NotNil(t, got.CompletedAt)
}

func TestUpdateScan_NotFound(t *testing.T) {
	store := newTestStore(t)

	ghost := newScan("nmap", "10.0.0.1", types.ScanStatusCompleted)
	err := store.UpdateScan(context.Background(), ghost)
	assert.ErrorIs(t, err, core.ErrScanNotFound)
}

func TestListScans(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	scans := []*types.ScanRecord{
		newScan("nmap", "10.0.0.1", types.ScanStatusCompleted),
		newScan("nmap", "10.0.0.2", types.ScanStatusFailed),
		newScan("sqlmap", "https://example.com", types.ScanStatusCompleted),
	}
	for i, scan := range scans {
		// Spread creation times so ordering is deterministic.
		scan.CreatedAt = time.Now().Add(time.Duration(i-3) * time.Minute)
		require.NoError(t, store.SaveScan(ctx, scan))
	}

	all, err := store.ListScans(ctx, core.ScanFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, scans[2].ID, all[0].ID, "newest scan should come first")

	byTool, err := store.ListScans(ctx, core.ScanFilter{Tool: "nmap"})
	require.NoError(t, err)
	assert.Len(t, byTool, 2)

	byStatus, err := store.ListScans(ctx, core.ScanFilter{Status: types.ScanStatusFailed})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "10.0.0.2", byStatus[0].Target)

	byTarget, err := store.ListScans(ctx, core.ScanFilter{Target: "https://example.com"})
	require.NoError(t, err)
	require.Len(t, byTarget, 1)
	assert.Equal(t, "sqlmap", byTarget[0].Tool)

	limited, err := store.ListScans(ctx, core.ScanFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, scans[1].ID, limited[0].ID)

	cutoff := time.Now().Add(-90 * time.Second)
	recent, err := store.ListScans(ctx, core.ScanFilter{FromDate: &cutoff})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, scans[2].ID, recent[0].ID)
}

func newFinding(scanID, tool, title string, severity types.Severity) types.Finding {
	return types.Finding{
		ID:          uuid.New().String(),
		ScanID:      scanID,
		Tool:        tool,
		Severity:    severity,
		Title:       title,
		Description: tool + " scan result",
		Evidence:    "80/tcp open http",
	}
}

func TestSaveFindings_Dedup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	scan := newScan("nmap", "10.0.0.1", types.ScanStatusCompleted)
	require.NoError(t, store.SaveScan(ctx, scan))

	first := []types.Finding{
		newFinding(scan.ID, "nmap", "2 open ports on 10.0.0.1", types.SeverityInfo),
	}
	require.NoError(t, store.SaveFindings(ctx, first))
	assert.NotEmpty(t, first[0].DedupHash)

	// Same observation from a later scan of the same target collapses
	// into the existing row.
	rescan := newScan("nmap", "10.0.0.1", types.ScanStatusCompleted)
	require.NoError(t, store.SaveScan(ctx, rescan))
	repeat := []types.Finding{
		newFinding(rescan.ID, "nmap", "2 open ports on 10.0.0.1", types.SeverityInfo),
		newFinding(rescan.ID, "nmap", "3 live hosts discovered", types.SeverityInfo),
	}
	require.NoError(t, store.SaveFindings(ctx, repeat))

	got, err := store.GetFindings(ctx, scan.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	stats, err := store.GetFindingStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
}

func TestSaveFindings_Empty(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.SaveFindings(context.Background(), nil))
}

func TestFindingStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	webScan := newScan("sqlmap", "https://example.com", types.ScanStatusCompleted)
	netScan := newScan("nmap", "10.0.0.1", types.ScanStatusCompleted)
	require.NoError(t, store.SaveScan(ctx, webScan))
	require.NoError(t, store.SaveScan(ctx, netScan))

	findings := []types.Finding{
		newFinding(webScan.ID, "sqlmap", "SQL injection point on https://example.com", types.SeverityHigh),
		newFinding(netScan.ID, "nmap", "4 open ports on 10.0.0.1", types.SeverityInfo),
		newFinding(netScan.ID, "nmap", "2 live hosts discovered", types.SeverityInfo),
	}
	require.NoError(t, store.SaveFindings(ctx, findings))

	stats, err := store.GetFindingStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.BySeverity[types.SeverityHigh])
	assert.Equal(t, 2, stats.BySeverity[types.SeverityInfo])
	assert.Equal(t, 2, stats.ByTool["nmap"])
	assert.Equal(t, 2, stats.ByTarget["10.0.0.1"])
	assert.Equal(t, 1, stats.ByTarget["https://example.com"])
}

func TestSearchFindings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	scan := newScan("hydra", "10.0.0.5", types.ScanStatusCompleted)
	require.NoError(t, store.SaveScan(ctx, scan))

	findings := []types.Finding{
		newFinding(scan.ID, "hydra", "Valid credentials found on 10.0.0.5", types.SeverityCritical),
		newFinding(scan.ID, "hydra", "12 entries enumerated on 10.0.0.5", types.SeverityInfo),
	}
	require.NoError(t, store.SaveFindings(ctx, findings))

	got, err := store.SearchFindings(ctx, "credentials", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, types.SeverityCritical, got[0].Severity)

	none, err := store.SearchFindings(ctx, "does-not-appear", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDedupHash_Stable(t *testing.T) {
	a := DedupHash("nmap", "10.0.0.1", "2 open ports", "80/tcp open")
	b := DedupHash("nmap", "10.0.0.1", "2 open ports", "80/tcp open")
	c := DedupHash("nmap", "10.0.0.2", "2 open ports", "80/tcp open")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

// TestPostgresRoundTrip exercises the postgres driver against a real
// database. Set SHARINGAN_TEST_POSTGRES_DSN to run it.
func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("SHARINGAN_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SHARINGAN_TEST_POSTGRES_DSN not set")
	}

	log, err := logger.New(config.LoggerConfig{Level: "error", Format: "console"})
	require.NoError(t, err)

	store, err := NewStore(config.DatabaseConfig{
		Driver:          "postgres",
		DSN:             dsn,
		MaxConnections:  4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	}, log)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	scan := newScan("nmap", "10.0.0.77", types.ScanStatusPending)
	require.NoError(t, store.SaveScan(ctx, scan))

	got, err := store.GetScan(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, scan.ID, got.ID)

	scan.Status = types.ScanStatusCompleted
	scan.Output = "ok"
	require.NoError(t, store.UpdateScan(ctx, scan))

	got, err = store.GetScan(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ScanStatusCompleted, got.Status)
	assert.Equal(t, "ok", got.Output)
}
