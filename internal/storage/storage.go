// Package storage persists scans and findings behind core.ResultStore.
// Two drivers are supported: embedded sqlite (the default) and
// postgres, selected by the configured driver name.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/twmb/murmur3"
	_ "modernc.org/sqlite"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/logger"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

type sqlStore struct {
	db     *sqlx.DB
	cfg    config.DatabaseConfig
	logger *logger.Logger
}

func NewStore(cfg config.DatabaseConfig, log *logger.Logger) (core.ResultStore, error) {
	dsn := cfg.DSN
	if cfg.Driver == "sqlite" && !strings.Contains(dsn, "?") {
		// Pragmas ride on the DSN so every pooled connection gets them.
		// _time_format makes time.Time columns sortable as text.
		dsn += "?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	}

	db, err := sqlx.Connect(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	store := &sqlStore{
		db:     db,
		cfg:    cfg,
		logger: log.WithComponent("storage"),
	}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	store.logger.Infow("Result store initialized",
		"driver", cfg.Driver,
		"dsn_masked", maskDSN(cfg.DSN),
	)
	return store, nil
}

// maskDSN hides credentials when the DSN is logged.
func maskDSN(dsn string) string {
	if len(dsn) > 10 {
		return dsn[:5] + "***" + dsn[len(dsn)-5:]
	}
	return "***"
}

func (s *sqlStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scans (
		id TEXT PRIMARY KEY,
		tool TEXT NOT NULL,
		operation TEXT NOT NULL,
		target TEXT,
		status TEXT NOT NULL,
		output TEXT,
		error_message TEXT,
		worker_id TEXT,
		created_at TIMESTAMP NOT NULL,
		started_at TIMESTAMP,
		completed_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS findings (
		id TEXT PRIMARY KEY,
		scan_id TEXT NOT NULL REFERENCES scans(id),
		tool TEXT NOT NULL,
		severity TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		evidence TEXT,
		dedup_hash TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scans_tool ON scans(tool);
	CREATE INDEX IF NOT EXISTS idx_scans_target ON scans(target);
	CREATE INDEX IF NOT EXISTS idx_scans_status ON scans(status);
	CREATE INDEX IF NOT EXISTS idx_scans_created_at ON scans(created_at);
	CREATE INDEX IF NOT EXISTS idx_findings_scan_id ON findings(scan_id);
	CREATE INDEX IF NOT EXISTS idx_findings_severity ON findings(severity);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_findings_dedup ON findings(dedup_hash);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

func (s *sqlStore) SaveScan(ctx context.Context, scan *types.ScanRecord) error {
	query := `
		INSERT INTO scans (
			id, tool, operation, target, status, output,
			error_message, worker_id, created_at, started_at, completed_at
		) VALUES (
			:id, :tool, :operation, :target, :status, :output,
			:error_message, :worker_id, :created_at, :started_at, :completed_at
		)
	`

	if _, err := s.db.NamedExecContext(ctx, query, scan); err != nil {
		return fmt.Errorf("failed to insert scan %s: %w", scan.ID, err)
	}

	s.logger.Debugw("Scan saved",
		"scan_id", scan.ID,
		"tool", scan.Tool,
		"target", scan.Target,
	)
	return nil
}

func (s *sqlStore) UpdateScan(ctx context.Context, scan *types.ScanRecord) error {
	query := `
		UPDATE scans SET
			status = :status,
			output = :output,
			error_message = :error_message,
			worker_id = :worker_id,
			started_at = :started_at,
			completed_at = :completed_at
		WHERE id = :id
	`

	result, err := s.db.NamedExecContext(ctx, query, scan)
	if err != nil {
		return fmt.Errorf("failed to update scan %s: %w", scan.ID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return core.ErrScanNotFound
	}
	return nil
}

func (s *sqlStore) GetScan(ctx context.Context, scanID string) (*types.ScanRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, tool, operation, target, status, output,
		       error_message, worker_id, created_at, started_at, completed_at
		FROM scans WHERE id = %s
	`, s.placeholder(1))

	var scan types.ScanRecord
	if err := s.db.GetContext(ctx, &scan, query, scanID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrScanNotFound
		}
		return nil, err
	}
	return &scan, nil
}

func (s *sqlStore) ListScans(ctx context.Context, filter core.ScanFilter) ([]*types.ScanRecord, error) {
	query := `SELECT id, tool, operation, target, status, output,
	          error_message, worker_id, created_at, started_at, completed_at
	          FROM scans WHERE 1=1`
	args := map[string]interface{}{}

	if filter.Target != "" {
		query += " AND target = :target"
		args["target"] = filter.Target
	}
	if filter.Status != "" {
		query += " AND status = :status"
		args["status"] = filter.Status
	}
	if filter.Tool != "" {
		query += " AND tool = :tool"
		args["tool"] = filter.Tool
	}
	if filter.FromDate != nil {
		query += " AND created_at >= :from_date"
		args["from_date"] = *filter.FromDate
	}
	if filter.ToDate != nil {
		query += " AND created_at <= :to_date"
		args["to_date"] = *filter.ToDate
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scans := []*types.ScanRecord{}
	for rows.Next() {
		var scan types.ScanRecord
		if err := rows.StructScan(&scan); err != nil {
			return nil, err
		}
		scans = append(scans, &scan)
	}
	return scans, rows.Err()
}

func (s *sqlStore) SaveFindings(ctx context.Context, findings []types.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	// Target feeds the dedup hash but is not a findings column, so it
	// is resolved from the owning scan once per batch.
	targets := make(map[string]string)
	for _, f := range findings {
		if _, ok := targets[f.ScanID]; ok {
			continue
		}
		target := ""
		if scan, err := s.GetScan(ctx, f.ScanID); err == nil {
			target = scan.Target
		}
		targets[f.ScanID] = target
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO findings (
			id, scan_id, tool, severity, title, description,
			evidence, dedup_hash, created_at
		) VALUES (
			:id, :scan_id, :tool, :severity, :title, :description,
			:evidence, :dedup_hash, :created_at
		)
	`
	if s.cfg.Driver == "postgres" {
		query += " ON CONFLICT (dedup_hash) DO NOTHING"
	} else {
		query = strings.Replace(query, "INSERT INTO", "INSERT OR IGNORE INTO", 1)
	}

	saved := 0
	for i := range findings {
		f := &findings[i]
		if f.CreatedAt.IsZero() {
			f.CreatedAt = time.Now()
		}
		if f.DedupHash == "" {
			f.DedupHash = DedupHash(f.Tool, targets[f.ScanID], f.Title, f.Evidence)
		}

		result, err := tx.NamedExecContext(ctx, query, f)
		if err != nil {
			return fmt.Errorf("failed to insert finding %s: %w", f.ID, err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			saved++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit findings: %w", err)
	}

	s.logger.Infow("Findings saved",
		"total", len(findings),
		"inserted", saved,
		"deduplicated", len(findings)-saved,
	)
	return nil
}

func (s *sqlStore) GetFindings(ctx context.Context, scanID string) ([]types.Finding, error) {
	query := fmt.Sprintf(`
		SELECT id, scan_id, tool, severity, title, description,
		       evidence, dedup_hash, created_at
		FROM findings WHERE scan_id = %s
		ORDER BY created_at
	`, s.placeholder(1))

	findings := []types.Finding{}
	if err := s.db.SelectContext(ctx, &findings, query, scanID); err != nil {
		return nil, err
	}
	return findings, nil
}

func (s *sqlStore) GetFindingStats(ctx context.Context) (*core.FindingStats, error) {
	stats := &core.FindingStats{
		BySeverity: make(map[types.Severity]int),
		ByTool:     make(map[string]int),
		ByTarget:   make(map[string]int),
	}

	if err := s.db.GetContext(ctx, &stats.Total, `SELECT COUNT(*) FROM findings`); err != nil {
		return nil, err
	}

	type bucket struct {
		Key   string `db:"key"`
		Count int    `db:"count"`
	}

	var bySeverity []bucket
	if err := s.db.SelectContext(ctx, &bySeverity,
		`SELECT severity AS key, COUNT(*) AS count FROM findings GROUP BY severity`); err != nil {
		return nil, err
	}
	for _, b := range bySeverity {
		stats.BySeverity[types.Severity(b.Key)] = b.Count
	}

	var byTool []bucket
	if err := s.db.SelectContext(ctx, &byTool,
		`SELECT tool AS key, COUNT(*) AS count FROM findings GROUP BY tool`); err != nil {
		return nil, err
	}
	for _, b := range byTool {
		stats.ByTool[b.Key] = b.Count
	}

	var byTarget []bucket
	if err := s.db.SelectContext(ctx, &byTarget,
		`SELECT COALESCE(s.target, '') AS key, COUNT(*) AS count
		 FROM findings f JOIN scans s ON s.id = f.scan_id
		 GROUP BY s.target`); err != nil {
		return nil, err
	}
	for _, b := range byTarget {
		if b.Key != "" {
			stats.ByTarget[b.Key] = b.Count
		}
	}

	return stats, nil
}

func (s *sqlStore) SearchFindings(ctx context.Context, searchTerm string, limit int) ([]types.Finding, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT id, scan_id, tool, severity, title, description,
		       evidence, dedup_hash, created_at
		FROM findings
		WHERE title LIKE %s OR description LIKE %s OR evidence LIKE %s
		ORDER BY created_at DESC
		LIMIT %d
	`, s.placeholder(1), s.placeholder(2), s.placeholder(3), limit)

	pattern := "%" + searchTerm + "%"
	findings := []types.Finding{}
	if err := s.db.SelectContext(ctx, &findings, query, pattern, pattern, pattern); err != nil {
		return nil, err
	}
	return findings, nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

// placeholder returns the driver's positional parameter marker.
func (s *sqlStore) placeholder(n int) string {
	if s.cfg.Driver == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// DedupHash fingerprints a finding so the same observation from
// repeated scans is stored once.
func DedupHash(tool, target, title, evidence string) string {
	input := strings.Join([]string{tool, target, title, evidence}, "|")
	return fmt.Sprintf("%x", murmur3.Sum64([]byte(input)))
}
