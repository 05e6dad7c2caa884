// Package genome persists learned behavior: genes with success ratios
// and a mutation log, plus instinct shortcuts for recurring queries.
// Storage is SQLite in WAL mode so concurrent readers never block the
// single writer.
package genome

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/logger"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

const (
	initialSuccessRate = 0.5
	successStep        = 0.05
	failureStep        = 0.10

	// Optimize removes genes that are stale, failing, and unused.
	optimizeMaxAge   = 90 * 24 * time.Hour
	optimizeMaxRate  = 0.1
	optimizeMaxUsage = 3

	// Evolve removes low priority genes that keep failing despite use.
	evolveMaxPriority = 50
	evolveMaxRate     = 0.3
	evolveMinUsage    = 10
)

// Store implements core.GenomeStore on SQLite.
type Store struct {
	db      *sql.DB
	path    string
	log     *logger.Logger
	mu      sync.Mutex
	entropy *rand.Rand

	snapshotsDir string
}

var _ core.GenomeStore = (*Store)(nil)

func New(cfg config.GenomeConfig, log *logger.Logger) (*Store, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create genome dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open genome db: %w", err)
	}
	// SQLite has a single writer; one pooled connection keeps concurrent
	// read-then-write transactions off stale WAL snapshots.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:           db,
		path:         cfg.DBPath,
		log:          log.WithComponent("genome"),
		entropy:      rand.New(rand.NewSource(time.Now().UnixNano())),
		snapshotsDir: cfg.SnapshotsDir,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate genome db: %w", err)
	}
	return s, nil
}

func (s *Store) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS genes (
		id           TEXT PRIMARY KEY,
		category     TEXT NOT NULL,
		key          TEXT NOT NULL,
		data         TEXT NOT NULL,
		priority     INTEGER NOT NULL,
		usage_count  INTEGER NOT NULL DEFAULT 0,
		success_rate REAL NOT NULL DEFAULT 0.5,
		mutations    INTEGER NOT NULL DEFAULT 0,
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL,
		UNIQUE (category, key)
	);
	CREATE INDEX IF NOT EXISTS idx_genes_category ON genes(category);
	CREATE INDEX IF NOT EXISTS idx_genes_priority ON genes(priority DESC);

	CREATE TABLE IF NOT EXISTS mutations (
		id         TEXT PRIMARY KEY,
		gene_id    TEXT NOT NULL REFERENCES genes(id) ON DELETE CASCADE,
		old_data   TEXT,
		new_data   TEXT NOT NULL,
		reason     TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_mutations_gene ON mutations(gene_id);

	CREATE TABLE IF NOT EXISTS instincts (
		id            TEXT PRIMARY KEY,
		trigger       TEXT NOT NULL UNIQUE,
		response      TEXT NOT NULL,
		condition     TEXT,
		trigger_count INTEGER NOT NULL DEFAULT 0,
		success_rate  REAL NOT NULL DEFAULT 0.5,
		enabled       INTEGER NOT NULL DEFAULT 1,
		created_at    TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Mutate inserts a gene or rewrites an existing one's data, bumping the
// mutation counter and appending a log row in the same transaction.
// Usage statistics survive rewrites.
func (s *Store) Mutate(ctx context.Context, p core.MutateParams) (*types.Gene, error) {
	if p.Key == "" {
		return nil, fmt.Errorf("gene key is empty")
	}
	if p.Category == "" {
		p.Category = "knowledge"
	}

	priority := p.Priority
	if priority <= 0 {
		priority = types.GenePriority(p.Category)
	}

	dataJSON, err := json.Marshal(p.Data)
	if err != nil {
		return nil, fmt.Errorf("encode gene data: %w", err)
	}

	now := time.Now().UTC()
	nowStr := now.Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var (
		existingID  string
		oldData     string
		usageCount  int
		successRate float64
		mutCount    int
		createdAt   string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, data, usage_count, success_rate, mutations, created_at
		 FROM genes WHERE category = ? AND key = ?`,
		p.Category, p.Key).Scan(&existingID, &oldData, &usageCount, &successRate, &mutCount, &createdAt)

	gene := &types.Gene{
		Category:    p.Category,
		Key:         p.Key,
		Data:        p.Data,
		Priority:    priority,
		SuccessRate: initialSuccessRate,
		UpdatedAt:   now,
	}

	switch {
	case err == sql.ErrNoRows:
		gene.ID = s.newID()
		gene.CreatedAt = now
		_, err = tx.ExecContext(ctx,
			`INSERT INTO genes (id, category, key, data, priority, usage_count, success_rate, mutations, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, 0, ?, 0, ?, ?)`,
			gene.ID, p.Category, p.Key, string(dataJSON), priority, initialSuccessRate, nowStr, nowStr)
		if err != nil {
			return nil, fmt.Errorf("insert gene: %w", err)
		}
	case err != nil:
		return nil, err
	default:
		gene.ID = existingID
		gene.UsageCount = usageCount
		gene.SuccessRate = successRate
		gene.Mutations = mutCount + 1
		gene.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		_, err = tx.ExecContext(ctx,
			`UPDATE genes SET data = ?, priority = ?, mutations = mutations + 1, updated_at = ? WHERE id = ?`,
			string(dataJSON), priority, nowStr, existingID)
		if err != nil {
			return nil, fmt.Errorf("update gene: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO mutations (id, gene_id, old_data, new_data, reason, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			s.newID(), existingID, oldData, string(dataJSON), p.Reason, nowStr)
		if err != nil {
			return nil, fmt.Errorf("insert mutation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.log.Debugw("Gene mutated",
		"category", p.Category,
		"key", p.Key,
		"mutations", gene.Mutations,
	)
	return gene, nil
}

func (s *Store) GetGene(ctx context.Context, category, key string) (*types.Gene, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, category, key, data, priority, usage_count, success_rate, mutations, created_at, updated_at
		 FROM genes WHERE category = ? AND key = ?`, category, key)

	gene, err := scanGene(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("gene %s_%s: %w", category, key, core.ErrGeneNotFound)
	}
	if err != nil {
		return nil, err
	}
	return gene, nil
}

func (s *Store) ListGenes(ctx context.Context, category string) ([]*types.Gene, error) {
	query := `SELECT id, category, key, data, priority, usage_count, success_rate, mutations, created_at, updated_at
	          FROM genes`
	var args []interface{}
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY priority DESC, key`

	return s.queryGenes(ctx, query, args...)
}

// FindGenes filters by category, minimum priority, and tags. Tags match
// against the data JSON, so a gene tagged ["fast"] in its data is found
// by tags=["fast"].
func (s *Store) FindGenes(ctx context.Context, category string, minPriority int, tags []string) ([]*types.Gene, error) {
	where := []string{"priority >= ?"}
	args := []interface{}{minPriority}

	if category != "" {
		where = append(where, "category = ?")
		args = append(args, category)
	}
	for _, tag := range tags {
		where = append(where, "data LIKE ?")
		args = append(args, `%"`+tag+`"%`)
	}

	query := fmt.Sprintf(
		`SELECT id, category, key, data, priority, usage_count, success_rate, mutations, created_at, updated_at
		 FROM genes WHERE %s ORDER BY priority DESC, success_rate DESC`,
		strings.Join(where, " AND "))

	return s.queryGenes(ctx, query, args...)
}

func (s *Store) BestGenes(ctx context.Context, limit int) ([]*types.Gene, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.queryGenes(ctx,
		`SELECT id, category, key, data, priority, usage_count, success_rate, mutations, created_at, updated_at
		 FROM genes ORDER BY priority DESC, success_rate DESC LIMIT ?`, limit)
}

func (s *Store) RecordSuccess(ctx context.Context, category, key string) error {
	return s.recordOutcome(ctx, category, key,
		`UPDATE genes SET usage_count = usage_count + 1,
		        success_rate = MIN(1.0, success_rate + ?), updated_at = ?
		 WHERE category = ? AND key = ?`, successStep)
}

func (s *Store) RecordFailure(ctx context.Context, category, key string) error {
	return s.recordOutcome(ctx, category, key,
		`UPDATE genes SET usage_count = usage_count + 1,
		        success_rate = MAX(0.0, success_rate - ?), updated_at = ?
		 WHERE category = ? AND key = ?`, failureStep)
}

func (s *Store) recordOutcome(ctx context.Context, category, key, query string, step float64) error {
	res, err := s.db.ExecContext(ctx, query, step, time.Now().UTC().Format(time.RFC3339), category, key)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("gene %s_%s: %w", category, key, core.ErrGeneNotFound)
	}
	return nil
}

// Optimize deletes genes older than 90 days that keep failing and were
// barely used. Returns how many were removed.
func (s *Store) Optimize(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-optimizeMaxAge).Format(time.RFC3339)

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM genes WHERE created_at < ? AND success_rate < ? AND usage_count < ?`,
		cutoff, optimizeMaxRate, optimizeMaxUsage)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if affected > 0 {
		s.log.Infow("Genome optimized", "removed", affected)
	}
	return int(affected), nil
}

// Evolve deletes low priority genes that keep failing despite real use,
// and returns their identities.
func (s *Store) Evolve(ctx context.Context) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT category, key FROM genes WHERE priority < ? AND success_rate < ? AND usage_count > ?`,
		evolveMaxPriority, evolveMaxRate, evolveMinUsage)
	if err != nil {
		return nil, err
	}

	var removed []string
	for rows.Next() {
		var category, key string
		if err := rows.Scan(&category, &key); err != nil {
			rows.Close()
			return nil, err
		}
		removed = append(removed, category+"_"+key)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(removed) == 0 {
		return nil, tx.Commit()
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM genes WHERE priority < ? AND success_rate < ? AND usage_count > ?`,
		evolveMaxPriority, evolveMaxRate, evolveMinUsage)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.log.Infow("Genome evolved", "removed", len(removed))
	return removed, nil
}

func (s *Store) Stats(ctx context.Context) (*types.GenomeStats, error) {
	stats := &types.GenomeStats{ByCategory: make(map[string]int)}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM genes`).Scan(&stats.TotalGenes); err != nil {
		return nil, err
	}
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM instincts`).Scan(&stats.TotalInstincts)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mutations`).Scan(&stats.TotalMutations)
	s.db.QueryRowContext(ctx, `SELECT COALESCE(AVG(success_rate), 0) FROM genes`).Scan(&stats.AvgSuccessRate)

	rows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM genes GROUP BY category ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		stats.ByCategory[category] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	used, err := s.queryGenes(ctx,
		`SELECT id, category, key, data, priority, usage_count, success_rate, mutations, created_at, updated_at
		 FROM genes WHERE usage_count > 0 ORDER BY usage_count DESC LIMIT 5`)
	if err != nil {
		return nil, err
	}
	for _, g := range used {
		stats.MostUsed = append(stats.MostUsed, g.Category+"_"+g.Key)
	}

	return stats, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) queryGenes(ctx context.Context, query string, args ...interface{}) ([]*types.Gene, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var genes []*types.Gene
	for rows.Next() {
		gene, err := scanGene(rows)
		if err != nil {
			return nil, err
		}
		genes = append(genes, gene)
	}
	return genes, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanGene(row scanner) (*types.Gene, error) {
	var g types.Gene
	var dataJSON, createdAt, updatedAt string

	err := row.Scan(&g.ID, &g.Category, &g.Key, &dataJSON, &g.Priority,
		&g.UsageCount, &g.SuccessRate, &g.Mutations, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if dataJSON != "" {
		json.Unmarshal([]byte(dataJSON), &g.Data)
	}
	g.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	g.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &g, nil
}
