package genome

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

const (
	snapshotVersion = 1
	latestName      = "DNA_LATEST.json.zst"
)

// Snapshot is the full exported genome state.
type Snapshot struct {
	Version   int                `json:"version"`
	Reason    string             `json:"reason,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	Genes     []*types.Gene      `json:"genes"`
	Instincts []*types.Instinct  `json:"instincts"`
	Stats     *types.GenomeStats `json:"stats"`
}

// SaveDNA exports the full genome as a zstd compressed JSON snapshot
// named DNA_<timestamp>_<checksum>.json.zst, refreshes the LATEST copy,
// and returns the snapshot path.
func (s *Store) SaveDNA(ctx context.Context, reason string) (string, error) {
	genes, err := s.ListGenes(ctx, "")
	if err != nil {
		return "", fmt.Errorf("export genes: %w", err)
	}
	instincts, err := s.ListInstincts(ctx)
	if err != nil {
		return "", fmt.Errorf("export instincts: %w", err)
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		return "", fmt.Errorf("export stats: %w", err)
	}

	now := time.Now().UTC()
	snap := &Snapshot{
		Version:   snapshotVersion,
		Reason:    reason,
		CreatedAt: now,
		Genes:     genes,
		Instincts: instincts,
		Stats:     stats,
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	sum := sha256.Sum256(raw)
	checksum := hex.EncodeToString(sum[:])[:8]

	compressed, err := compressSnapshot(raw)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.snapshotsDir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshots dir: %w", err)
	}

	name := fmt.Sprintf("DNA_%s_%s.json.zst", now.Format("20060102_150405"), checksum)
	path := filepath.Join(s.snapshotsDir, name)

	if err := os.WriteFile(path, compressed, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.snapshotsDir, latestName), compressed, 0o644); err != nil {
		return "", fmt.Errorf("write latest snapshot: %w", err)
	}

	s.log.Infow("DNA snapshot saved",
		"path", path,
		"genes", len(genes),
		"instincts", len(instincts),
		"bytes", len(compressed),
	)
	return path, nil
}

// LoadDNA reads and decodes the latest snapshot.
func (s *Store) LoadDNA(ctx context.Context) (*Snapshot, error) {
	return s.LoadSnapshot(ctx, filepath.Join(s.snapshotsDir, latestName))
}

// LoadSnapshot reads and decodes one snapshot file.
func (s *Store) LoadSnapshot(ctx context.Context, path string) (*Snapshot, error) {
	raw, err := readCompressed(path)
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", filepath.Base(path), err)
	}
	return &snap, nil
}

// Restore writes a snapshot's genes and instincts back into the store.
// Existing genes are rewritten through the normal mutation path.
func (s *Store) Restore(ctx context.Context, snap *Snapshot) error {
	for _, g := range snap.Genes {
		_, err := s.Mutate(ctx, core.MutateParams{
			Category: g.Category,
			Key:      g.Key,
			Data:     g.Data,
			Reason:   "dna restore",
			Priority: g.Priority,
		})
		if err != nil {
			return fmt.Errorf("restore gene %s_%s: %w", g.Category, g.Key, err)
		}
	}
	for _, inst := range snap.Instincts {
		if _, err := s.AddInstinct(ctx, inst.Trigger, inst.Response, inst.Condition); err != nil {
			return fmt.Errorf("restore instinct %q: %w", inst.Trigger, err)
		}
	}

	s.log.Infow("DNA snapshot restored",
		"genes", len(snap.Genes),
		"instincts", len(snap.Instincts),
	)
	return nil
}

// History lists saved snapshots, newest first. The LATEST copy is not
// its own entry.
func (s *Store) History(ctx context.Context) ([]types.SnapshotInfo, error) {
	entries, err := os.ReadDir(s.snapshotsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var infos []types.SnapshotInfo
	for _, entry := range entries {
		name := entry.Name()
		if name == latestName || !strings.HasPrefix(name, "DNA_") || !strings.HasSuffix(name, ".json.zst") {
			continue
		}

		path := filepath.Join(s.snapshotsDir, name)
		snap, err := s.LoadSnapshot(ctx, path)
		if err != nil {
			s.log.Warnw("Skipping unreadable snapshot", "file", name, "error", err.Error())
			continue
		}

		info := types.SnapshotInfo{
			File:      name,
			Genes:     len(snap.Genes),
			Instincts: len(snap.Instincts),
			CreatedAt: snap.CreatedAt,
		}
		// DNA_<timestamp>_<checksum>.json.zst
		parts := strings.Split(strings.TrimSuffix(name, ".json.zst"), "_")
		if len(parts) == 4 {
			info.Checksum = parts[3]
		}
		if fi, err := entry.Info(); err == nil {
			info.SizeBytes = fi.Size()
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos, nil
}

func compressSnapshot(raw []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("init zstd: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

func readCompressed(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("init zstd reader: %w", err)
	}
	defer dec.Close()

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", filepath.Base(path), err)
	}
	return raw, nil
}
