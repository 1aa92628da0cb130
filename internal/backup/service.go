package backup

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// RepositoryPort abstracts the snapshot reads.
type RepositoryPort interface {
	DumpTable(ctx context.Context, table string) ([]map[string]any, error)
}

// Result describes one written archive.
type Result struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// Service writes gzipped full-table JSON snapshots. The export is a plain
// read, it takes no locks and never interferes with the reconciliation
// pipeline.
type Service struct {
	repo RepositoryPort
	dir  string
	now  func() time.Time
}

// NewService builds Service. dir is created on first run if missing.
func NewService(repo RepositoryPort, dir string) *Service {
	return &Service{repo: repo, dir: dir, now: time.Now}
}

// Run exports every table into a timestamped archive under the backup dir.
func (s *Service) Run(ctx context.Context) (Result, error) {
	now := s.now().UTC()
	payload := map[string]any{
		"generated_at": now.Format(time.RFC3339),
	}
	for _, table := range tables {
		records, err := s.repo.DumpTable(ctx, table)
		if err != nil {
			return Result{}, fmt.Errorf("dump %s: %w", table, err)
		}
		payload[table] = records
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Result{}, err
	}

	id := uuid.NewString()
	name := fmt.Sprintf("backup_%s_%s.json.gz", now.Format("20060102_150405"), id[:8])
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return Result{}, err
	}
	gz := gzip.NewWriter(f)
	enc := json.NewEncoder(gz)
	if err := enc.Encode(payload); err != nil {
		f.Close()
		return Result{}, err
	}
	if err := gz.Close(); err != nil {
		f.Close()
		return Result{}, err
	}
	if err := f.Close(); err != nil {
		return Result{}, err
	}
	return Result{ID: id, Path: path, CreatedAt: now}, nil
}
