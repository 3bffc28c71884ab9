package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/catalog/internal/model"
)

// createTestStore opens a fresh file-backed store for one test.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// beginTest opens a Tx that is rolled back at cleanup unless committed.
func beginTest(t *testing.T, s *Store) *Tx {
	t.Helper()
	tx, err := s.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	t.Cleanup(func() { tx.Rollback() })
	return tx
}

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestRevision inserts editor 1 and a revision authored by it.
func createTestRevision(t *testing.T, tx *Tx) int64 {
	t.Helper()
	ctx := context.Background()
	if err := tx.EnsureEditor(ctx, 1); err != nil {
		t.Fatalf("EnsureEditor() failed: %v", err)
	}
	id, err := tx.InsertRevision(ctx, 1, testTime, false)
	if err != nil {
		t.Fatalf("InsertRevision() failed: %v", err)
	}
	return id
}

func ptr(v int64) *int64 { return &v }

func redirect(source, target string) model.Redirect {
	return model.Redirect{SourceBBID: source, TargetBBID: target}
}
