package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/CTAG07/Drosera/pkg/chain"
)

// setupTestDB creates a new SQLite database in a temp directory and a
// Store for testing. It uses t.Cleanup to ensure resources are released.
func setupTestDB(t *testing.T) (*sql.DB, *Store) {
	t.Helper()
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", dbFile+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	s, err := New(db)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(s.Close)

	return db, s
}

// testMatrix builds the 3-state reference matrix used across the store tests.
func testMatrix(t *testing.T) *chain.TransitionMatrix {
	t.Helper()
	m, err := chain.NewTransitionMatrix([][]float64{
		{0.6, 0.3, 0.1},
		{0.2, 0.3, 0.5},
		{0.4, 0.1, 0.5},
	}, chain.WithLabels([]string{"open", "loose", "closed"}))
	if err != nil {
		t.Fatalf("NewTransitionMatrix() failed: %v", err)
	}
	return m
}

// setupTestDBWithModel is a convenience helper that also stores the
// reference model.
func setupTestDBWithModel(t *testing.T) (context.Context, *Store, ModelInfo) {
	t.Helper()
	_, s := setupTestDB(t)
	ctx := context.Background()

	info, err := s.InsertModel(ctx, "test_model", testMatrix(t))
	if err != nil {
		t.Fatalf("setup: InsertModel() failed: %v", err)
	}
	return ctx, s, info
}
