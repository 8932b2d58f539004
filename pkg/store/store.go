package store

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
)

// SetupSchema initializes the tables used by this package in the provided
// database. It should be called once on a new database before any other
// operation. It is idempotent and safe to call on an already-initialized
// database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaModels = `
CREATE TABLE IF NOT EXISTS chain_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    num_states INTEGER NOT NULL
);
`
		schemaMatrix = `
CREATE TABLE IF NOT EXISTS chain_matrix (
    model_id INTEGER NOT NULL,
    row INTEGER NOT NULL,
    col INTEGER NOT NULL,
    prob REAL NOT NULL,
    PRIMARY KEY (model_id, row, col)
);
`
		schemaLabels = `
CREATE TABLE IF NOT EXISTS chain_labels (
    model_id INTEGER NOT NULL,
    state INTEGER NOT NULL,
    label TEXT NOT NULL,
    PRIMARY KEY (model_id, state)
);
`
		schemaCounts = `
CREATE TABLE IF NOT EXISTS chain_counts (
    model_id INTEGER NOT NULL,
    origin INTEGER NOT NULL,
    dest INTEGER NOT NULL,
    frequency INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (model_id, origin, dest)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	// If the transaction succeeds, tx.Commit() runs first and this rollback
	// is a no-op. If it fails, this cleans up.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	for _, schema := range []string{schemaModels, schemaMatrix, schemaLabels, schemaCounts} {
		if _, err = tx.Exec(schema); err != nil {
			return fmt.Errorf("could not create schema: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Store is the entry point for persisting chain models and empirical
// transition counts. It holds the database connection and prepared SQL
// statements for the hot paths.
type Store struct {
	db                *sql.DB
	stmtGetModelInfo  *sql.Stmt
	stmtGetModels     *sql.Stmt
	stmtAddModel      *sql.Stmt
	stmtInsertProb    *sql.Stmt
	stmtInsertLabel   *sql.Stmt
	stmtGetMatrix     *sql.Stmt
	stmtGetLabels     *sql.Stmt
	stmtUpsertCount   *sql.Stmt
	stmtGetCounts     *sql.Stmt
	stmtResetCounts   *sql.Stmt
	stmtPruneCounts   *sql.Stmt
	stmtCountLinks    *sql.Stmt
	stmtTotalObserved *sql.Stmt
	logger            *slog.Logger
}

// New creates a Store on top of db, pre-compiling all SQL statements. The
// schema must already exist (see SetupSchema).
func New(db *sql.DB) (*Store, error) {
	stmtGetModelInfo, err := db.Prepare(`SELECT model_id, num_states FROM chain_models WHERE model_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetModels, err := db.Prepare(`SELECT model_id, model_name, num_states FROM chain_models;`)
	if err != nil {
		return nil, err
	}

	stmtAddModel, err := db.Prepare(`INSERT INTO chain_models (model_name, num_states) VALUES (?, ?);`)
	if err != nil {
		return nil, err
	}

	stmtInsertProb, err := db.Prepare(`INSERT INTO chain_matrix (model_id, row, col, prob) VALUES (?, ?, ?, ?);`)
	if err != nil {
		return nil, err
	}

	stmtInsertLabel, err := db.Prepare(`INSERT INTO chain_labels (model_id, state, label) VALUES (?, ?, ?);`)
	if err != nil {
		return nil, err
	}

	stmtGetMatrix, err := db.Prepare(`SELECT row, col, prob FROM chain_matrix WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetLabels, err := db.Prepare(`SELECT state, label FROM chain_labels WHERE model_id = ? ORDER BY state;`)
	if err != nil {
		return nil, err
	}

	stmtUpsertCount, err := db.Prepare(`INSERT INTO chain_counts (model_id, origin, dest, frequency) VALUES (?, ?, ?, ?) ON CONFLICT(model_id, origin, dest) DO UPDATE SET frequency = frequency + excluded.frequency;`)
	if err != nil {
		return nil, err
	}

	stmtGetCounts, err := db.Prepare(`SELECT origin, dest, frequency FROM chain_counts WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtResetCounts, err := db.Prepare(`DELETE FROM chain_counts WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtPruneCounts, err := db.Prepare(`DELETE FROM chain_counts WHERE model_id = ? AND frequency <= ?;`)
	if err != nil {
		return nil, err
	}

	stmtCountLinks, err := db.Prepare(`SELECT COUNT(*) FROM chain_counts WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtTotalObserved, err := db.Prepare(`SELECT coalesce(SUM(frequency), 0) FROM chain_counts WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:                db,
		stmtGetModelInfo:  stmtGetModelInfo,
		stmtGetModels:     stmtGetModels,
		stmtAddModel:      stmtAddModel,
		stmtInsertProb:    stmtInsertProb,
		stmtInsertLabel:   stmtInsertLabel,
		stmtGetMatrix:     stmtGetMatrix,
		stmtGetLabels:     stmtGetLabels,
		stmtUpsertCount:   stmtUpsertCount,
		stmtGetCounts:     stmtGetCounts,
		stmtResetCounts:   stmtResetCounts,
		stmtPruneCounts:   stmtPruneCounts,
		stmtCountLinks:    stmtCountLinks,
		stmtTotalObserved: stmtTotalObserved,
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared SQL statements held by the Store. It should
// be called when the Store is no longer needed. The database connection
// itself belongs to the caller and is left open.
func (s *Store) Close() {
	_ = s.stmtGetModelInfo.Close()
	_ = s.stmtGetModels.Close()
	_ = s.stmtAddModel.Close()
	_ = s.stmtInsertProb.Close()
	_ = s.stmtInsertLabel.Close()
	_ = s.stmtGetMatrix.Close()
	_ = s.stmtGetLabels.Close()
	_ = s.stmtUpsertCount.Close()
	_ = s.stmtGetCounts.Close()
	_ = s.stmtResetCounts.Close()
	_ = s.stmtPruneCounts.Close()
	_ = s.stmtCountLinks.Close()
	_ = s.stmtTotalObserved.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are
// discarded. Providing a log/slog.Logger enables logging for trajectory
// recording, pruning, import and export.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}
