package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/CTAG07/Drosera/pkg/chain"
)

// RecordTrajectory folds the consecutive transitions of an observed
// trajectory into the model's persistent count table. The trajectory is
// aggregated in memory first (through chain.CountTransitions, which also
// validates the state range), so each distinct transition costs one upsert
// regardless of trajectory length. The writes happen in one transaction.
func (s *Store) RecordTrajectory(ctx context.Context, model ModelInfo, traj chain.Trajectory) error {
	ct, err := chain.CountTransitions(traj, model.NumStates)
	if err != nil {
		return fmt.Errorf("could not aggregate trajectory: %w", err)
	}
	if ct.Total() == 0 {
		// Trajectories shorter than 2 contribute no transitions.
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	stmtUpsertCount := tx.StmtContext(ctx, s.stmtUpsertCount)
	for i := 0; i < ct.NumStates(); i++ {
		for j := 0; j < ct.NumStates(); j++ {
			c := ct.Count(i, j)
			if c == 0 {
				continue
			}
			if _, err = stmtUpsertCount.ExecContext(ctx, model.Id, i, j, c); err != nil {
				return fmt.Errorf("failed to upsert count (%d -> %d): %w", i, j, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Trajectory recorded",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
		slog.Int("trajectory_length", len(traj)),
		slog.Int("transitions_added", ct.Total()),
	)

	return nil
}

// EmpiricalCounts materializes the model's accumulated transition counts
// back into a chain.CountTable, from which the caller can derive the
// empirical transition-probability estimate.
func (s *Store) EmpiricalCounts(ctx context.Context, model ModelInfo) (*chain.CountTable, error) {
	ct, err := chain.CountTransitions(nil, model.NumStates)
	if err != nil {
		return nil, err
	}

	rows, err := s.stmtGetCounts.QueryContext(ctx, model.Id)
	if err != nil {
		return nil, fmt.Errorf("could not query counts for model %d: %w", model.Id, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	for rows.Next() {
		var origin, dest, freq int
		if err = rows.Scan(&origin, &dest, &freq); err != nil {
			return nil, err
		}
		if err = ct.AddN(origin, dest, freq); err != nil {
			return nil, fmt.Errorf("stored count is inconsistent: %w", err)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return ct, nil
}

// ResetCounts removes all accumulated counts for a model, leaving its
// matrix and labels untouched.
func (s *Store) ResetCounts(ctx context.Context, model ModelInfo) error {
	res, err := s.stmtResetCounts.ExecContext(ctx, model.Id)
	if err != nil {
		return fmt.Errorf("could not reset counts for model %d: %w", model.Id, err)
	}
	rowsAffected, _ := res.RowsAffected()

	s.logger.InfoContext(ctx, "Counts reset",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
		slog.Int64("links_removed", rowsAffected),
	)
	return nil
}

// PruneCounts removes all accumulated transitions for a model with a
// frequency less than or equal to minFreq. This is useful for discarding
// rare, and often noisy, transitions before estimation.
func (s *Store) PruneCounts(ctx context.Context, model ModelInfo, minFreq int) error {
	res, err := s.stmtPruneCounts.ExecContext(ctx, model.Id, minFreq)
	if err != nil {
		return fmt.Errorf("could not prune counts for model %d: %w", model.Id, err)
	}
	rowsAffected, _ := res.RowsAffected()

	s.logger.InfoContext(ctx, "Counts pruned",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
		slog.Int("min_frequency", minFreq),
		slog.Int64("links_removed", rowsAffected),
	)
	return nil
}
