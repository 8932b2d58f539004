package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/CTAG07/Drosera/pkg/chain"
)

// ModelInfo holds the essential metadata for a stored chain model: its
// unique ID, name, and number of states.
type ModelInfo struct {
	Id        int
	Name      string
	NumStates int
}

// ExportedModel is the serializable representation of a stored model, used
// for JSON-based import and export.
type ExportedModel struct {
	Name      string          `json:"name"`
	NumStates int             `json:"num_states"`
	Labels    []string        `json:"labels,omitempty"`
	Matrix    [][]float64     `json:"matrix"`
	Counts    []ExportedCount `json:"counts,omitempty"`
}

// ExportedCount is one accumulated empirical transition within an
// ExportedModel.
type ExportedCount struct {
	Origin    int `json:"origin"`
	Dest      int `json:"dest"`
	Frequency int `json:"frequency"`
}

// GetModelInfos retrieves metadata for all models currently in the
// database, returned in a map keyed by model name.
func (s *Store) GetModelInfos(ctx context.Context) (map[string]ModelInfo, error) {
	rows, err := s.stmtGetModels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	models := make(map[string]ModelInfo)
	for rows.Next() {
		var model ModelInfo
		if err = rows.Scan(&model.Id, &model.Name, &model.NumStates); err != nil {
			return nil, err
		}
		models[model.Name] = model
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return models, nil
}

// GetModelInfo retrieves the metadata for a single model specified by
// name. If multiple models are needed, GetModelInfos is more efficient.
func (s *Store) GetModelInfo(ctx context.Context, modelName string) (ModelInfo, error) {
	var modelId, numStates int
	err := s.stmtGetModelInfo.QueryRowContext(ctx, modelName).Scan(&modelId, &numStates)
	if err != nil {
		return ModelInfo{}, err
	}
	return ModelInfo{
		Id:        modelId,
		Name:      modelName,
		NumStates: numStates,
	}, nil
}

// InsertModel stores a validated transition matrix under the given name
// and returns the resulting model metadata. Only nonzero probabilities are
// written; LoadMatrix fills the gaps with zeros. The operation is
// performed within a transaction.
func (s *Store) InsertModel(ctx context.Context, name string, m *chain.TransitionMatrix) (ModelInfo, error) {
	n := m.NumStates()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ModelInfo{}, err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	res, err := tx.StmtContext(ctx, s.stmtAddModel).ExecContext(ctx, name, n)
	if err != nil {
		return ModelInfo{}, fmt.Errorf("failed to insert model '%s': %w", name, err)
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return ModelInfo{}, err
	}
	modelID := int(newID)

	stmtInsertProb := tx.StmtContext(ctx, s.stmtInsertProb)
	for i := 0; i < n; i++ {
		row, err := m.Row(i)
		if err != nil {
			return ModelInfo{}, err
		}
		for j, p := range row {
			if p == 0 {
				continue
			}
			if _, err = stmtInsertProb.ExecContext(ctx, modelID, i, j, p); err != nil {
				return ModelInfo{}, fmt.Errorf("failed to insert probability (%d,%d): %w", i, j, err)
			}
		}
	}

	if labels := m.Labels(); labels != nil {
		stmtInsertLabel := tx.StmtContext(ctx, s.stmtInsertLabel)
		for i, label := range labels {
			if _, err = stmtInsertLabel.ExecContext(ctx, modelID, i, label); err != nil {
				return ModelInfo{}, fmt.Errorf("failed to insert label for state %d: %w", i, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return ModelInfo{}, err
	}

	s.logger.InfoContext(ctx, "Model stored",
		slog.String("model_name", name),
		slog.Int("model_id", modelID),
		slog.Int("num_states", n),
	)

	return ModelInfo{Id: modelID, Name: name, NumStates: n}, nil
}

// RemoveModel deletes a model, its matrix and labels, and all of its
// accumulated counts from the database. The operation is performed within
// a transaction.
func (s *Store) RemoveModel(ctx context.Context, model ModelInfo) error {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, "DELETE FROM chain_counts WHERE model_id = ?", model.Id); err != nil {
		return fmt.Errorf("failed to remove counts for model %d: %w", model.Id, err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM chain_labels WHERE model_id = ?", model.Id); err != nil {
		return fmt.Errorf("failed to remove labels for model %d: %w", model.Id, err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM chain_matrix WHERE model_id = ?", model.Id); err != nil {
		return fmt.Errorf("failed to remove matrix for model %d: %w", model.Id, err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM chain_models WHERE model_id = ?", model.Id); err != nil {
		return fmt.Errorf("failed to remove model %d: %w", model.Id, err)
	}

	s.logger.InfoContext(ctx, "Model removed successfully",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
	)

	return tx.Commit()
}

// LoadMatrix rebuilds the stored transition matrix for a model. The rows
// are passed back through chain.NewTransitionMatrix, so a matrix that was
// corrupted in storage fails validation here rather than misbehaving
// downstream.
func (s *Store) LoadMatrix(ctx context.Context, model ModelInfo) (*chain.TransitionMatrix, error) {
	raw := make([][]float64, model.NumStates)
	for i := range raw {
		raw[i] = make([]float64, model.NumStates)
	}

	rows, err := s.stmtGetMatrix.QueryContext(ctx, model.Id)
	if err != nil {
		return nil, fmt.Errorf("could not query matrix for model %d: %w", model.Id, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	for rows.Next() {
		var i, j int
		var p float64
		if err = rows.Scan(&i, &j, &p); err != nil {
			return nil, err
		}
		if i < 0 || i >= model.NumStates || j < 0 || j >= model.NumStates {
			return nil, fmt.Errorf("%w: stored entry (%d,%d) outside [0,%d)", chain.ErrInvalidMatrix, i, j, model.NumStates)
		}
		raw[i][j] = p
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	labels, err := s.loadLabels(ctx, model)
	if err != nil {
		return nil, err
	}

	var opts []chain.MatrixOption
	if labels != nil {
		opts = append(opts, chain.WithLabels(labels))
	}
	return chain.NewTransitionMatrix(raw, opts...)
}

// loadLabels returns the stored state labels for a model, or nil when the
// model was stored without labels.
func (s *Store) loadLabels(ctx context.Context, model ModelInfo) ([]string, error) {
	rows, err := s.stmtGetLabels.QueryContext(ctx, model.Id)
	if err != nil {
		return nil, fmt.Errorf("could not query labels for model %d: %w", model.Id, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var labels []string
	for rows.Next() {
		var state int
		var label string
		if err = rows.Scan(&state, &label); err != nil {
			return nil, err
		}
		if state != len(labels) {
			return nil, fmt.Errorf("%w: label rows for model %d are not contiguous", chain.ErrInvalidMatrix, model.Id)
		}
		labels = append(labels, label)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if labels != nil && len(labels) != model.NumStates {
		return nil, fmt.Errorf("%w: got %d labels for %d states", chain.ErrInvalidMatrix, len(labels), model.NumStates)
	}
	return labels, nil
}

// ExportModel serializes a stored model, including its accumulated counts,
// into JSON and writes it to the provided io.Writer. This is useful for
// backups or for transferring models between databases.
func (s *Store) ExportModel(ctx context.Context, model ModelInfo, w io.Writer) error {
	m, err := s.LoadMatrix(ctx, model)
	if err != nil {
		return fmt.Errorf("could not load matrix for export: %w", err)
	}

	raw := make([][]float64, model.NumStates)
	for i := range raw {
		row, err := m.Row(i)
		if err != nil {
			return err
		}
		raw[i] = row
	}

	ct, err := s.EmpiricalCounts(ctx, model)
	if err != nil {
		return fmt.Errorf("could not load counts for export: %w", err)
	}
	var counts []ExportedCount
	for i := 0; i < ct.NumStates(); i++ {
		for j := 0; j < ct.NumStates(); j++ {
			if c := ct.Count(i, j); c > 0 {
				counts = append(counts, ExportedCount{Origin: i, Dest: j, Frequency: c})
			}
		}
	}

	exported := ExportedModel{
		Name:      model.Name,
		NumStates: model.NumStates,
		Labels:    m.Labels(),
		Matrix:    raw,
		Counts:    counts,
	}

	s.logger.InfoContext(ctx, "Model exported",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
		slog.Int("counts_exported", len(counts)),
	)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exported)
}

// ImportModel reads a JSON representation of a model from an io.Reader and
// merges its data into the database. If the model name already exists with
// the same dimensions, the imported counts are merged with the existing
// counts (frequencies are added) and the stored matrix is kept. If the
// model does not exist, it is created, matrix included. A dimension
// mismatch with an existing model is an error.
func (s *Store) ImportModel(ctx context.Context, r io.Reader) (ModelInfo, error) {
	var imported ExportedModel
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return ModelInfo{}, fmt.Errorf("failed to decode json model: %w", err)
	}

	info, err := s.GetModelInfo(ctx, imported.Name)
	if errors.Is(err, sql.ErrNoRows) {
		var opts []chain.MatrixOption
		if imported.Labels != nil {
			opts = append(opts, chain.WithLabels(imported.Labels))
		}
		m, err := chain.NewTransitionMatrix(imported.Matrix, opts...)
		if err != nil {
			return ModelInfo{}, fmt.Errorf("imported matrix for '%s' is invalid: %w", imported.Name, err)
		}
		info, err = s.InsertModel(ctx, imported.Name, m)
		if err != nil {
			return ModelInfo{}, err
		}
	} else if err != nil {
		return ModelInfo{}, fmt.Errorf("failed to query for model '%s': %w", imported.Name, err)
	} else if info.NumStates != imported.NumStates {
		return ModelInfo{}, fmt.Errorf("%w: import has %d states, stored model '%s' has %d",
			chain.ErrInvalidArgument, imported.NumStates, imported.Name, info.NumStates)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ModelInfo{}, fmt.Errorf("could not begin transaction for import: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	stmtUpsertCount := tx.StmtContext(ctx, s.stmtUpsertCount)
	for _, c := range imported.Counts {
		if c.Origin < 0 || c.Origin >= info.NumStates || c.Dest < 0 || c.Dest >= info.NumStates {
			return ModelInfo{}, fmt.Errorf("%w: imported count (%d,%d) outside [0,%d)",
				chain.ErrInvalidArgument, c.Origin, c.Dest, info.NumStates)
		}
		if c.Frequency <= 0 {
			continue
		}
		if _, err = stmtUpsertCount.ExecContext(ctx, info.Id, c.Origin, c.Dest, c.Frequency); err != nil {
			return ModelInfo{}, fmt.Errorf("failed to merge count (%d -> %d): %w", c.Origin, c.Dest, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return ModelInfo{}, err
	}

	s.logger.InfoContext(ctx, "Model imported successfully",
		slog.String("model_name", imported.Name),
		slog.Int("target_model_id", info.Id),
		slog.Int("counts_merged", len(imported.Counts)),
	)

	return info, nil
}
