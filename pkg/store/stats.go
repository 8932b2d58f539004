package store

import (
	"context"
)

// DBStats holds aggregated statistics for the entire database, including a
// list of all models and their individual stats.
type DBStats struct {
	Models []ModelInfo        // A list of models in the database
	Stats  map[int]ModelStats // A mapping of model ids to their stats
}

// ModelStats holds aggregated statistics for a single stored model.
type ModelStats struct {
	TotalLinks    int // The number of distinct origin->dest transitions observed.
	TotalObserved int // The sum of frequencies of all links; the total number of recorded transitions.
}

// GetStats returns a snapshot of statistics for the entire database,
// including the model list and per-model counts.
func (s *Store) GetStats(ctx context.Context) (*DBStats, error) {
	modelInfos, err := s.GetModelInfos(ctx)
	if err != nil {
		return nil, err
	}

	models := make([]ModelInfo, 0)
	modelStats := make(map[int]ModelStats)
	for _, v := range modelInfos {
		models = append(models, v)
		var totalLinks, totalObserved int
		err = s.stmtCountLinks.QueryRowContext(ctx, v.Id).Scan(&totalLinks)
		if err != nil {
			return nil, err
		}
		err = s.stmtTotalObserved.QueryRowContext(ctx, v.Id).Scan(&totalObserved)
		if err != nil {
			return nil, err
		}
		modelStats[v.Id] = ModelStats{
			TotalLinks:    totalLinks,
			TotalObserved: totalObserved,
		}
	}

	return &DBStats{
		Models: models,
		Stats:  modelStats,
	}, nil
}
