package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/CTAG07/Drosera/pkg/chain"
	"github.com/CTAG07/Drosera/pkg/store"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Analysis run failed.", "error", err)
		os.Exit(1)
	}
}

// run loads the configuration, wires the store and the chain core
// together, and renders the analysis tables to stdout. Any failure,
// including an invalid transition matrix, halts the run; a malformed
// matrix is a modeling error that has to be fixed at the source.
func run() error {
	config, err := LoadConfig("./config.json")
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	var logLevel slog.Level
	switch strings.ToLower(config.LogLevel) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	logger.Info("Drosera starting.", "version", Version, "commit", Commit, "build_date", BuildDate)

	if dir := filepath.Dir(strings.SplitN(config.DatabasePath, "?", 2)[0]); dir != "." {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := initDB(config.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func(db *sql.DB) {
		_ = db.Close()
	}(db)

	if err = store.SetupSchema(db); err != nil {
		return fmt.Errorf("failed to set up schema: %w", err)
	}
	st, err := store.New(db)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer st.Close()
	st.SetLogger(logger)

	return analyze(context.Background(), logger, st, config.Analysis)
}

// analyze runs the full pipeline for one configured chain: validate and
// persist the matrix, solve for the stationary distribution, propagate the
// starting distribution, sample a trajectory, fold it into the persistent
// counts, and print the resulting tables.
func analyze(ctx context.Context, logger *slog.Logger, st *store.Store, cfg *AnalysisConfig) error {
	var opts []chain.MatrixOption
	if cfg.Labels != nil {
		opts = append(opts, chain.WithLabels(cfg.Labels))
	}
	m, err := chain.NewTransitionMatrix(cfg.Matrix, opts...)
	if err != nil {
		return fmt.Errorf("configured matrix is invalid: %w", err)
	}

	info, err := st.GetModelInfo(ctx, cfg.ModelName)
	if errors.Is(err, sql.ErrNoRows) {
		info, err = st.InsertModel(ctx, cfg.ModelName, m)
		if err != nil {
			return fmt.Errorf("failed to store model: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to look up model: %w", err)
	} else if info.NumStates != m.NumStates() {
		return fmt.Errorf("stored model '%s' has %d states, config has %d; rename the model or remove the old one",
			cfg.ModelName, info.NumStates, m.NumStates())
	}

	out := os.Stdout
	printMatrix(out, "Transition matrix", m, func(i, j int) float64 {
		p, _ := m.Prob(i, j)
		return p
	})

	pi, err := chain.Stationary(m)
	if err != nil {
		return fmt.Errorf("stationary solve failed: %w", err)
	}
	printVector(out, "Stationary distribution", m, pi)
	if cfg.KT > 0 {
		printVector(out, fmt.Sprintf("Free energy (kT = %g)", cfg.KT), m, chain.FreeEnergy(pi, cfg.KT))
	}

	trace, err := chain.Propagate(m, cfg.PropagateSteps)
	if err != nil {
		return fmt.Errorf("propagation failed: %w", err)
	}
	printVector(out, fmt.Sprintf("Propagated distribution after %d steps", cfg.PropagateSteps), m, trace[len(trace)-1])

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	traj, err := chain.Sample(m, cfg.SampleSteps, rng)
	if err != nil {
		return fmt.Errorf("sampling failed: %w", err)
	}
	logger.Info("Trajectory sampled.", "model_name", cfg.ModelName, "steps", cfg.SampleSteps, "seed", cfg.Seed)

	if err = st.RecordTrajectory(ctx, info, traj); err != nil {
		return fmt.Errorf("failed to record trajectory: %w", err)
	}
	ct, err := st.EmpiricalCounts(ctx, info)
	if err != nil {
		return fmt.Errorf("failed to load empirical counts: %w", err)
	}
	te := ct.Probabilities()
	printMatrix(out, fmt.Sprintf("Empirical transition estimate (%d recorded transitions)", ct.Total()), m, te.Prob)

	// Lag-2 conditioned estimates from this run's trajectory; if the chain
	// is order-1, these agree with the unconditioned estimate for every
	// history.
	tables, err := chain.CountConditioned(traj, m.NumStates())
	if err != nil {
		return fmt.Errorf("conditioned counting failed: %w", err)
	}
	for k := 0; k < m.NumStates(); k++ {
		table, ok := tables[k]
		if !ok {
			continue
		}
		cond := table.Probabilities()
		printMatrix(out, fmt.Sprintf("Transition estimate conditioned on previous state %s", m.Label(k)), m, cond.Prob)
	}

	stats, err := st.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	for _, model := range stats.Models {
		ms := stats.Stats[model.Id]
		logger.Info("Stored model.",
			"model_name", model.Name,
			"num_states", model.NumStates,
			"distinct_links", ms.TotalLinks,
			"total_observed", ms.TotalObserved)
	}

	return nil
}
