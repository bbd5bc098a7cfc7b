// Package wcmi is the embedding facade over the training and inference
// engine: a Client owns the run-history store and logger so callers can
// train models, predict simulation parameters, and inspect past runs
// without touching the internal packages.
package wcmi

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"wcmi/internal/engine"
	"wcmi/internal/sim"
	"wcmi/internal/storage"
)

const defaultDBPath = "wcmi.db"

type Options struct {
	StoreKind string
	DBPath    string

	// Logger defaults to a quiet logger when nil.
	Logger *logrus.Logger

	// Info defaults to the built-in wireless charging schema when
	// empty.
	Info sim.Info
}

type Client struct {
	store  storage.Store
	logger *logrus.Logger
	info   sim.Info
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	info := opts.Info
	if len(info.SimInputNames) == 0 {
		info = sim.DefaultInfo()
	}
	if err := info.Validate(); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}

	return &Client{store: store, logger: logger, info: info}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) deps() engine.Deps {
	return engine.Deps{Logger: c.logger, Store: c.store, Info: c.info}
}

// Train runs a full training invocation and records it in the run
// history store.
func (c *Client) Train(ctx context.Context, cfg engine.TrainConfig) error {
	return engine.Train(ctx, cfg, c.deps())
}

// Predict loads a trained model, runs inference over a CSV file, and
// writes the augmented prediction CSV.
func (c *Client) Predict(ctx context.Context, cfg engine.RunConfig) error {
	return engine.Run(ctx, cfg, c.deps())
}

// Generate writes a synthetic placeholder dataset.
func (c *Client) Generate(ctx context.Context, saveDataPath string) error {
	return engine.Generate(ctx, saveDataPath, c.deps())
}

// Runs lists recorded training runs, oldest first.
func (c *Client) Runs(ctx context.Context) ([]storage.TrainingRun, error) {
	return c.store.ListTrainingRuns(ctx)
}

// EpochHistory returns the per-epoch metrics table of a recorded run.
func (c *Client) EpochHistory(ctx context.Context, runID string) (storage.EpochHistory, bool, error) {
	return c.store.GetEpochHistory(ctx, runID)
}
