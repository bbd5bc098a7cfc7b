package storage

import (
	"context"
	"time"
)

// VersionedRecord tags persisted payloads so incompatible schemas are
// rejected on decode instead of silently misread.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

func NewVersionedRecord() VersionedRecord {
	return VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

// TrainingRun summarizes one completed train invocation.
type TrainingRun struct {
	VersionedRecord

	ID           string    `json:"id"`
	ModelKind    string    `json:"model_kind"`
	NumEpochs    int       `json:"num_epochs"`
	BatchSize    int       `json:"batch_size"`
	LearningRate float64   `json:"learning_rate"`
	GanN         int       `json:"gan_n"`
	NumSamples   int       `json:"num_samples"`
	DataPath     string    `json:"data_path"`
	ModelPath    string    `json:"model_path"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// EpochHistory is the per-epoch metrics table of one training run.
type EpochHistory struct {
	VersionedRecord

	RunID   string      `json:"run_id"`
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

// Store defines persistence operations for training-run history.
type Store interface {
	Init(ctx context.Context) error
	SaveTrainingRun(ctx context.Context, run TrainingRun) error
	GetTrainingRun(ctx context.Context, id string) (TrainingRun, bool, error)
	ListTrainingRuns(ctx context.Context) ([]TrainingRun, error)
	SaveEpochHistory(ctx context.Context, history EpochHistory) error
	GetEpochHistory(ctx context.Context, runID string) (EpochHistory, bool, error)
}
