package engine

import (
	"wcmi/internal/sim"
)

// RegressionMetrics is a fixed-size per-epoch MSE table: one training row
// and one testing row of per-label-column MSE per epoch. Rows are written
// once per epoch and never mutated afterward.
type RegressionMetrics struct {
	LabelNames []string
	Training   [][]float64
	Testing    [][]float64
}

func NewRegressionMetrics(numEpochs int, labelNames []string) *RegressionMetrics {
	return &RegressionMetrics{
		LabelNames: labelNames,
		Training:   make([][]float64, numEpochs),
		Testing:    make([][]float64, numEpochs),
	}
}

func (m *RegressionMetrics) Record(epoch int, trainingMSE, testingMSE []float64) {
	m.Training[epoch] = trainingMSE
	m.Testing[epoch] = testingMSE
}

// Table exports the metrics for CSV writing: a leading boolean
// is_training column, the testing block first (is_training=0), then the
// training block.
func (m *RegressionMetrics) Table() sim.Table {
	columns := make([]string, 0, len(m.LabelNames)+1)
	columns = append(columns, "is_training")
	for _, name := range m.LabelNames {
		columns = append(columns, "mse_"+name)
	}
	rows := make([][]float64, 0, len(m.Testing)+len(m.Training))
	for _, mse := range m.Testing {
		rows = append(rows, append([]float64{0}, mse...))
	}
	for _, mse := range m.Training {
		rows = append(rows, append([]float64{1}, mse...))
	}
	return sim.Table{
		Columns:    columns,
		Rows:       rows,
		IntColumns: map[string]bool{"is_training": true},
	}
}

// Names of the adversarial per-epoch metric columns, in export order.
var adversarialMetricColumns = []string{
	"training_mean_discriminator_real_bce_loss",
	"training_mean_discriminator_generated_bce_loss",
	"training_mean_generator_bce_loss",
	"testing_mean_discriminator_real_bce_loss",
	"testing_mean_discriminator_generated_bce_loss",
	"testing_mean_generator_bce_loss",
	"num_training_samples",
	"num_discriminator_training_paused",
	"num_generator_training_paused",
}

// AdversarialEpoch is one epoch's worth of adversarial loss metrics.
type AdversarialEpoch struct {
	TrainingDiscriminatorRealLoss      float64
	TrainingDiscriminatorGeneratedLoss float64
	TrainingGeneratorLoss              float64
	TestingDiscriminatorRealLoss       float64
	TestingDiscriminatorGeneratedLoss  float64
	TestingGeneratorLoss               float64
	NumTrainingSamples                 int
	NumDiscriminatorPaused             int
	NumGeneratorPaused                 int
}

// AdversarialMetrics is a fixed-size per-epoch BCE loss table.
type AdversarialMetrics struct {
	Epochs []AdversarialEpoch
}

func NewAdversarialMetrics(numEpochs int) *AdversarialMetrics {
	return &AdversarialMetrics{Epochs: make([]AdversarialEpoch, numEpochs)}
}

func (m *AdversarialMetrics) Record(epoch int, row AdversarialEpoch) {
	m.Epochs[epoch] = row
}

// Table exports one row per epoch with integer-typed count columns.
func (m *AdversarialMetrics) Table() sim.Table {
	rows := make([][]float64, 0, len(m.Epochs))
	for _, e := range m.Epochs {
		rows = append(rows, []float64{
			e.TrainingDiscriminatorRealLoss,
			e.TrainingDiscriminatorGeneratedLoss,
			e.TrainingGeneratorLoss,
			e.TestingDiscriminatorRealLoss,
			e.TestingDiscriminatorGeneratedLoss,
			e.TestingGeneratorLoss,
			float64(e.NumTrainingSamples),
			float64(e.NumDiscriminatorPaused),
			float64(e.NumGeneratorPaused),
		})
	}
	return sim.Table{
		Columns: append([]string(nil), adversarialMetricColumns...),
		Rows:    rows,
		IntColumns: map[string]bool{
			"num_training_samples":              true,
			"num_discriminator_training_paused": true,
			"num_generator_training_paused":     true,
		},
	}
}

