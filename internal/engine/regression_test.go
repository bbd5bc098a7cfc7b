package engine

import (
	"io"
	"math"
	"math/rand"
	"testing"

	"github.com/sirupsen/logrus"

	"wcmi/internal/model"
	"wcmi/internal/nn"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// linearRows builds rows whose single label is a linear function of the
// single input: label = 2*input + 1, with the label in column 0 and the
// input in column 1.
func linearRows(n int) [][]float64 {
	rows := make([][]float64, n)
	for i := range rows {
		x := float64(i) / float64(n)
		rows[i] = []float64{2*x + 1, x}
	}
	return rows
}

func newRegressionModel(t *testing.T, rng *rand.Rand, numInputs, numLabels int) *model.Model {
	t.Helper()

	mdl, err := model.New(model.KindRegression, model.Config{
		NumInputs:   numInputs,
		NumLabels:   numLabels,
		HiddenSizes: []int{8},
	}, rng)
	if err != nil {
		t.Fatalf("model.New: %v", err)
	}
	return mdl
}

func TestRegressionTrainerRecordsEveryEpoch(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	mdl := newRegressionModel(t, rng, 1, 1)
	optimizer, err := nn.NewSGD(nn.DefaultSGDConfig(), mdl.Regression.Net)
	if err != nil {
		t.Fatalf("nn.NewSGD: %v", err)
	}

	trainer := &RegressionTrainer{
		Model:     mdl,
		Optimizer: optimizer,
		Logger:    quietLogger(),
		RNG:       rng,
		NumInputs: 1,
		NumLabels: 1,
		NumEpochs: 3,
		BatchSize: 4,
	}

	training := linearRows(10)
	testing := linearRows(4)
	metrics, err := trainer.Train(training, testing, []string{"a"})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	if len(metrics.Training) != 3 || len(metrics.Testing) != 3 {
		t.Fatalf("expected 3 epochs of metrics, got %d/%d",
			len(metrics.Training), len(metrics.Testing))
	}
	for epoch := 0; epoch < 3; epoch++ {
		for _, mse := range [][]float64{metrics.Training[epoch], metrics.Testing[epoch]} {
			if len(mse) != 1 {
				t.Fatalf("epoch %d: expected 1 MSE column, got %d", epoch, len(mse))
			}
			if math.IsNaN(mse[0]) || math.IsInf(mse[0], 0) || mse[0] < 0 {
				t.Fatalf("epoch %d: invalid MSE %f", epoch, mse[0])
			}
		}
	}
}

func TestRegressionTrainerConverges(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	mdl := newRegressionModel(t, rng, 1, 1)
	optimizer, err := nn.NewSGD(nn.SGDConfig{LearningRate: 0.005}, mdl.Regression.Net)
	if err != nil {
		t.Fatalf("nn.NewSGD: %v", err)
	}

	trainer := &RegressionTrainer{
		Model:     mdl,
		Optimizer: optimizer,
		Logger:    quietLogger(),
		RNG:       rng,
		NumInputs: 1,
		NumLabels: 1,
		NumEpochs: 200,
		BatchSize: 8,
	}

	training := linearRows(32)
	testing := linearRows(8)
	metrics, err := trainer.Train(training, testing, []string{"a"})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	first := metrics.Training[0][0]
	last := metrics.Training[len(metrics.Training)-1][0]
	if last >= first {
		t.Fatalf("expected training MSE to decrease: first %f, last %f", first, last)
	}
}

func TestRegressionTrainerRejectsWrongKind(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	mdl, err := model.New(model.KindAdversarial, model.Config{
		NumInputs:   1,
		NumLabels:   1,
		GanN:        2,
		HiddenSizes: []int{4},
	}, rng)
	if err != nil {
		t.Fatalf("model.New: %v", err)
	}

	trainer := &RegressionTrainer{
		Model:     mdl,
		Logger:    quietLogger(),
		RNG:       rng,
		NumInputs: 1,
		NumLabels: 1,
		NumEpochs: 1,
		BatchSize: 4,
	}
	if _, err := trainer.Train(linearRows(4), nil, []string{"a"}); err == nil {
		t.Fatal("expected error for adversarial model")
	}
}

func TestRegressionTrainerRejectsEmptyTraining(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	mdl := newRegressionModel(t, rng, 1, 1)
	optimizer, err := nn.NewSGD(nn.DefaultSGDConfig(), mdl.Regression.Net)
	if err != nil {
		t.Fatalf("nn.NewSGD: %v", err)
	}

	trainer := &RegressionTrainer{
		Model:     mdl,
		Optimizer: optimizer,
		Logger:    quietLogger(),
		RNG:       rng,
		NumInputs: 1,
		NumLabels: 1,
		NumEpochs: 1,
		BatchSize: 4,
	}
	if _, err := trainer.Train(nil, nil, []string{"a"}); err == nil {
		t.Fatal("expected error for empty training partition")
	}
}
