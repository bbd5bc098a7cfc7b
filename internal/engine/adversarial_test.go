package engine

import (
	"math"
	"math/rand"
	"testing"

	"wcmi/internal/model"
	"wcmi/internal/nn"
)

func newAdversarialTrainer(t *testing.T, rng *rand.Rand, ganN int) *AdversarialTrainer {
	t.Helper()

	mdl, err := model.New(model.KindAdversarial, model.Config{
		NumInputs:   1,
		NumLabels:   1,
		GanN:        ganN,
		HiddenSizes: []int{8},
	}, rng)
	if err != nil {
		t.Fatalf("model.New: %v", err)
	}
	generatorOptimizer, err := nn.NewSGD(nn.DefaultSGDConfig(), mdl.Generator.Net)
	if err != nil {
		t.Fatalf("nn.NewSGD generator: %v", err)
	}
	discriminatorOptimizer, err := nn.NewSGD(nn.DefaultSGDConfig(), mdl.Discriminator.Net)
	if err != nil {
		t.Fatalf("nn.NewSGD discriminator: %v", err)
	}

	return &AdversarialTrainer{
		Model:                  mdl,
		GeneratorOptimizer:     generatorOptimizer,
		DiscriminatorOptimizer: discriminatorOptimizer,
		Logger:                 quietLogger(),
		RNG:                    rng,
		NumInputs:              1,
		NumLabels:              1,
		GanN:                   ganN,
		NumEpochs:              2,
		BatchSize:              4,
		Pause:                  PauseConfig{Enabled: false},
	}
}

func TestAdversarialTrainerRecordsEveryEpoch(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	trainer := newAdversarialTrainer(t, rng, 2)

	training := linearRows(12)
	testing := linearRows(4)
	metrics, err := trainer.Train(training, testing)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	if len(metrics.Epochs) != 2 {
		t.Fatalf("expected 2 epochs, got %d", len(metrics.Epochs))
	}
	for epoch, row := range metrics.Epochs {
		if row.NumTrainingSamples != len(training) {
			t.Fatalf("epoch %d: NumTrainingSamples = %d, want %d",
				epoch, row.NumTrainingSamples, len(training))
		}
		// Pausing is disabled, so every sample trained both networks.
		if row.NumDiscriminatorPaused != 0 || row.NumGeneratorPaused != 0 {
			t.Fatalf("epoch %d: unexpected pause counts %d/%d",
				epoch, row.NumDiscriminatorPaused, row.NumGeneratorPaused)
		}
		for _, loss := range []float64{
			row.TrainingDiscriminatorRealLoss,
			row.TrainingDiscriminatorGeneratedLoss,
			row.TrainingGeneratorLoss,
			row.TestingDiscriminatorRealLoss,
			row.TestingDiscriminatorGeneratedLoss,
			row.TestingGeneratorLoss,
		} {
			if math.IsNaN(loss) || math.IsInf(loss, 0) || loss < 0 {
				t.Fatalf("epoch %d: invalid BCE loss %f", epoch, loss)
			}
		}
	}
}

func TestAdversarialTrainerAlwaysPausedCountsAllSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	trainer := newAdversarialTrainer(t, rng, 2)
	trainer.NumEpochs = 1
	// MinEpochs 0 and a huge negative threshold make both conditions
	// trigger from the first eligible batch.
	trainer.Pause = PauseConfig{
		Enabled:            true,
		Threshold:          -100,
		MinSamplesPerEpoch: 0,
		MinEpochs:          0,
	}

	training := linearRows(12)
	metrics, err := trainer.Train(training, nil)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	row := metrics.Epochs[0]
	if row.NumDiscriminatorPaused != len(training) {
		t.Fatalf("NumDiscriminatorPaused = %d, want %d", row.NumDiscriminatorPaused, len(training))
	}
	if row.NumGeneratorPaused != len(training) {
		t.Fatalf("NumGeneratorPaused = %d, want %d", row.NumGeneratorPaused, len(training))
	}
}

func TestAdversarialTrainerFixedLatentRequiresColumns(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	trainer := newAdversarialTrainer(t, rng, 2)
	trainer.ForceFixedLatent = true

	// Rows with no GAN columns.
	if _, err := trainer.Train(linearRows(8), nil); err == nil {
		t.Fatal("expected error when fixed latent columns are absent")
	}
}

func TestAdversarialTrainerFixedLatentUsesColumns(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	trainer := newAdversarialTrainer(t, rng, 2)
	trainer.ForceFixedLatent = true
	trainer.NumEpochs = 1

	rows := make([][]float64, 8)
	for i := range rows {
		x := float64(i) / 8
		rows[i] = []float64{2*x + 1, x, 0.25, 0.75}
	}
	if _, err := trainer.Train(rows, nil); err != nil {
		t.Fatalf("Train: %v", err)
	}
}

func TestAdversarialTrainerRejectsWrongKind(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	mdl := newRegressionModel(t, rng, 1, 1)

	trainer := &AdversarialTrainer{
		Model:     mdl,
		Logger:    quietLogger(),
		RNG:       rng,
		NumInputs: 1,
		NumLabels: 1,
		GanN:      2,
		NumEpochs: 1,
		BatchSize: 4,
	}
	if _, err := trainer.Train(linearRows(4), nil); err == nil {
		t.Fatal("expected error for regression model")
	}
}
