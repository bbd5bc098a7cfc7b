package model

import (
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"wcmi/internal/dataset"
)

func testStats(n int, mean, std float64) dataset.ColumnStats {
	stats := dataset.ColumnStats{
		Mean: make([]float64, n),
		Std:  make([]float64, n),
		Min:  make([]float64, n),
		Max:  make([]float64, n),
	}
	for i := 0; i < n; i++ {
		stats.Mean[i] = mean
		stats.Std[i] = std
		stats.Min[i] = mean - std
		stats.Max[i] = mean + std
	}
	return stats
}

func TestNewRegressionForwardShape(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m, err := New(KindRegression, Config{NumInputs: 3, NumLabels: 2}, rng)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	m.SetStats(testStats(3, 1, 2), testStats(2, 0, 1))

	out, err := m.Forward(mat.NewDense(4, 3, nil))
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	rows, cols := out.Dims()
	if rows != 4 || cols != 2 {
		t.Fatalf("unexpected output shape: %d x %d", rows, cols)
	}
}

func TestAdversarialForwardModes(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	m, err := New(KindAdversarial, Config{NumInputs: 3, NumLabels: 2, GanN: 4}, rng)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	m.SetStats(testStats(3, 1, 2), testStats(2, 0, 1))

	input := mat.NewDense(5, 3, nil)
	latent := mat.NewDense(5, 4, nil)
	synthetic, err := m.ForwardAdversarial(input, latent, GeneratorOnly)
	if err != nil {
		t.Fatalf("generator forward: %v", err)
	}
	if _, cols := synthetic.Dims(); cols != 2 {
		t.Fatalf("generator produced %d columns, want 2", cols)
	}

	prob, err := m.ForwardAdversarial(input, synthetic, DiscriminatorOnly)
	if err != nil {
		t.Fatalf("discriminator forward: %v", err)
	}
	rows, cols := prob.Dims()
	if rows != 5 || cols != 1 {
		t.Fatalf("discriminator output shape: %d x %d", rows, cols)
	}
	for i := 0; i < rows; i++ {
		if p := prob.At(i, 0); p < 0 || p > 1 {
			t.Fatalf("discriminator output %g outside [0,1]", p)
		}
	}
}

func TestForwardWrongKind(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	m, err := New(KindRegression, Config{NumInputs: 2, NumLabels: 1}, rng)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	if _, err := m.ForwardAdversarial(mat.NewDense(1, 2, nil), mat.NewDense(1, 1, nil), GeneratorOnly); err == nil {
		t.Fatal("expected kind error")
	}
}

func TestConfigValidation(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	if _, err := New(KindRegression, Config{NumInputs: 0, NumLabels: 1}, rng); err == nil {
		t.Fatal("expected input count error")
	}
	if _, err := New(KindAdversarial, Config{NumInputs: 2, NumLabels: 1, GanN: 0}, rng); err == nil {
		t.Fatal("expected gan_n error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	cfg := Config{NumInputs: 3, NumLabels: 2}
	m, err := New(KindRegression, cfg, rng)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	m.SetStats(testStats(3, 1, 2), testStats(2, 5, 3))

	x := mat.NewDense(2, 3, []float64{0.5, 1.5, -0.5, 2, 0, 1})
	before, err := m.Forward(x)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}

	path := filepath.Join(t.TempDir(), "model.json")
	if err := m.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	restored, err := Load(path, KindRegression, cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	after, err := restored.Forward(x)
	if err != nil {
		t.Fatalf("forward restored: %v", err)
	}
	rows, cols := before.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if math.Abs(before.At(i, j)-after.At(i, j)) > 1e-12 {
				t.Fatalf("restored model differs at (%d,%d): %g vs %g", i, j, before.At(i, j), after.At(i, j))
			}
		}
	}
}

func TestLoadShapeMismatch(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	m, err := New(KindRegression, Config{NumInputs: 3, NumLabels: 2}, rng)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	path := filepath.Join(t.TempDir(), "model.json")
	if err := m.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := Load(path, KindRegression, Config{NumInputs: 4, NumLabels: 2}); err == nil {
		t.Fatal("expected shape mismatch error")
	}
	if _, err := Load(path, KindAdversarial, Config{NumInputs: 3, NumLabels: 2, GanN: 2}); err == nil {
		t.Fatal("expected kind mismatch error")
	}
}

func TestAdversarialSaveLoadRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cfg := Config{NumInputs: 2, NumLabels: 2, GanN: 3}
	m, err := New(KindAdversarial, cfg, rng)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	m.SetStats(testStats(2, 0, 1), testStats(2, 0, 1))

	path := filepath.Join(t.TempDir(), "gan.json")
	if err := m.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	restored, err := Load(path, KindAdversarial, cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	input := mat.NewDense(3, 2, []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6})
	latent := mat.NewDense(3, 3, []float64{0.1, 0.9, 0.5, 0.2, 0.8, 0.4, 0.3, 0.7, 0.6})
	before, _ := m.ForwardAdversarial(input, latent, GeneratorOnly)
	after, _ := restored.ForwardAdversarial(input, latent, GeneratorOnly)
	if math.Abs(before.At(0, 0)-after.At(0, 0)) > 1e-12 {
		t.Fatalf("restored generator differs: %g vs %g", before.At(0, 0), after.At(0, 0))
	}
}
