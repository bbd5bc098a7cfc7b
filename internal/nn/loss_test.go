package nn

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestMSEMean(t *testing.T) {
	pred := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	target := mat.NewDense(2, 2, []float64{1, 0, 3, 2})
	// errors: 0, 2, 0, 2 -> squared 0, 4, 0, 4 -> mean 2
	if got := MSEMean(pred, target); got != 2 {
		t.Fatalf("MSE = %g, want 2", got)
	}
}

func TestBCEKnownValues(t *testing.T) {
	pred := mat.NewDense(1, 2, []float64{0.5, 0.9})
	target := mat.NewDense(1, 2, []float64{1, 0})
	loss := BCE(pred, target)
	if got, want := loss.At(0, 0), -math.Log(0.5); math.Abs(got-want) > 1e-12 {
		t.Fatalf("BCE(0.5, 1) = %g, want %g", got, want)
	}
	if got, want := loss.At(0, 1), -math.Log(0.1); math.Abs(got-want) > 1e-9 {
		t.Fatalf("BCE(0.9, 0) = %g, want %g", got, want)
	}
}

func TestBCEClampsExtremes(t *testing.T) {
	pred := mat.NewDense(1, 2, []float64{0, 1})
	target := mat.NewDense(1, 2, []float64{1, 0})
	loss := BCE(pred, target)
	for j := 0; j < 2; j++ {
		if math.IsInf(loss.At(0, j), 0) || math.IsNaN(loss.At(0, j)) {
			t.Fatalf("BCE not clamped at element %d: %g", j, loss.At(0, j))
		}
	}
}

func TestBCEMeanGradMatchesFiniteDifference(t *testing.T) {
	pred := mat.NewDense(2, 1, []float64{0.3, 0.8})
	target := mat.NewDense(2, 1, []float64{1, 0})
	grad := BCEMeanGrad(pred, target)

	const h = 1e-7
	for i := 0; i < 2; i++ {
		shifted := mat.DenseCopyOf(pred)
		shifted.Set(i, 0, pred.At(i, 0)+h)
		plus := MatrixMean(BCE(shifted, target))
		shifted.Set(i, 0, pred.At(i, 0)-h)
		minus := MatrixMean(BCE(shifted, target))
		numeric := (plus - minus) / (2 * h)
		if math.Abs(numeric-grad.At(i, 0)) > 1e-4 {
			t.Fatalf("element %d: analytic %g vs numeric %g", i, grad.At(i, 0), numeric)
		}
	}
}

func TestNormRoundTrip(t *testing.T) {
	norm := Norm{Mean: []float64{2, -1}, Std: []float64{0.5, 3}}
	x := mat.NewDense(2, 3, []float64{2.5, 2, 9, 1.5, -4, -3})
	applied := norm.Apply(x)
	if got := applied.At(0, 0); got != 1 {
		t.Fatalf("standardized (0,0) = %g, want 1", got)
	}
	// Third column has no stats and passes through.
	if got := applied.At(0, 2); got != 9 {
		t.Fatalf("pass-through column changed: %g", got)
	}
	back := norm.Invert(applied)
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(back.At(i, j)-x.At(i, j)) > 1e-12 {
				t.Fatalf("round trip mismatch at (%d,%d)", i, j)
			}
		}
	}
}

func TestNormZeroVarianceColumn(t *testing.T) {
	norm := Norm{Mean: []float64{5}, Std: []float64{0}}
	x := mat.NewDense(1, 1, []float64{5})
	if got := norm.Apply(x).At(0, 0); got != 0 {
		t.Fatalf("zero-variance column should center only, got %g", got)
	}
}
