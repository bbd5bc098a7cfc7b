package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// bceEps keeps log arguments and denominators away from zero.
const bceEps = 1e-7

// MSEMean returns the mean of squared element-wise differences.
func MSEMean(predicted, target *mat.Dense) float64 {
	rows, cols := predicted.Dims()
	sum := 0.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			diff := predicted.At(i, j) - target.At(i, j)
			sum += diff * diff
		}
	}
	return sum / float64(rows*cols)
}

// MSEGrad returns d/d(predicted) of MSEMean: 2*(p-t)/N.
func MSEGrad(predicted, target *mat.Dense) *mat.Dense {
	rows, cols := predicted.Dims()
	grad := mat.NewDense(rows, cols, nil)
	n := float64(rows * cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			grad.Set(i, j, 2*(predicted.At(i, j)-target.At(i, j))/n)
		}
	}
	return grad
}

// BCE returns the unreduced element-wise binary cross-entropy
// -(t*log(p) + (1-t)*log(1-p)).
func BCE(predicted, target *mat.Dense) *mat.Dense {
	rows, cols := predicted.Dims()
	loss := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			p := clampProb(predicted.At(i, j))
			t := target.At(i, j)
			loss.Set(i, j, -(t*math.Log(p) + (1-t)*math.Log(1-p)))
		}
	}
	return loss
}

// BCEMeanGrad returns d/d(predicted) of the mean of BCE over all
// elements: (-t/p + (1-t)/(1-p)) / N.
func BCEMeanGrad(predicted, target *mat.Dense) *mat.Dense {
	rows, cols := predicted.Dims()
	grad := mat.NewDense(rows, cols, nil)
	n := float64(rows * cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			p := clampProb(predicted.At(i, j))
			t := target.At(i, j)
			grad.Set(i, j, (-t/p+(1-t)/(1-p))/n)
		}
	}
	return grad
}

// MatrixMean is the mean over all elements.
func MatrixMean(m *mat.Dense) float64 {
	rows, cols := m.Dims()
	sum := 0.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			sum += m.At(i, j)
		}
	}
	return sum / float64(rows*cols)
}

func clampProb(p float64) float64 {
	if p < bceEps {
		return bceEps
	}
	if p > 1-bceEps {
		return 1 - bceEps
	}
	return p
}
