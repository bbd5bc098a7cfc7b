package nn

import (
	"gonum.org/v1/gonum/mat"
)

// Norm standardizes leading columns of a batch with per-column mean and
// standard deviation. Columns beyond len(Mean) pass through unchanged,
// which lets a generator consume raw latent parameters alongside
// standardized simulation outputs. Zero-variance columns are centered
// only.
type Norm struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

func (n Norm) NumColumns() int { return len(n.Mean) }

// Apply returns (x - mean) / std column-wise over the leading columns.
func (n Norm) Apply(x *mat.Dense) *mat.Dense {
	rows, cols := x.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := x.At(i, j)
			if j < len(n.Mean) {
				v -= n.Mean[j]
				if n.Std[j] > 0 {
					v /= n.Std[j]
				}
			}
			out.Set(i, j, v)
		}
	}
	return out
}

// Invert maps standardized values back: y*std + mean.
func (n Norm) Invert(y *mat.Dense) *mat.Dense {
	rows, cols := y.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := y.At(i, j)
			if j < len(n.Mean) {
				if n.Std[j] > 0 {
					v *= n.Std[j]
				}
				v += n.Mean[j]
			}
			out.Set(i, j, v)
		}
	}
	return out
}

// GradThroughApply rescales a gradient taken with respect to Apply's
// output into one with respect to its input (divide by std).
func (n Norm) GradThroughApply(grad *mat.Dense) *mat.Dense {
	rows, cols := grad.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := grad.At(i, j)
			if j < len(n.Std) && n.Std[j] > 0 {
				v /= n.Std[j]
			}
			out.Set(i, j, v)
		}
	}
	return out
}

// GradThroughInvert rescales a gradient taken with respect to Invert's
// output into one with respect to its input (multiply by std).
func (n Norm) GradThroughInvert(grad *mat.Dense) *mat.Dense {
	rows, cols := grad.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := grad.At(i, j)
			if j < len(n.Std) && n.Std[j] > 0 {
				v *= n.Std[j]
			}
			out.Set(i, j, v)
		}
	}
	return out
}
