package dataset

import (
	"fmt"
	"math"
)

// ColumnStats holds per-column population statistics used as the
// standardization parameters injected into a model's normalization layer.
type ColumnStats struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
	Min  []float64 `json:"min"`
	Max  []float64 `json:"max"`
}

func (s ColumnStats) NumColumns() int { return len(s.Mean) }

// Standardize computes per-column population mean, population standard
// deviation (no Bessel correction), min, and max over the column range
// [start, end) of rows.
func Standardize(rows [][]float64, start, end int) (ColumnStats, error) {
	if len(rows) == 0 {
		return ColumnStats{}, fmt.Errorf("standardize requires at least one row")
	}
	if start < 0 || end > len(rows[0]) || start >= end {
		return ColumnStats{}, fmt.Errorf("invalid column range [%d, %d) for %d columns", start, end, len(rows[0]))
	}

	n := end - start
	stats := ColumnStats{
		Mean: make([]float64, n),
		Std:  make([]float64, n),
		Min:  make([]float64, n),
		Max:  make([]float64, n),
	}
	for j := 0; j < n; j++ {
		stats.Min[j] = math.Inf(1)
		stats.Max[j] = math.Inf(-1)
	}

	for _, row := range rows {
		for j := 0; j < n; j++ {
			v := row[start+j]
			stats.Mean[j] += v
			if v < stats.Min[j] {
				stats.Min[j] = v
			}
			if v > stats.Max[j] {
				stats.Max[j] = v
			}
		}
	}
	count := float64(len(rows))
	for j := 0; j < n; j++ {
		stats.Mean[j] /= count
	}
	for _, row := range rows {
		for j := 0; j < n; j++ {
			diff := row[start+j] - stats.Mean[j]
			stats.Std[j] += diff * diff
		}
	}
	for j := 0; j < n; j++ {
		stats.Std[j] = math.Sqrt(stats.Std[j] / count)
	}
	return stats, nil
}

// Concat joins two stats blocks column-wise, in order. The adversarial
// discriminator consumes (input, label) pairs, so its input-side
// standardization parameters are the input stats followed by the label
// stats.
func Concat(a, b ColumnStats) ColumnStats {
	join := func(x, y []float64) []float64 {
		out := make([]float64, 0, len(x)+len(y))
		out = append(out, x...)
		return append(out, y...)
	}
	return ColumnStats{
		Mean: join(a.Mean, b.Mean),
		Std:  join(a.Std, b.Std),
		Min:  join(a.Min, b.Min),
		Max:  join(a.Max, b.Max),
	}
}
