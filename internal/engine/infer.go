package engine

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"wcmi/internal/model"
	"wcmi/internal/sim"
)

const (
	// Diagnostics warn when a predicted column's standard deviation is
	// at or below this fraction of the column's configured range.
	lowVarianceFraction = 0.1
	// Diagnostics enumerate the distinct predicted values of a column
	// when there are at most this many.
	fewUniqueThreshold = 25
)

// InferenceRunner forward-passes a loaded dataset through a trained
// model, builds the augmented prediction table, filters out-of-bounds
// rows, and reports prediction diagnostics.
type InferenceRunner struct {
	Model  *model.Model
	Logger *logrus.Logger
	RNG    *rand.Rand
	Info   sim.Info

	// KeepOutOfBounds disables the boundary filter.
	KeepOutOfBounds bool
	GanN            int
}

// Run predicts labels for every row of data and returns the augmented
// table: the original in/out columns, the predicted columns inserted
// after them, and the GAN generation columns (fixed or freshly sampled)
// last.
func (r *InferenceRunner) Run(data *sim.Data) (sim.Table, error) {
	numLabels := r.Info.NumSimInputs()
	numInputs := r.Info.NumSimOutputs()
	numInOut := numLabels + numInputs

	rows := data.Table.Rows
	if len(rows) == 0 {
		return sim.Table{}, fmt.Errorf("run requires the loaded data to contain at least one sample")
	}

	ganColumns := len(rows[0]) - numInOut
	if r.Model.Kind == model.KindAdversarial && ganColumns != 0 && ganColumns != r.GanN {
		return sim.Table{}, fmt.Errorf(
			"GAN generation columns are present, but their count does not match the configured count: %d != %d",
			ganColumns, r.GanN)
	}
	ganFixed := ganColumns != 0

	input := rowsToMatrix(rows, numLabels, numInOut)
	labels := rowsToMatrix(rows, 0, numLabels)

	var predictions *mat.Dense
	var latent *mat.Dense
	var err error
	switch r.Model.Kind {
	case model.KindRegression:
		predictions, err = r.Model.Forward(input)
	case model.KindAdversarial:
		if ganFixed {
			latent = rowsToMatrix(rows, numInOut, numInOut+ganColumns)
		} else {
			latent = mat.NewDense(len(rows), r.GanN, nil)
			for i := 0; i < len(rows); i++ {
				for j := 0; j < r.GanN; j++ {
					latent.Set(i, j, r.RNG.Float64())
				}
			}
		}
		predictions, err = r.Model.ForwardAdversarial(input, latent, model.GeneratorOnly)
	default:
		err = fmt.Errorf("unknown model kind: %s", r.Model.Kind)
	}
	if err != nil {
		return sim.Table{}, err
	}

	output := r.augmentedTable(data.Table, predictions, latent, ganFixed, numInOut)
	if !r.KeepOutOfBounds {
		output = r.filterOutOfBounds(output, predictions)
	}

	r.reportDiagnostics(predictions)
	r.reportErrors(predictions, labels)

	return output, nil
}

// augmentedTable inserts the predicted columns immediately after the
// in/out block and appends GAN columns. When the model sampled fresh
// latent parameters, those replace the (absent) fixed columns and gain
// GAN_<i> column names.
func (r *InferenceRunner) augmentedTable(table sim.Table, predictions, latent *mat.Dense, ganFixed bool, numInOut int) sim.Table {
	columns := make([]string, 0, len(table.Columns)+r.Info.NumSimInputs())
	columns = append(columns, table.Columns[:numInOut]...)
	for _, name := range r.Info.SimInputNames {
		columns = append(columns, "pred_"+name)
	}
	columns = append(columns, table.Columns[numInOut:]...)
	if latent != nil && !ganFixed {
		for j := 0; j < r.GanN; j++ {
			columns = append(columns, fmt.Sprintf("GAN_%d", j))
		}
	}

	numPred := r.Info.NumSimInputs()
	outRows := make([][]float64, len(table.Rows))
	for i, row := range table.Rows {
		out := make([]float64, 0, len(columns))
		out = append(out, row[:numInOut]...)
		for j := 0; j < numPred; j++ {
			out = append(out, predictions.At(i, j))
		}
		if latent != nil && !ganFixed {
			out = append(out, row[numInOut:]...)
			for j := 0; j < r.GanN; j++ {
				out = append(out, latent.At(i, j))
			}
		} else {
			out = append(out, row[numInOut:]...)
		}
		outRows[i] = out
	}

	return sim.Table{Columns: columns, Rows: outRows, IntColumns: table.IntColumns}
}

// filterOutOfBounds drops rows whose predictions fall outside the
// configured [min, max] of any simulation input parameter.
func (r *InferenceRunner) filterOutOfBounds(output sim.Table, predictions *mat.Dense) sim.Table {
	kept := output.Rows[:0:0]
	for i, row := range output.Rows {
		valid := true
		for j := 0; j < r.Info.NumSimInputs(); j++ {
			v := predictions.At(i, j)
			if v < r.Info.SimInputMins[j] || v > r.Info.SimInputMaxs[j] {
				valid = false
				break
			}
		}
		if valid {
			kept = append(kept, row)
		}
	}

	lost := len(output.Rows) - len(kept)
	if lost <= 0 {
		r.Logger.Info("All model predictions are within the minimum and maximum boundaries.")
		r.Logger.Info("")
	} else {
		r.Logger.Warnf("WARNING: #%s/#%s sample rows have been discarded from the CSV output due to out-of-bounds predictions.",
			humanize.Comma(int64(lost)), humanize.Comma(int64(len(output.Rows))))
		r.Logger.Warn("")
	}

	output.Rows = kept
	return output
}

// reportDiagnostics warns about degenerate prediction columns: zero
// variance, low variance relative to the configured range, and few
// distinct values. Skipped for fewer than two rows, where variance is
// meaningless.
func (r *InferenceRunner) reportDiagnostics(predictions *mat.Dense) {
	numRows, _ := predictions.Dims()
	if numRows < 2 {
		return
	}

	numWarnings := 0
	column := make([]float64, numRows)
	for j, name := range r.Info.SimInputNames {
		for i := 0; i < numRows; i++ {
			column[i] = predictions.At(i, j)
		}
		std := math.Sqrt(stat.PopVariance(column, nil))
		threshold := lowVarianceFraction * (r.Info.SimInputMaxs[j] - r.Info.SimInputMins[j])

		if numWarnings >= 1 {
			r.Logger.Warn("")
		}
		switch {
		case std <= 0.0:
			r.Logger.Warnf("WARNING: all predictions for simulation input parameter #%d (`%s`) are the same!  Prediction: %s.",
				j+1, name, humanize.Commaf(column[0]))
			numWarnings++
		case std <= threshold:
			r.Logger.Warnf("WARNING: there is little variance in the predictions for simulation input parameter #%d (`%s`): std <= threshold: %s <= %s.",
				j+1, name, humanize.Commaf(std), humanize.Commaf(threshold))
			numWarnings++
		}

		unique := uniqueValues(column)
		if len(unique) <= fewUniqueThreshold {
			r.Logger.Warnf("WARNING: there are few unique values (#%s) for predictions for simulation input parameter #%d (`%s`):",
				humanize.Comma(int64(len(unique))), j+1, name)
			numWarnings++
			for _, line := range valueClusterLines(column, unique) {
				r.Logger.Warn(line)
			}
		}
	}
	if numWarnings >= 1 {
		r.Logger.Warn("")
	}
}

// reportErrors logs the per-column MSE and RMSE of the predictions
// against the ground-truth labels alongside the labels' own variance
// and standard deviation.
func (r *InferenceRunner) reportErrors(predictions, labels *mat.Dense) {
	numRows, numCols := predictions.Dims()
	mse := make([]float64, numCols)
	labelVar := make([]float64, numCols)
	labelStd := make([]float64, numCols)

	column := make([]float64, numRows)
	for j := 0; j < numCols; j++ {
		sum := 0.0
		for i := 0; i < numRows; i++ {
			d := predictions.At(i, j) - labels.At(i, j)
			sum += d * d
			column[i] = labels.At(i, j)
		}
		mse[j] = sum / float64(numRows)
		labelVar[j] = stat.PopVariance(column, nil)
		labelStd[j] = math.Sqrt(labelVar[j])
	}
	rmse := sqrtEach(mse)

	log := r.Logger
	log.Info("")
	log.Infof("Columns: <%s>", strings.Join(r.Info.SimInputNames, ", "))
	log.Info("")
	log.Infof("Prediction MSEs for each column: <%s>", joinFloats(mse))
	log.Infof("Label variance for each column: <%s>", joinFloats(labelVar))
	log.Info("")
	log.Infof("Prediction RMSEs for each column: <%s>", joinFloats(rmse))
	log.Infof("Label stddev for each column: <%s>", joinFloats(labelStd))
	log.Info("")
	log.Infof("Mean of column MSEs: %f", vectorMean(mse))
	log.Infof("Mean of label variances: %f", vectorMean(labelVar))
	log.Info("")
	log.Infof("Mean of column RMSEs: %f", vectorMean(rmse))
	log.Infof("Mean of label stddevs: %f", vectorMean(labelStd))
}

func joinFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%f", v)
	}
	return strings.Join(parts, ", ")
}

// uniqueValues returns the sorted distinct values of column.
func uniqueValues(column []float64) []float64 {
	sorted := append([]float64(nil), column...)
	sort.Float64s(sorted)
	unique := sorted[:0:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			unique = append(unique, v)
		}
	}
	return unique
}

// floatsClose mirrors relative closeness with a 1e-9 tolerance.
func floatsClose(a, b float64) bool {
	if a == b {
		return true
	}
	const relTol = 1e-9
	return math.Abs(a-b) <= relTol*math.Max(math.Abs(a), math.Abs(b))
}

type valueCluster struct {
	value      float64
	countExact int
	countClose int
	members    []float64
}

// valueClusterLines groups the distinct values of column by
// floating-point closeness and renders them most frequent first. Each
// cluster lists its leader with the close-match count and, when the
// cluster spans several distinct values, the members with their exact
// counts.
func valueClusterLines(column []float64, unique []float64) []string {
	width := 0
	for _, v := range unique {
		if n := len(fmt.Sprint(v)); n > width {
			width = n
		}
	}

	visited := make(map[float64]bool, len(unique))
	clusters := make([]valueCluster, 0, len(unique))
	for _, v := range unique {
		if visited[v] {
			continue
		}
		visited[v] = true
		c := valueCluster{value: v}
		for _, u := range unique {
			if u != v && floatsClose(u, v) {
				visited[u] = true
				c.members = append(c.members, u)
			}
		}
		for _, x := range column {
			if x == v {
				c.countExact++
			}
			if floatsClose(x, v) {
				c.countClose++
			}
		}
		clusters = append(clusters, c)
	}

	sort.SliceStable(clusters, func(i, k int) bool {
		return clusters[i].countClose > clusters[k].countClose
	})

	var lines []string
	for _, c := range clusters {
		switch {
		case len(c.members) > 0:
			lines = append(lines, fmt.Sprintf("  %-*s x%s close values:",
				width, fmt.Sprint(c.value), humanize.Comma(int64(c.countClose))))
			for _, member := range append([]float64{c.value}, c.members...) {
				count := 0
				for _, x := range column {
					if x == member {
						count++
					}
				}
				if count > 1 {
					lines = append(lines, fmt.Sprintf("  %-*s x%s",
						width, fmt.Sprint(member), humanize.Comma(int64(count))))
				} else {
					lines = append(lines, fmt.Sprintf("  %-*s", width, fmt.Sprint(member)))
				}
			}
		case c.countExact > 1:
			lines = append(lines, fmt.Sprintf("  %-*s x%s",
				width, fmt.Sprint(c.value), humanize.Comma(int64(c.countExact))))
		default:
			lines = append(lines, fmt.Sprintf("  %-*s", width, fmt.Sprint(c.value)))
		}
	}
	return lines
}
