package engine

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
	"gonum.org/v1/gonum/stat"
)

// formatStats renders a value vector as "<v1, v2, ...> (norm) (mean)"
// with every number right-padded to width. It is a pure function of its
// arguments; the reporter calls it repeatedly while auto-sizing.
func formatStats(values []float64, width int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%*f", width, v)
	}
	return fmt.Sprintf("<%s> (%*f) (%*f)",
		strings.Join(parts, ", "), width, vectorNorm(values), width, vectorMean(values))
}

func formatNames(names []string, width int) string {
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%*s", width, name)
	}
	return fmt.Sprintf("<%s>", strings.Join(parts, ", "))
}

func vectorNorm(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func vectorMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sqrtEach(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Sqrt(v)
	}
	return out
}

// labelSummary holds the descriptive statistics the reporter prints for
// the label columns.
type labelSummary struct {
	Mean, Variance, StdDev []float64
	Quantiles              [5][]float64 // 0, 0.25, 0.5, 0.75, 1
}

// summarizeLabels computes per-column statistics over all label rows.
// Variance and standard deviation are population statistics; quantiles
// use linear interpolation.
func summarizeLabels(rows [][]float64, numLabels int) labelSummary {
	var s labelSummary
	s.Mean = make([]float64, numLabels)
	s.Variance = make([]float64, numLabels)
	s.StdDev = make([]float64, numLabels)
	for q := range s.Quantiles {
		s.Quantiles[q] = make([]float64, numLabels)
	}
	fractions := []float64{0, 0.25, 0.5, 0.75, 1}

	column := make([]float64, len(rows))
	for j := 0; j < numLabels; j++ {
		for i, row := range rows {
			column[i] = row[j]
		}
		s.Mean[j] = stat.Mean(column, nil)
		s.Variance[j] = stat.PopVariance(column, nil)
		s.StdDev[j] = math.Sqrt(s.Variance[j])
		sorted := append([]float64(nil), column...)
		sort.Float64s(sorted)
		for q, fraction := range fractions {
			s.Quantiles[q][j] = stat.Quantile(fraction, stat.LinInterp, sorted, nil)
		}
	}
	return s
}

// statLine is one report line; blank lines separate the groups.
type statLine struct {
	format string
	values []float64
	names  []string
}

func (l statLine) render(width int) string {
	switch {
	case l.values != nil:
		return fmt.Sprintf(l.format, formatStats(l.values, width))
	case l.names != nil:
		return fmt.Sprintf(l.format, formatNames(l.names, width))
	default:
		return l.format
	}
}

// regressionStatLines builds the post-training report for the regression
// trainer: final-epoch MSE/RMSE and descriptive label statistics.
func regressionStatLines(lastTestingMSE, lastTrainingMSE []float64, labelNames []string, labels labelSummary) []statLine {
	return []statLine{
		{},
		{format: "Last testing MSE   (norm) (mean) : %s", values: lastTestingMSE},
		{format: "Last testing RMSE  (norm) (mean) : %s", values: sqrtEach(lastTestingMSE)},
		{format: "Last training MSE  (norm) (mean) : %s", values: lastTrainingMSE},
		{format: "Last training RMSE (norm) (mean) : %s", values: sqrtEach(lastTrainingMSE)},
		{},
		{format: "Label column names               : %s", names: labelNames},
		{},
		{format: "All labels mean    (norm) (mean) : %s", values: labels.Mean},
		{format: "All labels var     (norm) (mean) : %s", values: labels.Variance},
		{format: "All labels stddev  (norm) (mean) : %s", values: labels.StdDev},
		{},
		{format: "All labels min     (norm) (mean) : %s", values: labels.Quantiles[0]},
		{format: "...1st quartile    (norm) (mean) : %s", values: labels.Quantiles[1]},
		{format: "All labels median  (norm) (mean) : %s", values: labels.Quantiles[2]},
		{format: "...3rd quartile    (norm) (mean) : %s", values: labels.Quantiles[3]},
		{format: "All labels max     (norm) (mean) : %s", values: labels.Quantiles[4]},
	}
}

// terminalWidth reports the terminal column count, or 0 when unknown.
func terminalWidth() int {
	cols, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || cols <= 1 {
		return 0
	}
	return cols
}

// fitStatWidth picks the number width for the report. It starts at 30
// when the terminal width is known (13 otherwise) and decreases until
// the longest line fits the terminal and further decreases stop reducing
// how many lines share the maximum length, or the width reaches 0.
func fitStatWidth(lines []statLine, cols int) int {
	width := 13
	if cols > 0 {
		width = 30
	}

	lastCount := -1
	chosen := width
	fitted := false
	for try := width; try >= 0; try-- {
		maxLen := 0
		for _, line := range lines {
			if n := len(line.render(try)); n > maxLen {
				maxLen = n
			}
		}
		count := 0
		for _, line := range lines {
			if len(line.render(try)) >= maxLen {
				count++
			}
		}
		if fits := cols == 0 || maxLen <= cols; !fits {
			if !fitted {
				chosen = try
			}
			continue
		}
		if fitted && count >= lastCount {
			break
		}
		chosen = try
		fitted = true
		lastCount = count
	}
	return chosen
}

// reportStats logs the report lines at the auto-fit width.
func reportStats(logger *logrus.Logger, lines []statLine) {
	width := fitStatWidth(lines, terminalWidth())
	for _, line := range lines {
		logger.Info(line.render(width))
	}
}
