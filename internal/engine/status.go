package engine

import (
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// statusPrinter controls the periodic progress messages the trainers
// emit. Epoch messages appear every everyEpoch epochs; sample messages
// appear within a status epoch whenever a batch crosses an everySample
// sample boundary.
type statusPrinter struct {
	logger      *logrus.Logger
	everyEpoch  int
	everySample int
	numEpochs   int
	numSamples  int
	batchSize   int
}

func (s statusPrinter) epochEnabled(epoch int) bool {
	if s.everyEpoch <= 0 {
		return false
	}
	return epoch%s.everyEpoch == 0
}

// sampleEnabled reports whether the batch starting at globalBatch
// crosses a sample-status boundary. globalBatch counts training and
// testing batches together so the testing phase continues the cadence.
func (s statusPrinter) sampleEnabled(epochEnabled bool, globalBatch int) bool {
	if !epochEnabled || s.everySample <= 0 {
		return false
	}
	return globalBatch*s.batchSize%s.everySample < s.batchSize
}

func (s statusPrinter) beginEpoch(epoch int) {
	s.logger.Infof("Beginning epoch #%s/%s.",
		humanize.Comma(int64(epoch+1)), humanize.Comma(int64(s.numEpochs)))
}

func (s statusPrinter) beginSample(globalBatch, epoch int, testing bool) {
	phase := ""
	if testing {
		phase = "(testing phase) "
	}
	s.logger.Infof("  Beginning sample #%s/%s %s(epoch #%s/%s).",
		humanize.Comma(int64(globalBatch*s.batchSize+1)),
		humanize.Comma(int64(s.numSamples)),
		phase,
		humanize.Comma(int64(epoch+1)),
		humanize.Comma(int64(s.numEpochs)))
}

func (s statusPrinter) batchLoss(name string, loss float64) {
	s.logger.Infof("    %s: %s", name, humanize.Commaf(loss))
}

// rowsToMatrix copies the [start, end) column range of rows into a
// dense matrix, or nil when rows is empty.
func rowsToMatrix(rows [][]float64, start, end int) *mat.Dense {
	if len(rows) == 0 {
		return nil
	}
	out := mat.NewDense(len(rows), end-start, nil)
	for i, row := range rows {
		for j := start; j < end; j++ {
			out.Set(i, j-start, row[j])
		}
	}
	return out
}

func sliceRows(m *mat.Dense, start, end int) *mat.Dense {
	_, cols := m.Dims()
	return m.Slice(start, end, 0, cols).(*mat.Dense)
}

// residualBuffer accumulates prediction-minus-label residuals for one
// epoch. It is allocated fresh per epoch; rows not yet written hold
// zeros and must not be read before record covers them.
type residualBuffer struct {
	numColumns int
	values     *mat.Dense // nil when the partition is empty
}

func newResidualBuffer(numSamples, numColumns int) *residualBuffer {
	b := &residualBuffer{numColumns: numColumns}
	if numSamples > 0 {
		b.values = mat.NewDense(numSamples, numColumns, nil)
	}
	return b
}

// record writes output-label residuals for the batch starting at row
// offset.
func (b *residualBuffer) record(offset int, output, labels *mat.Dense) {
	rows, cols := output.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			b.values.Set(offset+i, j, output.At(i, j)-labels.At(i, j))
		}
	}
}

// columnMSE reduces the buffer to the per-column mean of squared
// residuals.
func (b *residualBuffer) columnMSE() []float64 {
	out := make([]float64, b.numColumns)
	if b.values == nil {
		return out
	}
	rows, cols := b.values.Dims()
	for j := 0; j < cols; j++ {
		sum := 0.0
		for i := 0; i < rows; i++ {
			v := b.values.At(i, j)
			sum += v * v
		}
		out[j] = sum / float64(rows)
	}
	return out
}
