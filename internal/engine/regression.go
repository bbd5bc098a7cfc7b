package engine

import (
	"fmt"
	"math/rand"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"wcmi/internal/dataset"
	"wcmi/internal/model"
	"wcmi/internal/nn"
)

// RegressionTrainer runs the epoch/batch loop for the non-adversarial
// model. Rows carry labels in columns [0, NumLabels) and network inputs
// in [NumLabels, NumLabels+NumInputs).
type RegressionTrainer struct {
	Model     *model.Model
	Optimizer *nn.SGD
	Logger    *logrus.Logger
	RNG       *rand.Rand

	NumInputs int
	NumLabels int

	NumEpochs         int
	BatchSize         int
	StatusEveryEpoch  int
	StatusEverySample int
}

// Train fits the model on the training partition, evaluating the
// testing partition forward-only once per epoch. The training rows are
// reshuffled in place each epoch; gradients are cleared once per epoch
// rather than per batch. It returns the per-epoch MSE table.
func (t *RegressionTrainer) Train(training, testing [][]float64, labelNames []string) (*RegressionMetrics, error) {
	if t.Model.Kind != model.KindRegression {
		return nil, fmt.Errorf("regression trainer requires a regression model, have %s", t.Model.Kind)
	}
	if len(training) == 0 {
		return nil, fmt.Errorf("regression trainer requires a non-empty training partition")
	}

	trainingPlan := dataset.PlanBatches(len(training), t.BatchSize)
	testingPlan := dataset.PlanBatches(len(testing), t.BatchSize)

	status := statusPrinter{
		logger:      t.Logger,
		everyEpoch:  t.StatusEveryEpoch,
		everySample: t.StatusEverySample,
		numEpochs:   t.NumEpochs,
		numSamples:  len(training) + len(testing),
		batchSize:   trainingPlan.BatchSize,
	}

	metrics := NewRegressionMetrics(t.NumEpochs, labelNames)
	subnet := t.Model.Regression

	for epoch := 0; epoch < t.NumEpochs; epoch++ {
		statusEnabled := status.epochEnabled(epoch)
		if statusEnabled {
			status.beginEpoch(epoch)
		}

		dataset.Shuffle(t.RNG, training)
		trainingInput := rowsToMatrix(training, t.NumLabels, t.NumLabels+t.NumInputs)
		trainingLabels := rowsToMatrix(training, 0, t.NumLabels)

		// Fresh residual buffer each epoch; entries before the first
		// write are meaningless.
		trainingResiduals := newResidualBuffer(len(training), t.NumLabels)

		t.Optimizer.ZeroGrad()
		for batch := 0; batch < trainingPlan.NumBatches; batch++ {
			if status.sampleEnabled(statusEnabled, batch) {
				status.beginSample(batch, epoch, false)
			}

			start, end := trainingPlan.Range(batch)
			batchInput := sliceRows(trainingInput, start, end)
			batchLabels := sliceRows(trainingLabels, start, end)

			output, tape := subnet.ForwardTape(batchInput)
			loss := nn.MSEMean(output, batchLabels)
			if status.sampleEnabled(statusEnabled, batch) {
				status.batchLoss("MSE loss, mean of columns", loss)
			}

			trainingResiduals.record(start, output, batchLabels)

			subnet.BackwardTape(tape, nn.MSEGrad(output, batchLabels), true)
			t.Optimizer.Step()
		}
		trainingMSE := trainingResiduals.columnMSE()

		testingInput := rowsToMatrix(testing, t.NumLabels, t.NumLabels+t.NumInputs)
		testingLabels := rowsToMatrix(testing, 0, t.NumLabels)
		testingResiduals := newResidualBuffer(len(testing), t.NumLabels)

		for batch := 0; batch < testingPlan.NumBatches; batch++ {
			globalBatch := batch + trainingPlan.NumBatches
			if status.sampleEnabled(statusEnabled, globalBatch) {
				status.beginSample(globalBatch, epoch, true)
			}

			start, end := testingPlan.Range(batch)
			batchInput := sliceRows(testingInput, start, end)
			batchLabels := sliceRows(testingLabels, start, end)

			output := subnet.Forward(batchInput)
			if status.sampleEnabled(statusEnabled, globalBatch) {
				status.batchLoss("MSE loss, mean of columns", nn.MSEMean(output, batchLabels))
			}

			testingResiduals.record(start, output, batchLabels)
		}
		testingMSE := testingResiduals.columnMSE()
		metrics.Record(epoch, trainingMSE, testingMSE)

		if statusEnabled {
			t.Logger.Infof(
				"Done training epoch #%s/%s (testing MSE norm (mean) vs. training MSE norm (mean): %s (%s) vs. %s (%s) (lower is more accurate)).",
				humanize.Comma(int64(epoch+1)), humanize.Comma(int64(t.NumEpochs)),
				humanize.Commaf(vectorNorm(testingMSE)), humanize.Commaf(vectorMean(testingMSE)),
				humanize.Commaf(vectorNorm(trainingMSE)), humanize.Commaf(vectorMean(trainingMSE)),
			)
		}
	}

	return metrics, nil
}
