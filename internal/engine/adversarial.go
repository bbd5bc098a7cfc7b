package engine

import (
	"fmt"
	"math/rand"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"wcmi/internal/dataset"
	"wcmi/internal/model"
	"wcmi/internal/nn"
)

// AdversarialTrainer runs the epoch/batch loop for the GAN model with
// dual optimizers and the loss-balancing pause heuristic. Rows carry
// labels in columns [0, NumLabels), network inputs in
// [NumLabels, NumLabels+NumInputs), and fixed latent generation
// parameters after that when ForceFixedLatent is set.
type AdversarialTrainer struct {
	Model                  *model.Model
	GeneratorOptimizer     *nn.SGD
	DiscriminatorOptimizer *nn.SGD
	Logger                 *logrus.Logger
	RNG                    *rand.Rand

	NumInputs int
	NumLabels int
	GanN      int

	NumEpochs         int
	BatchSize         int
	StatusEveryEpoch  int
	StatusEverySample int

	// ForceFixedLatent draws latent parameters from the dataset's GAN
	// columns instead of sampling them uniformly in [0, 1).
	ForceFixedLatent bool

	Pause PauseConfig
}

// epochLossBuffer collects the unreduced per-sample losses of one epoch:
// discriminator-real, discriminator-generated, and generator BCE.
type epochLossBuffer struct {
	values *mat.Dense // nil when the partition is empty
}

func newEpochLossBuffer(numSamples int) *epochLossBuffer {
	b := &epochLossBuffer{}
	if numSamples > 0 {
		b.values = mat.NewDense(numSamples, 3, nil)
	}
	return b
}

func (b *epochLossBuffer) record(offset int, discReal, discGenerated, generator *mat.Dense) {
	rows, _ := discReal.Dims()
	for i := 0; i < rows; i++ {
		b.values.Set(offset+i, 0, discReal.At(i, 0))
		b.values.Set(offset+i, 1, discGenerated.At(i, 0))
		b.values.Set(offset+i, 2, generator.At(i, 0))
	}
}

// means reduces the buffer to the three per-component means.
func (b *epochLossBuffer) means() (discReal, discGenerated, generator float64) {
	if b.values == nil {
		return 0, 0, 0
	}
	rows, _ := b.values.Dims()
	var sums [3]float64
	for i := 0; i < rows; i++ {
		for j := 0; j < 3; j++ {
			sums[j] += b.values.At(i, j)
		}
	}
	n := float64(rows)
	return sums[0] / n, sums[1] / n, sums[2] / n
}

// batchPasses holds the forward passes and losses of one adversarial
// batch; training keeps the tapes for selective backpropagation, the
// testing phase discards them.
type batchPasses struct {
	discRealOut, discGeneratedOut *mat.Dense
	discRealTape, discGenTape     *nn.Tape
	generatorTape                 *nn.Tape

	realTargets, generatedTargets *mat.Dense

	// unreduced per-sample BCE losses
	discRealLoss, discGeneratedLoss, generatorLoss *mat.Dense

	// batch-mean scalars fed to the pause heuristic
	meanDiscriminatorLoss, meanGeneratorLoss float64
}

// latent returns this batch's generation parameters, either sliced from
// the fixed GAN columns or sampled uniformly in [0, 1).
func (t *AdversarialTrainer) latent(rows [][]float64, start, end int) *mat.Dense {
	if t.ForceFixedLatent {
		out := mat.NewDense(end-start, t.GanN, nil)
		base := t.NumLabels + t.NumInputs
		for i := start; i < end; i++ {
			for j := 0; j < t.GanN; j++ {
				out.Set(i-start, j, rows[i][base+j])
			}
		}
		return out
	}
	out := mat.NewDense(end-start, t.GanN, nil)
	for i := 0; i < end-start; i++ {
		for j := 0; j < t.GanN; j++ {
			out.Set(i, j, t.RNG.Float64())
		}
	}
	return out
}

func constColumn(rows int, value float64) *mat.Dense {
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		out.Set(i, 0, value)
	}
	return out
}

// forwardBatch runs the four forward computations of one batch: the
// discriminator on the real pair, the generator on the latent pair, the
// discriminator on the synthetic pair, and the generator's fooling loss
// on that last output.
func (t *AdversarialTrainer) forwardBatch(input, labels, latent *mat.Dense) batchPasses {
	batchLen, _ := input.Dims()
	var p batchPasses
	p.realTargets = constColumn(batchLen, model.RealLabel)
	p.generatedTargets = constColumn(batchLen, model.GeneratedLabel)

	p.discRealOut, p.discRealTape = t.Model.Discriminator.ForwardTape(model.HStack(input, labels))
	p.discRealLoss = nn.BCE(p.discRealOut, p.realTargets)

	syntheticLabels, generatorTape := t.Model.Generator.ForwardTape(model.HStack(input, latent))
	p.generatorTape = generatorTape

	p.discGeneratedOut, p.discGenTape = t.Model.Discriminator.ForwardTape(model.HStack(input, syntheticLabels))
	p.discGeneratedLoss = nn.BCE(p.discGeneratedOut, p.generatedTargets)

	p.generatorLoss = nn.BCE(p.discGeneratedOut, p.realTargets)

	p.meanDiscriminatorLoss = (nn.MatrixMean(p.discRealLoss) + nn.MatrixMean(p.discGeneratedLoss)) / 2
	p.meanGeneratorLoss = nn.MatrixMean(p.generatorLoss)
	return p
}

// trainGenerator backpropagates the generator's fooling loss through
// the discriminator without touching its parameter gradients, then
// through the generator, and steps the generator's optimizer.
func (t *AdversarialTrainer) trainGenerator(p batchPasses) {
	grad := nn.BCEMeanGrad(p.discGeneratedOut, p.realTargets)
	gradDiscIn := t.Model.Discriminator.BackwardTape(p.discGenTape, grad, false)

	// The synthetic labels occupy the conditioning block of the
	// discriminator's input.
	rows, _ := gradDiscIn.Dims()
	gradSynthetic := gradDiscIn.Slice(0, rows, t.NumInputs, t.NumInputs+t.NumLabels).(*mat.Dense)

	t.Model.Generator.BackwardTape(p.generatorTape, gradSynthetic, true)
	t.GeneratorOptimizer.Step()
}

// Train fits the GAN on the training partition, evaluating the testing
// partition forward-only once per epoch. Gradients are cleared once per
// epoch; the pause state and loss accumulators reset at each epoch
// start. It returns the per-epoch BCE loss table.
func (t *AdversarialTrainer) Train(training, testing [][]float64) (*AdversarialMetrics, error) {
	if t.Model.Kind != model.KindAdversarial {
		return nil, fmt.Errorf("adversarial trainer requires an adversarial model, have %s", t.Model.Kind)
	}
	if len(training) == 0 {
		return nil, fmt.Errorf("adversarial trainer requires a non-empty training partition")
	}
	if t.ForceFixedLatent && len(training[0]) < t.NumLabels+t.NumInputs+t.GanN {
		return nil, fmt.Errorf("fixed generation parameters requested, but the loaded data has no GAN generation columns")
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

	metrics := NewAdversarialMetrics(t.NumEpochs)

	for epoch := 0; epoch < t.NumEpochs; epoch++ {
		statusEnabled := status.epochEnabled(epoch)
		if statusEnabled {
			status.beginEpoch(epoch)
		}

		dataset.Shuffle(t.RNG, training)
		trainingInput := rowsToMatrix(training, t.NumLabels, t.NumLabels+t.NumInputs)
		trainingLabels := rowsToMatrix(training, 0, t.NumLabels)

		var state PauseState
		trainingLosses := newEpochLossBuffer(len(training))

		t.GeneratorOptimizer.ZeroGrad()
		t.DiscriminatorOptimizer.ZeroGrad()

		for batch := 0; batch < trainingPlan.NumBatches; batch++ {
			if status.sampleEnabled(statusEnabled, batch) {
				status.beginSample(batch, epoch, false)
			}

			start, end := trainingPlan.Range(batch)
			batchInput := sliceRows(trainingInput, start, end)
			batchLabels := sliceRows(trainingLabels, start, end)
			latent := t.latent(training, start, end)

			p := t.forwardBatch(batchInput, batchLabels, latent)

			pauseDiscriminator, pauseGenerator := t.Pause.Decide(
				epoch, state, p.meanDiscriminatorLoss, p.meanGeneratorLoss)

			if !pauseDiscriminator {
				state.DiscriminatorSamples += end - start

				t.Model.Discriminator.BackwardTape(
					p.discRealTape, nn.BCEMeanGrad(p.discRealOut, p.realTargets), true)
				t.DiscriminatorOptimizer.Step()

				t.Model.Discriminator.BackwardTape(
					p.discGenTape, nn.BCEMeanGrad(p.discGeneratedOut, p.generatedTargets), true)
				t.DiscriminatorOptimizer.Step()
			}

			if !pauseGenerator {
				state.GeneratorSamples += end - start
				t.trainGenerator(p)
			}

			trainingLosses.record(start, p.discRealLoss, p.discGeneratedLoss, p.generatorLoss)
		}

		testingInput := rowsToMatrix(testing, t.NumLabels, t.NumLabels+t.NumInputs)
		testingLabels := rowsToMatrix(testing, 0, t.NumLabels)
		testingLosses := newEpochLossBuffer(len(testing))

		for batch := 0; batch < testingPlan.NumBatches; batch++ {
			globalBatch := batch + trainingPlan.NumBatches
			if status.sampleEnabled(statusEnabled, globalBatch) {
				status.beginSample(globalBatch, epoch, true)
			}

			start, end := testingPlan.Range(batch)
			batchInput := sliceRows(testingInput, start, end)
			batchLabels := sliceRows(testingLabels, start, end)
			latent := t.latent(testing, start, end)

			p := t.forwardBatch(batchInput, batchLabels, latent)
			testingLosses.record(start, p.discRealLoss, p.discGeneratedLoss, p.generatorLoss)
		}

		row := AdversarialEpoch{
			NumTrainingSamples:     len(training),
			NumDiscriminatorPaused: len(training) - state.DiscriminatorSamples,
			NumGeneratorPaused:     len(training) - state.GeneratorSamples,
		}
		row.TrainingDiscriminatorRealLoss, row.TrainingDiscriminatorGeneratedLoss, row.TrainingGeneratorLoss = trainingLosses.means()
		row.TestingDiscriminatorRealLoss, row.TestingDiscriminatorGeneratedLoss, row.TestingGeneratorLoss = testingLosses.means()
		metrics.Record(epoch, row)

		if statusEnabled {
			t.Logger.Infof(
				"Done training epoch #%s/%s (mean testing disc_real, disc_gen, gen loss: %f, %f, %f) (mean training disc_real, disc_gen, gen loss: %f, %f, %f) (paused disc, gen: %s, %s).",
				humanize.Comma(int64(epoch+1)), humanize.Comma(int64(t.NumEpochs)),
				row.TestingDiscriminatorRealLoss, row.TestingDiscriminatorGeneratedLoss, row.TestingGeneratorLoss,
				row.TrainingDiscriminatorRealLoss, row.TrainingDiscriminatorGeneratedLoss, row.TrainingGeneratorLoss,
				humanize.Comma(int64(row.NumDiscriminatorPaused)), humanize.Comma(int64(row.NumGeneratorPaused)),
			)
		}
	}

	return metrics, nil
}
