package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"wcmi/internal/dataset"
	"wcmi/internal/model"
	"wcmi/internal/nn"
	"wcmi/internal/sim"
	"wcmi/internal/storage"
)

// Defaults shared by the train entry point and the CLI flags.
const (
	DefaultGanN              = 3
	DefaultNumEpochs         = 10
	DefaultStatusEveryEpoch  = 1
	DefaultStatusEverySample = 0
	DefaultBatchSize         = 64
	DefaultLearningRate      = 0.001
)

// TrainConfig carries every knob of a train invocation.
type TrainConfig struct {
	UseGAN bool

	LoadModelPath string
	SaveModelPath string
	LoadDataPath  string
	SaveDataPath  string

	GanN int

	NumEpochs         int
	StatusEveryEpoch  int
	StatusEverySample int
	BatchSize         int
	LearningRate      float64

	// GanForceFixedGenParams draws latent parameters from the data's
	// GAN columns instead of sampling them.
	GanForceFixedGenParams bool

	Pause PauseConfig
}

// Deps are the capabilities the engine entry points operate through.
// Store may be nil, in which case no run history is persisted.
type Deps struct {
	Logger *logrus.Logger
	Store  storage.Store
	Info   sim.Info
}

// Train loads the CSV data, trains a model on it, optionally exports
// the per-epoch error table, saves the model, and records the run in
// the history store.
func Train(ctx context.Context, cfg TrainConfig, deps Deps) error {
	logger := deps.Logger
	startedAt := time.Now()

	if cfg.GanN == 0 {
		cfg.GanN = DefaultGanN
	}
	if cfg.LoadDataPath == "" {
		return fmt.Errorf("train requires --load-data=.../path/to/data.csv to be specified")
	}
	if cfg.SaveModelPath == "" {
		return fmt.Errorf("train requires --save-model=.../path/to/model.json to be specified")
	}
	if cfg.NumEpochs < 1 {
		return fmt.Errorf("train requires --num-epochs to be at least 1")
	}

	data, err := sim.Load(cfg.LoadDataPath, deps.Info, sim.LoadOptions{GANN: cfg.GanN})
	if err != nil {
		return err
	}
	if len(data.Table.Rows) == 0 {
		return fmt.Errorf("train requires the CSV data loaded to contain at least one sample")
	}

	numLabels := deps.Info.NumSimInputs()
	numInputs := deps.Info.NumSimOutputs()
	numInOut := numLabels + numInputs
	ganColumns := len(data.Table.Rows[0]) - numInOut

	if cfg.GanForceFixedGenParams && ganColumns == 0 {
		return fmt.Errorf("--gan-force-fixed-gen-params was specified, but no GAN generation parameters are available in the loaded CSV data")
	}

	labelStats, err := dataset.Standardize(data.Table.Rows, 0, numLabels)
	if err != nil {
		return err
	}
	inputStats, err := dataset.Standardize(data.Table.Rows, numLabels, numInOut)
	if err != nil {
		return err
	}

	training, testing, rng, err := dataset.Split(data.Table.Rows, dataset.TestProportion)
	if err != nil {
		return err
	}

	kind := model.KindRegression
	if cfg.UseGAN {
		kind = model.KindAdversarial
	}
	modelCfg := model.Config{
		NumInputs: numInputs,
		NumLabels: numLabels,
		GanN:      cfg.GanN,
	}

	var mdl *model.Model
	if cfg.LoadModelPath != "" {
		mdl, err = model.Load(cfg.LoadModelPath, kind, modelCfg)
	} else {
		mdl, err = model.New(kind, modelCfg, rng)
	}
	if err != nil {
		return err
	}
	mdl.SetStats(inputStats, labelStats)

	sgdConfig := nn.DefaultSGDConfig()
	if cfg.LearningRate > 0 {
		sgdConfig.LearningRate = cfg.LearningRate
	}

	logger.Infof("Training %s model on %s samples (%s training, %s testing).",
		kind,
		humanize.Comma(int64(len(data.Table.Rows))),
		humanize.Comma(int64(len(training))),
		humanize.Comma(int64(len(testing))))

	var historyTable sim.Table
	if !cfg.UseGAN {
		optimizer, err := nn.NewSGD(sgdConfig, mdl.Regression.Net)
		if err != nil {
			return err
		}
		trainer := &RegressionTrainer{
			Model:             mdl,
			Optimizer:         optimizer,
			Logger:            logger,
			RNG:               rng,
			NumInputs:         numInputs,
			NumLabels:         numLabels,
			NumEpochs:         cfg.NumEpochs,
			BatchSize:         cfg.BatchSize,
			StatusEveryEpoch:  cfg.StatusEveryEpoch,
			StatusEverySample: cfg.StatusEverySample,
		}
		metrics, err := trainer.Train(training, testing, deps.Info.SimInputNames)
		if err != nil {
			return err
		}
		historyTable = metrics.Table()

		logger.Info("")
		logger.Info("Done training last epoch.  Preparing statistics...")
		last := cfg.NumEpochs - 1
		reportStats(logger, regressionStatLines(
			metrics.Testing[last],
			metrics.Training[last],
			deps.Info.SimInputNames,
			summarizeLabels(data.Table.Rows, numLabels),
		))
	} else {
		generatorOptimizer, err := nn.NewSGD(sgdConfig, mdl.Generator.Net)
		if err != nil {
			return err
		}
		discriminatorOptimizer, err := nn.NewSGD(sgdConfig, mdl.Discriminator.Net)
		if err != nil {
			return err
		}
		trainer := &AdversarialTrainer{
			Model:                  mdl,
			GeneratorOptimizer:     generatorOptimizer,
			DiscriminatorOptimizer: discriminatorOptimizer,
			Logger:                 logger,
			RNG:                    rng,
			NumInputs:              numInputs,
			NumLabels:              numLabels,
			GanN:                   cfg.GanN,
			NumEpochs:              cfg.NumEpochs,
			BatchSize:              cfg.BatchSize,
			StatusEveryEpoch:       cfg.StatusEveryEpoch,
			StatusEverySample:      cfg.StatusEverySample,
			ForceFixedLatent:       cfg.GanForceFixedGenParams,
			Pause:                  cfg.Pause,
		}
		metrics, err := trainer.Train(training, testing)
		if err != nil {
			return err
		}
		historyTable = metrics.Table()
	}

	if cfg.SaveDataPath != "" {
		if err := sim.Save(cfg.SaveDataPath, historyTable); err != nil {
			return err
		}
		logger.Info("")
		logger.Infof("Wrote training epoch data to `%s'.", cfg.SaveDataPath)
	}

	if err := mdl.Save(cfg.SaveModelPath); err != nil {
		return err
	}
	logger.Info("")
	logger.Infof("Saved trained model to `%s'.", cfg.SaveModelPath)

	if deps.Store != nil {
		run := storage.TrainingRun{
			VersionedRecord: storage.NewVersionedRecord(),
			ID:              uuid.NewString(),
			ModelKind:       string(kind),
			NumEpochs:       cfg.NumEpochs,
			BatchSize:       cfg.BatchSize,
			LearningRate:    sgdConfig.LearningRate,
			GanN:            cfg.GanN,
			NumSamples:      len(data.Table.Rows),
			DataPath:        cfg.LoadDataPath,
			ModelPath:       cfg.SaveModelPath,
			StartedAt:       startedAt,
			FinishedAt:      time.Now(),
		}
		if err := deps.Store.SaveTrainingRun(ctx, run); err != nil {
			return fmt.Errorf("save training run: %w", err)
		}
		history := storage.EpochHistory{
			VersionedRecord: storage.NewVersionedRecord(),
			RunID:           run.ID,
			Columns:         historyTable.Columns,
			Rows:            historyTable.Rows,
		}
		if err := deps.Store.SaveEpochHistory(ctx, history); err != nil {
			return fmt.Errorf("save epoch history: %w", err)
		}
		logger.Infof("Recorded training run %s.", run.ID)
	}

	logger.Info("")
	logger.Info("Done training all epochs.")
	logger.Info("Have a good day.")
	return nil
}

// RunConfig carries every knob of a run (inference) invocation.
type RunConfig struct {
	UseGAN bool

	LoadModelPath string
	LoadDataPath  string
	SaveDataPath  string

	GanN int

	// KeepOutOfBounds keeps prediction rows that fall outside the
	// configured simulation input parameter boundaries.
	KeepOutOfBounds bool
}

// Run loads a trained model and CSV data, predicts simulation input
// parameters for every row, and writes the augmented CSV output.
func Run(_ context.Context, cfg RunConfig, deps Deps) error {
	logger := deps.Logger

	if cfg.GanN == 0 {
		cfg.GanN = DefaultGanN
	}
	if cfg.LoadDataPath == "" {
		return fmt.Errorf("run requires --load-data=.../path/to/data.csv to be specified")
	}
	if cfg.SaveDataPath == "" {
		return fmt.Errorf("run requires --save-data=.../path/to/data.csv to be specified")
	}
	if cfg.LoadModelPath == "" {
		return fmt.Errorf("run requires --load-model=.../path/to/model.json to be specified")
	}

	data, err := sim.Load(cfg.LoadDataPath, deps.Info, sim.LoadOptions{GANN: cfg.GanN})
	if err != nil {
		return err
	}

	kind := model.KindRegression
	if cfg.UseGAN {
		kind = model.KindAdversarial
	}
	mdl, err := model.Load(cfg.LoadModelPath, kind, model.Config{
		NumInputs: deps.Info.NumSimOutputs(),
		NumLabels: deps.Info.NumSimInputs(),
		GanN:      cfg.GanN,
	})
	if err != nil {
		return err
	}

	runner := &InferenceRunner{
		Model:           mdl,
		Logger:          logger,
		RNG:             rand.New(rand.NewSource(time.Now().UnixNano())),
		Info:            deps.Info,
		KeepOutOfBounds: cfg.KeepOutOfBounds,
		GanN:            cfg.GanN,
	}
	output, err := runner.Run(data)
	if err != nil {
		return err
	}

	if err := sim.Save(cfg.SaveDataPath, output); err != nil {
		return err
	}
	logger.Infof("Wrote CSV output with predictions to `%s'.", cfg.SaveDataPath)
	return nil
}
