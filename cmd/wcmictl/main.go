package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/sirupsen/logrus"

	"wcmi/internal/engine"
	"wcmi/internal/sim"
	"wcmi/internal/storage"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "train":
		return runTrain(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "stats":
		return runStats(ctx, args[1:])
	case "generate":
		return runGenerate(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func newLogger(verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// storeFlags are the run-history store flags shared by the subcommands
// that touch persistence.
type storeFlags struct {
	kind   *string
	dbPath *string
}

func addStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		kind:   fs.String("store", storage.DefaultStoreKind(), "run history backend: memory|sqlite"),
		dbPath: fs.String("db-path", "wcmi.db", "sqlite database path"),
	}
}

func (f storeFlags) open(ctx context.Context) (storage.Store, error) {
	store, err := storage.NewStore(*f.kind, *f.dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}
	return store, nil
}

func runTrain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	useGAN := fs.Bool("gan", true, "train the GAN model (use -gan=false for the dense regression model)")
	loadModel := fs.String("load-model", "", "resume from an existing model file")
	saveModel := fs.String("save-model", "", "path to write the trained model (required)")
	loadData := fs.String("load-data", "", "CSV file with simulation samples (required)")
	saveData := fs.String("save-data", "", "path to write the per-epoch error table CSV")
	ganN := fs.Int("gan-n", engine.DefaultGanN, "number of GAN generation parameters")
	numEpochs := fs.Int("num-epochs", engine.DefaultNumEpochs, "number of training epochs")
	statusEveryEpoch := fs.Int("status-every-epoch", engine.DefaultStatusEveryEpoch, "print a status line every n epochs (0 disables)")
	statusEverySample := fs.Int("status-every-sample", engine.DefaultStatusEverySample, "print a status line every n samples within a status epoch (0 disables)")
	batchSize := fs.Int("batch-size", engine.DefaultBatchSize, "training batch size")
	learningRate := fs.Float64("learning-rate", engine.DefaultLearningRate, "SGD learning rate")
	forceFixed := fs.Bool("gan-force-fixed-gen-params", false, "use the GAN generation columns from the CSV instead of sampling")
	pauseCfg := engine.DefaultPauseConfig()
	fs.BoolVar(&pauseCfg.Enabled, "gan-enable-pause", pauseCfg.Enabled, "enable the GAN training pause heuristic")
	fs.Float64Var(&pauseCfg.Threshold, "gan-training-pause-threshold", pauseCfg.Threshold, "loss gap at which the stronger sub-network pauses")
	fs.IntVar(&pauseCfg.MinSamplesPerEpoch, "pause-min-samples-per-epoch", pauseCfg.MinSamplesPerEpoch, "discriminator samples required per epoch before pausing")
	fs.IntVar(&pauseCfg.MinEpochs, "pause-min-epochs", pauseCfg.MinEpochs, "epochs to train before pausing is considered")
	fs.IntVar(&pauseCfg.MaxEpochs, "pause-max-epochs", pauseCfg.MaxEpochs, "epoch after which pausing stops (0 for no limit)")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := sf.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	return engine.Train(ctx, engine.TrainConfig{
		UseGAN:                 *useGAN,
		LoadModelPath:          *loadModel,
		SaveModelPath:          *saveModel,
		LoadDataPath:           *loadData,
		SaveDataPath:           *saveData,
		GanN:                   *ganN,
		NumEpochs:              *numEpochs,
		StatusEveryEpoch:       *statusEveryEpoch,
		StatusEverySample:      *statusEverySample,
		BatchSize:              *batchSize,
		LearningRate:           *learningRate,
		GanForceFixedGenParams: *forceFixed,
		Pause:                  pauseCfg,
	}, engine.Deps{
		Logger: newLogger(*verbose),
		Store:  store,
		Info:   sim.DefaultInfo(),
	})
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	useGAN := fs.Bool("gan", true, "run the GAN model (use -gan=false for the dense regression model)")
	loadModel := fs.String("load-model", "", "trained model file (required)")
	loadData := fs.String("load-data", "", "CSV file with simulation samples (required)")
	saveData := fs.String("save-data", "", "path to write the augmented prediction CSV (required)")
	ganN := fs.Int("gan-n", engine.DefaultGanN, "number of GAN generation parameters")
	keepOOB := fs.Bool("output-keep-out-of-bounds-samples", false, "keep prediction rows outside the configured parameter boundaries")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return engine.Run(ctx, engine.RunConfig{
		UseGAN:          *useGAN,
		LoadModelPath:   *loadModel,
		LoadDataPath:    *loadData,
		SaveDataPath:    *saveData,
		GanN:            *ganN,
		KeepOutOfBounds: *keepOOB,
	}, engine.Deps{
		Logger: newLogger(*verbose),
		Info:   sim.DefaultInfo(),
	})
}

func runStats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	saveData := fs.String("save-data", "", "path to write the statistics CSV")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return engine.Stats(ctx, *saveData, engine.Deps{
		Logger: newLogger(*verbose),
		Info:   sim.DefaultInfo(),
	})
}

func runGenerate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	saveData := fs.String("save-data", "", "path to write the generated CSV (required)")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return engine.Generate(ctx, *saveData, engine.Deps{
		Logger: newLogger(*verbose),
		Info:   sim.DefaultInfo(),
	})
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return fmt.Errorf("limit must be > 0")
	}

	store, err := sf.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	runs, err := store.ListTrainingRuns(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if len(runs) > *limit {
		runs = runs[len(runs)-*limit:]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tMODEL\tEPOCHS\tBATCH\tSAMPLES\tSTARTED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
			run.ID, run.ModelKind, run.NumEpochs, run.BatchSize, run.NumSamples,
			run.StartedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: wcmictl <train|run|stats|generate|runs> [flags]", msg)
}
