package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"wcmi/internal/sim"
)

// ErrStatsUnimplemented marks the statistics-only reporting mode, which
// is defined but not yet implemented. It must fail loudly rather than
// silently no-op.
var ErrStatsUnimplemented = errors.New("the stats action is not yet implemented")

// Stats is the statistics-only reporting entry point.
func Stats(_ context.Context, saveDataPath string, deps Deps) error {
	deps.Logger.Error("(To be implemented...)")
	return ErrStatsUnimplemented
}

// Number of sample rows Generate writes.
const generateNumSamples = 10000

// Generate writes a synthetic CSV dataset: zeroed simulation input
// parameters paired with simulation outputs drawn uniformly from each
// output's configured range. Useful as a placeholder schema for tools
// that expect a populated data file.
func Generate(_ context.Context, saveDataPath string, deps Deps) error {
	if saveDataPath == "" {
		return fmt.Errorf("generate requires --save-data=.../path/to/data.csv to be specified")
	}

	info := deps.Info
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	columns := make([]string, 0, info.NumSimColumns())
	columns = append(columns, info.SimInputNames...)
	columns = append(columns, info.SimOutputNames...)

	rows := make([][]float64, generateNumSamples)
	for i := range rows {
		row := make([]float64, info.NumSimColumns())
		for j := 0; j < info.NumSimOutputs(); j++ {
			min, max := info.OutputRange(j)
			row[info.NumSimInputs()+j] = min + rng.Float64()*(max-min)
		}
		rows[i] = row
	}

	if err := sim.Save(saveDataPath, sim.Table{Columns: columns, Rows: rows}); err != nil {
		return err
	}
	deps.Logger.Infof("Wrote generated CSV data to `%s'.", saveDataPath)
	return nil
}
