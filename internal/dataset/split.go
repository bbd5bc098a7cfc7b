package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// TestProportion is the fixed share of samples held out for testing.
const TestProportion = 0.2

// SplitSeed is the fixed seed for the train/test shuffle. The split must
// be reproducible across runs even though everything after it is not.
const SplitSeed = 42

// Split shuffles rows with a deterministic permutation drawn from
// SplitSeed and partitions them into testing rows (the first
// round(p * N) of the shuffled order) and training rows (the remainder).
//
// The returned *rand.Rand is a fresh source derived from the split
// source's output; per-epoch shuffles and latent sampling must use it so
// that the split stays reproducible while training stays stochastic.
func Split(rows [][]float64, proportion float64) (training, testing [][]float64, rng *rand.Rand, err error) {
	if len(rows) == 0 {
		return nil, nil, nil, fmt.Errorf("split requires at least one sample")
	}

	splitRNG := rand.New(rand.NewSource(SplitSeed))

	shuffled := make([][]float64, len(rows))
	copy(shuffled, rows)
	splitRNG.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	// Replace the split source with a fresh, unpredictable one so all
	// later randomness is decoupled from the fixed seed.
	rng = rand.New(rand.NewSource(time.Now().UnixNano() ^ splitRNG.Int63()))

	numTesting := int(math.Round(proportion * float64(len(rows))))
	return shuffled[numTesting:], shuffled[:numTesting], rng, nil
}

// Shuffle permutes rows in place using the supplied source.
func Shuffle(rng *rand.Rand, rows [][]float64) {
	rng.Shuffle(len(rows), func(i, j int) {
		rows[i], rows[j] = rows[j], rows[i]
	})
}
