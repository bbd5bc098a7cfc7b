package engine

// PauseConfig tunes the loss-balance heuristic that keeps one adversarial
// sub-network from training far ahead of the other.
type PauseConfig struct {
	// Enabled turns pausing on at all.
	Enabled bool
	// Threshold is the non-negative loss gap beyond which the side that
	// is ahead gets paused.
	Threshold float64
	// MinSamplesPerEpoch guarantees the discriminator a minimum training
	// dose each epoch before pausing can kick in.
	MinSamplesPerEpoch int
	// MinEpochs disables pausing during initial warm-up epochs.
	MinEpochs int
	// MaxEpochs, when positive, disables pausing after that epoch index;
	// pausing then only applies mid-training.
	MaxEpochs int
}

func DefaultPauseConfig() PauseConfig {
	return PauseConfig{
		Enabled:            true,
		Threshold:          0.1,
		MinSamplesPerEpoch: 64,
		MinEpochs:          2,
		MaxEpochs:          0,
	}
}

// PauseState counts how many samples actually trained each sub-network
// during the current epoch. Reset at every epoch start.
type PauseState struct {
	DiscriminatorSamples int
	GeneratorSamples     int
}

// Decide applies the pause policy for one batch. The rules are evaluated
// in order and the first match wins. discriminatorLoss is the mean of the
// real-data and generated-data losses; generatorLoss is the real-target
// loss on the generated output. The two come from different forward
// passes.
func (c PauseConfig) Decide(epoch int, state PauseState, discriminatorLoss, generatorLoss float64) (pauseDiscriminator, pauseGenerator bool) {
	switch {
	case !c.Enabled:
		return false, false
	case epoch < c.MinEpochs:
		return false, false
	case c.MaxEpochs > 0 && epoch > c.MaxEpochs:
		return false, false
	case state.DiscriminatorSamples < c.MinSamplesPerEpoch:
		return false, false
	}
	pauseDiscriminator = discriminatorLoss <= generatorLoss-c.Threshold
	pauseGenerator = generatorLoss <= discriminatorLoss-c.Threshold
	return pauseDiscriminator, pauseGenerator
}
