package model

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"wcmi/internal/dataset"
	"wcmi/internal/nn"
)

// Kind selects the model family.
type Kind string

const (
	KindRegression  Kind = "regression"
	KindAdversarial Kind = "adversarial"
)

// SubnetSelection picks which adversarial sub-network a forward pass
// drives.
type SubnetSelection int

const (
	GeneratorOnly SubnetSelection = iota
	DiscriminatorOnly
)

// Discriminator target constants.
const (
	RealLabel      = 1.0
	GeneratedLabel = 0.0
)

// Default hidden layout shared by all sub-networks.
var defaultHiddenSizes = []int{64, 64}

// Subnet couples a network with the standardization applied to its raw
// inputs and, when set, the destandardization applied to its outputs.
type Subnet struct {
	Net *nn.Network
	In  nn.Norm
	Out *nn.Norm
}

// Forward standardizes x, runs the network, and destandardizes the
// result, keeping the pass as the implicit target of Backward.
func (s *Subnet) Forward(x *mat.Dense) *mat.Dense {
	out := s.Net.Forward(s.In.Apply(x))
	if s.Out != nil {
		out = s.Out.Invert(out)
	}
	return out
}

// ForwardTape is Forward with an explicit tape for interleaved passes.
func (s *Subnet) ForwardTape(x *mat.Dense) (*mat.Dense, *nn.Tape) {
	out, tape := s.Net.ForwardTape(s.In.Apply(x))
	if s.Out != nil {
		out = s.Out.Invert(out)
	}
	return out, tape
}

// BackwardTape takes the loss gradient with respect to the subnet's raw
// output and returns the gradient with respect to its raw input.
func (s *Subnet) BackwardTape(tape *nn.Tape, gradOut *mat.Dense, accumulate bool) *mat.Dense {
	grad := gradOut
	if s.Out != nil {
		grad = s.Out.GradThroughInvert(grad)
	}
	grad = s.Net.BackwardTape(tape, grad, accumulate)
	return s.In.GradThroughApply(grad)
}

// Config describes the data dimensions a model is built for.
type Config struct {
	NumInputs int // simulation outputs consumed by the network
	NumLabels int // simulation inputs predicted by the network
	GanN      int // latent generation parameters (adversarial only)

	// HiddenSizes overrides the default hidden layout when non-empty.
	HiddenSizes []int
}

func (c Config) hidden() []int {
	if len(c.HiddenSizes) > 0 {
		return c.HiddenSizes
	}
	return defaultHiddenSizes
}

func (c Config) validate(kind Kind) error {
	if c.NumInputs < 1 || c.NumLabels < 1 {
		return fmt.Errorf("model requires at least one input and one label column: %d inputs, %d labels", c.NumInputs, c.NumLabels)
	}
	if kind == KindAdversarial && c.GanN < 1 {
		return fmt.Errorf("adversarial model requires gan_n >= 1, got %d", c.GanN)
	}
	return nil
}

// Model is a tagged variant over the two model families. Exactly the
// fields of the active variant are set.
type Model struct {
	Kind   Kind
	Config Config

	Regression    *Subnet // KindRegression
	Generator     *Subnet // KindAdversarial
	Discriminator *Subnet // KindAdversarial
}

// New constructs a randomly initialized model of the requested kind.
func New(kind Kind, cfg Config, rng *rand.Rand) (*Model, error) {
	if err := cfg.validate(kind); err != nil {
		return nil, err
	}
	m := &Model{Kind: kind, Config: cfg}
	hidden := cfg.hidden()

	switch kind {
	case KindRegression:
		net, err := buildNet(rng, cfg.NumInputs, hidden, cfg.NumLabels, "identity")
		if err != nil {
			return nil, err
		}
		m.Regression = &Subnet{Net: net, Out: &nn.Norm{}}
	case KindAdversarial:
		gen, err := buildNet(rng, cfg.NumInputs+cfg.GanN, hidden, cfg.NumLabels, "identity")
		if err != nil {
			return nil, err
		}
		disc, err := buildNet(rng, cfg.NumInputs+cfg.NumLabels, hidden, 1, "sigmoid")
		if err != nil {
			return nil, err
		}
		m.Generator = &Subnet{Net: gen, Out: &nn.Norm{}}
		m.Discriminator = &Subnet{Net: disc}
	default:
		return nil, fmt.Errorf("unknown model kind: %s", kind)
	}
	return m, nil
}

func buildNet(rng *rand.Rand, in int, hidden []int, out int, outputActivation string) (*nn.Network, error) {
	sizes := make([]int, 0, len(hidden)+2)
	sizes = append(sizes, in)
	sizes = append(sizes, hidden...)
	sizes = append(sizes, out)
	activations := make([]string, 0, len(sizes)-1)
	for i := 0; i < len(hidden); i++ {
		activations = append(activations, "leaky_relu")
	}
	activations = append(activations, outputActivation)
	return nn.NewNetwork(rng, sizes, activations)
}

// SetStats injects freshly computed standardization statistics into the
// model's normalization layers. The generator standardizes only its
// simulation-output columns and passes latent parameters through raw;
// the discriminator standardizes its full (input, label) pair.
func (m *Model) SetStats(inputStats, labelStats dataset.ColumnStats) {
	inNorm := nn.Norm{Mean: inputStats.Mean, Std: inputStats.Std}
	outNorm := nn.Norm{Mean: labelStats.Mean, Std: labelStats.Std}
	switch m.Kind {
	case KindRegression:
		m.Regression.In = inNorm
		m.Regression.Out = &outNorm
	case KindAdversarial:
		m.Generator.In = inNorm
		m.Generator.Out = &outNorm
		pair := dataset.Concat(inputStats, labelStats)
		m.Discriminator.In = nn.Norm{Mean: pair.Mean, Std: pair.Std}
	}
}

// Forward runs the regression network on a batch of inputs.
func (m *Model) Forward(x *mat.Dense) (*mat.Dense, error) {
	if m.Kind != KindRegression {
		return nil, fmt.Errorf("Forward requires a regression model, have %s", m.Kind)
	}
	return m.Regression.Forward(x), nil
}

// ForwardAdversarial runs one adversarial sub-network. For GeneratorOnly,
// conditioning is the latent generation-parameter block; for
// DiscriminatorOnly it is the (real or synthetic) label block.
func (m *Model) ForwardAdversarial(input, conditioning *mat.Dense, mode SubnetSelection) (*mat.Dense, error) {
	if m.Kind != KindAdversarial {
		return nil, fmt.Errorf("ForwardAdversarial requires an adversarial model, have %s", m.Kind)
	}
	joined := HStack(input, conditioning)
	switch mode {
	case GeneratorOnly:
		return m.Generator.Forward(joined), nil
	case DiscriminatorOnly:
		return m.Discriminator.Forward(joined), nil
	default:
		return nil, fmt.Errorf("unknown subnetwork selection: %d", mode)
	}
}

// HStack concatenates two row-aligned matrices column-wise.
func HStack(a, b *mat.Dense) *mat.Dense {
	rows, colsA := a.Dims()
	_, colsB := b.Dims()
	out := mat.NewDense(rows, colsA+colsB, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < colsA; j++ {
			out.Set(i, j, a.At(i, j))
		}
		for j := 0; j < colsB; j++ {
			out.Set(i, colsA+j, b.At(i, j))
		}
	}
	return out
}

