package nn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// DenseLayer is a fully connected layer.
type DenseLayer struct {
	Weights    *mat.Dense // out x in
	Bias       []float64
	Activation string

	fn    ActivationFunc
	deriv ActivationFunc

	gradWeights *mat.Dense
	gradBias    []float64
}

// NewDenseLayer builds a layer with Xavier-initialized weights drawn from
// the supplied source.
func NewDenseLayer(rng *rand.Rand, in, out int, activation string) (*DenseLayer, error) {
	layer, err := newDenseLayer(in, out, activation)
	if err != nil {
		return nil, err
	}
	limit := math.Sqrt(6.0 / float64(in+out))
	for i := 0; i < out; i++ {
		for j := 0; j < in; j++ {
			layer.Weights.Set(i, j, (2*rng.Float64()-1)*limit)
		}
	}
	return layer, nil
}

// NewDenseLayerFromParams builds a layer around existing parameters,
// e.g. restored from a model file.
func NewDenseLayerFromParams(weights *mat.Dense, bias []float64, activation string) (*DenseLayer, error) {
	out, in := weights.Dims()
	if len(bias) != out {
		return nil, fmt.Errorf("bias length %d does not match %d output units", len(bias), out)
	}
	layer, err := newDenseLayer(in, out, activation)
	if err != nil {
		return nil, err
	}
	layer.Weights.Copy(weights)
	copy(layer.Bias, bias)
	return layer, nil
}

func newDenseLayer(in, out int, activation string) (*DenseLayer, error) {
	fn, deriv, err := GetActivation(activation)
	if err != nil {
		return nil, err
	}
	return &DenseLayer{
		Weights:     mat.NewDense(out, in, nil),
		Bias:        make([]float64, out),
		Activation:  activation,
		fn:          fn,
		deriv:       deriv,
		gradWeights: mat.NewDense(out, in, nil),
		gradBias:    make([]float64, out),
	}, nil
}

func (l *DenseLayer) InSize() int  { _, in := l.Weights.Dims(); return in }
func (l *DenseLayer) OutSize() int { out, _ := l.Weights.Dims(); return out }

// layerTape records one layer's forward pass so it can be backpropagated
// later, after other passes have run through the same layer.
type layerTape struct {
	input *mat.Dense // batch x in
	pre   *mat.Dense // batch x out
}

func (l *DenseLayer) forward(x *mat.Dense) (*mat.Dense, layerTape) {
	batch, _ := x.Dims()
	out := l.OutSize()

	pre := mat.NewDense(batch, out, nil)
	pre.Mul(x, l.Weights.T())
	for i := 0; i < batch; i++ {
		for j := 0; j < out; j++ {
			pre.Set(i, j, pre.At(i, j)+l.Bias[j])
		}
	}

	activated := mat.NewDense(batch, out, nil)
	for i := 0; i < batch; i++ {
		for j := 0; j < out; j++ {
			activated.Set(i, j, l.fn(pre.At(i, j)))
		}
	}
	return activated, layerTape{input: mat.DenseCopyOf(x), pre: pre}
}

// backward turns the gradient with respect to this layer's activated
// output into the gradient with respect to its input. Parameter gradients
// are accumulated only when accumulate is set, which lets an adversarial
// generator's loss flow through the discriminator without updating it.
func (l *DenseLayer) backward(tape layerTape, gradOut *mat.Dense, accumulate bool) *mat.Dense {
	batch, out := gradOut.Dims()

	delta := mat.NewDense(batch, out, nil)
	for i := 0; i < batch; i++ {
		for j := 0; j < out; j++ {
			delta.Set(i, j, gradOut.At(i, j)*l.deriv(tape.pre.At(i, j)))
		}
	}

	if accumulate {
		var gradW mat.Dense
		gradW.Mul(delta.T(), tape.input)
		l.gradWeights.Add(l.gradWeights, &gradW)
		for i := 0; i < batch; i++ {
			for j := 0; j < out; j++ {
				l.gradBias[j] += delta.At(i, j)
			}
		}
	}

	gradIn := mat.NewDense(batch, l.InSize(), nil)
	gradIn.Mul(delta, l.Weights)
	return gradIn
}

func (l *DenseLayer) zeroGrad() {
	l.gradWeights.Zero()
	for j := range l.gradBias {
		l.gradBias[j] = 0
	}
}

// Tape is the recorded computation of one forward pass through a network.
// It stays valid until discarded, so multiple passes can be interleaved
// and backpropagated in any order.
type Tape struct {
	steps []layerTape
}

// Network is a plain feed-forward stack of dense layers.
type Network struct {
	Layers []*DenseLayer

	lastTape *Tape
}

// NewNetwork builds a network from consecutive layer sizes. activations
// must name one activation per layer (len(sizes)-1 entries).
func NewNetwork(rng *rand.Rand, sizes []int, activations []string) (*Network, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("network requires at least an input and an output size")
	}
	if len(activations) != len(sizes)-1 {
		return nil, fmt.Errorf("network with %d layers requires %d activations, got %d",
			len(sizes)-1, len(sizes)-1, len(activations))
	}
	net := &Network{Layers: make([]*DenseLayer, 0, len(sizes)-1)}
	for i := 0; i < len(sizes)-1; i++ {
		layer, err := NewDenseLayer(rng, sizes[i], sizes[i+1], activations[i])
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		net.Layers = append(net.Layers, layer)
	}
	return net, nil
}

func (n *Network) InSize() int  { return n.Layers[0].InSize() }
func (n *Network) OutSize() int { return n.Layers[len(n.Layers)-1].OutSize() }

// ForwardTape runs a forward pass and returns its tape for later
// backpropagation.
func (n *Network) ForwardTape(x *mat.Dense) (*mat.Dense, *Tape) {
	tape := &Tape{steps: make([]layerTape, len(n.Layers))}
	out := x
	for i, layer := range n.Layers {
		out, tape.steps[i] = layer.forward(out)
	}
	return out, tape
}

// Forward runs a forward pass and keeps its tape as the implicit target
// of the next Backward call.
func (n *Network) Forward(x *mat.Dense) *mat.Dense {
	out, tape := n.ForwardTape(x)
	n.lastTape = tape
	return out
}

// Backward propagates the loss gradient through the most recent Forward
// pass, accumulating parameter gradients, and returns the gradient with
// respect to the network input.
func (n *Network) Backward(gradOut *mat.Dense) *mat.Dense {
	return n.BackwardTape(n.lastTape, gradOut, true)
}

// BackwardTape propagates the loss gradient through a recorded pass.
// Parameter gradients are accumulated only when accumulate is set.
func (n *Network) BackwardTape(tape *Tape, gradOut *mat.Dense, accumulate bool) *mat.Dense {
	if tape == nil {
		panic("nn: Backward before Forward")
	}
	grad := gradOut
	for i := len(n.Layers) - 1; i >= 0; i-- {
		grad = n.Layers[i].backward(tape.steps[i], grad, accumulate)
	}
	return grad
}

func (n *Network) ZeroGrad() {
	for _, layer := range n.Layers {
		layer.zeroGrad()
	}
}
