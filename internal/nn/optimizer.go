package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SGDConfig holds stochastic gradient descent hyperparameters. The update
// rule matches the reference semantics: with weight decay the gradient
// becomes g + wd*p; with momentum the buffer is b = m*b + (1-dampening)*g
// and the step uses b, or g + m*b under Nesterov.
type SGDConfig struct {
	LearningRate float64
	Momentum     float64
	WeightDecay  float64
	Dampening    float64
	Nesterov     bool
}

func DefaultSGDConfig() SGDConfig {
	return SGDConfig{
		LearningRate: 0.001,
		Momentum:     0.9,
	}
}

func (c SGDConfig) Validate() error {
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive: %g", c.LearningRate)
	}
	if c.Momentum < 0 {
		return fmt.Errorf("momentum cannot be negative: %g", c.Momentum)
	}
	if c.Nesterov && (c.Momentum == 0 || c.Dampening != 0) {
		return fmt.Errorf("nesterov momentum requires momentum > 0 and zero dampening")
	}
	return nil
}

// SGD updates one network's parameters from its accumulated gradients. It
// never clears gradients; the caller owns gradient lifetime.
type SGD struct {
	Config SGDConfig

	net          *Network
	weightBuffer []*mat.Dense
	biasBuffer   [][]float64
	stepCount    uint64
}

func NewSGD(config SGDConfig, net *Network) (*SGD, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if net == nil {
		return nil, fmt.Errorf("optimizer requires a network")
	}
	opt := &SGD{Config: config, net: net}
	if config.Momentum != 0 {
		opt.weightBuffer = make([]*mat.Dense, len(net.Layers))
		opt.biasBuffer = make([][]float64, len(net.Layers))
		for i, layer := range net.Layers {
			out, in := layer.Weights.Dims()
			opt.weightBuffer[i] = mat.NewDense(out, in, nil)
			opt.biasBuffer[i] = make([]float64, out)
		}
	}
	return opt, nil
}

func (o *SGD) StepCount() uint64 { return o.stepCount }

func (o *SGD) ZeroGrad() { o.net.ZeroGrad() }

// Step applies one update to every parameter of the bound network.
func (o *SGD) Step() {
	for li, layer := range o.net.Layers {
		out, in := layer.Weights.Dims()
		for i := 0; i < out; i++ {
			for j := 0; j < in; j++ {
				g := layer.gradWeights.At(i, j)
				p := layer.Weights.At(i, j)
				g += o.Config.WeightDecay * p
				if o.Config.Momentum != 0 {
					b := o.Config.Momentum*o.weightBuffer[li].At(i, j) + (1-o.Config.Dampening)*g
					o.weightBuffer[li].Set(i, j, b)
					if o.Config.Nesterov {
						g += o.Config.Momentum * b
					} else {
						g = b
					}
				}
				layer.Weights.Set(i, j, p-o.Config.LearningRate*g)
			}
			g := layer.gradBias[i]
			g += o.Config.WeightDecay * layer.Bias[i]
			if o.Config.Momentum != 0 {
				b := o.Config.Momentum*o.biasBuffer[li][i] + (1-o.Config.Dampening)*g
				o.biasBuffer[li][i] = b
				if o.Config.Nesterov {
					g += o.Config.Momentum * b
				} else {
					g = b
				}
			}
			layer.Bias[i] -= o.Config.LearningRate * g
		}
	}
	o.stepCount++
}
