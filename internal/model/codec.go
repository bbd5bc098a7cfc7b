package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"

	"wcmi/internal/nn"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var (
	ErrVersionMismatch = errors.New("model file version mismatch")
	ErrShapeMismatch   = errors.New("model shape mismatch")
)

// VersionedRecord captures schema and codec evolution for persisted
// models.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

type layerRecord struct {
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"`
}

type subnetRecord struct {
	Layers []layerRecord `json:"layers"`
	In     nn.Norm       `json:"in_norm"`
	Out    *nn.Norm      `json:"out_norm,omitempty"`
}

type fileRecord struct {
	VersionedRecord
	Kind      Kind `json:"kind"`
	NumInputs int  `json:"num_inputs"`
	NumLabels int  `json:"num_labels"`
	GanN      int  `json:"gan_n,omitempty"`

	Regression    *subnetRecord `json:"regression,omitempty"`
	Generator     *subnetRecord `json:"generator,omitempty"`
	Discriminator *subnetRecord `json:"discriminator,omitempty"`
}

func encodeSubnet(s *Subnet) *subnetRecord {
	rec := &subnetRecord{In: s.In, Out: s.Out}
	for _, layer := range s.Net.Layers {
		out, in := layer.Weights.Dims()
		weights := make([][]float64, out)
		for i := 0; i < out; i++ {
			weights[i] = make([]float64, in)
			for j := 0; j < in; j++ {
				weights[i][j] = layer.Weights.At(i, j)
			}
		}
		rec.Layers = append(rec.Layers, layerRecord{
			Weights:    weights,
			Bias:       append([]float64(nil), layer.Bias...),
			Activation: layer.Activation,
		})
	}
	return rec
}

func decodeSubnet(rec *subnetRecord) (*Subnet, error) {
	if rec == nil || len(rec.Layers) == 0 {
		return nil, fmt.Errorf("subnet record is empty")
	}
	layers := make([]*nn.DenseLayer, 0, len(rec.Layers))
	for i, lr := range rec.Layers {
		out := len(lr.Weights)
		if out == 0 {
			return nil, fmt.Errorf("layer %d has no weights", i)
		}
		in := len(lr.Weights[0])
		weights := mat.NewDense(out, in, nil)
		for r, row := range lr.Weights {
			if len(row) != in {
				return nil, fmt.Errorf("layer %d has ragged weight rows", i)
			}
			for c, v := range row {
				weights.Set(r, c, v)
			}
		}
		layer, err := nn.NewDenseLayerFromParams(weights, lr.Bias, lr.Activation)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		layers = append(layers, layer)
	}
	for i := 1; i < len(layers); i++ {
		if layers[i].InSize() != layers[i-1].OutSize() {
			return nil, fmt.Errorf("%w: layer %d consumes %d values, previous layer produces %d",
				ErrShapeMismatch, i, layers[i].InSize(), layers[i-1].OutSize())
		}
	}
	return &Subnet{Net: &nn.Network{Layers: layers}, In: rec.In, Out: rec.Out}, nil
}

// Save writes the model to path as versioned JSON.
func (m *Model) Save(path string) error {
	rec := fileRecord{
		VersionedRecord: VersionedRecord{
			SchemaVersion: CurrentSchemaVersion,
			CodecVersion:  CurrentCodecVersion,
		},
		Kind:      m.Kind,
		NumInputs: m.Config.NumInputs,
		NumLabels: m.Config.NumLabels,
		GanN:      m.Config.GanN,
	}
	switch m.Kind {
	case KindRegression:
		rec.Regression = encodeSubnet(m.Regression)
	case KindAdversarial:
		rec.Generator = encodeSubnet(m.Generator)
		rec.Discriminator = encodeSubnet(m.Discriminator)
	default:
		return fmt.Errorf("unknown model kind: %s", m.Kind)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

// Load restores a model from path and verifies it against the expected
// kind and dimensions; an incompatible shape is an error.
func Load(path string, kind Kind, cfg Config) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode model from %s: %w", path, err)
	}
	if rec.SchemaVersion != CurrentSchemaVersion || rec.CodecVersion != CurrentCodecVersion {
		return nil, fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, rec.SchemaVersion, rec.CodecVersion)
	}
	if rec.Kind != kind {
		return nil, fmt.Errorf("%w: model file holds a %s model, want %s", ErrShapeMismatch, rec.Kind, kind)
	}
	if rec.NumInputs != cfg.NumInputs || rec.NumLabels != cfg.NumLabels {
		return nil, fmt.Errorf("%w: model file is built for %d inputs and %d labels, want %d and %d",
			ErrShapeMismatch, rec.NumInputs, rec.NumLabels, cfg.NumInputs, cfg.NumLabels)
	}

	m := &Model{Kind: kind, Config: cfg}
	switch kind {
	case KindRegression:
		m.Regression, err = decodeSubnet(rec.Regression)
		if err != nil {
			return nil, fmt.Errorf("decode regression subnet: %w", err)
		}
		if m.Regression.Net.InSize() != cfg.NumInputs || m.Regression.Net.OutSize() != cfg.NumLabels {
			return nil, fmt.Errorf("%w: regression network is %d -> %d, want %d -> %d", ErrShapeMismatch,
				m.Regression.Net.InSize(), m.Regression.Net.OutSize(), cfg.NumInputs, cfg.NumLabels)
		}
	case KindAdversarial:
		if rec.GanN != cfg.GanN {
			return nil, fmt.Errorf("%w: model file is built for gan_n=%d, want %d", ErrShapeMismatch, rec.GanN, cfg.GanN)
		}
		m.Generator, err = decodeSubnet(rec.Generator)
		if err != nil {
			return nil, fmt.Errorf("decode generator subnet: %w", err)
		}
		m.Discriminator, err = decodeSubnet(rec.Discriminator)
		if err != nil {
			return nil, fmt.Errorf("decode discriminator subnet: %w", err)
		}
		if m.Generator.Net.InSize() != cfg.NumInputs+cfg.GanN || m.Generator.Net.OutSize() != cfg.NumLabels {
			return nil, fmt.Errorf("%w: generator network is %d -> %d, want %d -> %d", ErrShapeMismatch,
				m.Generator.Net.InSize(), m.Generator.Net.OutSize(), cfg.NumInputs+cfg.GanN, cfg.NumLabels)
		}
		if m.Discriminator.Net.InSize() != cfg.NumInputs+cfg.NumLabels || m.Discriminator.Net.OutSize() != 1 {
			return nil, fmt.Errorf("%w: discriminator network is %d -> %d, want %d -> 1", ErrShapeMismatch,
				m.Discriminator.Net.InSize(), m.Discriminator.Net.OutSize(), cfg.NumInputs+cfg.NumLabels)
		}
	default:
		return nil, fmt.Errorf("unknown model kind: %s", kind)
	}
	return m, nil
}
