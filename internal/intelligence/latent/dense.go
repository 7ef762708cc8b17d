package latent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"

	"github.com/turtacn/SeqQuant/internal/domain/polymer"
	"github.com/turtacn/SeqQuant/pkg/errors"
)

const (
	ActivationTanh   = "tanh"
	ActivationReLU   = "relu"
	ActivationLinear = "linear"
)

// DenseWeights is the JSON artifact of a single-layer projection encoder.
// Weights has LatentDim rows of InputRows*InputCols columns.
type DenseWeights struct {
	Name       string      `json:"name"`
	InputRows  int         `json:"input_rows"`
	InputCols  int         `json:"input_cols"`
	LatentDim  int         `json:"latent_dim"`
	Activation string      `json:"activation"`
	Weights    [][]float32 `json:"weights"`
	Bias       []float32   `json:"bias"`
}

// DenseEncoder computes act(W·flatten(x) + b) in process.
type DenseEncoder struct {
	w   DenseWeights
	act func(float32) float32
}

// NewDenseEncoder validates w and builds an encoder over it.
func NewDenseEncoder(w DenseWeights) (*DenseEncoder, error) {
	invalid := func(format string, args ...interface{}) error {
		return errors.New(errors.ErrCodeArtifactInvalid, "invalid dense encoder weights").
			WithDetail(fmt.Sprintf(format, args...))
	}
	if w.InputRows <= 0 || w.InputCols <= 0 || w.LatentDim <= 0 {
		return nil, invalid("non-positive shape %dx%d -> %d", w.InputRows, w.InputCols, w.LatentDim)
	}
	if len(w.Weights) != w.LatentDim {
		return nil, invalid("%d weight rows, latent_dim is %d", len(w.Weights), w.LatentDim)
	}
	in := w.InputRows * w.InputCols
	for i, row := range w.Weights {
		if len(row) != in {
			return nil, invalid("weight row %d has %d columns, want %d", i, len(row), in)
		}
	}
	if len(w.Bias) != w.LatentDim {
		return nil, invalid("bias has %d entries, latent_dim is %d", len(w.Bias), w.LatentDim)
	}

	act, err := activation(w.Activation)
	if err != nil {
		return nil, err
	}
	if w.Name == "" {
		w.Name = "dense"
	}
	return &DenseEncoder{w: w, act: act}, nil
}

func activation(name string) (func(float32) float32, error) {
	switch name {
	case ActivationTanh, "":
		return func(x float32) float32 { return float32(math.Tanh(float64(x))) }, nil
	case ActivationReLU:
		return func(x float32) float32 {
			if x < 0 {
				return 0
			}
			return x
		}, nil
	case ActivationLinear:
		return func(x float32) float32 { return x }, nil
	}
	return nil, errors.New(errors.ErrCodeArtifactInvalid, "unknown activation").WithDetail(name)
}

// LoadDenseEncoder decodes a DenseWeights artifact from r.
func LoadDenseEncoder(r io.Reader) (*DenseEncoder, error) {
	var w DenseWeights
	if err := json.NewDecoder(r).Decode(&w); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeArtifactInvalid, "decode dense encoder weights")
	}
	return NewDenseEncoder(w)
}

// GenerateDenseWeights returns Xavier-uniform weights drawn from seed. The
// same seed always yields the same artifact.
func GenerateDenseWeights(name string, rows, cols, latentDim int, seed int64) DenseWeights {
	rng := rand.New(rand.NewSource(seed))
	in := rows * cols
	limit := math.Sqrt(6 / float64(in+latentDim))
	w := DenseWeights{
		Name:       name,
		InputRows:  rows,
		InputCols:  cols,
		LatentDim:  latentDim,
		Activation: ActivationTanh,
		Weights:    make([][]float32, latentDim),
		Bias:       make([]float32, latentDim),
	}
	for i := range w.Weights {
		row := make([]float32, in)
		for j := range row {
			row[j] = float32((rng.Float64()*2 - 1) * limit)
		}
		w.Weights[i] = row
	}
	return w
}

// SaveDenseWeights writes w as JSON.
func SaveDenseWeights(out io.Writer, w DenseWeights) error {
	return json.NewEncoder(out).Encode(w)
}

func (d *DenseEncoder) Name() string { return d.w.Name }

// LatentDim returns the output vector length.
func (d *DenseEncoder) LatentDim() int { return d.w.LatentDim }

func (d *DenseEncoder) Close() error { return nil }

func (d *DenseEncoder) Infer(ctx context.Context, batch polymer.BatchTensor) ([][]float32, error) {
	if batch.Len() == 0 {
		return nil, emptyBatchError(d.w.Name)
	}
	out := make([][]float32, batch.Len())
	for i, m := range batch.Items {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeTimeout, "dense inference cancelled")
		}
		if m.Rows != d.w.InputRows || m.Cols != d.w.InputCols {
			return nil, errors.New(errors.ErrCodeTensorShapeMismatch, "tensor shape does not match encoder").
				WithDetail(fmt.Sprintf("%s expects %dx%d, item %d is %dx%d",
					d.w.Name, d.w.InputRows, d.w.InputCols, i, m.Rows, m.Cols))
		}
		vec := make([]float32, d.w.LatentDim)
		for k, row := range d.w.Weights {
			sum := d.w.Bias[k]
			for j, x := range m.Data {
				if x != 0 {
					sum += row[j] * x
				}
			}
			vec[k] = d.act(sum)
		}
		out[i] = vec
	}
	return out, nil
}
