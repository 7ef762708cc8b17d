package descriptor

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/turtacn/SeqQuant/pkg/errors"
)

// Scaler normalises raw descriptor vectors feature by feature.
type Scaler interface {
	Transform(raw []float64) ([]float64, error)
	// Dim is the expected input and output length.
	Dim() int
}

const (
	ScalerKindMinMax   = "minmax"
	ScalerKindStandard = "standard"
)

// MinMaxScaler maps each feature to (x-min)/(max-min). A zero range is
// treated as one and no clipping is applied.
type MinMaxScaler struct {
	FeatureNames []string
	DataMin      []float64
	DataMax      []float64
}

// FitMinMax fits a MinMaxScaler over rows. All rows must have equal length.
func FitMinMax(rows [][]float64, names []string) (*MinMaxScaler, error) {
	if len(rows) == 0 {
		return nil, errors.New(errors.ErrCodeScalerDimensionInvalid, "cannot fit scaler on zero rows")
	}
	dim := len(rows[0])
	s := &MinMaxScaler{
		FeatureNames: append([]string(nil), names...),
		DataMin:      make([]float64, dim),
		DataMax:      make([]float64, dim),
	}
	for j := 0; j < dim; j++ {
		s.DataMin[j] = math.Inf(1)
		s.DataMax[j] = math.Inf(-1)
	}
	for i, row := range rows {
		if len(row) != dim {
			return nil, errors.New(errors.ErrCodeScalerDimensionInvalid, "ragged scaler input").
				WithDetail(fmt.Sprintf("row %d has %d features, want %d", i, len(row), dim))
		}
		for j, x := range row {
			s.DataMin[j] = math.Min(s.DataMin[j], x)
			s.DataMax[j] = math.Max(s.DataMax[j], x)
		}
	}
	return s, nil
}

func (s *MinMaxScaler) Dim() int { return len(s.DataMin) }

func (s *MinMaxScaler) Transform(raw []float64) ([]float64, error) {
	if err := checkDim(len(raw), s.Dim()); err != nil {
		return nil, err
	}
	out := make([]float64, len(raw))
	for j, x := range raw {
		rng := s.DataMax[j] - s.DataMin[j]
		if rng == 0 {
			rng = 1
		}
		out[j] = (x - s.DataMin[j]) / rng
	}
	return out, nil
}

// StandardScaler maps each feature to (x-mean)/scale; a zero scale is
// treated as one.
type StandardScaler struct {
	FeatureNames []string
	Mean         []float64
	Scale        []float64
}

func (s *StandardScaler) Dim() int { return len(s.Mean) }

func (s *StandardScaler) Transform(raw []float64) ([]float64, error) {
	if err := checkDim(len(raw), s.Dim()); err != nil {
		return nil, err
	}
	out := make([]float64, len(raw))
	for j, x := range raw {
		sc := s.Scale[j]
		if sc == 0 {
			sc = 1
		}
		out[j] = (x - s.Mean[j]) / sc
	}
	return out, nil
}

func checkDim(got, want int) error {
	if got != want {
		return errors.New(errors.ErrCodeScalerDimensionInvalid, "descriptor length does not match scaler").
			WithDetail(fmt.Sprintf("got %d features, scaler expects %d", got, want))
	}
	return nil
}

// scalerArtifact is the on-disk JSON form of a fitted scaler.
type scalerArtifact struct {
	Kind         string    `json:"kind"`
	FeatureNames []string  `json:"feature_names,omitempty"`
	DataMin      []float64 `json:"data_min,omitempty"`
	DataMax      []float64 `json:"data_max,omitempty"`
	Mean         []float64 `json:"mean,omitempty"`
	Scale        []float64 `json:"scale,omitempty"`
}

// LoadScaler decodes a scaler artifact.
func LoadScaler(r io.Reader) (Scaler, error) {
	var a scalerArtifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeArtifactInvalid, "decode scaler artifact")
	}
	switch a.Kind {
	case ScalerKindMinMax, "":
		if len(a.DataMin) == 0 || len(a.DataMin) != len(a.DataMax) {
			return nil, errors.New(errors.ErrCodeArtifactInvalid, "minmax scaler needs equal-length data_min and data_max")
		}
		return &MinMaxScaler{FeatureNames: a.FeatureNames, DataMin: a.DataMin, DataMax: a.DataMax}, nil
	case ScalerKindStandard:
		if len(a.Mean) == 0 || len(a.Mean) != len(a.Scale) {
			return nil, errors.New(errors.ErrCodeArtifactInvalid, "standard scaler needs equal-length mean and scale")
		}
		return &StandardScaler{FeatureNames: a.FeatureNames, Mean: a.Mean, Scale: a.Scale}, nil
	default:
		return nil, errors.New(errors.ErrCodeArtifactInvalid, "unknown scaler kind").WithDetail(a.Kind)
	}
}

// SaveScaler encodes s as a scaler artifact.
func SaveScaler(w io.Writer, s Scaler) error {
	var a scalerArtifact
	switch v := s.(type) {
	case *MinMaxScaler:
		a = scalerArtifact{Kind: ScalerKindMinMax, FeatureNames: v.FeatureNames, DataMin: v.DataMin, DataMax: v.DataMax}
	case *StandardScaler:
		a = scalerArtifact{Kind: ScalerKindStandard, FeatureNames: v.FeatureNames, Mean: v.Mean, Scale: v.Scale}
	default:
		return errors.New(errors.ErrCodeArtifactInvalid, "unsupported scaler type").WithDetail(fmt.Sprintf("%T", s))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}
