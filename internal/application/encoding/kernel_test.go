package encoding

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SeqQuant/internal/domain/polymer"
	"github.com/turtacn/SeqQuant/internal/intelligence/latent"
	"github.com/turtacn/SeqQuant/pkg/errors"
)

// recordingEncoder returns each item's first column sum and counts calls.
type recordingEncoder struct {
	name  string
	calls int32
	last  polymer.BatchTensor
}

func (r *recordingEncoder) Infer(_ context.Context, b polymer.BatchTensor) ([][]float32, error) {
	atomic.AddInt32(&r.calls, 1)
	r.last = b
	out := make([][]float32, b.Len())
	for i, m := range b.Items {
		var sum float32
		for _, v := range m.Data {
			sum += v
		}
		out[i] = []float32{sum, float32(i)}
	}
	return out, nil
}

func (r *recordingEncoder) Name() string { return r.name }
func (r *recordingEncoder) Close() error { return nil }

func newTestDispatcher() (*latent.Dispatcher, *recordingEncoder, *recordingEncoder) {
	p := &recordingEncoder{name: "protein"}
	a := &recordingEncoder{name: "aptamer"}
	return latent.NewDispatcher(latent.StaticHandle(p), latent.StaticHandle(a)), p, a
}

func newKernel(t *testing.T, pt polymer.PolymerType, monomers ...polymer.NewMonomerRequest) (*Kernel, *recordingEncoder, *recordingEncoder) {
	t.Helper()
	d, p, a := newTestDispatcher()
	k, err := NewKernel(context.Background(), pt, monomers, WithDispatcher(d))
	require.NoError(t, err)
	return k, p, a
}

func TestNewKernel_Metadata(t *testing.T) {
	cases := []struct {
		pt      polymer.PolymerType
		rows    int
		symbols string
	}{
		{polymer.PolymerProtein, 46, "ACDEFGHIKLMNPQRSTVWY"},
		{polymer.PolymerProteinForAptamer, 43, "ACDEFGHIKLMNPQRSTVWY"},
		{polymer.PolymerDNA, 43, "ACGT"},
		{polymer.PolymerRNA, 43, "ACGU"},
	}
	for _, tc := range cases {
		t.Run(string(tc.pt), func(t *testing.T) {
			k, _, _ := newKernel(t, tc.pt)
			assert.Equal(t, 96, k.MaxSequenceLength())
			assert.Equal(t, tc.rows, k.NumOfDescriptors())
			assert.Equal(t, tc.symbols, strings.Join(k.KnownMonomers(), ""))

			info := k.Info()
			assert.Equal(t, tc.pt, info.PolymerType)
			assert.Equal(t, tc.rows, info.NumOfDescriptors)
			assert.Equal(t, 96, info.MaxSequenceLength)
		})
	}
}

func TestNewKernel_UnknownPolymerType(t *testing.T) {
	_, err := NewKernel(context.Background(), "peptoid", nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownPolymerType))
}

func TestNewKernel_RegistriesAreIsolated(t *testing.T) {
	k1, _, _ := newKernel(t, polymer.PolymerDNA, polymer.NewMonomerRequest{Name: "x", SMILES: "OC"})
	k2, _, _ := newKernel(t, polymer.PolymerDNA)

	assert.Contains(t, k1.KnownMonomers(), "X")
	assert.NotContains(t, k2.KnownMonomers(), "X")
}

func TestEncodeOne_ShapeAndPadding(t *testing.T) {
	k, _, _ := newKernel(t, polymer.PolymerRNA)
	m, err := k.EncodeOne("ACG")
	require.NoError(t, err)
	assert.Equal(t, 43, m.Rows)
	assert.Equal(t, 96, m.Cols)

	for col, sym := range []string{"A", "C", "G"} {
		vec, _ := k.registry.Vector(sym)
		for row := range vec {
			assert.Equal(t, float32(vec[row]), m.At(row, col))
		}
	}
	for row := 0; row < m.Rows; row++ {
		for col := 3; col < m.Cols; col++ {
			require.Zero(t, m.At(row, col))
		}
	}

	again, err := k.EncodeOne("ACG")
	require.NoError(t, err)
	assert.Equal(t, m.Bytes(), again.Bytes())
}

func TestEncodeOne_Limits(t *testing.T) {
	k, _, _ := newKernel(t, polymer.PolymerProtein)

	full, err := k.EncodeOne(strings.Repeat("W", 96))
	require.NoError(t, err)
	assert.Equal(t, 46, full.Rows)

	_, err = k.EncodeOne(strings.Repeat("W", 97))
	assert.True(t, errors.IsCode(err, errors.ErrCodeSequenceTooLong))
	_, err = k.EncodeOne("AB")
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownMonomer))
}

func TestEncodeBatch_StacksInOrder(t *testing.T) {
	k, _, _ := newKernel(t, polymer.PolymerDNA)
	batch, err := k.EncodeBatch([]string{"A", "TT", "GCA"})
	require.NoError(t, err)
	n, rows, cols := batch.Shape()
	assert.Equal(t, [3]int{3, 43, 96}, [3]int{n, rows, cols})

	second, _ := k.EncodeOne("TT")
	assert.Equal(t, second.Data, batch.Items[1].Data)
}

func TestRegisterMonomers_AptamerScenario(t *testing.T) {
	k, protein, aptamer := newKernel(t, polymer.PolymerProteinForAptamer, polymer.NewMonomerRequest{Name: "X", SMILES: "OC"})

	assert.Contains(t, k.KnownMonomers(), "X")
	res, err := k.GenerateLatentRepresentations(context.Background(), []string{"CGX"}, false, polymer.StrategyAptamer)
	require.NoError(t, err)

	assert.Equal(t, []string{"CGX"}, res.Keys())
	assert.Equal(t, int32(1), aptamer.calls)
	assert.Zero(t, protein.calls)
	rows := aptamer.last.Items[0].Rows
	assert.Equal(t, 43, rows)
}

func TestRegisterMonomers_ProteinKernelDimensionMismatch(t *testing.T) {
	_, err := NewKernel(context.Background(), polymer.PolymerProtein,
		[]polymer.NewMonomerRequest{{Name: "X", SMILES: "OC"}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDimensionMismatch))

	k, _, _ := newKernel(t, polymer.PolymerProtein)
	err = k.RegisterMonomers([]polymer.NewMonomerRequest{{Name: "X", SMILES: "OC"}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeDimensionMismatch))
	assert.NotContains(t, k.KnownMonomers(), "X")
}

func TestRegisterMonomers_ConflictLeavesSetUnchanged(t *testing.T) {
	k, _, _ := newKernel(t, polymer.PolymerDNA)
	before := k.KnownMonomers()

	err := k.RegisterMonomers([]polymer.NewMonomerRequest{{Name: "Z", SMILES: "OC"}, {Name: "a", SMILES: "CC"}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMonomerConflict))
	assert.Contains(t, err.Error(), "monomer A already exists in kernel")
	assert.Equal(t, before, k.KnownMonomers())

	err = k.RegisterMonomers([]polymer.NewMonomerRequest{{Name: "Z", SMILES: "OC"}, {Name: "z", SMILES: "CC"}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeMonomerConflict))
	assert.Equal(t, before, k.KnownMonomers())

	require.NoError(t, k.RegisterMonomers([]polymer.NewMonomerRequest{{Name: "Z", SMILES: "OC"}}))
	err = k.RegisterMonomers([]polymer.NewMonomerRequest{{Name: "Z", SMILES: "CC"}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeMonomerConflict))
}

func TestRegisterMonomers_ValidationAndMalformed(t *testing.T) {
	k, _, _ := newKernel(t, polymer.PolymerRNA)
	before := k.KnownMonomers()

	err := k.RegisterMonomers([]polymer.NewMonomerRequest{{Name: "XY", SMILES: "OC"}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidMonomerName))

	err = k.RegisterMonomers([]polymer.NewMonomerRequest{{Name: "X", SMILES: "OC"}, {Name: "Z", SMILES: "C1CC"}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedStructure))
	assert.Equal(t, before, k.KnownMonomers())
}

func TestGenerate_StrictLengthViolationSkipsInference(t *testing.T) {
	k, protein, _ := newKernel(t, polymer.PolymerProtein)
	long := strings.Repeat("A", 183)

	_, err := k.GenerateLatentRepresentations(context.Background(), []string{"ACD", long}, false, polymer.StrategyProtein)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSequenceTooLong))
	assert.Contains(t, err.Error(), "sequence length exceeds the maximum = 96: "+long+". Set skip_unprocessable to true or exclude it")
	assert.Zero(t, protein.calls)
}

func TestGenerate_StrictUnknownMonomer(t *testing.T) {
	k, protein, _ := newKernel(t, polymer.PolymerDNA)
	_, err := k.GenerateLatentRepresentations(context.Background(), []string{"acgu"}, false, polymer.StrategyProtein)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownMonomer))
	assert.Contains(t, err.Error(), "unknown monomers in sequence: ACGU. You can fix it with: 1) adding new monomer in kernel")
	assert.Zero(t, protein.calls)
}

func TestGenerate_StrictRejectionsAreCounted(t *testing.T) {
	d, protein, _ := newTestDispatcher()
	m := &fakeMetrics{}
	k, err := NewKernel(context.Background(), polymer.PolymerDNA, nil, WithDispatcher(d), WithMetrics(m))
	require.NoError(t, err)

	_, err = k.GenerateLatentRepresentations(context.Background(), []string{"", "ACGT", strings.Repeat("A", 97)}, false, polymer.StrategyProtein)
	require.Error(t, err)
	_, err = k.GenerateLatentRepresentations(context.Background(), []string{"ACGU"}, false, polymer.StrategyProtein)
	require.Error(t, err)

	assert.Equal(t, 1, m.filtered[StageEmpty])
	assert.Equal(t, 1, m.filtered[StageLength])
	assert.Equal(t, 1, m.filtered[StageVocabulary])
	assert.Zero(t, protein.calls)
}

func TestGenerate_SkipKeepsValidInOrder(t *testing.T) {
	k, protein, _ := newKernel(t, polymer.PolymerProtein)
	input := []string{"wyv", strings.Repeat("A", 97), "", "AZB", "MKT", "wyv"}

	res, err := k.GenerateLatentRepresentations(context.Background(), input, true, polymer.StrategyProtein)
	require.NoError(t, err)
	assert.Equal(t, []string{"WYV", "MKT"}, res.Keys())
	assert.Equal(t, int32(1), protein.calls)
	assert.Equal(t, 2, protein.last.Len())
}

func TestGenerate_NothingSurvivesReturnsEmpty(t *testing.T) {
	k, protein, aptamer := newKernel(t, polymer.PolymerRNA)
	res, err := k.GenerateLatentRepresentations(context.Background(), []string{"XXX", "", strings.Repeat("A", 200)}, true, polymer.StrategyAptamer)
	require.NoError(t, err)
	assert.Zero(t, res.Len())
	assert.Zero(t, protein.calls+aptamer.calls)

	b, err := res.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(b))
}

func TestGenerate_RepeatableWithDenseEncoder(t *testing.T) {
	w := latent.GenerateDenseWeights("dense", 43, 96, 8, 11)
	enc, err := latent.NewDenseEncoder(w)
	require.NoError(t, err)
	d := latent.NewDispatcher(latent.StaticHandle(enc), latent.StaticHandle(enc))

	k, err := NewKernel(context.Background(), polymer.PolymerDNA, nil, WithDispatcher(d))
	require.NoError(t, err)

	first, err := k.GenerateLatentRepresentations(context.Background(), []string{"ACGT", "GGA"}, false, polymer.StrategyAptamer)
	require.NoError(t, err)
	second, err := k.GenerateLatentRepresentations(context.Background(), []string{"ACGT", "GGA"}, false, polymer.StrategyAptamer)
	require.NoError(t, err)

	a, _ := first.MarshalJSON()
	b, _ := second.MarshalJSON()
	assert.Equal(t, a, b)
	v, ok := first.Get("GGA")
	require.True(t, ok)
	assert.Len(t, v, 8)
}

func TestGenerate_InferenceFailurePropagates(t *testing.T) {
	failing := &latent.FuncEncoder{EncoderName: "broken", Fn: func(context.Context, polymer.BatchTensor) ([][]float32, error) {
		return nil, context.DeadlineExceeded
	}}
	d := latent.NewDispatcher(latent.StaticHandle(failing), latent.StaticHandle(failing))
	k, err := NewKernel(context.Background(), polymer.PolymerDNA, nil, WithDispatcher(d))
	require.NoError(t, err)

	_, err = k.GenerateLatentRepresentations(context.Background(), []string{"ACGT"}, false, polymer.StrategyProtein)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInferenceFailed))
}

func TestGenerate_WithoutDispatcher(t *testing.T) {
	k, err := NewKernel(context.Background(), polymer.PolymerDNA, nil)
	require.NoError(t, err)
	_, err = k.GenerateLatentRepresentations(context.Background(), []string{"ACGT"}, false, polymer.StrategyProtein)
	assert.True(t, errors.IsCode(err, errors.ErrCodeEncoderNotLoaded))
}
