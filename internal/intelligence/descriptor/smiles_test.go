package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SeqQuant/pkg/errors"
)

func TestParseSMILES_Methanol(t *testing.T) {
	m, err := ParseSMILES("OC")
	require.NoError(t, err)
	require.Len(t, m.Atoms, 2)
	require.Len(t, m.Bonds, 1)
	assert.Equal(t, "O", m.Atoms[0].Symbol)
	assert.Equal(t, 1, m.Atoms[0].HCount)
	assert.Equal(t, 3, m.Atoms[1].HCount)
}

func TestParseSMILES_AromaticRing(t *testing.T) {
	m, err := ParseSMILES("c1ccccc1")
	require.NoError(t, err)
	require.Len(t, m.Atoms, 6)
	for _, a := range m.Atoms {
		assert.True(t, a.Aromatic)
		assert.Equal(t, 1, a.HCount)
	}
	for _, b := range m.Bonds {
		assert.Equal(t, BondAromatic, b.Order)
	}
	assert.Len(t, m.Rings(), 1)
}

func TestParseSMILES_BracketAtoms(t *testing.T) {
	m, err := ParseSMILES("C[C@@H](C(=O)[O-])[NH3+]")
	require.NoError(t, err)
	assert.Equal(t, "@@", m.Atoms[1].Chiral)
	assert.Equal(t, 1, m.Atoms[1].HCount)
	assert.Equal(t, -1, m.Atoms[4].Charge)
	assert.Equal(t, 3, m.Atoms[5].HCount)
	assert.Equal(t, 1, m.Atoms[5].Charge)
}

func TestParseSMILES_ExplicitHydrogenMerged(t *testing.T) {
	m, err := ParseSMILES("[H]OC")
	require.NoError(t, err)
	require.Len(t, m.Atoms, 2)
	assert.Equal(t, 1, m.Atoms[0].HCount)
}

func TestParseSMILES_AromaticNitrogenSubstituted(t *testing.T) {
	m, err := ParseSMILES("Cn1ccnc1")
	require.NoError(t, err)
	assert.Equal(t, 0, m.Atoms[1].HCount)
}

func TestParseSMILES_TwoLetterAndPercentRing(t *testing.T) {
	m, err := ParseSMILES("ClC%10CCBr.C%10")
	require.NoError(t, err)
	assert.Equal(t, "Cl", m.Atoms[0].Symbol)
	assert.Equal(t, "Br", m.Atoms[4].Symbol)
	assert.Equal(t, 1, m.Components())
}

func TestParseSMILES_Malformed(t *testing.T) {
	for _, s := range []string{"", "   ", "C1CC", "C(C", "C)", "[Xx]", "C==C", "Q", "C1C1", "(C)", "[C", "C=", "%1"} {
		t.Run(s, func(t *testing.T) {
			_, err := ParseSMILES(s)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedStructure), "got %v", err)
		})
	}
}

func TestRings_Fused(t *testing.T) {
	m, err := ParseSMILES("c1ccc2ccccc2c1")
	require.NoError(t, err)
	rings := m.Rings()
	require.Len(t, rings, 2)
	assert.Len(t, rings[0], 6)
	assert.Len(t, rings[1], 6)
}

func TestRings_Acyclic(t *testing.T) {
	m, err := ParseSMILES("CCCC")
	require.NoError(t, err)
	assert.Empty(t, m.Rings())
	assert.False(t, m.AtomInRing(0))
	assert.False(t, m.BondInRing(0))
}

func TestParseSMILES_BracketElementsBeyondOrganicSubset(t *testing.T) {
	for sym, num := range map[string]int{"[He]": 2, "[Mn+2]": 25, "[Co]": 27, "[Ag+]": 47, "[Hg]": 80, "[W]": 74} {
		m, err := ParseSMILES(sym)
		require.NoError(t, err, sym)
		assert.Equal(t, num, m.Atoms[0].Num, sym)
	}
	m, err := ParseSMILES("[Mn+2]")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Atoms[0].Charge)

	// Bracket-only elements are still rejected outside brackets.
	_, err = ParseSMILES("Mn")
	assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedStructure))
}
