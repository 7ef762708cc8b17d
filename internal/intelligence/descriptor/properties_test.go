package descriptor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func props(t *testing.T, smiles string) *Properties {
	t.Helper()
	m, err := ParseSMILES(smiles)
	require.NoError(t, err)
	return ComputeProperties(m)
}

func TestComputeProperties_Methanol(t *testing.T) {
	p := props(t, "OC")

	assert.InDelta(t, 32.026, p.ExactMW, 1e-3)
	assert.InDelta(t, 32.042, p.AMW, 1e-2)
	assert.Equal(t, 2.0, p.NumHeavyAtoms)
	assert.Equal(t, 6.0, p.NumAtoms)
	assert.Equal(t, 1.0, p.NumHeteroatoms)
	assert.Equal(t, 1.0, p.LipinskiHBA)
	assert.Equal(t, 1.0, p.LipinskiHBD)
	assert.Equal(t, 1.0, p.NumHBD)
	assert.Equal(t, 1.0, p.NumHBA)
	assert.Equal(t, 1.0, p.FractionCSP3)
	assert.InDelta(t, 20.23, p.TPSA, 1e-9)
	assert.InDelta(t, -0.3915, p.CrippenClogP, 1e-4)
	assert.Zero(t, p.NumRings)
	assert.Greater(t, p.LabuteASA, 0.0)
}

func TestComputeProperties_AlanineTPSAAndStereo(t *testing.T) {
	p := props(t, "C[C@@H](C(=O)O)N")

	assert.InDelta(t, 63.32, p.TPSA, 1e-9)
	assert.Equal(t, 1.0, p.NumAtomStereoCenters)
	assert.Zero(t, p.NumUnspecifiedAtomStereoCenters)
	assert.Equal(t, 3.0, p.LipinskiHBD)
}

func TestComputeProperties_UnspecifiedStereo(t *testing.T) {
	assert.Equal(t, 1.0, props(t, "CC(O)CC").NumUnspecifiedAtomStereoCenters)
	assert.Zero(t, props(t, "CC(C)O").NumUnspecifiedAtomStereoCenters)
}

func TestComputeProperties_AmideAndRotatable(t *testing.T) {
	p := props(t, "CC(=O)NC")
	assert.Equal(t, 1.0, p.NumAmideBonds)
	assert.Zero(t, p.NumRotatableBonds)

	assert.Equal(t, 2.0, props(t, "CCCCC").NumRotatableBonds)
}

func TestComputeProperties_RingClasses(t *testing.T) {
	cyclohexane := props(t, "C1CCCCC1")
	assert.Equal(t, 1.0, cyclohexane.NumRings)
	assert.Equal(t, 1.0, cyclohexane.NumAliphaticRings)
	assert.Equal(t, 1.0, cyclohexane.NumSaturatedRings)
	assert.Zero(t, cyclohexane.NumHeterocycles)

	pyridine := props(t, "c1ccncc1")
	assert.Equal(t, 1.0, pyridine.NumAromaticRings)
	assert.Equal(t, 1.0, pyridine.NumAromaticHeterocycles)
	assert.Zero(t, pyridine.NumSaturatedRings)

	piperidine := props(t, "C1CCNCC1")
	assert.Equal(t, 1.0, piperidine.NumSaturatedHeterocycles)
	assert.Equal(t, 1.0, piperidine.NumAliphaticHeterocycles)

	assert.Equal(t, 1.0, props(t, "C1CCC2(CC1)CCC2").NumSpiroAtoms)
	assert.Equal(t, 2.0, props(t, "C1CC2CCC1C2").NumBridgeheadAtoms)
}

func TestComputeProperties_ConnectivityIndices(t *testing.T) {
	ethane := props(t, "CC")
	assert.InDelta(t, 2.0, ethane.ChiV[0], 1e-9)
	assert.InDelta(t, 1.0, ethane.ChiV[1], 1e-9)
	assert.Zero(t, ethane.ChiV[2])
	assert.InDelta(t, 2.0, ethane.Kappa[0], 1e-9)

	benzene := props(t, "c1ccccc1")
	assert.InDelta(t, -0.78, benzene.HallKierAlpha, 1e-9)
	assert.Greater(t, benzene.ChiN[4], 0.0)
}

func TestProperties_VectorOrder(t *testing.T) {
	p := props(t, "OC")
	v := p.Vector()
	require.Len(t, v, NumProperties)
	assert.Equal(t, p.ExactMW, v[0])
	assert.Equal(t, p.TPSA, v[25])
	assert.Equal(t, p.Phi, v[NumProperties-1])
	assert.Equal(t, "tpsa", Names[25])
}

func TestCalculator_CachesAndCopies(t *testing.T) {
	c := NewPropertiesCalculator()
	a, err := c.Compute("OC")
	require.NoError(t, err)
	a[0] = -1

	b, err := c.Compute("OC")
	require.NoError(t, err)
	assert.NotEqual(t, -1.0, b[0])
	assert.Len(t, c.Names(), NumProperties)

	_, err = c.Compute("C1CC")
	assert.Error(t, err)
}

func TestComputeProperties_BracketOnlyElements(t *testing.T) {
	tests := []struct {
		smiles string
		mw     float64
	}{
		{"[He]", 4.0026},
		{"[Mn+2]", 54.9380},
		{"[Co]", 58.9332},
		{"C[Sn](C)(C)C", 4*15.0235 + 119.9022},
		{"Cl[Pt]Cl", 2*34.9689 + 194.9648},
	}
	for _, tt := range tests {
		t.Run(tt.smiles, func(t *testing.T) {
			p := props(t, tt.smiles)
			assert.InDelta(t, tt.mw, p.ExactMW, 1e-2)
			for i, v := range p.Vector() {
				assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "%s = %v", Names[i], v)
			}
		})
	}
}
