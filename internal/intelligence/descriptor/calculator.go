package descriptor

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Calculator maps a chemical structure to a fixed-length raw descriptor
// vector.
type Calculator interface {
	Compute(smiles string) ([]float64, error)
	Names() []string
}

// DefaultCacheSize bounds the number of memoised structures.
const DefaultCacheSize = 4096

type propertiesCalculator struct {
	cache *lru.Cache[string, []float64]
}

// NewPropertiesCalculator returns the default Calculator producing the
// NumProperties features listed in Names. Results are memoised per SMILES.
func NewPropertiesCalculator() Calculator {
	c, err := lru.New[string, []float64](DefaultCacheSize)
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	return &propertiesCalculator{cache: c}
}

func (c *propertiesCalculator) Names() []string {
	return append([]string(nil), Names[:]...)
}

func (c *propertiesCalculator) Compute(smiles string) ([]float64, error) {
	if v, ok := c.cache.Get(smiles); ok {
		return append([]float64(nil), v...), nil
	}

	mol, err := ParseSMILES(smiles)
	if err != nil {
		return nil, err
	}
	v := ComputeProperties(mol).Vector()
	c.cache.Add(smiles, v)
	return append([]float64(nil), v...), nil
}

// CalculatorFunc adapts a plain function to Calculator.
type CalculatorFunc func(smiles string) ([]float64, error)

func (f CalculatorFunc) Compute(smiles string) ([]float64, error) { return f(smiles) }

func (f CalculatorFunc) Names() []string { return append([]string(nil), Names[:]...) }
