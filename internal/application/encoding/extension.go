package encoding

import (
	"fmt"

	"github.com/turtacn/SeqQuant/internal/domain/polymer"
	"github.com/turtacn/SeqQuant/internal/intelligence/descriptor"
	"github.com/turtacn/SeqQuant/pkg/errors"
)

// extender derives registry vectors for new monomers from their structures.
type extender struct {
	calc   descriptor.Calculator
	scaler descriptor.Scaler
}

// register validates, computes and inserts reqs as one batch. On any error
// the registry is left untouched.
func (e *extender) register(reg *polymer.Registry, reqs []polymer.NewMonomerRequest) ([]string, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	symbols := make([]string, len(reqs))
	for i, req := range reqs {
		sym, err := req.Symbol()
		if err != nil {
			return nil, err
		}
		symbols[i] = sym
	}

	seen := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		if reg.Has(sym) || seen[sym] {
			return nil, polymer.ConflictError(sym)
		}
		seen[sym] = true
	}

	batch := make(map[string][]float64, len(reqs))
	for i, req := range reqs {
		raw, err := e.calc.Compute(req.SMILES)
		if err != nil {
			if errors.IsCode(err, errors.ErrCodeMalformedStructure) {
				return nil, err
			}
			return nil, errors.Wrap(err, errors.ErrCodeMalformedStructure, "cannot compute monomer descriptors").
				WithDetail(fmt.Sprintf("monomer %s", symbols[i]))
		}
		scaled, err := e.scaler.Transform(raw)
		if err != nil {
			return nil, err
		}
		if len(scaled) != reg.Dim() {
			return nil, errors.New(errors.ErrCodeDimensionMismatch, fmt.Sprintf(
				"cannot add monomer %s to a %s kernel: computed %d descriptors, kernel expects %d",
				symbols[i], reg.PolymerType(), len(scaled), reg.Dim()))
		}
		batch[symbols[i]] = scaled
	}

	if err := reg.Add(batch); err != nil {
		return nil, err
	}
	return symbols, nil
}
