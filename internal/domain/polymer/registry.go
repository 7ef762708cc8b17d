package polymer

import (
	"fmt"
	"sort"

	"github.com/turtacn/SeqQuant/pkg/errors"
)

// Registry maps monomer symbols to descriptor vectors for one kernel.
// It is not safe for concurrent mutation.
type Registry struct {
	polymerType PolymerType
	dim         int
	vectors     map[string][]float64
}

// NewRegistry builds a registry from table, copying every vector. Each
// vector must have pt's dimensionality.
func NewRegistry(pt PolymerType, table map[string][]float64) (*Registry, error) {
	if !pt.IsValid() {
		return nil, errors.New(errors.ErrCodeUnknownPolymerType, "unknown polymer type").WithDetail(string(pt))
	}
	r := &Registry{
		polymerType: pt,
		dim:         pt.Dimension(),
		vectors:     make(map[string][]float64, len(table)),
	}
	for sym, vec := range table {
		if len(vec) != r.dim {
			return nil, dimensionError(sym, len(vec), r.dim)
		}
		r.vectors[sym] = append([]float64(nil), vec...)
	}
	return r, nil
}

func dimensionError(sym string, got, want int) error {
	return errors.New(errors.ErrCodeDimensionMismatch, "descriptor dimensionality mismatch").
		WithDetail(fmt.Sprintf("monomer %s has %d descriptors, registry expects %d", sym, got, want))
}

// PolymerType returns the registry's polymer type.
func (r *Registry) PolymerType() PolymerType { return r.polymerType }

// Dim returns the descriptor vector length.
func (r *Registry) Dim() int { return r.dim }

// Len returns the number of known monomers.
func (r *Registry) Len() int { return len(r.vectors) }

// Has reports whether sym is a known monomer.
func (r *Registry) Has(sym string) bool {
	_, ok := r.vectors[sym]
	return ok
}

// Vector returns the stored vector for sym. The slice must not be modified.
func (r *Registry) Vector(sym string) ([]float64, bool) {
	v, ok := r.vectors[sym]
	return v, ok
}

// Symbols returns the known monomers in sorted order.
func (r *Registry) Symbols() []string {
	out := make([]string, 0, len(r.vectors))
	for sym := range r.vectors {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// ConflictError reports that sym is already registered.
func ConflictError(sym string) error {
	return errors.New(errors.ErrCodeMonomerConflict, fmt.Sprintf("monomer %s already exists in kernel", sym))
}

// Add inserts every entry of batch or none of them. Keys already present
// and keys with the wrong dimensionality are rejected.
func (r *Registry) Add(batch map[string][]float64) error {
	keys := make([]string, 0, len(batch))
	for sym := range batch {
		keys = append(keys, sym)
	}
	sort.Strings(keys)
	for _, sym := range keys {
		if r.Has(sym) {
			return ConflictError(sym)
		}
		if len(batch[sym]) != r.dim {
			return dimensionError(sym, len(batch[sym]), r.dim)
		}
	}
	for _, sym := range keys {
		r.vectors[sym] = append([]float64(nil), batch[sym]...)
	}
	return nil
}
