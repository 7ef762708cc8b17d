// Package catalog materialises the compiled-in descriptor tables for each
// polymer type and the reference scaler fitted over them.
package catalog

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/turtacn/SeqQuant/internal/domain/polymer"
	"github.com/turtacn/SeqQuant/internal/intelligence/descriptor"
	"github.com/turtacn/SeqQuant/pkg/errors"
)

type tables struct {
	scaler *descriptor.MinMaxScaler
	byType map[polymer.PolymerType]map[string][]float64
}

var (
	once   sync.Once
	built  *tables
	bldErr error
)

func materialize() (*tables, error) {
	once.Do(func() {
		built, bldErr = build(descriptor.NewPropertiesCalculator())
	})
	return built, bldErr
}

// Load returns a deep copy of the descriptor table for pt.
func Load(pt polymer.PolymerType) (map[string][]float64, error) {
	if !pt.IsValid() {
		return nil, errors.New(errors.ErrCodeUnknownPolymerType, "unknown polymer type").WithDetail(string(pt))
	}
	t, err := materialize()
	if err != nil {
		return nil, err
	}
	src := t.byType[pt]
	out := make(map[string][]float64, len(src))
	for sym, v := range src {
		out[sym] = append([]float64(nil), v...)
	}
	return out, nil
}

// Symbols returns the sorted catalog symbols for pt.
func Symbols(pt polymer.PolymerType) ([]string, error) {
	table, err := Load(pt)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(table))
	for sym := range table {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out, nil
}

// ReferenceScaler returns a copy of the min-max scaler fitted over the raw
// descriptors of every catalog monomer.
func ReferenceScaler() (*descriptor.MinMaxScaler, error) {
	t, err := materialize()
	if err != nil {
		return nil, err
	}
	return &descriptor.MinMaxScaler{
		FeatureNames: append([]string(nil), t.scaler.FeatureNames...),
		DataMin:      append([]float64(nil), t.scaler.DataMin...),
		DataMax:      append([]float64(nil), t.scaler.DataMax...),
	}, nil
}

func build(calc descriptor.Calculator) (*tables, error) {
	groups := []struct {
		structures map[string]string
		types      []polymer.PolymerType
	}{
		{aminoAcids, []polymer.PolymerType{polymer.PolymerProtein, polymer.PolymerProteinForAptamer}},
		{deoxyribonucleotides, []polymer.PolymerType{polymer.PolymerDNA}},
		{ribonucleotides, []polymer.PolymerType{polymer.PolymerRNA}},
	}

	raw := make([]map[string][]float64, len(groups))
	var all [][]float64
	for gi, g := range groups {
		raw[gi] = make(map[string][]float64, len(g.structures))
		for _, sym := range sortedKeys(g.structures) {
			v, err := calc.Compute(g.structures[sym])
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeInternal, "catalog structure does not parse").
					WithDetail(fmt.Sprintf("monomer %s", sym))
			}
			raw[gi][sym] = v
			all = append(all, v)
		}
	}

	scaler, err := descriptor.FitMinMax(all, descriptor.Names[:])
	if err != nil {
		return nil, err
	}

	t := &tables{scaler: scaler, byType: make(map[polymer.PolymerType]map[string][]float64)}
	for gi, g := range groups {
		scaled := make(map[string][]float64, len(raw[gi]))
		for sym, v := range raw[gi] {
			s, err := scaler.Transform(v)
			if err != nil {
				return nil, err
			}
			scaled[sym] = s
		}
		for _, pt := range g.types {
			table := make(map[string][]float64, len(scaled))
			for sym, v := range scaled {
				table[sym] = append([]float64(nil), v...)
			}
			if pt == polymer.PolymerProtein {
				appendPeptideScales(table)
			}
			t.byType[pt] = table
		}
	}
	return t, nil
}

// appendPeptideScales extends each residue vector with every peptide scale,
// min-max normalised over the residues present in table.
func appendPeptideScales(table map[string][]float64) {
	for _, scale := range peptideScales {
		lo, hi := math.Inf(1), math.Inf(-1)
		for sym := range table {
			lo = math.Min(lo, scale.values[sym])
			hi = math.Max(hi, scale.values[sym])
		}
		rng := hi - lo
		if rng == 0 {
			rng = 1
		}
		for sym, v := range table {
			table[sym] = append(v, (scale.values[sym]-lo)/rng)
		}
	}
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
