// Package polymer holds the sequence-encoding domain model: polymer types,
// encoding strategies and the per-kernel descriptor registry.
package polymer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/turtacn/SeqQuant/pkg/errors"
)

// MaxSequenceLength is the fixed column count of an encoded tensor.
const MaxSequenceLength = 96

// ─────────────────────────────────────────────────────────────────────────────
// PolymerType
// ─────────────────────────────────────────────────────────────────────────────

// PolymerType selects the monomer vocabulary and descriptor table.
type PolymerType string

const (
	PolymerProtein           PolymerType = "protein"
	PolymerProteinForAptamer PolymerType = "protein_for_aptamer"
	PolymerDNA               PolymerType = "DNA"
	PolymerRNA               PolymerType = "RNA"
)

const (
	// ProteinDimension is the structural descriptors plus three peptide scales.
	ProteinDimension = 46
	// StructuralDimension is the length of a scaled structural descriptor.
	StructuralDimension = 43
)

// PolymerTypes lists every supported polymer type.
func PolymerTypes() []PolymerType {
	return []PolymerType{PolymerProtein, PolymerProteinForAptamer, PolymerDNA, PolymerRNA}
}

// ParsePolymerType parses s exactly as the wire names are spelled.
func ParsePolymerType(s string) (PolymerType, error) {
	pt := PolymerType(strings.TrimSpace(s))
	if !pt.IsValid() {
		return "", errors.New(errors.ErrCodeUnknownPolymerType, "unknown polymer type").
			WithDetail(fmt.Sprintf("%q, expected one of protein, protein_for_aptamer, DNA, RNA", s))
	}
	return pt, nil
}

func (p PolymerType) IsValid() bool {
	switch p {
	case PolymerProtein, PolymerProteinForAptamer, PolymerDNA, PolymerRNA:
		return true
	}
	return false
}

// Dimension returns the descriptor vector length for p, or 0 when p is not
// a valid polymer type.
func (p PolymerType) Dimension() int {
	switch p {
	case PolymerProtein:
		return ProteinDimension
	case PolymerProteinForAptamer, PolymerDNA, PolymerRNA:
		return StructuralDimension
	}
	return 0
}

// IsNucleic reports whether p describes a nucleic acid.
func (p PolymerType) IsNucleic() bool {
	return p == PolymerDNA || p == PolymerRNA
}

func (p PolymerType) String() string { return string(p) }

// ─────────────────────────────────────────────────────────────────────────────
// EncodingStrategy
// ─────────────────────────────────────────────────────────────────────────────

// EncodingStrategy selects which latent encoder consumes the tensor.
type EncodingStrategy string

const (
	StrategyProtein EncodingStrategy = "protein"
	StrategyAptamer EncodingStrategy = "aptamer"
)

// ParseEncodingStrategy accepts "protein", "aptamer" and the legacy
// plural "aptamers".
func ParseEncodingStrategy(s string) (EncodingStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "protein":
		return StrategyProtein, nil
	case "aptamer", "aptamers":
		return StrategyAptamer, nil
	}
	return "", errors.New(errors.ErrCodeUnknownStrategy, "unknown encoding strategy").
		WithDetail(fmt.Sprintf("%q, expected protein or aptamer", s))
}

func (s EncodingStrategy) IsValid() bool {
	return s == StrategyProtein || s == StrategyAptamer
}

func (s EncodingStrategy) String() string { return string(s) }

// ─────────────────────────────────────────────────────────────────────────────
// NewMonomerRequest
// ─────────────────────────────────────────────────────────────────────────────

// NewMonomerRequest asks a kernel to learn a monomer from its structure.
type NewMonomerRequest struct {
	Name   string `json:"name"`
	SMILES string `json:"smiles"`
}

// Symbol returns the uppercased name, or a validation error when the name
// is not exactly one character.
func (r NewMonomerRequest) Symbol() (string, error) {
	name := strings.ToUpper(r.Name)
	if utf8.RuneCountInString(name) != 1 {
		return "", errors.New(errors.ErrCodeInvalidMonomerName, "monomer name must be exactly one character").
			WithDetail(fmt.Sprintf("got %q", r.Name))
	}
	return name, nil
}

// ParseMonomerFlag parses the "X=SMILES" command-line form.
func ParseMonomerFlag(s string) (NewMonomerRequest, error) {
	name, smiles, ok := strings.Cut(s, "=")
	if !ok || name == "" || smiles == "" {
		return NewMonomerRequest{}, errors.New(errors.ErrCodeBadRequest, "monomer must be given as NAME=SMILES").
			WithDetail(s)
	}
	return NewMonomerRequest{Name: name, SMILES: smiles}, nil
}
