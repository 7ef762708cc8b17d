package encoding

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/turtacn/SeqQuant/internal/domain/polymer"
	"github.com/turtacn/SeqQuant/pkg/errors"
)

// Filter stage labels, also used as metric label values.
const (
	StageLength     = "length"
	StageVocabulary = "vocabulary"
	StageEmpty      = "empty"
)

// FilterReport counts the sequences each stage dropped. In strict mode
// the rejected sequence is counted as well.
type FilterReport struct {
	Empty      int
	Length     int
	Vocabulary int
}

func lengthError(seq string) error {
	return errors.New(errors.ErrCodeSequenceTooLong, fmt.Sprintf(
		"sequence length exceeds the maximum = %d: %s. Set skip_unprocessable to true or exclude it",
		polymer.MaxSequenceLength, seq))
}

func unknownMonomerError(seq string) error {
	return errors.New(errors.ErrCodeUnknownMonomer, fmt.Sprintf(
		"unknown monomers in sequence: %s. You can fix it with: 1) adding new monomer in kernel; "+
			"2) setting skip_unprocessable to true; 3) excluding it yourself", seq))
}

// filterLength drops empty sequences, rejects or drops sequences longer
// than MaxSequenceLength and uppercases the survivors.
func filterLength(seqs []string, skip bool, report *FilterReport) ([]string, error) {
	out := make([]string, 0, len(seqs))
	for _, s := range seqs {
		n := utf8.RuneCountInString(s)
		switch {
		case n == 0:
			report.Empty++
			continue
		case n > polymer.MaxSequenceLength:
			report.Length++
			if !skip {
				return nil, lengthError(s)
			}
			continue
		}
		out = append(out, strings.ToUpper(s))
	}
	return out, nil
}

// filterVocabulary rejects or drops sequences containing a symbol the
// registry does not know.
func filterVocabulary(reg *polymer.Registry, seqs []string, skip bool, report *FilterReport) ([]string, error) {
	out := make([]string, 0, len(seqs))
	for _, s := range seqs {
		if knownSymbols(reg, s) {
			out = append(out, s)
			continue
		}
		report.Vocabulary++
		if !skip {
			return nil, unknownMonomerError(s)
		}
	}
	return out, nil
}

func knownSymbols(reg *polymer.Registry, seq string) bool {
	for _, r := range seq {
		if !reg.Has(string(r)) {
			return false
		}
	}
	return true
}
