package encoding

import (
	"fmt"
	"unicode/utf8"

	"github.com/turtacn/SeqQuant/internal/domain/polymer"
	"github.com/turtacn/SeqQuant/pkg/errors"
)

// encodeSequence lays out one descriptor column per monomer in a
// dim × MaxSequenceLength matrix. Columns past the sequence end stay zero.
func encodeSequence(reg *polymer.Registry, seq string) (polymer.Matrix, error) {
	if n := utf8.RuneCountInString(seq); n > polymer.MaxSequenceLength {
		return polymer.Matrix{}, lengthError(seq)
	}
	m := polymer.NewMatrix(reg.Dim(), polymer.MaxSequenceLength)
	col := 0
	for _, r := range seq {
		vec, ok := reg.Vector(string(r))
		if !ok {
			return polymer.Matrix{}, errors.New(errors.ErrCodeUnknownMonomer, fmt.Sprintf("unknown monomer %q in sequence: %s", r, seq))
		}
		for row, v := range vec {
			m.Set(row, col, float32(v))
		}
		col++
	}
	return m, nil
}

func encodeBatch(reg *polymer.Registry, seqs []string) (polymer.BatchTensor, error) {
	items := make([]polymer.Matrix, 0, len(seqs))
	for _, s := range seqs {
		m, err := encodeSequence(reg, s)
		if err != nil {
			return polymer.BatchTensor{}, err
		}
		items = append(items, m)
	}
	return polymer.BatchTensor{Items: items}, nil
}
