package encoding

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/turtacn/SeqQuant/pkg/errors"
)

// LatentResult maps sequences to latent vectors and remembers insertion
// order. It marshals to a JSON object with keys in that order.
type LatentResult struct {
	m *orderedmap.OrderedMap[string, []float32]
}

// NewLatentResult returns an empty result.
func NewLatentResult() *LatentResult {
	return &LatentResult{m: orderedmap.New[string, []float32]()}
}

func (r *LatentResult) ordered() *orderedmap.OrderedMap[string, []float32] {
	if r.m == nil {
		r.m = orderedmap.New[string, []float32]()
	}
	return r.m
}

// Set stores vec under seq. A repeated seq keeps its first position and
// takes the new vector.
func (r *LatentResult) Set(seq string, vec []float32) {
	r.ordered().Set(seq, vec)
}

// Get returns the vector for seq.
func (r *LatentResult) Get(seq string) ([]float32, bool) {
	return r.ordered().Get(seq)
}

// Keys returns the sequences in order.
func (r *LatentResult) Keys() []string {
	keys := make([]string, 0, r.Len())
	for p := r.ordered().Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// Len returns the number of sequences.
func (r *LatentResult) Len() int { return r.ordered().Len() }

func (r *LatentResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ordered())
}

func (r *LatentResult) UnmarshalJSON(data []byte) error {
	m := orderedmap.New[string, []float32]()
	if err := json.Unmarshal(data, m); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "decode latent result")
	}
	r.m = m
	return nil
}
