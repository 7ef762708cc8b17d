package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Monomer is a caller-supplied monomer added to the kernel for one call.
type Monomer struct {
	Name   string `json:"name"`
	SMILES string `json:"smiles"`
}

// EncodeOptions are the optional parameters of Encode. Zero values use the
// server defaults: protein, protein strategy, skip unprocessable.
type EncodeOptions struct {
	PolymerType      string
	EncodingStrategy string
	// Strict fails the whole call on the first unprocessable sequence.
	Strict   bool
	Monomers []Monomer
}

// Latents maps each encoded sequence to its latent vector, keeping the
// order in which the server returned them.
type Latents struct {
	Sequences []string
	Vectors   map[string][]float32
}

// Len returns the number of encoded sequences.
func (l *Latents) Len() int { return len(l.Sequences) }

// Get returns the vector of seq.
func (l *Latents) Get(seq string) ([]float32, bool) {
	v, ok := l.Vectors[seq]
	return v, ok
}

func (l *Latents) UnmarshalJSON(data []byte) error {
	m := orderedmap.New[string, []float32]()
	if err := json.Unmarshal(data, m); err != nil {
		return fmt.Errorf("latents: %w", err)
	}
	l.Sequences = make([]string, 0, m.Len())
	l.Vectors = make(map[string][]float32, m.Len())
	for p := m.Oldest(); p != nil; p = p.Next() {
		l.Sequences = append(l.Sequences, p.Key)
		l.Vectors[p.Key] = p.Value
	}
	return nil
}

func (l *Latents) MarshalJSON() ([]byte, error) {
	m := orderedmap.New[string, []float32](len(l.Sequences))
	for _, seq := range l.Sequences {
		m.Set(seq, l.Vectors[seq])
	}
	return json.Marshal(m)
}

// KernelInfo describes the kernel used for a polymer type.
type KernelInfo struct {
	MaxSequenceLength int      `json:"max_sequence_length"`
	NumOfDescriptors  int      `json:"num_of_descriptors"`
	KnownMonomers     []string `json:"known_monomers"`
	PolymerType       string   `json:"polymer_type"`
}

// DescriptorReport lists the raw and scaled descriptors of one structure.
type DescriptorReport struct {
	SMILES string    `json:"smiles"`
	Names  []string  `json:"names"`
	Raw    []float64 `json:"raw"`
	Scaled []float64 `json:"scaled"`
}

type monomersBody struct {
	Monomers []Monomer `json:"monomers"`
}

// Encode encodes sequences into latent vectors.
func (c *Client) Encode(ctx context.Context, sequences []string, opts EncodeOptions) (*Latents, error) {
	q := url.Values{}
	q.Set("sequences", strings.Join(sequences, ","))
	if opts.PolymerType != "" {
		q.Set("polymer_type", opts.PolymerType)
	}
	if opts.EncodingStrategy != "" {
		q.Set("encoding_strategy", opts.EncodingStrategy)
	}
	q.Set("skip_unprocessable", strconv.FormatBool(!opts.Strict))

	var body interface{}
	if len(opts.Monomers) > 0 {
		body = monomersBody{Monomers: opts.Monomers}
	}
	var out Latents
	if err := c.do(ctx, http.MethodPost, "/encode_sequence", q, body, &out); err != nil {
		return nil, err
	}
	if out.Vectors == nil {
		out.Vectors = map[string][]float32{}
	}
	return &out, nil
}

// Monomers lists the monomer symbols known for polymerType.
func (c *Client) Monomers(ctx context.Context, polymerType string) ([]string, error) {
	var out []string
	if err := c.do(ctx, http.MethodGet, "/monomers/"+url.PathEscape(polymerType), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// KernelInfo returns the kernel summary for polymerType after adding
// monomers.
func (c *Client) KernelInfo(ctx context.Context, polymerType string, monomers []Monomer) (*KernelInfo, error) {
	var body interface{}
	if len(monomers) > 0 {
		body = monomersBody{Monomers: monomers}
	}
	var out KernelInfo
	if err := c.do(ctx, http.MethodPost, "/kernel_info/"+url.PathEscape(polymerType), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Descriptors computes the descriptor vector of a SMILES string.
func (c *Client) Descriptors(ctx context.Context, smiles string) (*DescriptorReport, error) {
	var out DescriptorReport
	if err := c.do(ctx, http.MethodGet, "/descriptors", url.Values{"smiles": {smiles}}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ready reports whether the server passes its readiness checks.
func (c *Client) Ready(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/readyz", nil, nil, nil)
}
