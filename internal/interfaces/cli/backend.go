package cli

import (
	"context"

	"github.com/turtacn/SeqQuant/internal/application/encoding"
	"github.com/turtacn/SeqQuant/internal/domain/polymer"
	"github.com/turtacn/SeqQuant/pkg/client"
)

// Backend is what the catalog and encode commands need. *client.Client
// implements it directly; localBackend adapts the in-process service.
type Backend interface {
	Encode(ctx context.Context, sequences []string, opts client.EncodeOptions) (*client.Latents, error)
	Monomers(ctx context.Context, polymerType string) ([]string, error)
	KernelInfo(ctx context.Context, polymerType string, monomers []client.Monomer) (*client.KernelInfo, error)
	Descriptors(ctx context.Context, smiles string) (*client.DescriptorReport, error)
}

var _ Backend = (*client.Client)(nil)

type localBackend struct {
	svc encoding.Service
}

func toNewMonomers(in []client.Monomer) []polymer.NewMonomerRequest {
	if len(in) == 0 {
		return nil
	}
	out := make([]polymer.NewMonomerRequest, len(in))
	for i, m := range in {
		out[i] = polymer.NewMonomerRequest{Name: m.Name, SMILES: m.SMILES}
	}
	return out
}

func (b localBackend) Encode(ctx context.Context, sequences []string, opts client.EncodeOptions) (*client.Latents, error) {
	res, err := b.svc.Encode(ctx, &encoding.EncodeRequest{
		Sequences:         sequences,
		PolymerType:       opts.PolymerType,
		EncodingStrategy:  opts.EncodingStrategy,
		SkipUnprocessable: !opts.Strict,
		NewMonomers:       toNewMonomers(opts.Monomers),
	})
	if err != nil {
		return nil, err
	}
	out := &client.Latents{Vectors: make(map[string][]float32, res.Len())}
	for _, seq := range res.Keys() {
		v, _ := res.Get(seq)
		out.Sequences = append(out.Sequences, seq)
		out.Vectors[seq] = v
	}
	return out, nil
}

func (b localBackend) Monomers(ctx context.Context, polymerType string) ([]string, error) {
	return b.svc.Monomers(ctx, polymerType)
}

func (b localBackend) KernelInfo(ctx context.Context, polymerType string, monomers []client.Monomer) (*client.KernelInfo, error) {
	info, err := b.svc.KernelInfo(ctx, polymerType, toNewMonomers(monomers))
	if err != nil {
		return nil, err
	}
	return &client.KernelInfo{
		MaxSequenceLength: info.MaxSequenceLength,
		NumOfDescriptors:  info.NumOfDescriptors,
		KnownMonomers:     info.KnownMonomers,
		PolymerType:       string(info.PolymerType),
	}, nil
}

func (b localBackend) Descriptors(ctx context.Context, smiles string) (*client.DescriptorReport, error) {
	rep, err := b.svc.Descriptors(ctx, smiles)
	if err != nil {
		return nil, err
	}
	return &client.DescriptorReport{
		SMILES: rep.SMILES,
		Names:  rep.Names,
		Raw:    rep.Raw,
		Scaled: rep.Scaled,
	}, nil
}
