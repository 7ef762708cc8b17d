// Package encoding implements the sequence encoding kernel: monomer
// registration, sequence filtering, tensor layout and latent inference.
package encoding

import (
	"context"
	"sync"
	"time"

	"github.com/turtacn/SeqQuant/internal/domain/polymer"
	"github.com/turtacn/SeqQuant/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SeqQuant/internal/intelligence/catalog"
	"github.com/turtacn/SeqQuant/internal/intelligence/descriptor"
	"github.com/turtacn/SeqQuant/internal/intelligence/latent"
	"github.com/turtacn/SeqQuant/pkg/errors"
)

// KernelInfo describes a kernel's vocabulary and tensor geometry.
type KernelInfo struct {
	MaxSequenceLength int                 `json:"max_sequence_length"`
	NumOfDescriptors  int                 `json:"num_of_descriptors"`
	KnownMonomers     []string            `json:"known_monomers"`
	PolymerType       polymer.PolymerType `json:"polymer_type"`
}

// Kernel encodes sequences of one polymer type. A Kernel owns its registry
// and is not safe for concurrent use.
type Kernel struct {
	polymerType polymer.PolymerType
	registry    *polymer.Registry
	ext         extender
	dispatcher  *latent.Dispatcher
	logger      logging.Logger
	metrics     Metrics
}

// Option configures a Kernel.
type Option func(*kernelOptions)

type kernelOptions struct {
	calc       descriptor.Calculator
	scaler     descriptor.Scaler
	dispatcher *latent.Dispatcher
	logger     logging.Logger
	metrics    Metrics
}

func WithDescriptorCalculator(c descriptor.Calculator) Option {
	return func(o *kernelOptions) { o.calc = c }
}

func WithScaler(s descriptor.Scaler) Option {
	return func(o *kernelOptions) { o.scaler = s }
}

func WithDispatcher(d *latent.Dispatcher) Option {
	return func(o *kernelOptions) { o.dispatcher = d }
}

func WithLogger(l logging.Logger) Option {
	return func(o *kernelOptions) { o.logger = l }
}

func WithMetrics(m Metrics) Option {
	return func(o *kernelOptions) { o.metrics = m }
}

var (
	defaultCalcOnce sync.Once
	defaultCalc     descriptor.Calculator
)

// DefaultCalculator returns the process-wide descriptor calculator.
func DefaultCalculator() descriptor.Calculator {
	defaultCalcOnce.Do(func() { defaultCalc = descriptor.NewPropertiesCalculator() })
	return defaultCalc
}

// NewKernel builds a kernel for pt from a private copy of the catalog and
// registers newMonomers on it.
func NewKernel(ctx context.Context, pt polymer.PolymerType, newMonomers []polymer.NewMonomerRequest, opts ...Option) (*Kernel, error) {
	o := kernelOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.calc == nil {
		o.calc = DefaultCalculator()
	}
	if o.scaler == nil {
		s, err := catalog.ReferenceScaler()
		if err != nil {
			return nil, err
		}
		o.scaler = s
	}
	if o.metrics == nil {
		o.metrics = NoopMetrics()
	}

	table, err := catalog.Load(pt)
	if err != nil {
		return nil, err
	}
	reg, err := polymer.NewRegistry(pt, table)
	if err != nil {
		return nil, err
	}

	k := &Kernel{
		polymerType: pt,
		registry:    reg,
		ext:         extender{calc: o.calc, scaler: o.scaler},
		dispatcher:  o.dispatcher,
		logger:      logging.OrNop(o.logger).With(logging.String("polymer_type", string(pt))),
		metrics:     o.metrics,
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "kernel construction cancelled")
	}
	if err := k.RegisterMonomers(newMonomers); err != nil {
		return nil, err
	}
	return k, nil
}

// RegisterMonomers adds every request or none of them.
func (k *Kernel) RegisterMonomers(reqs []polymer.NewMonomerRequest) error {
	if len(reqs) == 0 {
		return nil
	}
	added, err := k.ext.register(k.registry, reqs)
	if err != nil {
		k.metrics.AddMonomerRegistrations("rejected", len(reqs))
		k.logger.Debug("monomer registration rejected", logging.Err(err))
		return err
	}
	k.metrics.AddMonomerRegistrations("registered", len(added))
	k.logger.Debug("monomers registered", logging.Strings("monomers", added))
	return nil
}

// KnownMonomers returns the sorted symbols of the kernel's registry.
func (k *Kernel) KnownMonomers() []string { return k.registry.Symbols() }

// MaxSequenceLength is the tensor column count.
func (k *Kernel) MaxSequenceLength() int { return polymer.MaxSequenceLength }

// NumOfDescriptors is the tensor row count.
func (k *Kernel) NumOfDescriptors() int { return k.registry.Dim() }

// PolymerType returns the kernel's polymer type.
func (k *Kernel) PolymerType() polymer.PolymerType { return k.polymerType }

// Info snapshots the kernel metadata.
func (k *Kernel) Info() KernelInfo {
	return KernelInfo{
		MaxSequenceLength: k.MaxSequenceLength(),
		NumOfDescriptors:  k.NumOfDescriptors(),
		KnownMonomers:     k.KnownMonomers(),
		PolymerType:       k.polymerType,
	}
}

// EncodeOne lays out seq as a NumOfDescriptors × MaxSequenceLength matrix.
// seq must already be uppercase and fully known.
func (k *Kernel) EncodeOne(seq string) (polymer.Matrix, error) {
	return encodeSequence(k.registry, seq)
}

// EncodeBatch encodes seqs in order.
func (k *Kernel) EncodeBatch(seqs []string) (polymer.BatchTensor, error) {
	return encodeBatch(k.registry, seqs)
}

// Filter runs the length and vocabulary stages over seqs.
func (k *Kernel) Filter(seqs []string, skip bool) ([]string, FilterReport, error) {
	var report FilterReport
	defer func() {
		k.metrics.AddSequencesFiltered(StageEmpty, report.Empty)
		k.metrics.AddSequencesFiltered(StageLength, report.Length)
		k.metrics.AddSequencesFiltered(StageVocabulary, report.Vocabulary)
	}()
	kept, err := filterLength(seqs, skip, &report)
	if err != nil {
		return nil, report, err
	}
	kept, err = filterVocabulary(k.registry, kept, skip, &report)
	if err != nil {
		return nil, report, err
	}
	return kept, report, nil
}

// GenerateLatentRepresentations filters seqs, encodes the survivors and
// maps each one to its latent vector with the strategy's encoder.
func (k *Kernel) GenerateLatentRepresentations(ctx context.Context, seqs []string, skip bool, strategy polymer.EncodingStrategy) (*LatentResult, error) {
	kept, report, err := k.Filter(seqs, skip)
	if err != nil {
		return nil, err
	}
	if dropped := report.Empty + report.Length + report.Vocabulary; dropped > 0 {
		k.logger.Info("sequences skipped",
			logging.Int("empty", report.Empty),
			logging.Int("too_long", report.Length),
			logging.Int("unknown_monomers", report.Vocabulary))
	}

	result := NewLatentResult()
	if len(kept) == 0 {
		return result, nil
	}

	unique := dedupe(kept)
	batch, err := k.EncodeBatch(unique)
	if err != nil {
		return nil, err
	}

	if k.dispatcher == nil {
		return nil, errors.New(errors.ErrCodeEncoderNotLoaded, "kernel has no latent encoder")
	}
	enc, err := k.dispatcher.Select(ctx, strategy)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	vectors, err := enc.Infer(ctx, batch)
	k.metrics.ObserveInference(enc.Name(), time.Since(start))
	if err != nil {
		if errors.GetCode(err) != errors.CodeUnknown {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeInferenceFailed, "latent inference failed")
	}
	if len(vectors) != len(unique) {
		return nil, errors.New(errors.ErrCodeInferenceFailed, "encoder returned wrong number of vectors")
	}

	for i, seq := range unique {
		result.Set(seq, vectors[i])
	}
	k.metrics.AddSequencesEncoded(string(k.polymerType), len(unique))
	return result, nil
}

func dedupe(seqs []string) []string {
	seen := make(map[string]bool, len(seqs))
	out := make([]string, 0, len(seqs))
	for _, s := range seqs {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
