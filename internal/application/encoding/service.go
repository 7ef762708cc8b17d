package encoding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/SeqQuant/internal/domain/polymer"
	"github.com/turtacn/SeqQuant/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SeqQuant/internal/intelligence/catalog"
	"github.com/turtacn/SeqQuant/internal/intelligence/descriptor"
	"github.com/turtacn/SeqQuant/internal/intelligence/latent"
	"github.com/turtacn/SeqQuant/pkg/errors"
)

// DefaultMaxSequencesPerRequest caps one encode call.
const DefaultMaxSequencesPerRequest = 100

// Service is the entry point shared by the HTTP API, the CLI and the worker.
type Service interface {
	Encode(ctx context.Context, req *EncodeRequest) (*LatentResult, error)
	Monomers(ctx context.Context, polymerType string) ([]string, error)
	KernelInfo(ctx context.Context, polymerType string, monomers []polymer.NewMonomerRequest) (*KernelInfo, error)
	Descriptors(ctx context.Context, smiles string) (*DescriptorReport, error)
	Ready(ctx context.Context) error
}

// EncodeRequest is one encode call. Empty PolymerType and EncodingStrategy
// default to protein.
type EncodeRequest struct {
	Sequences         []string                    `json:"sequences"`
	PolymerType       string                      `json:"polymer_type"`
	EncodingStrategy  string                      `json:"encoding_strategy"`
	SkipUnprocessable bool                        `json:"skip_unprocessable"`
	NewMonomers       []polymer.NewMonomerRequest `json:"new_monomers,omitempty"`
}

// DescriptorReport lists the raw and scaled descriptors of one structure.
type DescriptorReport struct {
	SMILES string    `json:"smiles"`
	Names  []string  `json:"names"`
	Raw    []float64 `json:"raw"`
	Scaled []float64 `json:"scaled"`
}

// ServiceConfig holds the dependencies of the encoding service.
type ServiceConfig struct {
	Dispatcher             *latent.Dispatcher
	Calculator             descriptor.Calculator
	Scaler                 descriptor.Scaler
	Logger                 logging.Logger
	Metrics                Metrics
	MaxSequencesPerRequest int
	EncodeTimeout          time.Duration
}

type serviceImpl struct {
	dispatcher   *latent.Dispatcher
	calc         descriptor.Calculator
	scaler       descriptor.Scaler
	logger       logging.Logger
	metrics      Metrics
	maxSequences int
	timeout      time.Duration
}

// NewService constructs the encoding service.
func NewService(cfg ServiceConfig) (Service, error) {
	if cfg.Dispatcher == nil {
		return nil, errors.New(errors.ErrCodeBadRequest, "encoding service requires a dispatcher")
	}
	s := &serviceImpl{
		dispatcher:   cfg.Dispatcher,
		calc:         cfg.Calculator,
		scaler:       cfg.Scaler,
		logger:       logging.OrNop(cfg.Logger).Named("encoding"),
		metrics:      cfg.Metrics,
		maxSequences: cfg.MaxSequencesPerRequest,
		timeout:      cfg.EncodeTimeout,
	}
	if s.calc == nil {
		s.calc = DefaultCalculator()
	}
	if s.scaler == nil {
		ref, err := catalog.ReferenceScaler()
		if err != nil {
			return nil, err
		}
		s.scaler = ref
	}
	if s.metrics == nil {
		s.metrics = NoopMetrics()
	}
	if s.maxSequences <= 0 {
		s.maxSequences = DefaultMaxSequencesPerRequest
	}
	return s, nil
}

// SplitSequences parses the comma separated wire form. Whitespace is
// removed and empty tokens are dropped.
func SplitSequences(raw string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, raw)
	var out []string
	for _, tok := range strings.Split(cleaned, ",") {
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func (s *serviceImpl) kernelOptions() []Option {
	return []Option{
		WithDescriptorCalculator(s.calc),
		WithScaler(s.scaler),
		WithDispatcher(s.dispatcher),
		WithLogger(s.logger),
		WithMetrics(s.metrics),
	}
}

func parsePolymerType(s string) (polymer.PolymerType, error) {
	if s == "" {
		return polymer.PolymerProtein, nil
	}
	return polymer.ParsePolymerType(s)
}

func parseStrategy(s string) (polymer.EncodingStrategy, error) {
	if s == "" {
		return polymer.StrategyProtein, nil
	}
	return polymer.ParseEncodingStrategy(s)
}

func (s *serviceImpl) Encode(ctx context.Context, req *EncodeRequest) (result *LatentResult, err error) {
	pt, err := parsePolymerType(req.PolymerType)
	if err != nil {
		return nil, err
	}
	strategy, err := parseStrategy(req.EncodingStrategy)
	if err != nil {
		return nil, err
	}
	defer func() {
		status := "ok"
		if err != nil {
			status = string(errors.GetCode(err))
		}
		s.metrics.ObserveEncodeRequest(string(strategy), string(pt), status)
	}()

	if len(req.Sequences) > s.maxSequences {
		return nil, errors.New(errors.ErrCodeBatchTooLarge, fmt.Sprintf(
			"too many sequences in one request: %d, the maximum is %d", len(req.Sequences), s.maxSequences))
	}

	monomers := req.NewMonomers
	if strategy == polymer.StrategyProtein && len(monomers) > 0 {
		s.logger.Debug("protein strategy ignores new monomers", logging.Int("dropped", len(monomers)))
		monomers = nil
	}
	if strategy == polymer.StrategyProtein && pt.IsNucleic() {
		s.logger.Warn("nucleic acid sequences encoded with the protein encoder",
			logging.String("polymer_type", string(pt)))
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	kernel, err := NewKernel(ctx, pt, monomers, s.kernelOptions()...)
	if err != nil {
		return nil, err
	}
	result, err = kernel.GenerateLatentRepresentations(ctx, req.Sequences, req.SkipUnprocessable, strategy)
	if err != nil {
		if ctx.Err() != nil && errors.GetCode(err) != errors.ErrCodeTimeout {
			return nil, errors.Wrap(err, errors.ErrCodeTimeout, "encoding timed out")
		}
		return nil, err
	}
	s.logger.Debug("encode completed",
		logging.String("polymer_type", string(pt)),
		logging.String("strategy", string(strategy)),
		logging.Int("requested", len(req.Sequences)),
		logging.Int("encoded", result.Len()))
	return result, nil
}

func (s *serviceImpl) Monomers(ctx context.Context, polymerType string) ([]string, error) {
	pt, err := parsePolymerType(polymerType)
	if err != nil {
		return nil, err
	}
	return catalog.Symbols(pt)
}

func (s *serviceImpl) KernelInfo(ctx context.Context, polymerType string, monomers []polymer.NewMonomerRequest) (*KernelInfo, error) {
	pt, err := parsePolymerType(polymerType)
	if err != nil {
		return nil, err
	}
	kernel, err := NewKernel(ctx, pt, monomers, s.kernelOptions()...)
	if err != nil {
		return nil, err
	}
	info := kernel.Info()
	return &info, nil
}

func (s *serviceImpl) Descriptors(_ context.Context, smiles string) (*DescriptorReport, error) {
	raw, err := s.calc.Compute(smiles)
	if err != nil {
		return nil, err
	}
	scaled, err := s.scaler.Transform(raw)
	if err != nil {
		return nil, err
	}
	return &DescriptorReport{SMILES: smiles, Names: s.calc.Names(), Raw: raw, Scaled: scaled}, nil
}

func (s *serviceImpl) Ready(ctx context.Context) error {
	return s.dispatcher.Ready(ctx)
}
