package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/SeqQuant/internal/application/encoding"
	"github.com/turtacn/SeqQuant/internal/domain/polymer"
	"github.com/turtacn/SeqQuant/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SeqQuant/pkg/errors"
)

// MonomersBody is the optional JSON body of the encode and kernel info
// endpoints.
type MonomersBody struct {
	Monomers []polymer.NewMonomerRequest `json:"monomers"`
}

// EncodeHandler serves the encoding endpoints.
type EncodeHandler struct {
	service      encoding.Service
	logger       logging.Logger
	maxSequences int
	maxBodySize  int64
}

// EncodeHandlerConfig configures an EncodeHandler.
type EncodeHandlerConfig struct {
	Service                encoding.Service
	Logger                 logging.Logger
	MaxSequencesPerRequest int
	MaxBodySize            int64
}

func NewEncodeHandler(cfg EncodeHandlerConfig) *EncodeHandler {
	if cfg.MaxSequencesPerRequest <= 0 {
		cfg.MaxSequencesPerRequest = encoding.DefaultMaxSequencesPerRequest
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 1 << 20
	}
	return &EncodeHandler{
		service:      cfg.Service,
		logger:       logging.OrNop(cfg.Logger).Named("http"),
		maxSequences: cfg.MaxSequencesPerRequest,
		maxBodySize:  cfg.MaxBodySize,
	}
}

func (h *EncodeHandler) readMonomers(w http.ResponseWriter, r *http.Request) ([]polymer.NewMonomerRequest, error) {
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	}
	var body MonomersBody
	if err := decodeOptionalJSON(r, &body); err != nil {
		return nil, err
	}
	return body.Monomers, nil
}

// Encode handles POST /encode_sequence.
//
// Query parameters: sequences (comma separated), polymer_type,
// encoding_strategy, skip_unprocessable (default true). The response maps
// each encoded sequence to its latent vector in request order.
func (h *EncodeHandler) Encode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	skip := true
	if v := q.Get("skip_unprocessable"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeAppError(w, h.logger, errors.New(errors.ErrCodeBadRequest, "skip_unprocessable must be a boolean").WithDetail(v))
			return
		}
		skip = b
	}

	sequences := encoding.SplitSequences(q.Get("sequences"))
	if len(sequences) > h.maxSequences {
		writeAppError(w, h.logger, errors.Newf(errors.ErrCodeBatchTooLarge,
			"the number of sequences in the query exceeds %d", h.maxSequences).
			WithDetail(strconv.Itoa(len(sequences))))
		return
	}

	monomers, err := h.readMonomers(w, r)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	result, err := h.service.Encode(r.Context(), &encoding.EncodeRequest{
		Sequences:         sequences,
		PolymerType:       q.Get("polymer_type"),
		EncodingStrategy:  q.Get("encoding_strategy"),
		SkipUnprocessable: skip,
		NewMonomers:       monomers,
	})
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Monomers handles GET /monomers/{polymer_type}.
func (h *EncodeHandler) Monomers(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.service.Monomers(r.Context(), chi.URLParam(r, "polymer_type"))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, symbols)
}

// KernelInfo handles POST /kernel_info/{polymer_type}.
func (h *EncodeHandler) KernelInfo(w http.ResponseWriter, r *http.Request) {
	monomers, err := h.readMonomers(w, r)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	info, err := h.service.KernelInfo(r.Context(), chi.URLParam(r, "polymer_type"), monomers)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Descriptors handles GET /descriptors?smiles=.
func (h *EncodeHandler) Descriptors(w http.ResponseWriter, r *http.Request) {
	smiles := r.URL.Query().Get("smiles")
	if smiles == "" {
		writeAppError(w, h.logger, errors.New(errors.ErrCodeBadRequest, "smiles query parameter is required"))
		return
	}
	report, err := h.service.Descriptors(r.Context(), smiles)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
