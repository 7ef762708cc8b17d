package latent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/turtacn/SeqQuant/internal/domain/polymer"
	"github.com/turtacn/SeqQuant/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SeqQuant/pkg/errors"
)

// ServingConfig addresses one model on a TensorFlow Serving REST endpoint.
type ServingConfig struct {
	Endpoint      string
	Model         string
	SignatureName string
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// ServingEncoder calls the TensorFlow Serving predict API. The served model
// is expected to output its latent layer.
type ServingEncoder struct {
	url       string
	model     string
	signature string
	client    *http.Client
	logger    logging.Logger
}

type predictRequest struct {
	SignatureName string        `json:"signature_name,omitempty"`
	Instances     [][][]float32 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float32 `json:"predictions"`
	Error       string      `json:"error,omitempty"`
}

// NewServingEncoder validates cfg and returns an encoder for cfg.Model.
func NewServingEncoder(cfg ServingConfig, logger logging.Logger) (*ServingEncoder, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New(errors.ErrCodeBadRequest, "serving endpoint cannot be empty")
	}
	if cfg.Model == "" {
		return nil, errors.New(errors.ErrCodeBadRequest, "serving model name cannot be empty")
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &ServingEncoder{
		url:       fmt.Sprintf("%s/v1/models/%s:predict", strings.TrimRight(cfg.Endpoint, "/"), cfg.Model),
		model:     cfg.Model,
		signature: cfg.SignatureName,
		client:    client,
		logger:    logging.OrNop(logger).Named("serving").With(logging.String("model", cfg.Model)),
	}, nil
}

func (s *ServingEncoder) Name() string { return "serving/" + s.model }

func (s *ServingEncoder) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *ServingEncoder) Infer(ctx context.Context, batch polymer.BatchTensor) ([][]float32, error) {
	if batch.Len() == 0 {
		return nil, emptyBatchError(s.Name())
	}
	body, err := json.Marshal(predictRequest{SignatureName: s.signature, Instances: batch.Nested()})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode predict request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "build predict request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInferenceFailed, "predict request failed").WithDetail(s.url)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInferenceFailed, "read predict response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New(errors.ErrCodeInferenceFailed, "serving returned an error status").
			WithDetail(fmt.Sprintf("%s: %d %s", s.url, resp.StatusCode, truncate(string(raw), 256)))
	}

	var out predictResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInferenceFailed, "decode predict response")
	}
	if out.Error != "" {
		return nil, errors.New(errors.ErrCodeInferenceFailed, "serving reported an error").WithDetail(out.Error)
	}
	if err := checkOutputRows(s.Name(), batch.Len(), len(out.Predictions)); err != nil {
		return nil, err
	}

	s.logger.Debug("predict completed",
		logging.Int("batch", batch.Len()),
		logging.Duration("latency", time.Since(start)))
	return out.Predictions, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
