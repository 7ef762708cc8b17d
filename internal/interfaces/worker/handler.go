// Package worker turns encode jobs consumed from Kafka into encode results.
package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/turtacn/SeqQuant/internal/application/encoding"
	"github.com/turtacn/SeqQuant/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/SeqQuant/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SeqQuant/pkg/errors"
)

// Job outcome labels.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusRetry     = "retry"
	StatusMalformed = "malformed"
)

// JobEncoder is the part of encoding.Service the worker calls.
type JobEncoder interface {
	Encode(ctx context.Context, req *encoding.EncodeRequest) (*encoding.LatentResult, error)
}

// Publisher sends result messages.
type Publisher interface {
	Publish(ctx context.Context, msg *kafka.ProducerMessage) error
}

// JobMetrics records job outcomes.
type JobMetrics interface {
	RecordWorkerJob(status string, d time.Duration)
}

type noopJobMetrics struct{}

func (noopJobMetrics) RecordWorkerJob(string, time.Duration) {}

// HandlerConfig wires an EncodeHandler.
type HandlerConfig struct {
	Encoder     JobEncoder
	Publisher   Publisher
	ResultTopic string
	JobTimeout  time.Duration
	Metrics     JobMetrics
	Logger      logging.Logger
}

// EncodeHandler runs one encode job per message and publishes the outcome.
type EncodeHandler struct {
	encoder     JobEncoder
	publisher   Publisher
	resultTopic string
	timeout     time.Duration
	metrics     JobMetrics
	logger      logging.Logger
}

func NewEncodeHandler(cfg HandlerConfig) (*EncodeHandler, error) {
	if cfg.Encoder == nil || cfg.Publisher == nil {
		return nil, errors.New(errors.ErrCodeBadRequest, "worker handler requires an encoder and a publisher")
	}
	if cfg.ResultTopic == "" {
		cfg.ResultTopic = kafka.TopicEncodeResults
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopJobMetrics{}
	}
	return &EncodeHandler{
		encoder:     cfg.Encoder,
		publisher:   cfg.Publisher,
		resultTopic: cfg.ResultTopic,
		timeout:     cfg.JobTimeout,
		metrics:     cfg.Metrics,
		logger:      logging.OrNop(cfg.Logger).Named("worker"),
	}, nil
}

// Handle satisfies kafka.MessageHandler.
//
// Undecodable messages and transient failures (encoder not loaded, service
// unavailable, publish errors) are returned so the consumer retries them and
// finally dead-letters them. Every other encode failure is a terminal
// outcome and is published as a result carrying the error code.
func (h *EncodeHandler) Handle(ctx context.Context, msg *kafka.Message) error {
	start := time.Now()

	job, err := kafka.DecodeEncodeJob(msg)
	if err != nil {
		h.metrics.RecordWorkerJob(StatusMalformed, time.Since(start))
		return err
	}
	log := h.logger.With(logging.String("job_id", job.JobID))

	jobCtx := ctx
	if h.timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	latents, err := h.encoder.Encode(jobCtx, &encoding.EncodeRequest{
		Sequences:         job.Sequences,
		PolymerType:       job.PolymerType,
		EncodingStrategy:  job.EncodingStrategy,
		SkipUnprocessable: job.SkipUnprocessable,
		NewMonomers:       job.NewMonomers,
	})

	result := &kafka.EncodeResult{JobID: job.JobID}
	status := StatusSucceeded
	switch {
	case err != nil && isTransient(err):
		h.metrics.RecordWorkerJob(StatusRetry, time.Since(start))
		log.Warn("Encode job deferred", logging.Err(err))
		return err
	case err != nil:
		status = StatusFailed
		result.Error = jobError(err)
		log.Info("Encode job failed", logging.String("code", result.Error.Code), logging.String("error", result.Error.Message))
	default:
		raw, mErr := json.Marshal(latents)
		if mErr != nil {
			h.metrics.RecordWorkerJob(StatusFailed, time.Since(start))
			return errors.Wrap(mErr, errors.ErrCodeSerialization, "failed to marshal latent result")
		}
		result.Result = raw
	}
	result.FinishedAt = time.Now().UTC()

	out, err := result.ToMessage(h.resultTopic)
	if err != nil {
		h.metrics.RecordWorkerJob(StatusFailed, time.Since(start))
		return err
	}
	if err := h.publisher.Publish(ctx, out); err != nil {
		h.metrics.RecordWorkerJob(StatusRetry, time.Since(start))
		return err
	}

	d := time.Since(start)
	h.metrics.RecordWorkerJob(status, d)
	log.Debug("Encode job finished",
		logging.String("status", status),
		logging.Int("sequences", len(job.Sequences)),
		logging.Duration("duration", d))
	return nil
}

func isTransient(err error) bool {
	code := errors.GetCode(err)
	if code == errors.CodeUnknown {
		return false
	}
	return errors.HTTPStatusForCode(code) == http.StatusServiceUnavailable
}

func jobError(err error) *kafka.JobError {
	code := errors.GetCode(err)
	if code == errors.CodeUnknown {
		return &kafka.JobError{Code: string(errors.ErrCodeInternal), Message: err.Error()}
	}
	msg := err.Error()
	if ae, ok := errors.AsAppError(err); ok {
		msg = ae.Message
		if ae.Detail != "" {
			msg += ": " + ae.Detail
		}
	}
	return &kafka.JobError{Code: string(code), Message: msg}
}
