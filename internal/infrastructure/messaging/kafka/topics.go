package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/turtacn/SeqQuant/internal/domain/polymer"
	"github.com/turtacn/SeqQuant/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SeqQuant/pkg/errors"
)

// Default topic names.
const (
	TopicEncodeRequests = "seqquant.encode.requests"
	TopicEncodeResults  = "seqquant.encode.results"
	TopicEncodeDLQ      = "seqquant.encode.dlq"
)

// Header keys set on produced messages.
const (
	HeaderJobID         = "job_id"
	HeaderSchemaVersion = "schema_version"
	HeaderOriginalTopic = "original_topic"
	HeaderError         = "error_message"
)

const SchemaVersion = "v1"

// EncodeJob is the payload of an encode request message.
type EncodeJob struct {
	JobID             string                      `json:"job_id"`
	Sequences         []string                    `json:"sequences"`
	PolymerType       string                      `json:"polymer_type"`
	EncodingStrategy  string                      `json:"encoding_strategy"`
	SkipUnprocessable bool                        `json:"skip_unprocessable"`
	NewMonomers       []polymer.NewMonomerRequest `json:"new_monomers,omitempty"`
	SubmittedAt       time.Time                   `json:"submitted_at,omitempty"`
}

// JobError reports why a job produced no result.
type JobError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EncodeResult is the payload of an encode result message. Exactly one of
// Result and Error is set.
type EncodeResult struct {
	JobID      string          `json:"job_id"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      *JobError       `json:"error,omitempty"`
	FinishedAt time.Time       `json:"finished_at"`
}

// NewEncodeJob builds a job with a fresh id.
func NewEncodeJob(sequences []string, polymerType, strategy string) *EncodeJob {
	return &EncodeJob{
		JobID:            uuid.New().String(),
		Sequences:        sequences,
		PolymerType:      polymerType,
		EncodingStrategy: strategy,
		SubmittedAt:      time.Now().UTC(),
	}
}

// DecodeEncodeJob parses a request message. Jobs without an id get one so
// the result can still be correlated by the message key.
func DecodeEncodeJob(msg *Message) (*EncodeJob, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var job EncodeJob
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal encode job")
	}
	if job.JobID == "" {
		if len(msg.Key) > 0 {
			job.JobID = string(msg.Key)
		} else {
			job.JobID = uuid.New().String()
		}
	}
	return &job, nil
}

// ToMessage encodes the job for topic, keyed by job id.
func (j *EncodeJob) ToMessage(topic string) (*ProducerMessage, error) {
	val, err := json.Marshal(j)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal encode job")
	}
	return &ProducerMessage{
		Topic: topic,
		Key:   []byte(j.JobID),
		Value: val,
		Headers: map[string]string{
			HeaderJobID:         j.JobID,
			HeaderSchemaVersion: SchemaVersion,
		},
		Timestamp: j.SubmittedAt,
	}, nil
}

// ToMessage encodes the result for topic, keyed by job id.
func (r *EncodeResult) ToMessage(topic string) (*ProducerMessage, error) {
	val, err := json.Marshal(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal encode result")
	}
	return &ProducerMessage{
		Topic: topic,
		Key:   []byte(r.JobID),
		Value: val,
		Headers: map[string]string{
			HeaderJobID:         r.JobID,
			HeaderSchemaVersion: SchemaVersion,
		},
		Timestamp: r.FinishedAt,
	}, nil
}

// TopicConfig describes a topic to create.
type TopicConfig struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
}

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager creates the encode topics.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "failed to dial kafka")
	}
	return NewTopicManagerWithConn(conn, logger), nil
}

func NewTopicManagerWithConn(conn ConnInterface, logger logging.Logger) *TopicManager {
	return &TopicManager{conn: conn, logger: logging.OrNop(logger)}
}

// CreateTopic creates cfg.Name. An existing topic is not an error.
func (m *TopicManager) CreateTopic(ctx context.Context, cfg TopicConfig) error {
	if cfg.Name == "" {
		return errors.New(errors.ErrCodeValidation, "topic name required")
	}
	if cfg.NumPartitions <= 0 {
		return errors.New(errors.ErrCodeValidation, "partitions must be > 0")
	}
	if cfg.ReplicationFactor <= 0 {
		return errors.New(errors.ErrCodeValidation, "replication factor must be > 0")
	}

	kCfg := kafka.TopicConfig{
		Topic:             cfg.Name,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if cfg.RetentionMs > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{
			ConfigName:  "retention.ms",
			ConfigValue: fmt.Sprintf("%d", cfg.RetentionMs),
		})
	}

	if err := m.conn.CreateTopics(kCfg); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already exists") {
			return nil
		}
		if exists, _ := m.TopicExists(ctx, cfg.Name); exists {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeMessagingError, "failed to create topic").WithDetail(cfg.Name)
	}
	m.logger.Info("Topic created", logging.String("topic", cfg.Name))
	return nil
}

func (m *TopicManager) TopicExists(_ context.Context, name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		return false, nil
	}
	return len(partitions) > 0, nil
}

// EnsureTopics creates every topic in order and stops at the first failure.
func (m *TopicManager) EnsureTopics(ctx context.Context, topics []TopicConfig) error {
	for _, topic := range topics {
		if err := m.CreateTopic(ctx, topic); err != nil {
			return err
		}
	}
	return nil
}

func (m *TopicManager) Close() error {
	return m.conn.Close()
}

// EncodeTopics returns the request, result and dead-letter topic layout.
func EncodeTopics(request, result, dlq string, replication int) []TopicConfig {
	if replication <= 0 {
		replication = 1
	}
	day := int64(24 * 3600 * 1000)
	return []TopicConfig{
		{Name: request, NumPartitions: 6, ReplicationFactor: replication, RetentionMs: 3 * day},
		{Name: result, NumPartitions: 6, ReplicationFactor: replication, RetentionMs: 3 * day},
		{Name: dlq, NumPartitions: 1, ReplicationFactor: replication, RetentionMs: 30 * day},
	}
}
