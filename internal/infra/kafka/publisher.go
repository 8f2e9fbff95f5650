package kafka

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"codejudge/internal/domain/execution"
	"codejudge/internal/ports"
)

// Ensure Publisher implements ports.RunReportPublisher.
var _ ports.RunReportPublisher = (*Publisher)(nil)

const (
	headerContentType = "content-type"
	headerVerdict     = "verdict"
	// verdictRejected marks jobs that never ran, such as invalid requests.
	verdictRejected = "rejected"
)

// PublisherConfig configures the Kafka-based report publisher.
type PublisherConfig struct {
	Brokers []string
	Topic   string
}

// Publisher publishes job reports to Kafka, keyed by job ID.
type Publisher struct {
	writer messageWriter
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewPublisher constructs a Publisher using the supplied configuration.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker must be provided")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic must be provided")
	}

	writer := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		AllowAutoTopicCreation: true,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            5,
		WriteTimeout:           10 * time.Second,
	}

	return newPublisher(writer), nil
}

func newPublisher(writer messageWriter) *Publisher {
	return &Publisher{writer: writer}
}

// PublishRunReport serializes and writes the supplied outcome to Kafka.
func (p *Publisher) PublishRunReport(ctx context.Context, report execution.RunReport) error {
	if p.writer == nil {
		return fmt.Errorf("publisher is not initialized")
	}

	payload, err := encodeRunReport(report)
	if err != nil {
		return err
	}

	msg := kafkago.Message{
		Key:     []byte(report.JobID()),
		Value:   payload,
		Headers: reportHeaders(report),
		Time:    time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	return nil
}

// reportHeaders lets consumers route on the outcome without decoding the payload.
func reportHeaders(report execution.RunReport) []kafkago.Header {
	headers := []kafkago.Header{{Key: headerContentType, Value: []byte("application/json")}}
	switch {
	case report.Report != nil:
		headers = append(headers, kafkago.Header{Key: headerVerdict, Value: []byte(report.Report.Verdict)})
	case report.Err != nil:
		headers = append(headers, kafkago.Header{Key: headerVerdict, Value: []byte(verdictRejected)})
	}
	return headers
}

// Close releases the underlying Kafka writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
