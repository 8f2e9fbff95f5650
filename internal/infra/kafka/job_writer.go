package kafka

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"codejudge/internal/domain/execution"
)

// JobWriter enqueues job requests on the topic read by Consumer.
type JobWriter struct {
	writer messageWriter
}

// NewJobWriter constructs a JobWriter using the supplied configuration.
func NewJobWriter(cfg PublisherConfig) (*JobWriter, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker must be provided")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic must be provided")
	}

	return newJobWriter(&kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		AllowAutoTopicCreation: true,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
	}), nil
}

func newJobWriter(writer messageWriter) *JobWriter {
	return &JobWriter{writer: writer}
}

// PublishJob writes req keyed by its ID.
func (w *JobWriter) PublishJob(ctx context.Context, req execution.JobRequest) error {
	payload, err := encodeJobRequest(req)
	if err != nil {
		return err
	}

	msg := kafkago.Message{
		Key:     []byte(req.ID),
		Value:   payload,
		Headers: []kafkago.Header{{Key: headerContentType, Value: []byte("application/json")}},
		Time:    time.Now(),
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write job %q: %w", req.ID, err)
	}
	return nil
}

// PublishDone writes the marker that ends a bounded consumer run.
func (w *JobWriter) PublishDone(ctx context.Context) error {
	msg := kafkago.Message{Value: []byte(`{"type":"done"}`), Time: time.Now()}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write done marker: %w", err)
	}
	return nil
}

// Close releases the underlying Kafka writer.
func (w *JobWriter) Close() error {
	return w.writer.Close()
}
