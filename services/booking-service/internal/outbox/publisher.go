package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/slotdesk/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotdesk/libs/otel"
	"github.com/segmentio/kafka-go"
)

// Source hands out unpublished records. publish runs while the batch is held;
// the records are marked published only if it returns nil.
type Source interface {
	WithPending(ctx context.Context, limit int, publish func([]Record) error) (int, error)
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	source    Source
	writer    MessageWriter
	logger    *slog.Logger
	pollEvery time.Duration
	batchSize int
}

type PublisherConfig struct {
	Brokers   []string
	PollEvery time.Duration
	BatchSize int
}

// NewPublisher writes to Kafka when brokers are configured and to the log otherwise.
func NewPublisher(source Source, logger *slog.Logger, cfg PublisherConfig) *Publisher {
	var w MessageWriter
	if len(cfg.Brokers) > 0 {
		w = &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		}
	} else {
		logger.Warn("outbox publisher writing to log (no kafka brokers configured)")
		w = LogWriter{Logger: logger}
	}
	return newPublisher(source, w, logger, cfg)
}

func newPublisher(source Source, w MessageWriter, logger *slog.Logger, cfg PublisherConfig) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Publisher{
		source:    source,
		writer:    w,
		logger:    logger,
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
	}
}

func (p *Publisher) Run(ctx context.Context) {
	defer p.writer.Close()

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PublishBatch(ctx); err != nil {
				p.logger.Error("outbox publish failed", "err", err)
			}
		}
	}
}

// PublishBatch publishes up to one batch and returns how many records went out.
func (p *Publisher) PublishBatch(ctx context.Context) (int, error) {
	return p.source.WithPending(ctx, p.batchSize, func(records []Record) error {
		msgs := make([]kafka.Message, 0, len(records))
		for _, r := range records {
			msgCtx := otelx.ContextWithTraceContext(ctx, r.Traceparent, r.Tracestate)
			meta := kafkax.EventMeta{EventID: r.EventID, EventType: r.EventType}
			msgs = append(msgs, kafkax.NewEventMessage(msgCtx, meta, r.AggregateID, r.Payload))
		}
		return p.writer.WriteMessages(ctx, msgs...)
	})
}

// LogWriter stands in for Kafka in single-process deployments.
type LogWriter struct {
	Logger *slog.Logger
}

func (w LogWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		w.Logger.Info("domain event",
			"event_type", m.Topic,
			"event_id", kafkax.HeaderValue(m.Headers, kafkax.HeaderEventID),
			"aggregate_id", string(m.Key),
			"payload", string(m.Value),
		)
	}
	return nil
}

func (LogWriter) Close() error { return nil }
