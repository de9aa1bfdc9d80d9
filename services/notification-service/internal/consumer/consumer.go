package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/codes"

	"github.com/md-rashed-zaman/slotdesk/libs/kafkax"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// Inbox deduplicates deliveries by event id.
type Inbox interface {
	Record(ctx context.Context, eventID, eventType string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	DefaultMaxAttempts = 5
	maxBackoff         = 30 * time.Second
)

type Consumer struct {
	reader      reader
	logger      *slog.Logger
	inbox       Inbox
	handler     Handler
	maxAttempts int
	backoff     func(attempt int) time.Duration
}

type Config struct {
	Brokers []string
	GroupID string
	Topics  []string
	// MaxAttempts bounds delivery attempts per message before it is dropped.
	MaxAttempts int
}

func New(logger *slog.Logger, in Inbox, cfg Config, handler Handler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	c := newConsumer(r, logger, in, handler)
	if cfg.MaxAttempts > 0 {
		c.maxAttempts = cfg.MaxAttempts
	}
	return c
}

func newConsumer(r reader, logger *slog.Logger, in Inbox, handler Handler) *Consumer {
	return &Consumer{
		reader:      r,
		logger:      logger,
		inbox:       in,
		handler:     handler,
		maxAttempts: DefaultMaxAttempts,
		backoff:     exponentialBackoff,
	}
}

func exponentialBackoff(attempt int) time.Duration {
	d := time.Second << (attempt - 1)
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

// Run fetches without auto-commit. An offset is committed only once its message
// was delivered, recognized as a duplicate, or dropped after maxAttempts, so a
// failed delivery is retried instead of skipped.
func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka fetch error", "err", err)
			if !sleep(ctx, time.Second) {
				return
			}
			continue
		}
		if !c.deliver(ctx, msg) {
			return
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			// left uncommitted; the inbox drops the redelivery
			c.logger.Error("kafka commit failed", "err", err, "topic", msg.Topic, "offset", msg.Offset)
		}
	}
}

// deliver retries msg with backoff. It returns false only when ctx ended first,
// leaving the message uncommitted for the next group member.
func (c *Consumer) deliver(ctx context.Context, msg kafka.Message) bool {
	for attempt := 1; ; attempt++ {
		err := c.process(ctx, msg)
		if err == nil {
			return true
		}
		meta := kafkax.ExtractEventMeta(msg)
		if attempt >= c.maxAttempts {
			c.logger.Error("event dropped after retries", "err", err, "attempts", attempt,
				"event_id", meta.EventID, "event_type", meta.EventType)
			return true
		}
		c.logger.Warn("event delivery failed, retrying", "err", err, "attempt", attempt, "event_id", meta.EventID)
		if !sleep(ctx, c.backoff(attempt)) {
			return false
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// process handles one attempt. A handler failure releases the inbox claim so the
// retry is not mistaken for a duplicate.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	ctxSpan, span := kafkax.StartConsumeSpan(ctx, msg)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	ok, err := c.inbox.Record(ctxSpan, meta.EventID, meta.EventType)
	if err != nil {
		c.logger.Error("inbox record failed", "err", err, "event_id", meta.EventID)
		span.RecordError(err)
		span.SetStatus(codes.Error, "inbox")
		return err
	}
	if !ok {
		c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
		return nil
	}

	if err := c.handler(ctxSpan, msg); err != nil {
		c.logger.Error("handler error", "err", err, "event_id", meta.EventID, "event_type", meta.EventType)
		span.RecordError(err)
		span.SetStatus(codes.Error, "handler")
		if ferr := c.inbox.Forget(ctxSpan, meta.EventID); ferr != nil {
			c.logger.Error("inbox release failed", "err", ferr, "event_id", meta.EventID)
		}
		return err
	}
	return nil
}
