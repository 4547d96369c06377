package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	rediscommon "github.com/arlebowski/Tiny-Time-sub002/common/redis"
)

// StreamOptions configures the Redis Streams consumer.
type StreamOptions struct {
	Stream       string
	Group        string
	Consumer     string
	BatchSize    int64
	Block        time.Duration
	MaxBackoff   time.Duration
	InitialDelay time.Duration
}

// streamEvent is the JSON payload producers put in the "data" field.
type streamEvent struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason,omitempty"`
}

// StreamSource turns messages on a Redis stream into trigger events.
type StreamSource struct {
	hub
	client *redis.Client
	opts   StreamOptions
	logger *zap.Logger
}

func NewStreamSource(client *redis.Client, opts StreamOptions, logger *zap.Logger) *StreamSource {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.Block <= 0 {
		opts.Block = 5 * time.Second
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 30 * time.Second
	}
	return &StreamSource{client: client, opts: opts, logger: logger}
}

// Run consumes until ctx is cancelled, backing off exponentially on read errors.
func (s *StreamSource) Run(ctx context.Context) error {
	if err := rediscommon.CreateConsumerGroup(ctx, s.client, s.opts.Stream, s.opts.Group); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	s.logger.Info("Trigger stream consumer started",
		zap.String("stream", s.opts.Stream),
		zap.String("consumer_group", s.opts.Group),
		zap.String("consumer_name", s.opts.Consumer),
	)

	backoff := s.opts.InitialDelay
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := s.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error("Failed to consume trigger events",
				zap.Error(err),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
				backoff *= 2
				if backoff > s.opts.MaxBackoff {
					backoff = s.opts.MaxBackoff
				}
			}
			continue
		}
		backoff = s.opts.InitialDelay
	}
}

func (s *StreamSource) consume(ctx context.Context) error {
	messages, err := rediscommon.ReadFromStream(ctx, s.client, s.opts.Stream, s.opts.Group, s.opts.Consumer, s.opts.BatchSize, s.opts.Block)
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, msg := range messages {
		ev, err := parseStreamMessage(msg)
		if err != nil {
			// malformed messages are acked so they are not redelivered forever
			s.logger.Warn("Dropping malformed trigger message",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		} else {
			s.emit(ev)
		}
		if err := rediscommon.Ack(ctx, s.client, s.opts.Stream, s.opts.Group, msg.ID); err != nil {
			s.logger.Warn("Failed to ack trigger message",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func parseStreamMessage(msg rediscommon.StreamMessage) (Event, error) {
	var raw streamEvent
	if data, ok := msg.Values["data"].(string); ok {
		if err := json.Unmarshal([]byte(data), &raw); err != nil {
			return Event{}, fmt.Errorf("invalid data field: %w", err)
		}
	} else {
		raw.Kind, _ = msg.Values["kind"].(string)
		raw.Reason, _ = msg.Values["reason"].(string)
	}

	kind, err := ParseKind(raw.Kind)
	if err != nil {
		return Event{}, err
	}
	reason := raw.Reason
	if reason == "" {
		reason = "stream:" + string(kind)
	}
	return Event{ID: msg.ID, Kind: kind, Reason: reason, At: time.Now()}, nil
}
