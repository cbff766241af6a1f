package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"TradeDesk/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var _ QueueService = (*RedisPublisher)(nil)

// RedisPublisher pushes messages onto per-type Redis lists. Lists are
// trimmed to a maximum length so an absent consumer cannot grow them
// without bound.
type RedisPublisher struct {
	logger    *logger.Logger
	client    *redis.Client
	keyPrefix string
	source    string
	maxLen    int64
}

// RedisPublisherOption configures RedisPublisher.
type RedisPublisherOption func(*RedisPublisher)

// WithKeyPrefix sets custom key prefix.
func WithKeyPrefix(prefix string) RedisPublisherOption {
	return func(r *RedisPublisher) {
		r.keyPrefix = prefix
	}
}

// WithMaxLen caps each list.
func WithMaxLen(n int64) RedisPublisherOption {
	return func(r *RedisPublisher) {
		if n > 0 {
			r.maxLen = n
		}
	}
}

// WithSource tags every message with its origin.
func WithSource(source string) RedisPublisherOption {
	return func(r *RedisPublisher) {
		r.source = source
	}
}

// NewRedisPublisher creates a publisher-only queue.
func NewRedisPublisher(lgr *logger.Logger, client *redis.Client, opts ...RedisPublisherOption) *RedisPublisher {
	q := &RedisPublisher{
		logger:    lgr,
		client:    client,
		keyPrefix: "tradedesk:queue",
		maxLen:    10000,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue adds a message to the list for msgType.
func (r *RedisPublisher) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	msg := Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Source:    r.source,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	key := r.QueueKey(msgType)
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, r.maxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push message: %w", err)
	}
	return nil
}

// PublishMessage implements QueueService and logger.Publisher.
func (r *RedisPublisher) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	return r.Enqueue(ctx, msgType, payload)
}

// QueueKey returns the list key for msgType.
func (r *RedisPublisher) QueueKey(msgType string) string {
	return r.keyPrefix + ":" + msgType
}

// Ping checks connectivity.
func (r *RedisPublisher) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	r.logger.Info("redis publisher ready", logger.String("addr", r.client.Options().Addr))
	return nil
}
