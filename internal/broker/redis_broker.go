package broker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/Baaaki/daily-report/internal/audit"
	"github.com/Baaaki/daily-report/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// EventsChannel is the Redis pub/sub channel carrying employee mutations
const EventsChannel = "employees:events"

var ErrAlreadySubscribed = errors.New("broker already has an active subscription")

// RedisEventBroker implements EventBroker using pub/sub. It holds at most one
// subscription at a time.
type RedisEventBroker struct {
	client *redis.Client

	mu     sync.Mutex
	pubsub *redis.PubSub
}

// NewRedisEventBroker wraps an existing client. Closing the broker does not close it.
func NewRedisEventBroker(client *redis.Client) *RedisEventBroker {
	return &RedisEventBroker{
		client: client,
	}
}

// Record publishes entry. Having no subscribers is not an error.
func (r *RedisEventBroker) Record(entry audit.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return r.client.Publish(context.Background(), EventsChannel, data).Err()
}

// Subscribe streams published entries until ctx is done or the broker is closed.
// The subscription is released when the stream ends, after which Subscribe may be
// called again.
func (r *RedisEventBroker) Subscribe(ctx context.Context) (<-chan audit.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pubsub != nil {
		return nil, ErrAlreadySubscribed
	}

	pubsub := r.client.Subscribe(ctx, EventsChannel)

	// Wait for the subscription to be confirmed so no publish is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}
	r.pubsub = pubsub

	entries := make(chan audit.Entry, 100)
	messages := pubsub.Channel()

	go func() {
		defer close(entries)
		defer r.release(pubsub)

		for {
			select {
			case <-ctx.Done():
				return
			case redisMsg, ok := <-messages:
				if !ok {
					return
				}

				var entry audit.Entry
				if err := json.Unmarshal([]byte(redisMsg.Payload), &entry); err != nil {
					logger.Log.Warn("Dropped malformed employee event", zap.Error(err))
					continue
				}

				select {
				case entries <- entry:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return entries, nil
}

// release closes pubsub and forgets it, unless Close already did.
func (r *RedisEventBroker) release(pubsub *redis.PubSub) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pubsub != pubsub {
		return
	}
	if err := pubsub.Close(); err != nil {
		logger.Log.Warn("Failed to close employee event subscription", zap.Error(err))
	}
	r.pubsub = nil
}

func (r *RedisEventBroker) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pubsub == nil {
		return nil
	}
	err := r.pubsub.Close()
	r.pubsub = nil
	return err
}
