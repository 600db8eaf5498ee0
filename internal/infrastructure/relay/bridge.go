package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultBridgeCloseTimeout = 5 * time.Second

// bridgeFrame wraps a relay envelope with the publishing instance ID so
// an instance can skip frames it published itself.
type bridgeFrame struct {
	Instance string          `json:"instance"`
	Payload  json.RawMessage `json:"payload"`
}

// RedisBridge fans envelopes out across relay instances using Redis
// Pub/Sub. Each instance publishes frames it received from its own
// sessions and rebroadcasts frames published by siblings.
type RedisBridge struct {
	client     *redis.Client
	ownsClient bool
	channel    string
	instanceID string
	logger     *zap.Logger
	cancelFn   context.CancelFunc
	doneCh     chan struct{}
	doneOnce   sync.Once
	mu         sync.Mutex
	isRunning  bool
}

// RedisBridgeOption is a functional option for configuring the bridge
type RedisBridgeOption func(*RedisBridge)

// WithBridgeChannel sets the Pub/Sub channel name
func WithBridgeChannel(channel string) RedisBridgeOption {
	return func(b *RedisBridge) { b.channel = channel }
}

// WithBridgeLogger sets the logger for the bridge
func WithBridgeLogger(logger *zap.Logger) RedisBridgeOption {
	return func(b *RedisBridge) { b.logger = logger }
}

// RedisConfig holds the connection settings for the bridge
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisBridge creates a bridge with its own Redis client
func NewRedisBridge(cfg RedisConfig, opts ...RedisBridgeOption) (*RedisBridge, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	bridge := newRedisBridge(client, true, opts...)
	return bridge, nil
}

// NewRedisBridgeWithClient creates a bridge on an existing Redis client.
// The caller retains ownership of the client and is responsible for
// closing it.
func NewRedisBridgeWithClient(client *redis.Client, opts ...RedisBridgeOption) *RedisBridge {
	return newRedisBridge(client, false, opts...)
}

func newRedisBridge(client *redis.Client, owns bool, opts ...RedisBridgeOption) *RedisBridge {
	bridge := &RedisBridge{
		client:     client,
		ownsClient: owns,
		channel:    "adminsync:relay",
		instanceID: uuid.NewString(),
		logger:     zap.NewNop(),
		doneCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(bridge)
	}
	return bridge
}

// Publish sends an envelope to all sibling relay instances
func (b *RedisBridge) Publish(ctx context.Context, payload []byte) error {
	data, err := json.Marshal(bridgeFrame{
		Instance: b.instanceID,
		Payload:  payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal bridge frame: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish bridge frame",
			zap.String("channel", b.channel),
			zap.Error(err))
		return fmt.Errorf("failed to publish bridge frame: %w", err)
	}

	return nil
}

// Subscribe starts listening for frames published by sibling instances.
// The callback is invoked for each frame that did not originate here.
// This method blocks and should be called in a goroutine.
func (b *RedisBridge) Subscribe(ctx context.Context, callback func(payload []byte)) error {
	b.mu.Lock()
	if b.isRunning {
		b.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	b.isRunning = true
	b.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancelFn = cancel
	b.mu.Unlock()

	pubsub := b.client.Subscribe(subCtx, b.channel)
	defer pubsub.Close()

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(subCtx); err != nil {
		b.mu.Lock()
		b.isRunning = false
		b.mu.Unlock()
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}

	b.logger.Info("Subscribed to relay bridge channel",
		zap.String("channel", b.channel),
		zap.String("instance_id", b.instanceID))

	ch := pubsub.Channel()

	for {
		select {
		case <-subCtx.Done():
			b.logger.Info("Relay bridge subscription stopped")
			b.mu.Lock()
			b.isRunning = false
			b.mu.Unlock()
			b.markDone()
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				b.logger.Warn("Relay bridge channel closed")
				b.mu.Lock()
				b.isRunning = false
				b.mu.Unlock()
				b.markDone()
				return nil
			}

			var frame bridgeFrame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				b.logger.Error("Failed to unmarshal bridge frame",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}

			if frame.Instance == b.instanceID {
				continue
			}

			go func(payload []byte) {
				defer func() {
					if r := recover(); r != nil {
						b.logger.Error("Panic in bridge callback",
							zap.Any("panic", r))
					}
				}()
				callback(payload)
			}(frame.Payload)
		}
	}
}

func (b *RedisBridge) markDone() {
	b.doneOnce.Do(func() {
		close(b.doneCh)
	})
}

// Close releases any resources held by the bridge
func (b *RedisBridge) Close() error {
	b.mu.Lock()
	cancelFn := b.cancelFn
	b.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
		select {
		case <-b.doneCh:
		case <-time.After(defaultBridgeCloseTimeout):
			b.logger.Warn("Timeout waiting for bridge subscription to stop")
		}
	}

	if b.ownsClient {
		return b.client.Close()
	}
	return nil
}

// Ensure RedisBridge implements Bridge
var _ Bridge = (*RedisBridge)(nil)
