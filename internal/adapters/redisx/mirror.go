// Package redisx provides the optional Remote Mirror: a best-effort
// replicated copy of the dataset in redis, used for multi-device sync.
// The mirror is never authoritative when local data exists; the engine
// reads it exactly once, and only when every local store is empty.
package redisx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/parcelops/shipledger/internal/domain"
	"github.com/parcelops/shipledger/internal/ports"
)

const (
	// DefaultKeyPrefix namespaces the mirror's hash and channel.
	DefaultKeyPrefix = "shipledger"

	ordersHashSuffix   = ":orders"
	updatesChanSuffix  = ":updates"
	defaultDialTimeout = 5 * time.Second
)

// updateNotice is published after every successful PutAll so subscribed
// devices can refresh.
type updateNotice struct {
	Count int   `json:"count"`
	At    int64 `json:"at"`
}

// Mirror replicates the record set into a redis hash keyed by record id,
// with change notifications over pub/sub.
type Mirror struct {
	client  *redis.Client
	hashKey string
	channel string
	logger  ports.Logger
}

var _ ports.Mirror = (*Mirror)(nil)

// Config holds the user-supplied mirror settings.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NewMirror connects to redis and verifies the connection with a ping.
func NewMirror(ctx context.Context, cfg Config, logger ports.Logger) (*Mirror, error) {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: defaultDialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to mirror: %w", err)
	}
	return &Mirror{
		client:  client,
		hashKey: cfg.KeyPrefix + ordersHashSuffix,
		channel: cfg.KeyPrefix + updatesChanSuffix,
		logger:  logger,
	}, nil
}

// GetAll returns the mirror's full record set. Entries that fail to decode
// are skipped with a warning rather than failing the whole read.
func (m *Mirror) GetAll(ctx context.Context) ([]domain.Order, error) {
	fields, err := m.client.HGetAll(ctx, m.hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read mirror: %w", err)
	}
	out := make([]domain.Order, 0, len(fields))
	for id, raw := range fields {
		var o domain.Order
		if err := json.Unmarshal([]byte(raw), &o); err != nil {
			m.logger.Warn("skipping undecodable mirror record",
				ports.String("id", id), ports.Err(err))
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// PutAll replicates a batch into the mirror hash and publishes an update
// notice. The write is best-effort: callers log failures and move on.
func (m *Mirror) PutAll(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	pipe := m.client.Pipeline()
	for _, o := range orders {
		b, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("encode order %s: %w", o.ID, err)
		}
		pipe.HSet(ctx, m.hashKey, o.ID, b)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write mirror: %w", err)
	}

	notice, _ := json.Marshal(updateNotice{Count: len(orders), At: time.Now().Unix()})
	if err := m.client.Publish(ctx, m.channel, notice).Err(); err != nil {
		// Replication succeeded; a lost notice only delays other devices.
		m.logger.Warn("mirror update notice not published", ports.Err(err))
	}
	return nil
}

// Subscribe invokes fn with the full mirror contents whenever another
// writer publishes an update. The returned cancel function stops the
// subscription.
func (m *Mirror) Subscribe(ctx context.Context, fn func([]domain.Order)) (func(), error) {
	sub := m.client.Subscribe(ctx, m.channel)
	// Force the subscription to be established before returning.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe to mirror: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				_ = msg
				orders, err := m.GetAll(ctx)
				if err != nil {
					m.logger.Warn("mirror refresh failed", ports.Err(err))
					continue
				}
				fn(orders)
			}
		}
	}()

	cancel := func() {
		_ = sub.Close()
		<-done
	}
	return cancel, nil
}

// Close releases the redis connection.
func (m *Mirror) Close() error {
	return m.client.Close()
}
