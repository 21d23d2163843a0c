// Package redis provides a Redis backed AuditSink. Entries are serialized to
// JSON and written under a key prefix with an optional TTL, so completed
// sessions and alerts survive process restarts.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/caremesh/caremesh/core"
)

// Options configure the Redis audit sink.
type Options struct {
	// KeyPrefix is prepended to every audit key. Keys take the form
	// "<prefix>:<kind>:<ref_id>:<unix_nano>".
	KeyPrefix string
	// TTL bounds record retention; zero keeps records forever.
	TTL time.Duration
}

// Sink writes audit entries to Redis.
type Sink struct {
	client *redis.Client
	opts   Options
}

// New connects to Redis at addr and verifies the connection with a ping.
func New(ctx context.Context, addr, password string, db int, optFns ...func(o *Options)) (*Sink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewFromClient(client, optFns...), nil
}

// NewFromClient wraps an existing Redis client.
func NewFromClient(client *redis.Client, optFns ...func(o *Options)) *Sink {
	opts := Options{KeyPrefix: "caremesh:audit"}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Sink{client: client, opts: opts}
}

// Store serializes the entry to JSON and writes it under a time-suffixed key.
func (s *Sink) Store(ctx context.Context, entry core.AuditEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	key := fmt.Sprintf("%s:%s:%s:%d", s.opts.KeyPrefix, entry.Kind, entry.RefID, entry.Timestamp.UnixNano())
	if err := s.client.Set(ctx, key, payload, s.opts.TTL).Err(); err != nil {
		return fmt.Errorf("failed to store audit entry: %w", err)
	}

	return nil
}

// Close releases the underlying Redis connection.
func (s *Sink) Close() error {
	return s.client.Close()
}
