// Package store persists the mask configuration in Redis and propagates
// updates between gateways over pub/sub.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	// Key holds the configuration text. Updates are published on a channel
	// of the same name.
	Key string
}

// Store is a Redis-backed mask configuration store.
type Store struct {
	client *redis.Client
	key    string
	log    zerolog.Logger
}

// New creates a store. No connection is made until the first command.
func New(opts Options, log zerolog.Logger) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	return &Store{
		client: client,
		key:    opts.Key,
		log:    log.With().Str("component", "store").Str("key", opts.Key).Logger(),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Load returns the stored configuration. ok is false when nothing has been
// saved yet.
func (s *Store) Load(ctx context.Context) (text string, ok bool, err error) {
	text, err = s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("load %s: %w", s.key, err)
	}
	return text, true, nil
}

// Save stores text and notifies watchers in one transaction.
func (s *Store) Save(ctx context.Context, text string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key, text, 0)
		pipe.Publish(ctx, s.key, text)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", s.key, err)
	}
	s.log.Debug().Int("bytes", len(text)).Msg("mask configuration saved")
	return nil
}

// Watch calls fn with every published configuration until ctx is done.
// Updates saved by this process are delivered too.
func (s *Store) Watch(ctx context.Context, fn func(text string)) error {
	sub := s.client.Subscribe(ctx, s.key)
	defer sub.Close()

	// Wait for the subscription to be confirmed.
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", s.key, err)
	}
	s.log.Info().Msg("watching mask updates")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.log.Debug().Int("bytes", len(msg.Payload)).Msg("mask update received")
			fn(msg.Payload)
		}
	}
}

func (s *Store) Close() error {
	return s.client.Close()
}
