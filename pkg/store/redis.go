package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/BTBurke/spc/pkg/sample"
	"github.com/cenkalti/backoff"
	"github.com/redis/go-redis/v9"
)

var _ Store = &Redis{}

// KeyPrefix namespaces collection keys, e.g. spc:temperature
const KeyPrefix = "spc:"

// Redis stores each collection as a JSON string under its own key.  Updates are optimistic: the key is watched while
// the collection is modified and the write is retried with backoff when another client changed it first.
type Redis struct {
	settings
	client *redis.Client
}

// NewRedis returns a store using an existing client
func NewRedis(client *redis.Client, opts ...Option) *Redis {
	return &Redis{
		settings: newSettings(opts),
		client:   client,
	}
}

// Dial connects to the server at addr and verifies the connection
func Dial(ctx context.Context, addr string, db int, opts ...Option) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection to %s failed: %w", addr, err)
	}
	return NewRedis(client, opts...), nil
}

// Close closes the underlying client
func (r *Redis) Close() error {
	return r.client.Close()
}

// Key returns the key holding the collection of this kind
func Key(kind sample.Kind) string {
	return KeyPrefix + string(kind)
}

func (r *Redis) Load(ctx context.Context, kind sample.Kind) (*sample.Collection, error) {
	return r.get(ctx, r.client, kind)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *Redis) get(ctx context.Context, g getter, kind sample.Kind) (*sample.Collection, error) {
	b, err := g.Get(ctx, Key(kind)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return sample.NewCollection(r.size), nil
	case err != nil:
		return nil, fmt.Errorf("failed to get %s: %w", Key(kind), err)
	}
	c, err := decode(r.size, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Key(kind), err)
	}
	return c, nil
}

func (r *Redis) Update(ctx context.Context, kind sample.Kind, fn func(*sample.Collection) error) (*sample.Collection, error) {
	key := Key(kind)
	var out *sample.Collection

	attempt := func() error {
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			c, err := r.get(ctx, tx, kind)
			if err != nil {
				return err
			}
			if err := fn(c); err != nil {
				return err
			}
			b, err := encode(c)
			if err != nil {
				return fmt.Errorf("failed to encode %s collection: %w", kind, err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, b, 0)
				return nil
			})
			if err != nil {
				return err
			}
			out = c
			return nil
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			return ErrConflict
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	if err := backoff.Retry(attempt, r.retryPolicy(ctx)); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Redis) Clear(ctx context.Context, kind sample.Kind) error {
	if err := r.client.Del(ctx, Key(kind)).Err(); err != nil {
		return fmt.Errorf("failed to clear %s: %w", Key(kind), err)
	}
	return nil
}
