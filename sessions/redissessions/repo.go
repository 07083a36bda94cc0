// Package redissessions provides a Redis-backed implementation of the
// sessions.Repo interface. Renewal tokens are stored under
// "refresh_token:<principalID>" with an expiry matching the token's own
// lifetime, so entries self-expire and never outlive the token.
package redissessions

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/jrsteele09/go-session-server/sessions"
)

const keyPrefix = "refresh_token:"

var _ sessions.Repo = (*Repo)(nil)

type Repo struct {
	client *redis.Client
}

// New creates a Repo on an existing Redis client. Ownership of the client
// stays with the caller.
func New(client *redis.Client) *Repo {
	return &Repo{client: client}
}

// Connect dials Redis at addr and verifies the connection with a ping.
func Connect(ctx context.Context, addr string) (*Repo, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "[redissessions.Connect] redis ping")
	}
	return &Repo{client: client}, nil
}

// Close closes the underlying Redis client.
func (r *Repo) Close() error { return r.client.Close() }

func (r *Repo) Put(ctx context.Context, principalID, renewalToken string, ttl time.Duration) error {
	if err := r.client.Set(ctx, keyPrefix+principalID, renewalToken, ttl).Err(); err != nil {
		return errors.Wrap(err, "[redissessions.Put] redis set")
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, principalID string) (string, error) {
	value, err := r.client.Get(ctx, keyPrefix+principalID).Result()
	if err == redis.Nil {
		return "", sessions.ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "[redissessions.Get] redis get")
	}
	return value, nil
}

func (r *Repo) Delete(ctx context.Context, principalID string) error {
	if err := r.client.Del(ctx, keyPrefix+principalID).Err(); err != nil {
		return errors.Wrap(err, "[redissessions.Delete] redis del")
	}
	return nil
}
