package sessions

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no renewal token is stored for the
// principal (never logged in, logged out, or the entry's TTL elapsed).
var ErrNotFound = errors.New("session not found")

// Repo maps a principal ID to the single authoritative renewal token for
// that principal. Put overwrites unconditionally (last-writer-wins), so a
// second login supersedes the renewal token of the first. The TTL must
// track the renewal token's own expiry so entries never outlive the token
// they vouch for.
//
// Reads and writes may block on network I/O to a backing store; callers
// are expected to bound them with a context deadline.
type Repo interface {
	Put(ctx context.Context, principalID, renewalToken string, ttl time.Duration) error
	Get(ctx context.Context, principalID string) (string, error)
	Delete(ctx context.Context, principalID string) error
}
