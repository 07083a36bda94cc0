package sessions

import (
	"context"
	"sync"
	"time"
)

var _ Repo = (*InMemoryRepo)(nil)

type entry struct {
	renewalToken string
	expiresAt    time.Time
}

// InMemoryRepo is an in-memory implementation of Repo. Entries are lazily
// expired on read, so an entry whose TTL has elapsed behaves exactly like
// a deleted one.
type InMemoryRepo struct {
	mu      sync.RWMutex
	entries map[string]entry
	nowFunc func() time.Time
}

// InMemoryRepoOption defines a function type to modify an InMemoryRepo instance.
type InMemoryRepoOption func(*InMemoryRepo)

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) InMemoryRepoOption {
	return func(r *InMemoryRepo) {
		r.nowFunc = now
	}
}

// NewInMemoryRepo creates a new in-memory session repository
func NewInMemoryRepo(options ...InMemoryRepoOption) *InMemoryRepo {
	r := &InMemoryRepo{
		entries: make(map[string]entry),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Put stores the renewal token for a principal, overwriting any prior value.
func (r *InMemoryRepo) Put(ctx context.Context, principalID, renewalToken string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[principalID] = entry{
		renewalToken: renewalToken,
		expiresAt:    r.nowFunc().Add(ttl),
	}
	return nil
}

// Get returns the stored renewal token for a principal, or ErrNotFound.
func (r *InMemoryRepo) Get(ctx context.Context, principalID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.RLock()
	e, ok := r.entries[principalID]
	r.mu.RUnlock()

	if !ok {
		return "", ErrNotFound
	}
	if r.nowFunc().After(e.expiresAt) {
		r.mu.Lock()
		// Re-check under the write lock; a fresh Put may have raced the expiry.
		if current, ok := r.entries[principalID]; ok && r.nowFunc().After(current.expiresAt) {
			delete(r.entries, principalID)
		}
		r.mu.Unlock()
		return "", ErrNotFound
	}
	return e.renewalToken, nil
}

// Delete removes the stored renewal token for a principal. Deleting an
// absent entry is not an error.
func (r *InMemoryRepo) Delete(ctx context.Context, principalID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, principalID)
	return nil
}
