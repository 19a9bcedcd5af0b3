// Package ratelimit gates rule firing so a (user, rule) pair emits at
// most once per window. The window granularity is one calendar day.
package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/beewell/momentum/internal/domain/model"
)

// Limiter decides whether a rule may fire for a user on a given day.
type Limiter interface {
	// TryAcquire atomically checks whether (userID, rule) already fired on
	// day and records the firing if not. Returns true when the caller may
	// proceed, false when the firing is suppressed.
	TryAcquire(ctx context.Context, userID, rule string, day time.Time) (bool, error)

	// Release undoes an acquisition, allowing a retry. Use only when an
	// acquired firing failed to persist.
	Release(ctx context.Context, userID, rule string, day time.Time) error
}

// Key renders the ledger key for one (user, rule, day) combination.
func Key(userID, rule string, day time.Time) string {
	return userID + "|" + rule + "|" + model.FormatDate(model.Day(day))
}

// entry is a node in the eviction list.
type entry struct {
	key  string
	next *entry
}

func (e *entry) reset() {
	e.key = ""
	e.next = nil
}

// memoryLimiter implements Limiter with an in-memory ledger and LIFO
// eviction once maxSize is reached. It backs the reactive evaluation path
// where hitting the store for every probe would be wasteful; the
// store-backed limiter remains the source of truth across restarts.
type memoryLimiter struct {
	mu      sync.Mutex
	seen    map[string]*entry
	head    *entry
	maxSize int
	size    atomic.Int64
	pool    sync.Pool
}

// Option applies a configuration option to the memory limiter.
type Option func(*memoryLimiter)

// WithMaxSize bounds the ledger; 0 or negative means unbounded.
func WithMaxSize(n int) Option {
	return func(l *memoryLimiter) {
		l.maxSize = n
	}
}

// NewMemoryLimiter creates an in-memory Limiter.
func NewMemoryLimiter(opts ...Option) Limiter {
	l := &memoryLimiter{
		maxSize: 50000,
		seen:    make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.maxSize > 0 {
		l.pool = sync.Pool{New: func() any { return &entry{} }}
	}
	return l
}

func (l *memoryLimiter) TryAcquire(_ context.Context, userID, rule string, day time.Time) (bool, error) {
	key := Key(userID, rule, day)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.seen[key]; exists {
		return false, nil
	}

	if l.maxSize > 0 {
		if len(l.seen) >= l.maxSize {
			l.evictOldest()
		}
		e := l.pool.Get().(*entry)
		e.key = key
		e.next = l.head
		l.head = e
		l.seen[key] = e
	} else {
		l.seen[key] = nil
	}
	l.size.Add(1)
	return true, nil
}

func (l *memoryLimiter) Release(_ context.Context, userID, rule string, day time.Time) error {
	key := Key(userID, rule, day)

	l.mu.Lock()
	defer l.mu.Unlock()

	e, exists := l.seen[key]
	if !exists {
		return nil
	}
	delete(l.seen, key)
	l.size.Add(-1)

	if l.maxSize == 0 || e == nil {
		return nil
	}
	if l.head == e {
		l.head = e.next
	} else {
		cur := l.head
		for cur != nil && cur.next != e {
			cur = cur.next
		}
		if cur != nil {
			cur.next = e.next
		}
	}
	e.reset()
	l.pool.Put(e)
	return nil
}

// Size returns the number of recorded firings.
func (l *memoryLimiter) Size() int64 { return l.size.Load() }

// evictOldest drops the tail of the list. Caller holds l.mu.
func (l *memoryLimiter) evictOldest() {
	if l.head == nil {
		return
	}
	if l.head.next == nil {
		delete(l.seen, l.head.key)
		l.head.reset()
		l.pool.Put(l.head)
		l.head = nil
		l.size.Add(-1)
		return
	}
	prev := l.head
	cur := l.head.next
	for cur.next != nil {
		prev = cur
		cur = cur.next
	}
	prev.next = nil
	delete(l.seen, cur.key)
	cur.reset()
	l.pool.Put(cur)
	l.size.Add(-1)
}

// chain combines limiters: a firing proceeds only when every limiter in
// order grants it. Acquisitions made before a refusal are rolled back so
// the ledgers stay consistent.
type chain struct {
	limiters []Limiter
}

// Chain combines limiters into one. Typical use is a memory limiter in
// front of the store-backed one.
func Chain(limiters ...Limiter) Limiter {
	return &chain{limiters: limiters}
}

func (c *chain) TryAcquire(ctx context.Context, userID, rule string, day time.Time) (bool, error) {
	for i, l := range c.limiters {
		ok, err := l.TryAcquire(ctx, userID, rule, day)
		if err != nil {
			c.release(ctx, userID, rule, day, i)
			return false, err
		}
		if !ok {
			c.release(ctx, userID, rule, day, i)
			return false, nil
		}
	}
	return true, nil
}

func (c *chain) Release(ctx context.Context, userID, rule string, day time.Time) error {
	var firstErr error
	for _, l := range c.limiters {
		if err := l.Release(ctx, userID, rule, day); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *chain) release(ctx context.Context, userID, rule string, day time.Time, upto int) {
	for i := 0; i < upto; i++ {
		_ = c.limiters[i].Release(ctx, userID, rule, day)
	}
}
