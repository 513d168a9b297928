// Package dedupe tracks message ids already handed to the pipeline so that
// transport redeliveries are acknowledged without a second audit row.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Deduper records seen message ids.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a later redelivery is processed. Used when a
	// message was recorded but could not be enqueued.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

type entry struct {
	id      string
	expires time.Time
}

// inMemoryDeduper keeps ids in insertion order. When bounded, the oldest id
// is evicted first; when a ttl is set, expired ids count as unseen.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front is newest
	maxSize int        // <= 0 means unbounded
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50000,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if el, ok := d.seen[id]; ok {
		e := el.Value.(*entry)
		if d.ttl <= 0 || now.Before(e.expires) {
			return true
		}
		d.remove(el)
	}

	if d.maxSize > 0 {
		for len(d.seen) >= d.maxSize {
			d.remove(d.order.Back())
		}
	}
	e := &entry{id: id}
	if d.ttl > 0 {
		e.expires = now.Add(d.ttl)
	}
	d.seen[id] = d.order.PushFront(e)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.seen[id]; ok {
		d.remove(el)
	}
}

// remove drops el. Caller holds d.mu.
func (d *inMemoryDeduper) remove(el *list.Element) {
	if el == nil {
		return
	}
	delete(d.seen, el.Value.(*entry).id)
	d.order.Remove(el)
}

// Size returns the number of tracked ids, expired ones included until they
// are touched or evicted.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
