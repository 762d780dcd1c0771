// Package itemcache holds recently fetched item snapshots with TTL expiry and
// notifies subscribers when a snapshot is published or invalidated.
package itemcache

import (
	"sync"
	"time"

	"github.com/erazemk/estatedesk/internal/model"
)

// Clock returns the current time.
type Clock func() time.Time

// Event is delivered to subscribers. Item is nil when the entry was
// invalidated.
type Event struct {
	ID   string
	Item *model.Item
}

type entry struct {
	item    *model.Item
	expires time.Time
}

// Cache is safe for concurrent use. Subscribers are called synchronously,
// outside the lock, in subscription order.
type Cache struct {
	ttl   time.Duration
	clock Clock

	mu      sync.Mutex
	entries map[string]entry
	subs    map[uint64]func(Event)
	order   []uint64
	nextSub uint64
}

// New returns a cache whose entries live for ttl. A nil clock means time.Now.
func New(ttl time.Duration, clock Clock) *Cache {
	if clock == nil {
		clock = time.Now
	}
	return &Cache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]entry),
		subs:    make(map[uint64]func(Event)),
	}
}

// Get returns the cached snapshot for id if present and not expired.
func (c *Cache) Get(id string) (*model.Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	if !c.clock().Before(e.expires) {
		delete(c.entries, id)
		return nil, false
	}
	return e.item, true
}

// Put stores a snapshot without notifying subscribers.
func (c *Cache) Put(it *model.Item) {
	if c.ttl <= 0 || it == nil {
		return
	}
	c.mu.Lock()
	c.entries[it.ID] = entry{item: it, expires: c.clock().Add(c.ttl)}
	c.mu.Unlock()
}

// Publish stores a fresh snapshot and notifies subscribers.
func (c *Cache) Publish(it *model.Item) {
	if it == nil {
		return
	}
	c.Put(it)
	c.notify(Event{ID: it.ID, Item: it})
}

// Invalidate drops the entry for id and notifies subscribers.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
	c.notify(Event{ID: id})
}

// Subscribe registers fn for every publish and invalidation. The returned
// function removes the subscription and is safe to call more than once.
func (c *Cache) Subscribe(fn func(Event)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.order = append(c.order, id)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs, id)
			for i, v := range c.order {
				if v == id {
					c.order = append(c.order[:i], c.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) notify(ev Event) {
	c.mu.Lock()
	fns := make([]func(Event), 0, len(c.order))
	for _, id := range c.order {
		fns = append(fns, c.subs[id])
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
