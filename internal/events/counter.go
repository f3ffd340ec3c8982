package events

import (
	"context"
	"sync"
)

// CartCounter caches the navigation cart badge per session. Entries are
// dropped whenever the bus reports a cart change or a placed order for that
// session, and reloaded on the next page view.
type CartCounter struct {
	mu     sync.RWMutex
	counts map[string]int
	unsubs []func()
}

// NewCartCounter subscribes a counter to bus.
func NewCartCounter(bus Bus) (*CartCounter, error) {
	c := &CartCounter{counts: make(map[string]int)}
	invalidate := func(_ context.Context, ev Event) { c.Invalidate(ev.SessionID) }

	for _, topic := range []string{TopicCartChanged, TopicOrderPlaced} {
		unsub, err := bus.Subscribe(topic, invalidate)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.unsubs = append(c.unsubs, unsub)
	}
	return c, nil
}

// Count returns the cached count, calling load on a miss.
// Failed loads are not cached.
func (c *CartCounter) Count(ctx context.Context, sessionID string, load func(context.Context) (int, error)) (int, error) {
	c.mu.RLock()
	n, ok := c.counts[sessionID]
	c.mu.RUnlock()
	if ok {
		return n, nil
	}

	n, err := load(ctx)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.counts[sessionID] = n
	c.mu.Unlock()
	return n, nil
}

// Invalidate drops a session's cached count.
func (c *CartCounter) Invalidate(sessionID string) {
	c.mu.Lock()
	delete(c.counts, sessionID)
	c.mu.Unlock()
}

// Close unsubscribes from the bus.
func (c *CartCounter) Close() {
	for _, u := range c.unsubs {
		u()
	}
	c.unsubs = nil
}
