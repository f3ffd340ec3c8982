// Package events carries storefront notifications between request handlers
// and, with NATS, between replicas. The navigation cart badge listens here
// instead of being poked directly by whichever page changed the cart.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Topics.
const (
	TopicCartChanged = "cart.changed"
	TopicOrderPlaced = "order.placed"
)

// Event is a notification about one session.
type Event struct {
	Topic     string    `json:"topic"`
	SessionID string    `json:"session_id"`
	OrderID   int64     `json:"order_id,omitempty"`
	At        time.Time `json:"at"`
}

// CartChanged builds a cart change notification.
func CartChanged(sessionID string) Event {
	return Event{Topic: TopicCartChanged, SessionID: sessionID, At: time.Now()}
}

// OrderPlaced builds an order notification.
func OrderPlaced(sessionID string, orderID int64) Event {
	return Event{Topic: TopicOrderPlaced, SessionID: sessionID, OrderID: orderID, At: time.Now()}
}

// Handler receives events.
type Handler func(ctx context.Context, ev Event)

// Bus publishes and delivers events.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(topic string, h Handler) (unsubscribe func(), err error)
	Close() error
}

func encode(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

func decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, fmt.Errorf("unmarshal event: %w", err)
	}
	return ev, nil
}

// LocalBus delivers events synchronously within the process.
type LocalBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]Handler
}

// NewLocalBus creates an in-process bus.
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[string]map[int]Handler)}
}

func (b *LocalBus) Publish(ctx context.Context, ev Event) error {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[ev.Topic]))
	for _, h := range b.subs[ev.Topic] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, ev)
	}
	return nil
}

func (b *LocalBus) Subscribe(topic string, h Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.subs[topic][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[topic], id)
	}, nil
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string]map[int]Handler)
	return nil
}
