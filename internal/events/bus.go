package events

import (
	"log"
	"sync"
	"time"
)

// Handler receives published events
type Handler func(Event)

type subscription struct {
	id      uint64
	types   map[Type]bool
	handler Handler
}

// Bus fans events out to subscribers synchronously, in subscription order
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
	now    func() time.Time
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe registers handler for the given event types, or for every
// event when no types are given. The returned func removes the subscription.
func (b *Bus) Subscribe(handler Handler, types ...Type) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID

	var filter map[Type]bool
	if len(types) > 0 {
		filter = make(map[Type]bool, len(types))
		for _, t := range types {
			filter[t] = true
		}
	}

	b.subs = append(b.subs, subscription{id: id, types: filter, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers payload to every matching subscriber before returning.
// Handlers run without the bus lock held so they may publish or subscribe.
func (b *Bus) Publish(payload Payload) {
	ev := Event{
		Type:      payload.EventType(),
		Payload:   payload,
		Timestamp: b.now(),
	}

	b.mu.RLock()
	targets := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.types == nil || s.types[ev.Type] {
			targets = append(targets, s.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range targets {
		b.dispatch(h, ev)
	}
}

func (b *Bus) dispatch(h Handler, ev Event) {
	defer func() {
		if err := recover(); err != nil {
			log.Printf("[EventBus] PANIC in %s handler: %v", ev.Type, err)
		}
	}()
	h(ev)
}

// SubscriberCount returns the number of live subscriptions
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
