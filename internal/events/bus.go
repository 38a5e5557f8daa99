package events

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrTapExists is returned when Tap is called with a duplicate id.
	ErrTapExists = errors.New("tap id already exists")
	// ErrTapNotFound is returned when Untap is called with an unknown id.
	ErrTapNotFound = errors.New("tap id not found")
	// ErrBusClosed is returned by Tap after Close.
	ErrBusClosed = errors.New("bus is closed")
	// ErrNilChannel is returned when Tap is given a nil channel.
	ErrNilChannel = errors.New("channel cannot be nil")
)

// Handler consumes an event on the loop.
type Handler func(Event)

// Stats is a snapshot of tap delivery counters.
type Stats struct {
	Published uint64
	Sent      uint64
	Dropped   uint64
}

type subscription struct {
	fn     Handler
	page   string
	active bool
}

type tap struct {
	ch      chan<- Event
	sent    uint64
	dropped uint64
}

// Bus fans events out to subscribers and taps.
type Bus struct {
	mu        sync.RWMutex
	subs      []*subscription
	taps      map[string]*tap
	closed    bool
	published uint64
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{taps: make(map[string]*tap)}
}

// Subscribe registers fn for every event. The returned func unsubscribes.
func (b *Bus) Subscribe(fn Handler) func() {
	return b.subscribe("", fn)
}

// SubscribePage registers fn for events whose PageKey equals page.
func (b *Bus) SubscribePage(page string, fn Handler) func() {
	return b.subscribe(page, fn)
}

func (b *Bus) subscribe(page string, fn Handler) func() {
	sub := &subscription{fn: fn, page: page, active: true}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if !sub.active {
			return
		}
		sub.active = false
		for i, s := range b.subs {
			if s == sub {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				break
			}
		}
	}
}

// Tap registers a channel that receives every event. Sends never block.
func (b *Bus) Tap(id string, ch chan<- Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	if ch == nil {
		return ErrNilChannel
	}
	if _, exists := b.taps[id]; exists {
		return ErrTapExists
	}
	b.taps[id] = &tap{ch: ch}
	return nil
}

// Untap removes a tap.
func (b *Bus) Untap(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.taps[id]; !exists {
		return ErrTapNotFound
	}
	delete(b.taps, id)
	return nil
}

// Publish dispatches ev to subscribers in registration order, then offers it
// to every tap. Subscribers removed during dispatch are skipped.
func (b *Bus) Publish(ev Event) {
	if ev == nil {
		return
	}
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := append([]*subscription(nil), b.subs...)
	atomic.AddUint64(&b.published, 1)
	for _, t := range b.taps {
		select {
		case t.ch <- ev:
			atomic.AddUint64(&t.sent, 1)
		default:
			atomic.AddUint64(&t.dropped, 1)
		}
	}
	b.mu.RUnlock()

	key := ev.PageKey()
	for _, sub := range subs {
		if sub.page != "" && sub.page != key {
			continue
		}
		b.mu.RLock()
		active := sub.active
		b.mu.RUnlock()
		if active {
			sub.fn(ev)
		}
	}
}

// Stats aggregates tap counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	stats := Stats{Published: atomic.LoadUint64(&b.published)}
	for _, t := range b.taps {
		stats.Sent += atomic.LoadUint64(&t.sent)
		stats.Dropped += atomic.LoadUint64(&t.dropped)
	}
	return stats
}

// Close drops every subscriber and tap. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		sub.active = false
	}
	b.subs = nil
	b.taps = nil
}
