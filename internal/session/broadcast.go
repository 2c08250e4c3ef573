package session

import (
	"sync"

	"github.com/abhisek/intervue/internal/turn"
)

// Service-level events, published after the controller completes.
const (
	EventReport         turn.EventKind = "report"
	EventAnalysisFailed turn.EventKind = "analysis_failed"
)

// Broadcaster fans session events out to subscribers. Publish never
// blocks: a subscriber that falls behind loses events.
type Broadcaster struct {
	mu      sync.Mutex
	subs    map[int]chan turn.Event
	next    int
	closed  bool
	dropped int

	// Replayed to new subscribers so they can render the current turn.
	question   *turn.Event
	transition *turn.Event
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan turn.Event)}
}

// Subscribe returns a channel of events and a function that cancels the
// subscription. The channel is closed on cancel or when the broadcaster
// closes.
func (b *Broadcaster) Subscribe(buffer int) (<-chan turn.Event, func()) {
	if buffer < 4 {
		buffer = 4
	}
	ch := make(chan turn.Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	for _, ev := range []*turn.Event{b.question, b.transition} {
		if ev != nil {
			ch <- *ev
		}
	}
	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Publish delivers ev to every subscriber.
func (b *Broadcaster) Publish(ev turn.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	switch ev.Kind {
	case turn.EventQuestion:
		b.question = &ev
	case turn.EventTransition:
		b.transition = &ev
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped++
		}
	}
}

// Dropped returns the number of events lost to slow subscribers.
func (b *Broadcaster) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close closes every subscription. Later publishes are ignored.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
