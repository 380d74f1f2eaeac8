package timer

import "sync"

// Signal is a cross-countdown notification delivered over a Broadcaster
// channel.
type Signal int

const (
	// SignalClear tells sibling countdowns for the same category that the
	// session ended and they should complete immediately.
	SignalClear Signal = iota
)

// Broadcaster fans signals out to every countdown subscribed to a named
// channel. One channel per emotion category mirrors how session end in one
// place must stop the countdown everywhere else.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[string]map[int]chan Signal
	nextID      int
}

// NewBroadcaster constructs an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[string]map[int]chan Signal)}
}

// Subscribe registers a listener on the named channel. The returned cancel
// function removes the subscription; it is safe to call more than once.
func (b *Broadcaster) Subscribe(channel string) (<-chan Signal, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[int]chan Signal)
	}
	id := b.nextID
	b.nextID++

	signals := make(chan Signal, 4)
	b.subscribers[channel][id] = signals

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if listeners, ok := b.subscribers[channel]; ok {
			delete(listeners, id)
			if len(listeners) == 0 {
				delete(b.subscribers, channel)
			}
		}
	}
	return signals, cancel
}

// Publish delivers the signal to every current subscriber of the channel.
// Delivery is non-blocking; a subscriber with a full buffer misses the
// signal rather than stalling the publisher.
func (b *Broadcaster) Publish(channel string, signal Signal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, signals := range b.subscribers[channel] {
		select {
		case signals <- signal:
		default:
		}
	}
}
