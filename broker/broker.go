package broker

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Subscription is one consumer's view of a Broker or Latest. Receive from C
// until it is closed.
type Subscription[T any] struct {
	C       <-chan T
	ch      chan T
	cancel  func()
	dropped atomic.Int64
}

// Cancel detaches the subscription and closes C. Safe to call more than once.
func (s *Subscription[T]) Cancel() {
	s.cancel()
}

// Dropped counts values this subscriber missed because its buffer was full.
func (s *Subscription[T]) Dropped() int64 {
	return s.dropped.Load()
}

// Broker fans every published value out to all current subscribers. A slow
// subscriber loses values once its buffer fills; it never blocks Publish.
type Broker[T any] struct {
	mu      sync.RWMutex
	subs    map[*Subscription[T]]struct{}
	closed  bool
	dropped atomic.Int64
	log     logrus.FieldLogger
}

func NewBroker[T any](logger logrus.FieldLogger) *Broker[T] {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Broker[T]{
		subs: make(map[*Subscription[T]]struct{}),
		log:  logger,
	}
}

// Subscribe registers a new consumer with the given channel buffer. Values
// published before the call are not replayed.
func (b *Broker[T]) Subscribe(buffer int) *Subscription[T] {
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan T, buffer)
	sub := &Subscription[T]{C: ch, ch: ch}

	var once sync.Once
	sub.cancel = func() {
		once.Do(func() { b.remove(sub) })
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return sub
	}
	b.subs[sub] = struct{}{}
	b.log.WithField("subscribers", len(b.subs)).Debug("Subscriber added")
	return sub
}

// Unsubscribe is the same as sub.Cancel.
func (b *Broker[T]) Unsubscribe(sub *Subscription[T]) {
	sub.Cancel()
}

func (b *Broker[T]) remove(sub *Subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; !ok {
		if !b.closed {
			b.log.Warn("Did not find subscriber to remove")
		}
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
	b.log.WithField("subscribers", len(b.subs)).Debug("Subscriber removed")
}

// Publish delivers v to every subscriber without blocking.
func (b *Broker[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		select {
		case sub.ch <- v:
		default:
			sub.dropped.Add(1)
			b.dropped.Add(1)
			b.log.WithField("dropped", sub.dropped.Load()).Warn("Dropped value for slow subscriber (buffer full)")
		}
	}
}

// Len returns the number of active subscribers.
func (b *Broker[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped is the total number of values dropped across all subscribers.
func (b *Broker[T]) Dropped() int64 {
	return b.dropped.Load()
}

// Close closes every subscription. Later subscriptions are returned closed
// and later publishes are ignored.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		close(sub.ch)
	}
	b.subs = make(map[*Subscription[T]]struct{})
}
