package broker

import (
	"sync"
)

// Latest holds one current value and pushes every change to its subscribers.
// Each subscriber channel has room for a single value, and a newer value
// replaces one that has not been received yet, so readers always catch up to
// the most recent state.
type Latest[T any] struct {
	mu     sync.Mutex
	value  T
	subs   map[*Subscription[T]]struct{}
	closed bool
}

func NewLatest[T any](initial T) *Latest[T] {
	return &Latest[T]{
		value: initial,
		subs:  make(map[*Subscription[T]]struct{}),
	}
}

func (l *Latest[T]) Get() T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}

func (l *Latest[T]) Set(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.value = v
	if l.closed {
		return
	}
	for sub := range l.subs {
		select {
		case <-sub.ch:
			sub.dropped.Add(1)
		default:
		}
		sub.ch <- v
	}
}

// Subscribe returns a subscription primed with the current value.
func (l *Latest[T]) Subscribe() *Subscription[T] {
	ch := make(chan T, 1)
	sub := &Subscription[T]{C: ch, ch: ch}

	var once sync.Once
	sub.cancel = func() {
		once.Do(func() { l.remove(sub) })
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		close(ch)
		return sub
	}
	ch <- l.value
	l.subs[sub] = struct{}{}
	return sub
}

func (l *Latest[T]) remove(sub *Subscription[T]) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.subs[sub]; !ok {
		return
	}
	delete(l.subs, sub)
	close(sub.ch)
}

func (l *Latest[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}

func (l *Latest[T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	for sub := range l.subs {
		close(sub.ch)
	}
	l.subs = make(map[*Subscription[T]]struct{})
}
