package teleop

import (
	"context"
	"sync"

	"github.com/mbocsi/rosteleop/bridge"
	"github.com/mbocsi/rosteleop/broker"
)

// History is a bounded in-memory log of received messages. When full, the
// oldest entry is dropped.
type History struct {
	mu    sync.RWMutex
	items []bridge.ReceivedMessage
	max   int
}

func NewHistory(max int) *History {
	if max <= 0 {
		max = 1
	}
	return &History{max: max}
}

func (h *History) Add(msg bridge.ReceivedMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.items) == h.max {
		copy(h.items, h.items[1:])
		h.items = h.items[:h.max-1]
	}
	h.items = append(h.items, msg)
}

// Snapshot returns a copy, oldest first.
func (h *History) Snapshot() []bridge.ReceivedMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]bridge.ReceivedMessage(nil), h.items...)
}

// Last returns up to n of the newest entries, oldest first.
func (h *History) Last(n int) []bridge.ReceivedMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n <= 0 || n > len(h.items) {
		n = len(h.items)
	}
	return append([]bridge.ReceivedMessage(nil), h.items[len(h.items)-n:]...)
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.items)
}

func (h *History) Cap() int {
	return h.max
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = nil
}

// Run records every message from sub until ctx is done or sub closes.
func (h *History) Run(ctx context.Context, sub *broker.Subscription[bridge.ReceivedMessage]) {
	defer sub.Cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			h.Add(msg)
		}
	}
}
