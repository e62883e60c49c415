package server

import (
	"sync"

	"tableside/internal/domain"
)

// subscriber buffer; a client that falls this far behind is evicted rather
// than allowed to stall every other stream.
const subscriberBuffer = 16

// Hub fans order events out to every connected kitchen-stream client.
type Hub struct {
	mu   sync.Mutex
	subs map[chan domain.StreamEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan domain.StreamEvent]struct{})}
}

// Subscribe registers a new stream consumer. The returned cancel is
// idempotent and closes the channel.
func (h *Hub) Subscribe() (<-chan domain.StreamEvent, func()) {
	ch := make(chan domain.StreamEvent, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Broadcast delivers ev to every subscriber without blocking; a full buffer
// means the subscriber is dropped.
func (h *Hub) Broadcast(ev domain.StreamEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			delete(h.subs, ch)
			close(ch)
		}
	}
}

// Len reports the current subscriber count.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
