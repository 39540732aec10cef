// Package userver exposes the app loop over HTTP: the control/request
// endpoints and an SSE subscription stream (spec §4.6).
package userver

import (
	"encoding/json"
	"sync"

	"github.com/arung-agamani/uamp/internal/uevent"
)

// subscriber is one connected SSE client, grounded on
// internal/radio/stream.go's clientSub: a buffered channel the hub
// drops events into, with drop-on-full so one slow client can't stall
// the broadcast for everyone else.
type subscriber struct {
	ch chan uevent.Event
	id uint64
}

// Hub fans every published event out to every subscribed SSE client,
// the event-shaped counterpart to stream.go's Broadcaster/clientSub
// byte-chunk fan-out. It implements uevent.Sink so uloop can publish to
// it without importing this package.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint64]*subscriber
	nextID  uint64
}

func NewHub() *Hub {
	return &Hub{clients: make(map[uint64]*subscriber)}
}

// Publish implements uevent.Sink.
func (h *Hub) Publish(ev uevent.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.clients {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// Subscribe registers a new client and returns its subscription. The
// caller must call Unsubscribe when done.
func (h *Hub) Subscribe() *subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	sub := &subscriber{ch: make(chan uevent.Event, 64), id: id}
	h.clients[id] = sub
	return sub
}

func (h *Hub) Unsubscribe(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, sub.id)
	close(sub.ch)
}

func (h *Hub) ActiveClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// encodeEventData marshals an event's payload for the SSE data: line.
// quitting/restarting carry no payload, matching the original's bare
// "event: quitting\n\n" framing.
func encodeEventData(ev uevent.Event) ([]byte, bool) {
	if ev.Data == nil {
		return nil, false
	}
	b, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, false
	}
	return b, true
}
