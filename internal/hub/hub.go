// Package hub implements the central event hub that fans navigation and
// session events out to connected UI hosts.
package hub

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/warelink/scangate/internal/domain/events"
	"github.com/warelink/scangate/internal/domain/ports"
)

// broadcastDepth bounds how many events may queue before publishers start
// dropping. Slow subscribers are detached instead of backing up the queue.
const broadcastDepth = 256

// Hub fans published events out to every attached subscriber. Subscriptions
// take effect immediately; delivery happens on a single pump goroutine so
// subscribers observe events in publish order.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]ports.Subscriber
	running     bool

	broadcast chan events.Event
	done      chan struct{}
}

// New creates a Hub. It delivers nothing until Start is called.
func New() *Hub {
	return &Hub{
		subscribers: make(map[string]ports.Subscriber),
		broadcast:   make(chan events.Event, broadcastDepth),
		done:        make(chan struct{}),
	}
}

// Start launches the delivery pump. Starting a running hub is a no-op.
func (h *Hub) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return nil
	}
	h.running = true

	go h.pump()
	log.Debug().Msg("event hub started")
	return nil
}

// Stop halts delivery and closes every subscriber. Stopping a stopped hub is
// a no-op.
func (h *Hub) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = false
	close(h.done)

	for _, sub := range h.subscribers {
		_ = sub.Close()
	}
	h.subscribers = make(map[string]ports.Subscriber)
	h.mu.Unlock()

	log.Debug().Msg("event hub stopped")
	return nil
}

// Publish queues an event for delivery to all subscribers. Publish never
// blocks; when the queue is full the event is dropped.
func (h *Hub) Publish(event events.Event) {
	select {
	case h.broadcast <- event:
	default:
		log.Warn().
			Str("event_type", string(event.Type())).
			Msg("event dropped: broadcast queue full")
	}
}

// Subscribe attaches a subscriber. It replaces any existing subscriber with
// the same ID and is ignored once the hub has stopped.
func (h *Hub) Subscribe(sub ports.Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.subscribers[sub.ID()] = sub
	log.Debug().Str("subscriber_id", sub.ID()).Msg("subscriber attached")
}

// Unsubscribe detaches and closes a subscriber by ID.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(id)
}

// SubscriberCount returns the number of attached subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// IsRunning reports whether the delivery pump is active.
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// pump drains the broadcast queue until Stop.
func (h *Hub) pump() {
	for {
		select {
		case <-h.done:
			return
		case event := <-h.broadcast:
			h.fanOut(event)
		}
	}
}

// fanOut delivers one event to every subscriber. A subscriber whose Send
// fails is detached and closed; the remaining subscribers still receive the
// event.
func (h *Hub) fanOut(event events.Event) {
	var failed []string

	h.mu.RLock()
	for id, sub := range h.subscribers {
		if err := sub.Send(event); err != nil {
			log.Warn().
				Str("subscriber_id", id).
				Err(err).
				Msg("send failed, detaching subscriber")
			failed = append(failed, id)
		}
	}
	h.mu.RUnlock()

	if len(failed) == 0 {
		return
	}
	h.mu.Lock()
	for _, id := range failed {
		h.detachLocked(id)
	}
	h.mu.Unlock()
}

func (h *Hub) detachLocked(id string) {
	sub, ok := h.subscribers[id]
	if !ok {
		return
	}
	_ = sub.Close()
	delete(h.subscribers, id)
	log.Debug().Str("subscriber_id", id).Msg("subscriber detached")
}
