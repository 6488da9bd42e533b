package realtime

import (
	"log"
	"sync"
)

// subscriberBuffer bounds how far a slow viewer may lag; events beyond it
// are dropped, keeping delivery at-most-once and the publisher unblocked.
const subscriberBuffer = 16

// Hub maintains one topic per showtime and fans published events out to
// its local subscribers.  With a relay attached (see RedisBridge), Publish
// hands events to the relay and local delivery happens when the relay
// feeds them back, so every instance behind the load balancer sees the
// same stream.
type Hub struct {
	mu     sync.RWMutex
	topics map[uint64]map[*Subscription]struct{}
	relay  func(Event) error
}

// NewHub returns a hub with no topics and no relay.
func NewHub() *Hub {
	return &Hub{topics: map[uint64]map[*Subscription]struct{}{}}
}

// Subscription is one viewer's membership in a showtime topic.  Events
// arrive on C until Close.
type Subscription struct {
	C          chan Event
	hub        *Hub
	showtimeID uint64
}

// SetRelay routes published events through an external fan-out (Redis
// pub/sub) instead of delivering them locally.  The relay feeds received
// events back via Deliver.
func (h *Hub) SetRelay(relay func(Event) error) {
	h.mu.Lock()
	h.relay = relay
	h.mu.Unlock()
}

// Subscribe joins the topic of one showtime.
func (h *Hub) Subscribe(showtimeID uint64) *Subscription {
	sub := &Subscription{
		C:          make(chan Event, subscriberBuffer),
		hub:        h,
		showtimeID: showtimeID,
	}
	h.mu.Lock()
	if h.topics[showtimeID] == nil {
		h.topics[showtimeID] = map[*Subscription]struct{}{}
	}
	h.topics[showtimeID][sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Close leaves the topic.  The event channel is not closed so a racing
// Deliver never panics; readers stop on their own context instead.
func (s *Subscription) Close() {
	h := s.hub
	h.mu.Lock()
	if subs, ok := h.topics[s.showtimeID]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.topics, s.showtimeID)
		}
	}
	h.mu.Unlock()
}

// Publish sends an event to every viewer of its showtime, through the
// relay when one is attached.  A relay failure falls back to local
// delivery so single-instance operation keeps working when Redis is down.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay != nil {
		if err := relay(ev); err == nil {
			return
		} else {
			log.Printf("realtime: relay publish failed, delivering locally: %v", err)
		}
	}
	h.Deliver(ev)
}

// Deliver fans an event out to the local subscribers of its topic.  Full
// subscriber buffers drop the event rather than block the publisher.
func (h *Hub) Deliver(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.topics[ev.ShowtimeID] {
		select {
		case sub.C <- ev:
		default:
		}
	}
}
