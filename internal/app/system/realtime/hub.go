// internal/app/system/realtime/hub.go
package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// subscriberBuffer is the per-subscription queue depth. A subscriber that
// falls this far behind starts losing events.
const subscriberBuffer = 64

// Publisher is what services depend on to emit change events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Broker carries events between instances. Publish sends an event to every
// instance (this one included); Run delivers received events until ctx ends.
type Broker interface {
	Publish(ctx context.Context, ev Event) error
	Run(ctx context.Context, deliver func(Event)) error
	Close() error
}

// Hub fans events out to topic subscribers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	broker Broker
	log    *zap.Logger

	dropped func(topic string)
}

// NewHub creates a hub. With a nil broker events are delivered in-process.
func NewHub(broker Broker, logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		broker: broker,
		log:    logger,
	}
}

// OnDrop registers a callback invoked when a slow subscriber misses an event.
func (h *Hub) OnDrop(fn func(topic string)) {
	h.dropped = fn
}

// Run consumes the broker until ctx is canceled. It returns immediately
// when there is no broker.
func (h *Hub) Run(ctx context.Context) error {
	if h.broker == nil {
		return nil
	}
	return h.broker.Run(ctx, h.deliver)
}

// Close closes the broker, if any.
func (h *Hub) Close() error {
	if h.broker == nil {
		return nil
	}
	return h.broker.Close()
}

// Publish sends ev to every subscriber of ev.Topic on every instance.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	if h.broker != nil {
		return h.broker.Publish(ctx, ev)
	}
	h.deliver(ev)
	return nil
}

func (h *Hub) deliver(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[ev.Topic] {
		select {
		case s.ch <- ev:
		default:
			h.log.Warn("realtime subscriber too slow; event dropped",
				zap.String("topic", ev.Topic),
				zap.String("event_id", ev.ID))
			if h.dropped != nil {
				h.dropped(ev.Topic)
			}
		}
	}
}

// Subscribers returns the number of subscriptions on topic, or on every
// topic when topic is empty.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if topic != "" {
		return len(h.subs[topic])
	}
	n := 0
	for _, set := range h.subs {
		n += len(set)
	}
	return n
}

// Subscribe registers interest in topic. Call Close when done.
func (h *Hub) Subscribe(topic string) *Subscription {
	s := &Subscription{
		Topic: topic,
		ch:    make(chan Event, subscriberBuffer),
		hub:   h,
	}
	h.mu.Lock()
	set, ok := h.subs[topic]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[topic] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *Hub) unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[s.Topic]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.Topic)
		}
	}
}

// Subscription receives events for one topic.
type Subscription struct {
	Topic string
	ch    chan Event
	hub   *Hub
	once  sync.Once
}

// C returns the event channel. It is closed by Close.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Close unregisters the subscription and closes its channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
		close(s.ch)
	})
}
