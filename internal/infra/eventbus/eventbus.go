// Package eventbus is the in-process notification sink between the chat core and the UI shell.
//
//   - One buffered channel per subscription (buffer=100), which may cover several topics.
//   - Publish never blocks: a subscriber with a full buffer misses the event.
//   - Unsubscribe closes the subscription channel; the WebSocket handler calls it on disconnect.
//   - Nothing is persisted.
package eventbus

import "sync"

// Topics emitted by the chat core. The payload is the conversation id.
const (
	TopicNewMessage = "newMessage"
	TopicNewChat    = "newChat"
)

// Event is a single published message.
type Event struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

// EventBus is the interface for publishing and subscribing to topics.
type EventBus interface {
	Publish(topic string, payload any)
	Subscribe(topics ...string) *Subscription
	Unsubscribe(sub *Subscription)
}

// Subscription receives the events of the topics it was created for.
type Subscription struct {
	C      <-chan Event
	ch     chan Event
	topics []string
}

const defaultBufferSize = 100

// Bus is the in-memory implementation of EventBus.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]*Subscription
}

// New returns a new in-memory Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[string][]*Subscription)}
}

// Subscribe registers a subscription for topics. The caller must drain C.
func (b *Bus) Subscribe(topics ...string) *Subscription {
	ch := make(chan Event, defaultBufferSize)
	sub := &Subscription{C: ch, ch: ch, topics: topics}
	b.mu.Lock()
	for _, t := range topics {
		b.subscribers[t] = append(b.subscribers[t], sub)
	}
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes sub from every topic and closes its channel. Calling it twice is a no-op.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	found := false
	for _, t := range sub.topics {
		subs := b.subscribers[t]
		for i, s := range subs {
			if s == sub {
				b.subscribers[t] = append(subs[:i:i], subs[i+1:]...)
				found = true
				break
			}
		}
		if len(b.subscribers[t]) == 0 {
			delete(b.subscribers, t)
		}
	}
	if found {
		close(sub.ch)
	}
}

// Publish sends an Event to all subscribers of topic, dropping it for any subscriber whose buffer is full.
func (b *Bus) Publish(topic string, payload any) {
	evt := Event{Topic: topic, Payload: payload}
	// The read lock is held while sending so Unsubscribe cannot close a channel mid-send.
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers[topic] {
		select {
		case sub.ch <- evt:
		default:
		}
	}
}
