package events

import (
	"sync"

	"github.com/google/uuid"
)

// Topic names the record stream a subscription follows.
type Topic string

const (
	// TopicDependencies carries dependency edge changes.
	TopicDependencies Topic = "dependencies"
	// TopicGenres carries dependency genre changes.
	TopicGenres Topic = "genres"
)

// Publisher defines the interface for change-event publishing.
type Publisher interface {
	// Publish sends an event to all subscribers of the topic within the
	// event's project.
	Publish(topic Topic, event Event)
	// Subscribe returns a channel that receives a project's events for
	// the given topic.
	Subscribe(topic Topic, projectID uuid.UUID) <-chan Event
	// Unsubscribe removes a subscription channel.
	Unsubscribe(topic Topic, projectID uuid.UUID, ch <-chan Event)
	// Close shuts down the publisher and all subscriptions.
	Close()
}

type subscriptionKey struct {
	topic     Topic
	projectID uuid.UUID
}

// MemoryPublisher is an in-memory implementation of Publisher.
type MemoryPublisher struct {
	subscribers map[subscriptionKey][]chan Event
	mu          sync.RWMutex
	bufferSize  int
	closed      bool
}

// PublisherOption configures a MemoryPublisher.
type PublisherOption func(*MemoryPublisher)

// WithBufferSize sets the channel buffer size for subscribers.
func WithBufferSize(size int) PublisherOption {
	return func(p *MemoryPublisher) {
		p.bufferSize = size
	}
}

// NewMemoryPublisher creates a new in-memory publisher.
func NewMemoryPublisher(opts ...PublisherOption) *MemoryPublisher {
	p := &MemoryPublisher{
		subscribers: make(map[subscriptionKey][]chan Event),
		bufferSize:  100,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish sends an event to all subscribers of the topic within the
// event's project. Non-blocking: skips subscribers with full buffers.
func (p *MemoryPublisher) Publish(topic Topic, event Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return
	}

	key := subscriptionKey{topic: topic, projectID: event.ProjectID}
	for _, ch := range p.subscribers[key] {
		select {
		case ch <- event:
		default:
			// Skip if channel buffer is full (non-blocking)
		}
	}
}

// Subscribe returns a channel that receives a project's events for the
// given topic.
func (p *MemoryPublisher) Subscribe(topic Topic, projectID uuid.UUID) <-chan Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	key := subscriptionKey{topic: topic, projectID: projectID}
	ch := make(chan Event, p.bufferSize)
	p.subscribers[key] = append(p.subscribers[key], ch)
	return ch
}

// Unsubscribe removes a subscription channel.
func (p *MemoryPublisher) Unsubscribe(topic Topic, projectID uuid.UUID, ch <-chan Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := subscriptionKey{topic: topic, projectID: projectID}
	subs := p.subscribers[key]
	for i, sub := range subs {
		if sub == ch {
			p.subscribers[key] = append(subs[:i], subs[i+1:]...)
			close(sub)
			break
		}
	}

	if len(p.subscribers[key]) == 0 {
		delete(p.subscribers, key)
	}
}

// Close shuts down the publisher and closes all subscription channels.
func (p *MemoryPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	for key, subs := range p.subscribers {
		for _, ch := range subs {
			close(ch)
		}
		delete(p.subscribers, key)
	}
}

// SubscriberCount returns the number of subscribers for a topic within
// a project.
func (p *MemoryPublisher) SubscriberCount(topic Topic, projectID uuid.UUID) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscribers[subscriptionKey{topic: topic, projectID: projectID}])
}

// NopPublisher is a no-op publisher for testing or when streams are
// disabled.
type NopPublisher struct{}

// Publish does nothing.
func (p *NopPublisher) Publish(topic Topic, event Event) {}

// Subscribe returns a closed channel.
func (p *NopPublisher) Subscribe(topic Topic, projectID uuid.UUID) <-chan Event {
	ch := make(chan Event)
	close(ch)
	return ch
}

// Unsubscribe does nothing.
func (p *NopPublisher) Unsubscribe(topic Topic, projectID uuid.UUID, ch <-chan Event) {}

// Close does nothing.
func (p *NopPublisher) Close() {}
