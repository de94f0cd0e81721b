package events

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPublisher_TopicAndProjectScoping(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	projectA := uuid.New()
	projectB := uuid.New()

	depsA := p.Subscribe(TopicDependencies, projectA)
	depsB := p.Subscribe(TopicDependencies, projectB)
	genresA := p.Subscribe(TopicGenres, projectA)

	p.Publish(TopicDependencies, NewEvent(EventDependencyCreated, projectA, "payload"))

	select {
	case ev := <-depsA:
		assert.Equal(t, EventDependencyCreated, ev.Type)
		assert.Equal(t, projectA, ev.ProjectID)
	default:
		t.Fatal("subscriber for project A should receive the event")
	}

	assert.Empty(t, depsB, "other project receives nothing")
	assert.Empty(t, genresA, "other topic receives nothing")
}

func TestMemoryPublisher_Unsubscribe(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	projectID := uuid.New()
	ch := p.Subscribe(TopicGenres, projectID)
	assert.Equal(t, 1, p.SubscriberCount(TopicGenres, projectID))

	p.Unsubscribe(TopicGenres, projectID, ch)
	assert.Equal(t, 0, p.SubscriberCount(TopicGenres, projectID))

	_, open := <-ch
	assert.False(t, open, "unsubscribed channel is closed")
}

func TestMemoryPublisher_CloseEndsAllStreams(t *testing.T) {
	p := NewMemoryPublisher()
	projectID := uuid.New()

	ch := p.Subscribe(TopicDependencies, projectID)
	p.Close()

	_, open := <-ch
	assert.False(t, open)

	// Subscribing after close yields a closed channel.
	late := p.Subscribe(TopicDependencies, projectID)
	_, open = <-late
	assert.False(t, open)

	// Publishing after close is a no-op.
	p.Publish(TopicDependencies, NewEvent(EventDependencyCreated, projectID, nil))
}

func TestMemoryPublisher_FullBufferDoesNotBlock(t *testing.T) {
	p := NewMemoryPublisher(WithBufferSize(2))
	defer p.Close()

	projectID := uuid.New()
	ch := p.Subscribe(TopicDependencies, projectID)

	for i := 0; i < 10; i++ {
		p.Publish(TopicDependencies, NewEvent(EventDependencyCreated, projectID, i))
	}

	require.Len(t, ch, 2, "overflow events are skipped for the slow subscriber")
}
