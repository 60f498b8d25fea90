package channel

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Registry owns every channel of a session and maps topic names to them.
// Channels are created on first write and live until Reset.
type Registry struct {
	// lifecycle is held shared by ingestion and rendering and exclusively by
	// Reset, so a reset never races with an in-flight read or write.
	lifecycle sync.RWMutex

	mu       sync.RWMutex
	channels map[string]*Channel
	topics   []string

	generation atomic.Uint64
	options    []func(*Channel)
}

// NewRegistry creates an empty registry. The options are applied to every
// channel the registry creates.
func NewRegistry(options ...func(*Channel)) *Registry {
	return &Registry{
		channels: make(map[string]*Channel),
		options:  options,
	}
}

// GetOrCreate returns the channel for the topic, creating an empty one when
// the topic has not been seen before.
func (r *Registry) GetOrCreate(topic string) *Channel {
	r.mu.RLock()
	ch, ok := r.channels[topic]
	r.mu.RUnlock()
	if ok {
		return ch
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ch, ok = r.channels[topic]; ok {
		return ch
	}
	ch = New(topic, r.options...)
	r.channels[topic] = ch
	r.topics = append(r.topics, topic)
	return ch
}

// Get returns the channel for the topic without creating it.
func (r *Registry) Get(topic string) (*Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[topic]
	return ch, ok
}

// Topics returns the known topics in the order they were first seen.
func (r *Registry) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.topics)
}

// Len returns the number of channels.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.channels)
}

// Hold takes a shared hold on the registry lifecycle. Reset blocks until every
// hold has been released. The returned function releases the hold.
func (r *Registry) Hold() (release func()) {
	r.lifecycle.RLock()
	return r.lifecycle.RUnlock
}

// Reset drops every channel. It waits for in-flight holds and bumps the
// generation so that caches keyed by channel can be invalidated.
func (r *Registry) Reset() {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.channels = make(map[string]*Channel)
	r.topics = nil
	r.generation.Add(1)
}

// Generation returns the number of resets performed so far.
func (r *Registry) Generation() uint64 {
	return r.generation.Load()
}
