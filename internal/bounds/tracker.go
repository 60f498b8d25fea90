package bounds

import (
	"sync"

	"github.com/roman-kulish/flightplot/internal/channel"
)

type entry struct {
	bounds    Bounds
	version   uint64
	processed int
}

// Tracker maintains running bounds per channel. Each Update folds only the
// samples appended since the previous Update of the same channel.
type Tracker struct {
	mu      sync.Mutex
	entries map[*channel.Channel]*entry
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{entries: make(map[*channel.Channel]*entry)}
}

// Update brings the bounds of ch up to date and returns them. The boolean is
// false when the channel has no usable samples yet, in which case the
// returned bounds are the Empty sentinel.
func (t *Tracker) Update(ch *channel.Channel) (Bounds, bool) {
	return t.Observe(ch, ch.Snapshot())
}

// Observe is Update for a snapshot the caller already holds, so that the
// bounds cover at least the samples the caller is about to draw.
func (t *Tracker) Observe(ch *channel.Channel, snap channel.Snapshot) (Bounds, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[ch]
	if !ok {
		e = &entry{bounds: Empty()}
		t.entries[ch] = e
	}

	if snap.Version() != e.version && snap.Len() > e.processed {
		e.bounds = e.bounds.Fold(snap.Samples()[e.processed:])
		e.processed = snap.Len()
		e.version = snap.Version()
	}

	return e.bounds, !e.bounds.IsEmpty()
}

// Reset drops the state of every channel.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	clear(t.entries)
}
