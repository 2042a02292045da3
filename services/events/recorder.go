package eventsvc

import (
	"context"
	"sync"

	"github.com/wordwise/backend/core"
)

// Recorder keeps every published event in memory for assertions in tests.
type Recorder struct {
	mu     sync.Mutex
	events []core.Event
}

var _ core.EventPublisher = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, evt core.Event) error {
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
	return nil
}

// Events returns the recorded events, optionally only those of the given types.
func (r *Recorder) Events(types ...string) []core.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	evts := make([]core.Event, 0, len(r.events))
	for _, evt := range r.events {
		if len(types) == 0 || core.ContainsString(types, evt.Type) {
			evts = append(evts, evt)
		}
	}
	return evts
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
