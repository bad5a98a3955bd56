package events

import "sync"

// Sink receives lifecycle events. Implementations must be safe for
// concurrent use by many producers.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Emit calls f(evt).
func (f SinkFunc) Emit(evt Event) {
	if f != nil {
		f(evt)
	}
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Recorder keeps every emitted event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	notify chan struct{}
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{notify: make(chan struct{}, 1)}
}

// Emit appends evt.
func (r *Recorder) Emit(evt Event) {
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Updated is signalled after each Emit, coalescing bursts.
func (r *Recorder) Updated() <-chan struct{} {
	return r.notify
}

// ByFile groups recorded event types per file name, preserving order.
func (r *Recorder) ByFile() map[string][]Type {
	out := make(map[string][]Type)
	for _, evt := range r.Events() {
		if name := evt.FileName(); name != "" {
			out[name] = append(out[name], evt.Type)
		}
	}
	return out
}
