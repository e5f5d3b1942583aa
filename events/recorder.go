package events

import "sync"

// Recorded is one captured emission.
type Recorded struct {
	Target  string // user or room id
	Event   string
	Payload any
}

// Recorder is an Emitter that captures everything it is handed.
// Used by service tests in place of a live Hub.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) ToUser(userID, event string, payload any) {
	r.record(userID, event, payload)
}

func (r *Recorder) ToRoom(roomID, event string, payload any) {
	r.record(roomID, event, payload)
}

func (r *Recorder) JoinRoom(roomID, userID string)  {}
func (r *Recorder) LeaveRoom(roomID, userID string) {}
func (r *Recorder) DropRoom(roomID string)          {}

func (r *Recorder) record(target, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{Target: target, Event: event, Payload: payload})
}

// Events returns a snapshot of everything recorded so far.
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.events...)
}

// Named returns only the events with the given name.
func (r *Recorder) Named(event string) []Recorded {
	var out []Recorded
	for _, e := range r.Events() {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
