package room

import "sync"

// Sink is the outbound half of a viewer connection. Send failures are
// returned so the room can drop broken connections; Sink implementations
// must be safe for concurrent Send calls.
type Sink interface {
	Send(frame string) error
}

// connSet tracks live connections under sequential ids. The ids are only
// unique within one set; they double as suspender identities in Status.
type connSet struct {
	mu     sync.Mutex
	nextID int
	conns  map[int]Sink
}

func newConnSet() *connSet {
	return &connSet{conns: make(map[int]Sink)}
}

// Add registers a sink and returns its connection id.
func (cs *connSet) Add(s Sink) int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	id := cs.nextID
	cs.nextID++
	cs.conns[id] = s
	return id
}

// Remove drops a connection; unknown ids are ignored.
func (cs *connSet) Remove(id int) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.conns, id)
}

// Len reports the number of live connections.
func (cs *connSet) Len() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.conns)
}

// IDs returns the live connection ids in unspecified order.
func (cs *connSet) IDs() []int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	ids := make([]int, 0, len(cs.conns))
	for id := range cs.conns {
		ids = append(ids, id)
	}
	return ids
}

// Broadcast sends a frame to every live connection and returns the ids whose
// send failed. Failed connections are not removed here; the caller decides
// how to dispose of them.
func (cs *connSet) Broadcast(frame string) []int {
	cs.mu.Lock()
	targets := make(map[int]Sink, len(cs.conns))
	for id, s := range cs.conns {
		targets[id] = s
	}
	cs.mu.Unlock()

	var failed []int
	for id, s := range targets {
		if err := s.Send(frame); err != nil {
			failed = append(failed, id)
		}
	}
	return failed
}

// SendTo delivers a frame to a single connection.
func (cs *connSet) SendTo(id int, frame string) error {
	cs.mu.Lock()
	s, ok := cs.conns[id]
	cs.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Send(frame)
}
