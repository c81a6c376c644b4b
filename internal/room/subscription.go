package room

import (
	"sync"

	"github.com/lox/pokerrooms/internal/protocol"
)

// Subscription receives room updates for one viewer. Delivery is
// latest-wins: a reader that falls behind skips straight to the newest
// snapshot instead of blocking the room, with the skipped events carried
// along.
type Subscription struct {
	room     *Room
	viewerID string
	ch       chan protocol.Update

	mu     sync.Mutex
	closed bool
}

func newSubscription(r *Room, viewerID string) *Subscription {
	return &Subscription{room: r, viewerID: viewerID, ch: make(chan protocol.Update, 1)}
}

// Updates is closed after the room closes or Close is called.
func (s *Subscription) Updates() <-chan protocol.Update { return s.ch }

// ViewerID returns the seat the updates are rendered for.
func (s *Subscription) ViewerID() string { return s.viewerID }

// Close stops delivery.
func (s *Subscription) Close() {
	s.room.unsubscribe(s)
}

func (s *Subscription) deliver(u protocol.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- u:
		return
	default:
	}
	select {
	case old := <-s.ch:
		u = protocol.Coalesce(old, u)
	default:
	}
	select {
	case s.ch <- u:
	default:
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
