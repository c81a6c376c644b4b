package transport

import (
	"sync"

	"github.com/lox/pokerrooms/internal/protocol"
)

// Bus is a broadcast medium shared by a peer host and its followers:
// every published message reaches every subscriber. Messages are addressed
// by their ClientID.
type Bus interface {
	Publish(msg *protocol.Message) error
	// Subscribe returns a message stream and a function that ends it.
	Subscribe() (<-chan *protocol.Message, func())
}

const busBuffer = 256

// MemoryBus is an in-process Bus.
type MemoryBus struct {
	mu     sync.Mutex
	subs   map[chan *protocol.Message]struct{}
	closed bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[chan *protocol.Message]struct{})}
}

// Publish never blocks. A subscriber whose buffer is full misses the
// message.
func (b *MemoryBus) Publish(msg *protocol.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	for ch := range b.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe() (<-chan *protocol.Message, func()) {
	ch := make(chan *protocol.Message, busBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}
}

// Close ends every subscription.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
	return nil
}
