// Package transport connects a player to a room. Every implementation
// carries the same protocol requests and full-snapshot updates; only the
// side that owns the room ever applies them to a game.
package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/lox/pokerrooms/internal/protocol"
)

// ErrClosed is returned by Do after the transport has been closed or has
// lost its connection.
var ErrClosed = errors.New("transport closed")

// Transport is one player's connection to the authoritative room.
type Transport interface {
	// Do sends req and waits for its response. A rejected request is a
	// successful round trip: its error is in the response.
	Do(ctx context.Context, req protocol.Request) (protocol.Response, error)
	// Updates streams the seat's view after every change, latest-wins.
	Updates() <-chan protocol.Update
	Close() error
}

// pending correlates in-flight requests with their responses by request ID.
type pending struct {
	mu      sync.Mutex
	waiters map[string]chan protocol.Response
	closed  bool
}

func newPending() *pending {
	return &pending{waiters: make(map[string]chan protocol.Response)}
}

// add assigns a request ID if needed and registers a waiter for it.
func (p *pending) add(req *protocol.Request) (chan protocol.Response, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	ch := make(chan protocol.Response, 1)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	p.waiters[req.RequestID] = ch
	return ch, nil
}

func (p *pending) remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.waiters, id)
}

// resolve reports whether anyone was waiting for resp.
func (p *pending) resolve(resp protocol.Response) bool {
	p.mu.Lock()
	ch, ok := p.waiters[resp.RequestID]
	delete(p.waiters, resp.RequestID)
	p.mu.Unlock()
	if ok {
		ch <- resp
	}
	return ok
}

// close fails every waiter and refuses new ones.
func (p *pending) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for id, ch := range p.waiters {
		close(ch)
		delete(p.waiters, id)
	}
}

// await blocks for the response registered with add.
func await(ctx context.Context, p *pending, id string, ch chan protocol.Response) (protocol.Response, error) {
	select {
	case resp, ok := <-ch:
		if !ok {
			return protocol.Response{}, ErrClosed
		}
		return resp, nil
	case <-ctx.Done():
		p.remove(id)
		return protocol.Response{}, ctx.Err()
	}
}

// offer replaces any unread update in ch with u, keeping its events.
func offer(ch chan protocol.Update, u protocol.Update) {
	select {
	case ch <- u:
		return
	default:
	}
	select {
	case old := <-ch:
		u = protocol.Coalesce(old, u)
	default:
	}
	select {
	case ch <- u:
	default:
	}
}
