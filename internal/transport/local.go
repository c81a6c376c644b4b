package transport

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/lox/pokerrooms/internal/protocol"
	"github.com/lox/pokerrooms/internal/room"
)

// Local drives a room in the same process, typically a single player
// against the house AI.
type Local struct {
	session   *room.Session
	closeOnce sync.Once
}

// NewLocal opens a session on registry.
func NewLocal(registry *room.Registry, logger *log.Logger) *Local {
	return &Local{session: room.NewSession(registry, logger)}
}

func (l *Local) Do(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if err := ctx.Err(); err != nil {
		return protocol.Response{}, err
	}
	return l.session.Handle(ctx, req), nil
}

func (l *Local) Updates() <-chan protocol.Update { return l.session.Updates() }

func (l *Local) Close() error {
	l.closeOnce.Do(l.session.Close)
	return nil
}
