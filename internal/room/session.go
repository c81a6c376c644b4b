package room

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/lox/pokerrooms/internal/game"
	"github.com/lox/pokerrooms/internal/protocol"
)

// Session is one client's view of the registry: it remembers which room
// and seat the client holds, turns protocol requests into room commands and
// funnels that room's updates into a single stream. Every transport drives
// the same Session, so they all accept and reject exactly the same
// commands.
type Session struct {
	registry *Registry
	logger   *log.Logger
	out      chan protocol.Update

	mu       sync.Mutex
	room     *Room
	playerID string
	sub      *Subscription
	closed   bool
}

// NewSession creates a session that is not yet seated anywhere.
func NewSession(registry *Registry, logger *log.Logger) *Session {
	return &Session{
		registry: registry,
		logger:   logger.WithPrefix("session"),
		out:      make(chan protocol.Update, 1),
	}
}

// Updates streams the current room's updates, latest-wins. It is closed by
// Close.
func (s *Session) Updates() <-chan protocol.Update { return s.out }

// Seat returns the room and player the session currently holds.
func (s *Session) Seat() (roomCode, playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room == nil {
		return "", ""
	}
	return s.room.Code(), s.playerID
}

// Handle applies one request. Rejections are reported in the response, not
// as a Go error, so every transport can forward them verbatim.
func (s *Session) Handle(ctx context.Context, req protocol.Request) protocol.Response {
	resp := protocol.Response{RequestID: req.RequestID, Type: req.Type}
	room, playerID, err := s.handle(ctx, req)
	if err != nil {
		resp.Error = protocol.ErrorFrom(err)
		if room != nil {
			resp.RoomCode = room.Code()
		}
		return resp
	}
	resp.Success = true
	if room != nil {
		resp.RoomCode = room.Code()
		resp.PlayerID = playerID
		if req.Type == protocol.TypeCreateRoom || req.Type == protocol.TypeJoinRoom {
			token, err := room.rejoinToken(ctx, playerID)
			if err != nil {
				s.logger.Warn("Failed to read rejoin token", "room", room.Code(), "player", playerID, "error", err)
			}
			resp.Token = token
		}
		if snap, err := room.Snapshot(ctx, playerID); err == nil {
			resp.Room = &snap
		}
	}
	return resp
}

func (s *Session) handle(ctx context.Context, req protocol.Request) (*Room, string, error) {
	switch req.Type {
	case protocol.TypeCreateRoom:
		s.leave(ctx)
		room, id, err := s.registry.Create(ctx, req.Name, req.Settings, req.WithAI)
		if err != nil {
			return nil, "", err
		}
		return room, id, s.attach(ctx, room, id)

	case protocol.TypeJoinRoom:
		s.leave(ctx)
		room, id, err := s.registry.Join(ctx, req.RoomCode, req.Name)
		if err != nil {
			return nil, "", err
		}
		return room, id, s.attach(ctx, room, id)

	case protocol.TypeRejoinRoom:
		room, err := s.registry.Get(req.RoomCode)
		if err != nil {
			return nil, "", err
		}
		// The seat is only given up once the new one is confirmed.
		if err := room.Submit(ctx, Command{Kind: CmdReconnect, PlayerID: req.PlayerID, Token: req.Token}); err != nil {
			return nil, "", err
		}
		if current, id := s.Seat(); current != room.Code() || id != req.PlayerID {
			s.leave(ctx)
		}
		return room, req.PlayerID, s.attach(ctx, room, req.PlayerID)

	case protocol.TypeLeaveRoom:
		room, id := s.current()
		if room == nil {
			return nil, "", ErrNotInRoom
		}
		err := room.Submit(ctx, Command{Kind: CmdLeave, PlayerID: id})
		s.detach()
		if errors.Is(err, game.ErrRoundAborted) {
			err = nil
		}
		return nil, "", err
	}

	room, id := s.current()
	if room == nil {
		return nil, "", ErrNotInRoom
	}
	cmd := Command{PlayerID: id}
	switch req.Type {
	case protocol.TypeStartGame:
		cmd.Kind = CmdStart
	case protocol.TypeNextRound:
		cmd.Kind = CmdNextRound
	case protocol.TypeBuyBack:
		cmd.Kind = CmdBuyBack
	case protocol.TypePlayerAction:
		action, err := game.ParseAction(string(req.Action))
		if err != nil {
			return room, id, err
		}
		cmd.Kind, cmd.Action, cmd.Amount = CmdAction, action, req.Amount
	case protocol.TypeRevealCards:
		cmd.Kind, cmd.Indices = CmdReveal, req.Indices
	case protocol.TypeChatMessage:
		cmd.Kind, cmd.Text = CmdChat, req.Text
	default:
		return room, id, game.ErrInvalidAction
	}
	return room, id, room.Submit(ctx, cmd)
}

func (s *Session) current() (*Room, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room, s.playerID
}

func (s *Session) attach(ctx context.Context, room *Room, playerID string) error {
	s.detach()
	sub, err := room.Subscribe(ctx, playerID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.room, s.playerID, s.sub = room, playerID, sub
	s.mu.Unlock()
	go s.forward(sub)
	return nil
}

// detach drops the subscription without touching the seat.
func (s *Session) detach() {
	s.mu.Lock()
	sub := s.sub
	s.room, s.playerID, s.sub = nil, "", nil
	s.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}

// leave gives up the current seat, if any.
func (s *Session) leave(ctx context.Context) {
	room, id := s.current()
	if room == nil {
		return
	}
	err := room.Submit(ctx, Command{Kind: CmdLeave, PlayerID: id})
	if err != nil && !errors.Is(err, ErrRoomClosed) && !errors.Is(err, game.ErrRoundAborted) {
		s.logger.Warn("Failed to leave room", "room", room.Code(), "player", id, "error", err)
	}
	s.detach()
}

func (s *Session) forward(sub *Subscription) {
	for u := range sub.Updates() {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		select {
		case s.out <- u:
		default:
			select {
			case old := <-s.out:
				u = protocol.Coalesce(old, u)
			default:
			}
			s.out <- u
		}
		s.mu.Unlock()
	}
}

// Close ends the session. The seat is kept but flagged disconnected so the
// player can rejoin; the turn timer keeps running for it meanwhile.
func (s *Session) Close() {
	room, id := s.current()
	if room != nil {
		ctx := context.Background()
		if err := room.Submit(ctx, Command{Kind: CmdDisconnect, PlayerID: id}); err != nil && !errors.Is(err, ErrRoomClosed) {
			s.logger.Warn("Failed to flag disconnect", "room", room.Code(), "player", id, "error", err)
		}
	}
	s.detach()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
}
