package room

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/pokerrooms/internal/game"
	"github.com/lox/pokerrooms/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, reg *Registry) *Session {
	t.Helper()
	s := NewSession(reg, log.New(io.Discard))
	t.Cleanup(s.Close)
	return s
}

func nextUpdate(t *testing.T, s *Session) protocol.Update {
	t.Helper()
	select {
	case u, ok := <-s.Updates():
		require.True(t, ok, "session updates closed")
		return u
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for update")
		return protocol.Update{}
	}
}

func TestSessionCreateAndPlay(t *testing.T) {
	t.Parallel()
	reg, _ := newTestRegistry(t)
	ctx := testContext(t)
	host := newTestSession(t, reg)
	guest := newTestSession(t, reg)

	resp := host.Handle(ctx, protocol.Request{Type: protocol.TypeCreateRoom, RequestID: "r1", Name: "Alice"})
	require.NoError(t, resp.Err())
	assert.Equal(t, "r1", resp.RequestID)
	assert.Equal(t, protocol.TypeCreateRoom, resp.Type)
	require.NotNil(t, resp.Room)
	assert.Equal(t, resp.PlayerID, resp.Room.ViewerID)
	code, hostID := host.Seat()
	assert.Equal(t, resp.RoomCode, code)
	assert.Equal(t, resp.PlayerID, hostID)
	assert.Equal(t, code, nextUpdate(t, host).RoomCode)

	resp = guest.Handle(ctx, protocol.Request{Type: protocol.TypeJoinRoom, RoomCode: code, Name: "Bob"})
	require.NoError(t, resp.Err())
	require.Len(t, resp.Room.Players, 2)
	nextUpdate(t, guest)

	resp = guest.Handle(ctx, protocol.Request{Type: protocol.TypeStartGame})
	assert.Equal(t, "not_host", resp.Error.Code)

	resp = host.Handle(ctx, protocol.Request{Type: protocol.TypeStartGame})
	require.NoError(t, resp.Err())
	assert.Equal(t, game.PhasePreflop, resp.Room.GamePhase)

	u := nextUpdate(t, guest)
	assert.Equal(t, game.PhasePreflop, u.Snapshot.GamePhase)
	require.Equal(t, 1, u.Snapshot.CurrentPlayerIndex, "heads-up small blind acts first")

	resp = guest.Handle(ctx, protocol.Request{Type: protocol.TypePlayerAction, Action: "bet", Amount: 40})
	assert.Equal(t, "invalid_action", resp.Error.Code)
	resp = host.Handle(ctx, protocol.Request{Type: protocol.TypePlayerAction, Action: game.ActionCall})
	assert.Equal(t, "not_your_turn", resp.Error.Code)
	assert.Equal(t, code, resp.RoomCode)

	resp = guest.Handle(ctx, protocol.Request{Type: protocol.TypePlayerAction, Action: game.ActionRaise, Amount: 60})
	require.NoError(t, resp.Err())
	assert.Equal(t, 60, resp.Room.CurrentBet)
	assert.Equal(t, 0, resp.Room.CurrentPlayerIndex)

	resp = host.Handle(ctx, protocol.Request{Type: protocol.TypeChatMessage, Text: "nice"})
	require.NoError(t, resp.Err())
}

func TestSessionRequiresSeat(t *testing.T) {
	t.Parallel()
	reg, _ := newTestRegistry(t)
	ctx := testContext(t)
	s := newTestSession(t, reg)

	for _, typ := range []protocol.MessageType{
		protocol.TypeStartGame, protocol.TypeNextRound, protocol.TypePlayerAction,
		protocol.TypeBuyBack, protocol.TypeRevealCards, protocol.TypeChatMessage, protocol.TypeLeaveRoom,
	} {
		resp := s.Handle(ctx, protocol.Request{Type: typ})
		assert.False(t, resp.Success, typ)
		assert.Equal(t, "not_in_room", resp.Error.Code, typ)
	}

	resp := s.Handle(ctx, protocol.Request{Type: protocol.TypeJoinRoom, RoomCode: "NOPE00", Name: "Bob"})
	assert.Equal(t, "room_not_found", resp.Error.Code)
}

func TestSessionLeaveTransfersHost(t *testing.T) {
	t.Parallel()
	reg, _ := newTestRegistry(t)
	ctx := testContext(t)
	host := newTestSession(t, reg)
	guest := newTestSession(t, reg)

	resp := host.Handle(ctx, protocol.Request{Type: protocol.TypeCreateRoom, Name: "Alice"})
	require.NoError(t, resp.Err())
	code := resp.RoomCode
	resp = guest.Handle(ctx, protocol.Request{Type: protocol.TypeJoinRoom, RoomCode: code, Name: "Bob"})
	require.NoError(t, resp.Err())

	resp = host.Handle(ctx, protocol.Request{Type: protocol.TypeLeaveRoom})
	require.NoError(t, resp.Err())
	assert.Nil(t, resp.Room)
	seat, _ := host.Seat()
	assert.Empty(t, seat)

	room, err := reg.Get(code)
	require.NoError(t, err)
	snap := snapshot(t, room)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, "Bob", snap.Players[0].Name)
	assert.True(t, snap.Players[0].IsHost)
}

func TestSessionDisconnectAndRejoin(t *testing.T) {
	t.Parallel()
	reg, _ := newTestRegistry(t)
	ctx := testContext(t)
	first := NewSession(reg, log.New(io.Discard))

	resp := first.Handle(ctx, protocol.Request{Type: protocol.TypeCreateRoom, Name: "Alice"})
	require.NoError(t, resp.Err())
	code, id, token := resp.RoomCode, resp.PlayerID, resp.Token
	require.NotEmpty(t, token)
	first.Close()
	_, ok := <-first.Updates()
	for ok {
		_, ok = <-first.Updates()
	}

	room, err := reg.Get(code)
	require.NoError(t, err)
	snap := snapshot(t, room)
	require.Len(t, snap.Players, 1, "seat is kept")
	assert.True(t, snap.Players[0].Disconnected)
	assert.Equal(t, 0, room.Summary().Connected)

	second := newTestSession(t, reg)
	resp = second.Handle(ctx, protocol.Request{Type: protocol.TypeRejoinRoom, RoomCode: code, PlayerID: "someone-else", Token: token})
	assert.Equal(t, "unknown_player", resp.Error.Code)

	resp = second.Handle(ctx, protocol.Request{Type: protocol.TypeRejoinRoom, RoomCode: code, PlayerID: id, Token: token})
	require.NoError(t, resp.Err())
	assert.Empty(t, resp.Token, "only create and join hand out the token")
	assert.False(t, resp.Room.Players[0].Disconnected)
	assert.True(t, resp.Room.Players[0].IsHost)
	assert.Equal(t, 1, room.Summary().Connected)
}

func TestSessionRejoinNeedsSeatToken(t *testing.T) {
	t.Parallel()
	reg, _ := newTestRegistry(t)
	ctx := testContext(t)
	alice := newTestSession(t, reg)
	bob := newTestSession(t, reg)
	mallory := newTestSession(t, reg)

	resp := alice.Handle(ctx, protocol.Request{Type: protocol.TypeCreateRoom, Name: "Alice"})
	require.NoError(t, resp.Err())
	code, aliceToken := resp.RoomCode, resp.Token
	resp = bob.Handle(ctx, protocol.Request{Type: protocol.TypeJoinRoom, RoomCode: code, Name: "Bob"})
	require.NoError(t, resp.Err())
	bobID, bobToken := resp.PlayerID, resp.Token
	require.NotEmpty(t, bobToken)
	assert.NotEqual(t, aliceToken, bobToken)

	// Player IDs are public in every snapshot; the token is not.
	resp = mallory.Handle(ctx, protocol.Request{Type: protocol.TypeJoinRoom, RoomCode: code, Name: "Mallory"})
	require.NoError(t, resp.Err())
	require.Len(t, resp.Room.Players, 3)
	assert.Equal(t, bobID, resp.Room.Players[1].ID)
	malloryID := resp.PlayerID

	for name, token := range map[string]string{"missing": "", "another seat's": aliceToken, "made up": "guess"} {
		resp = mallory.Handle(ctx, protocol.Request{Type: protocol.TypeRejoinRoom, RoomCode: code, PlayerID: bobID, Token: token})
		assert.Equal(t, "invalid_token", resp.Error.Code, name)
	}
	_, seat := mallory.Seat()
	assert.Equal(t, malloryID, seat, "rejected rejoin keeps the current seat")

	bob.Close()
	again := newTestSession(t, reg)
	resp = again.Handle(ctx, protocol.Request{Type: protocol.TypeRejoinRoom, RoomCode: code, PlayerID: bobID, Token: bobToken})
	require.NoError(t, resp.Err())
	assert.False(t, resp.Room.Players[1].Disconnected)
}

func TestSessionBadRejoinKeepsSeat(t *testing.T) {
	t.Parallel()
	reg, _ := newTestRegistry(t)
	ctx := testContext(t)
	host := newTestSession(t, reg)
	guest := newTestSession(t, reg)

	resp := host.Handle(ctx, protocol.Request{Type: protocol.TypeCreateRoom, Name: "Alice"})
	require.NoError(t, resp.Err())
	code, hostID := resp.RoomCode, resp.PlayerID
	resp = guest.Handle(ctx, protocol.Request{Type: protocol.TypeJoinRoom, RoomCode: code, Name: "Bob"})
	require.NoError(t, resp.Err())
	guestID := resp.PlayerID

	for _, req := range []protocol.Request{
		{Type: protocol.TypeRejoinRoom, RoomCode: code, PlayerID: hostID, Token: "wrong"},
		{Type: protocol.TypeRejoinRoom, RoomCode: code, PlayerID: "ghost"},
		{Type: protocol.TypeRejoinRoom, RoomCode: "NOPE00", PlayerID: guestID},
	} {
		resp = host.Handle(ctx, req)
		require.False(t, resp.Success)
	}

	gotCode, gotID := host.Seat()
	assert.Equal(t, code, gotCode)
	assert.Equal(t, hostID, gotID)

	room, err := reg.Get(code)
	require.NoError(t, err)
	snap := snapshot(t, room)
	require.Len(t, snap.Players, 2, "no seat was given up")
	assert.True(t, snap.Players[0].IsHost)

	resp = host.Handle(ctx, protocol.Request{Type: protocol.TypeStartGame})
	require.NoError(t, resp.Err(), "session still acts for its seat")
}

func TestDisconnectedSeatFoldsOnTimeout(t *testing.T) {
	t.Parallel()
	reg, clock := newTestRegistry(t)
	ctx := testContext(t)
	host := newTestSession(t, reg)
	bob := NewSession(reg, log.New(io.Discard))
	carol := newTestSession(t, reg)

	resp := host.Handle(ctx, protocol.Request{Type: protocol.TypeCreateRoom, Name: "Alice", Settings: &game.Settings{TurnTimeLimit: 5}})
	require.NoError(t, resp.Err())
	code := resp.RoomCode
	require.NoError(t, bob.Handle(ctx, protocol.Request{Type: protocol.TypeJoinRoom, RoomCode: code, Name: "Bob"}).Err())
	require.NoError(t, carol.Handle(ctx, protocol.Request{Type: protocol.TypeJoinRoom, RoomCode: code, Name: "Carol"}).Err())
	require.NoError(t, host.Handle(ctx, protocol.Request{Type: protocol.TypeStartGame}).Err())
	require.NoError(t, host.Handle(ctx, protocol.Request{Type: protocol.TypePlayerAction, Action: game.ActionCall}).Err())

	room, err := reg.Get(code)
	require.NoError(t, err)
	require.Equal(t, 1, snapshot(t, room).CurrentPlayerIndex)

	bob.Close()
	snap := snapshot(t, room)
	require.True(t, snap.Players[1].Disconnected)
	assert.Equal(t, 1, snap.CurrentPlayerIndex, "disconnecting does not skip the turn")

	clock.Advance(5 * time.Second).MustWait(ctx)
	snap = snapshot(t, room)
	assert.True(t, snap.Players[1].Folded, "small blind owed chips and was folded")
	assert.Equal(t, 2, snap.CurrentPlayerIndex, "turn moves on")
	assert.Equal(t, game.PhasePreflop, snap.GamePhase)
}

func TestDisconnectedHostHandsOverInRoom(t *testing.T) {
	t.Parallel()
	reg, _ := newTestRegistry(t)
	ctx := testContext(t)
	host := NewSession(reg, log.New(io.Discard))
	guest := newTestSession(t, reg)

	resp := host.Handle(ctx, protocol.Request{Type: protocol.TypeCreateRoom, Name: "Alice"})
	require.NoError(t, resp.Err())
	code := resp.RoomCode
	resp = guest.Handle(ctx, protocol.Request{Type: protocol.TypeJoinRoom, RoomCode: code, Name: "Bob"})
	require.NoError(t, resp.Err())

	host.Close()
	resp = guest.Handle(ctx, protocol.Request{Type: protocol.TypeStartGame})
	require.NoError(t, resp.Err(), "the remaining player can deal")
	assert.True(t, resp.Room.Players[1].IsHost)
	assert.False(t, resp.Room.Players[0].IsHost)
	assert.Equal(t, "Bob", reg.Rooms()[0].Host)
}
