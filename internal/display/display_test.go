package display

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/pokerrooms/internal/deck"
	"github.com/lox/pokerrooms/internal/evaluator"
	"github.com/lox/pokerrooms/internal/game"
	"github.com/lox/pokerrooms/internal/protocol"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cardPtr(s string) *deck.Card {
	c := deck.MustParseCards(s)[0]
	return &c
}

func sampleSnapshot(now time.Time) game.Snapshot {
	return game.Snapshot{
		RoomCode:       "ABC123",
		ViewerID:       "p1",
		Round:          2,
		GamePhase:      game.PhaseFlop,
		CommunityCards: deck.MustParseCards("AsKhQd"),
		Pot:            80,
		CurrentBet:     20,
		DealerIndex:    1,
		TurnDeadline:   now.Add(12 * time.Second).UnixMilli(),
		Players: []game.PlayerView{
			{ID: "p1", Name: "Alice", Chips: 960, Bet: 0, IsActive: true, IsHost: true,
				Cards: []*deck.Card{cardPtr("Jc"), cardPtr("Th")}},
			{ID: "p2", Name: "House AI", Chips: 940, Bet: 20, IsAI: true, LastAction: "raise",
				Cards: []*deck.Card{nil, nil}},
			{ID: "p3", Name: "Bob", Chips: 1000, Folded: true},
		},
		ValidActions: []game.ValidAction{
			{Action: game.ActionFold},
			{Action: game.ActionCall, MinAmount: 20, MaxAmount: 20},
			{Action: game.ActionRaise, MinAmount: 21, MaxAmount: 960},
		},
	}
}

func newTestDisplay(t *testing.T) (*Display, *bytes.Buffer, game.Snapshot) {
	clock := quartz.NewMock(t)
	var buf bytes.Buffer
	return New(&buf, termenv.Ascii, clock), &buf, sampleSnapshot(clock.Now())
}

func TestTable(t *testing.T) {
	t.Parallel()
	d, _, s := newTestDisplay(t)
	out := d.Table(s)

	assert.Contains(t, out, "Room ABC123 • Round 2 • flop")
	assert.Contains(t, out, "Board: A♠ K♥ Q♦   Pot: $80   Bet: $20")
	assert.Contains(t, out, "> Alice (you, host)")
	assert.Contains(t, out, "[J♣ T♥]")
	assert.Contains(t, out, "House AI (AI, D)")
	assert.Contains(t, out, "[?? ??]")
	assert.Contains(t, out, "bet $20 · raise")
	assert.Contains(t, out, "folded")
	assert.Contains(t, out, "Your turn: fold | call $20 | raise <21-960> (12s left)")
}

func TestTableShowdown(t *testing.T) {
	t.Parallel()
	d, _, s := newTestDisplay(t)
	s.GamePhase = game.PhaseShowdown
	s.ValidActions = nil
	s.LastResult = &game.RoundResult{
		Reason:  game.ReasonShowdown,
		Winners: []game.Winner{{PlayerID: "p1", Name: "Alice", Amount: 80, Hand: &evaluator.Value{Name: "Straight"}}},
	}
	out := d.Table(s)
	assert.Contains(t, out, "Alice wins $80 with Straight")
	assert.Contains(t, out, "Type 'start' to deal the next round")
}

func TestLinesRenderEventsAndNewChat(t *testing.T) {
	t.Parallel()
	d, _, s := newTestDisplay(t)

	raise, err := protocol.NewEvent(game.ActionTakenEvent{PlayerID: "p2", Action: game.ActionRaise, Amount: 20, PotAfter: 80})
	require.NoError(t, err)
	fold, err := protocol.NewEvent(game.ActionTakenEvent{PlayerID: "p3", Action: game.ActionFold, Auto: true})
	require.NoError(t, err)
	chat := []protocol.ChatEntry{{Seq: 1, Name: "Bob", Text: "gg", Time: time.Unix(90, 0)}}

	lines := d.Lines(protocol.Update{Snapshot: s, Events: []protocol.Event{raise, fold}, Chat: chat})
	assert.Equal(t, []string{
		"House AI: raises $20 (pot now: $80)",
		"Bob: folds (timeout)",
		"[Bob] gg",
	}, lines)

	assert.Empty(t, d.Lines(protocol.Update{Snapshot: s, Chat: chat}), "chat lines print once")

	// Lines sent within the same clock tick are still distinct.
	chat = append(chat,
		protocol.ChatEntry{Seq: 2, Name: "Alice", Text: "ty", Time: time.Unix(90, 0)},
		protocol.ChatEntry{Seq: 3, Name: "Bob", Text: "again?", Time: time.Unix(90, 0)},
	)
	assert.Equal(t, []string{"[Alice] ty", "[Bob] again?"}, d.Lines(protocol.Update{Snapshot: s, Chat: chat}))

	other := []protocol.ChatEntry{{Seq: 1, Name: "Carol", Text: "new room", Time: time.Unix(95, 0)}}
	assert.Equal(t, []string{"[Carol] new room"}, d.Lines(protocol.Update{RoomCode: "XYZ789", Snapshot: s, Chat: other}),
		"numbering restarts in another room")

	assert.Equal(t, []string{"Room closed"}, d.Lines(protocol.Update{RoomCode: "XYZ789", Snapshot: s, Closed: true}))
	assert.Equal(t, "Error: not your turn", d.ErrorLine(errors.New("not your turn")))
	assert.Equal(t, "hello", d.InfoLine("hello"))
}

func TestEventLines(t *testing.T) {
	t.Parallel()
	d, _, s := newTestDisplay(t)

	tests := []struct {
		ev   game.GameEvent
		want string
	}{
		{&game.ActionTakenEvent{PlayerID: "p1", Action: game.ActionCheck}, "Alice: checks"},
		{&game.ActionTakenEvent{PlayerID: "p1", Action: game.ActionCall, Amount: 10}, "Alice: calls $10"},
		{&game.ActionTakenEvent{PlayerID: "p3", Action: game.ActionFold, FreeFold: true}, "Bob: folds for free"},
		{&game.PhaseChangedEvent{To: game.PhaseTurn, Community: deck.MustParseCards("AsKhQd2c")}, "*** TURN *** A♠ K♥ Q♦ 2♣"},
		{&game.PhaseChangedEvent{To: game.PhaseShowdown}, "*** SHOWDOWN ***"},
		{&game.PhaseChangedEvent{To: game.PhaseWaiting}, ""},
		{&game.BuyBackEvent{PlayerID: "p3", Amount: 500}, "Bob buys back for $500"},
		{&game.PlayerLeftEvent{PlayerID: "gone", NewHost: "p3"}, "someone left, Bob is now host"},
		{&game.HostChangedEvent{From: "p1", To: "p3"}, "Alice is away, Bob is now host"},
		{&game.RoundAbortedEvent{Round: 4, Reason: "deck exhausted"}, "Round 4 aborted: deck exhausted"},
		{&game.RoundEndedEvent{}, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, d.Event(tt.ev, s))
	}
}

func TestParseCommand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		line string
		want protocol.Request
	}{
		{"f", protocol.Request{Type: protocol.TypePlayerAction, Action: game.ActionFold}},
		{"CHECK", protocol.Request{Type: protocol.TypePlayerAction, Action: game.ActionCheck}},
		{"c", protocol.Request{Type: protocol.TypePlayerAction, Action: game.ActionCall}},
		{"raise 60", protocol.Request{Type: protocol.TypePlayerAction, Action: game.ActionRaise, Amount: 60}},
		{"start", protocol.Request{Type: protocol.TypeStartGame}},
		{"n", protocol.Request{Type: protocol.TypeNextRound}},
		{"buyback", protocol.Request{Type: protocol.TypeBuyBack}},
		{"reveal 1 0", protocol.Request{Type: protocol.TypeRevealCards, Indices: []int{1, 0}}},
		{"say  nice hand ", protocol.Request{Type: protocol.TypeChatMessage, Text: "nice hand"}},
		{"leave", protocol.Request{Type: protocol.TypeLeaveRoom}},
	}
	for _, tt := range tests {
		got, err := ParseCommand(tt.line)
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}

	for _, line := range []string{"raise", "raise lots", "raise -5", "reveal x", "say", "dance"} {
		_, err := ParseCommand(line)
		assert.Error(t, err, line)
	}
	_, err := ParseCommand("  ")
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = ParseCommand("q")
	assert.ErrorIs(t, err, ErrQuit)
	_, err = ParseCommand("?")
	assert.ErrorIs(t, err, ErrHelp)
}
