package tui

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/pokerrooms/internal/display"
	"github.com/lox/pokerrooms/internal/game"
	"github.com/lox/pokerrooms/internal/protocol"
	"github.com/lox/pokerrooms/internal/room"
	"github.com/lox/pokerrooms/internal/transport"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testTable struct {
	ctx    context.Context
	logger *log.Logger
	reg    *room.Registry
	tr     transport.Transport
	code   string
	model  *Model
}

func newTestTable(t *testing.T, withAI bool) *testTable {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	clock := quartz.NewMock(t)
	reg := room.NewRegistry(room.Options{Clock: clock, Logger: logger, Seed: 5})
	regCtx, stopReg := context.WithCancel(ctx)
	regDone := make(chan struct{})
	go func() {
		defer close(regDone)
		_ = reg.Run(regCtx)
	}()
	t.Cleanup(func() {
		stopReg()
		<-regDone
	})

	tr := transport.NewLocal(reg, logger)
	t.Cleanup(func() { _ = tr.Close() })
	resp, err := tr.Do(ctx, protocol.Request{Type: protocol.TypeCreateRoom, Name: "Host", WithAI: withAI})
	require.NoError(t, err)
	require.NoError(t, resp.Err())

	disp := display.New(io.Discard, termenv.Ascii, clock)
	return &testTable{ctx: ctx, logger: logger, reg: reg, tr: tr, code: resp.RoomCode, model: New(ctx, tr, disp, logger)}
}

// run executes cmd the way the program would and returns its message.
func run(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("command did not finish")
		return nil
	}
}

// typeLine enters line in the input box and presses enter.
func (tt *testTable) typeLine(line string) tea.Cmd {
	tt.model.input.SetValue(line)
	_, cmd := tt.model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

func (tt *testTable) logText() string {
	return strings.Join(tt.model.gameLog, "\n")
}

func TestModelRendersUpdates(t *testing.T) {
	t.Parallel()
	tt := newTestTable(t, true)
	m := tt.model

	_, cmd := m.Update(run(t, waitForUpdate(tt.tr.Updates())))
	require.NotNil(t, m.snapshot)
	assert.Equal(t, tt.code, m.snapshot.RoomCode)
	require.NotNil(t, cmd, "keeps listening")

	_, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	view := m.View()
	assert.Contains(t, view, "Room "+tt.code)
	assert.Contains(t, view, "Host (you, host)")
}

func TestModelSendsCommands(t *testing.T) {
	t.Parallel()
	tt := newTestTable(t, false)
	m := tt.model

	assert.Nil(t, tt.typeLine("help"))
	assert.Contains(t, tt.logText(), "Game actions:")

	assert.Nil(t, tt.typeLine("   "))
	assert.Nil(t, tt.typeLine("bogus"))
	assert.Contains(t, tt.logText(), "Error: unknown command: bogus")
	assert.Nil(t, tt.typeLine("raise lots"))
	assert.Contains(t, tt.logText(), "Error: invalid amount: lots")
	assert.Empty(t, m.input.Value(), "input is cleared after enter")

	msg := run(t, tt.typeLine("start"))
	before := len(m.gameLog)
	_, cmd := m.Update(msg)
	assert.Nil(t, cmd)
	require.Greater(t, len(m.gameLog), before)
	assert.Contains(t, m.gameLog[len(m.gameLog)-1], "Error: ", "rejections are logged, not fatal")
	assert.False(t, m.quitting)

	guest := transport.NewLocal(tt.reg, tt.logger)
	defer guest.Close()
	resp, err := guest.Do(tt.ctx, protocol.Request{Type: protocol.TypeJoinRoom, RoomCode: tt.code, Name: "Guest"})
	require.NoError(t, err)
	require.NoError(t, resp.Err())

	before = len(m.gameLog)
	_, _ = m.Update(run(t, tt.typeLine("start")))
	assert.Len(t, m.gameLog, before, "accepted commands log nothing themselves")

	r, err := tt.reg.Get(tt.code)
	require.NoError(t, err)
	snap, err := r.Snapshot(tt.ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Round)

	cmd = tt.typeLine("quit")
	assert.Equal(t, tea.QuitMsg{}, run(t, cmd))
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
}

func TestModelFocusSwitchesPanes(t *testing.T) {
	t.Parallel()
	tt := newTestTable(t, false)
	m := tt.model

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 0, m.focusedPane)
	m.input.SetValue("start")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd, "enter only submits from the input pane")
	assert.Equal(t, "start", m.input.Value())

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 1, m.focusedPane)
}

func TestModelLeaveQuits(t *testing.T) {
	t.Parallel()
	tt := newTestTable(t, false)
	m := tt.model

	_, cmd := m.Update(run(t, tt.typeLine("leave")))
	assert.Equal(t, tea.QuitMsg{}, run(t, cmd))
	assert.Contains(t, tt.logText(), "You left the room.")
}

func TestModelQuitsWhenRoomCloses(t *testing.T) {
	t.Parallel()
	tt := newTestTable(t, false)
	m := tt.model

	tt.reg.Close(tt.code)
	cmd := waitForUpdate(tt.tr.Updates())
	for range 3 {
		_, cmd = m.Update(run(t, cmd))
		if m.quitting {
			break
		}
	}
	require.True(t, m.quitting)
	assert.Equal(t, tea.QuitMsg{}, run(t, cmd))
	assert.Contains(t, tt.logText(), "Room closed")
}

func TestRunStopsWithTheRoom(t *testing.T) {
	t.Parallel()
	tt := newTestTable(t, false)
	tt.model.AddLogEntry("Room is open.")

	done := make(chan error, 1)
	go func() {
		done <- Run(tt.ctx, tt.model, tea.WithInput(nil), tea.WithOutput(io.Discard), tea.WithoutSignalHandler())
	}()

	tt.reg.Close(tt.code)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-tt.ctx.Done():
		t.Fatal("program did not stop")
	}
	assert.Contains(t, tt.logText(), "Room is open.")
	assert.Contains(t, tt.logText(), "Room closed")
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()
	tt := newTestTable(t, false)
	ctx, cancel := context.WithCancel(tt.ctx)

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, tt.model, tea.WithInput(nil), tea.WithOutput(io.Discard), tea.WithoutSignalHandler())
	}()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-tt.ctx.Done():
		t.Fatal("program did not stop")
	}

	r, err := tt.reg.Get(tt.code)
	require.NoError(t, err)
	snap, err := r.Snapshot(tt.ctx, "")
	require.NoError(t, err)
	assert.Equal(t, game.PhaseWaiting, snap.GamePhase)
}
