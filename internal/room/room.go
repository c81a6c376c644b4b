package room

import (
	"context"
	"crypto/subtle"
	"errors"
	rand "math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/lox/pokerrooms/internal/game"
	"github.com/lox/pokerrooms/internal/protocol"
)

const (
	maxChatRunes   = 200
	maxChatHistory = 50
	// Upper bound on back-to-back AI decisions handled in one command when
	// AI moves are not delayed.
	maxAIMoves = 64
)

// Summary is the lobby view of a room.
type Summary struct {
	Code      string     `json:"code"`
	Players   int        `json:"players"`
	Connected int        `json:"connected"`
	Phase     game.Phase `json:"phase"`
	Round     int        `json:"round"`
	Host      string     `json:"host,omitempty"`
	IdleSince time.Time  `json:"-"`
}

type request struct {
	cmd    Command
	query  func()
	result chan error
}

// Room owns one Game and is its only writer. Commands from any goroutine
// are queued and applied one at a time, each to completion, including any
// AI moves and timer rescheduling it triggers. Observers receive a full
// snapshot after every accepted mutation.
type Room struct {
	code    string
	logger  *log.Logger
	clock   quartz.Clock
	aiDelay time.Duration
	aiRNG   *rand.Rand

	// Owned by the run goroutine.
	game      *game.Game
	recorder  *game.EventRecorder
	agents    map[string]game.Agent
	tokens    map[string]string
	chat      []protocol.ChatEntry
	chatSeq   uint64
	turnTimer *quartz.Timer
	aiTimer   *quartz.Timer
	timerSeq  uint64
	deadline  time.Time

	inbox     chan request
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	summary Summary
}

func newRoom(code string, settings game.Settings, gameRNG, aiRNG *rand.Rand, opts Options) (*Room, error) {
	recorder := &game.EventRecorder{}
	bus := game.NewEventBus()
	bus.Subscribe(recorder)

	g, err := game.New(settings, game.WithRNG(gameRNG), game.WithEventBus(bus))
	if err != nil {
		return nil, err
	}

	r := &Room{
		code:     code,
		logger:   opts.Logger.WithPrefix("room").With("room", code),
		clock:    opts.Clock,
		aiDelay:  opts.AIDelay,
		aiRNG:    aiRNG,
		game:     g,
		recorder: recorder,
		agents:   make(map[string]game.Agent),
		tokens:   make(map[string]string),
		inbox:    make(chan request),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		subs:     make(map[*Subscription]struct{}),
	}
	r.summary = Summary{Code: code, Phase: game.PhaseWaiting, IdleSince: r.clock.Now()}
	go r.run()
	return r, nil
}

// Code returns the six character room code.
func (r *Room) Code() string { return r.code }

// Done is closed once the room has been closed.
func (r *Room) Done() <-chan struct{} { return r.done }

// Summary returns the latest lobby view without queueing.
func (r *Room) Summary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.summary
}

// Submit queues cmd and waits until it has been applied or rejected.
func (r *Room) Submit(ctx context.Context, cmd Command) error {
	return r.do(ctx, request{cmd: cmd})
}

// Snapshot returns the state as seen by viewerID.
func (r *Room) Snapshot(ctx context.Context, viewerID string) (game.Snapshot, error) {
	var snap game.Snapshot
	err := r.do(ctx, request{query: func() { snap = r.snapshotFor(viewerID) }})
	return snap, err
}

// Subscribe registers an observer for viewerID. The current state is
// delivered immediately.
func (r *Room) Subscribe(ctx context.Context, viewerID string) (*Subscription, error) {
	sub := newSubscription(r, viewerID)
	err := r.do(ctx, request{query: func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.subs[sub] = struct{}{}
		sub.deliver(r.updateFor(viewerID, nil))
	}})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Close stops the room. Pending and future commands fail with
// ErrRoomClosed and every subscription receives a final closed update.
func (r *Room) Close() {
	r.closeOnce.Do(func() { close(r.done) })
	<-r.stopped
}

func (r *Room) do(ctx context.Context, req request) error {
	req.result = make(chan error, 1)
	select {
	case r.inbox <- req:
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post is used by timer callbacks. The result is logged by the processor.
func (r *Room) post(cmd Command) {
	_ = r.Submit(context.Background(), cmd)
}

func (r *Room) run() {
	defer close(r.stopped)
	defer r.shutdown()
	for {
		select {
		case <-r.done:
			return
		case req := <-r.inbox:
			req.result <- r.handle(req)
		}
	}
}

func (r *Room) handle(req request) error {
	if req.query != nil {
		req.query()
		return nil
	}

	cmd := req.cmd
	err := r.apply(cmd)
	switch {
	case err == nil:
	case errors.Is(err, game.ErrRoundAborted):
		r.logger.Error("Round aborted", "cause", err)
	case cmd.Kind == cmdTimeout || cmd.Kind == cmdAIMove:
		r.logger.Debug("Dropped scheduled command", "kind", cmd.Kind, "player", cmd.PlayerID, "error", err)
		return err
	default:
		r.logger.Debug("Rejected command", "kind", cmd.Kind, "player", cmd.PlayerID, "error", err)
		return err
	}

	if r.aiDelay <= 0 {
		for i := 0; i < maxAIMoves && r.aiSeat() != nil; i++ {
			r.playAI()
		}
	}
	r.rebuyAI()
	r.schedule()
	r.broadcast()
	return err
}

func (r *Room) apply(cmd Command) error {
	g := r.game
	switch cmd.Kind {
	case CmdJoin:
		p := game.NewPlayer(cmd.PlayerID, cmd.Name, cmd.AI)
		if err := g.AddPlayer(p); err != nil {
			return err
		}
		if cmd.AI {
			r.agents[p.ID] = game.NewBasicAI(r.aiRNG)
		} else {
			r.tokens[p.ID] = uuid.NewString()
		}
		r.logger.Info("Player joined", "player", p.ID, "name", p.Name, "ai", p.IsAI)
		return nil
	case CmdStart:
		if err := g.StartGame(cmd.PlayerID); err != nil {
			return err
		}
		r.logger.Info("Round started", "round", g.Round(), "dealer", g.DealerIndex())
		return nil
	case CmdNextRound:
		return g.NextRound(cmd.PlayerID)
	case CmdAction:
		if p, ok := g.Player(cmd.PlayerID); ok && p.IsAI {
			return game.ErrNotYourTurn
		}
		return g.Act(cmd.PlayerID, cmd.Action, cmd.Amount)
	case CmdBuyBack:
		return g.BuyBack(cmd.PlayerID)
	case CmdReveal:
		return g.RevealCards(cmd.PlayerID, cmd.Indices)
	case CmdChat:
		return r.addChat(cmd.PlayerID, cmd.Text)
	case CmdLeave:
		// An aborted round still gives up the seat.
		err := g.RemovePlayer(cmd.PlayerID)
		if err != nil && !errors.Is(err, game.ErrRoundAborted) {
			return err
		}
		delete(r.agents, cmd.PlayerID)
		delete(r.tokens, cmd.PlayerID)
		r.logger.Info("Player left", "player", cmd.PlayerID)
		return err
	case CmdDisconnect:
		r.logger.Info("Player disconnected", "player", cmd.PlayerID)
		return g.SetDisconnected(cmd.PlayerID, true)
	case CmdReconnect:
		if err := r.checkToken(cmd.PlayerID, cmd.Token); err != nil {
			return err
		}
		r.logger.Info("Player reconnected", "player", cmd.PlayerID)
		return g.SetDisconnected(cmd.PlayerID, false)
	case cmdTimeout:
		action, err := g.Timeout(cmd.PlayerID, cmd.seq)
		if err != nil {
			return err
		}
		r.logger.Info("Turn timed out", "player", cmd.PlayerID, "action", action)
		return nil
	case cmdAIMove:
		if cmd.seq != g.TurnSeq() || r.aiSeat() == nil {
			return game.ErrRoundAlreadyAdvanced
		}
		r.playAI()
		return nil
	default:
		return game.ErrInvalidAction
	}
}

func (r *Room) addChat(playerID, text string) error {
	p, ok := r.game.Player(playerID)
	if !ok {
		return game.ErrUnknownPlayer
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > maxChatRunes {
		text = string([]rune(text)[:maxChatRunes])
	}
	r.chatSeq++
	r.chat = append(r.chat, protocol.ChatEntry{Seq: r.chatSeq, PlayerID: p.ID, Name: p.Name, Text: text, Time: r.clock.Now()})
	if len(r.chat) > maxChatHistory {
		r.chat = r.chat[len(r.chat)-maxChatHistory:]
	}
	return nil
}

// checkToken fails with game.ErrUnknownPlayer for seats that hold no token,
// which covers unknown IDs, AI seats and players that left.
func (r *Room) checkToken(playerID, token string) error {
	want, ok := r.tokens[playerID]
	if !ok {
		return game.ErrUnknownPlayer
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(token)) != 1 {
		return ErrInvalidToken
	}
	return nil
}

// rejoinToken returns the secret that reclaims playerID after a disconnect.
// Only the session that took the seat asks for it.
func (r *Room) rejoinToken(ctx context.Context, playerID string) (string, error) {
	var token string
	err := r.do(ctx, request{query: func() {
		token = r.tokens[playerID]
	}})
	if err == nil && token == "" {
		err = game.ErrUnknownPlayer
	}
	return token, err
}

func (r *Room) aiSeat() game.Agent {
	p := r.game.ActivePlayer()
	if p == nil || !p.IsAI {
		return nil
	}
	return r.agents[p.ID]
}

func (r *Room) playAI() {
	g := r.game
	p := g.ActivePlayer()
	agent := r.aiSeat()
	if agent == nil {
		return
	}
	d := agent.Decide(g.Snapshot(p.ID), g.ValidActions(p.ID))
	r.logger.Debug("AI decision", "player", p.ID, "action", d.Action, "amount", d.Amount, "reason", d.Reasoning)
	err := g.Act(p.ID, d.Action, d.Amount)
	if err == nil || errors.Is(err, game.ErrRoundAborted) {
		return
	}
	r.logger.Warn("AI decision rejected, folding", "player", p.ID, "error", err)
	_ = g.Act(p.ID, game.ActionFold, 0)
}

// rebuyAI tops up busted AI seats between rounds so a room vs the house
// can keep going.
func (r *Room) rebuyAI() {
	if r.game.Phase().Betting() {
		return
	}
	for id := range r.agents {
		if p, ok := r.game.Player(id); ok && p.Chips == 0 {
			if err := r.game.BuyBack(id); err == nil {
				r.logger.Info("AI bought back", "player", id)
			}
		}
	}
}

// schedule arms the turn timer or the delayed AI move whenever the turn has
// moved to a new seat. Commands that do not move the turn leave a running
// timer alone.
func (r *Room) schedule() {
	seq := r.game.TurnSeq()
	if seq == r.timerSeq {
		return
	}
	r.stopTimers()
	r.timerSeq = seq

	p := r.game.ActivePlayer()
	if p == nil {
		return
	}
	if p.IsAI {
		if r.aiDelay > 0 {
			r.aiTimer = r.clock.AfterFunc(r.aiDelay, func() {
				r.post(Command{Kind: cmdAIMove, PlayerID: p.ID, seq: seq})
			}, "room", "ai")
		}
		return
	}
	timeout := r.game.Settings().TurnTimeout()
	if timeout <= 0 {
		return
	}
	id := p.ID
	r.deadline = r.clock.Now().Add(timeout)
	r.turnTimer = r.clock.AfterFunc(timeout, func() {
		r.post(Command{Kind: cmdTimeout, PlayerID: id, seq: seq})
	}, "room", "turn")
}

func (r *Room) stopTimers() {
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
	if r.aiTimer != nil {
		r.aiTimer.Stop()
		r.aiTimer = nil
	}
	r.deadline = time.Time{}
}

func (r *Room) snapshotFor(viewerID string) game.Snapshot {
	snap := r.game.Snapshot(viewerID)
	snap.RoomCode = r.code
	if !r.deadline.IsZero() {
		snap.TurnDeadline = r.deadline.UnixMilli()
	}
	return snap
}

func (r *Room) updateFor(viewerID string, events []protocol.Event) protocol.Update {
	u := protocol.Update{
		RoomCode: r.code,
		Snapshot: r.snapshotFor(viewerID),
		Events:   events,
	}
	if len(r.chat) > 0 {
		u.Chat = append([]protocol.ChatEntry(nil), r.chat...)
	}
	return u
}

func (r *Room) broadcast() {
	var events []protocol.Event
	for _, ev := range r.recorder.Drain() {
		wire, err := protocol.NewEvent(ev)
		if err != nil {
			r.logger.Error("Failed to encode event", "error", err)
			continue
		}
		events = append(events, wire)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshSummary()
	for sub := range r.subs {
		sub.deliver(r.updateFor(sub.viewerID, events))
	}
}

// refreshSummary must be called with mu held.
func (r *Room) refreshSummary() {
	g := r.game
	s := Summary{Code: r.code, Phase: g.Phase(), Round: g.Round(), IdleSince: r.summary.IdleSince}
	for _, p := range g.Players() {
		if p.Left {
			continue
		}
		s.Players++
		if p.IsHost {
			s.Host = p.Name
		}
		if !p.IsAI && !p.Disconnected {
			s.Connected++
		}
	}
	switch {
	case s.Connected > 0:
		s.IdleSince = time.Time{}
	case s.IdleSince.IsZero():
		s.IdleSince = r.clock.Now()
	}
	r.summary = s
}

func (r *Room) shutdown() {
	r.stopTimers()
	r.mu.Lock()
	defer r.mu.Unlock()
	for sub := range r.subs {
		sub.deliver(protocol.Update{RoomCode: r.code, Snapshot: r.snapshotFor(sub.viewerID), Closed: true})
		sub.close()
		delete(r.subs, sub)
	}
	r.logger.Info("Room closed")
}

func (r *Room) unsubscribe(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[sub]; ok {
		delete(r.subs, sub)
		sub.close()
	}
}
