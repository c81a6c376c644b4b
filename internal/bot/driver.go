// Package bot plays a seat through a transport the same way a human
// client would: it only sees its own updates and acts by sending requests.
package bot

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/pokerrooms/internal/game"
	"github.com/lox/pokerrooms/internal/protocol"
	"github.com/lox/pokerrooms/internal/transport"
)

// Driver feeds a seat's updates to an Agent and sends back its decisions.
type Driver struct {
	tr     transport.Transport
	agent  game.Agent
	clock  quartz.Clock
	delay  time.Duration
	logger *log.Logger

	lastSeq   uint64
	lastRebuy int
	acted     bool
	actions   int
}

// NewDriver creates a driver for the seat behind tr. Delay is how long the
// bot thinks before each action.
func NewDriver(tr transport.Transport, agent game.Agent, clock quartz.Clock, delay time.Duration, logger *log.Logger) *Driver {
	return &Driver{
		tr:        tr,
		agent:     agent,
		clock:     clock,
		delay:     delay,
		logger:    logger.WithPrefix("bot"),
		lastRebuy: -1,
	}
}

// Actions reports how many actions the room accepted from this bot. Only
// safe to call after Run returns.
func (d *Driver) Actions() int { return d.actions }

// Run plays until the room closes, the transport ends or ctx is done.
func (d *Driver) Run(ctx context.Context) error {
	updates := d.tr.Updates()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok || u.Closed {
				return nil
			}
			if err := d.react(ctx, u.Snapshot); err != nil {
				return err
			}
		}
	}
}

func (d *Driver) react(ctx context.Context, s game.Snapshot) error {
	if len(s.ValidActions) > 0 {
		if d.acted && s.TurnSeq == d.lastSeq {
			return nil
		}
		return d.act(ctx, s)
	}
	if s.GamePhase.Betting() || s.Round == d.lastRebuy || !s.Settings.AllowBuyBack {
		return nil
	}
	for _, p := range s.Players {
		if p.ID == s.ViewerID && p.Chips == 0 {
			d.lastRebuy = s.Round
			_, err := d.send(ctx, protocol.Request{Type: protocol.TypeBuyBack})
			return err
		}
	}
	return nil
}

func (d *Driver) act(ctx context.Context, s game.Snapshot) error {
	d.lastSeq, d.acted = s.TurnSeq, true
	if d.delay > 0 {
		t := d.clock.NewTimer(d.delay, "bot", "think")
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	dec := d.agent.Decide(s, s.ValidActions)
	d.logger.Debug("Decided", "seat", s.ViewerID, "action", dec.Action, "amount", dec.Amount, "reason", dec.Reasoning)
	ok, err := d.send(ctx, protocol.Request{Type: protocol.TypePlayerAction, Action: dec.Action, Amount: dec.Amount})
	if ok {
		d.actions++
	}
	return err
}

// send delivers req and reports whether the room accepted it. Rejections
// are only logged: the turn may have moved on since the update the bot saw.
// Transport failures end Run.
func (d *Driver) send(ctx context.Context, req protocol.Request) (bool, error) {
	resp, err := d.tr.Do(ctx, req)
	if err != nil {
		if errors.Is(err, transport.ErrClosed) {
			return false, nil
		}
		return false, err
	}
	if rerr := resp.Err(); rerr != nil {
		d.logger.Debug("Request rejected", "type", req.Type, "error", rerr)
		return false, nil
	}
	return true, nil
}
