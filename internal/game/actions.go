package game

import (
	"fmt"
	"slices"

	"github.com/lox/pokerrooms/internal/evaluator"
)

// Action is a betting decision.
type Action string

const (
	ActionFold  Action = "fold"
	ActionCheck Action = "check"
	ActionCall  Action = "call"
	ActionRaise Action = "raise"
)

// ParseAction validates an action name from the wire.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionFold, ActionCheck, ActionCall, ActionRaise:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

// ValidAction describes one legal choice for the active player. For call
// the amount is the chips owed; for raise it is the legal total bet range.
type ValidAction struct {
	Action    Action `json:"action"`
	MinAmount int    `json:"minAmount,omitempty"`
	MaxAmount int    `json:"maxAmount,omitempty"`
}

// Reasons a round ends.
const (
	ReasonShowdown  = "showdown"
	ReasonAllFolded = "all others folded"
)

// Winner is one share of an awarded pot.
type Winner struct {
	PlayerID string           `json:"playerId"`
	Name     string           `json:"name"`
	Amount   int              `json:"amount"`
	Hand     *evaluator.Value `json:"hand,omitempty"`
}

// RoundResult summarises how a round was settled.
type RoundResult struct {
	Round   int                        `json:"round"`
	Reason  string                     `json:"reason"`
	Pot     int                        `json:"pot"`
	Winners []Winner                   `json:"winners"`
	Hands   map[string]evaluator.Value `json:"hands,omitempty"`
}

// Act applies a player's decision. Rejected actions leave the game
// untouched. Accepted actions may cascade through phase changes and the
// showdown before returning.
func (g *Game) Act(playerID string, action Action, amount int) error {
	return g.act(playerID, action, amount, false)
}

// Timeout applies the expiry policy for the seat that held the turn at seq:
// check when checking is legal, fold otherwise. A stale seq means the turn
// already moved on and nothing happens.
func (g *Game) Timeout(playerID string, seq uint64) (Action, error) {
	p := g.ActivePlayer()
	if seq != g.turnSeq || p == nil || p.ID != playerID {
		return "", ErrRoundAlreadyAdvanced
	}
	action := ActionFold
	if p.Bet == g.currentBet {
		action = ActionCheck
	}
	return action, g.act(playerID, action, 0, true)
}

// ValidActions lists what the player may do now; empty when it is not
// their turn.
func (g *Game) ValidActions(playerID string) []ValidAction {
	p := g.ActivePlayer()
	if !g.phase.Betting() || p == nil || p.ID != playerID {
		return nil
	}
	actions := []ValidAction{{Action: ActionFold}}
	owed := g.currentBet - p.Bet
	if owed == 0 || g.canFreeFold(g.current) {
		actions = append(actions, ValidAction{Action: ActionCheck})
	}
	if owed <= p.Chips {
		actions = append(actions, ValidAction{Action: ActionCall, MinAmount: owed, MaxAmount: owed})
	}
	if most := p.Bet + p.Chips; most > g.currentBet {
		actions = append(actions, ValidAction{Action: ActionRaise, MinAmount: g.currentBet + 1, MaxAmount: most})
	}
	return actions
}

func (g *Game) act(playerID string, action Action, amount int, auto bool) error {
	seat := g.seatOf(playerID)
	if seat < 0 {
		return ErrUnknownPlayer
	}
	if !g.phase.Betting() || seat != g.current {
		return ErrNotYourTurn
	}
	p := g.players[seat]

	var (
		paid     int
		freeFold bool
	)
	switch action {
	case ActionFold:
		p.Folded = true
		p.LastAction = "fold"
	case ActionCheck:
		if p.Bet != g.currentBet {
			if !g.canFreeFold(seat) {
				return ErrMustCallOrFold
			}
			freeFold = true
			p.Folded = true
			p.LastAction = "free fold"
			break
		}
		p.LastAction = "check"
	case ActionCall:
		owed := g.currentBet - p.Bet
		if err := p.commit(owed); err != nil {
			return err
		}
		paid = owed
		p.LastAction = fmt.Sprintf("call %d", owed)
	case ActionRaise:
		if amount <= g.currentBet {
			return ErrRaiseTooLow
		}
		debit := amount - p.Bet
		if err := p.commit(debit); err != nil {
			return err
		}
		paid = debit
		g.currentBet = amount
		for _, other := range g.players {
			other.acted = false
		}
		p.LastAction = fmt.Sprintf("raise %d", amount)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	if auto {
		p.LastAction += " (timeout)"
	}
	g.pot += paid
	p.acted = true
	if seat == g.freeFoldSeat {
		g.freeFoldSeat = -1
	}

	reported := action
	if freeFold {
		reported = ActionFold
	}
	g.publish(ActionTakenEvent{
		Round:    g.round,
		PlayerID: p.ID,
		Action:   reported,
		Amount:   paid,
		Phase:    g.phase,
		PotAfter: g.pot,
		Auto:     auto,
		FreeFold: freeFold,
	})
	return g.afterAction()
}

// canFreeFold reports whether seat may take the optional big blind fold:
// the seat after the big blind, on its first preflop decision.
func (g *Game) canFreeFold(seat int) bool {
	return g.phase == PhasePreflop && seat == g.freeFoldSeat
}

// foldOutOfTurn removes a leaving player from the hand and settles the
// consequences as if they had folded in turn.
func (g *Game) foldOutOfTurn(seat int) error {
	p := g.players[seat]
	p.Folded = true
	p.LastAction = "left"
	p.IsActive = false
	if seat == g.current {
		g.current = -1
		return g.afterActionFrom(seat)
	}
	if g.inHandCount() == 1 {
		g.finishFoldOut()
		return nil
	}
	if g.bettingComplete() {
		return g.advancePhase()
	}
	return nil
}

func (g *Game) afterAction() error {
	return g.afterActionFrom(g.current)
}

func (g *Game) afterActionFrom(seat int) error {
	if g.inHandCount() == 1 {
		g.finishFoldOut()
		return nil
	}
	if g.bettingComplete() {
		return g.advancePhase()
	}
	g.setTurn(g.nextActor(seat + 1))
	return nil
}

// bettingComplete reports whether the street is settled: every player who
// can still act has matched the current bet and acted since the last raise.
// A lone player who can act only needs to have matched.
func (g *Game) bettingComplete() bool {
	var actors []*Player
	for _, p := range g.players {
		if p.CanAct() {
			actors = append(actors, p)
		}
	}
	if len(actors) <= 1 {
		return len(actors) == 0 || actors[0].Bet == g.currentBet
	}
	for _, p := range actors {
		if p.Bet != g.currentBet || !p.acted {
			return false
		}
	}
	return true
}

// advancePhase deals the next street. When nobody is left to bet the
// remaining streets are run out to showdown.
func (g *Game) advancePhase() error {
	for {
		for _, p := range g.players {
			p.Bet = 0
			p.acted = false
		}
		g.currentBet = 0

		var (
			next Phase
			n    int
		)
		switch g.phase {
		case PhasePreflop:
			next, n = PhaseFlop, 3
		case PhaseFlop:
			next, n = PhaseTurn, 1
		case PhaseTurn:
			next, n = PhaseRiver, 1
		default:
			return g.showdown()
		}

		if err := g.deck.Burn(); err != nil {
			return g.abortRound(err)
		}
		cards, err := g.deck.Deal(n)
		if err != nil {
			return g.abortRound(err)
		}
		g.community = append(g.community, cards...)
		g.setPhase(next)

		if g.bettingComplete() {
			continue
		}
		g.setTurn(g.nextActor(g.dealer + 1))
		return nil
	}
}

func (g *Game) showdown() error {
	strict := g.settings.StrictKickers
	hands := make(map[string]evaluator.Value)
	var (
		best    evaluator.Value
		winners []int
	)
	for _, seat := range g.seatsFrom(g.dealer + 1) {
		p := g.players[seat]
		if !p.InHand() {
			continue
		}
		v, err := evaluator.Evaluate(append(slices.Clone(p.Cards), g.community...))
		if err != nil {
			return g.abortRound(err)
		}
		hands[p.ID] = v
		switch c := evaluator.Compare(v, best, strict); {
		case len(winners) == 0 || c > 0:
			best = v
			winners = []int{seat}
		case c == 0:
			winners = append(winners, seat)
		}
	}

	result := g.award(ReasonShowdown, winners)
	for i := range result.Winners {
		v := hands[result.Winners[i].PlayerID]
		result.Winners[i].Hand = &v
	}
	result.Hands = hands
	g.finishRound(result)
	return nil
}

func (g *Game) finishFoldOut() {
	winner := g.nextInHand(0)
	g.finishRound(g.award(ReasonAllFolded, []int{winner}))
}

// award splits the pot between seats, which are ordered from the dealer's
// left; odd chips go to the earliest seats.
func (g *Game) award(reason string, seats []int) RoundResult {
	result := RoundResult{Round: g.round, Reason: reason, Pot: g.pot}
	if len(seats) == 0 {
		return result
	}
	share, odd := g.pot/len(seats), g.pot%len(seats)
	for i, seat := range seats {
		p := g.players[seat]
		amount := share
		if i < odd {
			amount++
		}
		p.Chips += amount
		result.Winners = append(result.Winners, Winner{PlayerID: p.ID, Name: p.Name, Amount: amount})
	}
	g.pot = 0
	return result
}

func (g *Game) finishRound(result RoundResult) {
	for _, p := range g.players {
		p.IsActive = false
		p.Bet = 0
	}
	g.current = -1
	g.currentBet = 0
	g.turnSeq++
	g.lastResult = &result
	g.setPhase(PhaseShowdown)
	g.publish(RoundEndedEvent{Round: g.round, Result: result})
}
