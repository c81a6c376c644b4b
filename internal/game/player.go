package game

import (
	"slices"

	"github.com/lox/pokerrooms/internal/deck"
)

// Player is one seat's ledger: chips behind, chips bet this street and the
// seat's status flags. Chips persist across rounds; cards do not.
type Player struct {
	ID           string
	Name         string
	Chips        int
	Bet          int
	Cards        []deck.Card
	Folded       bool
	IsActive     bool
	IsHost       bool
	IsAI         bool
	BuyBacksUsed int

	// SittingOut marks a seat that was not dealt into the current round
	// (joined late or had no chips). Such seats are also Folded.
	SittingOut   bool
	Disconnected bool
	Left         bool
	LastAction   string

	acted           bool
	roundStartChips int
	revealed        []int
}

// NewPlayer creates a seat with no chips; the game credits the starting
// stack when the player is seated.
func NewPlayer(id, name string, isAI bool) *Player {
	return &Player{ID: id, Name: name, IsAI: isAI}
}

// InHand reports whether the player still contests the pot.
func (p *Player) InHand() bool {
	return !p.Folded && !p.SittingOut
}

// CanAct reports whether the player can still be given the turn. A player
// whose stack is fully committed stays in the hand without acting.
func (p *Player) CanAct() bool {
	return p.InHand() && p.Chips > 0
}

// Revealed returns the hole card indices the player chose to show.
func (p *Player) Revealed() []int {
	return slices.Clone(p.revealed)
}

// commit moves chips from the stack into the current street's bet.
func (p *Player) commit(amount int) error {
	if amount < 0 || amount > p.Chips {
		return ErrInsufficientChips
	}
	p.Chips -= amount
	p.Bet += amount
	return nil
}

func (p *Player) resetForRound() {
	p.Bet = 0
	p.Cards = nil
	p.IsActive = false
	p.LastAction = ""
	p.acted = false
	p.revealed = nil
	p.roundStartChips = p.Chips
	p.SittingOut = p.Chips <= 0 || p.Left
	p.Folded = p.SittingOut
}

// buyBack applies the buy-back rules and credits the stack.
func (p *Player) buyBack(s Settings) error {
	switch {
	case !s.AllowBuyBack:
		return ErrBuyBackDisabled
	case p.Chips > 0:
		return ErrBuyBackNotNeeded
	case p.BuyBacksUsed >= s.MaxBuyBacks:
		return ErrBuyBackLimitReached
	}
	p.Chips += s.BuyBackAmount
	p.roundStartChips += s.BuyBackAmount
	p.BuyBacksUsed++
	return nil
}
