package game

import (
	"fmt"
	rand "math/rand/v2"
	"slices"

	"github.com/lox/pokerrooms/internal/deck"
	"github.com/lox/pokerrooms/internal/evaluator"
)

// Decision represents a player's decision with reasoning
type Decision struct {
	Action    Action
	Amount    int    // For raises, the total bet amount
	Reasoning string // Human-readable explanation
}

// Agent is anything that can choose an action for a seat. Agents only see
// the seat's own snapshot and never mutate the game.
type Agent interface {
	Decide(snapshot Snapshot, valid []ValidAction) Decision
}

// HandStrength represents the relative strength of a hand
type HandStrength int

const (
	VeryWeak HandStrength = iota
	Weak
	Medium
	Strong
	VeryStrong
)

// String returns the string representation of hand strength
func (hs HandStrength) String() string {
	switch hs {
	case VeryWeak:
		return "Very Weak"
	case Weak:
		return "Weak"
	case Medium:
		return "Medium"
	case Strong:
		return "Strong"
	case VeryStrong:
		return "Very Strong"
	default:
		return "Unknown"
	}
}

// BasicAI is the house opponent: it buckets its hand strength and picks
// fold, call or raise with weighted randomness.
type BasicAI struct {
	rng *rand.Rand
}

// NewBasicAI creates an AI that draws its randomness from rng.
func NewBasicAI(rng *rand.Rand) *BasicAI {
	return &BasicAI{rng: rng}
}

// Decide implements Agent.
func (ai *BasicAI) Decide(s Snapshot, valid []ValidAction) Decision {
	if len(valid) == 0 {
		return Decision{Action: ActionFold, Reasoning: "no legal action"}
	}
	me := s.viewer()
	if me == nil {
		return Decision{Action: ActionFold, Reasoning: "not seated"}
	}
	strength := ai.strength(me.holeCards(), s.CommunityCards)

	foldProb, callProb, raiseProb := actionWeights(strength)
	call, canCall := findAction(valid, ActionCall)
	owed := 0
	if canCall {
		owed = call.MinAmount
	}
	if owed > 0 && s.Pot/owed > 3 && strength >= Weak {
		callProb += 0.2
		foldProb = max(0, foldProb-0.15)
		raiseProb = max(0, raiseProb-0.05)
	}
	total := foldProb + callProb + raiseProb
	r := ai.rng.Float64() * total

	_, canCheck := findAction(valid, ActionCheck)
	raise, canRaise := findAction(valid, ActionRaise)
	switch {
	case r >= foldProb+callProb && canRaise:
		amount := ai.raiseTo(s, raise, strength)
		return Decision{Action: ActionRaise, Amount: amount, Reasoning: fmt.Sprintf("%s hand, raising", strength)}
	case r >= foldProb && canCall:
		if owed == 0 {
			return Decision{Action: ActionCheck, Reasoning: fmt.Sprintf("%s hand, nothing to call", strength)}
		}
		return Decision{Action: ActionCall, Reasoning: fmt.Sprintf("%s hand, calling %d", strength, owed)}
	case canCheck:
		return Decision{Action: ActionCheck, Reasoning: fmt.Sprintf("%s hand, checking", strength)}
	default:
		return Decision{Action: ActionFold, Reasoning: fmt.Sprintf("%s hand, folding", strength)}
	}
}

// strength buckets the preflop percentile, or the made hand once there is
// a board.
func (ai *BasicAI) strength(hole, board []deck.Card) HandStrength {
	if len(hole) != 2 {
		return VeryWeak
	}
	if len(board) < 3 {
		pct := deck.StartingHandStrength(hole)
		switch {
		case pct >= 0.9:
			return VeryStrong
		case pct >= 0.75:
			return Strong
		case pct >= 0.5:
			return Medium
		case pct >= 0.25:
			return Weak
		default:
			return VeryWeak
		}
	}

	v, err := evaluator.Evaluate(append(slices.Clone(hole), board...))
	if err != nil {
		return VeryWeak
	}
	switch v.Category {
	case evaluator.RoyalFlush, evaluator.StraightFlush, evaluator.FourOfAKind, evaluator.FullHouse:
		return VeryStrong
	case evaluator.Flush, evaluator.Straight, evaluator.ThreeOfAKind:
		return Strong
	case evaluator.TwoPair:
		return Medium
	case evaluator.Pair:
		if v.Tiebreak[0] >= deck.Jack {
			return Medium
		}
		return Weak
	default:
		if v.Tiebreak[0] == deck.Ace {
			return Weak
		}
		return VeryWeak
	}
}

// raiseTo sizes a raise as a fraction of the pot, clamped to the legal
// range.
func (ai *BasicAI) raiseTo(s Snapshot, raise ValidAction, strength HandStrength) int {
	var factor float64
	switch strength {
	case Strong:
		factor = 0.7 + ai.rng.Float64()*0.4
	case VeryStrong:
		factor = 0.8 + ai.rng.Float64()*0.6
	default:
		factor = 0.5 + ai.rng.Float64()*0.3
	}
	amount := s.CurrentBet + int(float64(s.Pot)*factor)
	amount = max(amount, s.CurrentBet+s.Settings.BigBlind)
	return min(max(amount, raise.MinAmount), raise.MaxAmount)
}

func actionWeights(strength HandStrength) (fold, call, raise float64) {
	switch strength {
	case VeryWeak:
		return 0.85, 0.15, 0.0
	case Weak:
		return 0.60, 0.35, 0.05
	case Medium:
		return 0.25, 0.60, 0.15
	case Strong:
		return 0.05, 0.40, 0.55
	default:
		return 0.0, 0.20, 0.80
	}
}

func findAction(valid []ValidAction, action Action) (ValidAction, bool) {
	for _, va := range valid {
		if va.Action == action {
			return va, true
		}
	}
	return ValidAction{}, false
}

func (s Snapshot) viewer() *PlayerView {
	for i := range s.Players {
		if s.Players[i].ID == s.ViewerID {
			return &s.Players[i]
		}
	}
	return nil
}

func (v PlayerView) holeCards() []deck.Card {
	cards := make([]deck.Card, 0, len(v.Cards))
	for _, c := range v.Cards {
		if c != nil {
			cards = append(cards, *c)
		}
	}
	return cards
}
