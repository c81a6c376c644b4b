// Package evaluator classifies five to seven card holdem hands.
//
// Evaluate picks the best five card combination and returns a Value with
// its Category (High Card = 1 up to Royal Flush = 10) and a tiebreak key of
// ranks in significance order. Compare orders two Values either by category
// alone, which is the house rule rooms play by default, or strictly by
// category then tiebreak key.
package evaluator

import (
	"errors"
	"fmt"
	"slices"

	"github.com/lox/pokerrooms/internal/deck"
)

// Category is the hand class. Higher is stronger.
type Category int

const (
	HighCard Category = iota + 1
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

var categoryNames = [...]string{
	"Unknown",
	"High Card",
	"Pair",
	"Two Pair",
	"Three of a Kind",
	"Straight",
	"Flush",
	"Full House",
	"Four of a Kind",
	"Straight Flush",
	"Royal Flush",
}

// String returns the readable name of the category
func (c Category) String() string {
	if c < HighCard || c > RoyalFlush {
		return categoryNames[0]
	}
	return categoryNames[c]
}

// ErrCardCount is returned for fewer than five or more than seven cards.
var ErrCardCount = errors.New("evaluator: need 5 to 7 cards")

// Value is the evaluated strength of a hand.
type Value struct {
	Category Category    `json:"category"`
	Name     string      `json:"name"`
	Tiebreak []deck.Rank `json:"tiebreak"`
	Best     []deck.Card `json:"best"`
}

// Evaluate returns the best five card hand that can be made from cards.
func Evaluate(cards []deck.Card) (Value, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return Value{}, fmt.Errorf("%w: got %d", ErrCardCount, len(cards))
	}
	seen := make(map[deck.Card]bool, len(cards))
	for _, c := range cards {
		if !c.Valid() {
			return Value{}, fmt.Errorf("evaluator: invalid card %+v", c)
		}
		if seen[c] {
			return Value{}, fmt.Errorf("evaluator: duplicate card %s", c)
		}
		seen[c] = true
	}

	var best Value
	have := false
	combo := make([]deck.Card, 5)
	forEachFive(len(cards), func(idx [5]int) {
		for i, j := range idx {
			combo[i] = cards[j]
		}
		v := evaluateFive(combo)
		if !have || Compare(v, best, true) > 0 {
			best = v
			have = true
		}
	})
	return best, nil
}

// MustEvaluate is Evaluate for inputs known to be valid; it panics on error.
func MustEvaluate(cards []deck.Card) Value {
	v, err := Evaluate(cards)
	if err != nil {
		panic(err)
	}
	return v
}

// Compare returns 1 if a beats b, -1 if b beats a and 0 on a tie. With
// strict false only the categories are compared.
func Compare(a, b Value, strict bool) int {
	switch {
	case a.Category > b.Category:
		return 1
	case a.Category < b.Category:
		return -1
	case !strict:
		return 0
	}
	for i := 0; i < len(a.Tiebreak) && i < len(b.Tiebreak); i++ {
		switch {
		case a.Tiebreak[i] > b.Tiebreak[i]:
			return 1
		case a.Tiebreak[i] < b.Tiebreak[i]:
			return -1
		}
	}
	return 0
}

// forEachFive calls fn with every ascending 5-index combination of n.
func forEachFive(n int, fn func([5]int)) {
	var idx [5]int
	var rec func(start, depth int)
	rec = func(start, depth int) {
		if depth == 5 {
			fn(idx)
			return
		}
		for i := start; i <= n-(5-depth); i++ {
			idx[depth] = i
			rec(i+1, depth+1)
		}
	}
	rec(0, 0)
}

// evaluateFive classifies exactly five distinct cards.
func evaluateFive(cards []deck.Card) Value {
	sorted := slices.Clone(cards)
	slices.SortFunc(sorted, func(a, b deck.Card) int { return int(b.Rank) - int(a.Rank) })

	counts := make(map[deck.Rank]int, 5)
	flush := true
	for i, c := range sorted {
		counts[c.Rank]++
		if i > 0 && c.Suit != sorted[0].Suit {
			flush = false
		}
	}

	// groups ordered by multiplicity then rank, both descending
	groups := make([]deck.Rank, 0, len(counts))
	for r := range counts {
		groups = append(groups, r)
	}
	slices.SortFunc(groups, func(a, b deck.Rank) int {
		if counts[a] != counts[b] {
			return counts[b] - counts[a]
		}
		return int(b) - int(a)
	})

	high, straight := straightHigh(sorted, len(counts))

	v := Value{Best: sorted}
	switch {
	case straight && flush && high == deck.Ace:
		v.Category = RoyalFlush
		v.Tiebreak = []deck.Rank{high}
	case straight && flush:
		v.Category = StraightFlush
		v.Tiebreak = []deck.Rank{high}
	case counts[groups[0]] == 4:
		v.Category = FourOfAKind
		v.Tiebreak = groups
	case counts[groups[0]] == 3 && len(groups) == 2:
		v.Category = FullHouse
		v.Tiebreak = groups
	case flush:
		v.Category = Flush
		v.Tiebreak = ranksOf(sorted)
	case straight:
		v.Category = Straight
		v.Tiebreak = []deck.Rank{high}
	case counts[groups[0]] == 3:
		v.Category = ThreeOfAKind
		v.Tiebreak = groups
	case counts[groups[0]] == 2 && len(groups) == 3:
		v.Category = TwoPair
		v.Tiebreak = groups
	case counts[groups[0]] == 2:
		v.Category = Pair
		v.Tiebreak = groups
	default:
		v.Category = HighCard
		v.Tiebreak = ranksOf(sorted)
	}
	v.Name = v.Category.String()
	return v
}

// straightHigh reports whether five rank-sorted cards form a straight and
// its top card. A-2-3-4-5 is a straight to the five.
func straightHigh(sorted []deck.Card, distinct int) (deck.Rank, bool) {
	if distinct != 5 {
		return 0, false
	}
	if sorted[0].Rank-sorted[4].Rank == 4 {
		return sorted[0].Rank, true
	}
	if sorted[0].Rank == deck.Ace && sorted[1].Rank == deck.Five && sorted[4].Rank == deck.Two {
		return deck.Five, true
	}
	return 0, false
}

func ranksOf(cards []deck.Card) []deck.Rank {
	out := make([]deck.Rank, len(cards))
	for i, c := range cards {
		out[i] = c.Rank
	}
	return out
}
