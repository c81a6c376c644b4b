package game

import (
	"fmt"
	rand "math/rand/v2"
	"testing"

	"github.com/lox/pokerrooms/internal/deck"
	"github.com/lox/pokerrooms/internal/randutil"
	"github.com/stretchr/testify/require"
)

type testGameOption func(*testGameBuilder)

type testGameBuilder struct {
	settings Settings
	players  int
	cards    string
	seed     int64
	recorder *EventRecorder
}

func withSettings(fn func(*Settings)) testGameOption {
	return func(b *testGameBuilder) { fn(&b.settings) }
}

func withPlayers(n int) testGameOption {
	return func(b *testGameBuilder) { b.players = n }
}

// withCards stacks the deck, first card dealt first. Hole cards go round
// the table twice starting left of the dealer, then burn+flop, burn+turn,
// burn+river.
func withCards(cards string) testGameOption {
	return func(b *testGameBuilder) { b.cards = cards }
}

func withRecorder(r *EventRecorder) testGameOption {
	return func(b *testGameBuilder) { b.recorder = r }
}

// newTestGame seats players p0..pN-1 with 1000 chips and 10/20 blinds. p0
// is host.
func newTestGame(t *testing.T, opts ...testGameOption) *Game {
	t.Helper()
	b := &testGameBuilder{
		settings: Settings{StartingChips: 1000, SmallBlind: 10, BigBlind: 20, AllowBuyBack: true, MaxBuyBacks: 1, BuyBackAmount: 500},
		players:  3,
		seed:     42,
	}
	for _, opt := range opts {
		opt(b)
	}

	bus := NewEventBus()
	if b.recorder != nil {
		bus.Subscribe(b.recorder)
	}
	gameOpts := []Option{WithRNG(randutil.New(b.seed)), WithEventBus(bus)}
	if b.cards != "" {
		cards := deck.MustParseCards(b.cards)
		gameOpts = append(gameOpts, WithDeckFunc(func(*rand.Rand) *deck.Deck {
			return deck.Stacked(cards)
		}))
	}

	g, err := New(b.settings, gameOpts...)
	require.NoError(t, err)
	for i := range b.players {
		require.NoError(t, g.AddPlayer(NewPlayer(fmt.Sprintf("p%d", i), fmt.Sprintf("Player %d", i), false)))
	}
	return g
}

// checkDown calls or checks every decision until the round is over.
func checkDown(t *testing.T, g *Game) {
	t.Helper()
	for g.Phase().Betting() {
		p := g.ActivePlayer()
		require.NotNil(t, p)
		action := ActionCheck
		if p.Bet < g.CurrentBet() {
			action = ActionCall
		}
		require.NoError(t, g.Act(p.ID, action, 0))
	}
}

func chipsOf(g *Game) []int {
	out := make([]int, 0, len(g.Players()))
	for _, p := range g.Players() {
		out = append(out, p.Chips)
	}
	return out
}

func activeCount(g *Game) int {
	n := 0
	for _, p := range g.Players() {
		if p.IsActive {
			n++
		}
	}
	return n
}
