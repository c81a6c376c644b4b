package game

import (
	"errors"
	"testing"

	"github.com/lox/pokerrooms/internal/deck"
	"github.com/lox/pokerrooms/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAIHandStrength(t *testing.T) {
	t.Parallel()
	ai := NewBasicAI(randutil.New(1))

	tests := []struct {
		hole  string
		board string
		want  HandStrength
	}{
		{"AsAh", "", VeryStrong},
		{"7s2h", "", VeryWeak},
		{"AsAh", "AdAc2s", VeryStrong},
		{"7s2h", "7d9cKs", Weak},
		{"Ks3h", "Kd9c2s", Medium},
		{"Ts9s", "8s7s2d", VeryWeak},
		{"Ts9s", "8s7s6d", Strong},
	}
	for _, tt := range tests {
		var board []deck.Card
		if tt.board != "" {
			board = deck.MustParseCards(tt.board)
		}
		got := ai.strength(deck.MustParseCards(tt.hole), board)
		if got != tt.want {
			t.Errorf("strength(%s | %s) = %s, want %s", tt.hole, tt.board, got, tt.want)
		}
	}
}

func TestAIDecisionsAreLegal(t *testing.T) {
	t.Parallel()
	g := newTestGame(t)
	require.NoError(t, g.StartGame("p0"))
	ai := NewBasicAI(randutil.New(7))

	for range 50 {
		p := g.ActivePlayer()
		if p == nil {
			break
		}
		valid := g.ValidActions(p.ID)
		d := ai.Decide(g.Snapshot(p.ID), valid)
		va, ok := findAction(valid, d.Action)
		require.True(t, ok, "decision %v not in %v", d, valid)
		if d.Action == ActionRaise {
			assert.GreaterOrEqual(t, d.Amount, va.MinAmount)
			assert.LessOrEqual(t, d.Amount, va.MaxAmount)
		}
		require.NoError(t, g.Act(p.ID, d.Action, d.Amount))
	}
}

func TestAIFoldsWithoutOptions(t *testing.T) {
	t.Parallel()
	ai := NewBasicAI(randutil.New(1))
	d := ai.Decide(Snapshot{}, nil)
	assert.Equal(t, ActionFold, d.Action)
}

// TestRandomPlayInvariants drives many rounds with AI decisions and checks
// the table invariants after every accepted action.
func TestRandomPlayInvariants(t *testing.T) {
	t.Parallel()
	for seed := int64(1); seed <= 10; seed++ {
		rec := &EventRecorder{}
		g := newTestGame(t, withPlayers(4), withRecorder(rec), withSettings(func(s *Settings) {
			s.OptionalBigBlind = seed%2 == 0
			s.StrictKickers = seed%3 == 0
		}))
		g.rng = randutil.New(seed)
		ai := NewBasicAI(randutil.New(seed * 31))
		total := g.TotalChips()

		for round := range 40 {
			var err error
			if round == 0 {
				err = g.StartGame("p0")
			} else {
				err = g.NextRound("p0")
			}
			if errors.Is(err, ErrNotEnoughPlayers) {
				break
			}
			require.NoError(t, err)

			for g.Phase().Betting() {
				require.Equal(t, 1, activeCount(g), "seed %d: exactly one active seat", seed)
				p := g.ActivePlayer()
				require.True(t, p.InHand())
				d := ai.Decide(g.Snapshot(p.ID), g.ValidActions(p.ID))
				require.NoError(t, g.Act(p.ID, d.Action, d.Amount))
				require.Equal(t, total, g.TotalChips(), "seed %d: chips conserved", seed)
			}
			require.Zero(t, activeCount(g))
			require.Zero(t, g.Pot())

			for _, p := range g.Players() {
				if p.Chips == 0 && g.BuyBack(p.ID) == nil {
					total += g.Settings().BuyBackAmount
				}
			}
			require.Equal(t, total, g.TotalChips())
		}

		assertPhaseOrder(t, rec.Drain())
	}
}

func assertPhaseOrder(t *testing.T, events []GameEvent) {
	t.Helper()
	allowed := map[Phase][]Phase{
		PhaseWaiting:  {PhasePreflop},
		PhasePreflop:  {PhaseFlop, PhaseShowdown},
		PhaseFlop:     {PhaseTurn, PhaseShowdown},
		PhaseTurn:     {PhaseRiver, PhaseShowdown},
		PhaseRiver:    {PhaseShowdown},
		PhaseShowdown: {PhaseWaiting},
	}
	for _, ev := range events {
		pc, ok := ev.(PhaseChangedEvent)
		if !ok {
			continue
		}
		assert.Contains(t, allowed[pc.From], pc.To, "illegal transition %s -> %s", pc.From, pc.To)
	}
}
