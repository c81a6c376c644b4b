package game

import (
	"encoding/json"
	"testing"

	"github.com/lox/pokerrooms/internal/deck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func visible(v PlayerView) []deck.Card {
	var out []deck.Card
	for _, c := range v.Cards {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}

func TestSnapshotHidesOpponentCards(t *testing.T) {
	t.Parallel()
	g := newTestGame(t, withCards(threeWayCards))
	require.NoError(t, g.StartGame("p0"))

	s := g.Snapshot("p0")
	assert.Equal(t, "p0", s.ViewerID)
	assert.Equal(t, deck.MustParseCards("AsAh"), visible(s.Players[0]))
	assert.Len(t, s.Players[1].Cards, 2)
	assert.Empty(t, visible(s.Players[1]))
	assert.Empty(t, visible(s.Players[2]))
	assert.NotEmpty(t, s.ValidActions)

	public := g.Snapshot("")
	for _, p := range public.Players {
		assert.Empty(t, visible(p))
	}
	assert.Empty(t, public.ValidActions)
}

func TestSnapshotShowdownVisibility(t *testing.T) {
	t.Parallel()
	g := newTestGame(t, withCards(threeWayCards))
	require.NoError(t, g.StartGame("p0"))
	require.NoError(t, g.Act("p0", ActionCall, 0))
	require.NoError(t, g.Act("p1", ActionFold, 0))
	checkDown(t, g)
	require.Equal(t, ReasonShowdown, g.LastResult().Reason)

	s := g.Snapshot("p1")
	assert.Equal(t, PhaseShowdown, s.GamePhase)
	assert.Len(t, visible(s.Players[0]), 2, "contested hands are shown")
	assert.Len(t, visible(s.Players[2]), 2)

	s = g.Snapshot("p2")
	assert.Empty(t, visible(s.Players[1]), "folded hands stay hidden")
	assert.Len(t, s.CommunityCards, 5)
	require.NotNil(t, s.LastResult)
	assert.Equal(t, "p0", s.LastResult.Winners[0].PlayerID)
}

func TestRevealCards(t *testing.T) {
	t.Parallel()
	g := newTestGame(t, withCards(threeWayCards))
	require.NoError(t, g.StartGame("p0"))
	assert.ErrorIs(t, g.RevealCards("p0", []int{0}), ErrNotShowdown)

	require.NoError(t, g.Act("p0", ActionRaise, 100))
	require.NoError(t, g.Act("p1", ActionFold, 0))
	require.NoError(t, g.Act("p2", ActionFold, 0))
	require.Equal(t, ReasonAllFolded, g.LastResult().Reason)

	s := g.Snapshot("p1")
	assert.Empty(t, visible(s.Players[0]), "winner by folds does not have to show")

	assert.ErrorIs(t, g.RevealCards("p0", []int{2}), ErrInvalidAction)
	require.NoError(t, g.RevealCards("p0", []int{1}))
	require.NoError(t, g.RevealCards("p0", []int{1}))

	s = g.Snapshot("p1")
	require.Len(t, s.Players[0].Cards, 2)
	assert.Nil(t, s.Players[0].Cards[0])
	require.NotNil(t, s.Players[0].Cards[1])
	assert.Equal(t, deck.MustParseCards("Ah")[0], *s.Players[0].Cards[1])
	assert.Equal(t, map[string][]int{"p0": {1}}, s.Revealed)

	require.NoError(t, g.NextRound("p0"))
	assert.Empty(t, g.Snapshot("p1").Revealed)
}

func TestSnapshotJSON(t *testing.T) {
	t.Parallel()
	g := newTestGame(t, withCards(threeWayCards))
	require.NoError(t, g.StartGame("p0"))

	data, err := json.Marshal(g.Snapshot("p1"))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "preflop", raw["gamePhase"])
	assert.EqualValues(t, 30, raw["pot"])
	assert.EqualValues(t, 0, raw["currentPlayerIndex"])
	assert.Equal(t, []any{}, raw["communityCards"])

	players := raw["players"].([]any)
	p0 := players[0].(map[string]any)
	assert.Equal(t, []any{nil, nil}, p0["cards"])
	p1 := players[1].(map[string]any)
	assert.Equal(t, map[string]any{"rank": float64(13), "suit": "diamonds"}, p1["cards"].([]any)[0])

	var back Snapshot
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, g.Snapshot("p1"), back)
}
