package game

import (
	"slices"

	"github.com/lox/pokerrooms/internal/deck"
)

// PlayerView is one seat as seen by a particular viewer. Cards has one
// entry per dealt card; nil entries are face down.
type PlayerView struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Chips        int          `json:"chips"`
	Bet          int          `json:"bet"`
	Folded       bool         `json:"folded"`
	IsActive     bool         `json:"isActive"`
	IsHost       bool         `json:"isHost"`
	IsAI         bool         `json:"isAI"`
	BuyBacksUsed int          `json:"buyBacksUsed"`
	SittingOut   bool         `json:"sittingOut,omitempty"`
	Disconnected bool         `json:"disconnected,omitempty"`
	LastAction   string       `json:"lastAction,omitempty"`
	Cards        []*deck.Card `json:"cards"`
}

// Snapshot is the display-agnostic state pushed to clients after every
// mutation. The room fills RoomCode and TurnDeadline.
type Snapshot struct {
	RoomCode           string           `json:"roomCode"`
	ViewerID           string           `json:"viewerId,omitempty"`
	Players            []PlayerView     `json:"players"`
	CommunityCards     []deck.Card      `json:"communityCards"`
	Pot                int              `json:"pot"`
	CurrentBet         int              `json:"currentBet"`
	GamePhase          Phase            `json:"gamePhase"`
	DealerIndex        int              `json:"dealerIndex"`
	CurrentPlayerIndex int              `json:"currentPlayerIndex"`
	Revealed           map[string][]int `json:"revealed,omitempty"`
	Settings           Settings         `json:"settings"`
	Round              int              `json:"round"`
	TurnSeq            uint64           `json:"turnSeq"`
	TurnDeadline       int64            `json:"turnDeadline"`
	LastResult         *RoundResult     `json:"lastResult,omitempty"`
	ValidActions       []ValidAction    `json:"validActions,omitempty"`
}

// Snapshot renders the game for viewerID. Hole cards are visible to their
// owner, to everyone at showdown for players still in the hand, and per
// card once revealed. An empty viewerID sees only public information.
func (g *Game) Snapshot(viewerID string) Snapshot {
	s := Snapshot{
		ViewerID:           viewerID,
		Players:            make([]PlayerView, 0, len(g.players)),
		CommunityCards:     slices.Clone(g.community),
		Pot:                g.pot,
		CurrentBet:         g.currentBet,
		GamePhase:          g.phase,
		DealerIndex:        g.dealer,
		CurrentPlayerIndex: g.current,
		Settings:           g.settings,
		Round:              g.round,
		TurnSeq:            g.turnSeq,
		LastResult:         g.lastResult,
		ValidActions:       g.ValidActions(viewerID),
	}
	if s.CommunityCards == nil {
		s.CommunityCards = []deck.Card{}
	}
	for _, p := range g.players {
		s.Players = append(s.Players, g.viewOf(p, viewerID))
		if len(p.revealed) > 0 {
			if s.Revealed == nil {
				s.Revealed = make(map[string][]int)
			}
			s.Revealed[p.ID] = p.Revealed()
		}
	}
	return s
}

func (g *Game) viewOf(p *Player, viewerID string) PlayerView {
	v := PlayerView{
		ID:           p.ID,
		Name:         p.Name,
		Chips:        p.Chips,
		Bet:          p.Bet,
		Folded:       p.Folded,
		IsActive:     p.IsActive,
		IsHost:       p.IsHost,
		IsAI:         p.IsAI,
		BuyBacksUsed: p.BuyBacksUsed,
		SittingOut:   p.SittingOut,
		Disconnected: p.Disconnected,
		LastAction:   p.LastAction,
		Cards:        make([]*deck.Card, len(p.Cards)),
	}
	showAll := p.ID == viewerID || (g.contested() && p.InHand())
	for i, c := range p.Cards {
		if showAll || slices.Contains(p.revealed, i) {
			v.Cards[i] = &c
		}
	}
	return v
}

// contested reports whether the round went to a real showdown rather than
// ending on folds; the last player standing does not have to show.
func (g *Game) contested() bool {
	return g.phase == PhaseShowdown && g.lastResult != nil && g.lastResult.Reason == ReasonShowdown
}
