// Package display renders room snapshots and game events for terminal
// clients. It only reads snapshots; it never decides anything about the
// game.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/coder/quartz"
	"github.com/lox/pokerrooms/internal/deck"
	"github.com/lox/pokerrooms/internal/game"
	"github.com/lox/pokerrooms/internal/protocol"
	"github.com/muesli/termenv"
)

// Display renders a room as log lines plus a table. It is safe for
// concurrent use.
type Display struct {
	clock  quartz.Clock
	styles Styles

	mu          sync.Mutex
	chatRoom    string
	lastChatSeq uint64
}

// New creates a display styled for out with the given colour profile.
// Use termenv.Ascii for plain text.
func New(out io.Writer, profile termenv.Profile, clock quartz.Clock) *Display {
	r := lipgloss.NewRenderer(out, termenv.WithProfile(profile))
	r.SetColorProfile(profile)
	return &Display{clock: clock, styles: NewStyles(r)}
}

// Lines renders the events carried by u and the chat lines not seen in an
// earlier update for the same room. A closed update ends with a notice.
func (d *Display) Lines(u protocol.Update) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var lines []string
	for _, ev := range u.Events {
		decoded, err := ev.Decode()
		if err != nil {
			continue
		}
		if line := d.Event(decoded, u.Snapshot); line != "" {
			lines = append(lines, line)
		}
	}
	if u.RoomCode != d.chatRoom {
		d.chatRoom, d.lastChatSeq = u.RoomCode, 0
	}
	for _, c := range u.Chat {
		if c.Seq <= d.lastChatSeq {
			continue
		}
		d.lastChatSeq = c.Seq
		lines = append(lines, d.styles.Chat.Render(fmt.Sprintf("[%s] %s", c.Name, c.Text)))
	}
	if u.Closed {
		lines = append(lines, d.styles.Warning.Render("Room closed"))
	}
	return lines
}

// ErrorLine renders a rejected command.
func (d *Display) ErrorLine(err error) string {
	return d.styles.Error.Render("Error: " + err.Error())
}

// InfoLine renders a plain status line.
func (d *Display) InfoLine(msg string) string {
	return d.styles.Info.Render(msg)
}

// Table renders the snapshot as seen by its viewer.
func (d *Display) Table(s game.Snapshot) string {
	var b strings.Builder
	header := fmt.Sprintf("Room %s • Round %d • %s", s.RoomCode, s.Round, s.GamePhase)
	b.WriteString(d.styles.Header.Render(header))
	b.WriteByte('\n')

	board := "-"
	if len(s.CommunityCards) > 0 {
		board = d.Cards(s.CommunityCards)
	}
	fmt.Fprintf(&b, "Board: %s   Pot: $%d   Bet: $%d\n", d.styles.Board.Render(board), s.Pot, s.CurrentBet)

	for i, p := range s.Players {
		b.WriteString(d.seat(s, i, p))
		b.WriteByte('\n')
	}

	if s.LastResult != nil && s.GamePhase == game.PhaseShowdown {
		b.WriteString(d.result(s))
	}
	if prompt := d.prompt(s); prompt != "" {
		b.WriteString(d.styles.Actions.Render(prompt))
		b.WriteByte('\n')
	}
	return b.String()
}

func (d *Display) seat(s game.Snapshot, i int, p game.PlayerView) string {
	marker := "  "
	if p.IsActive {
		marker = "> "
	}
	name := p.Name
	var tags []string
	if p.ID == s.ViewerID {
		tags = append(tags, "you")
	}
	if p.IsHost {
		tags = append(tags, "host")
	}
	if p.IsAI {
		tags = append(tags, "AI")
	}
	if i == s.DealerIndex && s.Round > 0 {
		tags = append(tags, "D")
	}
	if p.Disconnected {
		tags = append(tags, "away")
	}
	if len(tags) > 0 {
		name += " (" + strings.Join(tags, ", ") + ")"
	}

	status := fmt.Sprintf("bet $%d", p.Bet)
	switch {
	case p.SittingOut:
		status = "sitting out"
	case p.Folded:
		status = "folded"
	case p.LastAction != "":
		status += " · " + p.LastAction
	}

	line := fmt.Sprintf("%s%-28s $%-6d %-22s %s", marker, name, p.Chips, status, d.hole(p.Cards))
	switch {
	case p.IsActive:
		return d.styles.Active.Render(line)
	case p.Folded || p.SittingOut:
		return d.styles.Folded.Render(line)
	default:
		return d.styles.Player.Render(line)
	}
}

func (d *Display) hole(cards []*deck.Card) string {
	if len(cards) == 0 {
		return ""
	}
	parts := make([]string, len(cards))
	for i, c := range cards {
		if c == nil {
			parts[i] = d.styles.Hidden.Render("??")
		} else {
			parts[i] = d.card(*c)
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Cards renders cards with suit colours.
func (d *Display) Cards(cards []deck.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = d.card(c)
	}
	return strings.Join(parts, " ")
}

func (d *Display) card(c deck.Card) string {
	if c.IsRed() {
		return d.styles.RedCard.Render(c.String())
	}
	return d.styles.BlackCard.Render(c.String())
}

func (d *Display) result(s game.Snapshot) string {
	var b strings.Builder
	for _, w := range s.LastResult.Winners {
		line := fmt.Sprintf("%s wins $%d", w.Name, w.Amount)
		if w.Hand != nil {
			line += " with " + w.Hand.Name
		}
		b.WriteString(d.styles.Success.Render(line))
		b.WriteByte('\n')
	}
	return b.String()
}

func (d *Display) prompt(s game.Snapshot) string {
	if len(s.ValidActions) == 0 {
		switch s.GamePhase {
		case game.PhaseWaiting, game.PhaseShowdown:
			for _, p := range s.Players {
				if p.ID == s.ViewerID && p.IsHost {
					return "Type 'start' to deal the next round"
				}
			}
		}
		return ""
	}
	opts := make([]string, 0, len(s.ValidActions))
	for _, va := range s.ValidActions {
		switch va.Action {
		case game.ActionCall:
			opts = append(opts, fmt.Sprintf("call $%d", va.MinAmount))
		case game.ActionRaise:
			opts = append(opts, fmt.Sprintf("raise <%d-%d>", va.MinAmount, va.MaxAmount))
		default:
			opts = append(opts, string(va.Action))
		}
	}
	prompt := "Your turn: " + strings.Join(opts, " | ")
	if s.TurnDeadline > 0 {
		left := time.UnixMilli(s.TurnDeadline).Sub(d.clock.Now()).Round(time.Second)
		if left > 0 {
			prompt += fmt.Sprintf(" (%s left)", left)
		}
	}
	return prompt
}

// Event renders one game event as a log line, or "" for events that the
// table already shows.
func (d *Display) Event(ev game.GameEvent, s game.Snapshot) string {
	name := func(id string) string {
		for _, p := range s.Players {
			if p.ID == id {
				return p.Name
			}
		}
		return "someone"
	}

	switch e := ev.(type) {
	case *game.RoundStartedEvent:
		return d.styles.Header.Render(fmt.Sprintf("*** ROUND %d ***", e.Round))
	case *game.ActionTakenEvent:
		var line string
		switch {
		case e.FreeFold:
			line = fmt.Sprintf("%s: folds for free", name(e.PlayerID))
		case e.Action == game.ActionFold:
			line = fmt.Sprintf("%s: folds", name(e.PlayerID))
		case e.Action == game.ActionCheck:
			line = fmt.Sprintf("%s: checks", name(e.PlayerID))
		case e.Action == game.ActionCall:
			line = fmt.Sprintf("%s: calls $%d", name(e.PlayerID), e.Amount)
		case e.Action == game.ActionRaise:
			line = fmt.Sprintf("%s: raises $%d (pot now: $%d)", name(e.PlayerID), e.Amount, e.PotAfter)
		}
		if e.Auto {
			line += " (timeout)"
		}
		return line
	case *game.PhaseChangedEvent:
		switch e.To {
		case game.PhaseFlop, game.PhaseTurn, game.PhaseRiver:
			return fmt.Sprintf("*** %s *** %s", strings.ToUpper(string(e.To)), d.Cards(e.Community))
		case game.PhaseShowdown:
			return "*** SHOWDOWN ***"
		}
		return ""
	case *game.RoundEndedEvent:
		return ""
	case *game.RoundAbortedEvent:
		return d.styles.Warning.Render(fmt.Sprintf("Round %d aborted: %s", e.Round, e.Reason))
	case *game.BuyBackEvent:
		return fmt.Sprintf("%s buys back for $%d", name(e.PlayerID), e.Amount)
	case *game.PlayerJoinedEvent:
		return d.styles.Info.Render(e.Name + " joined")
	case *game.PlayerLeftEvent:
		line := name(e.PlayerID) + " left"
		if e.NewHost != "" {
			line += ", " + name(e.NewHost) + " is now host"
		}
		return d.styles.Info.Render(line)
	case *game.HostChangedEvent:
		return d.styles.Info.Render(fmt.Sprintf("%s is away, %s is now host", name(e.From), name(e.To)))
	}
	return ""
}
