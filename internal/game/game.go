package game

import (
	"fmt"
	rand "math/rand/v2"
	"slices"

	"github.com/lox/pokerrooms/internal/deck"
	"github.com/lox/pokerrooms/internal/randutil"
)

// Phase is the game's position in the round state machine:
// waiting -> preflop -> flop -> turn -> river -> showdown -> waiting.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePreflop  Phase = "preflop"
	PhaseFlop     Phase = "flop"
	PhaseTurn     Phase = "turn"
	PhaseRiver    Phase = "river"
	PhaseShowdown Phase = "showdown"
)

// Betting reports whether the phase is an open betting round.
func (p Phase) Betting() bool {
	switch p {
	case PhasePreflop, PhaseFlop, PhaseTurn, PhaseRiver:
		return true
	}
	return false
}

// DeckFunc builds the deck for a new round.
type DeckFunc func(rng *rand.Rand) *deck.Deck

// Option configures a Game.
type Option func(*Game)

// WithRNG sets the random source used for shuffling.
func WithRNG(rng *rand.Rand) Option {
	return func(g *Game) { g.rng = rng }
}

// WithDeckFunc replaces the shuffled deck, mostly for scripted tests.
func WithDeckFunc(fn DeckFunc) Option {
	return func(g *Game) { g.newDeck = fn }
}

// WithEventBus publishes game events on bus.
func WithEventBus(bus EventBus) Option {
	return func(g *Game) { g.bus = bus }
}

// Game is the authoritative state of one room's table. It is not safe for
// concurrent use: exactly one goroutine may call its mutating methods.
type Game struct {
	settings Settings
	players  []*Player

	deck       *deck.Deck
	community  []deck.Card
	pot        int
	currentBet int
	dealer     int
	current    int
	phase      Phase

	round        int
	turnSeq      uint64
	bigBlindSeat int
	freeFoldSeat int
	lastResult   *RoundResult

	rng     *rand.Rand
	newDeck DeckFunc
	bus     EventBus
}

// New creates a game in the waiting phase.
func New(settings Settings, opts ...Option) (*Game, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	g := &Game{
		settings:     settings,
		phase:        PhaseWaiting,
		current:      -1,
		bigBlindSeat: -1,
		freeFoldSeat: -1,
		newDeck:      deck.NewShuffledDeck,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng, _ = randutil.NewFromTime()
	}
	if g.bus == nil {
		g.bus = NewEventBus()
	}
	return g, nil
}

// Settings returns the room rules.
func (g *Game) Settings() Settings { return g.settings }

// Phase returns the current phase.
func (g *Game) Phase() Phase { return g.phase }

// Pot returns the chips in the middle.
func (g *Game) Pot() int { return g.pot }

// CurrentBet returns the amount each player must have bet this street.
func (g *Game) CurrentBet() int { return g.currentBet }

// DealerIndex returns the dealer seat.
func (g *Game) DealerIndex() int { return g.dealer }

// CurrentPlayerIndex returns the seat holding the turn, or -1.
func (g *Game) CurrentPlayerIndex() int { return g.current }

// Round returns how many rounds have been started.
func (g *Game) Round() int { return g.round }

// TurnSeq increments every time the turn moves to a new seat or a round
// ends. Deferred work such as timers captures it to detect staleness.
func (g *Game) TurnSeq() uint64 { return g.turnSeq }

// CommunityCards returns a copy of the board.
func (g *Game) CommunityCards() []deck.Card { return slices.Clone(g.community) }

// LastResult returns the result of the most recently finished round.
func (g *Game) LastResult() *RoundResult { return g.lastResult }

// Players returns the seats in order. Callers must not modify them.
func (g *Game) Players() []*Player { return g.players }

// Player looks up a seat by player ID.
func (g *Game) Player(id string) (*Player, bool) {
	i := g.seatOf(id)
	if i < 0 {
		return nil, false
	}
	return g.players[i], true
}

// ActivePlayer returns the player holding the turn, if any.
func (g *Game) ActivePlayer() *Player {
	if g.current < 0 || g.current >= len(g.players) {
		return nil
	}
	return g.players[g.current]
}

// SeatedCount counts players who have not left.
func (g *Game) SeatedCount() int {
	n := 0
	for _, p := range g.players {
		if !p.Left {
			n++
		}
	}
	return n
}

// TotalChips is the conserved quantity: the pot plus every stack. Bets are
// credited to the pot as they are made, so they are already included.
func (g *Game) TotalChips() int {
	total := g.pot
	for _, p := range g.players {
		total += p.Chips
	}
	return total
}

// AddPlayer seats p with the starting stack. The first seat becomes host.
// Players joining during an open round sit out until the next one.
func (g *Game) AddPlayer(p *Player) error {
	if g.seatOf(p.ID) >= 0 {
		return fmt.Errorf("player %s already seated", p.ID)
	}
	if g.SeatedCount() >= MaxPlayers {
		return ErrRoomFull
	}
	p.Chips = g.settings.StartingChips
	p.roundStartChips = p.Chips
	p.IsHost = !p.IsAI && g.host() == nil
	if g.phase != PhaseWaiting {
		p.SittingOut = true
		p.Folded = true
	}
	g.players = append(g.players, p)
	g.publish(PlayerJoinedEvent{PlayerID: p.ID, Name: p.Name, IsAI: p.IsAI})
	return nil
}

// RemovePlayer gives up a seat. During an open round the player is folded
// out of turn and removed when the next round starts; otherwise the seat is
// removed at once. Host rights pass to the next human seat, preferring
// connected ones. A returned ErrRoundAborted means the leave ran the board
// out and the round was abandoned; the seat is given up regardless.
func (g *Game) RemovePlayer(id string) error {
	i := g.seatOf(id)
	if i < 0 {
		return ErrUnknownPlayer
	}
	p := g.players[i]
	wasHost := p.IsHost
	p.IsHost = false
	p.Left = true

	var err error
	if g.phase.Betting() {
		if p.InHand() {
			err = g.foldOutOfTurn(i)
		}
	} else {
		g.removeSeat(i)
	}

	ev := PlayerLeftEvent{PlayerID: id}
	if wasHost {
		if h := g.promoteHost(); h != nil {
			ev.NewHost = h.ID
		}
	}
	g.publish(ev)
	return err
}

// SetDisconnected flags a seat's connection state. The seat keeps playing
// and is handled by the turn timer like any unresponsive player. A host
// that disconnects hands host rights to the next connected human, and a
// human reconnecting while the host is away takes them. Reconnecting never
// takes host rights back from a connected host.
func (g *Game) SetDisconnected(id string, disconnected bool) error {
	p, ok := g.Player(id)
	if !ok {
		return ErrUnknownPlayer
	}
	p.Disconnected = disconnected
	switch {
	case disconnected && p.IsHost:
		if next := g.connectedHuman(); next != nil {
			g.moveHost(p, next)
		}
	case !disconnected && !p.IsAI && !p.Left:
		if h := g.host(); h != nil && h != p && h.Disconnected {
			g.moveHost(h, p)
		}
	}
	return nil
}

func (g *Game) moveHost(from, to *Player) {
	from.IsHost = false
	to.IsHost = true
	g.publish(HostChangedEvent{From: from.ID, To: to.ID})
}

// IsHost reports whether id holds host rights.
func (g *Game) IsHost(id string) bool {
	p, ok := g.Player(id)
	return ok && p.IsHost
}

// StartGame deals a new round. Only the host may start; the check is
// advisory. From showdown this behaves like NextRound.
func (g *Game) StartGame(by string) error {
	if !g.IsHost(by) {
		return ErrNotHost
	}
	switch g.phase {
	case PhaseWaiting:
		return g.startRound(g.round > 0)
	case PhaseShowdown:
		return g.NextRound(by)
	default:
		return ErrRoundInProgress
	}
}

// NextRound moves from showdown back to waiting, rotates the dealer and
// deals the next round.
func (g *Game) NextRound(by string) error {
	if !g.IsHost(by) {
		return ErrNotHost
	}
	switch {
	case g.phase.Betting():
		return ErrRoundInProgress
	case g.phase == PhaseWaiting && g.round == 0:
		return g.startRound(false)
	case g.phase == PhaseWaiting:
		return g.startRound(true)
	}
	if g.fundedCount() < MinPlayers {
		return ErrNotEnoughPlayers
	}
	g.setPhase(PhaseWaiting)
	return g.startRound(true)
}

// BuyBack credits a fresh stack to a busted player. It is not allowed
// while the player is still contesting an open round.
func (g *Game) BuyBack(id string) error {
	p, ok := g.Player(id)
	if !ok {
		return ErrUnknownPlayer
	}
	if g.phase.Betting() && p.InHand() {
		return ErrRoundInProgress
	}
	if err := p.buyBack(g.settings); err != nil {
		return err
	}
	g.publish(BuyBackEvent{PlayerID: id, Amount: g.settings.BuyBackAmount, Used: p.BuyBacksUsed})
	return nil
}

// RevealCards shows some of the player's hole cards to the table. Only
// allowed at showdown.
func (g *Game) RevealCards(id string, indices []int) error {
	p, ok := g.Player(id)
	if !ok {
		return ErrUnknownPlayer
	}
	if g.phase != PhaseShowdown {
		return ErrNotShowdown
	}
	for _, idx := range indices {
		if idx < 0 || idx >= len(p.Cards) {
			return fmt.Errorf("%w: card index %d", ErrInvalidAction, idx)
		}
	}
	for _, idx := range indices {
		if !slices.Contains(p.revealed, idx) {
			p.revealed = append(p.revealed, idx)
		}
	}
	slices.Sort(p.revealed)
	return nil
}

func (g *Game) startRound(rotate bool) error {
	if g.fundedCount() < MinPlayers {
		return ErrNotEnoughPlayers
	}
	g.purgeLeft()

	for _, p := range g.players {
		p.resetForRound()
	}
	g.community = nil
	g.pot = 0
	g.currentBet = 0
	g.lastResult = nil

	if rotate {
		g.dealer = g.nextInHand(g.dealer + 1)
	} else {
		g.dealer = g.nextInHand(g.dealer)
	}
	g.round++

	g.deck = g.newDeck(g.rng)
	if err := g.dealHoleCards(); err != nil {
		return g.abortRound(err)
	}

	sb := g.nextInHand(g.dealer + 1)
	bb := g.nextInHand(sb + 1)
	g.postBlind(sb, g.settings.SmallBlind)
	g.postBlind(bb, g.settings.BigBlind)
	g.currentBet = g.settings.BigBlind
	g.bigBlindSeat = bb

	g.freeFoldSeat = -1
	if g.settings.OptionalBigBlind && g.inHandCount() >= 3 {
		g.freeFoldSeat = g.nextInHand(bb + 1)
	}

	g.publish(RoundStartedEvent{Round: g.round, DealerIndex: g.dealer, SmallBlindSeat: sb, BigBlindSeat: bb})
	g.setPhase(PhasePreflop)

	if g.bettingComplete() {
		return g.advancePhase()
	}
	g.setTurn(g.nextActor(bb + 1))
	return nil
}

func (g *Game) dealHoleCards() error {
	order := g.seatsFrom(g.dealer + 1)
	for range 2 {
		for _, i := range order {
			p := g.players[i]
			if !p.InHand() {
				continue
			}
			c, err := g.deck.DealOne()
			if err != nil {
				return err
			}
			p.Cards = append(p.Cards, c)
		}
	}
	return nil
}

func (g *Game) postBlind(seat, amount int) {
	p := g.players[seat]
	amount = min(amount, p.Chips)
	_ = p.commit(amount)
	g.pot += amount
}

// abortRound restores every stack to its value at round start and returns
// the game to waiting.
func (g *Game) abortRound(cause error) error {
	for _, p := range g.players {
		p.Chips = p.roundStartChips
		p.Bet = 0
		p.Cards = nil
		p.IsActive = false
		p.Folded = false
		p.SittingOut = false
	}
	g.pot = 0
	g.currentBet = 0
	g.community = nil
	g.current = -1
	g.turnSeq++
	g.publish(RoundAbortedEvent{Round: g.round, Reason: cause.Error()})
	if g.phase != PhaseWaiting {
		g.setPhase(PhaseWaiting)
	}
	return &abortError{cause: cause}
}

func (g *Game) setPhase(to Phase) {
	from := g.phase
	g.phase = to
	g.publish(PhaseChangedEvent{Round: g.round, From: from, To: to, Community: slices.Clone(g.community)})
}

// setTurn hands the turn to seat, clearing it everywhere else.
func (g *Game) setTurn(seat int) {
	for i, p := range g.players {
		p.IsActive = i == seat
	}
	g.current = seat
	g.turnSeq++
}

func (g *Game) publish(ev GameEvent) {
	g.bus.Publish(ev)
}

func (g *Game) host() *Player {
	for _, p := range g.players {
		if p.IsHost {
			return p
		}
	}
	return nil
}

func (g *Game) promoteHost() *Player {
	next := g.connectedHuman()
	if next == nil {
		for _, p := range g.players {
			if !p.Left && !p.IsAI {
				next = p
				break
			}
		}
	}
	if next != nil {
		next.IsHost = true
	}
	return next
}

func (g *Game) connectedHuman() *Player {
	for _, p := range g.players {
		if !p.Left && !p.IsAI && !p.Disconnected && !p.IsHost {
			return p
		}
	}
	return nil
}

func (g *Game) seatOf(id string) int {
	for i, p := range g.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (g *Game) removeSeat(i int) {
	g.players = slices.Delete(g.players, i, i+1)
	if i < g.dealer {
		g.dealer--
	}
	if g.dealer >= len(g.players) {
		g.dealer = 0
	}
}

func (g *Game) purgeLeft() {
	for i := len(g.players) - 1; i >= 0; i-- {
		if g.players[i].Left {
			g.removeSeat(i)
		}
	}
}

func (g *Game) fundedCount() int {
	n := 0
	for _, p := range g.players {
		if !p.Left && p.Chips > 0 {
			n++
		}
	}
	return n
}

func (g *Game) inHandCount() int {
	n := 0
	for _, p := range g.players {
		if p.InHand() {
			n++
		}
	}
	return n
}

// seatsFrom lists every seat index starting at from, wrapping around.
func (g *Game) seatsFrom(from int) []int {
	n := len(g.players)
	out := make([]int, 0, n)
	for k := range n {
		out = append(out, ((from+k)%n+n)%n)
	}
	return out
}

// nextInHand returns the first seat at or after from that is dealt in.
func (g *Game) nextInHand(from int) int {
	for _, i := range g.seatsFrom(from) {
		if g.players[i].InHand() {
			return i
		}
	}
	return -1
}

// nextActor returns the first seat at or after from that can act.
func (g *Game) nextActor(from int) int {
	for _, i := range g.seatsFrom(from) {
		if g.players[i].CanAct() {
			return i
		}
	}
	return -1
}
