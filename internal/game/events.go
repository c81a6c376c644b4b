package game

import "github.com/lox/pokerrooms/internal/deck"

// EventType names a game event on the wire and in logs.
type EventType string

const (
	EventTypeRoundStarted EventType = "round_started"
	EventTypeActionTaken  EventType = "action_taken"
	EventTypePhaseChanged EventType = "phase_changed"
	EventTypeRoundEnded   EventType = "round_ended"
	EventTypeRoundAborted EventType = "round_aborted"
	EventTypeBuyBack      EventType = "buy_back"
	EventTypePlayerJoined EventType = "player_joined"
	EventTypePlayerLeft   EventType = "player_left"
	EventTypeHostChanged  EventType = "host_changed"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// GameEvent is anything the state machine announces after a transition.
type GameEvent interface {
	EventType() EventType
}

// RoundStartedEvent is published once blinds are posted and cards dealt.
type RoundStartedEvent struct {
	Round          int `json:"round"`
	DealerIndex    int `json:"dealerIndex"`
	SmallBlindSeat int `json:"smallBlindSeat"`
	BigBlindSeat   int `json:"bigBlindSeat"`
}

func (RoundStartedEvent) EventType() EventType { return EventTypeRoundStarted }

// ActionTakenEvent is published for every accepted player action.
type ActionTakenEvent struct {
	Round    int    `json:"round"`
	PlayerID string `json:"playerId"`
	Action   Action `json:"action"`
	Amount   int    `json:"amount"`
	Phase    Phase  `json:"phase"`
	PotAfter int    `json:"potAfter"`
	Auto     bool   `json:"auto,omitempty"`
	FreeFold bool   `json:"freeFold,omitempty"`
}

func (ActionTakenEvent) EventType() EventType { return EventTypeActionTaken }

// PhaseChangedEvent is published whenever the game phase moves.
type PhaseChangedEvent struct {
	Round     int         `json:"round"`
	From      Phase       `json:"from"`
	To        Phase       `json:"to"`
	Community []deck.Card `json:"community"`
}

func (PhaseChangedEvent) EventType() EventType { return EventTypePhaseChanged }

// RoundEndedEvent carries the showdown or fold-out result.
type RoundEndedEvent struct {
	Round  int         `json:"round"`
	Result RoundResult `json:"result"`
}

func (RoundEndedEvent) EventType() EventType { return EventTypeRoundEnded }

// RoundAbortedEvent reports a round abandoned with chips restored.
type RoundAbortedEvent struct {
	Round  int    `json:"round"`
	Reason string `json:"reason"`
}

func (RoundAbortedEvent) EventType() EventType { return EventTypeRoundAborted }

// BuyBackEvent reports a credited buy-back.
type BuyBackEvent struct {
	PlayerID string `json:"playerId"`
	Amount   int    `json:"amount"`
	Used     int    `json:"used"`
}

func (BuyBackEvent) EventType() EventType { return EventTypeBuyBack }

// PlayerJoinedEvent reports a new seat.
type PlayerJoinedEvent struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	IsAI     bool   `json:"isAI"`
}

func (PlayerJoinedEvent) EventType() EventType { return EventTypePlayerJoined }

// PlayerLeftEvent reports a seat being given up.
type PlayerLeftEvent struct {
	PlayerID string `json:"playerId"`
	NewHost  string `json:"newHost,omitempty"`
}

func (PlayerLeftEvent) EventType() EventType { return EventTypePlayerLeft }

// HostChangedEvent reports host rights moving away from a disconnected
// host.
type HostChangedEvent struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (HostChangedEvent) EventType() EventType { return EventTypeHostChanged }

// EventSubscriber can subscribe to game events
type EventSubscriber interface {
	OnEvent(event GameEvent)
}

// EventSubscriberFunc adapts a function to EventSubscriber.
type EventSubscriberFunc func(GameEvent)

func (f EventSubscriberFunc) OnEvent(event GameEvent) { f(event) }

// EventBus manages event publishing and subscription
type EventBus interface {
	Subscribe(subscriber EventSubscriber)
	Unsubscribe(subscriber EventSubscriber)
	Publish(event GameEvent)
}

// SimpleEventBus delivers events synchronously on the publishing goroutine.
// It is not safe for concurrent use; a room's processor owns it.
type SimpleEventBus struct {
	subscribers []EventSubscriber
}

// NewEventBus creates a new event bus
func NewEventBus() *SimpleEventBus {
	return &SimpleEventBus{}
}

// Subscribe adds a subscriber to receive events
func (bus *SimpleEventBus) Subscribe(subscriber EventSubscriber) {
	bus.subscribers = append(bus.subscribers, subscriber)
}

// Unsubscribe removes a subscriber from receiving events. Function
// subscribers cannot be compared and must not be unsubscribed.
func (bus *SimpleEventBus) Unsubscribe(subscriber EventSubscriber) {
	for i, sub := range bus.subscribers {
		if sub == subscriber {
			bus.subscribers = append(bus.subscribers[:i], bus.subscribers[i+1:]...)
			break
		}
	}
}

// Publish sends an event to all subscribers
func (bus *SimpleEventBus) Publish(event GameEvent) {
	for _, subscriber := range bus.subscribers {
		subscriber.OnEvent(event)
	}
}

// EventRecorder collects events in order; rooms drain it after each command.
type EventRecorder struct {
	events []GameEvent
}

func (r *EventRecorder) OnEvent(event GameEvent) { r.events = append(r.events, event) }

// Drain returns and clears the recorded events.
func (r *EventRecorder) Drain() []GameEvent {
	out := r.events
	r.events = nil
	return out
}
