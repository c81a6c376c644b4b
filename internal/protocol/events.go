package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/lox/pokerrooms/internal/game"
)

// Event carries a game event on the wire.
type Event struct {
	Type game.EventType  `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewEvent encodes a game event.
func NewEvent(ev game.GameEvent) (Event, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s event: %w", ev.EventType(), err)
	}
	return Event{Type: ev.EventType(), Data: data}, nil
}

// Decode returns the typed game event.
func (e Event) Decode() (game.GameEvent, error) {
	var target game.GameEvent
	switch e.Type {
	case game.EventTypeRoundStarted:
		target = &game.RoundStartedEvent{}
	case game.EventTypeActionTaken:
		target = &game.ActionTakenEvent{}
	case game.EventTypePhaseChanged:
		target = &game.PhaseChangedEvent{}
	case game.EventTypeRoundEnded:
		target = &game.RoundEndedEvent{}
	case game.EventTypeRoundAborted:
		target = &game.RoundAbortedEvent{}
	case game.EventTypeBuyBack:
		target = &game.BuyBackEvent{}
	case game.EventTypePlayerJoined:
		target = &game.PlayerJoinedEvent{}
	case game.EventTypePlayerLeft:
		target = &game.PlayerLeftEvent{}
	case game.EventTypeHostChanged:
		target = &game.HostChangedEvent{}
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	if err := json.Unmarshal(e.Data, target); err != nil {
		return nil, fmt.Errorf("decode %s event: %w", e.Type, err)
	}
	return target, nil
}
