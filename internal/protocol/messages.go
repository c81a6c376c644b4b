// Package protocol defines the command, response and update messages that
// every transport carries, and the JSON envelope used on sockets and the
// peer bus.
package protocol

import (
	"time"

	"github.com/lox/pokerrooms/internal/game"
)

// MessageType identifies the type of message
type MessageType string

const (
	// Client -> Server
	TypeCreateRoom   MessageType = "createRoom"
	TypeJoinRoom     MessageType = "joinRoom"
	TypeRejoinRoom   MessageType = "rejoinRoom"
	TypeLeaveRoom    MessageType = "leaveRoom"
	TypeStartGame    MessageType = "startGame"
	TypePlayerAction MessageType = "playerAction"
	TypeNextRound    MessageType = "nextRound"
	TypeBuyBack      MessageType = "buyBack"
	TypeRevealCards  MessageType = "revealCards"
	TypeChatMessage  MessageType = "chatMessage"

	// Server -> Client
	TypeResponse MessageType = "response"
	TypeUpdate   MessageType = "update"

	// Peer follower -> host, sent when a follower goes away.
	TypeGoodbye MessageType = "goodbye"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

// IsRequest reports whether clients may send this type.
func (mt MessageType) IsRequest() bool {
	switch mt {
	case TypeCreateRoom, TypeJoinRoom, TypeRejoinRoom, TypeLeaveRoom, TypeStartGame,
		TypePlayerAction, TypeNextRound, TypeBuyBack, TypeRevealCards, TypeChatMessage:
		return true
	}
	return false
}

// Request is one client command. Only the fields relevant to Type are set;
// the acting player is implied by the session that sends it.
type Request struct {
	Type      MessageType    `json:"-"`
	RequestID string         `json:"-"`
	RoomCode  string         `json:"roomCode,omitempty"`
	PlayerID  string         `json:"playerId,omitempty"`
	Name      string         `json:"playerName,omitempty"`
	Settings  *game.Settings `json:"settings,omitempty"`
	WithAI    bool           `json:"withAI,omitempty"`
	Action    game.Action    `json:"action,omitempty"`
	Amount    int            `json:"amount,omitempty"`
	Indices   []int          `json:"indices,omitempty"`
	Text      string         `json:"text,omitempty"`
	// Token is the rejoin secret handed out when the seat was taken.
	Token string `json:"token,omitempty"`
}

// Error is the wire form of a rejected request.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

// ErrorFrom converts err into its wire form.
func ErrorFrom(err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: game.ErrorCode(err), Message: err.Error()}
}

// Response answers exactly one Request.
type Response struct {
	RequestID string         `json:"requestId,omitempty"`
	Type      MessageType    `json:"type"`
	Success   bool           `json:"success"`
	Error     *Error         `json:"error,omitempty"`
	RoomCode  string         `json:"roomCode,omitempty"`
	PlayerID  string         `json:"playerId,omitempty"`
	// Token is only set on create and join responses, for the seat's owner.
	Token string         `json:"token,omitempty"`
	Room  *game.Snapshot `json:"room,omitempty"`
}

// Err returns the response's error, or nil on success.
func (r Response) Err() error {
	if r.Success {
		return nil
	}
	if r.Error == nil {
		return &Error{Code: "internal", Message: "request failed"}
	}
	return r.Error
}

// ChatEntry is one chat line. Seq increases by one per line in a room.
type ChatEntry struct {
	Seq      uint64    `json:"seq"`
	PlayerID string    `json:"playerId"`
	Name     string    `json:"name"`
	Text     string    `json:"text"`
	Time     time.Time `json:"time"`
}

// Update is pushed to every seat after each mutation of its room. Each
// update carries the full snapshot, so a slow reader that misses some still
// converges on the latest state.
type Update struct {
	RoomCode string        `json:"roomCode"`
	Snapshot game.Snapshot `json:"snapshot"`
	Chat     []ChatEntry   `json:"chat,omitempty"`
	// Events are the game events since the previous update. When a reader
	// falls behind, skipped updates have their events carried into the one
	// that replaces them, up to maxCarriedEvents.
	Events []Event `json:"events,omitempty"`
	Closed bool    `json:"closed,omitempty"`
}

// maxCarriedEvents bounds the events a coalesced update holds. The oldest
// are dropped first.
const maxCarriedEvents = 256

// Coalesce folds an unread update into the one replacing it. The snapshot
// and chat are taken from newer; the events of both are kept in order.
// Updates from different rooms are not merged.
func Coalesce(older, newer Update) Update {
	if len(older.Events) == 0 || older.RoomCode != newer.RoomCode {
		return newer
	}
	events := make([]Event, 0, len(older.Events)+len(newer.Events))
	events = append(events, older.Events...)
	events = append(events, newer.Events...)
	if len(events) > maxCarriedEvents {
		events = events[len(events)-maxCarriedEvents:]
	}
	newer.Events = events
	return newer
}
