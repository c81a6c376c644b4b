package room

import "github.com/lox/pokerrooms/internal/game"

// CommandKind names a room command.
type CommandKind string

const (
	CmdJoin       CommandKind = "join"
	CmdStart      CommandKind = "start"
	CmdNextRound  CommandKind = "next_round"
	CmdAction     CommandKind = "action"
	CmdBuyBack    CommandKind = "buy_back"
	CmdReveal     CommandKind = "reveal"
	CmdChat       CommandKind = "chat"
	CmdLeave      CommandKind = "leave"
	CmdDisconnect CommandKind = "disconnect"
	CmdReconnect  CommandKind = "reconnect"

	// Scheduled by the room itself. They carry the turn sequence they were
	// armed for and are dropped if the turn has moved on.
	cmdTimeout CommandKind = "timeout"
	cmdAIMove  CommandKind = "ai_move"
)

// Command is one serialized mutation of a room. PlayerID is the acting
// seat; the remaining fields are used by the kinds that need them.
type Command struct {
	Kind     CommandKind
	PlayerID string
	Name     string
	AI       bool
	Action   game.Action
	Amount   int
	Indices  []int
	Text     string
	// Token proves ownership of PlayerID on CmdReconnect.
	Token string

	seq uint64
}
