package display

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lox/pokerrooms/internal/game"
	"github.com/lox/pokerrooms/internal/protocol"
)

var (
	// ErrQuit is returned for the quit command.
	ErrQuit = errors.New("quit")
	// ErrHelp is returned for the help command; show HelpText.
	ErrHelp = errors.New("help")
	// ErrEmpty is returned for a blank line.
	ErrEmpty = errors.New("empty command")
)

// HelpText lists the commands ParseCommand understands.
const HelpText = `Game actions:
  fold (f)              fold your hand
  check (k)             check
  call (c)              call the current bet
  raise (r) <total>     raise the bet to <total>
Table:
  start (s)             start the game (host)
  next (n)              deal the next round (host)
  buyback (b)           buy back in when out of chips
  reveal <i> [<j>]      show hole cards at showdown (0 or 1)
  say <text>            chat
  leave                 leave the room
  help (?)              show this help
  quit (q)              quit`

// ParseCommand turns one line of terminal input into a request.
func ParseCommand(line string) (protocol.Request, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return protocol.Request{}, ErrEmpty
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "fold", "f":
		return action(game.ActionFold, 0), nil
	case "check", "k", "ch":
		return action(game.ActionCheck, 0), nil
	case "call", "c":
		return action(game.ActionCall, 0), nil
	case "raise", "r", "bet":
		if len(args) != 1 {
			return protocol.Request{}, fmt.Errorf("specify raise amount: 'raise <amount>'")
		}
		amount, err := strconv.Atoi(args[0])
		if err != nil || amount <= 0 {
			return protocol.Request{}, fmt.Errorf("invalid amount: %s", args[0])
		}
		return action(game.ActionRaise, amount), nil
	case "start", "s":
		return protocol.Request{Type: protocol.TypeStartGame}, nil
	case "next", "n":
		return protocol.Request{Type: protocol.TypeNextRound}, nil
	case "buyback", "b":
		return protocol.Request{Type: protocol.TypeBuyBack}, nil
	case "reveal", "show":
		if len(args) == 0 {
			return protocol.Request{}, fmt.Errorf("specify card indices: 'reveal 0 1'")
		}
		indices := make([]int, 0, len(args))
		for _, a := range args {
			i, err := strconv.Atoi(a)
			if err != nil {
				return protocol.Request{}, fmt.Errorf("invalid card index: %s", a)
			}
			indices = append(indices, i)
		}
		return protocol.Request{Type: protocol.TypeRevealCards, Indices: indices}, nil
	case "say", "chat":
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
		if text == "" {
			return protocol.Request{}, fmt.Errorf("nothing to say")
		}
		return protocol.Request{Type: protocol.TypeChatMessage, Text: text}, nil
	case "leave":
		return protocol.Request{Type: protocol.TypeLeaveRoom}, nil
	case "help", "?":
		return protocol.Request{}, ErrHelp
	case "quit", "q", "exit":
		return protocol.Request{}, ErrQuit
	}
	return protocol.Request{}, fmt.Errorf("unknown command: %s. Type 'help' for available commands", fields[0])
}

func action(a game.Action, amount int) protocol.Request {
	return protocol.Request{Type: protocol.TypePlayerAction, Action: a, Amount: amount}
}
