package main

import (
	"fmt"
	"os"

	"github.com/coder/quartz"
	"github.com/lox/pokerrooms/cmd/pokerrooms/shared"
	"github.com/lox/pokerrooms/internal/display"
	"github.com/lox/pokerrooms/internal/protocol"
	"github.com/lox/pokerrooms/internal/transport"
	"github.com/lox/pokerrooms/internal/tui"
)

// ClientCmd connects to a room server and plays from this terminal.
type ClientCmd struct {
	URL      string `short:"u" default:"http://localhost:8080" help:"Server URL"`
	Name     string `short:"n" default:"Player" help:"Your display name"`
	Create   bool   `help:"Create a new room (the default without --join)" xor:"room"`
	Join     string `short:"j" help:"Room code to join" xor:"room"`
	Rejoin   string `help:"Player ID to reclaim in the room given by --join"`
	Token    string `help:"Rejoin token printed when the seat was taken"`
	WithAI   bool   `help:"Seat the house AI in a created room"`
	LogLevel string `short:"l" default:"warn" help:"Log level"`
}

func (c *ClientCmd) Run(cli *CLI) error {
	logger, err := shared.SetupLogger(c.LogLevel, cli.NoColor)
	if err != nil {
		return err
	}
	if c.Rejoin != "" && (c.Join == "" || c.Token == "") {
		return fmt.Errorf("--rejoin needs --join and --token")
	}
	ctx, cancel := shared.SetupSignalHandler(logger)
	defer cancel()

	tr, err := transport.Dial(ctx, c.URL, logger)
	if err != nil {
		return err
	}
	defer tr.Close()

	req := protocol.Request{Type: protocol.TypeCreateRoom, Name: c.Name, WithAI: c.WithAI}
	switch {
	case c.Rejoin != "":
		req = protocol.Request{Type: protocol.TypeRejoinRoom, RoomCode: c.Join, PlayerID: c.Rejoin, Token: c.Token}
	case c.Join != "":
		req = protocol.Request{Type: protocol.TypeJoinRoom, RoomCode: c.Join, Name: c.Name}
	}
	resp, err := tr.Do(ctx, req)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return fmt.Errorf("%s: %w", req.Type, err)
	}

	token := resp.Token
	if token == "" {
		token = c.Token
	}
	disp := display.New(os.Stdout, shared.ColorProfile(cli.NoColor), quartz.NewReal())
	model := tui.New(ctx, tr, disp, logger)
	model.AddLogEntry(fmt.Sprintf("Seated in room %s. Type 'help' for commands.", resp.RoomCode))
	rejoin := fmt.Sprintf("Rejoin with --join %s --rejoin %s --token %s", resp.RoomCode, resp.PlayerID, token)
	model.AddLogEntry(rejoin)
	err = tui.Run(ctx, model)
	// The alternate screen is gone by now; leave the hint on the terminal.
	fmt.Println(rejoin)
	return err
}
