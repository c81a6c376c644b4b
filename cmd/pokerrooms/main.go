package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	NoColor bool             `help:"Disable colour output" env:"NO_COLOR"`
	Server  ServerCmd        `cmd:"" help:"Run the authoritative room server"`
	Play    PlayCmd          `cmd:"" help:"Play in this terminal against the house AI"`
	Client  ClientCmd        `cmd:"" help:"Connect to a room server"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("pokerrooms"),
		kong.Description("Multiplayer Texas Hold'em rooms"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
		kong.Bind(&cli),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
