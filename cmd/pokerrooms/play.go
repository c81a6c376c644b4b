package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/pokerrooms/cmd/pokerrooms/shared"
	"github.com/lox/pokerrooms/internal/bot"
	"github.com/lox/pokerrooms/internal/display"
	"github.com/lox/pokerrooms/internal/game"
	"github.com/lox/pokerrooms/internal/protocol"
	"github.com/lox/pokerrooms/internal/randutil"
	"github.com/lox/pokerrooms/internal/room"
	"github.com/lox/pokerrooms/internal/transport"
	"github.com/lox/pokerrooms/internal/tui"
	"golang.org/x/sync/errgroup"
)

// PlayCmd hosts a room inside this process and seats the terminal user as
// host. With no bots the house AI takes the second seat; otherwise each
// bot plays through its own transport like a remote player would.
type PlayCmd struct {
	Name          string        `short:"n" default:"Player" help:"Your display name"`
	Mode          string        `short:"m" default:"local" enum:"local,peer" help:"Seat bots through direct sessions (local) or an in-memory peer bus (peer)"`
	Bots          int           `short:"b" default:"0" help:"Number of bot opponents (0 seats the house AI)"`
	Seed          *int64        `help:"Deterministic RNG seed"`
	AIDelay       time.Duration `default:"800ms" help:"How long AI players think before acting"`
	StartingChips int           `default:"1000" help:"Starting chips per player"`
	SmallBlind    int           `default:"10" help:"Small blind"`
	BigBlind      int           `default:"20" help:"Big blind"`
	TurnTime      int           `default:"30" help:"Seconds per turn before auto check/fold (0 disables)"`
	LogLevel      string        `short:"l" default:"warn" help:"Log level"`
}

func (c *PlayCmd) Run(cli *CLI) error {
	if c.Bots < 0 || c.Bots > game.MaxPlayers-1 {
		return fmt.Errorf("bots must be between 0 and %d", game.MaxPlayers-1)
	}
	logger, err := shared.SetupLogger(c.LogLevel, cli.NoColor)
	if err != nil {
		return err
	}
	ctx, cancel := shared.SetupSignalHandler(logger)
	defer cancel()

	rng, seed := randutil.NewFromTime()
	if c.Seed != nil {
		seed = *c.Seed
		rng = randutil.New(seed)
	}
	agents := randutil.NewSource(rng)
	logger.Debug("Seeded game", "seed", seed)

	clock := quartz.NewReal()
	registry := room.NewRegistry(room.Options{
		Clock:   clock,
		Logger:  logger,
		Seed:    seed,
		AIDelay: c.AIDelay,
	})

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return registry.Run(gctx) })

	self, newSeat := c.transports(gctx, g, registry, logger)
	defer self.Close()

	settings := game.Settings{
		StartingChips: c.StartingChips,
		SmallBlind:    c.SmallBlind,
		BigBlind:      c.BigBlind,
		TurnTimeLimit: c.TurnTime,
		AllowBuyBack:  true,
		MaxBuyBacks:   3,
	}
	resp, err := self.Do(gctx, protocol.Request{
		Type:     protocol.TypeCreateRoom,
		Name:     c.Name,
		Settings: &settings,
		WithAI:   c.Bots == 0,
	})
	if err == nil {
		err = resp.Err()
	}
	if err != nil {
		stop()
		_ = g.Wait()
		return fmt.Errorf("creating room: %w", err)
	}
	code := resp.RoomCode
	logger.Info("Room created", "room", code, "mode", c.Mode, "bots", c.Bots)

	for i := range c.Bots {
		seat := newSeat()
		resp, err := seat.Do(gctx, protocol.Request{Type: protocol.TypeJoinRoom, RoomCode: code, Name: fmt.Sprintf("Bot %d", i+1)})
		if err == nil {
			err = resp.Err()
		}
		if err != nil {
			_ = seat.Close()
			stop()
			_ = g.Wait()
			return fmt.Errorf("seating bot %d: %w", i+1, err)
		}
		driver := bot.NewDriver(seat, game.NewBasicAI(agents.Child()), clock, c.AIDelay, logger)
		g.Go(func() error {
			defer seat.Close()
			if err := driver.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	disp := display.New(os.Stdout, shared.ColorProfile(cli.NoColor), clock)
	model := tui.New(gctx, self, disp, logger)
	model.AddLogEntry(fmt.Sprintf("Room %s is open. Type 'start' to deal, 'help' for commands.", code))
	g.Go(func() error {
		defer stop()
		return tui.Run(gctx, model)
	})
	return g.Wait()
}

// transports returns the host's own transport and a constructor for bot
// seats. In peer mode the host also serves the bus for the group.
func (c *PlayCmd) transports(ctx context.Context, g *errgroup.Group, registry *room.Registry, logger *log.Logger) (transport.Transport, func() transport.Transport) {
	if c.Mode == "peer" {
		bus := transport.NewMemoryBus()
		host := transport.NewPeerHost(registry, bus, logger)
		g.Go(func() error {
			defer bus.Close()
			return host.Serve(ctx)
		})
		return host, func() transport.Transport { return transport.NewPeerFollower(bus, logger) }
	}
	return transport.NewLocal(registry, logger), func() transport.Transport { return transport.NewLocal(registry, logger) }
}
