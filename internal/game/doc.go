// Package game implements the authoritative Texas Hold'em table for a room.
//
// The main type is Game, which owns the seats, deck, board and pot and moves
// through the phases waiting, preflop, flop, turn, river and showdown.
// Every mutating method either applies completely or returns an error and
// leaves the game exactly as it was.
//
// # Basic Usage
//
//	g, _ := game.New(game.DefaultSettings(), game.WithRNG(randutil.New(42)))
//	_ = g.AddPlayer(game.NewPlayer("p1", "Alice", false))
//	_ = g.AddPlayer(game.NewPlayer("p2", "Bob", false))
//	_ = g.StartGame("p1")
//	_ = g.Act(g.ActivePlayer().ID, game.ActionCall, 0)
//
// # Deterministic Testing
//
// WithRNG fixes the shuffle; WithDeckFunc supplies a stacked deck so a test
// can script every card:
//
//	g, _ := game.New(settings, game.WithDeckFunc(func(*rand.Rand) *deck.Deck {
//	    return deck.Stacked(deck.MustParseCards("AsKd 2c7h ..."))
//	}))
//
// # Concurrency
//
// Game is not safe for concurrent use. A room runs it on a single
// goroutine and hands out Snapshots, which are plain values, to observers.
// Transitions are announced on the EventBus passed with WithEventBus.
package game
