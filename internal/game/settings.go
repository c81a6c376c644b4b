package game

import (
	"fmt"
	"time"
)

// Seat limits for a single room.
const (
	MinPlayers = 2
	MaxPlayers = 8
)

// Settings are the per-room rules chosen by the host. The hcl tags let the
// server config file provide room defaults.
type Settings struct {
	StartingChips    int  `json:"startingChips" hcl:"starting_chips,optional"`
	SmallBlind       int  `json:"smallBlind" hcl:"small_blind,optional"`
	BigBlind         int  `json:"bigBlind" hcl:"big_blind,optional"`
	TurnTimeLimit    int  `json:"turnTimeLimit" hcl:"turn_time_limit,optional"` // seconds, 0 disables
	OptionalBigBlind bool `json:"optionalBigBlind" hcl:"optional_big_blind,optional"`
	AllowBuyBack     bool `json:"allowBuyBack" hcl:"allow_buy_back,optional"`
	MaxBuyBacks      int  `json:"maxBuyBacks" hcl:"max_buy_backs,optional"`
	BuyBackAmount    int  `json:"buyBackAmount" hcl:"buy_back_amount,optional"`
	StrictKickers    bool `json:"strictKickers" hcl:"strict_kickers,optional"`
}

// DefaultSettings returns the settings used when a room is created without
// any.
func DefaultSettings() Settings {
	return Settings{
		StartingChips: 1000,
		SmallBlind:    10,
		BigBlind:      20,
		TurnTimeLimit: 30,
		AllowBuyBack:  true,
		MaxBuyBacks:   3,
		BuyBackAmount: 1000,
	}
}

// WithDefaults fills zero numeric fields from DefaultSettings. Boolean
// fields are kept as given.
func (s Settings) WithDefaults() Settings {
	d := DefaultSettings()
	if s.StartingChips == 0 {
		s.StartingChips = d.StartingChips
	}
	if s.SmallBlind == 0 {
		s.SmallBlind = d.SmallBlind
	}
	if s.BigBlind == 0 {
		s.BigBlind = max(d.BigBlind, s.SmallBlind*2)
	}
	if s.BuyBackAmount == 0 {
		s.BuyBackAmount = s.StartingChips
	}
	return s
}

// Validate checks that the settings describe a playable game.
func (s Settings) Validate() error {
	switch {
	case s.StartingChips <= 0:
		return fmt.Errorf("%w: starting chips must be positive", ErrInvalidSettings)
	case s.SmallBlind <= 0:
		return fmt.Errorf("%w: small blind must be positive", ErrInvalidSettings)
	case s.BigBlind < s.SmallBlind:
		return fmt.Errorf("%w: big blind must be at least the small blind", ErrInvalidSettings)
	case s.TurnTimeLimit < 0:
		return fmt.Errorf("%w: turn time limit cannot be negative", ErrInvalidSettings)
	case s.MaxBuyBacks < 0:
		return fmt.Errorf("%w: max buy-backs cannot be negative", ErrInvalidSettings)
	case s.AllowBuyBack && s.BuyBackAmount <= 0:
		return fmt.Errorf("%w: buy-back amount must be positive", ErrInvalidSettings)
	}
	return nil
}

// TurnTimeout converts TurnTimeLimit to a duration; zero means no timer.
func (s Settings) TurnTimeout() time.Duration {
	return time.Duration(s.TurnTimeLimit) * time.Second
}
