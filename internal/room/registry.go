package room

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/lox/pokerrooms/internal/game"
	"github.com/lox/pokerrooms/internal/randutil"
)

const (
	codeAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength     = 6
	codeAttempts   = 100
	maxNameRunes   = 24
	defaultAIName  = "House AI"
	defaultReaping = 30 * time.Second
)

// Options configure a Registry and the rooms it creates.
type Options struct {
	Clock  quartz.Clock
	Logger *log.Logger
	// Seed drives room codes, shuffles and AI randomness. Zero seeds from
	// the current time.
	Seed int64
	// AIDelay is the pause before an AI seat acts. Zero makes AI seats act
	// within the command that gave them the turn.
	AIDelay time.Duration
	// EmptyRoomTTL is how long a room with no connected human survives.
	EmptyRoomTTL time.Duration
	// ReapInterval is how often Run looks for idle rooms.
	ReapInterval time.Duration
	// Defaults are the settings for rooms created without any.
	Defaults game.Settings
}

// Registry is the set of live rooms. It is safe for concurrent use.
type Registry struct {
	opts   Options
	logger *log.Logger
	source *randutil.Source

	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.ReapInterval <= 0 {
		opts.ReapInterval = defaultReaping
	}
	if opts.Defaults == (game.Settings{}) {
		opts.Defaults = game.DefaultSettings()
	}
	rng := randutil.New(opts.Seed)
	if opts.Seed == 0 {
		var seed int64
		rng, seed = randutil.NewFromTime()
		opts.Logger.Debug("Seeded registry from time", "seed", seed)
	}
	return &Registry{
		opts:   opts,
		logger: opts.Logger.WithPrefix("registry"),
		source: randutil.NewSource(rng),
		rooms:  make(map[string]*Room),
	}
}

// Create opens a room with the caller as host and first seat. A nil
// settings uses the registry defaults; zero fields in a given settings are
// filled from game.DefaultSettings.
func (r *Registry) Create(ctx context.Context, hostName string, settings *game.Settings, withAI bool) (*Room, string, error) {
	name, err := cleanName(hostName)
	if err != nil {
		return nil, "", err
	}
	s := r.opts.Defaults
	if settings != nil {
		s = settings.WithDefaults()
	}
	if err := s.Validate(); err != nil {
		return nil, "", err
	}

	r.mu.Lock()
	code, err := r.allocateCode()
	if err != nil {
		r.mu.Unlock()
		return nil, "", err
	}
	room, err := newRoom(code, s, r.source.Child(), r.source.Child(), r.opts)
	if err != nil {
		r.mu.Unlock()
		return nil, "", err
	}
	r.rooms[code] = room
	r.mu.Unlock()

	hostID := uuid.NewString()
	if err := room.Submit(ctx, Command{Kind: CmdJoin, PlayerID: hostID, Name: name}); err != nil {
		r.Close(code)
		return nil, "", err
	}
	if withAI {
		if err := room.Submit(ctx, Command{Kind: CmdJoin, PlayerID: uuid.NewString(), Name: defaultAIName, AI: true}); err != nil {
			r.Close(code)
			return nil, "", err
		}
	}
	r.logger.Info("Room created", "room", code, "host", name, "ai", withAI)
	return room, hostID, nil
}

// Join seats a new player in the room with the given code.
func (r *Registry) Join(ctx context.Context, code, playerName string) (*Room, string, error) {
	name, err := cleanName(playerName)
	if err != nil {
		return nil, "", err
	}
	room, err := r.Get(code)
	if err != nil {
		return nil, "", err
	}
	id := uuid.NewString()
	if err := room.Submit(ctx, Command{Kind: CmdJoin, PlayerID: id, Name: name}); err != nil {
		return nil, "", err
	}
	return room, id, nil
}

// Get looks up a live room. Codes are case-insensitive.
func (r *Registry) Get(code string) (*Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[normalizeCode(code)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}
	return room, nil
}

// Close removes and stops a room. Unknown codes are ignored.
func (r *Registry) Close(code string) {
	r.mu.Lock()
	room, ok := r.rooms[normalizeCode(code)]
	delete(r.rooms, normalizeCode(code))
	r.mu.Unlock()
	if ok {
		room.Close()
	}
}

// Rooms lists live rooms ordered by code.
func (r *Registry) Rooms() []Summary {
	r.mu.RLock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.RUnlock()

	out := make([]Summary, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.Summary())
	}
	slices.SortFunc(out, func(a, b Summary) int { return strings.Compare(a.Code, b.Code) })
	return out
}

// Run reaps idle rooms until ctx is done, then closes every room.
func (r *Registry) Run(ctx context.Context) error {
	ticker := r.opts.Clock.NewTicker(r.opts.ReapInterval, "registry", "reap")
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return nil
		case <-ticker.C:
			r.reap()
		}
	}
}

// reap closes rooms that have had no connected human for EmptyRoomTTL.
func (r *Registry) reap() {
	if r.opts.EmptyRoomTTL <= 0 {
		return
	}
	now := r.opts.Clock.Now()
	for _, s := range r.Rooms() {
		if s.Connected > 0 || s.IdleSince.IsZero() || now.Sub(s.IdleSince) < r.opts.EmptyRoomTTL {
			continue
		}
		r.logger.Info("Closing idle room", "room", s.Code, "idle", now.Sub(s.IdleSince))
		r.Close(s.Code)
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	rooms := r.rooms
	r.rooms = make(map[string]*Room)
	r.mu.Unlock()
	for _, room := range rooms {
		room.Close()
	}
}

// allocateCode must be called with mu held.
func (r *Registry) allocateCode() (string, error) {
	buf := make([]byte, codeLength)
	for range codeAttempts {
		for i := range buf {
			buf[i] = codeAlphabet[r.source.IntN(len(codeAlphabet))]
		}
		code := string(buf)
		if _, taken := r.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", ErrNoFreeCode
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidName
	}
	if utf8.RuneCountInString(name) > maxNameRunes {
		name = string([]rune(name)[:maxNameRunes])
	}
	return name, nil
}
