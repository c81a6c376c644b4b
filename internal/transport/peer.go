package transport

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/lox/pokerrooms/internal/protocol"
	"github.com/lox/pokerrooms/internal/room"
)

// PeerHost owns the room for a group of peers. It plays its own seat like
// Local and answers followers' requests arriving on the bus, keeping one
// session per follower.
type PeerHost struct {
	self     *Local
	registry *room.Registry
	bus      Bus
	logger   *log.Logger

	mu        sync.Mutex
	followers map[string]*room.Session
	wg        sync.WaitGroup
}

// NewPeerHost creates a host. Followers are served once Serve runs.
func NewPeerHost(registry *room.Registry, bus Bus, logger *log.Logger) *PeerHost {
	return &PeerHost{
		self:      NewLocal(registry, logger),
		registry:  registry,
		bus:       bus,
		logger:    logger.WithPrefix("peer-host"),
		followers: make(map[string]*room.Session),
	}
}

func (h *PeerHost) Do(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	return h.self.Do(ctx, req)
}

func (h *PeerHost) Updates() <-chan protocol.Update { return h.self.Updates() }

// Close releases the host's own seat. Followers are released when Serve
// returns.
func (h *PeerHost) Close() error { return h.self.Close() }

// Serve answers followers until ctx is done or the bus closes. Follower
// sessions are closed on return, which leaves their seats flagged
// disconnected.
func (h *PeerHost) Serve(ctx context.Context) error {
	msgs, cancel := h.bus.Subscribe()
	defer func() {
		cancel()
		h.dropFollowers()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			h.handle(ctx, msg)
		}
	}
}

func (h *PeerHost) handle(ctx context.Context, msg *protocol.Message) {
	if msg.ClientID == "" {
		return
	}
	switch {
	case msg.Type == protocol.TypeGoodbye:
		h.dropFollower(msg.ClientID)
		return
	case !msg.Type.IsRequest():
		return
	}

	req, err := protocol.DecodeRequest(msg)
	if err != nil {
		h.reply(msg.ClientID, protocol.Response{
			RequestID: msg.RequestID,
			Type:      msg.Type,
			Error:     &protocol.Error{Code: "invalid_message", Message: err.Error()},
		})
		return
	}
	h.logger.Debug("Follower request", "client", msg.ClientID, "type", req.Type)
	h.reply(msg.ClientID, h.follower(msg.ClientID).Handle(ctx, req))
}

func (h *PeerHost) reply(clientID string, resp protocol.Response) {
	msg, err := protocol.EncodeResponse(resp)
	if err != nil {
		h.logger.Error("Failed to encode response", "error", err)
		return
	}
	msg.ClientID = clientID
	if err := h.bus.Publish(msg); err != nil {
		h.logger.Warn("Failed to publish response", "client", clientID, "error", err)
	}
}

func (h *PeerHost) follower(clientID string) *room.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.followers[clientID]; ok {
		return s
	}
	s := room.NewSession(h.registry, h.logger)
	h.followers[clientID] = s
	h.wg.Add(1)
	go h.forward(clientID, s)
	h.logger.Info("Follower connected", "client", clientID)
	return s
}

func (h *PeerHost) forward(clientID string, s *room.Session) {
	defer h.wg.Done()
	for u := range s.Updates() {
		msg, err := protocol.EncodeUpdate(u)
		if err != nil {
			h.logger.Error("Failed to encode update", "error", err)
			continue
		}
		msg.ClientID = clientID
		if err := h.bus.Publish(msg); err != nil {
			h.logger.Debug("Failed to publish update", "client", clientID, "error", err)
		}
	}
}

func (h *PeerHost) dropFollower(clientID string) {
	h.mu.Lock()
	s, ok := h.followers[clientID]
	delete(h.followers, clientID)
	h.mu.Unlock()
	if ok {
		h.logger.Info("Follower left", "client", clientID)
		s.Close()
	}
}

func (h *PeerHost) dropFollowers() {
	h.mu.Lock()
	followers := h.followers
	h.followers = make(map[string]*room.Session)
	h.mu.Unlock()
	for _, s := range followers {
		s.Close()
	}
	h.wg.Wait()
}

// PeerFollower joins a peer host over a bus. It only sends requests and
// renders the snapshots the host publishes for it.
type PeerFollower struct {
	id      string
	bus     Bus
	logger  *log.Logger
	pending *pending
	updates chan protocol.Update
	done    chan struct{}
	cancel  func()

	closeOnce sync.Once
}

// NewPeerFollower subscribes to bus under a fresh client ID.
func NewPeerFollower(bus Bus, logger *log.Logger) *PeerFollower {
	id := uuid.NewString()
	msgs, cancel := bus.Subscribe()
	f := &PeerFollower{
		id:      id,
		bus:     bus,
		logger:  logger.WithPrefix("peer").With("client", id),
		pending: newPending(),
		updates: make(chan protocol.Update, 1),
		done:    make(chan struct{}),
		cancel:  cancel,
	}
	go f.read(msgs)
	return f
}

// ID returns the follower's address on the bus.
func (f *PeerFollower) ID() string { return f.id }

func (f *PeerFollower) Do(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	ch, err := f.pending.add(&req)
	if err != nil {
		return protocol.Response{}, err
	}
	msg, err := protocol.EncodeRequest(req)
	if err != nil {
		f.pending.remove(req.RequestID)
		return protocol.Response{}, err
	}
	msg.ClientID = f.id
	if err := f.bus.Publish(msg); err != nil {
		f.pending.remove(req.RequestID)
		return protocol.Response{}, err
	}
	return await(ctx, f.pending, req.RequestID, ch)
}

func (f *PeerFollower) Updates() <-chan protocol.Update { return f.updates }

func (f *PeerFollower) Close() error {
	f.closeOnce.Do(func() {
		if err := f.bus.Publish(&protocol.Message{Type: protocol.TypeGoodbye, ClientID: f.id}); err != nil {
			f.logger.Debug("Failed to say goodbye", "error", err)
		}
		f.cancel()
		<-f.done
	})
	return nil
}

func (f *PeerFollower) read(msgs <-chan *protocol.Message) {
	defer func() {
		f.pending.close()
		close(f.updates)
		close(f.done)
	}()
	for msg := range msgs {
		if msg.ClientID != f.id {
			continue
		}
		switch msg.Type {
		case protocol.TypeResponse:
			var resp protocol.Response
			if err := protocol.Decode(msg, &resp); err != nil {
				f.logger.Warn("Dropping malformed response", "error", err)
				continue
			}
			f.pending.resolve(resp)
		case protocol.TypeUpdate:
			var u protocol.Update
			if err := protocol.Decode(msg, &u); err != nil {
				f.logger.Warn("Dropping malformed update", "error", err)
				continue
			}
			offer(f.updates, u)
		}
	}
}
