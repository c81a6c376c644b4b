package transport

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/lox/pokerrooms/internal/protocol"
)

const writeWait = 10 * time.Second

// Remote talks to an authoritative server over a websocket. It never runs
// game logic; it sends requests and renders whatever the server pushes.
type Remote struct {
	conn    *websocket.Conn
	logger  *log.Logger
	pending *pending
	updates chan protocol.Update
	done    chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial connects to serverURL. http(s) URLs are mapped to ws(s) and an
// empty path defaults to /ws.
func Dial(ctx context.Context, serverURL string, logger *log.Logger) (*Remote, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		u.Scheme = "ws"
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}

	logger = logger.WithPrefix("remote")
	logger.Info("Connecting to server", "url", u.String())
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	r := &Remote{
		conn:    conn,
		logger:  logger,
		pending: newPending(),
		updates: make(chan protocol.Update, 1),
		done:    make(chan struct{}),
	}
	go r.readMessages()
	return r, nil
}

func (r *Remote) Do(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	ch, err := r.pending.add(&req)
	if err != nil {
		return protocol.Response{}, err
	}
	msg, err := protocol.EncodeRequest(req)
	if err != nil {
		r.pending.remove(req.RequestID)
		return protocol.Response{}, err
	}
	if err := r.write(msg); err != nil {
		r.pending.remove(req.RequestID)
		return protocol.Response{}, fmt.Errorf("send %s: %w", req.Type, err)
	}
	return await(ctx, r.pending, req.RequestID, ch)
}

func (r *Remote) Updates() <-chan protocol.Update { return r.updates }

// Done is closed once the connection is gone.
func (r *Remote) Done() <-chan struct{} { return r.done }

func (r *Remote) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.writeMu.Lock()
		_ = r.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		r.writeMu.Unlock()
		err = r.conn.Close()
		<-r.done
	})
	return err
}

func (r *Remote) write(msg *protocol.Message) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	_ = r.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return r.conn.WriteJSON(msg)
}

func (r *Remote) readMessages() {
	defer func() {
		r.pending.close()
		close(r.updates)
		close(r.done)
	}()

	for {
		var msg protocol.Message
		if err := r.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				r.logger.Error("WebSocket error", "error", err)
			}
			return
		}
		r.dispatch(&msg)
	}
}

func (r *Remote) dispatch(msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeResponse:
		var resp protocol.Response
		if err := protocol.Decode(msg, &resp); err != nil {
			r.logger.Warn("Dropping malformed response", "error", err)
			return
		}
		if !r.pending.resolve(resp) {
			r.logger.Debug("Response for unknown request", "requestId", resp.RequestID)
		}
	case protocol.TypeUpdate:
		var u protocol.Update
		if err := protocol.Decode(msg, &u); err != nil {
			r.logger.Warn("Dropping malformed update", "error", err)
			return
		}
		offer(r.updates, u)
	default:
		r.logger.Debug("Ignoring message", "type", msg.Type)
	}
}
