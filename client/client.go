// Package client maintains the realtime session with the Academy server:
// one WebSocket connection, authenticated via a query-string token, with a
// liveness heartbeat and bounded reconnection. Every inbound frame is
// classified by kind and republished through the embedded event dispatcher;
// acknowledged operations (starting and cancelling interactions) go over
// the HTTP side-channel instead.
package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lumen-academy/realtime-go/config"
	"github.com/lumen-academy/realtime-go/events"
	"github.com/lumen-academy/realtime-go/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong (or any frame) from the peer.
	pongWait = 60 * time.Second

	// Send pings with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 32768 // 32KB
)

var (
	// ErrNoToken is returned by Connect when no usable credential is stored.
	ErrNoToken = errors.New("no authentication token available")

	// ErrNotConnected is returned by interaction requests, which require a
	// live session. Plain sends never return it; they drop instead.
	ErrNotConnected = errors.New("transport not open")
)

// TokenSource supplies the session credential. Clear is called when the
// server closes the connection with the authentication-failure code, so the
// host can detect that re-authentication is needed.
type TokenSource interface {
	Token() string
	Clear()
}

// Manager owns the realtime session. The host application constructs
// exactly one per logical session and is responsible for its lifetime;
// the connect guard enforces at most one live transport at any time.
//
// Subscribers register through the embedded Dispatcher:
//
//	m.On(events.TopicChat, func(data any) { ... })
type Manager struct {
	*events.Dispatcher

	cfg    config.Config
	tokens TokenSource
	httpc  *http.Client
	logger *slog.Logger

	mu                sync.Mutex
	conn              *websocket.Conn
	open              bool
	connecting        bool
	closing           bool // Disconnect requested; suppress reconnection
	reconnectAttempts int
	seq               uint64
	heartbeatStop     chan struct{}

	writeMu sync.Mutex // serializes writes to the transport
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l.With("component", "realtime") }
}

// WithHTTPClient sets the client used for the interaction side-channel.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.httpc = c }
}

// New creates a session manager. It does not dial; call Connect.
func New(cfg config.Config, tokens TokenSource, opts ...Option) *Manager {
	m := &Manager{
		Dispatcher: events.NewDispatcher(),
		cfg:        cfg,
		tokens:     tokens,
		httpc:      http.DefaultClient,
		logger:     slog.Default().With("component", "realtime"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connected reports whether the transport is open.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// Connect opens the transport. It is idempotent: while a connection attempt
// is in flight or the transport is already open it does nothing. It fails
// fast with ErrNoToken when no credential is available. On success it emits
// "connected" followed by "request_online_users" so presence subscribers
// can resynchronize.
func (m *Manager) Connect() error {
	m.mu.Lock()
	if m.connecting || m.open {
		m.mu.Unlock()
		return nil
	}
	// Discard any stale handle from a previous session before dialing.
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.connecting = true
	m.closing = false
	m.mu.Unlock()

	token := m.tokens.Token()
	if token == "" {
		m.setConnecting(false)
		return ErrNoToken
	}

	wsURL, err := m.wsURL(token)
	if err != nil {
		m.setConnecting(false)
		return fmt.Errorf("build transport url: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		m.setConnecting(false)
		m.logger.Warn("dial failed", "error", err)
		m.Emit(events.TopicError, err)
		m.Emit(events.TopicDisconnect, err)
		m.scheduleReconnect()
		return fmt.Errorf("dial: %w", err)
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	m.mu.Lock()
	m.conn = conn
	m.open = true
	m.connecting = false
	m.reconnectAttempts = 0
	m.heartbeatStop = make(chan struct{})
	stop := m.heartbeatStop
	m.mu.Unlock()

	go m.readLoop(conn)
	go m.heartbeat(conn, stop)

	m.logger.Info("connected", "url", m.cfg.ServerURL)
	m.Emit(events.TopicConnected, nil)
	m.Emit(events.TopicRequestOnlineUsers, nil)
	return nil
}

// SendMessage writes a chat envelope with the next sequence number. When
// the transport is not open the message is dropped with a log line; callers
// react to the "connected"/"disconnect" events rather than send errors.
// Holding writeMu across both the sequence assignment and the write keeps
// concurrent senders from putting sequence numbers on the wire out of order.
func (m *Manager) SendMessage(content string) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	if !m.open {
		m.mu.Unlock()
		m.logger.Warn("chat send dropped: transport not open")
		return
	}
	conn := m.conn
	m.seq++
	env := protocol.NewChat(content, m.seq)
	m.mu.Unlock()

	if err := writeEnvelope(conn, env); err != nil {
		m.logger.Error("chat send failed", "error", err)
	}
}

// Disconnect stops the heartbeat and closes the transport without entering
// the reconnection path. Safe to call when already disconnected.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.closing = true
	m.connecting = false
	m.stopHeartbeatLocked()
	conn := m.conn
	m.conn = nil
	m.open = false
	m.mu.Unlock()

	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		conn.Close()
	}
}

// Close fully tears the session down: Disconnect plus dropping every
// dispatcher subscription. Used between logical sessions, e.g. on logout.
func (m *Manager) Close() {
	m.Disconnect()
	m.RemoveAll()
}

// readLoop processes frames in arrival order until the transport dies.
func (m *Manager) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.handleClose(conn, err)
			return
		}
		// Any inbound traffic counts as liveness.
		conn.SetReadDeadline(time.Now().Add(pongWait))

		env, derr := protocol.Decode(data)
		if derr != nil {
			m.logger.Error("dropping malformed frame", "error", derr)
			continue
		}
		m.dispatch(env)
	}
}

// dispatch republishes a parsed frame on the topic named after its kind,
// plus the generic "message" topic for content-bearing kinds.
func (m *Manager) dispatch(env *protocol.Envelope) {
	if !env.Type.Valid() {
		m.logger.Warn("dropping frame of unknown kind", "kind", env.Type)
		return
	}
	m.Emit(events.Topic(env.Type), env)
	if env.Type.Content() {
		m.Emit(events.TopicMessage, env)
	}
}

// handleClose classifies a dead transport: authentication failure is
// terminal, a deliberate Disconnect is silent, anything else retries up to
// the attempt budget with linear backoff.
func (m *Manager) handleClose(conn *websocket.Conn, err error) {
	m.mu.Lock()
	if m.conn != conn {
		// A newer transport already replaced this one.
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.open = false
	m.stopHeartbeatLocked()
	closing := m.closing
	m.mu.Unlock()
	conn.Close()

	if closing {
		return
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && closeErr.Code == protocol.CloseAuthFailure {
		m.logger.Error("authentication rejected, not reconnecting", "code", closeErr.Code)
		m.tokens.Clear()
		m.Emit(events.TopicAuthFailed, err)
		m.Emit(events.TopicDisconnect, err)
		return
	}

	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
		m.logger.Warn("connection lost", "error", err)
	}
	m.Emit(events.TopicDisconnect, err)
	m.scheduleReconnect()
}

// scheduleReconnect arms the next reconnection attempt, waiting
// attempt * ReconnectBaseDelay. Past the budget it stops silently; the
// caller has already observed the repeated "disconnect" emissions.
func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	if m.closing || m.reconnectAttempts >= m.cfg.MaxReconnectAttempts {
		m.mu.Unlock()
		return
	}
	m.reconnectAttempts++
	attempt := m.reconnectAttempts
	m.mu.Unlock()

	delay := time.Duration(attempt) * m.cfg.ReconnectBaseDelay
	m.logger.Info("reconnecting", "attempt", attempt, "max", m.cfg.MaxReconnectAttempts, "delay", delay)

	time.AfterFunc(delay, func() {
		m.mu.Lock()
		closing := m.closing
		m.mu.Unlock()
		if closing {
			return
		}
		if err := m.Connect(); err != nil && !errors.Is(err, ErrNoToken) {
			m.logger.Warn("reconnect failed", "attempt", attempt, "error", err)
		}
	})
}

// heartbeat sends the liveness envelope on a fixed interval and transport
// pings often enough to keep the read deadline satisfied. It exits when the
// session that started it ends.
func (m *Manager) heartbeat(conn *websocket.Conn, stop chan struct{}) {
	beat := time.NewTicker(m.cfg.HeartbeatInterval)
	ping := time.NewTicker(pingPeriod)
	defer beat.Stop()
	defer ping.Stop()

	for {
		select {
		case <-stop:
			return
		case <-beat.C:
			if err := m.write(conn, protocol.NewHeartbeat()); err != nil {
				m.logger.Error("heartbeat send failed", "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (m *Manager) write(conn *websocket.Conn, env *protocol.Envelope) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return writeEnvelope(conn, env)
}

// writeEnvelope requires writeMu to be held.
func writeEnvelope(conn *websocket.Conn, env *protocol.Envelope) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(env)
}

func (m *Manager) stopHeartbeatLocked() {
	if m.heartbeatStop != nil {
		close(m.heartbeatStop)
		m.heartbeatStop = nil
	}
}

func (m *Manager) setConnecting(v bool) {
	m.mu.Lock()
	m.connecting = v
	m.mu.Unlock()
}

// wsURL derives the transport URL from the configured API origin: the
// scheme maps to its realtime equivalent and the token rides as a query
// credential, e.g. wss://host/ws?token=...
func (m *Manager) wsURL(token string) (string, error) {
	u, err := url.Parse(m.cfg.ServerURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// already a realtime origin
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
