// Package connection owns the realtime transport lifecycle for the sync
// engine: dialing, heartbeat, frame delivery, and teardown. The manager
// holds exactly one logical transport at a time and does not reconnect on
// its own; the surrounding application loop owns retry policy so failure
// handling stays explicit and testable.
package connection

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/apigrid/catalogsync/internal/common/apperrors"
)

// State is the transport lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// String returns the lifecycle state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

const (
	defaultHeartbeatInterval = 25 * time.Second
	defaultPongWait          = 60 * time.Second
	defaultWriteWait         = 10 * time.Second
	defaultDialTimeout       = 15 * time.Second
	maxFrameSize             = 512 * 1024
)

// transportErrorMessage is the error string surfaced to the store on a
// non-clean transport failure.
const transportErrorMessage = "sync connection error"

// FrameHandler receives each inbound text frame. Handlers own decode
// failures; a frame the handler cannot interpret never tears the
// connection down.
type FrameHandler func(frame []byte)

// StatusSink receives connection state and transport errors. The catalog
// store implements this.
type StatusSink interface {
	SetConnected(connected bool)
	SetSyncError(msg string)
}

// Options configures a Manager. Handler is required; zero durations take
// the defaults above.
type Options struct {
	Handler           FrameHandler
	Status            StatusSink
	Header            http.Header // extra headers for the dial handshake, e.g. Authorization
	HeartbeatInterval time.Duration
	PongWait          time.Duration
	WriteWait         time.Duration
	DialTimeout       time.Duration
}

// Manager owns one logical transport to the sync endpoint.
type Manager struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	state  State
	done   chan struct{}
	opts   Options
	logger zerolog.Logger
}

// NewManager creates a manager with the given options.
func NewManager(opts Options) *Manager {
	if opts.HeartbeatInterval == 0 {
		opts.HeartbeatInterval = defaultHeartbeatInterval
	}
	if opts.PongWait == 0 {
		opts.PongWait = defaultPongWait
	}
	if opts.WriteWait == 0 {
		opts.WriteWait = defaultWriteWait
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	return &Manager{
		opts:   opts,
		logger: log.With().Str("component", "sync-connection").Logger(),
	}
}

// Connect dials the sync endpoint and starts the read and heartbeat loops.
// An empty URL fails fast without side effects. Connecting while a
// transport is active returns ErrAlreadyConnected.
func (m *Manager) Connect(ctx context.Context, url string) apperrors.Error {
	if url == "" {
		return ErrEmptyURL
	}

	m.mu.Lock()
	if m.state != StateDisconnected {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}
	m.state = StateConnecting
	m.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: m.opts.DialTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}
	conn, resp, err := dialer.DialContext(ctx, url, m.opts.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		m.mu.Lock()
		m.state = StateDisconnected
		m.mu.Unlock()
		return ErrDialFailed.Err(err)
	}

	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(m.opts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(m.opts.PongWait))
	})

	done := make(chan struct{})
	m.mu.Lock()
	m.conn = conn
	m.state = StateConnected
	m.done = done
	m.mu.Unlock()

	if m.opts.Status != nil {
		m.opts.Status.SetConnected(true)
	}
	m.logger.Info().Str("url", url).Msg("sync connection established")

	go m.readLoop(conn, done)
	go m.heartbeat(conn, done)
	return nil
}

// readLoop delivers inbound text frames to the handler until the transport
// fails or is closed. Teardown always runs exactly once per connection.
func (m *Manager) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		messageType, frame, err := conn.ReadMessage()
		if err != nil {
			clean := websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway)
			if !clean && !isLocalClose(done) {
				m.logger.Warn().Err(err).Msg("sync transport failed")
				if m.opts.Status != nil {
					m.opts.Status.SetSyncError(transportErrorMessage)
				}
			}
			m.teardown(conn, done)
			return
		}
		conn.SetReadDeadline(time.Now().Add(m.opts.PongWait))
		if messageType == websocket.TextMessage && m.opts.Handler != nil {
			m.opts.Handler(frame)
		}
	}
}

// heartbeat pings the server on a ticker. A failed ping is only logged;
// the read deadline expiring surfaces the failure through the read loop.
func (m *Manager) heartbeat(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(m.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(m.opts.WriteWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				m.logger.Warn().Err(err).Msg("failed to send heartbeat ping")
				return
			}
		}
	}
}

// isLocalClose reports whether the connection was closed by Close rather
// than by the peer or a transport failure.
func isLocalClose(done chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}

// signalDone closes done exactly once. The check and the close are atomic
// under the manager lock so a peer-driven teardown racing a local Close
// cannot both take the close path.
func (m *Manager) signalDone(done chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-done:
	default:
		close(done)
	}
}

// teardown moves the manager to disconnected and releases the transport.
// Safe to call from both the read loop and Close.
func (m *Manager) teardown(conn *websocket.Conn, done chan struct{}) {
	conn.Close()

	m.mu.Lock()
	if m.conn == conn {
		m.conn = nil
		m.state = StateDisconnected
	}
	m.mu.Unlock()

	if m.opts.Status != nil {
		m.opts.Status.SetConnected(false)
	}
	m.logger.Info().Msg("sync connection closed")

	// Closed last so Done observers see the final state and status.
	m.signalDone(done)
}

// Close shuts the active transport down cleanly. A no-op when disconnected.
func (m *Manager) Close() {
	m.mu.Lock()
	conn := m.conn
	done := m.done
	m.mu.Unlock()
	if conn == nil {
		return
	}

	// Signal local close before the write so the read loop does not report
	// a transport error for our own shutdown.
	m.signalDone(done)
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(m.opts.WriteWait))
	conn.Close()
}

// IsConnected reports whether a transport is currently established.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateConnected
}

// ConnState returns the current lifecycle state.
func (m *Manager) ConnState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Done returns a channel closed when the current transport ends. Before the
// first Connect it returns a closed channel.
func (m *Manager) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return m.done
}
