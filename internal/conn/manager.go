// Package conn owns the single bidirectional chat socket to the agent
// backend.
package conn

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/soyeahso/agentchat/internal/logging"
	"github.com/soyeahso/agentchat/internal/version"
)

var (
	ErrNotConnected = errors.New("connection is not open")
	ErrClosed       = errors.New("connection closed while connecting")
)

// State is the lifecycle state of the current handle.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// FrameHandler receives inbound text frames in arrival order.
type FrameHandler func(frame string)

// DropHandler is called once when an open handle closes without Close being
// called.
type DropHandler func(handleID string, err error)

// handle is one socket instance. A Manager replaces handles, it never reuses
// them.
type handle struct {
	id     string
	ws     *websocket.Conn
	cancel context.CancelFunc

	writeMu sync.Mutex
}

func (h *handle) shutdown() {
	h.cancel()
	if h.ws == nil {
		return
	}
	h.writeMu.Lock()
	h.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	h.writeMu.Unlock()
	h.ws.Close()
}

// Option configures a Manager.
type Option func(*Manager)

// WithHandshakeTimeout bounds the websocket opening handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.dialer.HandshakeTimeout = d
		}
	}
}

// WithOnDrop registers the unexpected-close callback.
func WithOnDrop(fn DropHandler) Option {
	return func(m *Manager) {
		m.onDrop = fn
	}
}

// Manager holds at most one live handle. Reconnection is only ever explicit.
type Manager struct {
	url    string
	dialer websocket.Dialer
	header http.Header
	log    *logging.Logger

	mu      sync.Mutex
	state   State
	current *handle
	handler FrameHandler
	onDrop  DropHandler
	healthy bool
}

// New creates a manager for the socket at url. Nothing is dialed yet.
func New(url string, log *logging.Logger, opts ...Option) *Manager {
	m := &Manager{
		url: url,
		dialer: websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		header: http.Header{"User-Agent": {version.UserAgent()}},
		log:    log.Sub("conn"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect dials a new handle unless one is already open or connecting, in
// which case it does nothing. If Close runs while the dial is in progress
// the dialed socket is discarded and ErrClosed is returned.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateClosed {
		state := m.state
		m.mu.Unlock()
		m.log.Debug().Str("state", state.String()).Msg("connect ignored, handle already present")
		return nil
	}
	dialCtx, cancel := context.WithCancel(ctx)
	h := &handle{id: uuid.New().String(), cancel: cancel}
	m.current = h
	m.state = StateConnecting
	m.mu.Unlock()

	m.log.Debug().Str("handle", h.id).Str("url", m.url).Msg("dialing")
	ws, _, err := m.dialer.DialContext(dialCtx, m.url, m.header)

	m.mu.Lock()
	if m.current != h {
		m.mu.Unlock()
		cancel()
		if ws != nil {
			ws.Close()
		}
		return ErrClosed
	}
	if err != nil {
		m.current = nil
		m.state = StateClosed
		m.healthy = false
		m.mu.Unlock()
		cancel()
		m.log.Warn().Err(err).Str("handle", h.id).Msg("dial failed")
		return fmt.Errorf("connecting to %s: %w", m.url, err)
	}
	h.ws = ws
	m.state = StateOpen
	m.healthy = true
	m.mu.Unlock()

	m.log.Info().Str("handle", h.id).Msg("connection open")
	go m.readLoop(h)
	return nil
}

// Send writes payload as one JSON text frame on the open handle.
func (m *Manager) Send(payload any) error {
	m.mu.Lock()
	h := m.current
	open := m.state == StateOpen
	m.mu.Unlock()
	if !open || h == nil {
		return ErrNotConnected
	}

	h.writeMu.Lock()
	err := h.ws.WriteJSON(payload)
	h.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("sending frame: %w", err)
	}
	return nil
}

// Close closes the current handle, if any, and detaches the frame handler.
// It is safe to call repeatedly.
func (m *Manager) Close() error {
	m.mu.Lock()
	h := m.current
	m.current = nil
	m.state = StateClosed
	m.healthy = false
	m.handler = nil
	m.mu.Unlock()

	if h == nil {
		return nil
	}
	h.shutdown()
	m.log.Debug().Str("handle", h.id).Msg("connection closed")
	return nil
}

// SetHandler replaces the frame handler.
func (m *Manager) SetHandler(fn FrameHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = fn
}

// ClearHandler detaches the frame handler. Frames arriving without a handler
// are dropped.
func (m *Manager) ClearHandler() {
	m.SetHandler(nil)
}

// OnDrop replaces the unexpected-close callback.
func (m *Manager) OnDrop(fn DropHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDrop = fn
}

// Healthy reports whether the last connection attempt succeeded and the
// handle has neither dropped nor been closed since.
func (m *Manager) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy
}

// State returns the state of the current handle.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// HandleID identifies the current handle, or "" when there is none.
func (m *Manager) HandleID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	return m.current.id
}

func (m *Manager) readLoop(h *handle) {
	for {
		msgType, msg, err := h.ws.ReadMessage()
		if err != nil {
			m.dropped(h, err)
			return
		}

		m.mu.Lock()
		if m.current != h {
			m.mu.Unlock()
			return
		}
		fn := m.handler
		m.mu.Unlock()

		if msgType != websocket.TextMessage {
			m.log.Debug().Int("type", msgType).Msg("ignoring non-text frame")
			continue
		}
		if fn == nil {
			m.log.Trace().Str("handle", h.id).Msg("frame dropped, no handler")
			continue
		}
		fn(string(msg))
	}
}

// dropped handles a read failure. Failures on a handle that was already
// replaced or closed on purpose are silent.
func (m *Manager) dropped(h *handle, err error) {
	m.mu.Lock()
	if m.current != h {
		m.mu.Unlock()
		return
	}
	m.current = nil
	m.state = StateClosed
	m.healthy = false
	onDrop := m.onDrop
	m.mu.Unlock()

	h.cancel()
	h.ws.Close()
	m.log.Warn().Err(err).Str("handle", h.id).Msg("connection lost")
	if onDrop != nil {
		onDrop(h.id, err)
	}
}
