/*
Package presence maintains the single live connection a session uses to learn which users are online.

A Channel moves through Disconnected → Connecting → Connected → Disconnected. It opens at most
one connection at a time, keyed by the connecting user's ID, and keeps the most recent roster
pushed by the server. Every connection attempt is a link; goroutines of a superseded link
never touch the channel's state or roster.
*/
package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"hzpresence/internal/app/user"
	"hzpresence/internal/pkg/errs"
	"hzpresence/internal/pkg/logx"
	"hzpresence/internal/pkg/wire"
)

const (
	// timeout for writing control frames (pong, close).
	writeWait = 10 * time.Second

	// time allowed between two frames from the server before the connection is considered dead.
	// The server pings every 9/10 of this.
	DefaultPongWait = 60 * time.Second

	// DefaultHandshakeTimeout bounds the websocket handshake.
	DefaultHandshakeTimeout = 10 * time.Second

	// closeGrace bounds the close frame written on Disconnect.
	closeGrace = time.Second
)

// State is the connection state of a Channel.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config configures a Channel. Only URL is required.
type Config struct {
	// URL is the ws:// or wss:// endpoint of the presence server.
	URL string

	// Dialer opens connections. Nil uses a copy of websocket.DefaultDialer.
	Dialer *websocket.Dialer

	HandshakeTimeout time.Duration
	PongWait         time.Duration

	// Reconnect decides retries after failures. Nil means NoReconnect.
	Reconnect ReconnectStrategy

	// OnRoster is called with a copy of every new roster. Optional.
	OnRoster func(userIDs []string)

	// OnState is called on every state change. Optional.
	OnState func(state State, userID string)

	// OnError is called when the server ends the connection for good, such as
	// errs.ErrSessionKicked when the same user signs in elsewhere. Optional.
	OnError func(err *errs.CustomError)
}

// Channel is the presence connection of one session. It is safe for concurrent use.
type Channel struct {
	url              *url.URL
	dialer           *websocket.Dialer
	handshakeTimeout time.Duration
	pongWait         time.Duration
	strategy         ReconnectStrategy
	onRoster         func([]string)
	onState          func(State, string)
	onError          func(*errs.CustomError)

	// mu protects state, current and roster.
	mu      sync.Mutex
	state   State
	current *link
	roster  []string

	logger zerolog.Logger
}

// link is one connection attempt for one identity, including its retries.
type link struct {
	userID string
	ctx    context.Context
	cancel context.CancelFunc

	// conn is the open connection, guarded by Channel.mu.
	conn *websocket.Conn
}

// NewChannel validates cfg and returns a disconnected Channel.
func NewChannel(cfg Config) (*Channel, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("presence: parse url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("presence: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("presence: url has no host")
	}

	dialer := cfg.Dialer
	if dialer == nil {
		d := *websocket.DefaultDialer
		dialer = &d
	}

	c := &Channel{
		url:              u,
		dialer:           dialer,
		handshakeTimeout: cfg.HandshakeTimeout,
		pongWait:         cfg.PongWait,
		strategy:         cfg.Reconnect,
		onRoster:         cfg.OnRoster,
		onState:          cfg.OnState,
		onError:          cfg.OnError,
		roster:           []string{},
		logger:           logx.Component("presence"),
	}
	if c.handshakeTimeout <= 0 {
		c.handshakeTimeout = DefaultHandshakeTimeout
	}
	if c.pongWait <= 0 {
		c.pongWait = DefaultPongWait
	}
	if c.strategy == nil {
		c.strategy = NoReconnect{}
	}
	return c, nil
}

// Connect opens a connection for u unless one for the same identity is already
// connecting or connected. A connection for a different identity is closed first.
// A nil user or a user without ID is ignored. Connect does not wait for the handshake.
func (c *Channel) Connect(u *user.User) {
	if !u.Valid() {
		c.logger.Debug().Msg("Connect ignored: no user identity.")
		return
	}

	c.mu.Lock()
	var stale *websocket.Conn
	switched := false
	if l := c.current; l != nil {
		if l.userID == u.ID {
			state := c.state
			c.mu.Unlock()
			c.logger.Debug().Str("user_id", u.ID).Stringer("state", state).Msg("Connect ignored: already active for this user.")
			return
		}

		c.logger.Info().
			Str("previous_user_id", l.userID).
			Str("user_id", u.ID).
			Msg("Identity switch: closing existing presence connection first.")
		stale = c.detachLocked(l)
		c.roster = []string{}
		switched = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &link{userID: u.ID, ctx: ctx, cancel: cancel}
	c.current = l
	c.state = StateConnecting
	c.mu.Unlock()

	if stale != nil {
		closeConn(stale, "identity switch")
	}
	if switched {
		c.emitRoster([]string{})
	}
	c.emitState(StateConnecting, u.ID)

	go c.run(l)
}

// Disconnect closes the connection, if any, and clears the roster.
// It is safe to call when already disconnected.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	l := c.current
	c.roster = []string{}
	if l == nil {
		c.mu.Unlock()
		return
	}

	conn := c.detachLocked(l)
	c.state = StateDisconnected
	c.mu.Unlock()

	if conn != nil {
		closeConn(conn, "logout")
	}
	c.logger.Info().Str("user_id", l.userID).Msg("Presence connection closed.")
	c.emitState(StateDisconnected, l.userID)
	c.emitRoster([]string{})
}

// detachLocked cancels l and makes it non-current. It returns the connection to close
// once the lock is released.
func (c *Channel) detachLocked(l *link) *websocket.Conn {
	l.cancel()
	conn := l.conn
	l.conn = nil
	if c.current == l {
		c.current = nil
	}
	return conn
}

// Roster returns a copy of the most recent online user ids.
func (c *Channel) Roster() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.roster...)
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether a connection is open.
func (c *Channel) Connected() bool {
	return c.State() == StateConnected
}

// UserID returns the identity of the active or pending connection, or "".
func (c *Channel) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ""
	}
	return c.current.userID
}

// run dials, reads until the connection ends, and retries while the strategy allows.
func (c *Channel) run(l *link) {
	logger := c.logger.With().Str("user_id", l.userID).Logger()
	attempt := 0

	for {
		conn, err := c.dial(l)
		if err != nil {
			if l.ctx.Err() != nil {
				return
			}
			logger.Warn().Err(err).Int("attempt", attempt).Msg("Presence connection failed.")
			if !c.awaitRetry(l, &attempt) {
				return
			}
			continue
		}

		if !c.attach(l, conn) {
			conn.Close()
			return
		}
		attempt = 0
		logger.Info().Msg("Presence connection established.")

		code, readErr := c.readLoop(l, conn)
		conn.Close()

		if l.ctx.Err() != nil {
			return
		}

		if code == wire.CloseSessionKicked {
			logger.Warn().Int("close_code", code).Msg("Presence connection replaced by another session. Not reconnecting.")
			c.finish(l)
			c.emitError(errs.NewError(errs.ErrSessionKicked))
			return
		}

		logger.Warn().Err(readErr).Int("close_code", code).Msg("Presence connection dropped.")
		if !c.awaitRetry(l, &attempt) {
			return
		}
	}
}

func (c *Channel) dial(l *link) (*websocket.Conn, error) {
	target := *c.url
	q := target.Query()
	q.Set(wire.UserIDParam, l.userID)
	target.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(l.ctx, c.handshakeTimeout)
	defer cancel()

	conn, resp, err := c.dialer.DialContext(ctx, target.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("handshake rejected with HTTP %d: %w", resp.StatusCode, err)
		}
		return nil, err
	}
	return conn, nil
}

// attach records conn on l and marks the channel connected, unless l was superseded.
func (c *Channel) attach(l *link, conn *websocket.Conn) bool {
	c.mu.Lock()
	if c.current != l || l.ctx.Err() != nil {
		c.mu.Unlock()
		return false
	}
	l.conn = conn
	c.state = StateConnected
	c.mu.Unlock()

	c.emitState(StateConnected, l.userID)
	return true
}

// finish retires l after a terminal failure. The last roster stays readable.
func (c *Channel) finish(l *link) {
	c.mu.Lock()
	if c.current != l {
		c.mu.Unlock()
		return
	}
	c.detachLocked(l)
	c.state = StateDisconnected
	c.mu.Unlock()

	c.emitState(StateDisconnected, l.userID)
}

// awaitRetry asks the strategy for the next attempt and sleeps until it is due.
// It returns false when the link should stop.
func (c *Channel) awaitRetry(l *link, attempt *int) bool {
	*attempt++
	delay, ok := c.strategy.NextDelay(*attempt)
	if !ok {
		c.finish(l)
		return false
	}

	c.mu.Lock()
	if c.current != l {
		c.mu.Unlock()
		return false
	}
	l.conn = nil
	changed := c.state != StateConnecting
	c.state = StateConnecting
	c.mu.Unlock()

	if changed {
		c.emitState(StateConnecting, l.userID)
	}

	c.logger.Info().Str("user_id", l.userID).Int("attempt", *attempt).Dur("delay", delay).Msg("Scheduling presence reconnect.")

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-l.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// readLoop handles inbound frames until the connection fails. It returns the close code
// sent by the server, or 0 when the connection ended without one.
func (c *Channel) readLoop(l *link, conn *websocket.Conn) (int, error) {
	conn.SetReadLimit(wire.MaxMessageSize)

	if err := conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
		return 0, err
	}

	conn.SetPingHandler(func(appData string) error {
		if err := conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
			return err
		}
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil
		}
		return err
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return closeErr.Code, err
			}
			return 0, err
		}

		if err := conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
			return 0, err
		}

		c.handleFrame(l, data)
	}
}

// handleFrame dispatches one server event. Only the roster event changes state.
func (c *Channel) handleFrame(l *link, data []byte) {
	var env wire.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn().Err(err).Int("bytes", len(data)).Msg("Server sent invalid JSON frame.")
		return
	}
	if err := env.Validate(); err != nil {
		c.logger.Warn().Err(err).Msg("Server sent invalid envelope.")
		return
	}

	switch env.Type {
	case wire.TypeOnlineUsers:
		ids, err := wire.DecodeOnlineUsers(env)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Server sent malformed roster. Keeping previous roster.")
			return
		}
		c.replaceRoster(l, ids)

	case wire.TypeError:
		var p wire.ErrorPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			c.logger.Warn().Err(err).Msg("Server sent an error event with a malformed payload.")
			return
		}
		c.logger.Warn().Int("code", p.Code).Str("message", p.Message).Msg("Server reported an error on the presence channel.")

	default:
		c.logger.Debug().Str("msg_type", string(env.Type)).Msg("Ignoring unsupported presence event.")
	}
}

// replaceRoster installs ids as the whole roster if l is still current.
func (c *Channel) replaceRoster(l *link, ids []string) {
	roster := append([]string{}, ids...)

	c.mu.Lock()
	if c.current != l {
		c.mu.Unlock()
		return
	}
	c.roster = roster
	c.mu.Unlock()

	c.logger.Debug().Int("online", len(roster)).Msg("Roster replaced.")
	c.emitRoster(append([]string{}, roster...))
}

func (c *Channel) emitState(s State, userID string) {
	if c.onState != nil {
		c.onState(s, userID)
	}
}

func (c *Channel) emitError(err *errs.CustomError) {
	if c.onError != nil {
		c.onError(err)
	}
}

func (c *Channel) emitRoster(ids []string) {
	if c.onRoster != nil {
		c.onRoster(ids)
	}
}

// closeConn sends a best-effort close frame and closes conn. Errors are ignored:
// the caller is leaving regardless.
func closeConn(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
	_ = conn.Close()
}
