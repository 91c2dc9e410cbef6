/*
Package hub is the presence hub of the development server.

This file defines the Client struct, one presence connection. Its ReadPump keeps the read
deadline alive and answers roster requests. Its WritePump delivers queued frames, pings
on a fixed period, and writes the close frame chosen by the Hub.
*/
package hub

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"hzpresence/internal/pkg/logx"
	"hzpresence/internal/pkg/wire"
)

// timeout duration for writing to the WebSocket connection.
const writeWait = 10 * time.Second

// Client is one presence connection of one user.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string

	// send queues outbound frames. Only the hub loop sends on it and closes it.
	send chan []byte

	// set by the hub loop before send is closed.
	closed      bool
	closeCode   int
	closeReason string

	logger zerolog.Logger
}

// NewClient constructs and returns a new Client instance.
func NewClient(h *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    h,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBuffer),
		logger: logx.Component("hub").With().Str("user_id", userID).Logger(),
	}
}

// UserID returns the user the connection belongs to.
func (c *Client) UserID() string {
	return c.userID
}

// Serve registers c and runs both pumps until the connection ends.
func (c *Client) Serve() {
	if !c.hub.Register(c) {
		c.logger.Info().Msg("Hub stopped. Rejecting presence connection.")
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = c.conn.Close()
		return
	}

	go c.WritePump()
	c.ReadPump()
}

// enqueue hands frame to the write pump without blocking. Hub loop only.
func (c *Client) enqueue(frame []byte) bool {
	if c.closed {
		return true
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// closeWith makes the write pump close the connection with code. Hub loop only.
func (c *Client) closeWith(code int, reason string) {
	if c.closed {
		return
	}
	c.closed = true
	c.closeCode = code
	c.closeReason = reason
	close(c.send)
}

// ReadPump handles reading frames from the WebSocket connection until it fails,
// then unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.leave(c)
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close error in ReadPump")
		}
	}()

	c.conn.SetReadLimit(wire.MaxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Presence connection lost")
			}
			return
		}

		c.processInbound(data)
	}
}

// processInbound answers roster requests. Anything else is ignored.
func (c *Client) processInbound(data []byte) {
	var env wire.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn().Err(err).Int("bytes", len(data)).Msg("Client sent invalid JSON")
		return
	}

	switch env.Type {
	case wire.TypeOnlineUsers:
		c.hub.requestRoster(c)
	default:
		c.logger.Debug().Str("msg_type", string(env.Type)).Msg("Client sent unsupported message type")
	}
}

// WritePump writes queued frames and pings until the hub closes the queue or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.hub.pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				c.writeClose()
				return
			}
			if err := c.write(websocket.TextMessage, frame); err != nil {
				c.logger.Warn().Err(err).Msg("Error writing frame")
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.logger.Warn().Err(err).Msg("Error writing ping")
				return
			}
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

func (c *Client) writeClose() {
	if c.closeCode == wire.CloseSessionKicked {
		c.logger.Warn().
			Int("close_code", c.closeCode).
			Str("reason", c.closeReason).
			Msg("Kicking replaced presence connection.")
	}

	err := c.write(websocket.CloseMessage, websocket.FormatCloseMessage(c.closeCode, c.closeReason))
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		c.logger.Debug().Err(err).Msg("Error writing close frame")
	}
}
