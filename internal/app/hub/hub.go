/*
Package hub is the presence hub of the development server.

This file defines the Hub, the single event loop owning every presence connection.
It handles client registration and deregistration, replaces an older connection of the
same user with a kick (close code 4001), and broadcasts the online roster in join order
to every connection after each change.
*/
package hub

import (
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"hzpresence/internal/pkg/logx"
	"hzpresence/internal/pkg/wire"
)

const (
	// DefaultPongWait is the time allowed between two frames from a client.
	DefaultPongWait = 60 * time.Second

	// sendBuffer is the per-client queue of outbound frames.
	sendBuffer = 32
)

// Options tune the keep-alive of a Hub. Zero values use the defaults.
type Options struct {
	PongWait time.Duration

	// PingPeriod defaults to 9/10 of PongWait.
	PingPeriod time.Duration
}

// Hub tracks who is online. Run must be running for Register to make progress.
type Hub struct {
	// clients maps a user id to its current connection.
	clients map[string]*Client

	// order holds the online user ids in join order.
	order []string

	register   chan *Client
	unregister chan *Client
	refresh    chan *Client

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	pongWait   time.Duration
	pingPeriod time.Duration

	// mu protects clients and order for readers outside the loop.
	mu sync.RWMutex

	logger zerolog.Logger
}

// New returns a Hub. Call Run in its own goroutine.
func New(opts Options) *Hub {
	if opts.PongWait <= 0 {
		opts.PongWait = DefaultPongWait
	}
	if opts.PingPeriod <= 0 || opts.PingPeriod >= opts.PongWait {
		opts.PingPeriod = opts.PongWait * 9 / 10
	}

	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		refresh:    make(chan *Client),
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
		pongWait:   opts.PongWait,
		pingPeriod: opts.PingPeriod,
		logger:     logx.Component("hub"),
	}
}

// Stop terminates Run, which closes every connection with "going away". Done reports when it has.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.logger.Info().Msg("Received stop signal. Stopping hub.")
		close(h.stopChan)
	})
}

// Done is closed when Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Online returns the online user ids in join order.
func (h *Hub) Online() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.order)
}

// Register hands a new connection to the loop. It returns false when the hub is stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.stopChan:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopChan:
	}
}

func (h *Hub) requestRoster(c *Client) {
	select {
	case h.refresh <- c:
	case <-h.stopChan:
	}
}

// Run is the hub's event loop.
func (h *Hub) Run() {
	defer close(h.done)
	defer h.closeAll()

	for {
		select {
		case client := <-h.register:
			h.add(client)
			h.broadcastRoster()

		case client := <-h.unregister:
			if h.remove(client) {
				h.broadcastRoster()
			}

		case client := <-h.refresh:
			h.mu.RLock()
			current := h.clients[client.userID] == client
			h.mu.RUnlock()
			if current {
				h.sendRoster([]*Client{client})
			}

		case <-h.stopChan:
			return
		}
	}
}

// add installs client, kicking an existing connection of the same user first.
func (h *Hub) add(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.clients[client.userID]; ok {
		h.logger.Warn().
			Str("user_id", client.userID).
			Msg("User already connected. Closing old connection for replacement.")

		existing.closeWith(wire.CloseSessionKicked, "Session replaced by new connection.")
		h.order = slices.DeleteFunc(h.order, func(id string) bool { return id == client.userID })
	}

	h.clients[client.userID] = client
	h.order = append(h.order, client.userID)

	h.logger.Info().
		Str("user_id", client.userID).
		Int("total_users", len(h.clients)).
		Msg("User came online.")
}

// remove drops client if it is still the current connection of its user.
func (h *Hub) remove(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	current, ok := h.clients[client.userID]
	if !ok || current != client {
		h.logger.Debug().Str("user_id", client.userID).Msg("Ignoring unregister for stale connection.")
		return false
	}

	delete(h.clients, client.userID)
	h.order = slices.DeleteFunc(h.order, func(id string) bool { return id == client.userID })
	client.closeWith(websocket.CloseNormalClosure, "")

	h.logger.Info().
		Str("user_id", client.userID).
		Int("total_users", len(h.clients)).
		Msg("User went offline.")
	return true
}

// broadcastRoster sends the roster to every client. Clients whose queue is full are dropped,
// and the roster is sent again to the remaining ones.
func (h *Hub) broadcastRoster() {
	for {
		h.mu.RLock()
		targets := make([]*Client, 0, len(h.clients))
		for _, id := range h.order {
			targets = append(targets, h.clients[id])
		}
		h.mu.RUnlock()

		slow := h.sendRoster(targets)
		if len(slow) == 0 {
			return
		}

		dropped := false
		for _, c := range slow {
			h.logger.Warn().Str("user_id", c.userID).Msg("Client send queue full, dropping connection.")
			dropped = h.remove(c) || dropped
		}
		if !dropped {
			return
		}
	}
}

// sendRoster queues the current roster to targets and returns those that could not take it.
func (h *Hub) sendRoster(targets []*Client) []*Client {
	env, err := wire.NewEnvelope(wire.TypeOnlineUsers, wire.OnlineUsersPayload{UserIDs: h.Online()})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to build roster event.")
		return nil
	}
	frame, err := json.Marshal(env)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode roster event.")
		return nil
	}

	var slow []*Client
	for _, c := range targets {
		if !c.enqueue(frame) {
			slow = append(slow, c)
		}
	}
	return slow
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		c.closeWith(websocket.CloseGoingAway, "server shutting down")
		delete(h.clients, id)
	}
	h.order = nil
	h.logger.Info().Msg("Hub stopped.")
}
