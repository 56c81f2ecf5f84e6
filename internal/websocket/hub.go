package websocket

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const sendBufferSize = 256

// Client represents one websocket connection of an authenticated user.
type Client struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Role   string
	Conn   *websocket.Conn
	Send   chan []byte

	mu    sync.Mutex
	rooms map[uuid.UUID]struct{}
}

func NewClient(userID uuid.UUID, role string, conn *websocket.Conn) *Client {
	return &Client{
		ID:     uuid.New(),
		UserID: userID,
		Role:   role,
		Conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
		rooms:  make(map[uuid.UUID]struct{}),
	}
}

// InRoom reports whether the client joined sessionID.
func (c *Client) InRoom(sessionID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.rooms[sessionID]
	return ok
}

func (c *Client) roomIDs() []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(c.rooms))
	for id := range c.rooms {
		ids = append(ids, id)
	}
	return ids
}

// Hub tracks connected clients and the session rooms they joined.
// Delivery is fire-and-forget: a client whose buffer is full misses the
// event and recovers state through the REST reads.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[uuid.UUID]map[*Client]struct{}

	relay Relay
	log   zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[uuid.UUID]map[*Client]struct{}),
		log:     log.With().Str("component", "hub").Logger(),
	}
}

// SetRelay routes every publish through r so that processes sharing the
// relay deliver to their own connections. Call before serving traffic.
func (h *Hub) SetRelay(r Relay) {
	h.relay = r
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// Unregister drops the client from every room and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)

	for _, sessionID := range c.roomIDs() {
		h.removeFromRoomLocked(sessionID, c)
	}
	close(c.Send)
}

func (h *Hub) Join(c *Client, sessionID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}

	room, ok := h.rooms[sessionID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[sessionID] = room
	}
	room[c] = struct{}{}

	c.mu.Lock()
	c.rooms[sessionID] = struct{}{}
	c.mu.Unlock()
}

func (h *Hub) Leave(c *Client, sessionID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoomLocked(sessionID, c)
}

func (h *Hub) removeFromRoomLocked(sessionID uuid.UUID, c *Client) {
	if room, ok := h.rooms[sessionID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, sessionID)
		}
	}

	c.mu.Lock()
	delete(c.rooms, sessionID)
	c.mu.Unlock()
}

// RoomSize returns the number of local connections in a room.
func (h *Hub) RoomSize(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

// ClientCount returns the number of local connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishToRoom sends ev to every participant connected to the session room.
func (h *Hub) PublishToRoom(sessionID uuid.UUID, ev Event) {
	h.publish(Frame{Scope: ScopeRoom, SessionID: sessionID}, ev)
}

// PublishToRoomExcept sends ev to the room, skipping the originating connection.
func (h *Hub) PublishToRoomExcept(sessionID uuid.UUID, ev Event, except *Client) {
	frame := Frame{Scope: ScopeRoom, SessionID: sessionID}
	if except != nil {
		frame.ExcludeClient = except.ID
	}
	h.publish(frame, ev)
}

// PublishToUser sends ev to every connection of userID, joined or not.
func (h *Hub) PublishToUser(userID uuid.UUID, ev Event) {
	h.publish(Frame{Scope: ScopeUser, UserID: userID}, ev)
}

// PublishGlobal sends ev to every connected client.
func (h *Hub) PublishGlobal(ev Event) {
	h.publish(Frame{Scope: ScopeGlobal}, ev)
}

// SendTo writes ev to a single connection.
func (h *Hub) SendTo(c *Client, ev Event) {
	data, err := Encode(ev)
	if err != nil {
		h.log.Error().Err(err).Str("event", string(ev.Type())).Msg("encode event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; ok {
		h.deliverLocked(c, data)
	}
}

func (h *Hub) publish(frame Frame, ev Event) {
	data, err := Encode(ev)
	if err != nil {
		h.log.Error().Err(err).Str("event", string(ev.Type())).Msg("encode event")
		return
	}
	frame.Data = data

	if h.relay != nil {
		err := h.relay.Publish(context.Background(), frame)
		switch {
		case err == nil:
			return
		case errors.Is(err, ErrNotSubscribed):
			h.log.Debug().Str("event", string(ev.Type())).Msg("relay not subscribed, delivering locally")
		default:
			h.log.Warn().Err(err).Str("event", string(ev.Type())).Msg("relay publish failed, delivering locally")
		}
	}
	h.Deliver(frame)
}

// Deliver hands an encoded frame to the matching local connections. The
// relay subscriber calls it for frames from any process.
func (h *Hub) Deliver(frame Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	switch frame.Scope {
	case ScopeGlobal:
		for c := range h.clients {
			h.deliverLocked(c, frame.Data)
		}
	case ScopeUser:
		for c := range h.clients {
			if c.UserID == frame.UserID {
				h.deliverLocked(c, frame.Data)
			}
		}
	case ScopeRoom:
		for c := range h.rooms[frame.SessionID] {
			if c.ID == frame.ExcludeClient {
				continue
			}
			h.deliverLocked(c, frame.Data)
		}
	default:
		h.log.Warn().Str("scope", string(frame.Scope)).Msg("dropping frame with unknown scope")
	}
}

// deliverLocked requires h.mu held; Unregister closes Send under the write lock.
func (h *Hub) deliverLocked(c *Client, data []byte) {
	select {
	case c.Send <- data:
	default:
		h.log.Warn().
			Str("client_id", c.ID.String()).
			Str("user_id", c.UserID.String()).
			Msg("send buffer full, dropping event")
	}
}
