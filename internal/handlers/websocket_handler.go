package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/preetsinghmakkar/PeerConnect/internal/apperrors"
	"github.com/preetsinghmakkar/PeerConnect/internal/middlewares"
	ws "github.com/preetsinghmakkar/PeerConnect/internal/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 64 * 1024
	joinTimeout    = 5 * time.Second
)

// SessionAuthorizer decides whether a user may follow a session room.
type SessionAuthorizer interface {
	Authorize(ctx context.Context, sessionID, userID uuid.UUID) error
}

type WebSocketHandler struct {
	hub      *ws.Hub
	sessions SessionAuthorizer
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWebSocketHandler(hub *ws.Hub, sessions SessionAuthorizer, allowedOrigins []string, log zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log.With().Str("component", "ws").Logger(),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, "*") {
			return true
		}
		return slices.Contains(allowed, origin)
	}
}

// HandleWebSocket upgrades the connection and registers the client with the hub.
// MUST be protected by WebSocketAuthMiddleware.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	identity, ok := middlewares.GetIdentity(c)
	if !ok {
		respondError(c, apperrors.New(apperrors.KindUnauthorized, "authentication required"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("user_id", identity.UserID.String()).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(identity.UserID, string(identity.Role), conn)
	h.hub.Register(client)

	h.log.Debug().
		Str("user_id", identity.UserID.String()).
		Str("client_id", client.ID.String()).
		Msg("client connected")

	go h.writePump(client)
	go h.readPump(client)
}

// readPump reads frames from the connection until it closes.
func (h *WebSocketHandler) readPump(client *ws.Client) {
	defer func() {
		h.hub.Unregister(client)
		_ = client.Conn.Close()
		h.log.Debug().Str("client_id", client.ID.String()).Msg("client disconnected")
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	_ = client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn().Err(err).Str("client_id", client.ID.String()).Msg("unexpected close")
			}
			return
		}

		var msg ws.WebSocketMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.hub.SendTo(client, ws.ErrorEvent{Message: "malformed message"})
			continue
		}

		h.handleMessage(client, msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *ws.Client, msg ws.WebSocketMessage) {
	switch msg.Type {
	case ws.InboundJoinSession:
		h.handleJoin(client, msg.Payload)

	case ws.InboundLeaveSession:
		var p ws.SessionPayload
		if err := ws.DecodePayload(msg.Payload, &p); err != nil {
			h.hub.SendTo(client, ws.ErrorEvent{Message: "sessionId is required"})
			return
		}
		sessionID := uuid.MustParse(p.SessionID)
		h.hub.Leave(client, sessionID)
		h.hub.SendTo(client, ws.LeftSession{SessionID: sessionID})

	case ws.InboundTyping, ws.InboundStopTyping:
		h.handleTyping(client, msg.Type, msg.Payload)

	case ws.InboundPing:
		h.hub.SendTo(client, ws.Pong{})

	default:
		h.hub.SendTo(client, ws.ErrorEvent{Message: "unknown message type " + msg.Type})
	}
}

func (h *WebSocketHandler) handleJoin(client *ws.Client, payload json.RawMessage) {
	var p ws.SessionPayload
	if err := ws.DecodePayload(payload, &p); err != nil {
		h.hub.SendTo(client, ws.ErrorEvent{Message: "sessionId is required"})
		return
	}
	sessionID := uuid.MustParse(p.SessionID)

	ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
	defer cancel()

	if err := h.sessions.Authorize(ctx, sessionID, client.UserID); err != nil {
		h.log.Debug().
			Err(err).
			Str("session_id", sessionID.String()).
			Str("user_id", client.UserID.String()).
			Msg("join rejected")
		h.hub.SendTo(client, ws.ErrorEvent{Message: apperrors.MessageOf(err)})
		return
	}

	h.hub.Join(client, sessionID)
	h.hub.SendTo(client, ws.JoinedSession{SessionID: sessionID})
}

// handleTyping relays typing signals to the rest of the room. The relayed
// user id is always the authenticated one.
func (h *WebSocketHandler) handleTyping(client *ws.Client, kind string, payload json.RawMessage) {
	var p ws.TypingPayload
	if err := ws.DecodePayload(payload, &p); err != nil {
		h.hub.SendTo(client, ws.ErrorEvent{Message: "sessionId is required"})
		return
	}
	sessionID := uuid.MustParse(p.SessionID)

	if !client.InRoom(sessionID) {
		h.hub.SendTo(client, ws.ErrorEvent{Message: ws.ErrNotInRoom.Error()})
		return
	}

	var ev ws.Event = ws.UserTyping{SessionID: sessionID, UserID: client.UserID}
	if kind == ws.InboundStopTyping {
		ev = ws.UserStopTyping{SessionID: sessionID, UserID: client.UserID}
	}
	h.hub.PublishToRoomExcept(sessionID, ev, client)
}

// writePump drains the client's send buffer and keeps the connection alive.
func (h *WebSocketHandler) writePump(client *ws.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.Conn.Close()
	}()

	for {
		select {
		case data, ok := <-client.Send:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.log.Debug().Err(err).Str("client_id", client.ID.String()).Msg("write failed")
				return
			}

		case <-ticker.C:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
