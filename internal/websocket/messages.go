package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/preetsinghmakkar/PeerConnect/internal/models"
)

// EventType names a server-to-client event.
type EventType string

const (
	EventReceiveMessage      EventType = "receive-message"
	EventUserTyping          EventType = "user-typing"
	EventUserStopTyping      EventType = "user-stop-typing"
	EventMentorRatingUpdated EventType = "mentor-rating-updated"
	EventSessionRequested    EventType = "session-requested"
	EventSessionAccepted     EventType = "session-accepted"
	EventSessionCancelled    EventType = "session-cancelled"
	EventSessionEnded        EventType = "session-ended"
	EventJoinedSession       EventType = "joined-session"
	EventLeftSession         EventType = "left-session"
	EventError               EventType = "error"
	EventPong                EventType = "pong"
)

// Client-to-server message types.
const (
	InboundJoinSession  = "join-session"
	InboundLeaveSession = "leave-session"
	InboundTyping       = "typing"
	InboundStopTyping   = "stop-typing"
	InboundPing         = "ping"
)

// WebSocketMessage is the envelope for all websocket traffic in both
// directions.
type WebSocketMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Event is the closed set of server-to-client payloads. Only types in this
// file implement it.
type Event interface {
	Type() EventType
	event()
}

// MessageReceived carries a persisted chat message to the session room.
type MessageReceived struct {
	Message models.Message
}

// UserTyping and UserStopTyping relay typing signals to the other party.
type UserTyping struct {
	SessionID uuid.UUID `json:"sessionId"`
	UserID    uuid.UUID `json:"userId"`
}

type UserStopTyping struct {
	SessionID uuid.UUID `json:"sessionId"`
	UserID    uuid.UUID `json:"userId"`
}

// MentorRatingUpdated is broadcast to every connection, not only a room.
type MentorRatingUpdated struct {
	MentorID           uuid.UUID      `json:"mentorId"`
	NewRating          float64        `json:"newRating"`
	TotalRatings       int            `json:"totalRatings"`
	RatingDistribution map[string]int `json:"ratingDistribution"`
	StudentsHelped     int            `json:"studentsHelped"`
	TotalMinutes       int            `json:"totalMinutes"`
}

// SessionRequested notifies a mentor of a new incoming request.
type SessionRequested struct {
	SessionID   uuid.UUID  `json:"sessionId"`
	MenteeID    uuid.UUID  `json:"menteeId"`
	CourseID    *uuid.UUID `json:"courseId,omitempty"`
	Description string     `json:"description"`
}

type SessionCancelled struct {
	SessionID   uuid.UUID `json:"sessionId"`
	CancelledBy uuid.UUID `json:"cancelledBy"`
}

type SessionAccepted struct {
	SessionID uuid.UUID `json:"sessionId"`
	StartedAt time.Time `json:"startedAt"`
}

type SessionEnded struct {
	SessionID uuid.UUID            `json:"sessionId"`
	Status    models.SessionStatus `json:"status"`
	EndedAt   time.Time            `json:"endedAt"`
	EndedBy   uuid.UUID            `json:"endedBy"`
}

type JoinedSession struct {
	SessionID uuid.UUID `json:"sessionId"`
}

type LeftSession struct {
	SessionID uuid.UUID `json:"sessionId"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}

type Pong struct{}

func (MessageReceived) Type() EventType     { return EventReceiveMessage }
func (UserTyping) Type() EventType          { return EventUserTyping }
func (UserStopTyping) Type() EventType      { return EventUserStopTyping }
func (MentorRatingUpdated) Type() EventType { return EventMentorRatingUpdated }
func (SessionRequested) Type() EventType    { return EventSessionRequested }
func (SessionAccepted) Type() EventType     { return EventSessionAccepted }
func (SessionCancelled) Type() EventType    { return EventSessionCancelled }
func (SessionEnded) Type() EventType        { return EventSessionEnded }
func (JoinedSession) Type() EventType       { return EventJoinedSession }
func (LeftSession) Type() EventType         { return EventLeftSession }
func (ErrorEvent) Type() EventType          { return EventError }
func (Pong) Type() EventType                { return EventPong }

func (MessageReceived) event()     {}
func (UserTyping) event()          {}
func (UserStopTyping) event()      {}
func (MentorRatingUpdated) event() {}
func (SessionRequested) event()    {}
func (SessionAccepted) event()     {}
func (SessionCancelled) event()    {}
func (SessionEnded) event()        {}
func (JoinedSession) event()       {}
func (LeftSession) event()         {}
func (ErrorEvent) event()          {}
func (Pong) event()                {}

// NewMentorRatingUpdated builds the global rating event from a statistics snapshot.
func NewMentorRatingUpdated(stats *models.MentorStatistics) MentorRatingUpdated {
	return MentorRatingUpdated{
		MentorID:           stats.MentorID,
		NewRating:          stats.AverageRating,
		TotalRatings:       stats.TotalRatings,
		RatingDistribution: stats.RatingDistribution.Map(),
		StudentsHelped:     stats.StudentsHelped,
		TotalMinutes:       stats.TotalMinutes,
	}
}

// Encode renders an event into its wire envelope.
func Encode(ev Event) ([]byte, error) {
	var payload any = ev
	if m, ok := ev.(MessageReceived); ok {
		payload = m.Message
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", ev.Type(), err)
	}

	return json.Marshal(WebSocketMessage{
		Type:    string(ev.Type()),
		Payload: data,
	})
}

// SessionPayload is the payload of join-session and leave-session.
type SessionPayload struct {
	SessionID string `json:"sessionId" validate:"required,uuid"`
}

// TypingPayload is the payload of typing and stop-typing. UserID is
// accepted for compatibility but the authenticated identity is relayed.
type TypingPayload struct {
	SessionID string `json:"sessionId" validate:"required,uuid"`
	UserID    string `json:"userId" validate:"omitempty,uuid"`
}

var validate = validator.New()

// DecodePayload unmarshals and validates an inbound payload.
func DecodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return ErrInvalidPayload
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
