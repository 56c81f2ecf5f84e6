package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/preetsinghmakkar/PeerConnect/internal/apperrors"
	"github.com/preetsinghmakkar/PeerConnect/internal/models"
	"github.com/preetsinghmakkar/PeerConnect/internal/websocket"
	"github.com/rs/zerolog"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 200
)

type ChatService struct {
	sessions    SessionStore
	messages    MessageStore
	storage     FileStorage
	broadcaster Broadcaster

	now func() time.Time
	log zerolog.Logger
}

func NewChatService(sessions SessionStore, messages MessageStore, storage FileStorage, broadcaster Broadcaster, log zerolog.Logger) *ChatService {
	return &ChatService{
		sessions:    sessions,
		messages:    messages,
		storage:     storage,
		broadcaster: broadcaster,
		now:         time.Now,
		log:         log.With().Str("component", "chat").Logger(),
	}
}

type SendMessageInput struct {
	SessionID  uuid.UUID
	SenderID   uuid.UUID
	Text       string
	Attachment *models.Attachment
}

type UploadInput struct {
	SessionID   uuid.UUID
	SenderID    uuid.UUID
	Text        string
	FileName    string
	Size        int64
	ContentType string
	Body        io.Reader
}

type ListMessagesInput struct {
	Limit  int
	Before *time.Time
}

// CheckCanSend reports whether senderID may post into the session right now.
func (s *ChatService) CheckCanSend(ctx context.Context, sessionID, senderID uuid.UUID) (*models.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsParticipant(senderID) {
		return nil, apperrors.Forbidden("not a participant of this session")
	}
	if session.Status != models.SessionStatusActive {
		return nil, apperrors.InvalidState("messages can only be sent in active sessions")
	}
	return session, nil
}

// Send archives a message and pushes it to the session room.
func (s *ChatService) Send(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	if _, err := s.CheckCanSend(ctx, in.SessionID, in.SenderID); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(in.Text)
	if text == "" && in.Attachment == nil {
		return nil, apperrors.Validation("message text is required")
	}

	msg := &models.Message{
		ID:          uuid.New(),
		SessionID:   in.SessionID,
		SenderID:    in.SenderID,
		Text:        text,
		MessageType: models.MessageTypeFor(in.Attachment),
		Timestamp:   s.now().UTC(),
	}
	if att := in.Attachment; att != nil {
		msg.FileURL = &att.URL
		msg.FileName = &att.Name
		msg.FileSize = &att.Size
		msg.FileType = &att.MIMEType
	}

	// The insert re-checks the status, so a session ended since
	// CheckCanSend rejects the message.
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("session_id", msg.SessionID.String()).
		Str("sender_id", msg.SenderID.String()).
		Str("message_type", string(msg.MessageType)).
		Msg("message stored")

	s.broadcaster.PublishToRoom(msg.SessionID, websocket.MessageReceived{Message: *msg})

	return msg, nil
}

// Upload stores an attachment and sends it as a message. Authorization is
// checked before anything is written to storage.
func (s *ChatService) Upload(ctx context.Context, in UploadInput) (*models.Message, error) {
	if in.Body == nil || in.FileName == "" {
		return nil, apperrors.Validation("no file")
	}

	if _, err := s.CheckCanSend(ctx, in.SessionID, in.SenderID); err != nil {
		return nil, err
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("chat/%s/%s%s", in.SessionID, uuid.NewString(), strings.ToLower(path.Ext(in.FileName)))
	url, err := s.storage.Upload(ctx, key, in.Body, contentType)
	if err != nil {
		return nil, apperrors.Dependency("store attachment", err)
	}

	return s.Send(ctx, SendMessageInput{
		SessionID: in.SessionID,
		SenderID:  in.SenderID,
		Text:      in.Text,
		Attachment: &models.Attachment{
			URL:      url,
			Name:     in.FileName,
			Size:     in.Size,
			MIMEType: contentType,
		},
	})
}

// List returns the transcript page ending just before in.Before, oldest first.
func (s *ChatService) List(ctx context.Context, sessionID, requesterID uuid.UUID, in ListMessagesInput) ([]models.Message, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsParticipant(requesterID) {
		return nil, apperrors.Forbidden("not a participant of this session")
	}
	if !session.Status.Readable() {
		return nil, apperrors.InvalidState("transcript is not available for " + string(session.Status) + " sessions")
	}

	return s.messages.ListBySession(ctx, sessionID, in.Before, clampLimit(in.Limit, DefaultMessageLimit, MaxMessageLimit))
}

func clampLimit(limit, def, ceiling int) int {
	if limit <= 0 {
		return def
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}
