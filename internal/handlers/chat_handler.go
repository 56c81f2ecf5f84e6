package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/preetsinghmakkar/PeerConnect/internal/apperrors"
	"github.com/preetsinghmakkar/PeerConnect/internal/dtos"
	"github.com/preetsinghmakkar/PeerConnect/internal/models"
	"github.com/preetsinghmakkar/PeerConnect/internal/services"
)

// MessageArchive is implemented by services.ChatService.
type MessageArchive interface {
	Send(ctx context.Context, in services.SendMessageInput) (*models.Message, error)
	Upload(ctx context.Context, in services.UploadInput) (*models.Message, error)
	List(ctx context.Context, sessionID, requesterID uuid.UUID, in services.ListMessagesInput) ([]models.Message, error)
}

type ChatHandler struct {
	chat           MessageArchive
	maxUploadBytes int64
}

func NewChatHandler(chat MessageArchive, maxUploadBytes int64) *ChatHandler {
	return &ChatHandler{chat: chat, maxUploadBytes: maxUploadBytes}
}

// POST /api/chat/messages
func (h *ChatHandler) SendMessage(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req dtos.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	msg, err := h.chat.Send(c.Request.Context(), services.SendMessageInput{
		SessionID: uuid.MustParse(req.SessionID),
		SenderID:  id.UserID,
		Text:      req.Text,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dtos.MessageResponse{Message: msg})
}

// POST /api/chat/messages/upload (multipart: file, sessionId, text)
func (h *ChatHandler) UploadMessage(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, apperrors.Validation("file too large"))
			return
		}
		respondError(c, apperrors.Validation("no file"))
		return
	}

	var form dtos.UploadMessageForm
	if err := c.ShouldBind(&form); err != nil {
		bindError(c, err)
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, apperrors.Validation("unreadable file"))
		return
	}
	defer file.Close()

	msg, err := h.chat.Upload(c.Request.Context(), services.UploadInput{
		SessionID:   uuid.MustParse(form.SessionID),
		SenderID:    id.UserID,
		Text:        form.Text,
		FileName:    header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dtos.MessageResponse{Message: msg})
}

// GET /api/chat/messages/:sessionId?limit=&before=
func (h *ChatHandler) ListMessages(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	sessionID, ok := pathUUID(c, "sessionId")
	if !ok {
		return
	}

	var q dtos.ListMessagesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	in := services.ListMessagesInput{Limit: q.Limit}
	if q.Before != "" {
		before, err := time.Parse(time.RFC3339Nano, q.Before)
		if err != nil {
			respondError(c, apperrors.Validation("before must be an RFC 3339 timestamp"))
			return
		}
		in.Before = &before
	}

	msgs, err := h.chat.List(c.Request.Context(), sessionID, id.UserID, in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dtos.MessageListResponse{Messages: nonNil(msgs)})
}
