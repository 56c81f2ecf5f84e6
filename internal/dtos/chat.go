package dtos

import "github.com/preetsinghmakkar/PeerConnect/internal/models"

type SendMessageRequest struct {
	SessionID string `json:"sessionId" binding:"required,uuid"`
	Text      string `json:"text" binding:"max=5000"`
}

// UploadMessageForm is the multipart form of an attachment upload. The file
// itself is read separately from the "file" part.
type UploadMessageForm struct {
	SessionID string `form:"sessionId" binding:"required,uuid"`
	Text      string `form:"text" binding:"max=5000"`
}

type ListMessagesQuery struct {
	Limit  int    `form:"limit" binding:"omitempty,min=1"`
	Before string `form:"before"`
}

type MessageResponse struct {
	Message *models.Message `json:"message"`
}

type MessageListResponse struct {
	Messages []models.Message `json:"messages"`
}
