package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
)

type Message struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	SessionID   uuid.UUID   `db:"session_id" json:"sessionId"`
	SenderID    uuid.UUID   `db:"sender_id" json:"senderId"`
	Text        string      `db:"text" json:"text"`
	MessageType MessageType `db:"message_type" json:"messageType"`

	FileURL  *string `db:"file_url" json:"fileUrl,omitempty"`
	FileName *string `db:"file_name" json:"fileName,omitempty"`
	FileSize *int64  `db:"file_size" json:"fileSize,omitempty"`
	FileType *string `db:"file_type" json:"fileType,omitempty"`

	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}

// Attachment describes an uploaded file already placed in file storage.
type Attachment struct {
	URL      string
	Name     string
	Size     int64
	MIMEType string
}

// MessageTypeFor derives the message type from an optional attachment.
func MessageTypeFor(att *Attachment) MessageType {
	if att == nil {
		return MessageTypeText
	}
	if strings.HasPrefix(strings.ToLower(att.MIMEType), "image/") {
		return MessageTypeImage
	}
	return MessageTypeFile
}
