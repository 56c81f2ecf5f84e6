package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/preetsinghmakkar/PeerConnect/internal/apperrors"
	"github.com/preetsinghmakkar/PeerConnect/internal/models"
	"github.com/preetsinghmakkar/PeerConnect/internal/websocket"
	"github.com/rs/zerolog"
)

func TestSendAndListMessages(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	menteeID, mentorID, session := activeSession(t, e)

	for i, sender := range []uuid.UUID{menteeID, mentorID, menteeID} {
		e.advance(time.Second)
		msg, err := e.chat.Send(ctx, SendMessageInput{SessionID: session.ID, SenderID: sender, Text: " message " + string(rune('a'+i))})
		if err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
		if msg.MessageType != models.MessageTypeText || msg.FileURL != nil {
			t.Fatalf("unexpected text message %+v", msg)
		}
	}

	if got := e.broadcaster.ofType(websocket.EventReceiveMessage); len(got) != 3 || got[0].target != session.ID {
		t.Fatalf("expected three room deliveries, got %+v", got)
	}

	msgs, err := e.chat.List(ctx, session.ID, mentorID, ListMessagesInput{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 3 || msgs[0].Text != "message a" || msgs[2].Text != "message c" {
		t.Fatalf("unexpected transcript %+v", msgs)
	}

	before := msgs[2].Timestamp
	page, err := e.chat.List(ctx, session.ID, menteeID, ListMessagesInput{Limit: 1, Before: &before})
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(page) != 1 || page[0].ID != msgs[1].ID {
		t.Fatalf("expected the message just before the cursor, got %+v", page)
	}
}

func TestSendRejections(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	menteeID, mentorID, session := activeSession(t, e)

	if _, err := e.chat.Send(ctx, SendMessageInput{SessionID: session.ID, SenderID: menteeID, Text: "   "}); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error for blank text, got %v", err)
	}
	if _, err := e.chat.Send(ctx, SendMessageInput{SessionID: session.ID, SenderID: uuid.New(), Text: "hi"}); !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("expected forbidden for outsider, got %v", err)
	}
	if _, err := e.chat.Send(ctx, SendMessageInput{SessionID: uuid.New(), SenderID: menteeID, Text: "hi"}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := e.sessions.End(ctx, session.ID, mentorID, ""); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, err := e.chat.Send(ctx, SendMessageInput{SessionID: session.ID, SenderID: menteeID, Text: "one more"}); !errors.Is(err, apperrors.ErrInvalidState) {
		t.Fatalf("expected invalid state after end, got %v", err)
	}

	// The transcript stays readable after the session ends.
	if _, err := e.chat.List(ctx, session.ID, menteeID, ListMessagesInput{}); err != nil {
		t.Fatalf("list after end: %v", err)
	}
}

func TestListMessagesRequiresParticipant(t *testing.T) {
	e := newEnv()
	_, _, session := activeSession(t, e)

	if _, err := e.chat.List(context.Background(), session.ID, uuid.New(), ListMessagesInput{}); !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestListMessagesNotReadableBeforeAccept(t *testing.T) {
	e := newEnv()
	menteeID, _, session := requestSession(t, e)

	if _, err := e.chat.List(context.Background(), session.ID, menteeID, ListMessagesInput{}); !errors.Is(err, apperrors.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestUploadImageWithoutText(t *testing.T) {
	e := newEnv()
	menteeID, _, session := activeSession(t, e)

	msg, err := e.chat.Upload(context.Background(), UploadInput{
		SessionID:   session.ID,
		SenderID:    menteeID,
		FileName:    "Diagram.PNG",
		Size:        4,
		ContentType: "image/png",
		Body:        strings.NewReader("\x89PNG"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if msg.MessageType != models.MessageTypeImage {
		t.Fatalf("expected image, got %s", msg.MessageType)
	}
	if msg.Text != "" {
		t.Fatalf("expected empty text, got %q", msg.Text)
	}
	if msg.FileURL == nil || !strings.HasPrefix(*msg.FileURL, "https://files.test/chat/"+session.ID.String()+"/") || !strings.HasSuffix(*msg.FileURL, ".png") {
		t.Fatalf("unexpected file url %v", msg.FileURL)
	}
	if *msg.FileName != "Diagram.PNG" || *msg.FileType != "image/png" || *msg.FileSize != 4 {
		t.Fatalf("unexpected attachment fields %+v", msg)
	}
}

func TestUploadChecksAccessBeforeStoring(t *testing.T) {
	e := newEnv()
	_, _, session := activeSession(t, e)

	_, err := e.chat.Upload(context.Background(), UploadInput{
		SessionID: session.ID,
		SenderID:  uuid.New(),
		FileName:  "notes.pdf",
		Body:      strings.NewReader("%PDF"),
	})
	if !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if len(e.storage.objects) != 0 {
		t.Fatalf("nothing should be stored, got %d objects", len(e.storage.objects))
	}
}

func TestUploadWithoutFile(t *testing.T) {
	e := newEnv()
	menteeID, _, session := activeSession(t, e)

	_, err := e.chat.Upload(context.Background(), UploadInput{SessionID: session.ID, SenderID: menteeID})
	if !errors.Is(err, apperrors.ErrValidation) || apperrors.MessageOf(err) != "no file" {
		t.Fatalf("expected no file validation error, got %v", err)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, DefaultMessageLimit},
		{-3, DefaultMessageLimit},
		{10, 10},
		{MaxMessageLimit + 1, MaxMessageLimit},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in, DefaultMessageLimit, MaxMessageLimit); got != tt.want {
			t.Fatalf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// endsAfterRead ends the session right after the status read, the way a
// concurrent end request committing between check and insert would.
type endsAfterRead struct {
	sessionFake
}

func (f endsAfterRead) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s, err := f.sessionFake.GetByID(ctx, id)
	if err == nil {
		f.setStatus(id, models.SessionStatusCompleted)
	}
	return s, err
}

func TestSendRacingEndIsRejected(t *testing.T) {
	e := newEnv()
	menteeID, _, session := activeSession(t, e)

	chat := NewChatService(endsAfterRead{sessionFake{e.store}}, messageFake{e.store}, e.storage, e.broadcaster, zerolog.Nop())

	_, err := chat.Send(context.Background(), SendMessageInput{SessionID: session.ID, SenderID: menteeID, Text: "last word"})
	if !errors.Is(err, apperrors.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if len(e.store.messages) != 0 {
		t.Fatalf("message archived after the session ended: %+v", e.store.messages)
	}
	if got := e.broadcaster.ofType(websocket.EventReceiveMessage); len(got) != 0 {
		t.Fatalf("expected no delivery, got %+v", got)
	}
}

func TestSendChecksAccessBeforeText(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	menteeID, mentorID, session := activeSession(t, e)

	if _, err := e.chat.Send(ctx, SendMessageInput{SessionID: session.ID, SenderID: uuid.New(), Text: " "}); !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("expected forbidden for outsider with blank text, got %v", err)
	}

	if _, err := e.sessions.End(ctx, session.ID, mentorID, ""); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, err := e.chat.Send(ctx, SendMessageInput{SessionID: session.ID, SenderID: menteeID}); !errors.Is(err, apperrors.ErrInvalidState) {
		t.Fatalf("expected invalid state for blank text after end, got %v", err)
	}
}
