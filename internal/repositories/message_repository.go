package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/preetsinghmakkar/PeerConnect/internal/apperrors"
	"github.com/preetsinghmakkar/PeerConnect/internal/models"
)

// MessageRepository is the append-only chat archive. It exposes no update
// or delete.
type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create appends msg only while its session is active. The session row is
// share-locked so a concurrent End waits for the insert or wins outright.
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	const query = `
	INSERT INTO messages (
		id,
		session_id,
		sender_id,
		text,
		message_type,
		file_url,
		file_name,
		file_size,
		file_type,
		timestamp
	)
	SELECT
		$1::uuid,
		s.id,
		$3::uuid,
		$4::text,
		$5::text,
		$6::text,
		$7::text,
		$8::bigint,
		$9::text,
		NOW()
	FROM sessions s
	WHERE s.id = $2 AND s.status = $10
	FOR SHARE OF s
	RETURNING timestamp
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		msg.ID,
		msg.SessionID,
		msg.SenderID,
		msg.Text,
		msg.MessageType,
		msg.FileURL,
		msg.FileName,
		msg.FileSize,
		msg.FileType,
		models.SessionStatusActive,
	).Scan(&msg.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.InvalidState("messages can only be sent in active sessions")
	}
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListBySession returns up to limit messages strictly older than before
// (when set), ordered oldest to newest.
func (r *MessageRepository) ListBySession(ctx context.Context, sessionID uuid.UUID, before *time.Time, limit int) ([]models.Message, error) {
	const query = `
	SELECT * FROM (
		SELECT
			id,
			session_id,
			sender_id,
			text,
			message_type,
			file_url,
			file_name,
			file_size,
			file_type,
			timestamp
		FROM messages
		WHERE session_id = $1 AND ($2::timestamptz IS NULL OR timestamp < $2)
		ORDER BY timestamp DESC, id DESC
		LIMIT $3
	) newest
	ORDER BY timestamp ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0, limit)
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(
			&m.ID,
			&m.SessionID,
			&m.SenderID,
			&m.Text,
			&m.MessageType,
			&m.FileURL,
			&m.FileName,
			&m.FileSize,
			&m.FileType,
			&m.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
