package services

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/preetsinghmakkar/PeerConnect/internal/models"
	"github.com/preetsinghmakkar/PeerConnect/internal/repositories"
	"github.com/preetsinghmakkar/PeerConnect/internal/websocket"
)

// SessionStore is implemented by repositories.SessionRepository.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Accept(ctx context.Context, id uuid.UUID, startedAt time.Time, scheduledTime *time.Time) (*models.Session, error)
	Cancel(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error)
	End(ctx context.Context, params repositories.EndSessionParams) (*models.Session, error)
	ListByParticipant(ctx context.Context, userID uuid.UUID, statuses []models.SessionStatus) ([]models.Session, error)
	ListPendingForMentor(ctx context.Context, mentorID uuid.UUID) ([]models.Session, error)
	ListHistory(ctx context.Context, userID uuid.UUID) ([]models.SessionHistoryEntry, error)
	CountStudentsHelped(ctx context.Context, mentorID uuid.UUID) (int, error)
}

// SessionLogStore is implemented by repositories.SessionLogRepository.
type SessionLogStore interface {
	SumMinutesByMentor(ctx context.Context, mentorID uuid.UUID) (int, error)
}

// MessageStore is implemented by repositories.MessageRepository.
type MessageStore interface {
	Create(ctx context.Context, msg *models.Message) error
	ListBySession(ctx context.Context, sessionID uuid.UUID, before *time.Time, limit int) ([]models.Message, error)
}

// RatingStore is implemented by repositories.RatingRepository.
type RatingStore interface {
	GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*models.Rating, error)
	CreateAndComplete(ctx context.Context, rating *models.Rating) (bool, error)
	ListByMentor(ctx context.Context, mentorID uuid.UUID, offset, limit int) ([]models.Rating, int, error)
	Distribution(ctx context.Context, mentorID uuid.UUID) (models.RatingDistribution, error)
}

// MentorStatsStore is implemented by repositories.MentorStatsRepository.
type MentorStatsStore interface {
	// Upsert reports false when the stored snapshot is newer than stats.
	Upsert(ctx context.Context, stats *models.MentorStatistics) (bool, error)
	Get(ctx context.Context, mentorID uuid.UUID) (*models.MentorStatistics, error)
}

// UserDirectory is implemented by repositories.UserRepository.
type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	CourseExists(ctx context.Context, id uuid.UUID) (bool, error)
	ListMentorIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StatsCache holds recently computed statistics. Get returns nil, nil on a miss.
type StatsCache interface {
	Get(ctx context.Context, mentorID uuid.UUID) (*models.MentorStatistics, error)
	Set(ctx context.Context, stats *models.MentorStatistics) error
}

// Broadcaster pushes events to websocket clients (implemented by
// websocket.Hub).
type Broadcaster interface {
	PublishToRoom(sessionID uuid.UUID, ev websocket.Event)
	PublishToUser(userID uuid.UUID, ev websocket.Event)
	PublishGlobal(ev websocket.Event)
}

// EventPublisher forwards domain events to other services.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Domain event routing keys.
const (
	EventSessionRequested = "session.requested"
	EventSessionAccepted  = "session.accepted"
	EventSessionCancelled = "session.cancelled"
	EventSessionEnded     = "session.ended"
	EventRatingSubmitted  = "rating.submitted"
	EventStatsRecomputed  = "stats.recomputed"
)

// FileStorage stores chat attachments and returns their public URL.
type FileStorage interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}
