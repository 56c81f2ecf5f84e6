package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/preetsinghmakkar/PeerConnect/internal/apperrors"
	"github.com/preetsinghmakkar/PeerConnect/internal/models"
	"github.com/preetsinghmakkar/PeerConnect/internal/repositories"
	"github.com/preetsinghmakkar/PeerConnect/internal/websocket"
	"github.com/rs/zerolog"
)

// StatsRecomputer is implemented by StatsService.
type StatsRecomputer interface {
	Recompute(ctx context.Context, mentorID uuid.UUID) (*models.MentorStatistics, error)
}

type SessionService struct {
	sessions    SessionStore
	users       UserDirectory
	stats       StatsRecomputer
	dispatcher  Dispatcher
	broadcaster Broadcaster
	events      EventPublisher

	now func() time.Time
	log zerolog.Logger
}

func NewSessionService(
	sessions SessionStore,
	users UserDirectory,
	stats StatsRecomputer,
	dispatcher Dispatcher,
	broadcaster Broadcaster,
	events EventPublisher,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessions:    sessions,
		users:       users,
		stats:       stats,
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
		events:      events,
		now:         time.Now,
		log:         log.With().Str("component", "sessions").Logger(),
	}
}

type RequestSessionInput struct {
	MentorID      uuid.UUID
	CourseID      *uuid.UUID
	Description   string
	PreferredTime *time.Time
}

type EndSessionResult struct {
	Session         *models.Session
	DurationMinutes int
}

// Request creates a session in the requested state.
func (s *SessionService) Request(ctx context.Context, menteeID uuid.UUID, in RequestSessionInput) (*models.Session, error) {
	if in.MentorID == menteeID {
		return nil, apperrors.Validation("cannot request a session with yourself")
	}

	mentor, err := s.users.FindByID(ctx, in.MentorID)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return nil, apperrors.New(apperrors.KindInvalidMentor, "mentor not found")
		}
		return nil, err
	}
	if !mentor.IsApprovedMentor() {
		return nil, apperrors.New(apperrors.KindInvalidMentor, "user is not an approved mentor")
	}

	if in.CourseID != nil {
		exists, err := s.users.CourseExists(ctx, *in.CourseID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperrors.Validation("course not found")
		}
	}

	session := &models.Session{
		ID:            uuid.New(),
		MenteeID:      menteeID,
		MentorID:      in.MentorID,
		CourseID:      in.CourseID,
		Description:   strings.TrimSpace(in.Description),
		PreferredTime: in.PreferredTime,
		Status:        models.SessionStatusRequested,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("mentee_id", menteeID.String()).
		Str("mentor_id", in.MentorID.String()).
		Msg("session requested")

	s.broadcaster.PublishToUser(session.MentorID, websocket.SessionRequested{
		SessionID:   session.ID,
		MenteeID:    session.MenteeID,
		CourseID:    session.CourseID,
		Description: session.Description,
	})
	s.publishEvent(EventSessionRequested, session)

	return session, nil
}

// Accept moves a requested session to active. Only the mentor may accept.
func (s *SessionService) Accept(ctx context.Context, sessionID, actorID uuid.UUID, scheduledTime *time.Time) (*models.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if actorID != session.MentorID {
		return nil, apperrors.Forbidden("only the session's mentor can accept it")
	}
	if session.Status != models.SessionStatusRequested {
		return nil, apperrors.InvalidState("session is " + string(session.Status) + ", expected requested")
	}

	startedAt := s.now().UTC()
	if scheduledTime != nil {
		startedAt = scheduledTime.UTC()
	}

	accepted, err := s.sessions.Accept(ctx, sessionID, startedAt, scheduledTime)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session_id", sessionID.String()).
		Str("mentor_id", actorID.String()).
		Time("started_at", startedAt).
		Msg("session accepted")

	ev := websocket.SessionAccepted{SessionID: accepted.ID, StartedAt: startedAt}
	s.broadcaster.PublishToRoom(accepted.ID, ev)
	s.broadcaster.PublishToUser(accepted.MenteeID, ev)
	s.publishEvent(EventSessionAccepted, accepted)

	return accepted, nil
}

// End closes an active session. A mentee ending the session leaves it in
// pending_rating until a rating arrives; a mentor ending it completes it.
// Statistics are recomputed after the write, off the request path.
func (s *SessionService) End(ctx context.Context, sessionID, actorID uuid.UUID, summary string) (*EndSessionResult, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !session.IsParticipant(actorID) {
		return nil, apperrors.Forbidden("only session participants can end it")
	}
	if session.Status != models.SessionStatusActive {
		return nil, apperrors.InvalidState("session is " + string(session.Status) + ", expected active")
	}

	endedAt := s.now().UTC()
	duration := durationMinutes(session.StartedAt, endedAt)

	newStatus := models.SessionStatusCompleted
	if actorID == session.MenteeID {
		newStatus = models.SessionStatusPendingRating
	}

	ended, err := s.sessions.End(ctx, repositories.EndSessionParams{
		SessionID: sessionID,
		Status:    newStatus,
		Summary:   strings.TrimSpace(summary),
		EndedAt:   endedAt,
		Log: models.SessionLog{
			ID:              uuid.New(),
			SessionID:       session.ID,
			MenteeID:        session.MenteeID,
			MentorID:        session.MentorID,
			CourseID:        session.CourseID,
			DurationMinutes: duration,
		},
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session_id", sessionID.String()).
		Str("ended_by", actorID.String()).
		Str("status", string(newStatus)).
		Int("duration_minutes", duration).
		Msg("session ended")

	mentorID := ended.MentorID
	s.dispatcher.Dispatch("recompute-stats:"+mentorID.String(), func(ctx context.Context) error {
		_, err := s.stats.Recompute(ctx, mentorID)
		return err
	})

	s.broadcaster.PublishToRoom(ended.ID, websocket.SessionEnded{
		SessionID: ended.ID,
		Status:    ended.Status,
		EndedAt:   endedAt,
		EndedBy:   actorID,
	})
	s.publishEvent(EventSessionEnded, ended)

	return &EndSessionResult{Session: ended, DurationMinutes: duration}, nil
}

// Cancel withdraws (mentee) or declines (mentor) a session that was never accepted.
func (s *SessionService) Cancel(ctx context.Context, sessionID, actorID uuid.UUID) (*models.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !session.IsParticipant(actorID) {
		return nil, apperrors.Forbidden("only session participants can cancel it")
	}
	if session.Status != models.SessionStatusRequested {
		return nil, apperrors.InvalidState("session is " + string(session.Status) + ", only requested sessions can be cancelled")
	}

	cancelled, err := s.sessions.Cancel(ctx, sessionID, s.now().UTC())
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session_id", sessionID.String()).
		Str("cancelled_by", actorID.String()).
		Msg("session cancelled")

	s.broadcaster.PublishToUser(session.OtherParticipant(actorID), websocket.SessionCancelled{
		SessionID:   sessionID,
		CancelledBy: actorID,
	})
	s.publishEvent(EventSessionCancelled, cancelled)

	return cancelled, nil
}

// Get returns a session to one of its participants.
func (s *SessionService) Get(ctx context.Context, sessionID, actorID uuid.UUID) (*models.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsParticipant(actorID) {
		return nil, apperrors.Forbidden("not a participant of this session")
	}
	return session, nil
}

// Authorize checks that userID may follow the session in real time.
func (s *SessionService) Authorize(ctx context.Context, sessionID, userID uuid.UUID) error {
	_, err := s.Get(ctx, sessionID, userID)
	return err
}

func (s *SessionService) ListActive(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	return s.sessions.ListByParticipant(ctx, userID, []models.SessionStatus{models.SessionStatusActive})
}

func (s *SessionService) ListPending(ctx context.Context, actor models.Identity) ([]models.Session, error) {
	if actor.Role != models.RoleMentor {
		return nil, apperrors.Forbidden("only mentors have incoming requests")
	}
	return s.sessions.ListPendingForMentor(ctx, actor.UserID)
}

func (s *SessionService) ListLogs(ctx context.Context, userID uuid.UUID) ([]models.SessionHistoryEntry, error) {
	return s.sessions.ListHistory(ctx, userID)
}

func (s *SessionService) publishEvent(key string, session *models.Session) {
	payload := *session
	s.dispatcher.Dispatch("publish:"+key, func(ctx context.Context) error {
		return s.events.Publish(ctx, key, payload)
	})
}

// durationMinutes floors the elapsed time to whole minutes. A start time in
// the future (scheduled ahead) counts as zero.
func durationMinutes(startedAt *time.Time, endedAt time.Time) int {
	if startedAt == nil {
		return 0
	}
	elapsed := endedAt.Sub(*startedAt)
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed / time.Minute)
}
