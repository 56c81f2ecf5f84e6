package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/preetsinghmakkar/PeerConnect/internal/apperrors"
	"github.com/preetsinghmakkar/PeerConnect/internal/models"
	"github.com/preetsinghmakkar/PeerConnect/internal/websocket"
	"github.com/rs/zerolog"
)

const (
	DefaultRatingPageSize = 10
	MaxRatingPageSize     = 100
)

type RatingService struct {
	sessions    SessionStore
	ratings     RatingStore
	stats       StatsRecomputer
	dispatcher  Dispatcher
	broadcaster Broadcaster
	events      EventPublisher

	log zerolog.Logger
}

func NewRatingService(
	sessions SessionStore,
	ratings RatingStore,
	stats StatsRecomputer,
	dispatcher Dispatcher,
	broadcaster Broadcaster,
	events EventPublisher,
	log zerolog.Logger,
) *RatingService {
	return &RatingService{
		sessions:    sessions,
		ratings:     ratings,
		stats:       stats,
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
		events:      events,
		log:         log.With().Str("component", "ratings").Logger(),
	}
}

type SubmitRatingInput struct {
	SessionID uuid.UUID
	MentorID  uuid.UUID
	Rating    int
	Feedback  string
}

type SubmitRatingResult struct {
	Rating           *models.Rating
	SessionCompleted bool
}

type MentorRatingsPage struct {
	Ratings       []models.Rating `json:"ratings"`
	AverageRating float64         `json:"averageRating"`
	TotalRatings  int             `json:"totalRatings"`
	Page          int             `json:"page"`
	Limit         int             `json:"limit"`
	TotalPages    int             `json:"totalPages"`
}

// Submit records the mentee's rating of an ended session. A session waiting
// in pending_rating is completed in the same transaction.
func (s *RatingService) Submit(ctx context.Context, menteeID uuid.UUID, in SubmitRatingInput) (*SubmitRatingResult, error) {
	session, err := s.sessions.GetByID(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	if session.MenteeID != menteeID {
		return nil, apperrors.Forbidden("only the session's mentee can rate it")
	}
	if !session.Status.Rateable() {
		return nil, apperrors.InvalidState("session is " + string(session.Status) + ", it can be rated once it has ended")
	}
	if session.MentorID != in.MentorID {
		return nil, apperrors.New(apperrors.KindMentorMismatch, "mentor does not match the session")
	}

	existing, err := s.ratings.GetBySessionID(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.New(apperrors.KindDuplicateRating, "session has already been rated")
	}

	rating := &models.Rating{
		ID:        uuid.New(),
		SessionID: session.ID,
		MenteeID:  menteeID,
		MentorID:  session.MentorID,
		Rating:    models.ClampRating(in.Rating),
		Feedback:  strings.TrimSpace(in.Feedback),
	}

	completed, err := s.ratings.CreateAndComplete(ctx, rating)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("mentor_id", session.MentorID.String()).
		Int("rating", rating.Rating).
		Bool("session_completed", completed).
		Msg("rating submitted")

	mentorID := session.MentorID
	s.dispatcher.Dispatch("recompute-stats:"+mentorID.String(), func(ctx context.Context) error {
		stats, err := s.stats.Recompute(ctx, mentorID)
		if err != nil {
			return err
		}
		s.broadcaster.PublishGlobal(websocket.NewMentorRatingUpdated(stats))
		return nil
	})

	payload := *rating
	s.dispatcher.Dispatch("publish:"+EventRatingSubmitted, func(ctx context.Context) error {
		return s.events.Publish(ctx, EventRatingSubmitted, payload)
	})

	return &SubmitRatingResult{Rating: rating, SessionCompleted: completed}, nil
}

// ListForMentor pages through a mentor's ratings, newest first, alongside
// the overall average.
func (s *RatingService) ListForMentor(ctx context.Context, mentorID uuid.UUID, page, limit int) (*MentorRatingsPage, error) {
	if page <= 0 {
		page = 1
	}
	limit = clampLimit(limit, DefaultRatingPageSize, MaxRatingPageSize)

	ratings, total, err := s.ratings.ListByMentor(ctx, mentorID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	dist, err := s.ratings.Distribution(ctx, mentorID)
	if err != nil {
		return nil, err
	}

	if ratings == nil {
		ratings = []models.Rating{}
	}

	return &MentorRatingsPage{
		Ratings:       ratings,
		AverageRating: dist.Average(),
		TotalRatings:  total,
		Page:          page,
		Limit:         limit,
		TotalPages:    (total + limit - 1) / limit,
	}, nil
}
