package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/preetsinghmakkar/PeerConnect/internal/apperrors"
	"github.com/preetsinghmakkar/PeerConnect/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// StatsService is the only writer of mentor statistics. Every write goes
// through Recompute, which derives the snapshot from sessions, duration
// logs and ratings.
type StatsService struct {
	sessions SessionStore
	logs     SessionLogStore
	ratings  RatingStore
	store    MentorStatsStore
	users    UserDirectory
	cache    StatsCache
	events   EventPublisher

	locks       mentorLocks
	concurrency int
	now         func() time.Time
	log         zerolog.Logger
}

// mentorLocks serializes recomputes of one mentor within the process so a
// slow run cannot overwrite the figures of a later one.
type mentorLocks struct {
	mu sync.Mutex
	m  map[uuid.UUID]*mentorLock
}

type mentorLock struct {
	sync.Mutex
	refs int
}

func (l *mentorLocks) lock(id uuid.UUID) (unlock func()) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[uuid.UUID]*mentorLock)
	}
	e, ok := l.m[id]
	if !ok {
		e = &mentorLock{}
		l.m[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.Lock()
	return func() {
		e.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.m, id)
		}
		l.mu.Unlock()
	}
}

func NewStatsService(
	sessions SessionStore,
	logs SessionLogStore,
	ratings RatingStore,
	store MentorStatsStore,
	users UserDirectory,
	cache StatsCache,
	events EventPublisher,
	concurrency int,
	log zerolog.Logger,
) *StatsService {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &StatsService{
		sessions:    sessions,
		logs:        logs,
		ratings:     ratings,
		store:       store,
		users:       users,
		cache:       cache,
		events:      events,
		concurrency: concurrency,
		now:         time.Now,
		log:         log.With().Str("component", "stats").Logger(),
	}
}

// Recompute rebuilds a mentor's statistics from primary data and persists
// the snapshot. Running it twice without intervening writes yields the
// same figures.
//
// The snapshot is stamped before the reads. A snapshot stamped later that
// is already stored (by another process) wins and is returned instead.
func (s *StatsService) Recompute(ctx context.Context, mentorID uuid.UUID) (*models.MentorStatistics, error) {
	unlock := s.locks.lock(mentorID)
	defer unlock()

	asOf := s.now()

	dist, err := s.ratings.Distribution(ctx, mentorID)
	if err != nil {
		return nil, apperrors.Dependency("load rating distribution", err)
	}

	helped, err := s.sessions.CountStudentsHelped(ctx, mentorID)
	if err != nil {
		return nil, apperrors.Dependency("count students helped", err)
	}

	minutes, err := s.logs.SumMinutesByMentor(ctx, mentorID)
	if err != nil {
		return nil, apperrors.Dependency("sum session minutes", err)
	}

	stats := models.BuildMentorStatistics(mentorID, dist, helped, minutes, asOf)

	applied, err := s.store.Upsert(ctx, stats)
	if err != nil {
		return nil, apperrors.Dependency("persist mentor statistics", err)
	}
	if !applied {
		s.log.Debug().Str("mentor_id", mentorID.String()).Msg("newer statistics already stored")
		newer, err := s.store.Get(ctx, mentorID)
		if err != nil {
			return nil, apperrors.Dependency("load mentor statistics", err)
		}
		if newer != nil {
			return newer, nil
		}
		return stats, nil
	}

	if err := s.cache.Set(ctx, stats); err != nil {
		s.log.Warn().Err(err).Str("mentor_id", mentorID.String()).Msg("cache statistics")
	}

	if err := s.events.Publish(ctx, EventStatsRecomputed, stats); err != nil {
		s.log.Warn().Err(err).Str("mentor_id", mentorID.String()).Msg("publish stats event")
	}

	s.log.Debug().
		Str("mentor_id", mentorID.String()).
		Float64("average_rating", stats.AverageRating).
		Int("total_ratings", stats.TotalRatings).
		Int("students_helped", stats.StudentsHelped).
		Int("total_minutes", stats.TotalMinutes).
		Msg("mentor statistics recomputed")

	return stats, nil
}

type RecomputeReport struct {
	Mentors   int
	Succeeded int
	Failed    []uuid.UUID
}

// RecomputeAll rebuilds the statistics of every mentor. Failures of single
// mentors do not stop the run; they are reported and joined into the
// returned error.
func (s *StatsService) RecomputeAll(ctx context.Context) (*RecomputeReport, error) {
	ids, err := s.users.ListMentorIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mentors: %w", err)
	}

	report := &RecomputeReport{Mentors: len(ids)}

	var (
		mu   sync.Mutex
		errs []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			_, err := s.Recompute(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed = append(report.Failed, id)
				errs = append(errs, fmt.Errorf("mentor %s: %w", id, err))
				return nil
			}
			report.Succeeded++
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	s.log.Info().
		Int("mentors", report.Mentors).
		Int("succeeded", report.Succeeded).
		Int("failed", len(report.Failed)).
		Msg("bulk statistics recompute finished")

	return report, errors.Join(errs...)
}

// Get returns the current statistics of a mentor, computing them on first
// access.
func (s *StatsService) Get(ctx context.Context, mentorID uuid.UUID) (*models.MentorStatistics, error) {
	user, err := s.users.FindByID(ctx, mentorID)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return nil, apperrors.NotFound("mentor not found")
		}
		return nil, err
	}
	if user.Role != models.RoleMentor {
		return nil, apperrors.NotFound("mentor not found")
	}

	cached, err := s.cache.Get(ctx, mentorID)
	if err != nil {
		s.log.Warn().Err(err).Str("mentor_id", mentorID.String()).Msg("read statistics cache")
	}
	if cached != nil {
		return cached, nil
	}

	stored, err := s.store.Get(ctx, mentorID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return s.Recompute(ctx, mentorID)
	}

	if err := s.cache.Set(ctx, stored); err != nil {
		s.log.Warn().Err(err).Str("mentor_id", mentorID.String()).Msg("cache statistics")
	}
	return stored, nil
}
