package services

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/preetsinghmakkar/PeerConnect/internal/apperrors"
	"github.com/preetsinghmakkar/PeerConnect/internal/models"
	"github.com/preetsinghmakkar/PeerConnect/internal/repositories"
	"github.com/preetsinghmakkar/PeerConnect/internal/websocket"
	"github.com/rs/zerolog"
)

// store is an in-memory stand-in for the PostgreSQL tables. Conditional
// updates check the current status the same way the SQL WHERE clauses do.
type store struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*models.User
	courses  map[uuid.UUID]bool
	sessions map[uuid.UUID]*models.Session
	logs     map[uuid.UUID]models.SessionLog
	messages []models.Message
	ratings  map[uuid.UUID]models.Rating
	stats    map[uuid.UUID]models.MentorStatistics
}

func newStore() *store {
	return &store{
		users:    map[uuid.UUID]*models.User{},
		courses:  map[uuid.UUID]bool{},
		sessions: map[uuid.UUID]*models.Session{},
		logs:     map[uuid.UUID]models.SessionLog{},
		ratings:  map[uuid.UUID]models.Rating{},
		stats:    map[uuid.UUID]models.MentorStatistics{},
	}
}

func (s *store) addUser(role models.UserRole, approved bool) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.users[id] = &models.User{ID: id, Name: string(role), Role: role, Approved: approved}
	return id
}

func (s *store) session(id uuid.UUID) models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.sessions[id]
}

func (s *store) setStatus(id uuid.UUID, status models.SessionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id].Status = status
}

type sessionFake struct{ *store }

func (f sessionFake) Create(_ context.Context, session *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	session.CreatedAt, session.UpdatedAt = now, now
	cp := *session
	f.sessions[session.ID] = &cp
	return nil
}

func (f sessionFake) GetByID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, apperrors.NotFound("session not found")
	}
	cp := *s
	return &cp, nil
}

func (f sessionFake) Accept(_ context.Context, id uuid.UUID, startedAt time.Time, scheduledTime *time.Time) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.Status != models.SessionStatusRequested {
		return nil, apperrors.InvalidState("session is no longer requested")
	}
	s.Status = models.SessionStatusActive
	s.StartedAt = &startedAt
	s.ScheduledTime = scheduledTime
	cp := *s
	return &cp, nil
}

func (f sessionFake) Cancel(_ context.Context, id uuid.UUID, at time.Time) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.Status != models.SessionStatusRequested {
		return nil, apperrors.InvalidState("session is no longer requested")
	}
	s.Status = models.SessionStatusCancelled
	s.EndedAt = &at
	cp := *s
	return &cp, nil
}

func (f sessionFake) End(_ context.Context, p repositories.EndSessionParams) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[p.SessionID]
	if !ok || s.Status != models.SessionStatusActive {
		return nil, apperrors.InvalidState("session is no longer active")
	}
	s.Status = p.Status
	s.Summary = p.Summary
	endedAt := p.EndedAt
	s.EndedAt = &endedAt
	log := p.Log
	log.CreatedAt = p.EndedAt
	f.logs[p.SessionID] = log
	cp := *s
	return &cp, nil
}

func (f sessionFake) ListByParticipant(_ context.Context, userID uuid.UUID, statuses []models.SessionStatus) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Session
	for _, s := range f.sessions {
		if !s.IsParticipant(userID) {
			continue
		}
		for _, st := range statuses {
			if s.Status == st {
				out = append(out, *s)
				break
			}
		}
	}
	return out, nil
}

func (f sessionFake) ListPendingForMentor(_ context.Context, mentorID uuid.UUID) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Session
	for _, s := range f.sessions {
		if s.MentorID == mentorID && s.Status == models.SessionStatusRequested {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f sessionFake) ListHistory(_ context.Context, userID uuid.UUID) ([]models.SessionHistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SessionHistoryEntry
	for _, s := range f.sessions {
		if !s.IsParticipant(userID) {
			continue
		}
		if s.Status != models.SessionStatusCompleted && s.Status != models.SessionStatusPendingRating {
			continue
		}
		out = append(out, models.SessionHistoryEntry{Session: *s, DurationMinutes: f.logs[s.ID].DurationMinutes})
	}
	return out, nil
}

func (f sessionFake) CountStudentsHelped(_ context.Context, mentorID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[uuid.UUID]bool{}
	for _, s := range f.sessions {
		if s.MentorID == mentorID && s.Status == models.SessionStatusCompleted {
			seen[s.MenteeID] = true
		}
	}
	return len(seen), nil
}

type logFake struct{ *store }

func (f logFake) SumMinutesByMentor(_ context.Context, mentorID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, l := range f.logs {
		if l.MentorID == mentorID {
			total += l.DurationMinutes
		}
	}
	return total, nil
}

type messageFake struct{ *store }

func (f messageFake) Create(_ context.Context, msg *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[msg.SessionID]; !ok || s.Status != models.SessionStatusActive {
		return apperrors.InvalidState("messages can only be sent in active sessions")
	}
	f.messages = append(f.messages, *msg)
	return nil
}

func (f messageFake) ListBySession(_ context.Context, sessionID uuid.UUID, before *time.Time, limit int) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Message
	for _, m := range f.messages {
		if m.SessionID != sessionID {
			continue
		}
		if before != nil && !m.Timestamp.Before(*before) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type ratingFake struct{ *store }

func (f ratingFake) GetBySessionID(_ context.Context, sessionID uuid.UUID) (*models.Rating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.ratings[sessionID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (f ratingFake) CreateAndComplete(_ context.Context, rating *models.Rating) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ratings[rating.SessionID]; ok {
		return false, apperrors.New(apperrors.KindDuplicateRating, "session has already been rated")
	}
	rating.CreatedAt = time.Now().UTC()
	f.ratings[rating.SessionID] = *rating
	s := f.sessions[rating.SessionID]
	if s.Status == models.SessionStatusPendingRating {
		s.Status = models.SessionStatusCompleted
		return true, nil
	}
	return false, nil
}

func (f ratingFake) ListByMentor(_ context.Context, mentorID uuid.UUID, offset, limit int) ([]models.Rating, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.Rating
	for _, r := range f.ratings {
		if r.MentorID == mentorID {
			all = append(all, r)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

func (f ratingFake) Distribution(_ context.Context, mentorID uuid.UUID) (models.RatingDistribution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var d models.RatingDistribution
	for _, r := range f.ratings {
		if r.MentorID == mentorID {
			d[r.Rating]++
		}
	}
	return d, nil
}

type statsFake struct{ *store }

func (f statsFake) Upsert(_ context.Context, stats *models.MentorStatistics) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur, ok := f.stats[stats.MentorID]; ok && cur.LastUpdated.After(stats.LastUpdated) {
		return false, nil
	}
	f.stats[stats.MentorID] = *stats
	return true, nil
}

func (f statsFake) Get(_ context.Context, mentorID uuid.UUID) (*models.MentorStatistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.stats[mentorID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

type userFake struct{ *store }

func (f userFake) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	cp := *u
	return &cp, nil
}

func (f userFake) CourseExists(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.courses[id], nil
}

func (f userFake) ListMentorIDs(_ context.Context) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	for id, u := range f.users {
		if u.Role == models.RoleMentor {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type memCache struct {
	mu    sync.Mutex
	stats map[uuid.UUID]models.MentorStatistics
}

func (c *memCache) Get(_ context.Context, mentorID uuid.UUID) (*models.MentorStatistics, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stats[mentorID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (c *memCache) Set(_ context.Context, stats *models.MentorStatistics) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stats == nil {
		c.stats = map[uuid.UUID]models.MentorStatistics{}
	}
	c.stats[stats.MentorID] = *stats
	return nil
}

type sentEvent struct {
	scope  string
	target uuid.UUID
	event  websocket.Event
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []sentEvent
}

func (b *recordingBroadcaster) PublishToRoom(sessionID uuid.UUID, ev websocket.Event) {
	b.record("room", sessionID, ev)
}

func (b *recordingBroadcaster) PublishToUser(userID uuid.UUID, ev websocket.Event) {
	b.record("user", userID, ev)
}

func (b *recordingBroadcaster) PublishGlobal(ev websocket.Event) {
	b.record("global", uuid.Nil, ev)
}

func (b *recordingBroadcaster) record(scope string, target uuid.UUID, ev websocket.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sentEvent{scope: scope, target: target, event: ev})
}

func (b *recordingBroadcaster) ofType(t websocket.EventType) []sentEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []sentEvent
	for _, e := range b.events {
		if e.event.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return nil
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memStorage) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[key] = data
	return "https://files.test/" + key, nil
}

// env wires every service against one in-memory store with secondary
// effects run inline.
type env struct {
	store       *store
	cache       *memCache
	broadcaster *recordingBroadcaster
	publisher   *recordingPublisher
	storage     *memStorage
	clock       time.Time

	stats    *StatsService
	sessions *SessionService
	chat     *ChatService
	ratings  *RatingService
}

func newEnv() *env {
	e := &env{
		store:       newStore(),
		cache:       &memCache{},
		broadcaster: &recordingBroadcaster{},
		publisher:   &recordingPublisher{},
		storage:     &memStorage{},
		clock:       time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	log := zerolog.Nop()
	dispatcher := InlineDispatcher{Log: log}
	now := func() time.Time { return e.clock }

	e.stats = NewStatsService(sessionFake{e.store}, logFake{e.store}, ratingFake{e.store}, statsFake{e.store}, userFake{e.store}, e.cache, e.publisher, 2, log)
	e.stats.now = now

	e.sessions = NewSessionService(sessionFake{e.store}, userFake{e.store}, e.stats, dispatcher, e.broadcaster, e.publisher, log)
	e.sessions.now = now

	e.chat = NewChatService(sessionFake{e.store}, messageFake{e.store}, e.storage, e.broadcaster, log)
	e.chat.now = now

	e.ratings = NewRatingService(sessionFake{e.store}, ratingFake{e.store}, e.stats, dispatcher, e.broadcaster, e.publisher, log)
	return e
}

func (e *env) advance(d time.Duration) {
	e.clock = e.clock.Add(d)
}
