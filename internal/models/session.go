package models

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionStatusRequested     SessionStatus = "requested"
	SessionStatusActive        SessionStatus = "active"
	SessionStatusCompleted     SessionStatus = "completed"
	SessionStatusPendingRating SessionStatus = "pending_rating"
	SessionStatusCancelled     SessionStatus = "cancelled"
)

// Terminal reports whether no further transition leaves s.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusCancelled
}

// Readable reports whether the message archive of a session in status s
// may be read.
func (s SessionStatus) Readable() bool {
	switch s {
	case SessionStatusActive, SessionStatusCompleted, SessionStatusPendingRating:
		return true
	}
	return false
}

// Rateable reports whether a rating may be submitted for a session in status s.
func (s SessionStatus) Rateable() bool {
	return s == SessionStatusCompleted || s == SessionStatusPendingRating
}

type Session struct {
	ID       uuid.UUID  `db:"id" json:"id"`
	MenteeID uuid.UUID  `db:"mentee_id" json:"menteeId"`
	MentorID uuid.UUID  `db:"mentor_id" json:"mentorId"`
	CourseID *uuid.UUID `db:"course_id" json:"courseId,omitempty"`

	Description   string     `db:"description" json:"description"`
	PreferredTime *time.Time `db:"preferred_time" json:"preferredTime,omitempty"`
	Summary       string     `db:"summary" json:"summary,omitempty"`

	Status SessionStatus `db:"status" json:"status"`

	ScheduledTime *time.Time `db:"scheduled_time" json:"scheduledTime,omitempty"`
	StartedAt     *time.Time `db:"started_at" json:"startedAt,omitempty"`
	EndedAt       *time.Time `db:"ended_at" json:"endedAt,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// IsParticipant reports whether userID is the mentee or the mentor.
func (s *Session) IsParticipant(userID uuid.UUID) bool {
	return userID == s.MenteeID || userID == s.MentorID
}

// OtherParticipant returns the counterpart of userID.
func (s *Session) OtherParticipant(userID uuid.UUID) uuid.UUID {
	if userID == s.MenteeID {
		return s.MentorID
	}
	return s.MenteeID
}

// SessionLog is the duration record written when an active session ends.
type SessionLog struct {
	ID              uuid.UUID  `db:"id"`
	SessionID       uuid.UUID  `db:"session_id"`
	MenteeID        uuid.UUID  `db:"mentee_id"`
	MentorID        uuid.UUID  `db:"mentor_id"`
	CourseID        *uuid.UUID `db:"course_id"`
	DurationMinutes int        `db:"duration_minutes"`
	CreatedAt       time.Time  `db:"created_at"`
}

// SessionHistoryEntry is a finished session joined with its duration log.
type SessionHistoryEntry struct {
	Session
	DurationMinutes int `db:"duration_minutes" json:"durationMinutes"`
}
