package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRatingDistribution(t *testing.T) {
	d := RatingDistribution{0, 0, 0, 0, 2, 1}
	if d.Total() != 3 {
		t.Fatalf("expected 3 ratings, got %d", d.Total())
	}
	if d.Average() != 4.3 {
		t.Fatalf("expected 4.3, got %v", d.Average())
	}
	if (RatingDistribution{}).Average() != 0 {
		t.Fatal("empty distribution must average 0")
	}

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"1":0,"2":0,"3":0,"4":2,"5":1}` {
		t.Fatalf("unexpected json %s", data)
	}

	var back RatingDistribution
	if err := json.Unmarshal([]byte(`{"5":7,"9":3}`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back[5] != 7 || back.Total() != 7 {
		t.Fatalf("unexpected distribution %v", back)
	}
}

func TestBuildMentorStatistics(t *testing.T) {
	mentorID := uuid.New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))

	s := BuildMentorStatistics(mentorID, RatingDistribution{0, 1, 0, 0, 0, 1}, 2, 90, now)
	if s.AverageRating != 3 || s.TotalRatings != 2 || s.StudentsHelped != 2 || s.TotalMinutes != 90 {
		t.Fatalf("unexpected statistics %+v", s)
	}
	if s.LastUpdated.Location() != time.UTC {
		t.Fatal("expected LastUpdated in UTC")
	}

	other := *s
	other.LastUpdated = now.Add(time.Hour)
	if !s.SameFigures(&other) {
		t.Fatal("LastUpdated must not affect SameFigures")
	}
	other.TotalMinutes++
	if s.SameFigures(&other) {
		t.Fatal("expected differing minutes to be detected")
	}
}

func TestClampRating(t *testing.T) {
	for in, want := range map[int]int{-1: 1, 0: 1, 1: 1, 4: 4, 5: 5, 6: 5, 100: 5} {
		if got := ClampRating(in); got != want {
			t.Errorf("ClampRating(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestMessageTypeFor(t *testing.T) {
	tests := []struct {
		att  *Attachment
		want MessageType
	}{
		{nil, MessageTypeText},
		{&Attachment{MIMEType: "image/png"}, MessageTypeImage},
		{&Attachment{MIMEType: "IMAGE/JPEG"}, MessageTypeImage},
		{&Attachment{MIMEType: "application/pdf"}, MessageTypeFile},
		{&Attachment{}, MessageTypeFile},
	}
	for _, tt := range tests {
		if got := MessageTypeFor(tt.att); got != tt.want {
			t.Errorf("MessageTypeFor(%+v) = %s, want %s", tt.att, got, tt.want)
		}
	}
}

func TestSessionStatusPredicates(t *testing.T) {
	tests := []struct {
		status                       SessionStatus
		terminal, readable, rateable bool
	}{
		{SessionStatusRequested, false, false, false},
		{SessionStatusActive, false, true, false},
		{SessionStatusPendingRating, false, true, true},
		{SessionStatusCompleted, true, true, true},
		{SessionStatusCancelled, true, false, false},
	}
	for _, tt := range tests {
		if tt.status.Terminal() != tt.terminal || tt.status.Readable() != tt.readable || tt.status.Rateable() != tt.rateable {
			t.Errorf("%s: unexpected predicates", tt.status)
		}
	}
}

func TestParticipants(t *testing.T) {
	s := &Session{MenteeID: uuid.New(), MentorID: uuid.New()}
	if !s.IsParticipant(s.MenteeID) || !s.IsParticipant(s.MentorID) || s.IsParticipant(uuid.New()) {
		t.Fatal("unexpected participant check")
	}
	if s.OtherParticipant(s.MenteeID) != s.MentorID || s.OtherParticipant(s.MentorID) != s.MenteeID {
		t.Fatal("unexpected counterpart")
	}

	var u *User
	if u.IsApprovedMentor() {
		t.Fatal("nil user is not a mentor")
	}
	if !(&User{Role: RoleMentor, Approved: true}).IsApprovedMentor() || (&User{Role: RoleMentor}).IsApprovedMentor() {
		t.Fatal("unexpected approval check")
	}
}
