package models

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// RatingDistribution counts ratings by star value. Index 0 is unused.
type RatingDistribution [MaxRating + 1]int

// Map renders the distribution keyed "1".."5" for JSON consumers.
func (d RatingDistribution) Map() map[string]int {
	out := make(map[string]int, MaxRating)
	for star := MinRating; star <= MaxRating; star++ {
		out[strconv.Itoa(star)] = d[star]
	}
	return out
}

func (d RatingDistribution) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Map())
}

func (d *RatingDistribution) UnmarshalJSON(data []byte) error {
	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*d = RatingDistribution{}
	for star := MinRating; star <= MaxRating; star++ {
		d[star] = m[strconv.Itoa(star)]
	}
	return nil
}

func (d RatingDistribution) Total() int {
	total := 0
	for star := MinRating; star <= MaxRating; star++ {
		total += d[star]
	}
	return total
}

// Average is the mean rating rounded to one decimal place, 0 when empty.
func (d RatingDistribution) Average() float64 {
	total := d.Total()
	if total == 0 {
		return 0
	}
	sum := 0
	for star := MinRating; star <= MaxRating; star++ {
		sum += star * d[star]
	}
	return math.Round(float64(sum)/float64(total)*10) / 10
}

type MentorStatistics struct {
	MentorID           uuid.UUID          `db:"mentor_id" json:"mentorId"`
	AverageRating      float64            `db:"average_rating" json:"averageRating"`
	TotalRatings       int                `db:"total_ratings" json:"totalRatings"`
	RatingDistribution RatingDistribution `db:"-" json:"ratingDistribution"`
	StudentsHelped     int                `db:"students_helped" json:"studentsHelped"`
	TotalMinutes       int                `db:"total_minutes" json:"totalMinutes"`
	LastUpdated        time.Time          `db:"last_updated" json:"lastUpdated"`
}

// BuildMentorStatistics derives the statistics snapshot from raw aggregates.
func BuildMentorStatistics(mentorID uuid.UUID, dist RatingDistribution, studentsHelped, totalMinutes int, now time.Time) *MentorStatistics {
	return &MentorStatistics{
		MentorID:           mentorID,
		AverageRating:      dist.Average(),
		TotalRatings:       dist.Total(),
		RatingDistribution: dist,
		StudentsHelped:     studentsHelped,
		TotalMinutes:       totalMinutes,
		LastUpdated:        now.UTC(),
	}
}

// SameFigures compares everything except LastUpdated.
func (s *MentorStatistics) SameFigures(o *MentorStatistics) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.MentorID == o.MentorID &&
		s.AverageRating == o.AverageRating &&
		s.TotalRatings == o.TotalRatings &&
		s.RatingDistribution == o.RatingDistribution &&
		s.StudentsHelped == o.StudentsHelped &&
		s.TotalMinutes == o.TotalMinutes
}
