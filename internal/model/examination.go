package model

import (
	"time"

	"github.com/google/uuid"
)

// Examination is an exam definition. The session/scoring core reads it
// only; authoring owns its mutation. It is treated as immutable while a
// candidate's session is in flight.
type Examination struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	DurationMinutes int       `json:"duration_minutes"`
	OpensAt         time.Time `json:"opens_at"`
	ClosesAt        time.Time `json:"closes_at"`
	IsPublished     bool      `json:"is_published"`
	McqPoints       float64   `json:"mcq_points"`
	WrittenPoints   float64   `json:"written_points"`
	ProblemPoints   float64   `json:"problem_points"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Deadline computes the effective submission deadline for a session that
// started at the given instant: min(start + duration, closesAt).
func (e *Examination) Deadline(startedAt time.Time) time.Time {
	d := startedAt.Add(time.Duration(e.DurationMinutes) * time.Minute)
	if d.After(e.ClosesAt) {
		return e.ClosesAt
	}
	return d
}
