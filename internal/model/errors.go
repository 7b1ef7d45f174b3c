package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ValidationError is a malformed-request error: the request cannot
// succeed without changing its shape. Carries field-level detail for the
// UI to render inline.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = message
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e.Fields[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Conflict is one detected overlap between a candidate window and an
// existing session on the same professor's schedule.
type Conflict struct {
	ProfessorID    int64     `json:"professorId"`
	CandidateStart time.Time `json:"candidateStart"`
	CandidateEnd   time.Time `json:"candidateEnd"`
	ExistingID     uuid.UUID `json:"existingId"`
	ExistingStart  time.Time `json:"existingStart"`
	ExistingEnd    time.Time `json:"existingEnd"`
}

// TimeSlot is a suggested alternative window for a conflicting candidate.
type TimeSlot struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// ConflictError is a structurally valid request that collides with the
// existing schedule. Retryable with a different time; carries the
// conflicts and alternatives so the caller can re-prompt the user.
type ConflictError struct {
	Conflicts   []Conflict
	Suggestions []TimeSlot
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("schedule conflict: %d overlapping session(s)", len(e.Conflicts))
}

// NotFoundError is a reference to a rule or instance that no longer
// exists.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}
