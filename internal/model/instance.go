package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type InstanceStatus string

const (
	StatusScheduled   InstanceStatus = "scheduled"
	StatusInProgress  InstanceStatus = "in_progress"
	StatusCompleted   InstanceStatus = "completed"
	StatusCancelled   InstanceStatus = "cancelled"
	StatusRescheduled InstanceStatus = "rescheduled"
)

// ParseInstanceStatus validates a wire-level status string.
func ParseInstanceStatus(s string) (InstanceStatus, error) {
	switch InstanceStatus(strings.ToLower(s)) {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled, StatusRescheduled:
		return InstanceStatus(strings.ToLower(s)), nil
	}
	return "", fmt.Errorf("unknown instance status %q", s)
}

// Instance is one concrete dated session, standalone or generated from a
// rule. Once IsModified flips true the Original* snapshot is permanent.
type Instance struct {
	ID                uuid.UUID      `json:"id"`
	RecurrenceRuleID  *uuid.UUID     `json:"recurrenceRuleId"` // nil = one-off session
	ProfessorID       int64          `json:"professorId"`
	StudentID         int64          `json:"studentId"`
	StartTime         time.Time      `json:"startTime"`
	EndTime           time.Time      `json:"endTime"`
	Location          string         `json:"location"`
	Value             int64          `json:"value"` // minor currency units (cents)
	Service           string         `json:"service"`
	Notes             string         `json:"notes"`
	Status            InstanceStatus `json:"status"`
	IsModified        bool           `json:"isModified"`
	OriginalStartTime *time.Time     `json:"originalStartTime,omitempty"`
	OriginalEndTime   *time.Time     `json:"originalEndTime,omitempty"`
	IsSeriesAnchor    bool           `json:"isSeriesAnchor"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// Validate rejects a malformed session window.
func (i *Instance) Validate() error {
	verr := NewValidationError()
	if i.ProfessorID == 0 {
		verr.Add("professorId", "is required")
	}
	if i.StudentID == 0 {
		verr.Add("studentId", "is required")
	}
	if !i.EndTime.After(i.StartTime) {
		verr.Add("endTime", "must be after startTime")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// OccupiesSchedule reports whether this instance still blocks its time
// slot. A cancelled session frees the slot; a completed one does not, it
// happened and stays on the calendar.
func (i *Instance) OccupiesSchedule() bool {
	return i.Status != StatusCancelled
}
