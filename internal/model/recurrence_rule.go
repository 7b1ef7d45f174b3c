package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type RecurrenceType string

const (
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
	RecurrenceYearly  RecurrenceType = "yearly"
)

// ParseRecurrenceType validates a wire-level recurrence type string.
func ParseRecurrenceType(s string) (RecurrenceType, error) {
	switch RecurrenceType(strings.ToLower(s)) {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return RecurrenceType(strings.ToLower(s)), nil
	}
	return "", fmt.Errorf("unknown recurrence type %q", s)
}

type EndType string

const (
	EndNever EndType = "never"
	EndDate  EndType = "date"
	EndCount EndType = "count"
)

// ParseEndType validates a wire-level end condition type string.
func ParseEndType(s string) (EndType, error) {
	switch EndType(strings.ToLower(s)) {
	case EndNever, EndDate, EndCount:
		return EndType(strings.ToLower(s)), nil
	}
	return "", fmt.Errorf("unknown end type %q", s)
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday maps a lowercase-insensitive weekday name to time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", name)
	}
	return wd, nil
}

// ParseWeekdays parses a set of weekday names, deduplicated and sorted
// Sunday-first. The listed order on the wire carries no meaning.
func ParseWeekdays(names []string) ([]time.Weekday, error) {
	seen := make(map[time.Weekday]bool, len(names))
	var days []time.Weekday
	for _, name := range names {
		wd, err := ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		if !seen[wd] {
			seen[wd] = true
			days = append(days, wd)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days, nil
}

// Recurrence is the repetition pattern of a rule. WeekDays is only
// meaningful for weekly rules; empty means "the anchor's own weekday".
type Recurrence struct {
	Type     RecurrenceType `json:"type"`
	Interval int            `json:"interval"`
	WeekDays []time.Weekday `json:"weekDays,omitempty"`
}

// RecurrenceEnd is the closed end-condition variant: exactly one of the
// optional fields is set, matching Type.
type RecurrenceEnd struct {
	Type  EndType    `json:"endType"`
	Date  *time.Time `json:"endDate,omitempty"`
	Count *int       `json:"endCount,omitempty"`
}

// RecurrenceRule is the template one series of sessions is generated from.
// Immutable after creation except the IsActive toggle.
type RecurrenceRule struct {
	ID          uuid.UUID     `json:"id"`
	GroupID     uuid.UUID     `json:"recurrenceGroupId"`
	ProfessorID int64         `json:"professorId"`
	StudentID   int64         `json:"studentId"`
	StartDate   time.Time     `json:"startDate"` // calendar date of the first candidate occurrence
	StartTime   TimeOfDay     `json:"startTime"`
	EndTime     TimeOfDay     `json:"endTime"`
	Recurrence  Recurrence    `json:"regras"`
	End         RecurrenceEnd `json:"end"`
	Location    string        `json:"location"`
	Value       int64         `json:"value"` // minor currency units (cents)
	Service     string        `json:"service"`
	Notes       string        `json:"notes"`
	IsActive    bool          `json:"isActive"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// Validate rejects malformed rules before any expansion work begins.
func (r *RecurrenceRule) Validate() error {
	verr := NewValidationError()

	if r.ProfessorID == 0 {
		verr.Add("professorId", "is required")
	}
	if r.StudentID == 0 {
		verr.Add("studentId", "is required")
	}
	if r.StartDate.IsZero() {
		verr.Add("startDate", "is required")
	}

	switch r.Recurrence.Type {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
	default:
		verr.Add("regras.type", fmt.Sprintf("unknown recurrence type %q", r.Recurrence.Type))
	}
	if r.Recurrence.Interval <= 0 {
		verr.Add("regras.interval", "must be a positive integer")
	}
	if len(r.Recurrence.WeekDays) > 0 && r.Recurrence.Type != RecurrenceWeekly {
		verr.Add("regras.weekDays", "only allowed for weekly recurrence")
	}

	if !r.StartTime.Before(r.EndTime) {
		verr.Add("endTime", "must be after startTime")
	}

	switch r.End.Type {
	case EndNever:
		if r.End.Date != nil || r.End.Count != nil {
			verr.Add("end", "endDate/endCount not allowed when endType=never")
		}
	case EndDate:
		if r.End.Date == nil {
			verr.Add("endDate", "is required when endType=date")
		} else if r.End.Date.Before(r.StartDate) {
			verr.Add("endDate", "must be on or after startDate")
		}
	case EndCount:
		if r.End.Count == nil {
			verr.Add("endCount", "is required when endType=count")
		} else if *r.End.Count < 1 {
			verr.Add("endCount", "must be at least 1")
		}
	default:
		verr.Add("endType", fmt.Sprintf("unknown end type %q", r.End.Type))
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// EffectiveWeekDays returns the weekday filter a weekly rule expands
// under: the explicit set when present, otherwise the anchor's weekday.
func (r *RecurrenceRule) EffectiveWeekDays() []time.Weekday {
	if len(r.Recurrence.WeekDays) > 0 {
		return r.Recurrence.WeekDays
	}
	return []time.Weekday{r.StartDate.Weekday()}
}
