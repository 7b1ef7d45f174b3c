// Package conflict detects scheduling collisions on a professor's
// calendar. The checker is pure over its inputs: the caller supplies the
// existing instances, nothing is fetched internally.
package conflict

import (
	"fmt"
	"sort"
	"time"

	"github.com/fitagenda/fitagenda/internal/model"
)

const (
	// DefaultTolerance is the buffer padded around a candidate window,
	// covering travel/setup time between sessions.
	DefaultTolerance = 15 * time.Minute

	// MaxSuggestions caps how many alternative slots are proposed for a
	// conflicting candidate.
	MaxSuggestions = 5

	suggestionStep = 30 * time.Minute
)

// Window is a candidate time slot to be checked before commit.
type Window struct {
	ProfessorID int64
	Start       time.Time
	End         time.Time
}

// Result is the outcome of a conflict check. A non-empty conflict list
// is a normal result, not an error.
type Result struct {
	HasConflict bool             `json:"hasConflict"`
	Conflicts   []model.Conflict `json:"conflicts"`
	Suggestions []model.TimeSlot `json:"suggestions"`
}

// Checker holds the conflict-detection policy knobs. The zero value is
// not usable; construct with NewChecker.
type Checker struct {
	tolerance     time.Duration
	businessStart model.TimeOfDay
	businessEnd   model.TimeOfDay
}

// NewChecker builds a checker with the given tolerance window and the
// business-hours ladder alternative slots are probed from.
func NewChecker(tolerance time.Duration, businessStart, businessEnd model.TimeOfDay) *Checker {
	return &Checker{
		tolerance:     tolerance,
		businessStart: businessStart,
		businessEnd:   businessEnd,
	}
}

// Tolerance returns the configured buffer duration.
func (c *Checker) Tolerance() time.Duration {
	return c.tolerance
}

// Check finds every existing non-cancelled session of the same professor
// whose window intersects the candidate's tolerance-padded window.
// Conflicts are ordered by the existing session's start time.
func (c *Checker) Check(candidate Window, existing []*model.Instance) (*Result, error) {
	if err := validateWindow(candidate); err != nil {
		return nil, err
	}

	conflicts := c.collect(candidate, existing)
	result := &Result{
		HasConflict: len(conflicts) > 0,
		Conflicts:   conflicts,
	}
	if result.HasConflict {
		result.Suggestions = c.suggest(candidate, existing)
	}
	return result, nil
}

// CheckBatch validates a set of candidates produced by one rule
// expansion: each candidate is checked against the full existing set and
// against every earlier candidate already accepted in this batch, so a
// series cannot conflict with itself. Suggestions are computed for the
// first conflicting candidate only.
func (c *Checker) CheckBatch(candidates, existing []*model.Instance) (*Result, error) {
	result := &Result{}
	var accepted []*model.Instance

	for _, cand := range candidates {
		if err := cand.Validate(); err != nil {
			return nil, err
		}
		window := Window{ProfessorID: cand.ProfessorID, Start: cand.StartTime, End: cand.EndTime}

		conflicts := c.collect(window, existing)
		conflicts = append(conflicts, c.collect(window, accepted)...)

		if len(conflicts) == 0 {
			accepted = append(accepted, cand)
			continue
		}
		if !result.HasConflict {
			result.Suggestions = c.suggest(window, existing)
		}
		result.HasConflict = true
		result.Conflicts = append(result.Conflicts, conflicts...)
	}

	return result, nil
}

func validateWindow(w Window) error {
	verr := model.NewValidationError()
	if w.ProfessorID == 0 {
		verr.Add("professorId", "is required")
	}
	if !w.End.After(w.Start) {
		verr.Add("endTime", "must be after startTime")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

func (c *Checker) collect(candidate Window, existing []*model.Instance) []model.Conflict {
	padStart := candidate.Start.Add(-c.tolerance)
	padEnd := candidate.End.Add(c.tolerance)

	var conflicts []model.Conflict
	for _, inst := range existing {
		if inst.ProfessorID != candidate.ProfessorID || !inst.OccupiesSchedule() {
			continue
		}
		// Half-open interval overlap; tolerance pads the candidate side
		// only, so checking many candidates against one existing set
		// never double-counts the buffer.
		if padStart.Before(inst.EndTime) && inst.StartTime.Before(padEnd) {
			conflicts = append(conflicts, model.Conflict{
				ProfessorID:    candidate.ProfessorID,
				CandidateStart: candidate.Start,
				CandidateEnd:   candidate.End,
				ExistingID:     inst.ID,
				ExistingStart:  inst.StartTime,
				ExistingEnd:    inst.EndTime,
			})
		}
	}
	sort.Slice(conflicts, func(i, j int) bool {
		return conflicts[i].ExistingStart.Before(conflicts[j].ExistingStart)
	})
	return conflicts
}

// suggest probes half-hour slot starts across business hours on the
// candidate's date, keeping the first MaxSuggestions windows of the same
// duration that check clean, sorted by proximity to the requested start.
func (c *Checker) suggest(candidate Window, existing []*model.Instance) []model.TimeSlot {
	duration := candidate.End.Sub(candidate.Start)
	dayStart := c.businessStart.On(candidate.Start)
	dayEnd := c.businessEnd.On(candidate.Start)

	var free []model.TimeSlot
	for start := dayStart; !start.Add(duration).After(dayEnd); start = start.Add(suggestionStep) {
		probe := Window{ProfessorID: candidate.ProfessorID, Start: start, End: start.Add(duration)}
		if len(c.collect(probe, existing)) == 0 {
			free = append(free, model.TimeSlot{StartTime: probe.Start, EndTime: probe.End})
		}
	}

	sort.SliceStable(free, func(i, j int) bool {
		return absDuration(free[i].StartTime.Sub(candidate.Start)) < absDuration(free[j].StartTime.Sub(candidate.Start))
	})
	if len(free) > MaxSuggestions {
		free = free[:MaxSuggestions]
	}
	return free
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// String implements a compact log form for a window.
func (w Window) String() string {
	return fmt.Sprintf("professor=%d %s..%s", w.ProfessorID, w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}
