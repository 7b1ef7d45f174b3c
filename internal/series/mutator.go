// Package series applies changes to one instance of a recurring series
// without disturbing sibling instances or the generating rule.
package series

import (
	"time"

	"github.com/google/uuid"

	"github.com/fitagenda/fitagenda/internal/conflict"
	"github.com/fitagenda/fitagenda/internal/model"
)

// Change is the set of fields a single-instance edit may touch. Nil
// means "leave as is".
type Change struct {
	StartTime *time.Time
	EndTime   *time.Time
	Status    *model.InstanceStatus
	StudentID *int64
	Location  *string
	Value     *int64
	Service   *string
	Notes     *string
}

func (c Change) movesWindow() bool {
	return c.StartTime != nil || c.EndTime != nil
}

func (c Change) diverges() bool {
	return c.movesWindow() || c.StudentID != nil
}

// Mutator applies per-instance changes, re-checking conflicts whenever
// the time window moves.
type Mutator struct {
	checker *conflict.Checker
}

func NewMutator(checker *conflict.Checker) *Mutator {
	return &Mutator{checker: checker}
}

// Apply returns an updated copy of inst with the change applied. The
// input is never mutated. When the window moves, the new window is
// conflict-checked against existing (the instance itself excluded) and a
// *model.ConflictError is returned on collision; the caller decides
// whether to abort or force. The first divergence snapshots the original
// window; later changes never overwrite the snapshot.
func (m *Mutator) Apply(inst *model.Instance, change Change, existing []*model.Instance) (*model.Instance, error) {
	updated := *inst

	if change.movesWindow() {
		newStart := updated.StartTime
		newEnd := updated.EndTime
		if change.StartTime != nil {
			newStart = *change.StartTime
		}
		if change.EndTime != nil {
			newEnd = *change.EndTime
		}

		window := conflict.Window{ProfessorID: updated.ProfessorID, Start: newStart, End: newEnd}
		result, err := m.checker.Check(window, excludeInstance(existing, inst.ID))
		if err != nil {
			return nil, err
		}
		if result.HasConflict {
			return nil, &model.ConflictError{Conflicts: result.Conflicts, Suggestions: result.Suggestions}
		}

		updated.StartTime = newStart
		updated.EndTime = newEnd
		// A moved session that was still plainly scheduled is marked
		// rescheduled unless the change names a status itself.
		if change.Status == nil && updated.Status == model.StatusScheduled {
			updated.Status = model.StatusRescheduled
		}
	}

	if change.diverges() && !inst.IsModified {
		origStart := inst.StartTime
		origEnd := inst.EndTime
		updated.IsModified = true
		updated.OriginalStartTime = &origStart
		updated.OriginalEndTime = &origEnd
	}

	if change.Status != nil {
		updated.Status = *change.Status
	}
	if change.StudentID != nil {
		updated.StudentID = *change.StudentID
	}
	if change.Location != nil {
		updated.Location = *change.Location
	}
	if change.Value != nil {
		updated.Value = *change.Value
	}
	if change.Service != nil {
		updated.Service = *change.Service
	}
	if change.Notes != nil {
		updated.Notes = *change.Notes
	}

	return &updated, nil
}

func excludeInstance(existing []*model.Instance, id uuid.UUID) []*model.Instance {
	filtered := make([]*model.Instance, 0, len(existing))
	for _, inst := range existing {
		if inst.ID == id {
			continue
		}
		filtered = append(filtered, inst)
	}
	return filtered
}
