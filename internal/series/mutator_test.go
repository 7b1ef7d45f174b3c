package series

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitagenda/fitagenda/internal/conflict"
	"github.com/fitagenda/fitagenda/internal/model"
)

func newTestMutator() *Mutator {
	checker := conflict.NewChecker(15*time.Minute,
		model.TimeOfDay{Hour: 6},
		model.TimeOfDay{Hour: 22},
	)
	return NewMutator(checker)
}

func scheduledInstance() *model.Instance {
	ruleID := uuid.New()
	return &model.Instance{
		ID:               uuid.New(),
		RecurrenceRuleID: &ruleID,
		ProfessorID:      1,
		StudentID:        2,
		StartTime:        time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
		EndTime:          time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
		Status:           model.StatusScheduled,
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func TestApplyTimeChangeSnapshotsOriginal(t *testing.T) {
	mutator := newTestMutator()
	inst := scheduledInstance()
	origStart := inst.StartTime
	origEnd := inst.EndTime

	updated, err := mutator.Apply(inst, Change{
		StartTime: timePtr(time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC)),
		EndTime:   timePtr(time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)),
	}, nil)
	require.NoError(t, err)

	assert.True(t, updated.IsModified)
	require.NotNil(t, updated.OriginalStartTime)
	require.NotNil(t, updated.OriginalEndTime)
	assert.Equal(t, origStart, *updated.OriginalStartTime)
	assert.Equal(t, origEnd, *updated.OriginalEndTime)
	assert.Equal(t, model.StatusRescheduled, updated.Status)

	// The input instance is left untouched.
	assert.False(t, inst.IsModified)
	assert.Equal(t, origStart, inst.StartTime)
}

func TestApplySnapshotIsIdempotent(t *testing.T) {
	mutator := newTestMutator()
	inst := scheduledInstance()
	firstStart := inst.StartTime
	firstEnd := inst.EndTime

	once, err := mutator.Apply(inst, Change{
		StartTime: timePtr(time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC)),
		EndTime:   timePtr(time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)),
	}, nil)
	require.NoError(t, err)

	twice, err := mutator.Apply(once, Change{
		StartTime: timePtr(time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC)),
		EndTime:   timePtr(time.Date(2024, 1, 2, 17, 0, 0, 0, time.UTC)),
	}, nil)
	require.NoError(t, err)

	// The first divergence is the one worth remembering.
	assert.Equal(t, firstStart, *twice.OriginalStartTime)
	assert.Equal(t, firstEnd, *twice.OriginalEndTime)
	assert.Equal(t, time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC), twice.StartTime)
}

func TestApplyConflictingMoveRejected(t *testing.T) {
	mutator := newTestMutator()
	inst := scheduledInstance()
	neighbor := &model.Instance{
		ID:          uuid.New(),
		ProfessorID: 1,
		StudentID:   3,
		StartTime:   time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC),
		Status:      model.StatusScheduled,
	}

	_, err := mutator.Apply(inst, Change{
		StartTime: timePtr(time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)),
		EndTime:   timePtr(time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC)),
	}, []*model.Instance{neighbor})

	var cerr *model.ConflictError
	require.ErrorAs(t, err, &cerr)
	require.Len(t, cerr.Conflicts, 1)
	assert.Equal(t, neighbor.ID, cerr.Conflicts[0].ExistingID)
	assert.NotEmpty(t, cerr.Suggestions)
}

func TestApplyMoveExcludesSelf(t *testing.T) {
	// Shifting a session 30 minutes overlaps its own old window; that
	// must not count as a conflict.
	mutator := newTestMutator()
	inst := scheduledInstance()

	updated, err := mutator.Apply(inst, Change{
		StartTime: timePtr(inst.StartTime.Add(30 * time.Minute)),
		EndTime:   timePtr(inst.EndTime.Add(30 * time.Minute)),
	}, []*model.Instance{inst})
	require.NoError(t, err)

	assert.Equal(t, inst.StartTime.Add(30*time.Minute), updated.StartTime)
}

func TestApplyConflictingMoveIgnoresCancelled(t *testing.T) {
	mutator := newTestMutator()
	inst := scheduledInstance()
	cancelled := &model.Instance{
		ID:          uuid.New(),
		ProfessorID: 1,
		StudentID:   3,
		StartTime:   time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC),
		Status:      model.StatusCancelled,
	}

	updated, err := mutator.Apply(inst, Change{
		StartTime: timePtr(time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC)),
		EndTime:   timePtr(time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)),
	}, []*model.Instance{cancelled})
	require.NoError(t, err)
	assert.Equal(t, cancelled.StartTime, updated.StartTime)
}

func TestApplyInvalidWindowRejected(t *testing.T) {
	mutator := newTestMutator()
	inst := scheduledInstance()

	_, err := mutator.Apply(inst, Change{
		StartTime: timePtr(time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)),
		EndTime:   timePtr(time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC)),
	}, nil)

	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestApplyStatusOnlyChange(t *testing.T) {
	mutator := newTestMutator()
	inst := scheduledInstance()
	status := model.StatusCompleted

	updated, err := mutator.Apply(inst, Change{Status: &status}, nil)
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, updated.Status)
	// A status change alone is not a divergence from the series.
	assert.False(t, updated.IsModified)
	assert.Nil(t, updated.OriginalStartTime)
}

func TestApplyExplicitStatusWinsOverReschedule(t *testing.T) {
	mutator := newTestMutator()
	inst := scheduledInstance()
	status := model.StatusCancelled

	updated, err := mutator.Apply(inst, Change{
		StartTime: timePtr(time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC)),
		EndTime:   timePtr(time.Date(2024, 1, 2, 17, 0, 0, 0, time.UTC)),
		Status:    &status,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, model.StatusCancelled, updated.Status)
	assert.True(t, updated.IsModified)
}

func TestApplyStudentChangeDiverges(t *testing.T) {
	mutator := newTestMutator()
	inst := scheduledInstance()
	newStudent := int64(42)

	updated, err := mutator.Apply(inst, Change{StudentID: &newStudent}, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(42), updated.StudentID)
	assert.True(t, updated.IsModified)
	// The original window is snapshotted even though only the
	// participant changed, keeping the audit invariant.
	require.NotNil(t, updated.OriginalStartTime)
	assert.Equal(t, inst.StartTime, *updated.OriginalStartTime)
}
