package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitagenda/fitagenda/internal/model"
)

func testRule(recType model.RecurrenceType, interval int, startDate time.Time) *model.RecurrenceRule {
	return &model.RecurrenceRule{
		ProfessorID: 1,
		StudentID:   2,
		StartDate:   startDate,
		StartTime:   model.TimeOfDay{Hour: 9},
		EndTime:     model.TimeOfDay{Hour: 10},
		Recurrence:  model.Recurrence{Type: recType, Interval: interval},
		End:         model.RecurrenceEnd{Type: model.EndNever},
	}
}

func endAfter(count int) model.RecurrenceEnd {
	return model.RecurrenceEnd{Type: model.EndCount, Count: &count}
}

func endOn(date time.Time) model.RecurrenceEnd {
	return model.RecurrenceEnd{Type: model.EndDate, Date: &date}
}

func wideHorizon() Horizon {
	return Horizon{MaxOccurrences: 1000, Until: time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func starts(instances []*model.Instance) []time.Time {
	out := make([]time.Time, len(instances))
	for i, inst := range instances {
		out[i] = inst.StartTime
	}
	return out
}

func TestExpandDaily(t *testing.T) {
	rule := testRule(model.RecurrenceDaily, 3, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	rule.End = endAfter(4)

	instances, err := Expand(rule, wideHorizon())
	require.NoError(t, err)

	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 4, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 7, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
	}, starts(instances))
}

func TestExpandDeterminism(t *testing.T) {
	rule := testRule(model.RecurrenceWeekly, 1, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	rule.Recurrence.WeekDays = []time.Weekday{time.Tuesday, time.Thursday}
	rule.End = endAfter(10)

	first, err := Expand(rule, wideHorizon())
	require.NoError(t, err)
	second, err := Expand(rule, wideHorizon())
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].StartTime, second[i].StartTime)
		assert.Equal(t, first[i].EndTime, second[i].EndTime)
		assert.Equal(t, first[i].IsSeriesAnchor, second[i].IsSeriesAnchor)
	}
}

func TestExpandWeeklyWeekdayFilter(t *testing.T) {
	// Monday Jan 1 2024; four full weeks through Sunday Jan 28.
	rule := testRule(model.RecurrenceWeekly, 1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	rule.Recurrence.WeekDays = []time.Weekday{time.Monday, time.Wednesday}
	rule.End = endOn(time.Date(2024, 1, 28, 0, 0, 0, 0, time.UTC))

	instances, err := Expand(rule, wideHorizon())
	require.NoError(t, err)

	require.Len(t, instances, 8)
	for _, inst := range instances {
		wd := inst.StartTime.Weekday()
		assert.True(t, wd == time.Monday || wd == time.Wednesday, "unexpected weekday %s", wd)
	}
	// Emitted in increasing date order regardless of how the set was listed.
	for i := 1; i < len(instances); i++ {
		assert.True(t, instances[i-1].StartTime.Before(instances[i].StartTime))
	}
}

func TestExpandWeeklyIntervalSkip(t *testing.T) {
	// Friday Jan 5 2024, every other week.
	rule := testRule(model.RecurrenceWeekly, 2, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	rule.Recurrence.WeekDays = []time.Weekday{time.Friday}
	rule.End = endAfter(4)

	instances, err := Expand(rule, wideHorizon())
	require.NoError(t, err)

	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 19, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 2, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 16, 9, 0, 0, 0, time.UTC),
	}, starts(instances))
}

func TestExpandWeeklyAnchorNotInSet(t *testing.T) {
	// Anchor is Tuesday Jan 2, filter wants Wednesdays: the first
	// occurrence is Jan 3, later than the anchor date.
	rule := testRule(model.RecurrenceWeekly, 1, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	rule.Recurrence.WeekDays = []time.Weekday{time.Wednesday}
	rule.End = endAfter(2)

	instances, err := Expand(rule, wideHorizon())
	require.NoError(t, err)

	require.Len(t, instances, 2)
	assert.Equal(t, time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC), instances[0].StartTime)
	assert.Equal(t, time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), instances[1].StartTime)
	assert.True(t, instances[0].IsSeriesAnchor)
	assert.False(t, instances[1].IsSeriesAnchor)
}

func TestExpandWeeklyNoSetUsesAnchorWeekday(t *testing.T) {
	rule := testRule(model.RecurrenceWeekly, 1, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	rule.End = endAfter(3)

	instances, err := Expand(rule, wideHorizon())
	require.NoError(t, err)

	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC),
	}, starts(instances))
}

func TestExpandMonthlyClampsShortMonths(t *testing.T) {
	rule := testRule(model.RecurrenceMonthly, 1, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	rule.End = endAfter(4)

	instances, err := Expand(rule, wideHorizon())
	require.NoError(t, err)

	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC), // leap February, clamped
		time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC), // back to 31, no drift
		time.Date(2024, 4, 30, 9, 0, 0, 0, time.UTC),
	}, starts(instances))
}

func TestExpandYearlyClampsLeapDay(t *testing.T) {
	rule := testRule(model.RecurrenceYearly, 1, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC))
	rule.End = endAfter(3)

	instances, err := Expand(rule, wideHorizon())
	require.NoError(t, err)

	assert.Equal(t, []time.Time{
		time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 28, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC),
	}, starts(instances))
}

func TestExpandCountBound(t *testing.T) {
	rule := testRule(model.RecurrenceDaily, 1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	rule.End = endAfter(5)

	instances, err := Expand(rule, wideHorizon())
	require.NoError(t, err)
	assert.Len(t, instances, 5)
}

func TestExpandHorizonOccurrenceCeiling(t *testing.T) {
	rule := testRule(model.RecurrenceDaily, 1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	instances, err := Expand(rule, Horizon{
		MaxOccurrences: 50,
		Until:          time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Len(t, instances, 50)
}

func TestExpandHorizonDateCeiling(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rule := testRule(model.RecurrenceDaily, 1, start)

	instances, err := Expand(rule, Horizon{
		MaxOccurrences: 1000,
		Until:          start.AddDate(0, 0, 10),
	})
	require.NoError(t, err)
	// Jan 1 through Jan 11 inclusive.
	assert.Len(t, instances, 11)
}

func TestExpandZeroOccurrencesIsValid(t *testing.T) {
	// Tuesday Jan 2 through Friday Jan 5 contains no Monday.
	rule := testRule(model.RecurrenceWeekly, 1, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	rule.Recurrence.WeekDays = []time.Weekday{time.Monday}
	rule.End = endOn(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))

	instances, err := Expand(rule, wideHorizon())
	require.NoError(t, err)
	assert.Empty(t, instances)
}

func TestExpandRejectsNonPositiveInterval(t *testing.T) {
	rule := testRule(model.RecurrenceDaily, 0, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	_, err := Expand(rule, wideHorizon())
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "regras.interval")
}

func TestExpandTuesdaySeriesScenario(t *testing.T) {
	rule := testRule(model.RecurrenceWeekly, 1, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	rule.Recurrence.WeekDays = []time.Weekday{time.Tuesday}
	rule.End = endAfter(3)

	instances, err := Expand(rule, wideHorizon())
	require.NoError(t, err)

	require.Len(t, instances, 3)
	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC),
	}, starts(instances))
	for _, inst := range instances {
		assert.Equal(t, 10, inst.EndTime.Hour())
		assert.Equal(t, model.StatusScheduled, inst.Status)
	}
	assert.True(t, instances[0].IsSeriesAnchor)
	assert.False(t, instances[1].IsSeriesAnchor)
	assert.False(t, instances[2].IsSeriesAnchor)
}

func TestExpandCopiesDescriptiveFields(t *testing.T) {
	rule := testRule(model.RecurrenceDaily, 1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	rule.End = endAfter(2)
	rule.Location = "Studio A"
	rule.Value = 15000
	rule.Service = "personal training"
	rule.Notes = "bring resistance bands"

	instances, err := Expand(rule, wideHorizon())
	require.NoError(t, err)

	for _, inst := range instances {
		assert.Equal(t, rule.Location, inst.Location)
		assert.Equal(t, rule.Value, inst.Value)
		assert.Equal(t, rule.Service, inst.Service)
		assert.Equal(t, rule.Notes, inst.Notes)
		require.NotNil(t, inst.RecurrenceRuleID)
		assert.Equal(t, rule.ID, *inst.RecurrenceRuleID)
	}
}

func TestExpandEndDateBeforeStartRejected(t *testing.T) {
	rule := testRule(model.RecurrenceDaily, 1, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	rule.End = endOn(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))

	_, err := Expand(rule, wideHorizon())
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "endDate")
}
