// Package recurrence materializes recurrence rules into concrete session
// instances. Expansion is pure: no I/O, deterministic for identical
// inputs, always bounded by a Horizon even for endType=never rules.
package recurrence

import (
	"time"

	"github.com/fitagenda/fitagenda/internal/model"
)

const (
	// DefaultMaxOccurrences caps how many instances a single expansion
	// may ever produce, regardless of the rule's own end condition.
	DefaultMaxOccurrences = 365
	// DefaultProjectionMonths caps how far past "now" an expansion may
	// project.
	DefaultProjectionMonths = 6
)

// Horizon is the hard safety ceiling on an expansion, independent of the
// rule's end condition. Whichever bound is reached first stops the walk.
type Horizon struct {
	MaxOccurrences int
	Until          time.Time
}

// HorizonFrom builds a horizon of maxOccurrences instances or months
// calendar months past now, applying the package defaults for
// non-positive arguments.
func HorizonFrom(now time.Time, maxOccurrences, months int) Horizon {
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultMaxOccurrences
	}
	if months <= 0 {
		months = DefaultProjectionMonths
	}
	return Horizon{
		MaxOccurrences: maxOccurrences,
		Until:          now.AddDate(0, months, 0),
	}
}

// Expand generates the ordered instances a rule describes, starting at
// the rule's anchor date. The first emitted instance is the series
// anchor. Zero instances is a valid result. Instances are emitted
// without ids; the caller assigns them before persisting.
func Expand(rule *model.RecurrenceRule, horizon Horizon) ([]*model.Instance, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if horizon.MaxOccurrences <= 0 {
		horizon.MaxOccurrences = DefaultMaxOccurrences
	}

	w := &walk{rule: rule, horizon: horizon}

	anchor := dateOnly(rule.StartDate)
	switch rule.Recurrence.Type {
	case model.RecurrenceDaily:
		w.byDays(anchor, rule.Recurrence.Interval)
	case model.RecurrenceWeekly:
		w.byWeekdaySet(anchor, rule.Recurrence.Interval, rule.EffectiveWeekDays())
	case model.RecurrenceMonthly:
		w.byMonths(anchor, rule.Recurrence.Interval)
	case model.RecurrenceYearly:
		w.byMonths(anchor, 12*rule.Recurrence.Interval)
	}

	return w.out, nil
}

type walk struct {
	rule    *model.RecurrenceRule
	horizon Horizon
	out     []*model.Instance
}

// stopped evaluates every stop condition against the next candidate
// date, before anything is emitted for it.
func (w *walk) stopped(date time.Time) bool {
	end := w.rule.End
	if end.Type == model.EndCount && len(w.out) >= *end.Count {
		return true
	}
	if end.Type == model.EndDate && date.After(dateOnly(*end.Date)) {
		return true
	}
	if len(w.out) >= w.horizon.MaxOccurrences {
		return true
	}
	return !w.horizon.Until.IsZero() && date.After(w.horizon.Until)
}

func (w *walk) emit(date time.Time) {
	ruleID := w.rule.ID
	w.out = append(w.out, &model.Instance{
		RecurrenceRuleID: &ruleID,
		ProfessorID:      w.rule.ProfessorID,
		StudentID:        w.rule.StudentID,
		StartTime:        w.rule.StartTime.On(date),
		EndTime:          w.rule.EndTime.On(date),
		Location:         w.rule.Location,
		Value:            w.rule.Value,
		Service:          w.rule.Service,
		Notes:            w.rule.Notes,
		Status:           model.StatusScheduled,
		IsSeriesAnchor:   len(w.out) == 0,
	})
}

// byDays advances a single cursor by a fixed day stride.
func (w *walk) byDays(anchor time.Time, strideDays int) {
	for k := 0; ; k++ {
		date := anchor.AddDate(0, 0, k*strideDays)
		if w.stopped(date) {
			return
		}
		w.emit(date)
	}
}

// byWeekdaySet walks day by day through 7-day windows anchored on the
// start date, emitting every day whose weekday is in the set, then skips
// interval-1 weeks before the next window. The anchor itself counts only
// if it passes the filter.
func (w *walk) byWeekdaySet(anchor time.Time, interval int, days []time.Weekday) {
	set := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		set[d] = true
	}

	for windowStart := anchor; ; windowStart = windowStart.AddDate(0, 0, 7*interval) {
		for i := 0; i < 7; i++ {
			date := windowStart.AddDate(0, 0, i)
			if w.stopped(date) {
				return
			}
			if set[date.Weekday()] {
				w.emit(date)
			}
		}
	}
}

// byMonths advances by a fixed month stride from the anchor, clamping
// the anchor's day-of-month to the target month's last day when the
// month is shorter. Yearly rules are a 12*interval month stride, which
// clamps Feb 29 anchors the same way.
func (w *walk) byMonths(anchor time.Time, strideMonths int) {
	for k := 0; ; k++ {
		date := clampedAddMonths(anchor, k*strideMonths)
		if w.stopped(date) {
			return
		}
		w.emit(date)
	}
}

// clampedAddMonths computes anchor + months keeping the anchor's
// day-of-month, clamped to the last day of the target month. Computing
// from the anchor every step keeps Jan 31 → Feb 28 → Mar 31 instead of
// drifting to Mar 28.
func clampedAddMonths(anchor time.Time, months int) time.Time {
	y, m, d := anchor.Date()
	total := int(m) - 1 + months
	year := y + total/12
	month := time.Month(total%12 + 1)
	if last := daysInMonth(year, month); d > last {
		d = last
	}
	return time.Date(year, month, d, 0, 0, 0, 0, anchor.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
