package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/fitagenda/fitagenda/internal/model"
)

const dateLayout = "2006-01-02"

// regrasRequest is the nested recurrence object the web client sends.
type regrasRequest struct {
	Type     string   `json:"type"`
	Interval int      `json:"interval"`
	WeekDays []string `json:"weekDays"`
	EndType  string   `json:"endType"`
	EndDate  string   `json:"endDate"`
	EndCount *int     `json:"endCount"`
}

type ruleRequest struct {
	ProfessorID int64         `json:"professorId"`
	StudentID   int64         `json:"studentId"`
	StartDate   string        `json:"startDate"`
	StartTime   string        `json:"startTime"`
	EndTime     string        `json:"endTime"`
	Regras      regrasRequest `json:"regras"`
	Location    string        `json:"location"`
	Value       int64         `json:"value"`
	Service     string        `json:"service"`
	Notes       string        `json:"notes"`
}

// toModel adapts the wire shape to the domain rule, collecting every
// parse failure as a field-level validation error.
func (r *ruleRequest) toModel() (*model.RecurrenceRule, error) {
	verr := model.NewValidationError()
	rule := &model.RecurrenceRule{
		ProfessorID: r.ProfessorID,
		StudentID:   r.StudentID,
		Location:    r.Location,
		Value:       r.Value,
		Service:     r.Service,
		Notes:       r.Notes,
	}

	if startDate, err := time.Parse(dateLayout, r.StartDate); err != nil {
		verr.Add("startDate", "must be a date in YYYY-MM-DD format")
	} else {
		rule.StartDate = startDate
	}

	if startTime, err := model.ParseTimeOfDay(r.StartTime); err != nil {
		verr.Add("startTime", "must be a time in HH:MM format")
	} else {
		rule.StartTime = startTime
	}

	if endTime, err := model.ParseTimeOfDay(r.EndTime); err != nil {
		verr.Add("endTime", "must be a time in HH:MM format")
	} else {
		rule.EndTime = endTime
	}

	if recType, err := model.ParseRecurrenceType(r.Regras.Type); err != nil {
		verr.Add("regras.type", err.Error())
	} else {
		rule.Recurrence.Type = recType
	}
	rule.Recurrence.Interval = r.Regras.Interval

	if len(r.Regras.WeekDays) > 0 {
		if weekDays, err := model.ParseWeekdays(r.Regras.WeekDays); err != nil {
			verr.Add("regras.weekDays", err.Error())
		} else {
			rule.Recurrence.WeekDays = weekDays
		}
	}

	// Absent endType means a never-ending series, the most common shape
	// the legacy client sends.
	endType := r.Regras.EndType
	if endType == "" {
		endType = string(model.EndNever)
	}
	if parsed, err := model.ParseEndType(endType); err != nil {
		verr.Add("regras.endType", err.Error())
	} else {
		rule.End.Type = parsed
	}

	if r.Regras.EndDate != "" {
		if endDate, err := time.Parse(dateLayout, r.Regras.EndDate); err != nil {
			verr.Add("regras.endDate", "must be a date in YYYY-MM-DD format")
		} else {
			rule.End.Date = &endDate
		}
	}
	rule.End.Count = r.Regras.EndCount

	if verr.HasErrors() {
		return nil, verr
	}
	return rule, nil
}

type sessionRequest struct {
	ProfessorID int64     `json:"professorId"`
	StudentID   int64     `json:"studentId"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	Location    string    `json:"location"`
	Value       int64     `json:"value"`
	Service     string    `json:"service"`
	Notes       string    `json:"notes"`
}

func (r *sessionRequest) toModel() *model.Instance {
	return &model.Instance{
		ProfessorID: r.ProfessorID,
		StudentID:   r.StudentID,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Location:    r.Location,
		Value:       r.Value,
		Service:     r.Service,
		Notes:       r.Notes,
		Status:      model.StatusScheduled,
	}
}

// sessionPatchRequest mirrors series.Change: nil means untouched.
type sessionPatchRequest struct {
	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
	Status    *string    `json:"status"`
	StudentID *int64     `json:"studentId"`
	Location  *string    `json:"location"`
	Value     *int64     `json:"value"`
	Service   *string    `json:"service"`
	Notes     *string    `json:"notes"`
}

type checkConflictsRequest struct {
	ProfessorID int64     `json:"professorId"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
}

// instanceResponse is the observed instance wire shape. The legacy
// client reads the series link and anchor flag under two names each, so
// both aliases are emitted.
type instanceResponse struct {
	ID                 uuid.UUID  `json:"id"`
	RecurrenceRuleID   *uuid.UUID `json:"recurrenceRuleId"`
	RecurrenceGroupID  *uuid.UUID `json:"recurrenceGroupId"`
	ProfessorID        int64      `json:"professorId"`
	StudentID          int64      `json:"studentId"`
	StartTime          time.Time  `json:"startTime"`
	EndTime            time.Time  `json:"endTime"`
	Location           string     `json:"location"`
	Value              int64      `json:"value"`
	Service            string     `json:"service"`
	Notes              string     `json:"notes"`
	Status             string     `json:"status"`
	IsModified         bool       `json:"isModified"`
	OriginalStartTime  *time.Time `json:"originalStartTime,omitempty"`
	OriginalEndTime    *time.Time `json:"originalEndTime,omitempty"`
	IsSeriesAnchor     bool       `json:"isSeriesAnchor"`
	IsRecurrenceParent bool       `json:"isRecurrenceParent"`
}

func toInstanceResponse(inst *model.Instance) instanceResponse {
	return instanceResponse{
		ID:                 inst.ID,
		RecurrenceRuleID:   inst.RecurrenceRuleID,
		RecurrenceGroupID:  inst.RecurrenceRuleID,
		ProfessorID:        inst.ProfessorID,
		StudentID:          inst.StudentID,
		StartTime:          inst.StartTime,
		EndTime:            inst.EndTime,
		Location:           inst.Location,
		Value:              inst.Value,
		Service:            inst.Service,
		Notes:              inst.Notes,
		Status:             string(inst.Status),
		IsModified:         inst.IsModified,
		OriginalStartTime:  inst.OriginalStartTime,
		OriginalEndTime:    inst.OriginalEndTime,
		IsSeriesAnchor:     inst.IsSeriesAnchor,
		IsRecurrenceParent: inst.IsSeriesAnchor,
	}
}

func toInstanceResponses(instances []*model.Instance) []instanceResponse {
	out := make([]instanceResponse, 0, len(instances))
	for _, inst := range instances {
		out = append(out, toInstanceResponse(inst))
	}
	return out
}
