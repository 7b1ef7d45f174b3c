package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fitagenda/fitagenda/internal/conflict"
	"github.com/fitagenda/fitagenda/internal/model"
	"github.com/fitagenda/fitagenda/internal/recurrence"
	"github.com/fitagenda/fitagenda/internal/series"
)

// Store is the durable record of rules and instances the service
// orchestrates over. The multi-row mutations are atomic: a series
// commits whole or not at all.
type Store interface {
	CreateRuleWithInstances(ctx context.Context, rule *model.RecurrenceRule, instances []*model.Instance) error
	AppendInstances(ctx context.Context, instances []*model.Instance) error
	DeleteRuleCascade(ctx context.Context, ruleID uuid.UUID) (int64, error)
	DeleteRuleDetach(ctx context.Context, ruleID uuid.UUID) (int64, error)
	GetRule(ctx context.Context, id uuid.UUID) (*model.RecurrenceRule, error)
	GetRulesByProfessor(ctx context.Context, professorID int64) ([]*model.RecurrenceRule, error)
	GetActiveRules(ctx context.Context) ([]*model.RecurrenceRule, error)
	SetRuleActive(ctx context.Context, id uuid.UUID, active bool) error
	CreateInstance(ctx context.Context, inst *model.Instance) error
	GetInstance(ctx context.Context, id uuid.UUID) (*model.Instance, error)
	InstancesByProfessorRange(ctx context.Context, professorID int64, from, to time.Time) ([]*model.Instance, error)
	InstancesByStudentRange(ctx context.Context, studentID int64, from, to time.Time) ([]*model.Instance, error)
	InstancesByRule(ctx context.Context, ruleID uuid.UUID) ([]*model.Instance, error)
	UpdateInstance(ctx context.Context, inst *model.Instance) error
	DeleteInstance(ctx context.Context, id uuid.UUID) error
}

// DeletePolicy selects what happens to a deleted rule's instances. There
// is no default: the caller must pick one explicitly.
type DeletePolicy string

const (
	DeleteCascade DeletePolicy = "cascade"
	DeleteDetach  DeletePolicy = "detach"
)

// ParseDeletePolicy validates the wire-level policy string.
func ParseDeletePolicy(s string) (DeletePolicy, error) {
	switch DeletePolicy(s) {
	case DeleteCascade, DeleteDetach:
		return DeletePolicy(s), nil
	}
	return "", fmt.Errorf("unknown delete policy %q", s)
}

// HorizonConfig bounds how far open-ended rules are materialized.
type HorizonConfig struct {
	MaxOccurrences int
	Months         int
}

// ScheduleService wires the pure expansion/conflict/mutation components
// to the store: validate, expand, check, then commit atomically.
type ScheduleService struct {
	store   Store
	checker *conflict.Checker
	mutator *series.Mutator
	horizon HorizonConfig
	logger  *zap.Logger
}

func NewScheduleService(store Store, checker *conflict.Checker, horizon HorizonConfig, logger *zap.Logger) *ScheduleService {
	return &ScheduleService{
		store:   store,
		checker: checker,
		mutator: series.NewMutator(checker),
		horizon: horizon,
		logger:  logger,
	}
}

// CreateRecurringSchedule validates and expands a rule, conflict-checks
// the whole batch against the professor's existing schedule and commits
// rule plus instances in one transaction. On conflict nothing is
// persisted and the returned *model.ConflictError carries the conflicts
// and suggested alternatives.
func (s *ScheduleService) CreateRecurringSchedule(ctx context.Context, rule *model.RecurrenceRule) ([]*model.Instance, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	if rule.GroupID == uuid.Nil {
		rule.GroupID = uuid.New()
	}
	rule.IsActive = true

	horizon := recurrence.HorizonFrom(time.Now(), s.horizon.MaxOccurrences, s.horizon.Months)
	instances, err := recurrence.Expand(rule, horizon)
	if err != nil {
		return nil, err
	}

	if len(instances) > 0 {
		existing, err := s.existingAround(ctx, rule.ProfessorID,
			instances[0].StartTime, instances[len(instances)-1].EndTime)
		if err != nil {
			return nil, err
		}

		result, err := s.checker.CheckBatch(instances, existing)
		if err != nil {
			return nil, err
		}
		if result.HasConflict {
			return nil, &model.ConflictError{Conflicts: result.Conflicts, Suggestions: result.Suggestions}
		}
	}

	for _, inst := range instances {
		inst.ID = uuid.New()
	}

	if err := s.store.CreateRuleWithInstances(ctx, rule, instances); err != nil {
		return nil, fmt.Errorf("persist recurring schedule: %w", err)
	}

	s.logger.Info("Recurring schedule created",
		zap.String("rule_id", rule.ID.String()),
		zap.Int64("professor_id", rule.ProfessorID),
		zap.Int64("student_id", rule.StudentID),
		zap.String("type", string(rule.Recurrence.Type)),
		zap.Int("instances", len(instances)),
	)

	return instances, nil
}

// CreateSession persists a standalone one-off session after conflict
// validation.
func (s *ScheduleService) CreateSession(ctx context.Context, inst *model.Instance) (*model.Instance, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.existingAround(ctx, inst.ProfessorID, inst.StartTime, inst.EndTime)
	if err != nil {
		return nil, err
	}

	window := conflict.Window{ProfessorID: inst.ProfessorID, Start: inst.StartTime, End: inst.EndTime}
	result, err := s.checker.Check(window, existing)
	if err != nil {
		return nil, err
	}
	if result.HasConflict {
		return nil, &model.ConflictError{Conflicts: result.Conflicts, Suggestions: result.Suggestions}
	}

	inst.ID = uuid.New()
	inst.RecurrenceRuleID = nil
	if inst.Status == "" {
		inst.Status = model.StatusScheduled
	}

	if err := s.store.CreateInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	s.logger.Info("Session created",
		zap.String("instance_id", inst.ID.String()),
		zap.Int64("professor_id", inst.ProfessorID),
		zap.Time("start_time", inst.StartTime),
	)

	return inst, nil
}

// CheckConflicts runs the bare conflict check for a candidate window,
// for the UI's pre-flight validation.
func (s *ScheduleService) CheckConflicts(ctx context.Context, window conflict.Window) (*conflict.Result, error) {
	existing, err := s.existingAround(ctx, window.ProfessorID, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	return s.checker.Check(window, existing)
}

// MutateInstance applies a change to exactly one instance, leaving its
// siblings and the owning rule untouched. Time changes are re-checked
// for conflicts; the first divergence snapshots the original window.
func (s *ScheduleService) MutateInstance(ctx context.Context, id uuid.UUID, change series.Change) (*model.Instance, error) {
	inst, err := s.store.GetInstance(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, &model.NotFoundError{Resource: "instance", ID: id.String()}
	}

	var existing []*model.Instance
	if change.StartTime != nil || change.EndTime != nil {
		newStart := inst.StartTime
		newEnd := inst.EndTime
		if change.StartTime != nil {
			newStart = *change.StartTime
		}
		if change.EndTime != nil {
			newEnd = *change.EndTime
		}
		existing, err = s.existingAround(ctx, inst.ProfessorID, newStart, newEnd)
		if err != nil {
			return nil, err
		}
	}

	updated, err := s.mutator.Apply(inst, change, existing)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateInstance(ctx, updated); err != nil {
		return nil, fmt.Errorf("persist instance change: %w", err)
	}

	s.logger.Info("Instance mutated",
		zap.String("instance_id", id.String()),
		zap.String("status", string(updated.Status)),
		zap.Bool("is_modified", updated.IsModified),
	)

	return updated, nil
}

// DeleteInstance removes one session.
func (s *ScheduleService) DeleteInstance(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteInstance(ctx, id)
}

// GetInstance loads one session.
func (s *ScheduleService) GetInstance(ctx context.Context, id uuid.UUID) (*model.Instance, error) {
	inst, err := s.store.GetInstance(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, &model.NotFoundError{Resource: "instance", ID: id.String()}
	}
	return inst, nil
}

// GetSchedule returns a professor's sessions in [from, to).
func (s *ScheduleService) GetSchedule(ctx context.Context, professorID int64, from, to time.Time) ([]*model.Instance, error) {
	return s.store.InstancesByProfessorRange(ctx, professorID, from, to)
}

// GetStudentSchedule returns a student's sessions in [from, to).
func (s *ScheduleService) GetStudentSchedule(ctx context.Context, studentID int64, from, to time.Time) ([]*model.Instance, error) {
	return s.store.InstancesByStudentRange(ctx, studentID, from, to)
}

// GetRule loads one rule.
func (s *ScheduleService) GetRule(ctx context.Context, id uuid.UUID) (*model.RecurrenceRule, error) {
	rule, err := s.store.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, &model.NotFoundError{Resource: "recurrence rule", ID: id.String()}
	}
	return rule, nil
}

// GetRulesByProfessor lists a professor's rules.
func (s *ScheduleService) GetRulesByProfessor(ctx context.Context, professorID int64) ([]*model.RecurrenceRule, error) {
	return s.store.GetRulesByProfessor(ctx, professorID)
}

// GetSeriesInstances lists every instance generated from one rule.
func (s *ScheduleService) GetSeriesInstances(ctx context.Context, ruleID uuid.UUID) ([]*model.Instance, error) {
	return s.store.InstancesByRule(ctx, ruleID)
}

// SetRuleActive toggles a rule without touching its instances.
func (s *ScheduleService) SetRuleActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.store.SetRuleActive(ctx, id, active)
}

// DeleteRule removes a rule under an explicitly chosen policy: cascade
// deletes every generated instance, detach keeps them as standalone
// sessions.
func (s *ScheduleService) DeleteRule(ctx context.Context, id uuid.UUID, policy DeletePolicy) error {
	rule, err := s.store.GetRule(ctx, id)
	if err != nil {
		return err
	}
	if rule == nil {
		return &model.NotFoundError{Resource: "recurrence rule", ID: id.String()}
	}

	var affected int64
	switch policy {
	case DeleteCascade:
		affected, err = s.store.DeleteRuleCascade(ctx, id)
	case DeleteDetach:
		affected, err = s.store.DeleteRuleDetach(ctx, id)
	default:
		verr := model.NewValidationError()
		verr.Add("policy", fmt.Sprintf("must be %q or %q", DeleteCascade, DeleteDetach))
		return verr
	}
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}

	s.logger.Info("Recurrence rule deleted",
		zap.String("rule_id", id.String()),
		zap.String("policy", string(policy)),
		zap.Int64("instances_affected", affected),
	)

	return nil
}

// ExtendHorizon materializes instances of active rules that have rolled
// into the projection window since the last run. A rule whose top-up
// batch conflicts is logged and skipped whole; nothing partial is ever
// written. Called periodically by the background materializer.
func (s *ScheduleService) ExtendHorizon(ctx context.Context) error {
	rules, err := s.store.GetActiveRules(ctx)
	if err != nil {
		return fmt.Errorf("load active rules: %w", err)
	}

	now := time.Now()
	horizon := recurrence.HorizonFrom(now, s.horizon.MaxOccurrences, s.horizon.Months)

	total := 0
	for _, rule := range rules {
		count, err := s.topUpRule(ctx, rule, horizon)
		if err != nil {
			s.logger.Error("Failed to top up rule",
				zap.String("rule_id", rule.ID.String()),
				zap.Error(err))
			continue
		}
		total += count
	}

	s.logger.Info("Horizon extension completed",
		zap.Int("rules", len(rules)),
		zap.Int("instances_created", total),
	)

	return nil
}

func (s *ScheduleService) topUpRule(ctx context.Context, rule *model.RecurrenceRule, horizon recurrence.Horizon) (int, error) {
	persisted, err := s.store.InstancesByRule(ctx, rule.ID)
	if err != nil {
		return 0, err
	}

	// Expansion always restarts at the rule's anchor, so the occurrence
	// cap is raised by what already exists. It then bounds each run's
	// newly materialized instances, and a long-lived endType=never rule
	// keeps rolling forward instead of starving once its lifetime total
	// reaches the cap. The date ceiling stays the effective bound.
	horizon.MaxOccurrences += len(persisted)
	candidates, err := recurrence.Expand(rule, horizon)
	if err != nil {
		return 0, err
	}

	seen := make(map[time.Time]bool, len(persisted))
	for _, inst := range persisted {
		key := inst.StartTime
		if inst.IsModified && inst.OriginalStartTime != nil {
			key = *inst.OriginalStartTime
		}
		seen[key.UTC()] = true
	}

	var fresh []*model.Instance
	for _, cand := range candidates {
		if seen[cand.StartTime.UTC()] {
			continue
		}
		// The series anchor was emitted on the first materialization;
		// top-up instances are never anchors.
		if len(persisted) > 0 {
			cand.IsSeriesAnchor = false
		}
		fresh = append(fresh, cand)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	existing, err := s.existingAround(ctx, rule.ProfessorID,
		fresh[0].StartTime, fresh[len(fresh)-1].EndTime)
	if err != nil {
		return 0, err
	}
	result, err := s.checker.CheckBatch(fresh, existing)
	if err != nil {
		return 0, err
	}
	if result.HasConflict {
		s.logger.Warn("Skipping conflicting horizon top-up",
			zap.String("rule_id", rule.ID.String()),
			zap.Int("conflicts", len(result.Conflicts)))
		return 0, nil
	}

	for _, inst := range fresh {
		inst.ID = uuid.New()
	}
	if err := s.store.AppendInstances(ctx, fresh); err != nil {
		return 0, err
	}

	return len(fresh), nil
}

// existingAround loads the professor's instances overlapping the span,
// padded by the tolerance window on both sides so buffer collisions at
// the edges are visible to the checker.
func (s *ScheduleService) existingAround(ctx context.Context, professorID int64, from, to time.Time) ([]*model.Instance, error) {
	pad := s.checker.Tolerance()
	existing, err := s.store.InstancesByProfessorRange(ctx, professorID, from.Add(-pad), to.Add(pad))
	if err != nil {
		return nil, fmt.Errorf("load existing instances: %w", err)
	}
	return existing, nil
}
