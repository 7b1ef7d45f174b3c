package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fitagenda/fitagenda/internal/model"
	"github.com/fitagenda/fitagenda/internal/repository/base"
)

// Store composes the rule and instance repositories behind the service
// layer's storage interface, wrapping the multi-row operations in
// transactions so a series is always committed or rolled back whole.
type Store struct {
	base      *base.Repository
	rules     *RuleRepository
	instances *InstanceRepository
	logger    *zap.Logger
}

func NewStore(b *base.Repository, rules *RuleRepository, instances *InstanceRepository, logger *zap.Logger) *Store {
	return &Store{
		base:      b,
		rules:     rules,
		instances: instances,
		logger:    logger,
	}
}

// CreateRuleWithInstances commits a rule and its materialized series
// atomically.
func (s *Store) CreateRuleWithInstances(ctx context.Context, rule *model.RecurrenceRule, instances []*model.Instance) error {
	return s.base.InTx(ctx, func(tx pgx.Tx) error {
		if err := s.rules.CreateTx(ctx, tx, rule); err != nil {
			return err
		}
		return s.instances.CreateBatchTx(ctx, tx, instances)
	})
}

// AppendInstances commits a horizon top-up batch for an existing rule.
func (s *Store) AppendInstances(ctx context.Context, instances []*model.Instance) error {
	return s.base.InTx(ctx, func(tx pgx.Tx) error {
		return s.instances.CreateBatchTx(ctx, tx, instances)
	})
}

// DeleteRuleCascade removes a rule and every instance it generated.
func (s *Store) DeleteRuleCascade(ctx context.Context, ruleID uuid.UUID) (int64, error) {
	var removed int64
	err := s.base.InTx(ctx, func(tx pgx.Tx) error {
		var err error
		removed, err = s.instances.DeleteByRuleIDTx(ctx, tx, ruleID)
		if err != nil {
			return err
		}
		return s.rules.DeleteTx(ctx, tx, ruleID)
	})
	return removed, err
}

// DeleteRuleDetach removes a rule but keeps its instances as standalone
// sessions.
func (s *Store) DeleteRuleDetach(ctx context.Context, ruleID uuid.UUID) (int64, error) {
	var detached int64
	err := s.base.InTx(ctx, func(tx pgx.Tx) error {
		var err error
		detached, err = s.instances.DetachByRuleIDTx(ctx, tx, ruleID)
		if err != nil {
			return err
		}
		return s.rules.DeleteTx(ctx, tx, ruleID)
	})
	return detached, err
}

func (s *Store) GetRule(ctx context.Context, id uuid.UUID) (*model.RecurrenceRule, error) {
	return s.rules.GetByID(ctx, id)
}

func (s *Store) GetRulesByProfessor(ctx context.Context, professorID int64) ([]*model.RecurrenceRule, error) {
	return s.rules.GetByProfessorID(ctx, professorID)
}

func (s *Store) GetActiveRules(ctx context.Context) ([]*model.RecurrenceRule, error) {
	return s.rules.GetAllActive(ctx)
}

func (s *Store) SetRuleActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.rules.SetActive(ctx, id, active)
}

func (s *Store) CreateInstance(ctx context.Context, inst *model.Instance) error {
	return s.instances.Create(ctx, inst)
}

func (s *Store) GetInstance(ctx context.Context, id uuid.UUID) (*model.Instance, error) {
	return s.instances.GetByID(ctx, id)
}

func (s *Store) InstancesByProfessorRange(ctx context.Context, professorID int64, from, to time.Time) ([]*model.Instance, error) {
	return s.instances.GetByProfessorAndRange(ctx, professorID, from, to)
}

func (s *Store) InstancesByStudentRange(ctx context.Context, studentID int64, from, to time.Time) ([]*model.Instance, error) {
	return s.instances.GetByStudentAndRange(ctx, studentID, from, to)
}

func (s *Store) InstancesByRule(ctx context.Context, ruleID uuid.UUID) ([]*model.Instance, error) {
	return s.instances.GetByRuleID(ctx, ruleID)
}

func (s *Store) UpdateInstance(ctx context.Context, inst *model.Instance) error {
	return s.instances.Update(ctx, inst)
}

func (s *Store) DeleteInstance(ctx context.Context, id uuid.UUID) error {
	return s.instances.Delete(ctx, id)
}
