package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fitagenda/fitagenda/internal/model"
	"github.com/fitagenda/fitagenda/internal/repository/base"
)

// InstanceRepository manages concrete session instances, standalone or
// generated from a rule.
type InstanceRepository struct {
	db     *base.Repository
	logger *zap.Logger
}

func NewInstanceRepository(db *base.Repository, logger *zap.Logger) *InstanceRepository {
	return &InstanceRepository{
		db:     db,
		logger: logger,
	}
}

const instanceColumns = `id, recurrence_rule_id, professor_id, student_id,
		start_time, end_time, location, value, service, notes, status,
		is_modified, original_start_time, original_end_time, is_series_anchor,
		created_at, updated_at`

const insertInstanceQuery = `
	INSERT INTO instances (id, recurrence_rule_id, professor_id, student_id,
		start_time, end_time, location, value, service, notes, status,
		is_modified, original_start_time, original_end_time, is_series_anchor)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	RETURNING created_at, updated_at
`

// Create inserts a single one-off instance.
func (r *InstanceRepository) Create(ctx context.Context, inst *model.Instance) error {
	err := r.db.QueryRow(ctx, insertInstanceQuery, instanceArgs(inst)...).
		Scan(&inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}

	return nil
}

// CreateBatchTx inserts a whole materialized series inside the caller's
// transaction: either every instance commits or none does.
func (r *InstanceRepository) CreateBatchTx(ctx context.Context, tx pgx.Tx, instances []*model.Instance) error {
	for _, inst := range instances {
		err := tx.QueryRow(ctx, insertInstanceQuery, instanceArgs(inst)...).
			Scan(&inst.CreatedAt, &inst.UpdatedAt)
		if err != nil {
			return fmt.Errorf("create instance batch: %w", err)
		}
	}

	r.logger.Debug("Instance batch inserted", zap.Int("count", len(instances)))
	return nil
}

// GetByID returns the instance or nil when it does not exist.
func (r *InstanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances WHERE id = $1`

	inst, err := scanInstance(r.db.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get instance by id: %w", err)
	}

	return inst, nil
}

// GetByProfessorAndRange returns a professor's instances whose window
// intersects [from, to), ordered by start time. This is the existing set
// conflict checks run against.
func (r *InstanceRepository) GetByProfessorAndRange(ctx context.Context, professorID int64, from, to time.Time) ([]*model.Instance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM instances
		WHERE professor_id = $1
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time
	`

	rows, err := r.db.Query(ctx, query, professorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get instances by professor and range: %w", err)
	}
	defer rows.Close()

	return collectInstances(rows)
}

// GetByStudentAndRange returns a student's instances in [from, to).
func (r *InstanceRepository) GetByStudentAndRange(ctx context.Context, studentID int64, from, to time.Time) ([]*model.Instance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM instances
		WHERE student_id = $1
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time
	`

	rows, err := r.db.Query(ctx, query, studentID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get instances by student and range: %w", err)
	}
	defer rows.Close()

	return collectInstances(rows)
}

// GetByRuleID returns every instance generated from one rule.
func (r *InstanceRepository) GetByRuleID(ctx context.Context, ruleID uuid.UUID) ([]*model.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances WHERE recurrence_rule_id = $1 ORDER BY start_time`

	rows, err := r.db.Query(ctx, query, ruleID)
	if err != nil {
		return nil, fmt.Errorf("get instances by rule: %w", err)
	}
	defer rows.Close()

	return collectInstances(rows)
}

// Update persists a mutated instance. The Original* snapshot columns are
// written as-is; the mutator guarantees they are set exactly once.
func (r *InstanceRepository) Update(ctx context.Context, inst *model.Instance) error {
	query := `
		UPDATE instances
		SET student_id = $2, start_time = $3, end_time = $4, location = $5,
			value = $6, service = $7, notes = $8, status = $9,
			is_modified = $10, original_start_time = $11, original_end_time = $12,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		inst.ID,
		inst.StudentID,
		inst.StartTime,
		inst.EndTime,
		inst.Location,
		inst.Value,
		inst.Service,
		inst.Notes,
		string(inst.Status),
		inst.IsModified,
		inst.OriginalStartTime,
		inst.OriginalEndTime,
	).Scan(&inst.UpdatedAt)

	if base.IsNotFound(err) {
		return &model.NotFoundError{Resource: "instance", ID: inst.ID.String()}
	}
	if err != nil {
		return fmt.Errorf("update instance: %w", err)
	}

	return nil
}

// Delete removes one instance.
func (r *InstanceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	affected, err := r.db.ExecAffected(ctx, `DELETE FROM instances WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete instance: %w", err)
	}
	if affected == 0 {
		return &model.NotFoundError{Resource: "instance", ID: id.String()}
	}

	return nil
}

// DeleteByRuleIDTx removes every instance of a rule (cascade policy).
func (r *InstanceRepository) DeleteByRuleIDTx(ctx context.Context, tx pgx.Tx, ruleID uuid.UUID) (int64, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM instances WHERE recurrence_rule_id = $1`, ruleID)
	if err != nil {
		return 0, fmt.Errorf("delete instances by rule: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DetachByRuleIDTx orphans every instance of a rule (detach policy),
// keeping them as standalone sessions.
func (r *InstanceRepository) DetachByRuleIDTx(ctx context.Context, tx pgx.Tx, ruleID uuid.UUID) (int64, error) {
	query := `
		UPDATE instances
		SET recurrence_rule_id = NULL, is_series_anchor = false, updated_at = now()
		WHERE recurrence_rule_id = $1
	`
	tag, err := tx.Exec(ctx, query, ruleID)
	if err != nil {
		return 0, fmt.Errorf("detach instances by rule: %w", err)
	}
	return tag.RowsAffected(), nil
}

func instanceArgs(inst *model.Instance) []any {
	return []any{
		inst.ID,
		inst.RecurrenceRuleID,
		inst.ProfessorID,
		inst.StudentID,
		inst.StartTime,
		inst.EndTime,
		inst.Location,
		inst.Value,
		inst.Service,
		inst.Notes,
		string(inst.Status),
		inst.IsModified,
		inst.OriginalStartTime,
		inst.OriginalEndTime,
		inst.IsSeriesAnchor,
	}
}

func scanInstance(row pgx.Row) (*model.Instance, error) {
	inst := &model.Instance{}
	err := row.Scan(
		&inst.ID,
		&inst.RecurrenceRuleID,
		&inst.ProfessorID,
		&inst.StudentID,
		&inst.StartTime,
		&inst.EndTime,
		&inst.Location,
		&inst.Value,
		&inst.Service,
		&inst.Notes,
		(*string)(&inst.Status),
		&inst.IsModified,
		&inst.OriginalStartTime,
		&inst.OriginalEndTime,
		&inst.IsSeriesAnchor,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return inst, nil
}

func collectInstances(rows pgx.Rows) ([]*model.Instance, error) {
	var instances []*model.Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		instances = append(instances, inst)
	}
	return instances, rows.Err()
}
