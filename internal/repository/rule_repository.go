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

// RuleRepository manages recurrence rule records. Rules are immutable
// after creation except the is_active toggle.
type RuleRepository struct {
	db     *base.Repository
	logger *zap.Logger
}

func NewRuleRepository(db *base.Repository, logger *zap.Logger) *RuleRepository {
	return &RuleRepository{
		db:     db,
		logger: logger,
	}
}

const ruleColumns = `id, group_id, professor_id, student_id, start_date,
		start_hour, start_minute, end_hour, end_minute,
		recurrence_type, recurrence_interval, week_days,
		end_type, end_date, end_count,
		location, value, service, notes, is_active, created_at, updated_at`

// CreateTx inserts a rule inside the caller's transaction, so a rule and
// its materialized instances commit together or not at all.
func (r *RuleRepository) CreateTx(ctx context.Context, tx pgx.Tx, rule *model.RecurrenceRule) error {
	query := `
		INSERT INTO recurrence_rules (id, group_id, professor_id, student_id, start_date,
			start_hour, start_minute, end_hour, end_minute,
			recurrence_type, recurrence_interval, week_days,
			end_type, end_date, end_count,
			location, value, service, notes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING created_at, updated_at
	`

	err := tx.QueryRow(
		ctx, query,
		rule.ID,
		rule.GroupID,
		rule.ProfessorID,
		rule.StudentID,
		rule.StartDate,
		rule.StartTime.Hour,
		rule.StartTime.Minute,
		rule.EndTime.Hour,
		rule.EndTime.Minute,
		string(rule.Recurrence.Type),
		rule.Recurrence.Interval,
		weekdaysToInts(rule.Recurrence.WeekDays),
		string(rule.End.Type),
		rule.End.Date,
		rule.End.Count,
		rule.Location,
		rule.Value,
		rule.Service,
		rule.Notes,
		rule.IsActive,
	).Scan(&rule.CreatedAt, &rule.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create recurrence rule: %w", err)
	}

	return nil
}

// GetByID returns the rule or nil when it does not exist.
func (r *RuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.RecurrenceRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM recurrence_rules WHERE id = $1`

	rule, err := scanRule(r.db.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recurrence rule by id: %w", err)
	}

	return rule, nil
}

// GetByProfessorID returns all rules for one professor, newest first.
func (r *RuleRepository) GetByProfessorID(ctx context.Context, professorID int64) ([]*model.RecurrenceRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM recurrence_rules WHERE professor_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, professorID)
	if err != nil {
		return nil, fmt.Errorf("get recurrence rules by professor: %w", err)
	}
	defer rows.Close()

	return collectRules(rows)
}

// GetAllActive returns every active rule, for the horizon materializer.
func (r *RuleRepository) GetAllActive(ctx context.Context) ([]*model.RecurrenceRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM recurrence_rules WHERE is_active = true ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all active recurrence rules: %w", err)
	}
	defer rows.Close()

	return collectRules(rows)
}

// SetActive toggles a rule without touching its generated instances.
func (r *RuleRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE recurrence_rules SET is_active = $2, updated_at = now() WHERE id = $1`

	affected, err := r.db.ExecAffected(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("set recurrence rule active: %w", err)
	}
	if affected == 0 {
		return &model.NotFoundError{Resource: "recurrence rule", ID: id.String()}
	}

	return nil
}

// DeleteTx removes the rule row inside the caller's transaction.
// Instance disposition (cascade or detach) is the instance repository's
// job and must run in the same transaction.
func (r *RuleRepository) DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	tag, err := tx.Exec(ctx, `DELETE FROM recurrence_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete recurrence rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &model.NotFoundError{Resource: "recurrence rule", ID: id.String()}
	}

	return nil
}

func scanRule(row pgx.Row) (*model.RecurrenceRule, error) {
	rule := &model.RecurrenceRule{}
	var weekDays []int32
	err := row.Scan(
		&rule.ID,
		&rule.GroupID,
		&rule.ProfessorID,
		&rule.StudentID,
		&rule.StartDate,
		&rule.StartTime.Hour,
		&rule.StartTime.Minute,
		&rule.EndTime.Hour,
		&rule.EndTime.Minute,
		(*string)(&rule.Recurrence.Type),
		&rule.Recurrence.Interval,
		&weekDays,
		(*string)(&rule.End.Type),
		&rule.End.Date,
		&rule.End.Count,
		&rule.Location,
		&rule.Value,
		&rule.Service,
		&rule.Notes,
		&rule.IsActive,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rule.Recurrence.WeekDays = intsToWeekdays(weekDays)
	return rule, nil
}

func collectRules(rows pgx.Rows) ([]*model.RecurrenceRule, error) {
	var rules []*model.RecurrenceRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurrence rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func weekdaysToInts(days []time.Weekday) []int32 {
	if len(days) == 0 {
		return nil
	}
	out := make([]int32, len(days))
	for i, d := range days {
		out[i] = int32(d)
	}
	return out
}

func intsToWeekdays(values []int32) []time.Weekday {
	if len(values) == 0 {
		return nil
	}
	out := make([]time.Weekday, len(values))
	for i, v := range values {
		out[i] = time.Weekday(v)
	}
	return out
}
