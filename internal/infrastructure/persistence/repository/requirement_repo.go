package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/expense-requirement/internal/application/port"
	"github.com/garyjia/expense-requirement/internal/domain/entity"
	"github.com/garyjia/expense-requirement/internal/domain/workflow"
	"github.com/garyjia/expense-requirement/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const requirementColumns = `
	id, submitter_id, department_id, kind, state, progress, serial_number,
	bank_code, branch_code, account, account_name, cited_from,
	create_time, edit_time, submit_time, finalize_time,
	dept_chief_verdict, dept_chief_reason, dept_chief_actor, dept_chief_decided_at,
	president_verdict, president_reason, president_actor, president_decided_at,
	finance_staff_verdict, finance_staff_reason, finance_staff_actor, finance_staff_decided_at,
	finance_chief_verdict, finance_chief_reason, finance_chief_actor, finance_chief_decided_at,
	pay_date, expense_reference`

// RequirementRepository implements port.RequirementRepository on SQLite
type RequirementRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequirementRepository creates a new requirement repository
func NewRequirementRepository(db *sql.DB, logger *zap.Logger) port.RequirementRepository {
	return &RequirementRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new requirement
func (r *RequirementRepository) Create(ctx context.Context, req *entity.Requirement) error {
	query := `INSERT INTO requirements (` + requirementColumns + `, submit_day)
		VALUES (` + placeholders(35) + `)`

	args := append(requirementArgs(req), submitDay(req))
	args = append([]interface{}{req.ID}, args...)
	if _, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("Failed to create requirement", zap.String("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to create requirement: %w", err)
	}
	return nil
}

// GetByID retrieves a requirement by ID
func (r *RequirementRepository) GetByID(ctx context.Context, id string) (*entity.Requirement, error) {
	query := `SELECT ` + requirementColumns + ` FROM requirements WHERE id = ?`

	req, err := scanRequirement(sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get requirement by ID", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get requirement: %w", err)
	}
	return req, nil
}

// Update overwrites every mutable column
func (r *RequirementRepository) Update(ctx context.Context, req *entity.Requirement) error {
	query := `
		UPDATE requirements SET
			submitter_id = ?, department_id = ?, kind = ?, state = ?, progress = ?, serial_number = ?,
			bank_code = ?, branch_code = ?, account = ?, account_name = ?, cited_from = ?,
			create_time = ?, edit_time = ?, submit_time = ?, finalize_time = ?,
			dept_chief_verdict = ?, dept_chief_reason = ?, dept_chief_actor = ?, dept_chief_decided_at = ?,
			president_verdict = ?, president_reason = ?, president_actor = ?, president_decided_at = ?,
			finance_staff_verdict = ?, finance_staff_reason = ?, finance_staff_actor = ?, finance_staff_decided_at = ?,
			finance_chief_verdict = ?, finance_chief_reason = ?, finance_chief_actor = ?, finance_chief_decided_at = ?,
			pay_date = ?, expense_reference = ?, submit_day = ?
		WHERE id = ?
	`

	args := append(requirementArgs(req), submitDay(req), req.ID)
	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update requirement", zap.String("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to update requirement: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: requirement %s", entity.ErrNotFound, req.ID)
	}
	return nil
}

// CountSubmitted counts requirements of a department submitted on day
func (r *RequirementRepository) CountSubmitted(ctx context.Context, departmentID int, day string) (int, error) {
	query := `SELECT COUNT(*) FROM requirements WHERE department_id = ? AND submit_day = ?`

	var count int
	if err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, departmentID, day).Scan(&count); err != nil {
		r.logger.Error("Failed to count submitted requirements",
			zap.Int("department_id", departmentID),
			zap.String("day", day),
			zap.Error(err))
		return 0, fmt.Errorf("failed to count submitted requirements: %w", err)
	}
	return count, nil
}

// List returns requirements newest first
func (r *RequirementRepository) List(ctx context.Context, filter port.RequirementFilter) ([]*entity.Requirement, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.State != "" {
		where = append(where, "state = ?")
		args = append(args, string(filter.State))
	}
	if filter.DepartmentID != nil {
		where = append(where, "department_id = ?")
		args = append(args, *filter.DepartmentID)
	}
	if filter.SubmitterID != "" {
		where = append(where, "submitter_id = ?")
		args = append(args, filter.SubmitterID)
	}

	query := `SELECT ` + requirementColumns + ` FROM requirements`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY create_time DESC, id"

	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	} else if filter.Offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list requirements", zap.Error(err))
		return nil, fmt.Errorf("failed to list requirements: %w", err)
	}
	defer rows.Close()

	var reqs []*entity.Requirement
	for rows.Next() {
		req, err := scanRequirement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan requirement: %w", err)
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// requirementArgs returns column values after id, in requirementColumns order
func requirementArgs(req *entity.Requirement) []interface{} {
	args := []interface{}{
		req.SubmitterID, req.DepartmentID, string(req.Kind), string(req.State), string(req.Progress),
		nullString(req.SerialNumber),
		req.Bank.BankCode, req.Bank.BranchCode, req.Bank.Account, req.Bank.AccountName, req.CitedFrom,
		req.CreateTime, nullTime(req.EditTime), nullTime(req.SubmitTime), nullTime(req.FinalizeTime),
	}
	for _, a := range []entity.Approval{req.DeptChief, req.President, req.FinanceStaff, req.FinanceChief} {
		args = append(args, string(a.Verdict), a.Reason, a.ActorID, nullTime(a.DecidedAt))
	}
	return append(args, nullTime(req.PayDate), req.ExpenseReference)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequirement(row rowScanner) (*entity.Requirement, error) {
	var (
		req                                       entity.Requirement
		kind, state, progress                     string
		serial                                    sql.NullString
		editTime, submitTime, finalizeTime, payAt sql.NullTime
	)

	type approvalCols struct {
		verdict, reason, actor string
		decidedAt              sql.NullTime
	}
	var stages [4]approvalCols

	dest := []interface{}{
		&req.ID, &req.SubmitterID, &req.DepartmentID, &kind, &state, &progress, &serial,
		&req.Bank.BankCode, &req.Bank.BranchCode, &req.Bank.Account, &req.Bank.AccountName, &req.CitedFrom,
		&req.CreateTime, &editTime, &submitTime, &finalizeTime,
	}
	for i := range stages {
		dest = append(dest, &stages[i].verdict, &stages[i].reason, &stages[i].actor, &stages[i].decidedAt)
	}
	dest = append(dest, &payAt, &req.ExpenseReference)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	req.Kind = entity.Kind(kind)
	req.State = workflow.State(state)
	req.Progress = entity.Progress(progress)
	req.SerialNumber = serial.String
	req.EditTime = timePtr(editTime)
	req.SubmitTime = timePtr(submitTime)
	req.FinalizeTime = timePtr(finalizeTime)
	req.PayDate = timePtr(payAt)

	for i, slot := range []*entity.Approval{&req.DeptChief, &req.President, &req.FinanceStaff, &req.FinanceChief} {
		slot.Verdict = entity.Verdict(stages[i].verdict)
		slot.Reason = stages[i].reason
		slot.ActorID = stages[i].actor
		slot.DecidedAt = timePtr(stages[i].decidedAt)
	}
	return &req, nil
}

// submitDay is the serial-number day, indexed for CountSubmitted
func submitDay(req *entity.Requirement) interface{} {
	if req.SerialNumber == "" || len(req.SerialNumber) < 8 {
		return nil
	}
	return req.SerialNumber[:8]
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// Verify interface compliance
var _ port.RequirementRepository = (*RequirementRepository)(nil)
