package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/expense-requirement/internal/application/port"
	"github.com/garyjia/expense-requirement/internal/domain/entity"
	"github.com/garyjia/expense-requirement/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new history record
func (r *HistoryRepository) Create(ctx context.Context, history *entity.History) error {
	query := `
		INSERT INTO requirement_history (
			requirement_id, actor_id, previous_state, new_state,
			action, note, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		history.RequirementID,
		history.ActorID,
		history.PreviousState,
		history.NewState,
		string(history.Action),
		history.Note,
		history.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to create history record", zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	history.ID = id
	return nil
}

// GetByRequirementID retrieves all history records for a requirement in insertion order
func (r *HistoryRepository) GetByRequirementID(ctx context.Context, requirementID string) ([]*entity.History, error) {
	query := `
		SELECT id, requirement_id, actor_id, previous_state, new_state,
			action, note, timestamp
		FROM requirement_history
		WHERE requirement_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, requirementID)
	if err != nil {
		r.logger.Error("Failed to get history by requirement ID", zap.String("requirement_id", requirementID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*entity.History
	for rows.Next() {
		var (
			record entity.History
			action string
		)
		err := rows.Scan(
			&record.ID,
			&record.RequirementID,
			&record.ActorID,
			&record.PreviousState,
			&record.NewState,
			&action,
			&record.Note,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		record.Action = entity.Action(action)
		records = append(records, &record)
	}

	return records, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
