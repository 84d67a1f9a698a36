package port

import (
	"context"

	"github.com/garyjia/expense-requirement/internal/domain/entity"
	"github.com/garyjia/expense-requirement/internal/domain/workflow"
)

// RequirementFilter narrows List results; zero values mean "any"
type RequirementFilter struct {
	State        workflow.State
	DepartmentID *int
	SubmitterID  string
	Limit        int
	Offset       int
}

// RequirementRepository defines persistence operations for Requirement
type RequirementRepository interface {
	// Create inserts a new requirement
	Create(ctx context.Context, req *entity.Requirement) error

	// GetByID returns nil, nil when the requirement does not exist
	GetByID(ctx context.Context, id string) (*entity.Requirement, error)

	// Update overwrites every mutable column of an existing requirement
	Update(ctx context.Context, req *entity.Requirement) error

	// CountSubmitted counts requirements of a department submitted on day (YYYYMMDD)
	CountSubmitted(ctx context.Context, departmentID int, day string) (int, error)

	// List returns requirements newest first
	List(ctx context.Context, filter RequirementFilter) ([]*entity.Requirement, error)
}

// HistoryRepository defines persistence operations for the audit trail
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.History) error
	GetByRequirementID(ctx context.Context, requirementID string) ([]*entity.History, error)
}

// TransactionManager handles database transactions.
// Implementations must serialize transactions that count and then write
// serial numbers, so a department-day sequence cannot be handed out twice.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
