package service

import (
	"context"
	"fmt"

	"github.com/garyjia/expense-requirement/internal/application/port"
	"github.com/garyjia/expense-requirement/internal/domain/entity"
	"github.com/garyjia/expense-requirement/internal/domain/workflow"
)

// DisbursementService exports completed requirements awaiting payment
type DisbursementService interface {
	// ExportUnpaid writes every COMPLETE requirement without a pay date
	ExportUnpaid(ctx context.Context) (string, error)
}

type disbursementServiceImpl struct {
	repo   port.RequirementRepository
	writer port.SheetWriter
	clock  port.Clock
	logger Logger
}

// NewDisbursementService creates a new DisbursementService
func NewDisbursementService(repo port.RequirementRepository, writer port.SheetWriter, clock port.Clock, logger Logger) DisbursementService {
	if clock == nil {
		clock = port.SystemClock
	}
	return &disbursementServiceImpl{
		repo:   repo,
		writer: writer,
		clock:  clock,
		logger: logger,
	}
}

func (s *disbursementServiceImpl) ExportUnpaid(ctx context.Context) (string, error) {
	reqs, err := s.repo.List(ctx, port.RequirementFilter{State: workflow.StateComplete})
	if err != nil {
		return "", fmt.Errorf("list completed requirements: %w", err)
	}

	unpaid := make([]*entity.Requirement, 0, len(reqs))
	for _, r := range reqs {
		if r.PayDate == nil {
			unpaid = append(unpaid, r)
		}
	}

	path, err := s.writer.WriteSheet(ctx, unpaid, s.clock.Now())
	if err != nil {
		s.logger.Error("Failed to export disbursement sheet", "count", len(unpaid), "error", err)
		return "", err
	}

	s.logger.Info("Disbursement sheet exported", "path", path, "count", len(unpaid))
	return path, nil
}
