package service

import (
	"fmt"

	"github.com/garyjia/expense-requirement/internal/domain/entity"
)

func invalidState(op string, req *entity.Requirement) error {
	if req.IsClosed() {
		return fmt.Errorf("%w: cannot %s requirement %s, it is closed", entity.ErrInvalidState, op, req.ID)
	}
	return fmt.Errorf("%w: cannot %s requirement %s in state %s", entity.ErrInvalidState, op, req.ID, req.State)
}

func transitionError(op string, req *entity.Requirement, err error) error {
	return fmt.Errorf("%w: cannot %s requirement %s in state %s (%v)", entity.ErrInvalidState, op, req.ID, req.State, err)
}

func ensureSubmitter(req *entity.Requirement, actorID string) error {
	if req.SubmitterID != actorID {
		return fmt.Errorf("%w: only the submitter may change requirement %s", entity.ErrRoleMismatch, req.ID)
	}
	return nil
}
