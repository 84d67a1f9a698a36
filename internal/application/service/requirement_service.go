package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/garyjia/expense-requirement/internal/application/dispatcher"
	"github.com/garyjia/expense-requirement/internal/application/port"
	appwf "github.com/garyjia/expense-requirement/internal/application/workflow"
	"github.com/garyjia/expense-requirement/internal/domain/entity"
	"github.com/garyjia/expense-requirement/internal/domain/event"
	domainwf "github.com/garyjia/expense-requirement/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// PresidentPolicy decides whether a requirement needs the president's approval
// after the department chief.
type PresidentPolicy func(req *entity.Requirement) bool

// RequirementService drives requirements through the approval chain
type RequirementService interface {
	Open(ctx context.Context, submitterID string, kind entity.Kind) (*entity.Requirement, error)
	Edit(ctx context.Context, id, actorID string, updates map[string]string) (*entity.Requirement, error)
	Submit(ctx context.Context, id, actorID string) (*entity.Requirement, error)
	Approve(ctx context.Context, id, approverID string) (*entity.Requirement, error)
	Reject(ctx context.Context, id, rejecterID, reason string) (*entity.Requirement, error)
	Cite(ctx context.Context, id, actorID string) (*entity.Requirement, error)
	Close(ctx context.Context, id, actorID string) (*entity.Requirement, error)
	SetPayDate(ctx context.Context, id, actorID string, date time.Time) (*entity.Requirement, error)
	SetExpenseReference(ctx context.Context, id, actorID, ref string) (*entity.Requirement, error)

	Get(ctx context.Context, id string) (*entity.Requirement, error)
	List(ctx context.Context, filter port.RequirementFilter) ([]*entity.Requirement, error)
	History(ctx context.Context, id string) ([]*entity.History, error)
}

type requirementServiceImpl struct {
	repo        port.RequirementRepository
	historyRepo port.HistoryRepository
	txManager   port.TransactionManager
	directory   port.UserDirectory
	locker      port.Locker
	logger      Logger

	clock          port.Clock
	subLedger      port.SubLedger
	dispatcher     dispatcher.Dispatcher
	needsPresident PresidentPolicy
}

// RequirementOption configures the requirement service
type RequirementOption func(*requirementServiceImpl)

// WithClock overrides the wall clock
func WithClock(clock port.Clock) RequirementOption {
	return func(s *requirementServiceImpl) {
		s.clock = clock
	}
}

// WithSubLedger enables derived progress for advance claims
func WithSubLedger(ledger port.SubLedger) RequirementOption {
	return func(s *requirementServiceImpl) {
		s.subLedger = ledger
	}
}

// WithDispatcher publishes lifecycle events after each committed change
func WithDispatcher(d dispatcher.Dispatcher) RequirementOption {
	return func(s *requirementServiceImpl) {
		s.dispatcher = d
	}
}

// WithPresidentPolicy sets the rule that routes approvals through the president
func WithPresidentPolicy(policy PresidentPolicy) RequirementOption {
	return func(s *requirementServiceImpl) {
		s.needsPresident = policy
	}
}

// NewRequirementService creates a new RequirementService
func NewRequirementService(
	repo port.RequirementRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	directory port.UserDirectory,
	locker port.Locker,
	logger Logger,
	opts ...RequirementOption,
) RequirementService {
	s := &requirementServiceImpl{
		repo:        repo,
		historyRepo: historyRepo,
		txManager:   txManager,
		directory:   directory,
		locker:      locker,
		logger:      logger,
		clock:       port.SystemClock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// outcome describes what a mutation did, for history and events
type outcome struct {
	action  entity.Action
	event   event.Type
	note    string
	payload map[string]interface{}
}

type mutation func(ctx context.Context, req *entity.Requirement, now time.Time) (*outcome, error)

// Open creates a DRAFT requirement for submitterID
func (s *requirementServiceImpl) Open(ctx context.Context, submitterID string, kind entity.Kind) (*entity.Requirement, error) {
	submitter, err := s.lookupUser(ctx, submitterID)
	if err != nil {
		return nil, err
	}

	req, err := entity.NewRequirement(submitter, kind, s.clock.Now())
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, req); err != nil {
			return fmt.Errorf("create requirement: %w", err)
		}
		return s.record(txCtx, req, submitterID, "", entity.ActionOpen, "", req.CreateTime)
	})
	if err != nil {
		s.logger.Error("Failed to open requirement", "submitter_id", submitterID, "kind", kind, "error", err)
		return nil, err
	}

	s.logger.Info("Requirement opened", "id", req.ID, "submitter_id", submitterID, "kind", kind)
	s.emit(ctx, event.TypeRequirementOpened, req, submitterID, map[string]interface{}{"kind": string(kind)})
	return req.Clone(), nil
}

// Edit applies banking-field or kind updates while the requirement is DRAFT
func (s *requirementServiceImpl) Edit(ctx context.Context, id, actorID string, updates map[string]string) (*entity.Requirement, error) {
	return s.mutate(ctx, id, actorID, func(ctx context.Context, req *entity.Requirement, now time.Time) (*outcome, error) {
		if !req.IsEditable() {
			return nil, invalidState("edit", req)
		}
		if err := ensureSubmitter(req, actorID); err != nil {
			return nil, err
		}
		if err := req.ApplyEdits(updates); err != nil {
			return nil, err
		}
		req.EditTime = &now

		fields := make([]string, 0, len(updates))
		for name := range updates {
			fields = append(fields, name)
		}
		sort.Strings(fields)
		return &outcome{
			action:  entity.ActionEdit,
			event:   event.TypeRequirementEdited,
			note:    strings.Join(fields, ","),
			payload: map[string]interface{}{"fields": fields},
		}, nil
	})
}

// Submit assigns the serial number and enters the approval chain.
// Counting the department's submissions and writing the new serial happen
// in one transaction, so concurrent submits cannot share a sequence.
func (s *requirementServiceImpl) Submit(ctx context.Context, id, actorID string) (*entity.Requirement, error) {
	return s.mutate(ctx, id, actorID, func(ctx context.Context, req *entity.Requirement, now time.Time) (*outcome, error) {
		if !req.IsEditable() {
			return nil, invalidState("submit", req)
		}
		if err := ensureSubmitter(req, actorID); err != nil {
			return nil, err
		}

		submitter, err := s.lookupUser(ctx, req.SubmitterID)
		if err != nil {
			return nil, err
		}

		machine := appwf.BuildRequirementMachine(req.State, appwf.Guards{})
		if err := machine.Fire(ctx, domainwf.TriggerSubmit); err != nil {
			return nil, transitionError("submit", req, err)
		}

		count, err := s.repo.CountSubmitted(ctx, submitter.DepartmentID, entity.SerialDay(now))
		if err != nil {
			return nil, fmt.Errorf("count submitted requirements: %w", err)
		}
		serial, err := entity.FormatSerialNumber(now, submitter.DepartmentID, count+1)
		if err != nil {
			return nil, err
		}

		req.DepartmentID = submitter.DepartmentID
		req.SerialNumber = serial
		req.State = machine.State()
		req.Progress = entity.ProgressInProgress
		req.SubmitTime = &now

		return &outcome{
			action:  entity.ActionSubmit,
			event:   event.TypeRequirementSubmitted,
			note:    serial,
			payload: map[string]interface{}{"serial_number": serial},
		}, nil
	})
}

// Approve records the current stage's approval and advances the chain
func (s *requirementServiceImpl) Approve(ctx context.Context, id, approverID string) (*entity.Requirement, error) {
	return s.mutate(ctx, id, approverID, func(ctx context.Context, req *entity.Requirement, now time.Time) (*outcome, error) {
		role, slot, err := s.authorizeStage(ctx, req, approverID, "approve")
		if err != nil {
			return nil, err
		}

		snapshot := req.Clone()
		machine := appwf.BuildRequirementMachine(req.State, appwf.Guards{
			NeedsPresident: func(context.Context) bool {
				return s.needsPresident != nil && s.needsPresident(snapshot)
			},
			IsReimburse: func(context.Context) bool {
				return snapshot.Kind == entity.KindReimburse
			},
		})
		if err := machine.Fire(ctx, domainwf.TriggerApprove); err != nil {
			return nil, transitionError("approve", req, err)
		}

		slot.Verdict = entity.VerdictApproved
		slot.ActorID = approverID
		slot.DecidedAt = &now
		req.State = machine.State()

		out := &outcome{
			action:  entity.ActionApprove,
			event:   event.TypeRequirementApproved,
			note:    string(role),
			payload: map[string]interface{}{"stage": string(role), "state": req.State.String()},
		}
		if req.State == domainwf.StateComplete {
			req.Progress = entity.ProgressCloseUp
			req.FinalizeTime = &now
			out.event = event.TypeRequirementCompleted
		}
		return out, nil
	})
}

// Reject abandons the requirement at the current stage
func (s *requirementServiceImpl) Reject(ctx context.Context, id, rejecterID, reason string) (*entity.Requirement, error) {
	reason = strings.TrimSpace(reason)

	return s.mutate(ctx, id, rejecterID, func(ctx context.Context, req *entity.Requirement, now time.Time) (*outcome, error) {
		role, slot, err := s.authorizeStage(ctx, req, rejecterID, "reject")
		if err != nil {
			return nil, err
		}
		if reason == "" {
			return nil, fmt.Errorf("%w: rejection reason is required", entity.ErrValidation)
		}

		machine := appwf.BuildRequirementMachine(req.State, appwf.Guards{})
		if err := machine.Fire(ctx, domainwf.TriggerReject); err != nil {
			return nil, transitionError("reject", req, err)
		}

		slot.Verdict = entity.VerdictRejected
		slot.Reason = reason
		slot.ActorID = rejecterID
		slot.DecidedAt = &now
		req.State = machine.State()
		req.Progress = entity.ProgressReject
		req.FinalizeTime = &now

		return &outcome{
			action:  entity.ActionReject,
			event:   event.TypeRequirementRejected,
			note:    reason,
			payload: map[string]interface{}{"stage": string(role), "reason": reason},
		}, nil
	})
}

// Cite copies a rejected requirement into a fresh DRAFT carrying only the
// banking fields. The original is read, never written.
func (s *requirementServiceImpl) Cite(ctx context.Context, id, actorID string) (*entity.Requirement, error) {
	var created *entity.Requirement

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		original, err := s.load(txCtx, id)
		if err != nil {
			return err
		}
		if original.State != domainwf.StateAbandoned {
			return invalidState("cite", original)
		}
		if err := ensureSubmitter(original, actorID); err != nil {
			return err
		}

		submitter, err := s.lookupUser(txCtx, original.SubmitterID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		req, err := entity.NewRequirement(submitter, original.Kind, now)
		if err != nil {
			return err
		}
		if err := req.ApplyEdits(original.BankFields()); err != nil {
			return fmt.Errorf("copy banking fields: %w", err)
		}
		req.EditTime = &now
		req.CitedFrom = original.ID

		if err := s.repo.Create(txCtx, req); err != nil {
			return fmt.Errorf("create cited requirement: %w", err)
		}
		if err := s.record(txCtx, req, actorID, "", entity.ActionCite, original.ID, now); err != nil {
			return err
		}
		created = req
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to cite requirement", "id", id, "actor_id", actorID, "error", err)
		return nil, err
	}

	s.logger.Info("Requirement cited", "id", created.ID, "cited_from", id)
	s.emit(ctx, event.TypeRequirementCited, created, actorID, map[string]interface{}{"cited_from": id})
	return created.Clone(), nil
}

// Close archives a DRAFT that will never be submitted
func (s *requirementServiceImpl) Close(ctx context.Context, id, actorID string) (*entity.Requirement, error) {
	return s.mutate(ctx, id, actorID, func(ctx context.Context, req *entity.Requirement, now time.Time) (*outcome, error) {
		if !req.IsEditable() {
			return nil, invalidState("close", req)
		}
		if err := ensureSubmitter(req, actorID); err != nil {
			return nil, err
		}
		req.FinalizeTime = &now
		return &outcome{action: entity.ActionClose, event: event.TypeRequirementClosed}, nil
	})
}

// SetPayDate records when a completed requirement was paid
func (s *requirementServiceImpl) SetPayDate(ctx context.Context, id, actorID string, date time.Time) (*entity.Requirement, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: pay date is required", entity.ErrValidation)
	}

	return s.mutate(ctx, id, actorID, func(ctx context.Context, req *entity.Requirement, now time.Time) (*outcome, error) {
		if err := s.authorizeFinanceChief(ctx, req, actorID, "set pay date on"); err != nil {
			return nil, err
		}
		req.PayDate = &date
		return &outcome{
			action:  entity.ActionSetPayDate,
			event:   event.TypeRequirementPaid,
			note:    date.Format("2006-01-02"),
			payload: map[string]interface{}{"pay_date": date.Format("2006-01-02")},
		}, nil
	})
}

// SetExpenseReference records the accounting expense id of a completed requirement
func (s *requirementServiceImpl) SetExpenseReference(ctx context.Context, id, actorID, ref string) (*entity.Requirement, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || len([]rune(ref)) > entity.MaxExpenseReferenceLen {
		return nil, fmt.Errorf("%w: expense reference must be 1-%d characters", entity.ErrValidation, entity.MaxExpenseReferenceLen)
	}

	return s.mutate(ctx, id, actorID, func(ctx context.Context, req *entity.Requirement, now time.Time) (*outcome, error) {
		if err := s.authorizeFinanceChief(ctx, req, actorID, "set expense reference on"); err != nil {
			return nil, err
		}
		req.ExpenseReference = ref
		return &outcome{action: entity.ActionSetExpenseReference, note: ref}, nil
	})
}

// Get returns a requirement with progress derived from the sub-ledger for advances
func (s *requirementServiceImpl) Get(ctx context.Context, id string) (*entity.Requirement, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.deriveProgress(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// List returns a page of requirements with derived progress
func (s *requirementServiceImpl) List(ctx context.Context, filter port.RequirementFilter) ([]*entity.Requirement, error) {
	reqs, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list requirements", "error", err)
		return nil, err
	}
	for _, req := range reqs {
		if err := s.deriveProgress(ctx, req); err != nil {
			return nil, err
		}
	}
	return reqs, nil
}

// History returns the audit trail of a requirement in insertion order
func (s *requirementServiceImpl) History(ctx context.Context, id string) ([]*entity.History, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	return s.historyRepo.GetByRequirementID(ctx, id)
}

// mutate runs fn on a copy of the requirement under its lock and inside a
// transaction. Nothing is written unless fn succeeds.
func (s *requirementServiceImpl) mutate(ctx context.Context, id, actorID string, fn mutation) (*entity.Requirement, error) {
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lock requirement %s: %w", id, err)
	}
	defer unlock()

	var (
		result *entity.Requirement
		out    *outcome
	)
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.load(txCtx, id)
		if err != nil {
			return err
		}

		req := current.Clone()
		now := s.clock.Now()
		out, err = fn(txCtx, req, now)
		if err != nil {
			return err
		}

		if err := s.repo.Update(txCtx, req); err != nil {
			return fmt.Errorf("update requirement: %w", err)
		}
		if err := s.record(txCtx, req, actorID, current.State, out.action, out.note, now); err != nil {
			return err
		}
		result = req
		return nil
	})
	if err != nil {
		s.logger.Error("Requirement operation failed", "id", id, "actor_id", actorID, "error", err)
		return nil, err
	}

	s.logger.Info("Requirement updated",
		"id", id,
		"action", out.action,
		"actor_id", actorID,
		"state", result.State,
	)
	if out.event != "" {
		s.emit(ctx, out.event, result, actorID, out.payload)
	}
	return result.Clone(), nil
}

func (s *requirementServiceImpl) record(ctx context.Context, req *entity.Requirement, actorID string, previous domainwf.State, action entity.Action, note string, at time.Time) error {
	h := &entity.History{
		RequirementID: req.ID,
		ActorID:       actorID,
		PreviousState: previous.String(),
		NewState:      req.State.String(),
		Action:        action,
		Note:          note,
		Timestamp:     at,
	}
	if err := s.historyRepo.Create(ctx, h); err != nil {
		return fmt.Errorf("create history: %w", err)
	}
	return nil
}

func (s *requirementServiceImpl) emit(ctx context.Context, t event.Type, req *entity.Requirement, actorID string, payload map[string]interface{}) {
	if s.dispatcher == nil {
		return
	}
	evt := event.NewEvent(t, req.ID, actorID, payload, s.clock.Now()).
		WithPayload("kind", string(req.Kind))
	if req.SerialNumber != "" {
		evt = evt.WithPayload("serial_number", req.SerialNumber)
	}
	s.dispatcher.DispatchAsync(context.WithoutCancel(ctx), evt)
}

func (s *requirementServiceImpl) load(ctx context.Context, id string) (*entity.Requirement, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get requirement: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: requirement %s", entity.ErrNotFound, id)
	}
	return req, nil
}

func (s *requirementServiceImpl) lookupUser(ctx context.Context, userID string) (*entity.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", entity.ErrValidation)
	}
	user, err := s.directory.Lookup(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup user %s: %w", userID, err)
	}
	return user, nil
}

// authorizeStage checks that actorID may decide the requirement's current stage
func (s *requirementServiceImpl) authorizeStage(ctx context.Context, req *entity.Requirement, actorID, op string) (entity.Role, *entity.Approval, error) {
	role, ok := entity.RequiredRole(req.State)
	if !ok {
		return "", nil, invalidState(op, req)
	}

	actor, err := s.lookupUser(ctx, actorID)
	if err != nil {
		return "", nil, err
	}
	if actor.Role != role {
		return "", nil, fmt.Errorf("%w: %s requires %s, %s is %s", entity.ErrRoleMismatch, req.State, role, actorID, actor.Role)
	}
	if role == entity.RoleDeptChief && actor.DepartmentID != req.DepartmentID {
		return "", nil, fmt.Errorf("%w: %s is not chief of department %d", entity.ErrRoleMismatch, actorID, req.DepartmentID)
	}

	slot := req.Approval(role)
	if slot.Decided() {
		return "", nil, fmt.Errorf("%w: %s stage of requirement %s already decided", entity.ErrInvalidState, role, req.ID)
	}
	return role, slot, nil
}

func (s *requirementServiceImpl) authorizeFinanceChief(ctx context.Context, req *entity.Requirement, actorID, op string) error {
	if req.State != domainwf.StateComplete {
		return invalidState(op, req)
	}
	actor, err := s.lookupUser(ctx, actorID)
	if err != nil {
		return err
	}
	if actor.Role != entity.RoleFinanceChief {
		return fmt.Errorf("%w: %s requires %s", entity.ErrRoleMismatch, op, entity.RoleFinanceChief)
	}
	return nil
}

func (s *requirementServiceImpl) deriveProgress(ctx context.Context, req *entity.Requirement) error {
	if s.subLedger == nil || req.Kind != entity.KindAdvance || !req.State.IsWaiting() {
		return nil
	}
	status, err := s.subLedger.AdvanceStatus(ctx, req.ID)
	if err != nil {
		return fmt.Errorf("query sub-ledger for %s: %w", req.ID, err)
	}
	req.Progress = status.Progress()
	return nil
}
