// Package memory keeps requirements and their history in process memory.
// It backs tests and the "memory" database driver.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/garyjia/expense-requirement/internal/application/port"
	"github.com/garyjia/expense-requirement/internal/domain/entity"
)

type txMarker struct{}

// Store implements the requirement and history repositories plus a
// TransactionManager. Transactions are serialized; a failed transaction
// restores the snapshot taken when it began. Reads outside a transaction
// wait for the running one, so they never see uncommitted writes.
type Store struct {
	txMu sync.RWMutex

	mu           sync.RWMutex
	requirements map[string]*entity.Requirement
	serials      map[string]string
	history      []*entity.History
	nextHistory  int64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		requirements: make(map[string]*entity.Requirement),
		serials:      make(map[string]string),
	}
}

// Requirements returns the store as a RequirementRepository
func (s *Store) Requirements() port.RequirementRepository { return requirementRepo{s} }

// History returns the store as a HistoryRepository
func (s *Store) History() port.HistoryRepository { return historyRepo{s} }

// WithTransaction implements port.TransactionManager
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
		if err != nil {
			s.restore(snap)
		}
	}()

	return fn(context.WithValue(ctx, txMarker{}, true))
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txMarker{}).(bool)
	return v
}

// write runs fn with exclusive access. Outside a transaction it also waits
// for any running transaction so a rollback cannot discard the write.
func (s *Store) write(ctx context.Context, fn func() error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// read runs fn under the read lock. Outside a transaction it first waits
// for any running transaction to commit or roll back.
func (s *Store) read(ctx context.Context, fn func()) {
	if !inTx(ctx) {
		s.txMu.RLock()
		defer s.txMu.RUnlock()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

type snapshot struct {
	requirements map[string]*entity.Requirement
	serials      map[string]string
	historyLen   int
	nextHistory  int64
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		requirements: make(map[string]*entity.Requirement, len(s.requirements)),
		serials:      make(map[string]string, len(s.serials)),
		historyLen:   len(s.history),
		nextHistory:  s.nextHistory,
	}
	for id, req := range s.requirements {
		snap.requirements[id] = req.Clone()
	}
	for serial, id := range s.serials {
		snap.serials[serial] = id
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requirements = snap.requirements
	s.serials = snap.serials
	s.history = s.history[:snap.historyLen]
	s.nextHistory = snap.nextHistory
}

type requirementRepo struct{ s *Store }

func (r requirementRepo) Create(ctx context.Context, req *entity.Requirement) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.requirements[req.ID]; ok {
			return fmt.Errorf("requirement %s already exists", req.ID)
		}
		if err := r.s.claimSerial(req); err != nil {
			return err
		}
		r.s.requirements[req.ID] = req.Clone()
		return nil
	})
}

func (r requirementRepo) GetByID(ctx context.Context, id string) (*entity.Requirement, error) {
	var found *entity.Requirement
	r.s.read(ctx, func() {
		if req, ok := r.s.requirements[id]; ok {
			found = req.Clone()
		}
	})
	return found, nil
}

func (r requirementRepo) Update(ctx context.Context, req *entity.Requirement) error {
	return r.s.write(ctx, func() error {
		current, ok := r.s.requirements[req.ID]
		if !ok {
			return fmt.Errorf("%w: requirement %s", entity.ErrNotFound, req.ID)
		}
		if current.SerialNumber != req.SerialNumber {
			if err := r.s.claimSerial(req); err != nil {
				return err
			}
			delete(r.s.serials, current.SerialNumber)
		}
		r.s.requirements[req.ID] = req.Clone()
		return nil
	})
}

// claimSerial enforces serial number uniqueness; caller holds mu
func (s *Store) claimSerial(req *entity.Requirement) error {
	if req.SerialNumber == "" {
		return nil
	}
	if owner, ok := s.serials[req.SerialNumber]; ok && owner != req.ID {
		return fmt.Errorf("serial number %s already assigned to %s", req.SerialNumber, owner)
	}
	s.serials[req.SerialNumber] = req.ID
	return nil
}

func (r requirementRepo) CountSubmitted(ctx context.Context, departmentID int, day string) (int, error) {
	count := 0
	r.s.read(ctx, func() {
		for _, req := range r.s.requirements {
			if req.DepartmentID == departmentID && len(req.SerialNumber) >= 8 && req.SerialNumber[:8] == day {
				count++
			}
		}
	})
	return count, nil
}

func (r requirementRepo) List(ctx context.Context, filter port.RequirementFilter) ([]*entity.Requirement, error) {
	var out []*entity.Requirement
	r.s.read(ctx, func() {
		for _, req := range r.s.requirements {
			if filter.State != "" && req.State != filter.State {
				continue
			}
			if filter.DepartmentID != nil && req.DepartmentID != *filter.DepartmentID {
				continue
			}
			if filter.SubmitterID != "" && req.SubmitterID != filter.SubmitterID {
				continue
			}
			out = append(out, req.Clone())
		}
	})

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreateTime.Equal(out[j].CreateTime) {
			return out[i].CreateTime.After(out[j].CreateTime)
		}
		return out[i].ID < out[j].ID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

type historyRepo struct{ s *Store }

func (h historyRepo) Create(ctx context.Context, record *entity.History) error {
	return h.s.write(ctx, func() error {
		if _, ok := h.s.requirements[record.RequirementID]; !ok {
			return fmt.Errorf("%w: requirement %s", entity.ErrNotFound, record.RequirementID)
		}
		h.s.nextHistory++
		record.ID = h.s.nextHistory
		stored := *record
		h.s.history = append(h.s.history, &stored)
		return nil
	})
}

func (h historyRepo) GetByRequirementID(ctx context.Context, requirementID string) ([]*entity.History, error) {
	var out []*entity.History
	h.s.read(ctx, func() {
		for _, record := range h.s.history {
			if record.RequirementID == requirementID {
				c := *record
				out = append(out, &c)
			}
		}
	})
	return out, nil
}

// Verify interface compliance
var (
	_ port.TransactionManager    = (*Store)(nil)
	_ port.RequirementRepository = requirementRepo{}
	_ port.HistoryRepository     = historyRepo{}
)
