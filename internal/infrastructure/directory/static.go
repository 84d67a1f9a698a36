// Package directory resolves user ids to department and role
package directory

import (
	"context"
	"fmt"
	"sync"

	"github.com/garyjia/expense-requirement/internal/application/port"
	"github.com/garyjia/expense-requirement/internal/domain/entity"
)

// StaticDirectory serves a fixed user table, usually loaded from config
type StaticDirectory struct {
	mu    sync.RWMutex
	users map[string]entity.User
}

// NewStaticDirectory validates users and indexes them by id
func NewStaticDirectory(users []entity.User) (*StaticDirectory, error) {
	d := &StaticDirectory{users: make(map[string]entity.User, len(users))}
	for _, u := range users {
		if err := d.Put(u); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Put adds or replaces a user
func (d *StaticDirectory) Put(u entity.User) error {
	if u.ID == "" {
		return fmt.Errorf("%w: user id is required", entity.ErrValidation)
	}
	if !u.Role.IsValid() {
		return fmt.Errorf("%w: user %s has unknown role %q", entity.ErrValidation, u.ID, u.Role)
	}
	if u.DepartmentID < 0 || u.DepartmentID > 99 {
		return fmt.Errorf("%w: user %s department %d outside 0-99", entity.ErrValidation, u.ID, u.DepartmentID)
	}

	d.mu.Lock()
	d.users[u.ID] = u
	d.mu.Unlock()
	return nil
}

// Lookup implements port.UserDirectory
func (d *StaticDirectory) Lookup(ctx context.Context, userID string) (*entity.User, error) {
	d.mu.RLock()
	u, ok := d.users[userID]
	d.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: user %s", entity.ErrNotFound, userID)
	}
	return &u, nil
}

// Len returns the number of users
func (d *StaticDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}

var _ port.UserDirectory = (*StaticDirectory)(nil)
