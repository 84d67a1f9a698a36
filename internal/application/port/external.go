package port

import (
	"context"
	"time"

	"github.com/garyjia/expense-requirement/internal/domain/entity"
)

// UserDirectory reports department membership and role.
// Lookup returns an error wrapping entity.ErrNotFound for unknown users.
type UserDirectory interface {
	Lookup(ctx context.Context, userID string) (*entity.User, error)
}

// SubLedger tracks receipts and balance returns for advance claims
type SubLedger interface {
	AdvanceStatus(ctx context.Context, requirementID string) (entity.AdvanceStatus, error)
}

// Clock supplies wall-clock time
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

// Now calls f
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock is the default Clock
var SystemClock Clock = ClockFunc(time.Now)

// Locker grants exclusive access to a single requirement.
// The returned unlock function must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// SheetWriter renders completed requirements into a disbursement file
type SheetWriter interface {
	WriteSheet(ctx context.Context, reqs []*entity.Requirement, day time.Time) (string, error)
}
