package dispatcher

import (
	"context"

	"github.com/garyjia/expense-requirement/internal/domain/event"
)

// Handler processes lifecycle events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo names a registered handler for log output
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}
