package mock

import (
	"context"

	"github.com/fwojciec/akiwatch"
)

var _ akiwatch.Notifier = (*Notifier)(nil)

// Notifier is a mock implementation of akiwatch.Notifier.
type Notifier struct {
	SendFn func(ctx context.Context, slots []akiwatch.Slot) (bool, error)
}

func (n *Notifier) Send(ctx context.Context, slots []akiwatch.Slot) (bool, error) {
	return n.SendFn(ctx, slots)
}
