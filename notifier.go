package akiwatch

import "context"

// Notifier delivers newly found slots to the user.
type Notifier interface {
	// Send delivers slots. It returns false without an error when nothing
	// was sent because slots is empty or sending is suppressed.
	// A misconfigured transport or bad credentials return an error.
	Send(ctx context.Context, slots []Slot) (sent bool, err error)
}
