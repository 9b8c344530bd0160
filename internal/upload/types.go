package upload

import (
	"context"
	"time"
)

// Session is a live, resolvable mapping from an opaque id to a resource locator.
type Session struct {
	ID        string
	Locator   string
	CreatedAt time.Time
}

// PhotoRecord is a permanent history entry for a photo that arrived from a user.
// Its ID matches the Session registered for it, which may since have been retired.
type PhotoRecord struct {
	ID         string
	Locator    string
	UserID     string
	ReceivedAt time.Time
}

// Outcome is the terminal result of attempting to consume a session.
type Outcome int

const (
	OutcomeDelivered Outcome = iota + 1
	OutcomeExpired
	OutcomeDeliveryFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeExpired:
		return "expired"
	case OutcomeDeliveryFailed:
		return "delivery_failed"
	default:
		return "unknown"
	}
}

// Receipt describes a successful delivery.
type Receipt struct {
	Recipient string
	FileName  string
	MessageID string
}

// Result is returned by Coordinator.OnConfirm. Err is set for OutcomeDeliveryFailed.
type Result struct {
	Outcome Outcome
	Receipt Receipt
	Err     error
}

// Deliverer forwards the resource behind a locator to its destination (email in production).
type Deliverer interface {
	Enabled() bool
	Deliver(ctx context.Context, locator string) (Receipt, error)
}

// Store maps upload ids to resource locators. It is the single source of truth
// for what can still be delivered. A multi-instance deployment would need a
// shared implementation of this interface.
type Store interface {
	Register(locator string) string
	Resolve(id string) (string, error)
	Retire(id string) bool
	Len() int
	// Sweep retires sessions created before the cutoff and returns how many were removed.
	Sweep(before time.Time) int
}

// Stats is a point-in-time view used by the status endpoint.
type Stats struct {
	UsersTracked    int
	PendingSessions int
}
