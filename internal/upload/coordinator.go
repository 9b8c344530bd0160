package upload

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// Coordinator drives the upload lifecycle: a session is ACTIVE from OnPhotoReceived until it
// is CONSUMED by a successful OnConfirm or CANCELLED by OnCancel.
type Coordinator struct {
	logger    *slog.Logger
	store     Store
	history   *History
	deliverer Deliverer
	confirms  *keyLock
	now       func() time.Time
}

// NewCoordinator creates a Coordinator. deliverer may be nil when email is not configured.
func NewCoordinator(log *slog.Logger, store Store, history *History, deliverer Deliverer) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		logger:    log.With(slog.String("component", "upload")),
		store:     store,
		history:   history,
		deliverer: deliverer,
		confirms:  newKeyLock(),
		now:       time.Now,
	}
}

// CanDeliver reports whether confirm actions can succeed at all.
func (c *Coordinator) CanDeliver() bool {
	return c.deliverer != nil && c.deliverer.Enabled()
}

// OnPhotoReceived registers a session for locator, records it in the user's history and
// returns the id to attach to the confirm action.
func (c *Coordinator) OnPhotoReceived(userID, locator string) string {
	id := c.store.Register(locator)
	c.history.Append(userID, PhotoRecord{
		ID:         id,
		Locator:    locator,
		UserID:     userID,
		ReceivedAt: c.now(),
	})
	c.logger.Info("session registered", slog.String("user_id", userID), slog.String("upload_id", id))
	return id
}

// OnConfirm consumes the session id. The session is retired only after delivery succeeds,
// so a failed delivery can be retried with the same id. Concurrent confirms for one id run
// one at a time; the later ones observe OutcomeExpired once the first has delivered.
func (c *Coordinator) OnConfirm(ctx context.Context, id string) Result {
	id = strings.TrimSpace(id)
	unlock := c.confirms.Lock(id)
	defer unlock()

	locator, err := c.store.Resolve(id)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			c.logger.Warn("resolve session failed", slog.String("upload_id", id), slog.Any("error", err))
		}
		return Result{Outcome: OutcomeExpired}
	}
	if !c.CanDeliver() {
		return Result{Outcome: OutcomeDeliveryFailed, Err: ErrDeliveryUnavailable}
	}

	receipt, err := c.deliverer.Deliver(ctx, locator)
	if err != nil {
		c.logger.Error("delivery failed", slog.String("upload_id", id), slog.Any("error", err))
		return Result{Outcome: OutcomeDeliveryFailed, Err: err}
	}
	c.store.Retire(id)
	c.logger.Info("session delivered",
		slog.String("upload_id", id),
		slog.String("recipient", receipt.Recipient),
		slog.String("file", receipt.FileName),
	)
	return Result{Outcome: OutcomeDelivered, Receipt: receipt}
}

// OnCancel retires the session of the user's most recent photo, whatever its state.
// It reports whether a live session was removed. A user without history is a no-op.
func (c *Coordinator) OnCancel(userID string) bool {
	record, ok := c.history.Latest(userID)
	if !ok || record.ID == "" {
		return false
	}
	retired := c.store.Retire(record.ID)
	c.logger.Info("session cancelled",
		slog.String("user_id", userID),
		slog.String("upload_id", record.ID),
		slog.Bool("retired", retired),
	)
	return retired
}

// Stats reports tracked users and pending sessions.
func (c *Coordinator) Stats() Stats {
	return Stats{
		UsersTracked:    c.history.Users(),
		PendingSessions: c.store.Len(),
	}
}
