package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/MrEthical07/iammetrics"
)

// Tracker keeps the directory in step with the user event stream: logins
// start sessions, logouts end them.
type Tracker struct {
	store  *Store
	logger *zap.Logger
}

// NewTracker returns a Tracker writing to store. A nil logger is replaced by a no-op.
func NewTracker(store *Store, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{store: store, logger: logger}
}

// Observe applies ev to the directory. Events without a session ID are ignored.
func (t *Tracker) Observe(ctx context.Context, ev iammetrics.DomainEvent) error {
	if ev.SessionID == "" || ev.RealmID == "" {
		return nil
	}

	switch ev.Type {
	case iammetrics.EventLogin, iammetrics.EventIdentityProviderLogin:
		if err := t.store.EnsureRealm(ctx, ev.RealmID); err != nil {
			return err
		}
		internalID, err := t.store.EnsureClient(ctx, ev.RealmID, ev.ClientID)
		if err != nil {
			return err
		}
		started, err := t.store.SessionStarted(ctx, SessionRecord{
			RealmID:          ev.RealmID,
			ClientID:         ev.ClientID,
			InternalClientID: internalID,
			SessionID:        ev.SessionID,
		})
		if err != nil {
			return err
		}
		if !started {
			t.logger.Debug("session already live", zap.String("realm", ev.RealmID), zap.String("session_id", ev.SessionID))
		}
	case iammetrics.EventLogout:
		if _, err := t.store.SessionEnded(ctx, ev.RealmID, ev.SessionID); err != nil {
			return err
		}
	}
	return nil
}
