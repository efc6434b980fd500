package iammetrics

import (
	"context"

	"go.uber.org/zap"

	"github.com/MrEthical07/iammetrics/internal/dispatch"
)

// RecordEvent routes a user event to its dedicated recording operation:
// logins, login errors and registrations have their own counters, every other
// type is counted as a generic user event.
func (r *Registry) RecordEvent(ev DomainEvent) {
	switch ev.Type {
	case EventLogin:
		r.RecordLogin(ev)
	case EventLoginError:
		r.RecordLoginError(ev)
	case EventRegister:
		r.RecordRegistration(ev)
	default:
		r.RecordGenericEvent(ev)
	}
}

// EventListener is the entry point the host's event bus calls for every user
// and admin event. Depending on Config.Listener it records on the caller's
// goroutine or hands events to a background worker.
type EventListener struct {
	registry *Registry
	logger   *zap.Logger
	users    *dispatch.Dispatcher[DomainEvent]
	admins   *dispatch.Dispatcher[AdminDomainEvent]
}

// NewEventListener returns a listener recording into r.
func NewEventListener(r *Registry) *EventListener {
	l := &EventListener{
		registry: r,
		logger:   r.logger,
	}

	cfg := r.cfg.Listener
	if !cfg.Async {
		return l
	}

	dcfg := dispatch.Config{BufferSize: cfg.BufferSize, DropIfFull: cfg.DropIfFull}
	l.users = dispatch.New(dcfg, func(_ context.Context, ev DomainEvent) {
		r.RecordEvent(ev)
	})
	l.admins = dispatch.New(dcfg, func(_ context.Context, ev AdminDomainEvent) {
		r.RecordGenericAdminEvent(ev)
	})
	return l
}

// OnEvent records a user event.
func (l *EventListener) OnEvent(ctx context.Context, ev DomainEvent) {
	if l.users == nil {
		l.registry.RecordEvent(ev)
		return
	}
	l.users.Emit(ctx, ev)
}

// OnAdminEvent records an admin event.
func (l *EventListener) OnAdminEvent(ctx context.Context, ev AdminDomainEvent) {
	if l.admins == nil {
		l.registry.RecordGenericAdminEvent(ev)
		return
	}
	l.admins.Emit(ctx, ev)
}

// Dropped returns the number of events dropped because the async buffer was full.
func (l *EventListener) Dropped() uint64 {
	return l.users.Dropped() + l.admins.Dropped()
}

// Close drains queued events. It is a no-op for synchronous listeners.
func (l *EventListener) Close() {
	l.users.Close()
	l.admins.Close()
	if dropped := l.Dropped(); dropped > 0 {
		l.logger.Warn("iammetrics: listener dropped events", zap.Uint64("dropped", dropped))
	}
}
