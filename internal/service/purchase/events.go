package purchase

import (
	"CourseMarket/internal/payment"
	"CourseMarket/pkg/logger"
	"context"
	"fmt"
	"sync"
)

type EventHandler func(ctx context.Context, ev *payment.Event) error

type eventClaims interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// EventRouter delivers verified processor events to the handler registered for their type.
// Event ids are claimed before handling so a redelivered event is dropped early; handlers
// must still be idempotent because claims expire and can be released.
type EventRouter struct {
	log      logger.Log
	claims   eventClaims
	mu       sync.RWMutex
	handlers map[string]EventHandler
}

func NewEventRouter(log logger.Log, claims eventClaims) *EventRouter {
	return &EventRouter{
		log:      log.With("component", "payment-events"),
		claims:   claims,
		handlers: make(map[string]EventHandler),
	}
}

func (r *EventRouter) Register(eventType string, h EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[eventType] = h
}

func (r *EventRouter) handler(eventType string) (EventHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[eventType]
	return h, ok
}

func (r *EventRouter) Dispatch(ctx context.Context, ev *payment.Event) error {
	h, ok := r.handler(ev.Type)
	if !ok {
		r.log.Debug("ignoring event", "event_id", ev.ID, "type", ev.Type)
		return nil
	}

	claimed := false
	if r.claims != nil && ev.ID != "" {
		first, err := r.claims.Claim(ctx, ev.ID)
		if err != nil {
			// Handlers are idempotent, so keep going without the shortcut.
			r.log.ErrorErr("event claim failed", err, "event_id", ev.ID)
		} else if !first {
			r.log.Info("duplicate event dropped", "event_id", ev.ID, "type", ev.Type)
			return nil
		} else {
			claimed = true
		}
	}

	if err := h(ctx, ev); err != nil {
		if claimed {
			if rerr := r.claims.Release(ctx, ev.ID); rerr != nil {
				r.log.ErrorErr("event claim release failed", rerr, "event_id", ev.ID)
			}
		}
		return fmt.Errorf("handle %s %s: %w", ev.Type, ev.ID, err)
	}
	return nil
}
