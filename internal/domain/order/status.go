package order

import (
	"fmt"
	"strings"
)

// Status is an order lifecycle state.
type Status string

const (
	StatusPending             Status = "PENDING"
	StatusPreparing           Status = "PREPARING"
	StatusReady               Status = "READY"
	StatusServed              Status = "SERVED"
	StatusCompleted           Status = "COMPLETED"
	StatusCancelled           Status = "CANCELLED"
	StatusAwaitingCashPayment Status = "AWAITING_CASH_PAYMENT"
)

// transitions is the full status state machine. Terminal states have no
// outgoing transitions; cancellation is an ordinary transition to
// CANCELLED, with no separate code path.
var transitions = map[Status][]Status{
	StatusPending:             {StatusPreparing, StatusCancelled},
	StatusPreparing:           {StatusReady, StatusCancelled},
	StatusReady:               {StatusServed, StatusCancelled},
	StatusServed:              {StatusCompleted, StatusCancelled},
	StatusAwaitingCashPayment: {StatusCompleted, StatusCancelled},
	StatusCompleted:           {},
	StatusCancelled:           {},
}

// ParseStatus normalizes a client-supplied status string.
func ParseStatus(s string) (Status, bool) {
	status := Status(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := transitions[status]
	return status, ok
}

// Terminal reports whether the status has no outgoing transitions.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0 && s.Valid()
}

// Valid reports whether the status is part of the state machine.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// AllowedFrom returns the statuses reachable from s.
func AllowedFrom(s Status) []Status {
	return append([]Status(nil), transitions[s]...)
}

// InvalidTransitionError rejects a status change the state machine does
// not allow. Callers should re-read the order's current status.
type InvalidTransitionError struct {
	From    Status
	To      Status
	Allowed []Status
}

func (e *InvalidTransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	return fmt.Sprintf("invalid status transition: %s -> %s (valid: %s)",
		e.From, e.To, strings.Join(allowed, ", "))
}

// SideEffect names an event the caller must emit after a successful
// transition has been persisted.
type SideEffect int

const (
	// EmitStatusChanged corresponds to the order.status_changed event.
	EmitStatusChanged SideEffect = iota
	// EmitCompleted corresponds to the order.completed event, published
	// when an order lands on a terminal status.
	EmitCompleted
)

// Transition applies the requested status to the order. On success the
// order's status is updated and the side effects to emit are returned;
// on failure the order is left untouched and *InvalidTransitionError is
// returned. order.status_changed is always among the effects; landing on
// a terminal status adds order.completed.
func (o *Order) Transition(to Status) ([]SideEffect, error) {
	allowed := transitions[o.Status]
	permitted := false
	for _, s := range allowed {
		if s == to {
			permitted = true
			break
		}
	}
	if !permitted {
		return nil, &InvalidTransitionError{
			From:    o.Status,
			To:      to,
			Allowed: AllowedFrom(o.Status),
		}
	}

	o.Status = to

	effects := []SideEffect{EmitStatusChanged}
	if to.Terminal() {
		effects = append(effects, EmitCompleted)
	}
	return effects, nil
}
