// Package events carries invalidation signals emitted after a mutation has
// committed. Publishing is fire-and-forget: a failed publish is logged and
// never affects the outcome of the mutation.
package events

import (
	"context"
	"sync"
	"time"
)

// Kind is the entity family an event concerns.
type Kind string

const (
	KindTransaction   Kind = "transactions"
	KindCashRegister  Kind = "cash_registers"
	KindInvestment    Kind = "investments"
	KindUser          Kind = "users"
	KindOtherCategory Kind = "other_categories"
	KindMedia         Kind = "media"
)

// Action is what happened to the entity.
type Action string

const (
	ActionCreated      Action = "created"
	ActionUpdated      Action = "updated"
	ActionDeleted      Action = "deleted"
	ActionRecalculated Action = "recalculated"
)

// Event signals that cached views of one entity (and of its kind) are stale.
type Event struct {
	Kind       Kind      `json:"kind"`
	ID         string    `json:"id"`
	Action     Action    `json:"action"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New builds an event stamped with the current time.
func New(kind Kind, id string, action Action) Event {
	return Event{Kind: kind, ID: id, Action: action, OccurredAt: time.Now().UTC()}
}

// Tags returns the invalidation keys for e: the kind and the kind-scoped id.
func (e Event) Tags() []string {
	tags := []string{string(e.Kind)}
	if e.ID != "" {
		tags = append(tags, string(e.Kind)+":"+e.ID)
	}
	return tags
}

// Publisher delivers events to whatever caches or clients listen.
type Publisher interface {
	Publish(ctx context.Context, events ...Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, ...Event) {}

// Multi fans events out to several publishers in order.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, events ...Event) {
	for _, p := range m {
		p.Publish(ctx, events...)
	}
}

// Recorder keeps every published event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, events ...Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Has reports whether an event with the given kind, id and action was recorded.
func (r *Recorder) Has(kind Kind, id string, action Action) bool {
	for _, e := range r.Events() {
		if e.Kind == kind && e.ID == id && e.Action == action {
			return true
		}
	}
	return false
}

// Reset forgets all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
