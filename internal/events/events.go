// Package events publishes domain events so other processes can follow
// changes to users, categories and expenses.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gitlab.com/yelinaung/expense-tracker/internal/logger"
)

// Type names a domain event.
type Type string

// Event types.
const (
	UserRegistered  Type = "user.registered"
	UserUpdated     Type = "user.updated"
	CategoryCreated Type = "category.created"
	CategoryUpdated Type = "category.updated"
	CategoryDeleted Type = "category.deleted"
	CategorySeeded  Type = "category.seeded"
	ExpenseAdded    Type = "expense.added"
	ExpenseDeleted  Type = "expense.deleted"
)

// Event is a lightweight notification. Consumers look the record up by ID.
type Event struct {
	Type  Type      `json:"type"`
	Owner string    `json:"owner"`
	ID    string    `json:"id"`
	At    time.Time `json:"at"`
}

// New creates an event stamped with the current time.
func New(t Type, owner, id string) Event {
	return Event{Type: t, Owner: owner, ID: id, At: time.Now().UTC()}
}

// ToJSON converts the event to JSON bytes.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON decodes an event.
func FromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	if e.Type == "" {
		return nil, fmt.Errorf("failed to decode event: missing type")
	}
	return &e, nil
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Emit publishes e and logs a failure instead of returning it, so a broker
// outage never fails the user operation that produced the event.
func Emit(ctx context.Context, p Publisher, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		logger.Log.Warn().Err(err).
			Str("type", string(e.Type)).
			Str("user_hash", logger.HashUsername(e.Owner)).
			Msg("Failed to publish event")
	}
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the type of every published event, in order.
func (r *Recorder) Types() []Type {
	events := r.Events()
	types := make([]Type, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}
