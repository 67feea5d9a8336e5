// Package source produces ordered document changes from the primary MongoDB
// collection. Two interchangeable strategies implement the same Source
// capability: a polling cursor over _id (exact checkpoint resumption) and a
// push-based change stream (lower latency, best-effort resumption).
package source

import "context"

// Change operations.
const (
	OpCreated = "created"
	OpUpdated = "updated"
)

// ChangeEvent is a single document change emitted by a Source. Position is
// the event's monotonic position marker (the document's ObjectID hex) in
// polling mode; feed-mode events carry no position, since that mode does
// not track checkpoints.
type ChangeEvent struct {
	ID        string
	Operation string
	Title     string
	Body      string
	Tags      []string
	Embedding []float32
	Position  string
}

// Source yields batches of document changes in position order.
type Source interface {
	// Next blocks until at least one change is available (or ctx is
	// cancelled) and returns the next batch, ordered ascending by
	// position. after is the caller's current checkpoint: changes at or
	// before it are excluded. Implementations that cannot resume from a
	// checkpoint ignore it.
	Next(ctx context.Context, after string) ([]ChangeEvent, error)
}
