package livelist

// EventKind tags a MutationEvent
type EventKind string

const (
	EventCreated       EventKind = "created"
	EventUpdated       EventKind = "updated"
	EventDeleted       EventKind = "deleted"
	EventStatusChanged EventKind = "statusChanged"
)

// Kinds lists every event kind a reconciler subscribes to
func Kinds() []EventKind {
	return []EventKind{EventCreated, EventUpdated, EventDeleted, EventStatusChanged}
}

// MutationEvent is a self-contained description of a create, update,
// delete or status change: it carries enough to apply itself without a
// follow-up fetch. Raw transport topic strings never cross this
// boundary; the push codec constructs these at the edge.
type MutationEvent[E Entity] struct {
	Kind   EventKind
	ID     string
	Entity E      // zero value for Deleted
	Status string // set for StatusChanged only
	Origin string // session id of the originating admin, empty when unknown
}

// Created builds the event for a freshly created entity
func Created[E Entity](e E) MutationEvent[E] {
	return MutationEvent[E]{Kind: EventCreated, ID: e.EntityID(), Entity: e}
}

// Updated builds the event for a replaced entity
func Updated[E Entity](e E) MutationEvent[E] {
	return MutationEvent[E]{Kind: EventUpdated, ID: e.EntityID(), Entity: e}
}

// Deleted builds the event for a removed entity
func Deleted[E Entity](id string) MutationEvent[E] {
	return MutationEvent[E]{Kind: EventDeleted, ID: id}
}

// StatusChanged builds the event for a status transition, carrying the
// full updated entity so receivers can patch in place
func StatusChanged[E Entity](e E, status string) MutationEvent[E] {
	return MutationEvent[E]{Kind: EventStatusChanged, ID: e.EntityID(), Entity: e, Status: status}
}
