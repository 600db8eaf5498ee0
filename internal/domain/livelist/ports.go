package livelist

import "context"

// Gateway is the REST side of the sync pattern: request/response CRUD
// against the platform API. Implementations normalize heterogeneous
// response envelopes and map failures onto the error taxonomy in
// errors.go. Payloads are resource-specific request structs; resources
// without a create or update path return ErrUnsupportedOperation.
type Gateway[E Entity] interface {
	List(ctx context.Context, page, pageSize int, filters map[string]string) (ListPage[E], error)
	Create(ctx context.Context, payload any) (E, error)
	Update(ctx context.Context, id string, payload any) (E, error)
	Remove(ctx context.Context, id string) error
}

// StatusGateway extends Gateway for resources with a server-side
// status machine. The client never enforces the transition graph; the
// server rejects illegal transitions with a TransitionError.
type StatusGateway[E Entity] interface {
	Gateway[E]
	Transition(ctx context.Context, id string, status string) (E, error)
}

// Channel is the push side: best-effort delivery, no acknowledgement,
// FIFO per connection but no ordering across senders. Subscribe
// returns an unsubscribe handle; subscriptions survive transport
// reconnects without the caller re-subscribing.
type Channel[E Entity] interface {
	Subscribe(kind EventKind, fn func(MutationEvent[E])) (func(), error)
	Emit(ctx context.Context, ev MutationEvent[E]) error
}

// Notifier receives the user-visible messaging the reconciler drives:
// transient info toasts for remote changes, errors for failed local
// mutations.
type Notifier interface {
	Info(message string)
	Error(message string)
}

// NopNotifier discards all messages
type NopNotifier struct{}

func (NopNotifier) Info(string)  {}
func (NopNotifier) Error(string) {}
