package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/shopfront/adminsync/internal/domain/livelist"
)

// ErrNoStatusGateway is returned by Transition when the underlying
// gateway has no status endpoint.
var ErrNoStatusGateway = errors.New("gateway does not support status transitions")

// Reconciler ties the store, the REST gateway and the push channel
// together. Local submits and remote push events funnel into the same
// apply method, so there is exactly one implementation of "apply a
// change to the visible list" and no drift between "what I changed"
// and "what I was told changed".
//
// Local mutations apply synchronously on gateway success: the session
// reflects its own change with zero push round-trips. The emitted
// event is a courtesy to sibling sessions, not a prerequisite.
type Reconciler[E livelist.Entity] struct {
	store    *livelist.ListStore[E]
	gateway  livelist.Gateway[E]
	channel  livelist.Channel[E]
	notifier livelist.Notifier
	logger   *zap.Logger
	label    string
	session  string

	closed atomic.Bool
	mu     sync.Mutex
	unsubs []func()
}

// Option is a functional option for configuring the reconciler
type Option func(*options)

type options struct {
	notifier livelist.Notifier
	logger   *zap.Logger
	label    string
	session  string
}

// WithNotifier routes user-visible messaging (toasts, banners)
func WithNotifier(n livelist.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithLabel names the entity kind in notifications ("coupon", "order")
func WithLabel(label string) Option {
	return func(o *options) { o.label = label }
}

// WithSession identifies this admin session so its own echoed events
// are not re-applied or re-announced.
func WithSession(id string) Option {
	return func(o *options) { o.session = id }
}

// New creates a reconciler over a store, gateway and channel
func New[E livelist.Entity](store *livelist.ListStore[E], gw livelist.Gateway[E], ch livelist.Channel[E], opts ...Option) *Reconciler[E] {
	o := options{
		notifier: livelist.NopNotifier{},
		logger:   zap.NewNop(),
		label:    "entity",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Reconciler[E]{
		store:    store,
		gateway:  gw,
		channel:  ch,
		notifier: o.notifier,
		logger:   o.logger,
		label:    o.label,
		session:  o.session,
	}
}

// Start subscribes to every event kind on the push channel. Remote
// events are applied through the same path as local mutations.
func (r *Reconciler[E]) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, kind := range livelist.Kinds() {
		unsub, err := r.channel.Subscribe(kind, r.onRemote)
		if err != nil {
			return fmt.Errorf("reconcile: subscribe %s: %w", kind, err)
		}
		r.unsubs = append(r.unsubs, unsub)
	}
	return nil
}

// Close detaches all push subscriptions and guards the store against
// late gateway resolutions: an in-flight request finishing after Close
// must not mutate a discarded list.
func (r *Reconciler[E]) Close() {
	r.closed.Store(true)

	r.mu.Lock()
	unsubs := r.unsubs
	r.unsubs = nil
	r.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}

// Store exposes the list for rendering
func (r *Reconciler[E]) Store() *livelist.ListStore[E] {
	return r.store
}

// Refresh replaces the store with a freshly fetched page. This is also
// the user's manual recovery action after a network failure.
func (r *Reconciler[E]) Refresh(ctx context.Context, page, pageSize int, filters map[string]string) error {
	result, err := r.gateway.List(ctx, page, pageSize, filters)
	if err != nil {
		r.notifyError(err)
		return err
	}
	if r.closed.Load() {
		return nil
	}
	r.store.Load(result)
	return nil
}

// Create submits a new entity; on success it lands at the head of the
// list immediately and is rebroadcast to sibling sessions.
func (r *Reconciler[E]) Create(ctx context.Context, payload any) (E, error) {
	e, err := r.gateway.Create(ctx, payload)
	if err != nil {
		r.notifyError(err)
		return e, err
	}
	r.applyLocal(ctx, livelist.Created(e))
	return e, nil
}

// Update submits a replacement for an existing entity
func (r *Reconciler[E]) Update(ctx context.Context, id string, payload any) (E, error) {
	e, err := r.gateway.Update(ctx, id, payload)
	if err != nil {
		r.notifyError(err)
		return e, err
	}
	r.applyLocal(ctx, livelist.Updated(e))
	return e, nil
}

// Delete removes an entity. Destructive intent is confirmed by the UI
// before this is called.
func (r *Reconciler[E]) Delete(ctx context.Context, id string) error {
	if err := r.gateway.Remove(ctx, id); err != nil {
		r.notifyError(err)
		return err
	}
	r.applyLocal(ctx, livelist.Deleted[E](id))
	return nil
}

// Transition asks the server to move the entity to a new status. On
// rejection the store is left untouched and the server's message is
// surfaced.
func (r *Reconciler[E]) Transition(ctx context.Context, id string, status string) (E, error) {
	var zero E

	sg, ok := r.gateway.(livelist.StatusGateway[E])
	if !ok {
		return zero, ErrNoStatusGateway
	}

	e, err := sg.Transition(ctx, id, status)
	if err != nil {
		r.notifyError(err)
		return zero, err
	}
	r.applyLocal(ctx, livelist.StatusChanged(e, status))
	return e, nil
}

// applyLocal applies a successful local mutation and rebroadcasts it.
// A reconciler closed while the request was in flight applies nothing.
func (r *Reconciler[E]) applyLocal(ctx context.Context, ev livelist.MutationEvent[E]) {
	if r.closed.Load() {
		r.logger.Debug("dropping local mutation on closed reconciler",
			zap.String("kind", string(ev.Kind)),
			zap.String("id", ev.ID))
		return
	}

	ev.Origin = r.session
	r.apply(ev)

	// Best-effort fan-out; failure here never fails the local mutation
	if err := r.channel.Emit(ctx, ev); err != nil {
		r.logger.Warn("failed to rebroadcast mutation",
			zap.String("kind", string(ev.Kind)),
			zap.String("id", ev.ID),
			zap.Error(err))
	}
}

// onRemote applies a push event from a sibling session. Echoes of our
// own mutations are skipped: they were already applied synchronously.
func (r *Reconciler[E]) onRemote(ev livelist.MutationEvent[E]) {
	if r.closed.Load() {
		return
	}
	if r.session != "" && ev.Origin == r.session {
		return
	}

	r.apply(ev)
	r.notifier.Info(r.remoteMessage(ev))
}

// apply is the single mutation path shared by the local-success and
// remote-event flows. Every branch routes through an idempotent store
// primitive, so an event applied twice (local success racing a push
// echo) leaves the store unchanged the second time.
func (r *Reconciler[E]) apply(ev livelist.MutationEvent[E]) {
	switch ev.Kind {
	case livelist.EventCreated:
		// An entity that is already materialized (refresh raced the
		// event) is replaced in place instead of duplicated.
		if !r.store.ReplaceByID(ev.ID, ev.Entity) {
			r.store.InsertAtHead(ev.Entity)
		}
	case livelist.EventUpdated, livelist.EventStatusChanged:
		r.store.ReplaceByID(ev.ID, ev.Entity)
	case livelist.EventDeleted:
		r.store.RemoveByID(ev.ID)
	default:
		r.logger.Warn("unknown mutation kind", zap.String("kind", string(ev.Kind)))
	}
}

func (r *Reconciler[E]) remoteMessage(ev livelist.MutationEvent[E]) string {
	switch ev.Kind {
	case livelist.EventCreated:
		return fmt.Sprintf("%s %s created", r.label, ev.ID)
	case livelist.EventDeleted:
		return fmt.Sprintf("%s %s deleted", r.label, ev.ID)
	case livelist.EventStatusChanged:
		return fmt.Sprintf("%s %s is now %s", r.label, ev.ID, ev.Status)
	default:
		return fmt.Sprintf("%s %s updated", r.label, ev.ID)
	}
}

// notifyError surfaces gateway failures. Validation errors are not
// toasted: they belong next to the form fields and must not close the
// form, so they only travel back to the caller.
func (r *Reconciler[E]) notifyError(err error) {
	var verr *livelist.ValidationError
	if errors.As(err, &verr) {
		return
	}

	var serr *livelist.ServerError
	if errors.As(err, &serr) {
		r.notifier.Error(serr.Message)
		return
	}

	var terr *livelist.TransitionError
	if errors.As(err, &terr) {
		r.notifier.Error(terr.Message)
		return
	}

	if errors.Is(err, livelist.ErrNetwork) {
		r.notifier.Error("could not reach the server, try refreshing")
		return
	}
	if errors.Is(err, livelist.ErrMalformedResponse) {
		r.notifier.Error("unexpected server response")
		return
	}
	r.notifier.Error(err.Error())
}
