package push

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/shopfront/adminsync/internal/domain/livelist"
)

// Stream is the typed face of a Channel for one entity kind. It is the
// boundary where raw topic strings and JSON payloads become
// MutationEvents; malformed frames are logged and skipped, never
// propagated.
type Stream[E livelist.Entity] struct {
	ch     *Channel
	entity string
	logger *zap.Logger
}

// NewStream binds entity (the topic namespace, e.g. "coupon") to a
// channel.
func NewStream[E livelist.Entity](ch *Channel, entity string, logger *zap.Logger) *Stream[E] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stream[E]{ch: ch, entity: entity, logger: logger}
}

// Subscribe registers a typed handler for one event kind across every
// topic spelling that maps to it.
func (s *Stream[E]) Subscribe(kind livelist.EventKind, fn func(livelist.MutationEvent[E])) (func(), error) {
	topics := inboundTopics(s.entity, kind)

	unsubs := make([]func(), 0, len(topics))
	for _, topic := range topics {
		unsubs = append(unsubs, s.ch.Subscribe(topic, func(env Envelope) {
			ev, err := decodeEvent[E](kind, env)
			if err != nil {
				s.logger.Warn("dropping undecodable push event",
					zap.String("event", env.Event),
					zap.Error(err))
				return
			}
			fn(ev)
		}))
	}

	return func() {
		for _, u := range unsubs {
			u()
		}
	}, nil
}

// Emit rebroadcasts a locally-originated mutation so sibling admin
// sessions converge without polling.
func (s *Stream[E]) Emit(ctx context.Context, ev livelist.MutationEvent[E]) error {
	env, err := encodeEvent(s.entity, ev)
	if err != nil {
		return err
	}
	return s.ch.Emit(ctx, env)
}

func encodeEvent[E livelist.Entity](entity string, ev livelist.MutationEvent[E]) (Envelope, error) {
	data := eventData{ID: ev.ID, Status: ev.Status}

	if ev.Kind != livelist.EventDeleted {
		raw, err := json.Marshal(ev.Entity)
		if err != nil {
			return Envelope{}, fmt.Errorf("push: failed to marshal entity: %w", err)
		}
		data.Entity = raw
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("push: failed to marshal event data: %w", err)
	}

	return Envelope{
		Event:  outboundTopic(entity, ev.Kind),
		Origin: ev.Origin,
		Data:   raw,
	}, nil
}

func decodeEvent[E livelist.Entity](kind livelist.EventKind, env Envelope) (livelist.MutationEvent[E], error) {
	var zero livelist.MutationEvent[E]

	var data eventData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return zero, fmt.Errorf("push: malformed event data: %w", err)
		}
	}

	ev := livelist.MutationEvent[E]{
		Kind:   kind,
		ID:     data.id(),
		Status: data.Status,
		Origin: env.Origin,
	}

	if kind == livelist.EventDeleted {
		if ev.ID == "" {
			return zero, fmt.Errorf("push: delete event without id")
		}
		return ev, nil
	}

	// Every non-delete event must be self-contained: full entity, no
	// follow-up fetch.
	if len(data.Entity) == 0 {
		// Some emitters put the entity directly in data
		var e E
		if err := json.Unmarshal(env.Data, &e); err == nil && e.EntityID() != "" {
			ev.Entity = e
			ev.ID = e.EntityID()
			return ev, nil
		}
		return zero, fmt.Errorf("push: %s event without entity", kind)
	}

	var e E
	if err := json.Unmarshal(data.Entity, &e); err != nil {
		return zero, fmt.Errorf("push: malformed entity payload: %w", err)
	}
	ev.Entity = e
	if ev.ID == "" {
		ev.ID = e.EntityID()
	}
	if ev.ID == "" {
		return zero, fmt.Errorf("push: %s event without id", kind)
	}
	return ev, nil
}
