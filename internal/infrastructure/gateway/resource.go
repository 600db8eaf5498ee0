package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/shopfront/adminsync/internal/domain/livelist"
)

// validate is shared across resources; payload structs carry their
// constraints as struct tags.
var validate = validator.New(validator.WithRequiredStructEnabled())

// resource implements the generic CRUD surface over one collection.
// Path, collection and singular names are the only things that differ
// between coupons, orders and carts; everything else is shared here.
type resource[E livelist.Entity] struct {
	client     *Client
	path       string // "/coupons"
	collection string // "coupons", the key list envelopes nest items under
	singular   string // "coupon", the key single-entity envelopes use
}

// List fetches one page, normalizing whichever envelope shape the
// endpoint happens to return.
func (r *resource[E]) List(ctx context.Context, page, pageSize int, filters map[string]string) (livelist.ListPage[E], error) {
	var zero livelist.ListPage[E]

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(pageSize))
	for k, v := range filters {
		if v != "" {
			query.Set(k, v)
		}
	}

	body, status, err := r.client.do(ctx, http.MethodGet, r.path, query, nil)
	if err != nil {
		return zero, err
	}
	if status >= 400 {
		return zero, parseFailure(status, body)
	}
	return normalizeList[E](body, r.collection)
}

// Create validates the payload client-side, then posts it. Server-side
// field errors come back as the same ValidationError shape.
func (r *resource[E]) Create(ctx context.Context, payload any) (E, error) {
	var zero E

	if err := validatePayload(payload); err != nil {
		return zero, err
	}

	body, status, err := r.client.do(ctx, http.MethodPost, r.path, nil, payload)
	if err != nil {
		return zero, err
	}
	if status >= 400 {
		return zero, parseFailure(status, body)
	}
	if msg, ok := rejected(body); ok {
		return zero, &livelist.ServerError{Status: status, Message: msg}
	}
	return decodeOne[E](body, r.singular)
}

// Update replaces the entity identified by id
func (r *resource[E]) Update(ctx context.Context, id string, payload any) (E, error) {
	var zero E

	if err := validatePayload(payload); err != nil {
		return zero, err
	}

	body, status, err := r.client.do(ctx, http.MethodPut, r.path+"/"+url.PathEscape(id), nil, payload)
	if err != nil {
		return zero, err
	}
	if status >= 400 {
		return zero, parseFailure(status, body)
	}
	if msg, ok := rejected(body); ok {
		return zero, &livelist.ServerError{Status: status, Message: msg}
	}
	return decodeOne[E](body, r.singular)
}

// Remove deletes the entity. The caller is expected to have confirmed
// destructive intent already; confirmation is a UI concern.
func (r *resource[E]) Remove(ctx context.Context, id string) error {
	body, status, err := r.client.do(ctx, http.MethodDelete, r.path+"/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return err
	}
	if status >= 400 {
		return parseFailure(status, body)
	}
	if msg, ok := rejected(body); ok {
		return &livelist.ServerError{Status: status, Message: msg}
	}
	return nil
}

// validatePayload runs struct-tag validation when the payload is a
// struct we know how to validate; anything else is passed through for
// the server to judge.
func validatePayload(payload any) error {
	if payload == nil {
		return nil
	}
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			name := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
			fields[name] = fe.Tag()
		}
		return &livelist.ValidationError{Fields: fields}
	}
	return err
}
