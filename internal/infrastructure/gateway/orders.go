package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shopfront/adminsync/internal/domain/livelist"
)

// Orders is the order resource gateway. Besides generic CRUD it offers
// the status transition endpoint; the transition graph lives entirely
// on the server, which rejects illegal moves.
type Orders struct {
	resource[livelist.Order]
}

// NewOrders creates the order gateway over the shared client
func NewOrders(c *Client) *Orders {
	return &Orders{resource[livelist.Order]{
		client:     c,
		path:       "/orders",
		collection: "orders",
		singular:   "order",
	}}
}

type transitionRequest struct {
	Status string `json:"status"`
}

// Transition asks the server to move the order to a new status. A
// rejection (success:false or 4xx with a message) comes back as a
// TransitionError so the caller can toast it and leave the list alone.
func (o *Orders) Transition(ctx context.Context, id string, status string) (livelist.Order, error) {
	var zero livelist.Order

	body, code, err := o.client.do(ctx, http.MethodPut, o.path+"/"+url.PathEscape(id)+"/status", nil, transitionRequest{Status: status})
	if err != nil {
		return zero, err
	}
	if code >= 400 {
		err := parseFailure(code, body)
		if se, ok := err.(*livelist.ServerError); ok && code < 500 {
			return zero, &livelist.TransitionError{ID: id, Status: status, Message: se.Message}
		}
		return zero, err
	}
	if msg, ok := rejected(body); ok {
		return zero, &livelist.TransitionError{ID: id, Status: status, Message: msg}
	}
	return decodeOne[livelist.Order](body, o.singular)
}

var _ livelist.StatusGateway[livelist.Order] = (*Orders)(nil)
