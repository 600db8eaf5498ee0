package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/shopfront/adminsync/internal/domain/livelist"
)

// The platform API grew organically and list endpoints nest their
// payloads three different ways:
//
//	{success, data: {coupons: [...], pagination: {...}}}
//	{coupons: [...], pagination: {...}}
//	[...]
//
// normalizeList tries each shape in that order and reports
// livelist.ErrMalformedResponse when none matches, so callers can tell
// "empty result" apart from "couldn't parse result".

// envelope is the common success/data response wrapper
type envelope struct {
	Success    *bool                `json:"success"`
	Message    string               `json:"message"`
	Errors     map[string]string    `json:"errors"`
	Error      *errorInfo           `json:"error"`
	Data       json.RawMessage      `json:"data"`
	Pagination *livelist.Pagination `json:"pagination"`
}

type errorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// message returns the most specific human-readable message present
func (e *envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Error != nil {
		return e.Error.Message
	}
	return ""
}

func normalizeList[E livelist.Entity](body []byte, collection string) (livelist.ListPage[E], error) {
	var zero livelist.ListPage[E]

	// Bare array
	var bare []E
	if err := json.Unmarshal(body, &bare); err == nil {
		return livelist.ListPage[E]{
			Items:      bare,
			Pagination: livelist.Pagination{Page: 1, Pages: 1, Total: len(bare)},
		}, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return zero, livelist.ErrMalformedResponse
	}

	// Nested data.<collection>
	if raw, ok := top["data"]; ok {
		var data map[string]json.RawMessage
		if err := json.Unmarshal(raw, &data); err == nil {
			if items, ok := itemsFrom[E](data, collection); ok {
				page := paginationFrom(data, len(items))
				if page.Total == 0 && len(items) > 0 {
					page = paginationFrom(top, len(items))
				}
				return livelist.ListPage[E]{Items: items, Pagination: page}, nil
			}
		}
		// data itself may be the array
		var dataItems []E
		if err := json.Unmarshal(raw, &dataItems); err == nil {
			return livelist.ListPage[E]{Items: dataItems, Pagination: paginationFrom(top, len(dataItems))}, nil
		}
	}

	// Top-level <collection>
	if items, ok := itemsFrom[E](top, collection); ok {
		return livelist.ListPage[E]{Items: items, Pagination: paginationFrom(top, len(items))}, nil
	}

	return zero, livelist.ErrMalformedResponse
}

func itemsFrom[E livelist.Entity](m map[string]json.RawMessage, collection string) ([]E, bool) {
	raw, ok := m[collection]
	if !ok {
		return nil, false
	}
	var items []E
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

func paginationFrom(m map[string]json.RawMessage, itemCount int) livelist.Pagination {
	for _, key := range []string{"pagination", "meta"} {
		raw, ok := m[key]
		if !ok {
			continue
		}
		var p livelist.Pagination
		if err := json.Unmarshal(raw, &p); err == nil && p.Total > 0 {
			if p.Page == 0 {
				p.Page = 1
			}
			return p
		}
	}
	return livelist.Pagination{Page: 1, Pages: 1, Total: itemCount}
}

// decodeOne extracts a single entity from a success response, probing
// data.<singular>, then data itself, then the bare body.
func decodeOne[E livelist.Entity](body []byte, singular string) (E, error) {
	var zero E

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Data != nil {
		var data map[string]json.RawMessage
		if err := json.Unmarshal(env.Data, &data); err == nil {
			if raw, ok := data[singular]; ok {
				var e E
				if err := json.Unmarshal(raw, &e); err == nil && e.EntityID() != "" {
					return e, nil
				}
			}
		}
		var e E
		if err := json.Unmarshal(env.Data, &e); err == nil && e.EntityID() != "" {
			return e, nil
		}
	}

	var e E
	if err := json.Unmarshal(body, &e); err == nil && e.EntityID() != "" {
		return e, nil
	}

	return zero, livelist.ErrMalformedResponse
}

// parseFailure maps a failed response onto the error taxonomy.
// Field-level messages become a ValidationError; anything else becomes
// a ServerError carrying the server's message verbatim.
func parseFailure(status int, body []byte) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		if len(env.Errors) > 0 {
			return &livelist.ValidationError{Fields: env.Errors}
		}
		if msg := env.message(); msg != "" {
			return &livelist.ServerError{Status: status, Message: msg}
		}
	}
	return &livelist.ServerError{Status: status, Message: http.StatusText(status)}
}

// rejected reports whether a 2xx response still signals failure
// through the success flag, returning the server's message.
func rejected(body []byte) (string, bool) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", false
	}
	if env.Success != nil && !*env.Success {
		msg := env.message()
		if msg == "" {
			msg = "request rejected"
		}
		return msg, true
	}
	return "", false
}
