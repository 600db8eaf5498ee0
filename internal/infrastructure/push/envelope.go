package push

import "encoding/json"

// Envelope is the wire frame exchanged with the relay. Event names are
// transport-level topic strings; nothing above this package matches on
// them.
type Envelope struct {
	Event  string          `json:"event"`
	Origin string          `json:"origin,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// eventData is the payload carried inside an envelope. Created,
// updated and status-changed events carry the full entity so receivers
// can patch their lists without a follow-up fetch; deletes carry only
// the id.
type eventData struct {
	ID     string          `json:"id,omitempty"`
	AltID  string          `json:"_id,omitempty"`
	Status string          `json:"status,omitempty"`
	Entity json.RawMessage `json:"entity,omitempty"`
}

func (d eventData) id() string {
	if d.ID != "" {
		return d.ID
	}
	return d.AltID
}
