package ws

import (
	"encoding/json"

	"github.com/mcoot/balltoss/internal/api/apierr"
	"github.com/mcoot/balltoss/internal/model"
)

// Frame types that are not event names
const (
	TypeReply = "REPLY"
	TypeError = "ERROR"
)

// Inbound is a client request. ID is echoed on the reply when present.
type Inbound struct {
	Type    model.EventType `json:"type"`
	ID      *int64          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Reply answers a request/response event
type Reply struct {
	Type    string `json:"type"`
	ID      *int64 `json:"id,omitempty"`
	Payload any    `json:"payload"`
}

// ErrorReply refuses a request
type ErrorReply struct {
	Type  string          `json:"type"`
	ID    *int64          `json:"id,omitempty"`
	Error apierr.APIError `json:"error"`
}

// Push is a server-initiated frame
type Push struct {
	Type    model.EventType `json:"type"`
	Payload any             `json:"payload,omitempty"`
}

// EncodePush renders a notification as a push frame. A raw payload is
// copied into the frame byte-for-byte.
func EncodePush(n model.Notification) ([]byte, error) {
	raw, ok := n.Payload.(json.RawMessage)
	if !ok || len(raw) == 0 {
		return json.Marshal(Push{Type: n.Type, Payload: n.Payload})
	}

	typ, err := json.Marshal(n.Type)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 0, len(typ)+len(raw)+22)
	frame = append(frame, `{"type":`...)
	frame = append(frame, typ...)
	frame = append(frame, `,"payload":`...)
	frame = append(frame, raw...)
	frame = append(frame, '}')
	return frame, nil
}

func encodeReply(id *int64, payload any) ([]byte, error) {
	return json.Marshal(Reply{Type: TypeReply, ID: id, Payload: payload})
}

func encodeError(id *int64, err error) ([]byte, error) {
	return json.Marshal(ErrorReply{Type: TypeError, ID: id, Error: apierr.ToAPIError(err)})
}
