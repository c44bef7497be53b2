// Package realtime opens a websocket connection to a realtime streaming API,
// sends the session and response control events and collects the streamed
// text deltas until the response completes or the server reports an error.
//
// Framing, the opening handshake and the transport are delegated to
// gorilla/websocket. This package only knows about the JSON event envelope:
// every frame is an object with a "type" discriminator.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Client event types.
const (
	EventSessionUpdate  = "session.update"
	EventResponseCreate = "response.create"
)

// Server event types handled by the receive loop. The beta and GA protocol
// revisions name the text delta and completion events differently; both
// spellings are accepted.
const (
	EventSessionCreated    = "session.created"
	EventSessionUpdated    = "session.updated"
	EventOutputTextDelta   = "response.output_text.delta"
	EventTextDelta         = "response.text.delta"
	EventResponseCompleted = "response.completed"
	EventResponseDone      = "response.done"
	EventError             = "error"
)

// ModalityText requests text-only output.
const ModalityText = "text"

// ClientEvent is a JSON frame sent to the server.
type ClientEvent interface {
	EventType() string
}

// SessionUpdate configures the session.
type SessionUpdate struct {
	EventID string         `json:"event_id,omitempty"`
	Type    string         `json:"type"`
	Session SessionOptions `json:"session"`
}

// SessionOptions is the session object of a session.update event.
type SessionOptions struct {
	Modalities   []string `json:"modalities"`
	Instructions string   `json:"instructions,omitempty"`
}

func (e *SessionUpdate) EventType() string { return e.Type }

// ResponseCreate asks the server to generate a response.
type ResponseCreate struct {
	EventID  string          `json:"event_id,omitempty"`
	Type     string          `json:"type"`
	Response ResponseOptions `json:"response"`
}

// ResponseOptions is the response object of a response.create event.
type ResponseOptions struct {
	Modalities   []string `json:"modalities"`
	Instructions string   `json:"instructions,omitempty"`
}

func (e *ResponseCreate) EventType() string { return e.Type }

// NewSessionUpdate builds a text-only session.update event.
func NewSessionUpdate(instructions string) *SessionUpdate {
	return &SessionUpdate{
		EventID: NewEventID(),
		Type:    EventSessionUpdate,
		Session: SessionOptions{
			Modalities:   []string{ModalityText},
			Instructions: instructions,
		},
	}
}

// NewResponseCreate builds a text-only response.create event.
func NewResponseCreate(instructions string) *ResponseCreate {
	return &ResponseCreate{
		EventID: NewEventID(),
		Type:    EventResponseCreate,
		Response: ResponseOptions{
			Modalities:   []string{ModalityText},
			Instructions: instructions,
		},
	}
}

// NewEventID returns a client event id.
func NewEventID() string {
	return "evt_" + uuid.NewString()
}

// ServerEvent is a decoded server frame. Only the fields the receive loop
// looks at are decoded; Raw keeps the complete frame.
type ServerEvent struct {
	Type     string        `json:"type"`
	EventID  string        `json:"event_id,omitempty"`
	Delta    string        `json:"delta,omitempty"`
	Error    *ErrorDetail  `json:"error,omitempty"`
	Response *ResponseInfo `json:"response,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// ErrorDetail is the error object of an "error" event. Servers are not
// consistent about field types, so non-string values are kept as their JSON
// text and an error that is not an object is taken as the message.
type ErrorDetail struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Param   string `json:"param,omitempty"`
}

func (d *ErrorDetail) UnmarshalJSON(data []byte) error {
	var msg string
	if err := json.Unmarshal(data, &msg); err == nil {
		*d = ErrorDetail{Message: msg}
		return nil
	}

	var raw struct {
		Type    json.RawMessage `json:"type"`
		Code    json.RawMessage `json:"code"`
		Message json.RawMessage `json:"message"`
		Param   json.RawMessage `json:"param"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		*d = ErrorDetail{Message: string(data)}
		return nil
	}

	*d = ErrorDetail{
		Type:    scalarText(raw.Type),
		Code:    scalarText(raw.Code),
		Message: scalarText(raw.Message),
		Param:   scalarText(raw.Param),
	}
	return nil
}

// scalarText returns a JSON string's value, or the raw JSON text of any other
// value. null and absent values yield "".
func scalarText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// ResponseInfo is the subset of the response object carried by completion
// events.
type ResponseInfo struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status,omitempty"`
}

// DecodeServerEvent parses a frame. Only invalid JSON and a missing or
// non-string type are rejected; a field of an unexpected type is left zero
// so the event is still dispatched on its type.
func DecodeServerEvent(data []byte) (*ServerEvent, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decoding server event: %w", err)
	}
	if head.Type == "" {
		return nil, fmt.Errorf("decoding server event: missing type")
	}

	ev := &ServerEvent{}
	if err := json.Unmarshal(data, ev); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			ev = &ServerEvent{}
		}
	}
	ev.Type = head.Type
	ev.Raw = append(json.RawMessage(nil), data...)
	return ev, nil
}

// IsTextDelta reports whether the event carries a text fragment.
func (e *ServerEvent) IsTextDelta() bool {
	return e.Type == EventOutputTextDelta || e.Type == EventTextDelta
}

// IsCompletion reports whether the event ends the response.
func (e *ServerEvent) IsCompletion() bool {
	return e.Type == EventResponseCompleted || e.Type == EventResponseDone
}
