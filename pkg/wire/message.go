// Copyright (c) 2026 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/chimera-project/chimera.
//
// SPDX-License-Identifier: Apache-2.0

// Package wire defines the framed JSON message envelope spoken between the
// chimera backend and its clients. Every frame is exactly one JSON message:
// a request (client to server), a response correlated by id, or a
// server-originated notification without an id.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Message type discriminators.
const (
	TypeRequest      = "request"
	TypeResponse     = "response"
	TypeNotification = "notification"
)

// ScopeMatch is the only notification scope currently emitted.
const ScopeMatch = "match"

// Notification events.
const (
	EventStart  = "start"
	EventUpdate = "update"
	EventEnd    = "end"
)

var nullID = []byte("null")

// Request is the client-to-server envelope. The id is kept as raw JSON so
// that any scalar chosen by the client round-trips unchanged.
type Request struct {
	Type      string                 `json:"type"`
	ID        json.RawMessage        `json:"id"`
	Operation string                 `json:"operation"`
	Params    map[string]interface{} `json:"params,omitempty"`
}

// Response is the server-to-client envelope correlated by id. Exactly one of
// Result and Error is set. The id marshals as null when the request id could
// not be parsed.
type Response struct {
	Type   string
	ID     json.RawMessage
	Result map[string]interface{}
	Error  *ErrorObject
}

// MarshalJSON emits exactly one of the result and error members. An empty
// success result still marshals as "result": {} so clients can tell success
// from failure by member presence.
func (r *Response) MarshalJSON() ([]byte, error) {
	if r.Error != nil {
		return json.Marshal(struct {
			Type  string          `json:"type"`
			ID    json.RawMessage `json:"id"`
			Error *ErrorObject    `json:"error"`
		}{r.Type, r.ID, r.Error})
	}
	result := r.Result
	if result == nil {
		result = map[string]interface{}{}
	}
	return json.Marshal(struct {
		Type   string                 `json:"type"`
		ID     json.RawMessage        `json:"id"`
		Result map[string]interface{} `json:"result"`
	}{r.Type, r.ID, result})
}

// Notification is a server-originated, uncorrelated envelope.
type Notification struct {
	Type  string                 `json:"type"`
	Scope string                 `json:"scope"`
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// Message is the generic decode target covering all three variants. Absent
// members stay at their zero values, which lets validation distinguish a
// missing member from a present one.
type Message struct {
	Type      string                 `json:"type"`
	ID        json.RawMessage        `json:"id,omitempty"`
	Operation string                 `json:"operation,omitempty"`
	Params    map[string]interface{} `json:"params,omitempty"`
	Result    map[string]interface{} `json:"result,omitempty"`
	Error     *ErrorObject           `json:"error,omitempty"`
	Scope     string                 `json:"scope,omitempty"`
	Event     string                 `json:"event,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// HasID reports whether the message carries a non-null id.
func (m *Message) HasID() bool {
	return len(m.ID) > 0 && !bytes.Equal(m.ID, nullID)
}

// HasResult reports whether the result member was present, even if empty.
func (m *Message) HasResult() bool {
	return m.Result != nil
}

// Decode parses a single frame into a Message.
func Decode(raw []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// NewResultResponse builds a success response echoing the request id.
func NewResultResponse(id json.RawMessage, result map[string]interface{}) *Response {
	if result == nil {
		result = map[string]interface{}{}
	}
	return &Response{Type: TypeResponse, ID: id, Result: result}
}

// NewErrorResponse builds an error response. A nil id marshals as null.
func NewErrorResponse(id json.RawMessage, code ErrorCode, details string) *Response {
	return &Response{Type: TypeResponse, ID: id, Error: NewErrorObject(code, details)}
}

// NewMatchNotification builds a match-scoped notification.
func NewMatchNotification(event string, data map[string]interface{}) *Notification {
	return &Notification{Type: TypeNotification, Scope: ScopeMatch, Event: event, Data: data}
}

// ParseErrorDetails renders the canonical details string for a JSON parse
// failure, naming the line and column derived from the decoder offset.
func ParseErrorDetails(raw []byte, err error) string {
	var offset int64
	switch e := err.(type) {
	case *json.SyntaxError:
		offset = e.Offset
	case *json.UnmarshalTypeError:
		offset = e.Offset
	}
	line, col := lineAndColumn(raw, offset)
	return fmt.Sprintf("Incorrect JSON (parsing failed at line %d column %d)", line, col)
}

// lineAndColumn converts a byte offset into 1-based line and column numbers.
func lineAndColumn(raw []byte, offset int64) (int, int) {
	if offset > int64(len(raw)) {
		offset = int64(len(raw))
	}
	if offset < 1 {
		return 1, 1
	}
	line, col := 1, 1
	for _, b := range raw[:offset-1] {
		if b == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
