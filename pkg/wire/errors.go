// Copyright (c) 2026 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/chimera-project/chimera.
//
// SPDX-License-Identifier: Apache-2.0
package wire

// ErrorCode is a stable numeric error code carried in error responses.
type ErrorCode int

const (
	// General error codes.
	ParseError       ErrorCode = -32700
	IncorrectRequest ErrorCode = -32600
	NoSuchOperation  ErrorCode = -32601
	IncorrectParams  ErrorCode = -32602

	// Operation-specific codes.
	UnknownGame     ErrorCode = -40100
	AlreadyInMatch  ErrorCode = -40101
	UnknownMatch    ErrorCode = -40102
	DuplicatePlayer ErrorCode = -40103
	IncorrectMatch  ErrorCode = -40104

	// game-action codes.
	GameNotPlayerTurn       ErrorCode = -50100
	GameNoSuchAction        ErrorCode = -50101
	GameIncorrectActionData ErrorCode = -50102
	GameIncorrectMove       ErrorCode = -50103
)

var errorMessages = map[ErrorCode]string{
	ParseError:       "Parse error",
	IncorrectRequest: "Incorrect request",
	NoSuchOperation:  "No such operation",
	IncorrectParams:  "Incorrect parameters",

	UnknownGame:     "Unknown game",
	AlreadyInMatch:  "Already in a match",
	UnknownMatch:    "Unknown match",
	DuplicatePlayer: "Duplicate player name",
	IncorrectMatch:  "Incorrect match",

	GameNotPlayerTurn:       "Action not allowed outside player's turn",
	GameNoSuchAction:        "Unsupported action in game",
	GameIncorrectActionData: "Incorrect data in game action",
	GameIncorrectMove:       "Incorrect move",
}

// String returns the canonical human-readable message for the code.
func (c ErrorCode) String() string {
	msg, ok := errorMessages[c]
	if !ok {
		return "Unknown error"
	}
	return msg
}

// ErrorObject is the error member of a response message.
type ErrorObject struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Details returns the details string attached to the error, if any.
func (e *ErrorObject) Details() string {
	if e.Data == nil {
		return ""
	}
	details, _ := e.Data["details"].(string)
	return details
}

// NewErrorObject builds an error object with the canonical message for the
// code. An empty details string leaves the data member out entirely.
func NewErrorObject(code ErrorCode, details string) *ErrorObject {
	obj := &ErrorObject{
		Code:    code,
		Message: code.String(),
	}
	if details != "" {
		obj.Data = map[string]interface{}{"details": details}
	}
	return obj
}
