// Copyright (c) 2026 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/chimera-project/chimera.
//
// SPDX-License-Identifier: Apache-2.0
package client

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chimera-project/chimera/pkg/wire"
)

var (
	// ErrSendFromCallback is returned when a request is attempted from
	// inside a notification callback, which would deadlock the receive
	// loop.
	ErrSendFromCallback = errors.New("sending requests from a notification callback is not supported")

	// ErrConnectionClosed is returned for requests outstanding or issued
	// after the transport closed.
	ErrConnectionClosed = errors.New("connection to the server is closed")
)

// ErrorResponse is the generic failure surface for error responses whose
// code has no dedicated type. It carries the raw code, message, and data.
type ErrorResponse struct {
	Code    wire.ErrorCode
	Message string
	Data    map[string]interface{}
}

func (e *ErrorResponse) Error() string {
	msg := fmt.Sprintf("Error %d: %s", e.Code, e.Message)
	if details := e.Details(); details != "" {
		msg = fmt.Sprintf("%s (%s)", msg, details)
	}
	return msg
}

// Details returns the details string attached to the error, if any.
func (e *ErrorResponse) Details() string {
	if e.Data == nil {
		return ""
	}
	details, _ := e.Data["details"].(string)
	return details
}

// AlreadyInAMatchError reports a create or join while already in a match.
type AlreadyInAMatchError struct{ ErrorResponse }

// UnknownGameError reports a game id the server has not registered.
type UnknownGameError struct{ ErrorResponse }

// UnknownMatchError reports an unknown (or mismatched) match identifier.
type UnknownMatchError struct{ ErrorResponse }

// DuplicatePlayerError reports a join with a player name already taken in
// the match.
type DuplicatePlayerError struct{ ErrorResponse }

// IncorrectMatchError reports a game action against a match the client is
// not in.
type IncorrectMatchError struct{ ErrorResponse }

// GameNoSuchActionError reports an action the game does not support.
type GameNoSuchActionError struct{ ErrorResponse }

// GameIncorrectActionDataError reports an action with incorrect data.
type GameIncorrectActionDataError struct{ ErrorResponse }

// GameNotPlayerTurnError reports an action performed out of turn.
type GameNotPlayerTurnError struct{ ErrorResponse }

// GameIncorrectMoveError reports a move the game rules reject.
type GameIncorrectMoveError struct{ ErrorResponse }

// newErrorResponse maps a wire error object to its typed failure surface.
func newErrorResponse(obj *wire.ErrorObject) error {
	base := ErrorResponse{Code: obj.Code, Message: obj.Message, Data: obj.Data}
	switch obj.Code {
	case wire.AlreadyInMatch:
		return &AlreadyInAMatchError{base}
	case wire.UnknownGame:
		return &UnknownGameError{base}
	case wire.UnknownMatch:
		return &UnknownMatchError{base}
	case wire.DuplicatePlayer:
		return &DuplicatePlayerError{base}
	case wire.IncorrectMatch:
		return &IncorrectMatchError{base}
	case wire.GameNoSuchAction:
		return &GameNoSuchActionError{base}
	case wire.GameIncorrectActionData:
		return &GameIncorrectActionDataError{base}
	case wire.GameNotPlayerTurn:
		return &GameNotPlayerTurnError{base}
	case wire.GameIncorrectMove:
		return &GameIncorrectMoveError{base}
	default:
		return &base
	}
}

// MalformedResponseError reports a server response that is missing required
// members, independent of any wire error code.
type MalformedResponseError struct {
	Reason   string
	Response *wire.Message
}

func (e *MalformedResponseError) Error() string {
	raw, _ := json.Marshal(e.Response)
	return fmt.Sprintf("Malformed response: %s: %s", e.Reason, raw)
}
