// Copyright (c) 2026 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/chimera-project/chimera.
//
// SPDX-License-Identifier: Apache-2.0

// Package authoring defines the contract between the chimera backend and
// plug-in games. A game is constructed from an options mapping, receives
// players as they join, and exposes its moves through a registry of named
// actions. The backend never inspects game internals beyond this interface.
package authoring

import "fmt"

// Player is a named participant within a match. Ids are dense and 0-based,
// assigned in seating order.
type Player struct {
	ID   int
	Name string
}

// ActionFunc applies a named, game-specific action for a player. The data
// payload comes straight from the request; the returned mapping becomes the
// response result. Failures must be reported as *GameError.
type ActionFunc func(player *Player, data map[string]interface{}) (map[string]interface{}, error)

// Factory constructs a fresh game instance from an options mapping.
type Factory func(options map[string]interface{}) Game

// Game is the authoring contract implemented by plug-in games.
type Game interface {
	// MinPlayers is the number of players needed before the match starts.
	MinPlayers() int
	// NumPlayers is the number of players currently in the game.
	NumPlayers() int
	// Players returns the players in seating order.
	Players() []*Player
	// AddPlayer creates a player with the next dense id and seats it.
	AddPlayer(name string) *Player

	// OnStart and OnEnd are lifecycle hooks, invoked exactly once per match.
	OnStart()
	OnEnd()

	// Done reports whether the game has finished.
	Done() bool
	// Winner is only meaningful once Done; nil means a draw.
	Winner() *Player

	// GameState is a JSON-serializable mapping of the observable state.
	GameState() map[string]interface{}

	// Actions returns the registry of named actions contributed by the game.
	Actions() map[string]ActionFunc

	// ConsumeStateUpdated reports whether an action materially altered the
	// state since the last call, clearing the flag in the process.
	ConsumeStateUpdated() bool
}

// Kind tags the closed set of game-level failure conditions.
type Kind int

const (
	NotPlayerTurn Kind = iota + 1
	IncorrectActionData
	IncorrectMove
)

var defaultDetails = map[Kind]string{
	NotPlayerTurn:       "It is not your turn.",
	IncorrectActionData: "Incorrect action data",
	IncorrectMove:       "Incorrect move",
}

// GameError is a structured failure raised by a game action.
type GameError struct {
	Kind    Kind
	Details string
}

func (e *GameError) Error() string {
	return e.Details
}

// NewGameError builds a game error, falling back to the canonical details
// string for the kind when none is given.
func NewGameError(kind Kind, details string) *GameError {
	if details == "" {
		details = defaultDetails[kind]
	}
	return &GameError{Kind: kind, Details: details}
}

// ExpectData wraps an action so that it only runs when the data payload
// contains exactly the given fields.
func ExpectData(fields []string, fn ActionFunc) ActionFunc {
	return func(player *Player, data map[string]interface{}) (map[string]interface{}, error) {
		for _, field := range fields {
			if _, ok := data[field]; !ok {
				return nil, NewGameError(IncorrectActionData, fmt.Sprintf("Missing data field: %s", field))
			}
		}
		for field := range data {
			if !containsField(fields, field) {
				return nil, NewGameError(IncorrectActionData, fmt.Sprintf("Unexpected data field: %s", field))
			}
		}
		return fn(player, data)
	}
}

func containsField(fields []string, field string) bool {
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}
