// Copyright (c) 2026 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/chimera-project/chimera.
//
// SPDX-License-Identifier: Apache-2.0
package games

import "github.com/chimera-project/chimera/pkg/authoring"

// PlayerOneWins is a fun game (for player 1): each player says a phrase in
// turn, and once both have spoken the game is over and player 1 wins, no
// matter what was said.
type PlayerOneWins struct {
	authoring.TwoPlayerTurnBasedGame
	phrases []interface{}
}

// NewPlayerOneWins constructs the game. It takes no options.
func NewPlayerOneWins(options map[string]interface{}) authoring.Game {
	return &PlayerOneWins{}
}

func (g *PlayerOneWins) OnStart() {
	g.phrases = make([]interface{}, g.NumPlayers())
}

func (g *PlayerOneWins) OnEnd() {}

func (g *PlayerOneWins) move(player *authoring.Player, phrase interface{}) {
	g.phrases[player.ID] = phrase
	g.TurnToNextPlayer()
	g.NotifyUpdate()
}

func (g *PlayerOneWins) Done() bool {
	if len(g.phrases) == 0 {
		return false
	}
	for _, phrase := range g.phrases {
		if phrase == nil {
			return false
		}
	}
	return true
}

func (g *PlayerOneWins) Winner() *authoring.Player {
	if !g.Done() {
		return nil
	}
	return g.PlayerByID(0)
}

func (g *PlayerOneWins) GameState() map[string]interface{} {
	return map[string]interface{}{
		"player1_phrase": g.phrases[0],
		"player2_phrase": g.phrases[1],
	}
}

func (g *PlayerOneWins) Actions() map[string]authoring.ActionFunc {
	return map[string]authoring.ActionFunc{
		"move": g.ValidateTurn(authoring.ExpectData([]string{"phrase"}, g.actionMove)),
	}
}

func (g *PlayerOneWins) actionMove(player *authoring.Player, data map[string]interface{}) (map[string]interface{}, error) {
	phrase := data["phrase"]
	g.move(player, phrase)
	return map[string]interface{}{"received": phrase}, nil
}
