// Copyright (c) 2026 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/chimera-project/chimera.
//
// SPDX-License-Identifier: Apache-2.0
package authoring

// TwoPlayerGame is a reusable base for games with exactly two players. It
// keeps the seating order and the state-updated flag; embedding games supply
// the lifecycle hooks, state, and actions.
type TwoPlayerGame struct {
	players      []*Player
	stateUpdated bool
}

// MinPlayers is always two.
func (g *TwoPlayerGame) MinPlayers() int {
	return 2
}

// NumPlayers returns the number of seated players.
func (g *TwoPlayerGame) NumPlayers() int {
	return len(g.players)
}

// Players returns the players in seating order.
func (g *TwoPlayerGame) Players() []*Player {
	return g.players
}

// AddPlayer seats a new player with the next dense id.
func (g *TwoPlayerGame) AddPlayer(name string) *Player {
	player := &Player{ID: len(g.players), Name: name}
	g.players = append(g.players, player)
	return player
}

// PlayerByID returns the player with the given id, or nil.
func (g *TwoPlayerGame) PlayerByID(id int) *Player {
	if id < 0 || id >= len(g.players) {
		return nil
	}
	return g.players[id]
}

// NotifyUpdate raises the state-updated flag. Games call it from action
// bodies when the move materially altered the observable state.
func (g *TwoPlayerGame) NotifyUpdate() {
	g.stateUpdated = true
}

// ConsumeStateUpdated reports and clears the state-updated flag.
func (g *TwoPlayerGame) ConsumeStateUpdated() bool {
	updated := g.stateUpdated
	g.stateUpdated = false
	return updated
}

// TwoPlayerTurnBasedGame extends TwoPlayerGame with a current-player cursor
// for games where players alternate moves.
type TwoPlayerTurnBasedGame struct {
	TwoPlayerGame
	turn int
}

// CurrentPlayer returns the player whose turn it is.
func (g *TwoPlayerTurnBasedGame) CurrentPlayer() *Player {
	return g.PlayerByID(g.turn)
}

// TurnToNextPlayer advances the turn cursor to the next player in seating
// order.
func (g *TwoPlayerTurnBasedGame) TurnToNextPlayer() {
	g.turn = (g.turn + 1) % g.NumPlayers()
}

// ValidateTurn wraps an action so that it is rejected when invoked by any
// player other than the current one.
func (g *TwoPlayerTurnBasedGame) ValidateTurn(fn ActionFunc) ActionFunc {
	return func(player *Player, data map[string]interface{}) (map[string]interface{}, error) {
		if player != g.CurrentPlayer() {
			return nil, NewGameError(NotPlayerTurn, "")
		}
		return fn(player, data)
	}
}
