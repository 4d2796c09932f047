// Copyright (c) 2026 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/chimera-project/chimera.
//
// SPDX-License-Identifier: Apache-2.0
package games

import "github.com/chimera-project/chimera/pkg/authoring"

// roundOutcome records one resolved round of Chicken.
type roundOutcome struct {
	p1Swerve bool
	p2Swerve bool
	p1Points int
	p2Points int
}

// Chicken is a game of simultaneous rounds. Each round both players submit
// whether they swerve; once both moves are in, points are awarded (1/1 when
// both swerve, 3 for not swerving against a swerver, 0/0 for the crash).
// The game ends with the round in which neither player swerves, and the
// higher total wins. A tie is a draw.
type Chicken struct {
	authoring.TwoPlayerGame
	points       [2]int
	currentRound [2]*bool
	rounds       []roundOutcome
}

// NewChicken constructs the game. It takes no options.
func NewChicken(options map[string]interface{}) authoring.Game {
	return &Chicken{}
}

func (g *Chicken) OnStart() {
	g.points = [2]int{}
	g.currentRound = [2]*bool{}
	g.rounds = nil
}

func (g *Chicken) OnEnd() {}

func (g *Chicken) move(player *authoring.Player, swerve bool) error {
	if g.currentRound[player.ID] != nil {
		return authoring.NewGameError(authoring.IncorrectMove,
			"Already submitted a move for this round")
	}
	g.currentRound[player.ID] = &swerve

	if g.currentRound[0] == nil || g.currentRound[1] == nil {
		return nil
	}

	// Both moves are in; resolve the round.
	p1Swerve := *g.currentRound[0]
	p2Swerve := *g.currentRound[1]
	var p1Points, p2Points int
	switch {
	case p1Swerve && p2Swerve:
		p1Points, p2Points = 1, 1
	case p1Swerve && !p2Swerve:
		p1Points, p2Points = 0, 3
	case !p1Swerve && p2Swerve:
		p1Points, p2Points = 3, 0
	}
	g.points[0] += p1Points
	g.points[1] += p2Points
	g.rounds = append(g.rounds, roundOutcome{p1Swerve, p2Swerve, p1Points, p2Points})
	g.currentRound = [2]*bool{}
	g.NotifyUpdate()
	return nil
}

func (g *Chicken) Done() bool {
	if len(g.rounds) == 0 {
		return false
	}
	last := g.rounds[len(g.rounds)-1]
	return !last.p1Swerve && !last.p2Swerve
}

func (g *Chicken) Winner() *authoring.Player {
	if !g.Done() {
		return nil
	}
	switch {
	case g.points[0] > g.points[1]:
		return g.PlayerByID(0)
	case g.points[0] < g.points[1]:
		return g.PlayerByID(1)
	default:
		return nil
	}
}

func (g *Chicken) GameState() map[string]interface{} {
	rounds := []interface{}{}
	for _, round := range g.rounds {
		rounds = append(rounds, map[string]interface{}{
			"p1_swerve": round.p1Swerve,
			"p2_swerve": round.p2Swerve,
			"p1_points": round.p1Points,
			"p2_points": round.p2Points,
		})
	}
	return map[string]interface{}{
		"p1_points": g.points[0],
		"p2_points": g.points[1],
		"rounds":    rounds,
	}
}

func (g *Chicken) Actions() map[string]authoring.ActionFunc {
	return map[string]authoring.ActionFunc{
		"move": authoring.ExpectData([]string{"swerve"}, g.actionMove),
	}
}

func (g *Chicken) actionMove(player *authoring.Player, data map[string]interface{}) (map[string]interface{}, error) {
	swerve, ok := data["swerve"].(bool)
	if !ok {
		return nil, authoring.NewGameError(authoring.IncorrectActionData, "'swerve' must be a boolean")
	}
	if err := g.move(player, swerve); err != nil {
		return nil, err
	}
	return map[string]interface{}{"swerve": swerve}, nil
}
