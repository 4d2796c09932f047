// Copyright (c) 2026 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/chimera-project/chimera.
//
// SPDX-License-Identifier: Apache-2.0
package backend

import (
	"github.com/chimera-project/chimera/pkg/authoring"
	"github.com/chimera-project/chimera/pkg/backend/fsm"
	"github.com/chimera-project/chimera/pkg/wire"

	"go.uber.org/zap"
)

// Match states as they appear in the match-status member of notifications.
const (
	StateAwaitingPlayers = "awaiting-players"
	StateReady           = "ready"
	StateInProgress      = "in-progress"
	StateDone            = "done"
)

// Match lifecycle events.
const (
	eventQuorum   = "player-quorum"
	eventStart    = "start"
	eventGameOver = "game-over"
)

// Match is a single playthrough of a game. Its lifecycle runs on a state
// machine that only ever moves forward:
//
//	awaiting-players --player-quorum--> ready --start--> in-progress --game-over--> done
//
// Subscribers receive a notification on start, on every state update, and
// on end, in subscription order.
type Match struct {
	matchID     string
	gameID      string
	game        authoring.Game
	machine     *fsm.FSM
	subscribers []*ClientSession
	logger      *zap.SugaredLogger
}

// NewMatch returns a match in the awaiting-players state.
func NewMatch(matchID, gameID string, game authoring.Game, logger *zap.SugaredLogger) *Match {
	m := &Match{
		matchID: matchID,
		gameID:  gameID,
		game:    game,
		logger:  logger.With("matchID", matchID),
	}
	cb := []*fsm.Callback{
		fsm.AfterEnter(StateInProgress).Do(m.onStarted),
		fsm.AfterEnter(StateDone).Do(m.onEnded),
	}
	trs := []*fsm.Transition{
		fsm.WhenIn(StateAwaitingPlayers).GotEvent(eventQuorum).GoTo(StateReady),
		fsm.WhenIn(StateReady).GotEvent(eventStart).GoTo(StateInProgress),
		fsm.WhenIn(StateInProgress).GotEvent(eventGameOver).GoTo(StateDone),
	}
	callbacks, transitions := fsm.InitCallbacksAndTransitions(cb, trs)
	machine, err := fsm.NewFSM(StateAwaitingPlayers, transitions, callbacks, m.logger)
	if err != nil {
		// Only reachable with a malformed callback table above.
		panic(err)
	}
	m.machine = machine
	return m
}

// ID returns the match identifier.
func (m *Match) ID() string {
	return m.matchID
}

// GameID returns the identifier of the registered game being played.
func (m *Match) GameID() string {
	return m.gameID
}

// Game returns the plug-in game instance.
func (m *Match) Game() authoring.Game {
	return m.game
}

// State returns the current lifecycle state.
func (m *Match) State() string {
	return m.machine.Current()
}

// AddPlayer seats a new player. Reaching the game's player quorum moves the
// match to the ready state.
func (m *Match) AddPlayer(name string) (*authoring.Player, error) {
	player := m.game.AddPlayer(name)
	if m.game.NumPlayers() >= m.game.MinPlayers() && m.State() == StateAwaitingPlayers {
		if err := m.machine.Fire(&fsm.Event{Name: eventQuorum}); err != nil {
			return nil, err
		}
	}
	return player, nil
}

// AddSubscriber registers a client for match notifications. Subscribers are
// notified in subscription order.
func (m *Match) AddSubscriber(sess *ClientSession) {
	m.subscribers = append(m.subscribers, sess)
}

// RemoveSubscriber drops a client from the notification fan-out.
func (m *Match) RemoveSubscriber(sess *ClientSession) {
	for i, sub := range m.subscribers {
		if sub == sess {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			return
		}
	}
}

// HasPlayer reports whether a player with the given name is in the match.
func (m *Match) HasPlayer(name string) bool {
	for _, p := range m.game.Players() {
		if p.Name == name {
			return true
		}
	}
	return false
}

// IsReady reports whether the match has reached its player quorum but has
// not started yet.
func (m *Match) IsReady() bool {
	return m.State() == StateReady
}

// Start moves a ready match into progress, invoking the game's start hook
// and fanning out the start notification.
func (m *Match) Start() error {
	return m.machine.Fire(&fsm.Event{Name: eventStart})
}

// End finishes an in-progress match, invoking the game's end hook and
// fanning out the end notification. The match is terminal afterwards.
func (m *Match) End() error {
	return m.machine.Fire(&fsm.Event{Name: eventGameOver})
}

// NotifyUpdate fans out an update notification reflecting the current
// state. The match stays in progress.
func (m *Match) NotifyUpdate() {
	m.broadcast(wire.EventUpdate)
}

func (m *Match) onStarted(*fsm.Event) error {
	m.game.OnStart()
	m.broadcast(wire.EventStart)
	return nil
}

func (m *Match) onEnded(*fsm.Event) error {
	m.game.OnEnd()
	m.broadcast(wire.EventEnd)
	return nil
}

// MatchState assembles the notification data payload. The game state is
// only exposed once the match is in progress; the winner only once it is
// done, with nil marking a draw.
func (m *Match) MatchState() map[string]interface{} {
	state := m.State()
	data := map[string]interface{}{
		"match-id":     m.matchID,
		"match-status": state,
		"game-id":      m.gameID,
	}
	if state == StateInProgress || state == StateDone {
		data["game-state"] = m.game.GameState()
	}
	if state == StateDone {
		if winner := m.game.Winner(); winner != nil {
			data["match-winner"] = winner.Name
		} else {
			data["match-winner"] = nil
		}
	}
	return data
}

func (m *Match) broadcast(event string) {
	data := m.MatchState()
	for _, sub := range m.subscribers {
		sub.SendNotification(wire.ScopeMatch, event, data)
	}
}
