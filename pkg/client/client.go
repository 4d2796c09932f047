// Copyright (c) 2026 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/chimera-project/chimera.
//
// SPDX-License-Identifier: Apache-2.0

// Package client implements the chimera client runtime: a blocking
// request/response API multiplexed with an asynchronous notification stream
// over one duplex connection.
package client

import (
	"fmt"
	"sync"

	"github.com/chimera-project/chimera/pkg/wire"

	"go.uber.org/zap"
)

// Match status values, mirroring the match-status notification member. The
// zero value means no notification has been processed yet.
const (
	StatusUnknown         = ""
	StatusAwaitingPlayers = "awaiting-players"
	StatusReady           = "ready"
	StatusInProgress      = "in-progress"
	StatusDone            = "done"
)

// notificationBuffer bounds the per-match inbox; the receive loop must
// never block on a slow consumer.
const notificationBuffer = 256

// NotificationCallback receives match notifications as they arrive, on the
// receive loop's goroutine. The callback must call Process on the
// notification if it wants the match handle's derived state to advance, and
// must not issue requests.
type NotificationCallback func(*MatchNotification)

type matchKey struct {
	gameID  string
	matchID string
}

// Chimera is the entry point of the client API. Use Connect for a real
// server or NewFakeChimera for the in-process fake.
type Chimera struct {
	connector Connector
	logger    *zap.SugaredLogger

	mu       sync.Mutex
	matches  map[matchKey]*Match
	callback NotificationCallback
}

// Connect dials a chimera server over WebSocket.
func Connect(host, port string, logger *zap.SugaredLogger) (*Chimera, error) {
	api := newChimera(logger)
	connector, err := DialWebSocket(host, port, api.routeNotification, logger)
	if err != nil {
		return nil, err
	}
	api.connector = connector
	return api, nil
}

func newChimera(logger *zap.SugaredLogger) *Chimera {
	return &Chimera{
		logger:  logger,
		matches: map[matchKey]*Match{},
	}
}

// Close disconnects from the server, failing any outstanding requests.
func (c *Chimera) Close() error {
	return c.connector.Close()
}

// SetNotificationCallback switches notification delivery from the per-match
// inboxes to the given callback. Pass nil to switch back.
func (c *Chimera) SetNotificationCallback(callback NotificationCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callback = callback
}

// GetGames asks the server for its registered games, keyed by game id.
func (c *Chimera) GetGames() (map[string]*Game, error) {
	result, msg, err := c.sendRequest("list-games", nil)
	if err != nil {
		return nil, err
	}
	rawGames, ok := result["games"].([]interface{})
	if !ok {
		return nil, &MalformedResponseError{Reason: "Missing 'games' field", Response: msg}
	}
	games := map[string]*Game{}
	for _, entry := range rawGames {
		fields, _ := entry.(map[string]interface{})
		id, idOK := fields["id"].(string)
		description, descOK := fields["description"].(string)
		if !idOK || !descOK {
			return nil, &MalformedResponseError{Reason: "Missing 'id' or 'description' field in game", Response: msg}
		}
		games[id] = &Game{api: c, id: id, description: description}
	}
	return games, nil
}

// sendRequest performs one round trip and unwraps the result, translating
// error responses into typed errors and shape violations into
// MalformedResponseError.
func (c *Chimera) sendRequest(operation string, params map[string]interface{}) (map[string]interface{}, *wire.Message, error) {
	msg, err := c.connector.SendRequest(operation, params)
	if err != nil {
		return nil, nil, err
	}
	if msg.Type == "" || len(msg.ID) == 0 {
		return nil, msg, &MalformedResponseError{Reason: "Missing 'type' or 'id' field in response", Response: msg}
	}
	if msg.Type != wire.TypeResponse {
		return nil, msg, &MalformedResponseError{Reason: fmt.Sprintf("Unexpected message type '%s'", msg.Type), Response: msg}
	}
	if msg.Error != nil {
		return nil, msg, newErrorResponse(msg.Error)
	}
	if !msg.HasResult() {
		return nil, msg, &MalformedResponseError{Reason: "Missing 'result' field in response", Response: msg}
	}
	return msg.Result, msg, nil
}

// routeNotification hands an inbound notification to the match it belongs
// to, either via the registered callback or the match's inbox. Unroutable
// notifications are dropped.
func (c *Chimera) routeNotification(msg *wire.Message) {
	if msg.Scope != wire.ScopeMatch {
		c.logger.Debugf("Dropping notification with unsupported scope %q", msg.Scope)
		return
	}
	gameID, _ := msg.Data["game-id"].(string)
	matchID, _ := msg.Data["match-id"].(string)
	c.mu.Lock()
	match := c.matches[matchKey{gameID: gameID, matchID: matchID}]
	callback := c.callback
	c.mu.Unlock()
	if match == nil {
		c.logger.Debugf("Dropping notification for unknown match %s/%s", gameID, matchID)
		return
	}
	notification := &MatchNotification{match: match, event: msg.Event, data: msg.Data}
	if callback != nil {
		callback(notification)
		return
	}
	match.enqueue(notification)
}

func (c *Chimera) registerMatch(game *Game, matchID, playerName string) *Match {
	match := &Match{
		api:           c,
		game:          game,
		id:            matchID,
		playerName:    playerName,
		notifications: make(chan *MatchNotification, notificationBuffer),
	}
	c.mu.Lock()
	c.matches[matchKey{gameID: game.id, matchID: matchID}] = match
	c.mu.Unlock()
	return match
}

// Game is a handle on a game registered on the server.
type Game struct {
	api         *Chimera
	id          string
	description string
}

// ID returns the game identifier.
func (g *Game) ID() string {
	return g.id
}

// Description returns the game description.
func (g *Game) Description() string {
	return g.description
}

// CreateMatch creates a new match of this game with the given player name.
func (g *Game) CreateMatch(playerName string) (*Match, error) {
	params := map[string]interface{}{"game": g.id, "player-name": playerName}
	result, msg, err := g.api.sendRequest("create-match", params)
	if err != nil {
		return nil, err
	}
	matchID, ok := result["match-id"].(string)
	if !ok {
		return nil, &MalformedResponseError{Reason: "Missing 'match-id' field", Response: msg}
	}
	return g.api.registerMatch(g, matchID, playerName), nil
}

// JoinMatch joins an existing match of this game.
func (g *Game) JoinMatch(matchID, playerName string) (*Match, error) {
	params := map[string]interface{}{"game": g.id, "match-id": matchID, "player-name": playerName}
	result, msg, err := g.api.sendRequest("join-match", params)
	if err != nil {
		return nil, err
	}
	if len(result) != 0 {
		return nil, &MalformedResponseError{Reason: "Unexpected results in 'join-match'", Response: msg}
	}
	return g.api.registerMatch(g, matchID, playerName), nil
}

// Match is a handle on a match the client is playing in. Its derived state
// (status, game state, winner) only advances when a notification is
// processed.
type Match struct {
	api        *Chimera
	game       *Game
	id         string
	playerName string

	notifications chan *MatchNotification

	mu        sync.Mutex
	status    string
	gameState map[string]interface{}
	winner    string
}

// ID returns the match identifier.
func (m *Match) ID() string {
	return m.id
}

// PlayerName returns the name this client plays under.
func (m *Match) PlayerName() string {
	return m.playerName
}

// Status returns the match status from the last processed notification, or
// StatusUnknown.
func (m *Match) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// GameState returns the game state from the last processed notification.
func (m *Match) GameState() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gameState
}

// Winner returns the winner's name once the match is done, or the empty
// string (not done yet, or a draw).
func (m *Match) Winner() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.winner
}

// GameAction performs a named game-specific action and returns the action's
// result mapping.
func (m *Match) GameAction(action string, data map[string]interface{}) (map[string]interface{}, error) {
	if data == nil {
		data = map[string]interface{}{}
	}
	params := map[string]interface{}{"match-id": m.id, "action": action, "data": data}
	result, _, err := m.api.sendRequest("game-action", params)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// WaitForUpdate blocks until at least one notification for this match has
// been applied, then drains and applies any further queued ones. It is the
// rendezvous point for turn-based play.
func (m *Match) WaitForUpdate() {
	notification := <-m.notifications
	notification.Process()
	for {
		select {
		case notification := <-m.notifications:
			notification.Process()
		default:
			return
		}
	}
}

// NextNotification pops the next unprocessed notification without blocking,
// or returns nil.
func (m *Match) NextNotification() *MatchNotification {
	select {
	case notification := <-m.notifications:
		return notification
	default:
		return nil
	}
}

func (m *Match) enqueue(notification *MatchNotification) {
	select {
	case m.notifications <- notification:
	default:
		m.api.logger.Errorf("Notification inbox for match %s full, dropping %s", m.id, notification.event)
	}
}

func (m *Match) apply(notification *MatchNotification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = notification.MatchStatus()
	m.gameState = notification.GameState()
	m.winner = notification.Winner()
}

// MatchNotification carries one match-state event received from the server.
type MatchNotification struct {
	match *Match
	event string
	data  map[string]interface{}
}

// Event returns the notified event: start, update, or end.
func (n *MatchNotification) Event() string {
	return n.event
}

// MatchStatus returns the match-status member of the notification.
func (n *MatchNotification) MatchStatus() string {
	status, _ := n.data["match-status"].(string)
	return status
}

// GameState returns the game-state member of the notification, if present.
func (n *MatchNotification) GameState() map[string]interface{} {
	state, _ := n.data["game-state"].(map[string]interface{})
	return state
}

// Winner returns the match-winner member of the notification; empty for a
// draw or while the match is still running.
func (n *MatchNotification) Winner() string {
	winner, _ := n.data["match-winner"].(string)
	return winner
}

// Process copies the notification's state onto the match handle.
func (n *MatchNotification) Process() {
	n.match.apply(n)
}
