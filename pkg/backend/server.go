// Copyright (c) 2026 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/chimera-project/chimera.
//
// SPDX-License-Identifier: Apache-2.0

// Package backend implements the chimera match server: the request
// dispatcher, the match lifecycle, and the transports carrying framed JSON
// messages to and from clients.
package backend

import (
	"encoding/json"
	"fmt"

	"github.com/chimera-project/chimera/pkg/authoring"
	"github.com/chimera-project/chimera/pkg/wire"

	"go.uber.org/zap"
)

// MessageSink delivers encoded frames to a single connected client. The
// value is marshalled to exactly one JSON text frame.
type MessageSink interface {
	SendMessage(v interface{}) error
	Close() error
}

// ClientSession holds the per-connection state owned by the dispatcher: the
// transport handle, and the at-most-one match the client is playing in.
type ClientSession struct {
	sink   MessageSink
	match  *Match
	player *authoring.Player
	logger *zap.SugaredLogger
}

// SendResponse sends a success response correlated by id.
func (c *ClientSession) SendResponse(id json.RawMessage, result map[string]interface{}) {
	c.send(wire.NewResultResponse(id, result))
}

// SendError sends an error response. A nil id is sent as null.
func (c *ClientSession) SendError(id json.RawMessage, code wire.ErrorCode, details string) {
	c.send(wire.NewErrorResponse(id, code, details))
}

// SendNotification sends an uncorrelated notification.
func (c *ClientSession) SendNotification(scope, event string, data map[string]interface{}) {
	c.send(&wire.Notification{Type: wire.TypeNotification, Scope: scope, Event: event, Data: data})
}

func (c *ClientSession) send(v interface{}) {
	if err := c.sink.SendMessage(v); err != nil {
		c.logger.Errorf("Failed to deliver message: %v", err)
	}
}

// RegisteredGame binds a game id to the factory producing instances of it.
// Registered at server configuration time, immutable afterwards.
type RegisteredGame struct {
	GameID      string
	Factory     authoring.Factory
	Description string
}

type handlerFunc func(*ClientSession, json.RawMessage, map[string]interface{})

// Server is the game-agnostic match server dispatcher. It owns the game
// registry, the active matches, and the per-client sessions. ProcessMessage
// must not be called concurrently; transports serialize inbound frames.
type Server struct {
	games    map[string]*RegisteredGame
	matches  map[string]*Match
	handlers map[string]handlerFunc
	slugs    SlugSource
	logger   *zap.SugaredLogger
}

// NewServer returns a server with an empty game registry.
func NewServer(slugs SlugSource, logger *zap.SugaredLogger) *Server {
	s := &Server{
		games:   map[string]*RegisteredGame{},
		matches: map[string]*Match{},
		slugs:   slugs,
		logger:  logger,
	}
	s.handlers = map[string]handlerFunc{
		"list-games":   s.handleListGames,
		"create-match": s.handleCreateMatch,
		"join-match":   s.handleJoinMatch,
		"game-action":  s.handleGameAction,
	}
	return s
}

// RegisterGame adds a game to the registry served by list-games.
func (s *Server) RegisterGame(gameID string, factory authoring.Factory, description string) {
	s.games[gameID] = &RegisteredGame{GameID: gameID, Factory: factory, Description: description}
	s.logger.Infof("Registered game %q (%s)", gameID, description)
}

// NewSession creates the dispatcher-side state for a new connection.
func (s *Server) NewSession(sink MessageSink) *ClientSession {
	return &ClientSession{sink: sink, logger: s.logger}
}

// Disconnect removes a departing client from its match's subscriber set and
// clears its match pointers. The remaining players keep playing.
func (s *Server) Disconnect(sess *ClientSession) {
	if sess.match != nil {
		sess.match.RemoveSubscriber(sess)
	}
	sess.match = nil
	sess.player = nil
}

// HasMatch reports whether a match id is in the active registry.
func (s *Server) HasMatch(matchID string) bool {
	_, ok := s.matches[matchID]
	return ok
}

// MatchByID returns an active match, or nil.
func (s *Server) MatchByID(matchID string) *Match {
	return s.matches[matchID]
}

// ProcessMessage validates one inbound frame and dispatches it to the
// operation handler. Validation short-circuits on the first failure; the
// response id is null for failures before the id could be parsed.
func (s *Server) ProcessMessage(sess *ClientSession, raw []byte) {
	var msg map[string]interface{}
	if err := json.Unmarshal(raw, &msg); err != nil {
		sess.SendError(nil, wire.ParseError, wire.ParseErrorDetails(raw, err))
		return
	}

	msgType, ok := msg["type"]
	if !ok {
		sess.SendError(nil, wire.IncorrectRequest, "Message has no 'type' member")
		return
	}
	if msgType != wire.TypeRequest {
		sess.SendError(nil, wire.IncorrectRequest, fmt.Sprintf("Incorrect message type: %v", msgType))
		return
	}

	if msg["id"] == nil {
		sess.SendError(nil, wire.IncorrectRequest, "No id specified")
		return
	}
	id, err := json.Marshal(msg["id"])
	if err != nil {
		sess.SendError(nil, wire.IncorrectRequest, "No id specified")
		return
	}

	if msg["operation"] == nil {
		sess.SendError(id, wire.IncorrectRequest, "No operation specified")
		return
	}
	operation, _ := msg["operation"].(string)
	handler, ok := s.handlers[operation]
	if !ok {
		sess.SendError(id, wire.NoSuchOperation, "")
		return
	}

	params, _ := msg["params"].(map[string]interface{})
	handler(sess, id, params)
}

// validateParams checks that all required parameters are present, reporting
// the first missing one.
func (s *Server) validateParams(sess *ClientSession, id json.RawMessage, params map[string]interface{}, required []string) bool {
	for _, param := range required {
		if _, ok := params[param]; !ok {
			sess.SendError(id, wire.IncorrectParams, fmt.Sprintf("Missing '%s' parameter", param))
			return false
		}
	}
	return true
}

func (s *Server) handleListGames(sess *ClientSession, id json.RawMessage, _ map[string]interface{}) {
	games := []interface{}{}
	for _, rg := range s.games {
		games = append(games, map[string]interface{}{
			"id":          rg.GameID,
			"description": rg.Description,
		})
	}
	sess.SendResponse(id, map[string]interface{}{"games": games})
}

func (s *Server) handleCreateMatch(sess *ClientSession, id json.RawMessage, params map[string]interface{}) {
	if sess.match != nil {
		sess.SendError(id, wire.AlreadyInMatch, "You are already in a match. You cannot create new matches.")
		return
	}
	if !s.validateParams(sess, id, params, []string{"game", "player-name"}) {
		return
	}

	gameID, _ := params["game"].(string)
	rg, ok := s.games[gameID]
	if !ok {
		sess.SendError(id, wire.UnknownGame, fmt.Sprintf("Unknown game: %v", params["game"]))
		return
	}

	matchID := s.slugs.Slug()
	for s.HasMatch(matchID) {
		matchID = s.slugs.Slug()
	}

	// TODO: surface game options in the create-match parameters.
	game := rg.Factory(map[string]interface{}{})
	match := NewMatch(matchID, gameID, game, s.logger)

	playerName, _ := params["player-name"].(string)
	player, err := match.AddPlayer(playerName)
	if err != nil {
		s.logger.Errorf("Seating creator in match %s failed: %v", matchID, err)
		return
	}
	sess.match = match
	sess.player = player
	match.AddSubscriber(sess)

	s.matches[matchID] = match
	s.logger.Infof("Created match %s (game %s)", matchID, gameID)

	sess.SendResponse(id, map[string]interface{}{"match-id": matchID})
}

func (s *Server) handleJoinMatch(sess *ClientSession, id json.RawMessage, params map[string]interface{}) {
	if sess.match != nil {
		sess.SendError(id, wire.AlreadyInMatch, "You are already in a match. You cannot create new matches.")
		return
	}
	if !s.validateParams(sess, id, params, []string{"game", "player-name", "match-id"}) {
		return
	}

	matchID, _ := params["match-id"].(string)
	match, ok := s.matches[matchID]
	if !ok {
		sess.SendError(id, wire.UnknownMatch, fmt.Sprintf("Unknown match: %v", params["match-id"]))
		return
	}

	gameID, _ := params["game"].(string)
	if match.GameID() != gameID {
		sess.SendError(id, wire.UnknownMatch, fmt.Sprintf("Wrong game for %s (expected %s)", matchID, match.GameID()))
		return
	}

	playerName, _ := params["player-name"].(string)
	if match.HasPlayer(playerName) {
		sess.SendError(id, wire.DuplicatePlayer, fmt.Sprintf("Player '%s' already exists in match '%s'", playerName, matchID))
		return
	}

	// A match past its quorum has already started; it can no longer be
	// joined and is indistinguishable from an unknown one.
	if match.State() != StateAwaitingPlayers {
		sess.SendError(id, wire.UnknownMatch, fmt.Sprintf("Unknown match: %s", matchID))
		return
	}

	player, err := match.AddPlayer(playerName)
	if err != nil {
		s.logger.Errorf("Seating player in match %s failed: %v", matchID, err)
		return
	}
	sess.match = match
	sess.player = player
	match.AddSubscriber(sess)

	sess.SendResponse(id, map[string]interface{}{})

	// The join that filled the match starts it. The response above is
	// already on the joiner's stream, so everyone sees response before
	// the start notification.
	if match.IsReady() {
		if err := match.Start(); err != nil {
			s.logger.Errorf("Starting match %s failed: %v", matchID, err)
		}
	}
}

func (s *Server) handleGameAction(sess *ClientSession, id json.RawMessage, params map[string]interface{}) {
	if !s.validateParams(sess, id, params, []string{"match-id", "action", "data"}) {
		return
	}

	matchID, _ := params["match-id"].(string)
	if sess.match == nil {
		sess.SendError(id, wire.IncorrectMatch, fmt.Sprintf("You are not in %s (or that match does not exist)", matchID))
		return
	}
	match := s.matches[matchID]
	if match == nil || match != sess.match {
		sess.SendError(id, wire.IncorrectMatch, fmt.Sprintf("You are not in %s (or that match does not exist)", matchID))
		return
	}

	actionName, _ := params["action"].(string)
	action, ok := match.Game().Actions()[actionName]
	if !ok {
		sess.SendError(id, wire.GameNoSuchAction, fmt.Sprintf("No such action: %v", params["action"]))
		return
	}

	data, _ := params["data"].(map[string]interface{})
	result, err := action(sess.player, data)
	if err != nil {
		s.sendActionError(sess, id, err)
		return
	}
	sess.SendResponse(id, result)

	if match.Game().Done() {
		if err := match.End(); err != nil {
			s.logger.Errorf("Ending match %s failed: %v", matchID, err)
		}
		delete(s.matches, matchID)
		s.logger.Infof("Match %s done", matchID)
	} else if match.Game().ConsumeStateUpdated() {
		match.NotifyUpdate()
	}
}

// sendActionError translates a game-level failure into its wire code. Any
// error that is not a *authoring.GameError is a bug in the plug-in; it is
// logged and the connection is closed rather than coerced to a wire code.
func (s *Server) sendActionError(sess *ClientSession, id json.RawMessage, err error) {
	gameErr, ok := err.(*authoring.GameError)
	if !ok {
		s.logger.Errorf("Game action failed with a non-game error: %v", err)
		if closeErr := sess.sink.Close(); closeErr != nil {
			s.logger.Errorf("Closing client after plug-in failure: %v", closeErr)
		}
		return
	}
	switch gameErr.Kind {
	case authoring.NotPlayerTurn:
		sess.SendError(id, wire.GameNotPlayerTurn, gameErr.Details)
	case authoring.IncorrectActionData:
		sess.SendError(id, wire.GameIncorrectActionData, gameErr.Details)
	case authoring.IncorrectMove:
		sess.SendError(id, wire.GameIncorrectMove, gameErr.Details)
	default:
		s.logger.Errorf("Game action failed with unknown error kind %d: %v", gameErr.Kind, err)
	}
}
