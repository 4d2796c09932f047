// Copyright (c) 2026 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/chimera-project/chimera.
//
// SPDX-License-Identifier: Apache-2.0
package backend_test

import (
	"encoding/json"
	"fmt"

	. "github.com/chimera-project/chimera/pkg/backend"
	"github.com/chimera-project/chimera/pkg/games"
	"github.com/chimera-project/chimera/pkg/wire"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

// fixedSlugs hands out a canned sequence of match ids.
type fixedSlugs struct {
	slugs []string
	next  int
}

func (s *fixedSlugs) Slug() string {
	slug := s.slugs[s.next%len(s.slugs)]
	s.next++
	return slug
}

// request renders one request frame.
func request(id interface{}, operation string, params map[string]interface{}) []byte {
	msg := map[string]interface{}{
		"type":      "request",
		"id":        id,
		"operation": operation,
	}
	if params != nil {
		msg["params"] = params
	}
	raw, err := json.Marshal(msg)
	Expect(err).NotTo(HaveOccurred())
	return raw
}

var _ = Describe("Server", func() {

	var (
		server *FakeServer
		alice  *FakeConnectedClient
		bob    *FakeConnectedClient
		logger = zap.NewNop().Sugar()
	)

	BeforeEach(func() {
		server = NewFakeServer(logger)
		server.SetSlugSource(&fixedSlugs{slugs: []string{"bold-falcon", "quiet-otter", "amber-raven"}})
		server.RegisterGame("p1wins", games.NewPlayerOneWins, "PlayerOneWins")
		server.RegisterGame("chicken", games.NewChicken, "Chicken")
		alice = server.CreateClient("alice")
		bob = server.CreateClient("bob")
	})

	// createAndJoin sets up a running p1wins match between alice and bob,
	// consuming the setup responses and the start notifications.
	createAndJoin := func() string {
		server.Dispatch(alice, request(1, "create-match",
			map[string]interface{}{"game": "p1wins", "player-name": "alice"}))
		resp := alice.NextResponse()
		matchID := resp.Result["match-id"].(string)
		server.Dispatch(bob, request(1, "join-match",
			map[string]interface{}{"game": "p1wins", "match-id": matchID, "player-name": "bob"}))
		Expect(bob.NextResponse().Error).To(BeNil())
		Expect(alice.NextNotification().Event).To(Equal("start"))
		Expect(bob.NextNotification().Event).To(Equal("start"))
		return matchID
	}

	Context("when validating inbound frames", func() {
		It("responds with PARSE_ERROR and a null id on malformed JSON", func() {
			server.Dispatch(alice, []byte(`{"type": "request"`))

			resp := alice.NextResponse()
			Expect(resp).NotTo(BeNil())
			Expect(resp.HasID()).To(BeFalse())
			Expect(resp.Error.Code).To(Equal(wire.ParseError))
			Expect(resp.Error.Details()).To(HavePrefix("Incorrect JSON"))
		})

		It("rejects a message without a type", func() {
			server.Dispatch(alice, []byte(`{"id": 1, "operation": "list-games"}`))

			resp := alice.NextResponse()
			Expect(resp.HasID()).To(BeFalse())
			Expect(resp.Error.Code).To(Equal(wire.IncorrectRequest))
			Expect(resp.Error.Details()).To(Equal("Message has no 'type' member"))
		})

		It("rejects a message that is not a request", func() {
			server.Dispatch(alice, []byte(`{"type": "response", "id": 1}`))

			resp := alice.NextResponse()
			Expect(resp.HasID()).To(BeFalse())
			Expect(resp.Error.Code).To(Equal(wire.IncorrectRequest))
			Expect(resp.Error.Details()).To(Equal("Incorrect message type: response"))
		})

		It("rejects a request without an id", func() {
			server.Dispatch(alice, []byte(`{"type": "request", "operation": "list-games"}`))

			resp := alice.NextResponse()
			Expect(resp.HasID()).To(BeFalse())
			Expect(resp.Error.Code).To(Equal(wire.IncorrectRequest))
			Expect(resp.Error.Details()).To(Equal("No id specified"))
		})

		It("rejects a request without an operation, echoing the id", func() {
			server.Dispatch(alice, []byte(`{"type": "request", "id": 42}`))

			resp := alice.NextResponse()
			Expect(string(resp.ID)).To(Equal("42"))
			Expect(resp.Error.Code).To(Equal(wire.IncorrectRequest))
			Expect(resp.Error.Details()).To(Equal("No operation specified"))
		})

		It("rejects an unknown operation", func() {
			server.Dispatch(alice, request(7, "make-coffee", nil))

			resp := alice.NextResponse()
			Expect(string(resp.ID)).To(Equal("7"))
			Expect(resp.Error.Code).To(Equal(wire.NoSuchOperation))
		})

		It("round-trips a string id", func() {
			server.Dispatch(alice, request("req-001", "list-games", nil))

			resp := alice.NextResponse()
			Expect(string(resp.ID)).To(Equal(`"req-001"`))
		})
	})

	Context("when listing games", func() {
		It("returns all registered games", func() {
			server.Dispatch(alice, request(1, "list-games", nil))

			resp := alice.NextResponse()
			Expect(resp.Error).To(BeNil())
			Expect(resp.Result["games"]).To(ConsistOf(
				map[string]interface{}{"id": "p1wins", "description": "PlayerOneWins"},
				map[string]interface{}{"id": "chicken", "description": "Chicken"},
			))
		})

		It("returns an empty list when nothing is registered", func() {
			empty := NewFakeServer(logger)
			carol := empty.CreateClient("carol")

			empty.Dispatch(carol, request(1, "list-games", nil))

			resp := carol.NextResponse()
			Expect(resp.Error).To(BeNil())
			Expect(resp.Result["games"]).To(BeEmpty())
		})
	})

	Context("when creating a match", func() {
		It("returns the match id and seats the creator", func() {
			server.Dispatch(alice, request(1, "create-match",
				map[string]interface{}{"game": "p1wins", "player-name": "alice"}))

			resp := alice.NextResponse()
			Expect(resp.Error).To(BeNil())
			Expect(resp.Result).To(HaveKeyWithValue("match-id", "bold-falcon"))
			Expect(server.HasMatch("bold-falcon")).To(BeTrue())
			Expect(server.MatchByID("bold-falcon").HasPlayer("alice")).To(BeTrue())
		})

		It("skips match ids that are already taken", func() {
			server.SetSlugSource(&fixedSlugs{slugs: []string{"bold-falcon", "bold-falcon", "quiet-otter"}})
			server.Dispatch(alice, request(1, "create-match",
				map[string]interface{}{"game": "p1wins", "player-name": "alice"}))
			Expect(alice.NextResponse().Result).To(HaveKeyWithValue("match-id", "bold-falcon"))

			server.Dispatch(bob, request(1, "create-match",
				map[string]interface{}{"game": "p1wins", "player-name": "bob"}))

			Expect(bob.NextResponse().Result).To(HaveKeyWithValue("match-id", "quiet-otter"))
		})

		It("rejects a second create from the same client", func() {
			server.Dispatch(alice, request(1, "create-match",
				map[string]interface{}{"game": "p1wins", "player-name": "alice"}))
			alice.NextResponse()

			server.Dispatch(alice, request(2, "create-match",
				map[string]interface{}{"game": "p1wins", "player-name": "alice"}))

			resp := alice.NextResponse()
			Expect(resp.Error.Code).To(Equal(wire.AlreadyInMatch))
		})

		It("rejects an unknown game", func() {
			server.Dispatch(alice, request(1, "create-match",
				map[string]interface{}{"game": "chess", "player-name": "alice"}))

			resp := alice.NextResponse()
			Expect(resp.Error.Code).To(Equal(wire.UnknownGame))
			Expect(resp.Error.Details()).To(Equal("Unknown game: chess"))
		})

		It("reports the first missing parameter", func() {
			server.Dispatch(alice, request(1, "create-match",
				map[string]interface{}{"player-name": "alice"}))

			resp := alice.NextResponse()
			Expect(resp.Error.Code).To(Equal(wire.IncorrectParams))
			Expect(resp.Error.Details()).To(Equal("Missing 'game' parameter"))
		})
	})

	Context("when joining a match", func() {
		var matchID string

		BeforeEach(func() {
			server.Dispatch(alice, request(1, "create-match",
				map[string]interface{}{"game": "p1wins", "player-name": "alice"}))
			matchID = alice.NextResponse().Result["match-id"].(string)
		})

		It("returns an empty result and starts the full match", func() {
			server.Dispatch(bob, request(1, "join-match",
				map[string]interface{}{"game": "p1wins", "match-id": matchID, "player-name": "bob"}))

			resp := bob.NextResponse()
			Expect(resp.Error).To(BeNil())
			Expect(resp.Result).To(BeEmpty())

			for _, client := range []*FakeConnectedClient{alice, bob} {
				start := client.NextNotification()
				Expect(start.Event).To(Equal("start"))
				Expect(start.Scope).To(Equal("match"))
				Expect(start.Data).To(HaveKeyWithValue("match-id", matchID))
				Expect(start.Data).To(HaveKeyWithValue("match-status", "in-progress"))
				Expect(start.Data).To(HaveKeyWithValue("game-id", "p1wins"))
				Expect(start.Data).To(HaveKey("game-state"))
				Expect(start.Data).NotTo(HaveKey("match-winner"))
			}
		})

		It("rejects an unknown match id", func() {
			server.Dispatch(bob, request(1, "join-match",
				map[string]interface{}{"game": "p1wins", "match-id": "no-such", "player-name": "bob"}))

			resp := bob.NextResponse()
			Expect(resp.Error.Code).To(Equal(wire.UnknownMatch))
			Expect(resp.Error.Details()).To(Equal("Unknown match: no-such"))
		})

		It("rejects a join naming the wrong game", func() {
			server.Dispatch(bob, request(1, "join-match",
				map[string]interface{}{"game": "chicken", "match-id": matchID, "player-name": "bob"}))

			resp := bob.NextResponse()
			Expect(resp.Error.Code).To(Equal(wire.UnknownMatch))
		})

		It("rejects a duplicate player name", func() {
			server.Dispatch(bob, request(1, "join-match",
				map[string]interface{}{"game": "p1wins", "match-id": matchID, "player-name": "alice"}))

			resp := bob.NextResponse()
			Expect(resp.Error.Code).To(Equal(wire.DuplicatePlayer))
			Expect(resp.Error.Details()).To(Equal(
				fmt.Sprintf("Player 'alice' already exists in match '%s'", matchID)))
		})

		It("rejects a join by a client that is already in a match", func() {
			server.Dispatch(bob, request(1, "create-match",
				map[string]interface{}{"game": "p1wins", "player-name": "bob"}))
			bob.NextResponse()

			server.Dispatch(bob, request(2, "join-match",
				map[string]interface{}{"game": "p1wins", "match-id": matchID, "player-name": "bob"}))

			resp := bob.NextResponse()
			Expect(resp.Error.Code).To(Equal(wire.AlreadyInMatch))
		})

		It("treats a started match as unknown", func() {
			server.Dispatch(bob, request(1, "join-match",
				map[string]interface{}{"game": "p1wins", "match-id": matchID, "player-name": "bob"}))
			bob.NextResponse()
			carol := server.CreateClient("carol")

			server.Dispatch(carol, request(1, "join-match",
				map[string]interface{}{"game": "p1wins", "match-id": matchID, "player-name": "carol"}))

			resp := carol.NextResponse()
			Expect(resp.Error.Code).To(Equal(wire.UnknownMatch))
			Expect(resp.Error.Details()).To(Equal(fmt.Sprintf("Unknown match: %s", matchID)))
		})
	})

	Context("when performing game actions", func() {

		It("rejects an action from a client not in the match", func() {
			matchID := createAndJoin()
			carol := server.CreateClient("carol")

			server.Dispatch(carol, request(1, "game-action", map[string]interface{}{
				"match-id": matchID, "action": "move", "data": map[string]interface{}{"phrase": "hi"}}))

			resp := carol.NextResponse()
			Expect(resp.Error.Code).To(Equal(wire.IncorrectMatch))
		})

		It("rejects an action naming a different match", func() {
			createAndJoin()

			server.Dispatch(alice, request(2, "game-action", map[string]interface{}{
				"match-id": "other-match", "action": "move", "data": map[string]interface{}{"phrase": "hi"}}))

			resp := alice.NextResponse()
			Expect(resp.Error.Code).To(Equal(wire.IncorrectMatch))
			Expect(resp.Error.Details()).To(Equal("You are not in other-match (or that match does not exist)"))
		})

		It("rejects an action the game does not support", func() {
			matchID := createAndJoin()

			server.Dispatch(alice, request(2, "game-action", map[string]interface{}{
				"match-id": matchID, "action": "dance", "data": map[string]interface{}{}}))

			resp := alice.NextResponse()
			Expect(resp.Error.Code).To(Equal(wire.GameNoSuchAction))
			Expect(resp.Error.Details()).To(Equal("No such action: dance"))
		})

		It("rejects an action out of turn", func() {
			matchID := createAndJoin()

			server.Dispatch(bob, request(2, "game-action", map[string]interface{}{
				"match-id": matchID, "action": "move", "data": map[string]interface{}{"phrase": "me first"}}))

			resp := bob.NextResponse()
			Expect(resp.Error.Code).To(Equal(wire.GameNotPlayerTurn))
			Expect(resp.Error.Details()).To(Equal("It is not your turn."))
		})

		It("rejects missing and unexpected data fields", func() {
			matchID := createAndJoin()

			server.Dispatch(alice, request(2, "game-action", map[string]interface{}{
				"match-id": matchID, "action": "move", "data": map[string]interface{}{}}))
			resp := alice.NextResponse()
			Expect(resp.Error.Code).To(Equal(wire.GameIncorrectActionData))
			Expect(resp.Error.Details()).To(Equal("Missing data field: phrase"))

			server.Dispatch(alice, request(3, "game-action", map[string]interface{}{
				"match-id": matchID, "action": "move",
				"data": map[string]interface{}{"phrase": "hi", "extra": 1}}))
			resp = alice.NextResponse()
			Expect(resp.Error.Code).To(Equal(wire.GameIncorrectActionData))
			Expect(resp.Error.Details()).To(Equal("Unexpected data field: extra"))
		})

		It("returns the action result and fans out an update", func() {
			matchID := createAndJoin()

			server.Dispatch(alice, request(2, "game-action", map[string]interface{}{
				"match-id": matchID, "action": "move", "data": map[string]interface{}{"phrase": "onwards"}}))

			resp := alice.NextResponse()
			Expect(resp.Error).To(BeNil())
			Expect(resp.Result).To(HaveKeyWithValue("received", "onwards"))

			for _, client := range []*FakeConnectedClient{alice, bob} {
				update := client.NextNotification()
				Expect(update.Event).To(Equal("update"))
				Expect(update.Data).To(HaveKeyWithValue("match-status", "in-progress"))
				state := update.Data["game-state"].(map[string]interface{})
				Expect(state).To(HaveKeyWithValue("player1_phrase", "onwards"))
				Expect(state).To(HaveKeyWithValue("player2_phrase", BeNil()))
			}
		})

		It("ends the match with a winner and removes it", func() {
			matchID := createAndJoin()

			server.Dispatch(alice, request(2, "game-action", map[string]interface{}{
				"match-id": matchID, "action": "move", "data": map[string]interface{}{"phrase": "one"}}))
			alice.NextResponse()
			alice.NextNotification()
			bob.NextNotification()

			server.Dispatch(bob, request(2, "game-action", map[string]interface{}{
				"match-id": matchID, "action": "move", "data": map[string]interface{}{"phrase": "two"}}))
			Expect(bob.NextResponse().Error).To(BeNil())

			for _, client := range []*FakeConnectedClient{alice, bob} {
				end := client.NextNotification()
				Expect(end.Event).To(Equal("end"))
				Expect(end.Data).To(HaveKeyWithValue("match-status", "done"))
				Expect(end.Data).To(HaveKeyWithValue("match-winner", "alice"))
				Expect(client.NumNotifications()).To(Equal(0))
			}
			Expect(server.HasMatch(matchID)).To(BeFalse())
		})

		It("does not fan out an update when the action left the state unchanged", func() {
			server.Dispatch(alice, request(1, "create-match",
				map[string]interface{}{"game": "chicken", "player-name": "alice"}))
			matchID := alice.NextResponse().Result["match-id"].(string)
			server.Dispatch(bob, request(1, "join-match",
				map[string]interface{}{"game": "chicken", "match-id": matchID, "player-name": "bob"}))
			bob.NextResponse()
			alice.NextNotification()
			bob.NextNotification()

			// Half a round: the move succeeds but the round is unresolved.
			server.Dispatch(alice, request(2, "game-action", map[string]interface{}{
				"match-id": matchID, "action": "move", "data": map[string]interface{}{"swerve": true}}))

			Expect(alice.NextResponse().Error).To(BeNil())
			Expect(alice.NumNotifications()).To(Equal(0))
			Expect(bob.NumNotifications()).To(Equal(0))
		})
	})

	Context("when a client disconnects", func() {
		It("keeps the match running for the remaining player", func() {
			matchID := createAndJoin()

			server.DisconnectClient(bob)

			server.Dispatch(alice, request(2, "game-action", map[string]interface{}{
				"match-id": matchID, "action": "move", "data": map[string]interface{}{"phrase": "still here"}}))
			Expect(alice.NextResponse().Error).To(BeNil())
			Expect(alice.NextNotification().Event).To(Equal("update"))
			Expect(bob.NumNotifications()).To(Equal(0))
		})

		It("lets the client create a fresh match afterwards", func() {
			createAndJoin()

			server.DisconnectClient(bob)
			bob = server.CreateClient("bob")
			server.Dispatch(bob, request(5, "create-match",
				map[string]interface{}{"game": "chicken", "player-name": "bob"}))

			Expect(bob.NextResponse().Error).To(BeNil())
		})
	})
})
