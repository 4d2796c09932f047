// Copyright (c) 2026 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/chimera-project/chimera.
//
// SPDX-License-Identifier: Apache-2.0
package client

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chimera-project/chimera/pkg/authoring"
	"github.com/chimera-project/chimera/pkg/backend"
	"github.com/chimera-project/chimera/pkg/wire"

	"go.uber.org/zap"
)

// FakeConnector bridges the client API to an in-process FakeServer. Requests
// are dispatched synchronously, so the response is recorded and ready to be
// popped by the time Dispatch returns. Notifications stay queued on the fake
// transport until ProcessNotifications pumps them through the router.
type FakeConnector struct {
	server *backend.FakeServer
	client *backend.FakeConnectedClient
	notify notificationRouter

	mu     sync.Mutex
	nextID int
	closed bool
}

// NewFakeConnector connects a fresh fake client to the given server.
func NewFakeConnector(server *backend.FakeServer, name string, notify notificationRouter) *FakeConnector {
	return &FakeConnector{
		server: server,
		client: server.CreateClient(name),
		notify: notify,
	}
}

// SendRequest round-trips one request through the in-process dispatcher.
func (c *FakeConnector) SendRequest(operation string, params map[string]interface{}) (*wire.Message, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrConnectionClosed
	}
	c.nextID++
	id := c.nextID
	c.mu.Unlock()

	idRaw, err := json.Marshal(id)
	if err != nil {
		return nil, err
	}
	request := &wire.Request{Type: wire.TypeRequest, ID: idRaw, Operation: operation, Params: params}
	raw, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}
	c.server.Dispatch(c.client, raw)
	response := c.client.NextResponse()
	if response == nil {
		return nil, fmt.Errorf("no response to request %d (%s)", id, operation)
	}
	return response, nil
}

// Close disconnects the fake client from the server.
func (c *FakeConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.server.DisconnectClient(c.client)
	return nil
}

// ProcessNotifications drains queued notifications through the client's
// notification routing, in arrival order.
func (c *FakeConnector) ProcessNotifications() {
	for {
		msg := c.client.NextNotification()
		if msg == nil {
			return
		}
		c.notify(msg)
	}
}

// FakeChimera is the client API wired to an in-process server, for tests and
// local experimentation without a network. Notification delivery is pull
// based: nothing reaches the match handles or the callback until
// ProcessNotifications is called.
type FakeChimera struct {
	*Chimera

	server    *backend.FakeServer
	connector *FakeConnector
}

// NewFakeChimera returns a client connected to the given fake server; pass
// nil to get a private server.
func NewFakeChimera(server *backend.FakeServer, name string, logger *zap.SugaredLogger) *FakeChimera {
	if server == nil {
		server = backend.NewFakeServer(logger)
	}
	api := newChimera(logger)
	connector := NewFakeConnector(server, name, api.routeNotification)
	api.connector = connector
	return &FakeChimera{Chimera: api, server: server, connector: connector}
}

// Server exposes the underlying fake server so further clients can share it.
func (fc *FakeChimera) Server() *backend.FakeServer {
	return fc.server
}

// AddGame registers a game factory on the underlying server.
func (fc *FakeChimera) AddGame(gameID string, factory authoring.Factory, description string) {
	fc.server.RegisterGame(gameID, factory, description)
}

// ProcessNotifications delivers all queued notifications for this client.
func (fc *FakeChimera) ProcessNotifications() {
	fc.connector.ProcessNotifications()
}
