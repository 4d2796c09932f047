// Copyright (c) 2026 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/chimera-project/chimera.
//
// SPDX-License-Identifier: Apache-2.0
package backend

import (
	"encoding/json"
	"sync"

	"github.com/chimera-project/chimera/pkg/wire"

	"go.uber.org/zap"
)

// FakeConnectedClient is an in-process stand-in for a connected client. The
// server's outbound frames are decoded and collected instead of being
// written to a transport, preserving the response-before-notification order
// observable on a real connection.
type FakeConnectedClient struct {
	Name string

	mu            sync.Mutex
	responses     []*wire.Message
	notifications []*wire.Message
	closed        bool
}

// SendMessage records one outbound frame.
func (c *FakeConnectedClient) SendMessage(v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg, err := wire.Decode(raw)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch msg.Type {
	case wire.TypeResponse:
		c.responses = append(c.responses, msg)
	case wire.TypeNotification:
		c.notifications = append(c.notifications, msg)
	}
	return nil
}

// Close marks the fake transport as closed.
func (c *FakeConnectedClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Closed reports whether the server closed this client.
func (c *FakeConnectedClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// NextResponse pops the oldest recorded response, or nil.
func (c *FakeConnectedClient) NextResponse() *wire.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.responses) == 0 {
		return nil
	}
	msg := c.responses[0]
	c.responses = c.responses[1:]
	return msg
}

// NextNotification pops the oldest recorded notification, or nil.
func (c *FakeConnectedClient) NextNotification() *wire.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.notifications) == 0 {
		return nil
	}
	msg := c.notifications[0]
	c.notifications = c.notifications[1:]
	return msg
}

// NumResponses returns the number of recorded, unconsumed responses.
func (c *FakeConnectedClient) NumResponses() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.responses)
}

// NumNotifications returns the number of recorded, unconsumed notifications.
func (c *FakeConnectedClient) NumNotifications() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.notifications)
}

// FakeServer short-circuits the transport: requests are fed straight into
// the dispatcher and outbound frames land in per-client recorders. It
// exhibits the same observable ordering as the WebSocket server, so tests
// written against it hold for the real transport too.
type FakeServer struct {
	*Server

	sessions map[*FakeConnectedClient]*ClientSession
}

// NewFakeServer returns a fake server around a fresh dispatcher.
func NewFakeServer(logger *zap.SugaredLogger) *FakeServer {
	return &FakeServer{
		Server:   NewServer(NewSlugSource(), logger),
		sessions: map[*FakeConnectedClient]*ClientSession{},
	}
}

// SetSlugSource swaps the match id source, letting tests pin slugs.
func (fs *FakeServer) SetSlugSource(slugs SlugSource) {
	fs.Server.slugs = slugs
}

// CreateClient connects a new fake client.
func (fs *FakeServer) CreateClient(name string) *FakeConnectedClient {
	client := &FakeConnectedClient{Name: name}
	fs.sessions[client] = fs.NewSession(client)
	return client
}

// Dispatch feeds one raw frame from the given client into the dispatcher,
// synchronously. Responses and notifications are recorded before it returns.
func (fs *FakeServer) Dispatch(client *FakeConnectedClient, raw []byte) {
	fs.ProcessMessage(fs.sessions[client], raw)
}

// DisconnectClient simulates the client's transport dropping.
func (fs *FakeServer) DisconnectClient(client *FakeConnectedClient) {
	if sess, ok := fs.sessions[client]; ok {
		fs.Disconnect(sess)
		delete(fs.sessions, client)
	}
}
