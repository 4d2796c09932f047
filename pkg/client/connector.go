// Copyright (c) 2026 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/chimera-project/chimera.
//
// SPDX-License-Identifier: Apache-2.0
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/chimera-project/chimera/pkg/wire"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Connector owns the duplex channel to a chimera server. SendRequest blocks
// the caller until the correlated response arrives; notifications are handed
// to the router registered by the client API.
type Connector interface {
	SendRequest(operation string, params map[string]interface{}) (*wire.Message, error)
	Close() error
}

// notificationRouter receives uncorrelated inbound messages.
type notificationRouter func(*wire.Message)

// WebSocketConnector multiplexes synchronous requests and the asynchronous
// notification stream over one WebSocket connection. A background receive
// goroutine fulfills pending requests by id; everything without an id is a
// notification.
type WebSocketConnector struct {
	conn   *websocket.Conn
	notify notificationRouter
	logger *zap.SugaredLogger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan *wire.Message
	nextID  uint64

	// inCallback is set for the duration of a notification delivery; a
	// request sent from the receive goroutine itself could never see its
	// response. Requests from other goroutines stay allowed and simply
	// block until the callback returns.
	inCallback  atomic.Bool
	receiveGoID atomic.Uint64

	done      chan struct{}
	closeOnce sync.Once
}

// DialWebSocket connects to ws://host:port and starts the receive loop.
func DialWebSocket(host, port string, notify notificationRouter, logger *zap.SugaredLogger) (*WebSocketConnector, error) {
	uri := fmt.Sprintf("ws://%s:%s", host, port)
	conn, _, err := websocket.DefaultDialer.Dial(uri, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", uri, err)
	}
	c := &WebSocketConnector{
		conn:    conn,
		notify:  notify,
		logger:  logger,
		pending: map[string]chan *wire.Message{},
		done:    make(chan struct{}),
	}
	go c.receiveLoop()
	return c, nil
}

// SendRequest allocates a request id, writes the framed message, and blocks
// until the response with that id arrives or the transport closes. Calling
// it from inside a notification callback fails with ErrSendFromCallback.
func (c *WebSocketConnector) SendRequest(operation string, params map[string]interface{}) (*wire.Message, error) {
	if c.inCallback.Load() && goroutineID() == c.receiveGoID.Load() {
		return nil, ErrSendFromCallback
	}
	select {
	case <-c.done:
		return nil, ErrConnectionClosed
	default:
	}

	id := c.generateID()
	idRaw, err := json.Marshal(id)
	if err != nil {
		return nil, err
	}
	slot := make(chan *wire.Message, 1)
	c.mu.Lock()
	c.pending[string(idRaw)] = slot
	c.mu.Unlock()

	request := &wire.Request{Type: wire.TypeRequest, ID: idRaw, Operation: operation, Params: params}
	raw, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}
	c.writeMu.Lock()
	err = c.conn.WriteMessage(websocket.TextMessage, raw)
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, string(idRaw))
		c.mu.Unlock()
		return nil, fmt.Errorf("writing request: %w", err)
	}

	select {
	case response := <-slot:
		return response, nil
	case <-c.done:
		return nil, ErrConnectionClosed
	}
}

// Close performs a cancellation-safe teardown: the transport is closed,
// which unblocks the receive loop and fails all outstanding requests.
func (c *WebSocketConnector) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// generateID returns a per-connection monotonic request id.
func (c *WebSocketConnector) generateID() string {
	n := atomic.AddUint64(&c.nextID, 1)
	return fmt.Sprintf("%s-%08d", c.conn.LocalAddr(), n)
}

// goroutineID extracts the id of the calling goroutine from its stack
// header. The runtime offers no direct accessor, and the connector needs the
// identity to tell a send from inside a notification callback apart from a
// concurrent send by another goroutine.
func goroutineID() uint64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	fields := bytes.Fields(buf[:n])
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// receiveLoop decodes inbound frames, fulfilling pending requests by id and
// routing everything else as notifications.
func (c *WebSocketConnector) receiveLoop() {
	defer c.Close()
	c.receiveGoID.Store(goroutineID())
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Debugf("Server closed the connection: %v", err)
			}
			return
		}
		msg, err := wire.Decode(raw)
		if err != nil {
			c.logger.Errorf("Dropping undecodable frame: %v", err)
			continue
		}
		if msg.HasID() {
			c.fulfill(msg)
		} else {
			c.deliverNotification(msg)
		}
	}
}

func (c *WebSocketConnector) fulfill(msg *wire.Message) {
	key := string(msg.ID)
	c.mu.Lock()
	slot, ok := c.pending[key]
	if ok {
		delete(c.pending, key)
	}
	c.mu.Unlock()
	if !ok {
		c.logger.Errorf("Dropping response with unknown id %s", key)
		return
	}
	slot <- msg
}

func (c *WebSocketConnector) deliverNotification(msg *wire.Message) {
	if c.notify == nil {
		return
	}
	c.inCallback.Store(true)
	defer c.inCallback.Store(false)
	c.notify(msg)
}
