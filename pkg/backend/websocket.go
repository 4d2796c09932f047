// Copyright (c) 2026 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/chimera-project/chimera.
//
// SPDX-License-Identifier: Apache-2.0
package backend

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	mb "github.com/vardius/message-bus"
	"go.uber.org/zap"
)

const (
	// inboundTopic carries frames from all connections to the dispatcher.
	inboundTopic = "backend.inbound"

	// DefaultBusSize is the queue size of the inbound message bus.
	DefaultBusSize = 10000

	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// inboundFrame is one unit of work for the dispatcher: either a raw frame
// from a connection, or its disconnect marker.
type inboundFrame struct {
	sess         *ClientSession
	raw          []byte
	client       *wsConnectedClient
	disconnected bool
}

// WebSocketServerConfig configures the WebSocket transport.
type WebSocketServerConfig struct {
	// Addr is the host:port to listen on. An empty host binds all
	// interfaces.
	Addr string

	// BusSize is the inbound queue size; DefaultBusSize when zero.
	BusSize int

	Logger *zap.SugaredLogger
}

// WebSocketServer accepts duplex WebSocket connections and bridges them to
// the dispatcher. Every inbound frame is published to a message-bus topic
// with a single subscriber, so handlers run to completion one at a time and
// per-connection ordering is preserved.
type WebSocketServer struct {
	server     *Server
	conf       *WebSocketServerConfig
	bus        mb.MessageBus
	httpServer *http.Server
	listener   net.Listener
	logger     *zap.SugaredLogger
}

// NewWebSocketServer returns a transport bound to the given dispatcher.
func NewWebSocketServer(server *Server, conf *WebSocketServerConfig) *WebSocketServer {
	busSize := conf.BusSize
	if busSize == 0 {
		busSize = DefaultBusSize
	}
	ws := &WebSocketServer{
		server: server,
		conf:   conf,
		bus:    mb.New(busSize),
		logger: conf.Logger,
	}
	ws.bus.Subscribe(inboundTopic, ws.processFrame)
	return ws
}

// Start begins listening. It returns once the listener is ready; serving
// continues in the background until Stop.
func (ws *WebSocketServer) Start() error {
	lis, err := net.Listen("tcp", ws.conf.Addr)
	if err != nil {
		return err
	}
	ws.listener = lis
	mux := http.NewServeMux()
	mux.HandleFunc("/", ws.handleConnection)
	ws.httpServer = &http.Server{Handler: mux}
	go func() {
		if err := ws.httpServer.Serve(lis); err != nil && err != http.ErrServerClosed {
			ws.logger.Errorf("WebSocket server stopped: %v", err)
		}
	}()
	ws.logger.Infof("Server listening on %s", lis.Addr())
	return nil
}

// Addr returns the bound listen address.
func (ws *WebSocketServer) Addr() string {
	if ws.listener == nil {
		return ws.conf.Addr
	}
	return ws.listener.Addr().String()
}

// Stop closes the listener and all connections.
func (ws *WebSocketServer) Stop() error {
	ws.logger.Info("Server closed")
	return ws.httpServer.Close()
}

// processFrame is the single bus subscriber; it serializes all dispatcher
// work across connections.
func (ws *WebSocketServer) processFrame(frame *inboundFrame) {
	if frame.disconnected {
		ws.server.Disconnect(frame.sess)
		frame.client.shutdown()
		return
	}
	ws.server.ProcessMessage(frame.sess, frame.raw)
}

// handleConnection upgrades one HTTP request and pumps its frames into the
// bus until the peer goes away.
func (ws *WebSocketServer) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	client := &wsConnectedClient{
		conn:   conn,
		connID: uuid.NewString(),
		send:   make(chan []byte, sendBuffer),
		logger: ws.logger,
	}
	sess := ws.server.NewSession(client)
	ws.logger.Infof("%s connected (conn %s)", conn.RemoteAddr(), client.connID)
	go client.writePump()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		ws.logger.Debugf("%s RCVD: %s", conn.RemoteAddr(), raw)
		ws.bus.Publish(inboundTopic, &inboundFrame{sess: sess, raw: raw})
	}
	ws.logger.Infof("%s disconnected (conn %s)", conn.RemoteAddr(), client.connID)
	ws.bus.Publish(inboundTopic, &inboundFrame{sess: sess, client: client, disconnected: true})
}

// wsConnectedClient is the transport handle of one WebSocket connection.
// Outbound frames are queued on a buffered channel drained by a write pump,
// which keeps each subscriber's stream ordered.
type wsConnectedClient struct {
	conn   *websocket.Conn
	connID string
	send   chan []byte

	mu     sync.Mutex
	closed bool

	logger *zap.SugaredLogger
}

// SendMessage queues one frame for delivery. A client whose send buffer is
// full cannot keep up; skipping a frame would desynchronize its stream, so
// the connection is closed instead.
func (c *wsConnectedClient) SendMessage(v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return net.ErrClosed
	}
	c.logger.Debugf("%s SEND: %s", c.conn.RemoteAddr(), raw)
	select {
	case c.send <- raw:
		return nil
	default:
	}
	c.logger.Errorf("Send buffer full for %s, closing connection", c.conn.RemoteAddr())
	c.closed = true
	close(c.send)
	return net.ErrClosed
}

// Close tears the connection down from the server side.
func (c *wsConnectedClient) Close() error {
	c.shutdown()
	return nil
}

// shutdown closes the send channel exactly once. Called from the dispatcher
// goroutine after the session was disconnected, so no further sends race it.
func (c *wsConnectedClient) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// writePump writes queued frames to the connection and keeps it alive with
// pings.
func (c *wsConnectedClient) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case raw, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				c.logger.Errorf("WebSocket write to %s failed: %v", c.conn.RemoteAddr(), err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
