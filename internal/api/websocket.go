package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/sensor-registry/internal/infrastructure/config"
	"github.com/nerrad567/sensor-registry/internal/infrastructure/logging"
	"github.com/nerrad567/sensor-registry/internal/sensor"
)

// Feed message types.
const (
	MsgSubscribe    = "subscribe"
	MsgUnsubscribe  = "unsubscribe"
	MsgPing         = "ping"
	MsgPong         = "pong"
	MsgSubscribed   = "subscribed"
	MsgUnsubscribed = "unsubscribed"
	MsgEvent        = "event"
	MsgError        = "error"
)

// clientQueueSize bounds frames waiting for a slow client; extras are dropped.
const clientQueueSize = 64

// feedChannels are the channels a client may follow, one per event type.
var feedChannels = []string{
	string(sensor.EventRegistered),
	string(sensor.EventDeleted),
}

var errNoChannels = errors.New("channels are required")

// FeedMessage is the frame exchanged on the /ws feed in both directions.
//
//	-> {"type":"subscribe","id":"1","channels":["sensor.registered"]}
//	<- {"type":"subscribed","id":"1","channels":["sensor.registered"]}
//	<- {"type":"event","channel":"sensor.registered","event":{...}}
type FeedMessage struct {
	Type      string        `json:"type"`
	ID        string        `json:"id,omitempty"`
	Channels  []string      `json:"channels,omitempty"`
	Channel   string        `json:"channel,omitempty"`
	Event     *sensor.Event `json:"event,omitempty"`
	Error     string        `json:"error,omitempty"`
	Timestamp string        `json:"timestamp,omitempty"`
}

// feedLimits are the per-connection read limit and keepalive timings.
type feedLimits struct {
	readLimit int64
	pingEvery time.Duration
	pongWait  time.Duration
}

// newFeedLimits converts the config, substituting defaults for zero values.
func newFeedLimits(cfg config.WebSocketConfig) feedLimits {
	l := feedLimits{
		readLimit: 8192,
		pingEvery: 30 * time.Second,
		pongWait:  10 * time.Second,
	}
	if cfg.MaxMessageSize > 0 {
		l.readLimit = int64(cfg.MaxMessageSize)
	}
	if cfg.PingInterval > 0 {
		l.pingEvery = time.Duration(cfg.PingInterval) * time.Second
	}
	if cfg.PongTimeout > 0 {
		l.pongWait = time.Duration(cfg.PongTimeout) * time.Second
	}
	return l
}

// Hub tracks feed clients and the channels each one follows.
//
// A client's send channel is written only under mu.RLock and closed only
// under mu.Lock, so a send can never hit a closed channel.
type Hub struct {
	limits feedLimits
	logger *logging.Logger

	mu          sync.RWMutex
	clients     map[*feedClient]struct{}
	subscribers map[string]map[*feedClient]struct{} // channel -> followers
	closed      bool
}

// feedClient is one upgraded connection.
type feedClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS middleware
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// NewHub creates an empty hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	subscribers := make(map[string]map[*feedClient]struct{}, len(feedChannels))
	for _, ch := range feedChannels {
		subscribers[ch] = make(map[*feedClient]struct{})
	}
	return &Hub{
		limits:      newFeedLimits(cfg),
		logger:      logger,
		clients:     make(map[*feedClient]struct{}),
		subscribers: subscribers,
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.shutdown()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast delivers ev to the clients following its channel.
// It never blocks; a client whose queue is full misses the event.
func (h *Hub) Broadcast(ev sensor.Event) {
	channel := string(ev.Type)
	data, err := json.Marshal(FeedMessage{
		Type:      MsgEvent,
		Channel:   channel,
		Event:     &ev,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		h.logger.Error("encoding feed event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered, dropped := 0, 0
	for c := range h.subscribers[channel] {
		if c.offer(data) {
			delivered++
		} else {
			dropped++
		}
	}
	if delivered > 0 || dropped > 0 {
		h.logger.Debug("feed event sent",
			"channel", channel,
			"recipients", delivered,
			"dropped", dropped,
		)
	}
}

// add registers c unless the hub has shut down.
func (h *Hub) add(c *feedClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

// remove drops c from the hub and closes its send channel, once.
func (h *Hub) remove(c *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for _, followers := range h.subscribers {
		delete(followers, c)
	}
	close(c.send)
}

// subscribe adds c to every named channel, or to none if any is unknown.
func (h *Hub) subscribe(c *feedClient, channels []string) error {
	if len(channels) == 0 {
		return errNoChannels
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range channels {
		if _, ok := h.subscribers[ch]; !ok {
			return errors.New("unknown channel: " + ch)
		}
	}
	// A client removed by shutdown may still be reading; its send is closed
	if _, ok := h.clients[c]; !ok {
		return nil
	}
	for _, ch := range channels {
		h.subscribers[ch][c] = struct{}{}
	}
	return nil
}

// unsubscribe removes c from the named channels. Unknown names are ignored.
func (h *Hub) unsubscribe(c *feedClient, channels []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range channels {
		if followers, ok := h.subscribers[ch]; ok {
			delete(followers, c)
		}
	}
}

// reply queues msg for c if it is still connected.
func (h *Hub) reply(c *feedClient, msg FeedMessage) {
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; ok {
		c.offer(data)
	}
}

// shutdown closes every send channel and refuses new clients.
// Each writeLoop then sends a close frame and drops its connection.
func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	for _, followers := range h.subscribers {
		clear(followers)
	}
}

// handleWebSocket upgrades the request and attaches the connection to the hub.
// A new client receives nothing until it subscribes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &feedClient{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, clientQueueSize),
	}
	if !s.hub.add(c) {
		//nolint:errcheck // Connection is discarded either way
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}
	s.logger.Debug("websocket client connected", "remote", r.RemoteAddr)

	go c.writeLoop()
	go c.readLoop()
}

// offer queues data without blocking. Callers hold hub.mu.
func (c *feedClient) offer(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// readLoop handles client frames until the connection fails.
func (c *feedClient) readLoop() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	limits := c.hub.limits
	extend := func() error {
		return c.conn.SetReadDeadline(time.Now().Add(limits.pingEvery + limits.pongWait))
	}

	c.conn.SetReadLimit(limits.readLimit)
	extend() //nolint:errcheck // A stale deadline surfaces as a read error
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		// Application pings count as liveness too
		extend() //nolint:errcheck // A stale deadline surfaces as a read error
		c.dispatch(data)
	}
}

// writeLoop drains the send queue and keeps the connection alive with pings.
func (c *feedClient) writeLoop() {
	limits := c.hub.limits
	ticker := time.NewTicker(limits.pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			//nolint:errcheck // Write errors are caught below
			c.conn.SetWriteDeadline(time.Now().Add(limits.pongWait))
			if !ok {
				//nolint:errcheck // Best-effort close frame
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Write errors are caught below
			c.conn.SetWriteDeadline(time.Now().Add(limits.pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch acts on one client frame.
func (c *feedClient) dispatch(data []byte) {
	var msg FeedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.hub.reply(c, FeedMessage{Type: MsgError, Error: "invalid JSON message"})
		return
	}

	switch msg.Type {
	case MsgSubscribe:
		if err := c.hub.subscribe(c, msg.Channels); err != nil {
			c.hub.reply(c, FeedMessage{Type: MsgError, ID: msg.ID, Error: err.Error()})
			return
		}
		c.hub.reply(c, FeedMessage{Type: MsgSubscribed, ID: msg.ID, Channels: msg.Channels})
	case MsgUnsubscribe:
		c.hub.unsubscribe(c, msg.Channels)
		c.hub.reply(c, FeedMessage{Type: MsgUnsubscribed, ID: msg.ID, Channels: msg.Channels})
	case MsgPing:
		c.hub.reply(c, FeedMessage{Type: MsgPong, ID: msg.ID})
	default:
		c.hub.reply(c, FeedMessage{Type: MsgError, ID: msg.ID, Error: "unknown message type: " + msg.Type})
	}
}
