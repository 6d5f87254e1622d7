package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hatsuboshi/lesson-engine/internal/engine"
	"github.com/hatsuboshi/lesson-engine/internal/engine/events"
	"github.com/hatsuboshi/lesson-engine/internal/sessions"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the websocket wire frame, both directions.
type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type playRequest struct {
	InstanceID string `json:"instance_id"`
}

type errorPayload struct {
	Error string `json:"error"`
}

type eventsPayload struct {
	Events []events.Event `json:"events"`
}

type predictPayload struct {
	InstanceID string `json:"instance_id"`
	Score      int    `json:"score"`
}

// Client is one websocket connection, pinned to at most one session.
type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

// Hub routes session events to the clients watching each session.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]bool
	register chan *Client
	drop     chan *Client

	sessions *sessions.Manager
	defaults engine.Config
	logger   *zap.Logger
}

// NewHub creates the hub over a session manager. defaults is the session
// setup used when a create request carries no config of its own.
func NewHub(mgr *sessions.Manager, defaults engine.Config, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:  make(map[*Client]bool),
		register: make(chan *Client),
		drop:     make(chan *Client),
		sessions: mgr,
		defaults: defaults,
		logger:   logger,
	}
}

// Run owns the client set. It exits when the register channel is closed.
func (h *Hub) Run() {
	for {
		select {
		case c, ok := <-h.register:
			if !ok {
				return
			}
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.drop:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		}
	}
}

// broadcast sends a frame to every client watching the session.
func (h *Hub) broadcast(sessionID string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.sessionID != sessionID {
			continue
		}
		select {
		case c.send <- frame:
		default:
			// Slow consumer; the write pump will notice the closed channel.
		}
	}
}

func marshal(msgType, sessionID string, payload any) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	frame, _ := json.Marshal(Message{Type: msgType, SessionID: sessionID, Data: data})
	return frame
}

func (c *Client) reply(msgType, sessionID string, payload any) {
	if frame := marshal(msgType, sessionID, payload); frame != nil {
		select {
		case c.send <- frame:
		default:
		}
	}
}

func (c *Client) replyError(sessionID string, err error) {
	c.reply("error", sessionID, errorPayload{Error: err.Error()})
}

func (h *Hub) handleMessage(c *Client, msg Message) {
	switch msg.Type {
	case "create_session":
		s, err := h.createSession(msg.Data)
		if err != nil {
			c.replyError("", err)
			return
		}
		c.sessionID = s.ID
		c.reply("session_created", s.ID, eventsPayload{Events: s.EventsSince(0)})

	case "resume_session":
		s, err := h.sessions.Resume(msg.Data)
		if err != nil {
			c.replyError("", err)
			return
		}
		c.sessionID = s.ID
		c.reply("session_resumed", s.ID, s.Snapshot())

	case "attach":
		if _, ok := h.sessions.Get(msg.SessionID); !ok {
			c.replyError(msg.SessionID, errUnknownSession)
			return
		}
		c.sessionID = msg.SessionID
		c.reply("attached", msg.SessionID, nil)

	case "play_card":
		s, ok := h.sessions.Get(c.sessionID)
		if !ok {
			c.replyError(c.sessionID, errUnknownSession)
			return
		}
		var req playRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.replyError(c.sessionID, err)
			return
		}
		evs, err := s.Play(req.InstanceID)
		if err != nil {
			c.replyError(c.sessionID, err)
			return
		}
		h.broadcast(s.ID, marshal("events", s.ID, eventsPayload{Events: evs}))

	case "end_turn":
		s, ok := h.sessions.Get(c.sessionID)
		if !ok {
			c.replyError(c.sessionID, errUnknownSession)
			return
		}
		evs := s.EndTurn()
		h.broadcast(s.ID, marshal("events", s.ID, eventsPayload{Events: evs}))
		if s.Finished() {
			h.sessions.Close(s.ID)
		}

	case "predict":
		s, ok := h.sessions.Get(c.sessionID)
		if !ok {
			c.replyError(c.sessionID, errUnknownSession)
			return
		}
		var req playRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.replyError(c.sessionID, err)
			return
		}
		score, err := s.PredictScore(req.InstanceID)
		if err != nil {
			c.replyError(c.sessionID, err)
			return
		}
		c.reply("prediction", s.ID, predictPayload{InstanceID: req.InstanceID, Score: score})

	case "snapshot":
		s, ok := h.sessions.Get(c.sessionID)
		if !ok {
			c.replyError(c.sessionID, errUnknownSession)
			return
		}
		c.reply("snapshot", s.ID, s.Snapshot())

	case "save":
		s, ok := h.sessions.Get(c.sessionID)
		if !ok {
			c.replyError(c.sessionID, errUnknownSession)
			return
		}
		data, err := s.Save()
		if err != nil {
			c.replyError(c.sessionID, err)
			return
		}
		c.reply("saved", s.ID, json.RawMessage(data))

	default:
		h.logger.Debug("unknown message type", zap.String("type", msg.Type))
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.drop <- c
		c.conn.Close()
	}()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.replyError("", err)
			continue
		}
		h.handleMessage(c, msg)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for frame := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
}

// ServeWS upgrades an http request into a hub client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &Client{conn: conn, send: make(chan []byte, 64)}
	h.register <- c
	go c.writePump()
	go c.readPump(h)
}
