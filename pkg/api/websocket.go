package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage is a generic WebSocket message.
type WSMessage struct {
	Type    string          `json:"type"`    // "view", "legal", "roll", "move", "validate", "ping"
	ID      string          `json:"id"`      // Request ID for correlating responses
	Game    string          `json:"game"`    // Game session ID
	Payload json.RawMessage `json:"payload"` // Type-specific payload
}

// WSResponse is a generic WebSocket response.
type WSResponse struct {
	Type    string      `json:"type"`              // "result", "error", "pong"
	ID      string      `json:"id,omitempty"`      // Request ID
	Payload interface{} `json:"payload,omitempty"` // Response data
	Error   string      `json:"error,omitempty"`   // Error message if any
	Code    string      `json:"code,omitempty"`    // Error code if any
}

// WSClient represents a connected WebSocket client.
type WSClient struct {
	conn     *websocket.Conn
	handlers *Handlers
	sendChan chan WSResponse
	ctx      context.Context
}

// WebSocket handles WebSocket connections for real-time play.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := &WSClient{
		conn:     conn,
		handlers: h,
		sendChan: make(chan WSResponse, 256),
		ctx:      r.Context(),
	}
	go client.writePump()
	client.readPump()
}

func (c *WSClient) writePump() {
	defer c.conn.Close()
	for msg := range c.sendChan {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (c *WSClient) readPump() {
	defer func() { close(c.sendChan); c.conn.Close() }()
	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.handleMessage(msg)
	}
}

func (c *WSClient) fail(msg WSMessage, err error) {
	_, code := errorKind(err)
	c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: err.Error(), Code: code}
}

func (c *WSClient) result(msg WSMessage, payload interface{}) {
	c.sendChan <- WSResponse{Type: "result", ID: msg.ID, Payload: payload}
}

func (c *WSClient) handleMessage(msg WSMessage) {
	if msg.Type == "ping" {
		c.sendChan <- WSResponse{Type: "pong", ID: msg.ID}
		return
	}

	s, err := c.handlers.store.Get(msg.Game)
	if err != nil {
		c.fail(msg, err)
		return
	}
	pool := c.handlers.pool

	switch msg.Type {
	case "view":
		c.result(msg, GameResponse{ID: s.ID, View: s.Snapshot()})
	case "legal":
		var resp LegalResponse
		if err := pool.RunFast(c.ctx, func() (err error) { resp, err = legal(s); return err }); err != nil {
			c.fail(msg, err)
			return
		}
		c.result(msg, resp)
	case "roll":
		var req RollRequest
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &req); err != nil {
				c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "invalid payload", Code: "INVALID_JSON"}
				return
			}
		}
		var resp RollResponse
		if err := pool.RunFast(c.ctx, func() (err error) { resp, err = roll(s, req.Dice); return err }); err != nil {
			c.fail(msg, err)
			return
		}
		c.result(msg, resp)
	case "move", "validate":
		var req MoveRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "invalid payload", Code: "MALFORMED_MOVE"}
			return
		}
		player, seq, err := parseMove(req)
		if err != nil {
			c.fail(msg, err)
			return
		}
		if msg.Type == "validate" {
			c.result(msg, validate(s, player, seq))
			return
		}
		var resp MoveResponse
		if err := pool.RunFast(c.ctx, func() (err error) { resp, err = move(s, player, seq); return err }); err != nil {
			c.fail(msg, err)
			return
		}
		c.result(msg, resp)
	default:
		c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "unknown message type"}
	}
}
