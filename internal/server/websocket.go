package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spellforge/spellforge-server/internal/auth"
	"github.com/spellforge/spellforge-server/internal/config"
	"github.com/spellforge/spellforge-server/internal/game"
	"github.com/spellforge/spellforge-server/internal/game/resolution"
)

// WSMessage is the frame exchanged with clients.
type WSMessage struct {
	Type     string          `json:"type"`
	GameID   string          `json:"game_id,omitempty"`
	PlayerID string          `json:"player_id,omitempty"`
	StepID   string          `json:"step_id,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// stepResponsePayload carries a client's answer to a resolution step.
type stepResponsePayload struct {
	Selections []string `json:"selections"`
}

// stepNotification is sent to the owning player on step lifecycle events.
type stepNotification struct {
	StepID    string   `json:"step_id"`
	Kind      string   `json:"kind"`
	Prompt    string   `json:"prompt"`
	Options   []string `json:"options,omitempty"`
	Min       int      `json:"min_selections"`
	Max       int      `json:"max_selections"`
	Mandatory bool     `json:"mandatory"`
	State     string   `json:"state"`
}

type resultPayload struct {
	Success       bool   `json:"success"`
	Pending       bool   `json:"pending,omitempty"`
	StepID        string `json:"step_id,omitempty"`
	ErrorCode     string `json:"error_code,omitempty"`
	Message       string `json:"message,omitempty"`
	StackObjectID string `json:"stack_object_id,omitempty"`
}

// Client is one connected player.
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	playerID string
	gameID   string
}

// Hub routes step notifications and client requests between the engine
// and connected players. It implements resolution.Notifier.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	engine     *game.Engine
	tokens     *auth.TokenStore
	cfg        config.WebSocketConfig
	logger     *zap.Logger
}

// NewHub creates the hub. Run must be started before serving clients.
func NewHub(tokens *auth.TokenStore, cfg config.WebSocketConfig, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		tokens:     tokens,
		cfg:        cfg,
		logger:     logger,
	}
}

// SetEngine attaches the engine after construction. The hub is the
// engine's step notifier, so the two reference each other.
func (h *Hub) SetEngine(engine *game.Engine) {
	h.engine = engine
}

// Run processes client registration until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", zap.String("player_id", client.playerID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", zap.String("player_id", client.playerID))
		}
	}
}

// StepAdded implements resolution.Notifier.
func (h *Hub) StepAdded(step resolution.Step) {
	h.sendStep("step_added", step)
}

// StepCompleted implements resolution.Notifier.
func (h *Hub) StepCompleted(step resolution.Step) {
	h.sendStep("step_completed", step)
}

// StepCancelled implements resolution.Notifier.
func (h *Hub) StepCancelled(step resolution.Step) {
	h.sendStep("step_cancelled", step)
}

func (h *Hub) sendStep(msgType string, step resolution.Step) {
	payload, err := json.Marshal(stepNotification{
		StepID:    step.ID,
		Kind:      string(step.Kind),
		Prompt:    step.Prompt,
		Options:   step.Options,
		Min:       step.MinSelections,
		Max:       step.MaxSelections,
		Mandatory: step.Mandatory,
		State:     string(step.State),
	})
	if err != nil {
		return
	}
	frame, err := json.Marshal(WSMessage{
		Type:     msgType,
		GameID:   step.GameID,
		PlayerID: step.PlayerID,
		StepID:   step.ID,
		Data:     payload,
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.gameID == step.GameID && client.playerID == step.PlayerID {
			select {
			case client.send <- frame:
			default:
				// Slow client; the frame is dropped, the step is still
				// discoverable via list_steps.
			}
		}
	}
}

func (h *Hub) handleMessage(client *Client, msg WSMessage) {
	switch msg.Type {
	case "join_game":
		client.gameID = msg.GameID
		client.playerID = msg.PlayerID
		h.reply(client, msg, resultPayload{Success: true})

	case "step_response":
		var payload stepResponsePayload
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &payload); err != nil {
				h.reply(client, msg, resultPayload{Message: "malformed step response"})
				return
			}
		}
		res := h.engine.SubmitStepResponse(context.Background(), client.gameID, client.playerID, msg.StepID, payload.Selections)
		h.reply(client, msg, toResultPayload(res))

	case "cancel_step":
		res := h.engine.CancelStep(client.gameID, client.playerID, msg.StepID)
		h.reply(client, msg, toResultPayload(res))

	case "list_steps":
		steps, err := h.engine.PendingSteps(client.gameID, client.playerID)
		if err != nil {
			h.reply(client, msg, resultPayload{Message: err.Error()})
			return
		}
		notifications := make([]stepNotification, 0, len(steps))
		for _, step := range steps {
			notifications = append(notifications, stepNotification{
				StepID:    step.ID,
				Kind:      string(step.Kind),
				Prompt:    step.Prompt,
				Options:   step.Options,
				Min:       step.MinSelections,
				Max:       step.MaxSelections,
				Mandatory: step.Mandatory,
				State:     string(step.State),
			})
		}
		data, _ := json.Marshal(notifications)
		frame, _ := json.Marshal(WSMessage{Type: "steps", GameID: client.gameID, PlayerID: client.playerID, Data: data})
		select {
		case client.send <- frame:
		default:
		}

	default:
		h.logger.Debug("unknown message type", zap.String("type", msg.Type))
	}
}

func toResultPayload(res game.ActivationResult) resultPayload {
	return resultPayload{
		Success:       res.Success,
		Pending:       res.Pending,
		StepID:        res.StepID,
		ErrorCode:     string(res.ErrorCode),
		Message:       res.Message,
		StackObjectID: res.StackObjectID,
	}
}

func (h *Hub) reply(client *Client, msg WSMessage, payload resultPayload) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	frame, err := json.Marshal(WSMessage{
		Type:     msg.Type + "_result",
		GameID:   client.gameID,
		PlayerID: client.playerID,
		StepID:   msg.StepID,
		Data:     data,
	})
	if err != nil {
		return
	}
	select {
	case client.send <- frame:
	default:
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var msg WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.logger.Debug("malformed frame", zap.Error(err))
			continue
		}
		h.handleMessage(c, msg)
	}
}

func (c *Client) writePump(h *Hub) {
	interval := h.cfg.PingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS upgrades an HTTP request and attaches the client to the hub.
// A valid reconnect token restores the client's identity.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
	}
	if token := r.URL.Query().Get("token"); token != "" && h.tokens != nil {
		if playerID, ok := h.tokens.Redeem(token); ok {
			client.playerID = playerID
		}
	}

	h.register <- client
	go client.writePump(h)
	go client.readPump(h)
}

// Start runs the HTTP listener serving the /ws endpoint until the
// context is cancelled.
func Start(ctx context.Context, h *Hub, cfg config.WebSocketConfig, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.ServeWS)

	srv := &http.Server{
		Addr:    cfg.Address,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("websocket server listening", zap.String("address", cfg.Address))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
