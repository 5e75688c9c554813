package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ashureev/focusbooster/internal/session"
	"github.com/coder/websocket"
)

// wsMessage is the envelope for both directions of the state socket.
type wsMessage struct {
	Type  string        `json:"type"`
	State *session.View `json:"state,omitempty"`
	Error string        `json:"error,omitempty"`
}

// HandleWebSocket handles GET /ws/state. The server pushes {"type":"state"}
// after every change; clients may send start, pause, reset or ping.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, unsubscribe := h.session.Subscribe(streamBuffer)
	defer unsubscribe()

	initial, err := h.session.Snapshot(ctx)
	if err != nil {
		_ = h.writeWS(ctx, ws, wsMessage{Type: "error", Error: "session unavailable"})
		return
	}
	if err := h.writeWS(ctx, ws, wsMessage{Type: "state", State: &initial}); err != nil {
		return
	}

	go func() {
		defer cancel()
		h.wsInputLoop(ctx, ws)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case v := <-updates:
			if err := h.writeWS(ctx, ws, wsMessage{Type: "state", State: &v}); err != nil {
				return
			}
		}
	}
}

func (h *Handler) wsInputLoop(ctx context.Context, ws *websocket.Conn) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				h.logger.Debug("WebSocket closed by client")
			} else if ctx.Err() == nil {
				h.logger.Warn("WebSocket read error", "error", err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			if err := h.writeWS(ctx, ws, wsMessage{Type: "error", Error: "invalid message"}); err != nil {
				return
			}
			continue
		}

		var cmdErr error
		switch msg.Type {
		case "start":
			_, cmdErr = h.session.Start(ctx)
		case "pause":
			_, cmdErr = h.session.Pause(ctx)
		case "reset":
			_, cmdErr = h.session.Reset(ctx)
		case "ping":
			cmdErr = h.writeWS(ctx, ws, wsMessage{Type: "pong"})
		default:
			cmdErr = h.writeWS(ctx, ws, wsMessage{Type: "error", Error: "unknown message type"})
		}
		if cmdErr != nil {
			h.logger.Debug("WebSocket command failed", "type", msg.Type, "error", cmdErr)
			return
		}
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.opts.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	h.logger.Warn("WebSocket origin rejected", "origin", origin)
	return false
}

func (h *Handler) writeWS(ctx context.Context, ws *websocket.Conn, msg wsMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
